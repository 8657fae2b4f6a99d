package http

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/ecomtel/ussd-bridge/internal/decision"
	"github.com/ecomtel/ussd-bridge/internal/metrics"
	"github.com/ecomtel/ussd-bridge/internal/model"
	"github.com/ecomtel/ussd-bridge/internal/repository"
	"github.com/ecomtel/ussd-bridge/internal/soap"
	"github.com/ecomtel/ussd-bridge/internal/util"
	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
)

const persistTimeout = 5 * time.Second

// forwardScheduler is the slice of the Forwarder the handler needs.
type forwardScheduler interface {
	Schedule(ev model.MOEvent, dec decision.Decision)
}

// insertMOHandler implements the two-phase response contract: the gateway is
// acknowledged synchronously, then the log write and the deferred partner
// forward happen off the request path. The ack error code only says whether
// the event was accepted (0) or rejected (1); classification always succeeds.
func insertMOHandler(logs repository.SessionLogsRepository, fwd forwardScheduler) echo.HandlerFunc {
	return func(c echo.Context) error {
		body, err := io.ReadAll(c.Request().Body)
		if err != nil {
			metrics.RequestsTotal.WithLabelValues("rejected_decode").Inc()
			return respondAck(c, 1)
		}

		ev, err := soap.DecodeInsertMO(body)
		if err != nil {
			log.Warnf("insertmo decode failed: %v", err)
			metrics.RequestsTotal.WithLabelValues("rejected_decode").Inc()
			return respondAck(c, 1)
		}

		if err := ev.Validate(); err != nil {
			log.Warnf("insertmo rejected: %v", err)
			metrics.RequestsTotal.WithLabelValues("rejected_validation").Inc()
			return respondAck(c, 1)
		}

		dec := decision.Classify(ev.RequestType, ev.Msg)

		// Phase 1: ack the gateway before any persistence or forwarding. The
		// response is flushed here; nothing below can change it.
		if err := respondAck(c, 0); err != nil {
			return err
		}
		metrics.RequestsTotal.WithLabelValues("accepted").Inc()

		// Phase 2, detached: log write first, then schedule the forward.
		// Failures are side-channel only.
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
			defer cancel()

			row := model.SessionLog{
				ID:              util.New(),
				MSISDN:          ev.MSISDN,
				SessionID:       ev.SessionID,
				TransactionID:   ev.TransactionID,
				GatewayID:       ev.GatewayID,
				RequestType:     ev.RequestType,
				ResponseType:    dec.ResponseType,
				ResponseMessage: dec.ResponseMessage,
				UserMessage:     ev.Msg,
				CreatedAt:       time.Now().UTC(),
			}
			if err := logs.Insert(ctx, row); err != nil {
				log.Errorf("ussd_logs insert failed: %v", err)
			}

			fwd.Schedule(ev, dec)
		}()

		return nil
	}
}

func respondAck(c echo.Context, errorCode int) error {
	return c.Blob(http.StatusOK, "application/xml", []byte(soap.EncodeAck(errorCode)))
}
