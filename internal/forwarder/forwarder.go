package forwarder

import (
	"context"
	"sync"
	"time"

	"github.com/ecomtel/ussd-bridge/internal/decision"
	"github.com/ecomtel/ussd-bridge/internal/metrics"
	"github.com/ecomtel/ussd-bridge/internal/model"
	"github.com/ecomtel/ussd-bridge/internal/soap"
	"go.uber.org/zap"
)

// Forwarder dispatches partner envelopes a fixed delay after the originating
// request has already been acknowledged. There is no caller to report back to:
// results surface only through logs and metrics. No retries.
type Forwarder struct {
	partner Partner
	user    string
	pass    string
	delay   time.Duration
	log     *zap.Logger

	wg sync.WaitGroup
}

func New(partner Partner, user, pass string, delay time.Duration, log *zap.Logger) *Forwarder {
	if delay <= 0 {
		delay = 2 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Forwarder{
		partner: partner,
		user:    user,
		pass:    pass,
		delay:   delay,
		log:     log,
	}
}

// Schedule queues one forward call for the classified event. Fire-and-forget:
// it returns immediately and never blocks the request worker.
func (f *Forwarder) Schedule(ev model.MOEvent, dec decision.Decision) {
	f.wg.Add(1)
	time.AfterFunc(f.delay, func() {
		defer f.wg.Done()
		f.send(ev, dec)
	})
}

func (f *Forwarder) send(ev model.MOEvent, dec decision.Decision) {
	env := soap.EncodeForward(soap.ForwardParams{
		Message:       dec.ResponseMessage,
		MSISDN:        ev.MSISDN,
		SessionID:     ev.SessionID,
		TransactionID: ev.TransactionID,
		GatewayID:     ev.GatewayID,
		ResponseType:  dec.ResponseType,
		User:          f.user,
		Pass:          f.pass,
	})

	if err := f.partner.Send(context.Background(), env); err != nil {
		metrics.ForwardsTotal.WithLabelValues("error").Inc()
		f.log.Error("partner forward failed",
			zap.String("sessionid", ev.SessionID),
			zap.String("transactionid", ev.TransactionID),
			zap.String("responseType", dec.ResponseType),
			zap.Error(err),
		)
		return
	}

	metrics.ForwardsTotal.WithLabelValues("ok").Inc()
	f.log.Info("partner forward sent",
		zap.String("sessionid", ev.SessionID),
		zap.String("transactionid", ev.TransactionID),
		zap.String("responseType", dec.ResponseType),
	)
}

// Drain blocks until all scheduled and in-flight forwards finish, or until ctx
// expires. Used on shutdown so pending timers are not silently dropped.
func (f *Forwarder) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		f.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
