package forwarder

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ErrBreakerOpen is returned when the partner breaker rejects a call.
var ErrBreakerOpen = fmt.Errorf("partner breaker open")

// Partner sends one already-encoded envelope to the downstream service.
// Implementations must be safe for concurrent use; many deferred forwards can
// be in flight at once.
type Partner interface {
	Send(ctx context.Context, envelope string) error
}

// HTTPPartner posts forward envelopes to the Lumitel endpoint. The client
// timeout bounds every call so a hanging partner cannot pile up pending work.
type HTTPPartner struct {
	url    string
	client *http.Client
	br     *MicroBreaker
}

func NewHTTPPartner(url string, timeoutMs, failThreshold, openForMs int) *HTTPPartner {
	if timeoutMs <= 0 {
		timeoutMs = 5000
	}

	if failThreshold <= 0 {
		failThreshold = 3
	}

	if openForMs <= 0 {
		openForMs = 15000
	}

	return &HTTPPartner{
		url:    url,
		client: &http.Client{Timeout: time.Duration(timeoutMs) * time.Millisecond},
		br:     NewMicroBreaker(failThreshold, time.Duration(openForMs)*time.Millisecond),
	}
}

func (p *HTTPPartner) Send(ctx context.Context, envelope string) error {
	if !p.br.TryAcquire() {
		return ErrBreakerOpen
	}

	if err := p.post(ctx, envelope); err != nil {
		p.br.OnFailure()
		return err
	}

	p.br.OnSuccess()

	return nil
}

func (p *HTTPPartner) post(ctx context.Context, envelope string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, strings.NewReader(envelope))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/xml")

	res, err := p.client.Do(req)
	if err != nil {
		return err
	}

	defer res.Body.Close()

	if res.StatusCode/100 != 2 {
		return fmt.Errorf("partner url=%s status=%d", p.url, res.StatusCode)
	}

	return nil
}
