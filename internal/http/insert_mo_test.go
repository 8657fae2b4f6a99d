package http

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ecomtel/ussd-bridge/internal/decision"
	"github.com/ecomtel/ussd-bridge/internal/model"
	"github.com/labstack/echo/v4"
)

// --- Test Doubles ---

// mockLogsRepo records inserted rows and signals each insert.
type mockLogsRepo struct {
	mu       sync.Mutex
	rows     []model.SessionLog
	failNext bool
}

func (m *mockLogsRepo) Insert(ctx context.Context, l model.SessionLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failNext {
		m.failNext = false
		return fmt.Errorf("simulated insert failure")
	}
	m.rows = append(m.rows, l)
	return nil
}

func (m *mockLogsRepo) inserted() []model.SessionLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.SessionLog(nil), m.rows...)
}

// mockScheduler records scheduled forwards and signals each call. Because the
// handler schedules after the log write in the same goroutine, waiting on the
// scheduler also fences the repo state.
type mockScheduler struct {
	mu    sync.Mutex
	calls []scheduledCall
	ch    chan struct{}
}

type scheduledCall struct {
	ev  model.MOEvent
	dec decision.Decision
}

func newMockScheduler() *mockScheduler {
	return &mockScheduler{ch: make(chan struct{}, 16)}
}

func (m *mockScheduler) Schedule(ev model.MOEvent, dec decision.Decision) {
	m.mu.Lock()
	m.calls = append(m.calls, scheduledCall{ev: ev, dec: dec})
	m.mu.Unlock()
	m.ch <- struct{}{}
}

func (m *mockScheduler) scheduled() []scheduledCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]scheduledCall(nil), m.calls...)
}

func (m *mockScheduler) wait(t *testing.T) {
	t.Helper()
	select {
	case <-m.ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a scheduled forward")
	}
}

func doRequest(t *testing.T, repo *mockLogsRepo, sched *mockScheduler, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, "application/xml")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := insertMOHandler(repo, sched)(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	return rec
}

const validBody = `<soapenv:Envelope xmlns:soapenv="http://schemas.xmlsoap.org/soap/envelope/" xmlns:ns2="http://ws.ussd/">
  <soapenv:Header/>
  <soapenv:Body>
    <ns2:InsertMO>
      <requesttype>101</requesttype>
      <msisdn>25579000000</msisdn>
      <sessionid>sess-1</sessionid>
      <transactionid>tx-1</transactionid>
      <ussdgw_id>gw-7</ussdgw_id>
      <msg>1</msg>
    </ns2:InsertMO>
  </soapenv:Body>
</soapenv:Envelope>`

func TestInsertMOAccepted(t *testing.T) {
	repo := &mockLogsRepo{}
	sched := newMockScheduler()

	rec := doRequest(t, repo, sched, validBody)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get(echo.HeaderContentType); !strings.HasPrefix(ct, "application/xml") {
		t.Errorf("content type = %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "<errorCode>0</errorCode>") {
		t.Errorf("expected ack(0), got: %s", rec.Body.String())
	}

	sched.wait(t)

	rows := repo.inserted()
	if len(rows) != 1 {
		t.Fatalf("got %d log rows, want 1", len(rows))
	}
	row := rows[0]
	if row.ID == "" {
		t.Error("log row missing id")
	}
	if row.ResponseType != "202" || row.ResponseMessage != "Please enter your 4-digit PIN to create your account." {
		t.Errorf("unexpected classification in row: %s / %s", row.ResponseType, row.ResponseMessage)
	}
	if row.UserMessage != "1" || row.RequestType != "101" || row.MSISDN != "25579000000" {
		t.Errorf("unexpected row: %+v", row)
	}
	if row.CreatedAt.IsZero() || row.CreatedAt.Location() != time.UTC {
		t.Errorf("timestamp not set in UTC: %v", row.CreatedAt)
	}

	calls := sched.scheduled()
	if len(calls) != 1 {
		t.Fatalf("got %d scheduled forwards, want 1", len(calls))
	}
	if calls[0].dec.ResponseType != "202" {
		t.Errorf("forward responseType = %s, want 202", calls[0].dec.ResponseType)
	}
	if calls[0].ev.SessionID != "sess-1" || calls[0].ev.TransactionID != "tx-1" {
		t.Errorf("forward correlation fields wrong: %+v", calls[0].ev)
	}
}

func TestInsertMOMissingRequiredField(t *testing.T) {
	for _, drop := range []string{"requesttype", "msisdn", "sessionid", "transactionid", "ussdgw_id"} {
		t.Run(drop, func(t *testing.T) {
			body := strings.Replace(validBody,
				"<"+drop+">", "<ignored_"+drop+">", 1)
			body = strings.Replace(body,
				"</"+drop+">", "</ignored_"+drop+">", 1)

			repo := &mockLogsRepo{}
			sched := newMockScheduler()
			rec := doRequest(t, repo, sched, body)

			if !strings.Contains(rec.Body.String(), "<errorCode>1</errorCode>") {
				t.Errorf("expected ack(1), got: %s", rec.Body.String())
			}
			if len(repo.inserted()) != 0 {
				t.Error("rejected request must not produce a log row")
			}
			if len(sched.scheduled()) != 0 {
				t.Error("rejected request must not schedule a forward")
			}
		})
	}
}

func TestInsertMOMalformedXML(t *testing.T) {
	repo := &mockLogsRepo{}
	sched := newMockScheduler()

	rec := doRequest(t, repo, sched, "<Envelope><Body>")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (ack envelope, not a fault)", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "<errorCode>1</errorCode>") {
		t.Errorf("expected ack(1), got: %s", rec.Body.String())
	}
	if len(repo.inserted()) != 0 || len(sched.scheduled()) != 0 {
		t.Error("malformed request must not reach persistence or forwarding")
	}
}

func TestInsertMOInsertFailureStillForwards(t *testing.T) {
	// persistence is fire-and-forget: its failure neither changes the ack nor
	// cancels the scheduled forward
	repo := &mockLogsRepo{failNext: true}
	sched := newMockScheduler()

	rec := doRequest(t, repo, sched, validBody)
	if !strings.Contains(rec.Body.String(), "<errorCode>0</errorCode>") {
		t.Errorf("expected ack(0), got: %s", rec.Body.String())
	}

	sched.wait(t)
	if len(sched.scheduled()) != 1 {
		t.Fatal("forward must still be scheduled after insert failure")
	}
}

func TestInsertMONoDeduplication(t *testing.T) {
	repo := &mockLogsRepo{}
	sched := newMockScheduler()

	doRequest(t, repo, sched, validBody)
	sched.wait(t)
	doRequest(t, repo, sched, validBody)
	sched.wait(t)

	if got := len(repo.inserted()); got != 2 {
		t.Errorf("got %d rows, want 2 (no dedup contract)", got)
	}
	if got := len(sched.scheduled()); got != 2 {
		t.Errorf("got %d forwards, want 2", got)
	}
}

func TestInsertMOLowercasePayloadEquivalent(t *testing.T) {
	body := `<Envelope><Body><insertmo>
      <requesttype>100</requesttype>
      <msisdn>25579000000</msisdn>
      <sessionid>s</sessionid>
      <transactionid>t</transactionid>
      <ussdgw_id>g</ussdgw_id>
    </insertmo></Body></Envelope>`

	repo := &mockLogsRepo{}
	sched := newMockScheduler()
	rec := doRequest(t, repo, sched, body)

	if !strings.Contains(rec.Body.String(), "<errorCode>0</errorCode>") {
		t.Errorf("expected ack(0) for lowercase payload, got: %s", rec.Body.String())
	}
	sched.wait(t)
	if calls := sched.scheduled(); len(calls) != 1 || calls[0].dec.ResponseType != "202" {
		t.Errorf("unexpected scheduled calls: %+v", calls)
	}
}
