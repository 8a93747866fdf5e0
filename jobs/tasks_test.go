package jobs

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jobmetrics "github.com/sparkleops/sparkle-ops/internal/jobs"
	"github.com/sparkleops/sparkle-ops/internal/notify"
)

type recordingMailer struct {
	mu   sync.Mutex
	sent []Message
	err  error
}

func (m *recordingMailer) Send(_ context.Context, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return m.err
}

func quoteEvent() notify.QuoteEvent {
	expires := time.Date(2026, 4, 9, 9, 0, 0, 0, time.UTC)
	return notify.QuoteEvent{
		QuoteID:     uuid.New(),
		QuoteNumber: "QT-2026-0007",
		ClientID:    uuid.New(),
		Status:      "approved",
		FinalPrice:  decimal.RequireFromString("1234.5"),
		ExpiresAt:   &expires,
	}
}

func TestQuoteMessageFormatsAmountAndExpiry(t *testing.T) {
	msg, err := QuoteMessage(notify.KindApproved, quoteEvent())
	require.NoError(t, err)
	assert.Equal(t, "Your quote QT-2026-0007 is approved", msg.Subject)
	assert.Contains(t, msg.Body, "1,234.50")
	assert.Contains(t, msg.Body, "9 April 2026")

	_, err = QuoteMessage("archived", quoteEvent())
	assert.Error(t, err)
}

func TestRejectedMessageCarriesReason(t *testing.T) {
	evt := quoteEvent()
	evt.Reason = "Outside service area"
	msg, err := QuoteMessage(notify.KindRejected, evt)
	require.NoError(t, err)
	assert.Contains(t, msg.Body, "Outside service area")
}

func TestNotifyHandlerSendsQuoteEmail(t *testing.T) {
	mailer := &recordingMailer{}
	h := &NotifyHandler{Mailer: mailer, Metrics: jobmetrics.NewMetrics(prometheus.NewRegistry())}
	evt := quoteEvent()
	task, err := notify.NewQuoteNotifyTask(notify.KindSubmitted, evt)
	require.NoError(t, err)

	require.NoError(t, h.HandleQuote(context.Background(), task))
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, evt.ClientID, mailer.sent[0].ClientID)

	mailer.err = errors.New("relay down")
	assert.Error(t, h.HandleQuote(context.Background(), task))
}

func TestNotifyHandlerSkipsRetryOnBadPayload(t *testing.T) {
	h := &NotifyHandler{Mailer: &recordingMailer{}}
	err := h.HandleQuote(context.Background(), asynq.NewTask(notify.TaskQuoteNotify, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	task, err := notify.NewQuoteNotifyTask("archived", quoteEvent())
	require.NoError(t, err)
	assert.ErrorIs(t, h.HandleQuote(context.Background(), task), asynq.SkipRetry)
}

func TestNotifyHandlerSendsInvoiceEmail(t *testing.T) {
	mailer := &recordingMailer{}
	h := &NotifyHandler{Mailer: mailer}
	due := time.Date(2026, 3, 24, 0, 0, 0, 0, time.UTC)
	task, err := notify.NewInvoiceNotifyTask(notify.KindSent, notify.InvoiceEvent{
		InvoiceID: uuid.New(), InvoiceNumber: "INV-2026-0003", ClientID: uuid.New(),
		Total: decimal.RequireFromString("176.06"), DueDate: &due,
	})
	require.NoError(t, err)

	require.NoError(t, h.HandleInvoice(context.Background(), task))
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "Invoice INV-2026-0003", mailer.sent[0].Subject)
	assert.Contains(t, mailer.sent[0].Body, "176.06")
	assert.Contains(t, mailer.sent[0].Body, "24 March 2026")
}

func TestSyncHandlerAcknowledges(t *testing.T) {
	h := &SyncHandler{}
	task, err := notify.NewSyncTask(notify.TaskSyncCRM, notify.SyncPayload{Entity: "quote", ID: uuid.New(), Number: "QT-2026-0001", Action: "approved"})
	require.NoError(t, err)
	assert.NoError(t, h.Handle(context.Background(), task))
	assert.ErrorIs(t, h.Handle(context.Background(), asynq.NewTask(notify.TaskSyncCRM, []byte("nope"))), asynq.SkipRetry)
}

type fakeExpirer struct {
	at    time.Time
	count int
	err   error
}

func (f *fakeExpirer) ExpireDue(_ context.Context, now time.Time) (int, error) {
	f.at = now
	return f.count, f.err
}

func TestQuoteExpiryJob(t *testing.T) {
	now := time.Date(2026, 5, 1, 3, 0, 0, 0, time.UTC)
	expirer := &fakeExpirer{count: 4}
	job := NewQuoteExpiryJob(expirer, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))
	job.clock = func() time.Time { return now }

	require.NoError(t, job.Handle(context.Background(), NewQuoteExpireTask()))
	assert.Equal(t, now, expirer.at)

	expirer.err = errors.New("db down")
	assert.Error(t, job.Handle(context.Background(), NewQuoteExpireTask()))

	var unset *QuoteExpiryJob
	assert.Error(t, unset.Handle(context.Background(), NewQuoteExpireTask()))
}

func TestHealthWithoutInspector(t *testing.T) {
	h := NewHandler(nil, nil)
	rec := httptest.NewRecorder()
	h.health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"queue":"default","pending":0,"failed":0},{"queue":"sync","pending":0,"failed":0}]`, rec.Body.String())
}
