package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingEnqueuer struct {
	tasks []*asynq.Task
	fail  map[string]bool
}

func (r *recordingEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	if r.fail[task.Type()] {
		return nil, errors.New("redis down")
	}
	r.tasks = append(r.tasks, task)
	return &asynq.TaskInfo{ID: uuid.NewString(), Type: task.Type()}, nil
}

func (r *recordingEnqueuer) types() []string {
	out := make([]string, 0, len(r.tasks))
	for _, t := range r.tasks {
		out = append(out, t.Type())
	}
	return out
}

func sampleQuote() QuoteEvent {
	return QuoteEvent{
		QuoteID:     uuid.New(),
		QuoteNumber: "QT-2026-0007",
		ClientID:    uuid.New(),
		Status:      "approved",
		FinalPrice:  decimal.RequireFromString("159.50"),
	}
}

func TestQuoteApprovedEnqueuesNotificationAndSync(t *testing.T) {
	enq := &recordingEnqueuer{}
	d := NewAsyncDispatcher(enq, nil)

	require.NoError(t, d.QuoteApproved(context.Background(), sampleQuote()))
	assert.Equal(t, []string{TaskQuoteNotify, TaskSyncCRM, TaskSyncCalendar}, enq.types())

	var payload QuoteNotifyPayload
	require.NoError(t, json.Unmarshal(enq.tasks[0].Payload(), &payload))
	assert.Equal(t, KindApproved, payload.Kind)
	assert.Equal(t, "QT-2026-0007", payload.Quote.QuoteNumber)
	assert.True(t, payload.Quote.FinalPrice.Equal(decimal.RequireFromString("159.5")))
}

func TestInvoiceSentSyncsAccounting(t *testing.T) {
	enq := &recordingEnqueuer{}
	d := NewAsyncDispatcher(enq, nil)

	evt := InvoiceEvent{InvoiceID: uuid.New(), InvoiceNumber: "INV-2026-0001", Total: decimal.NewFromInt(10)}
	require.NoError(t, d.InvoiceSent(context.Background(), evt))
	assert.Equal(t, []string{TaskInvoiceNotify, TaskSyncAccounting}, enq.types())

	var sync SyncPayload
	require.NoError(t, json.Unmarshal(enq.tasks[1].Payload(), &sync))
	assert.Equal(t, "invoice", sync.Entity)
	assert.Equal(t, evt.InvoiceID, sync.ID)
}

func TestEnqueueFailureIsReportedButOthersStillRun(t *testing.T) {
	enq := &recordingEnqueuer{fail: map[string]bool{TaskSyncCRM: true}}
	d := NewAsyncDispatcher(enq, nil)

	err := d.QuoteRejected(context.Background(), sampleQuote())
	require.Error(t, err)
	assert.Contains(t, err.Error(), TaskSyncCRM)
	assert.Equal(t, []string{TaskQuoteNotify}, enq.types())
}

func TestNilClientIsNoop(t *testing.T) {
	d := NewAsyncDispatcher(nil, nil)
	assert.NoError(t, d.QuoteSubmitted(context.Background(), sampleQuote()))
}
