package notify

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const (
	// QueueDefault carries notifications.
	QueueDefault = "default"
	// QueueSync carries external system synchronisation.
	QueueSync = "sync"

	TaskQuoteNotify    = "quote:notify"
	TaskInvoiceNotify  = "invoice:notify"
	TaskSyncCRM        = "sync:crm"
	TaskSyncAccounting = "sync:accounting"
	TaskSyncCalendar   = "sync:calendar"
)

// Quote notification kinds.
const (
	KindSubmitted = "submitted"
	KindApproved  = "approved"
	KindRejected  = "rejected"
	KindCancelled = "cancelled"
	KindSent      = "sent"
)

// QuoteNotifyPayload is the body of TaskQuoteNotify.
type QuoteNotifyPayload struct {
	Kind  string     `json:"kind"`
	Quote QuoteEvent `json:"quote"`
}

// InvoiceNotifyPayload is the body of TaskInvoiceNotify.
type InvoiceNotifyPayload struct {
	Kind    string       `json:"kind"`
	Invoice InvoiceEvent `json:"invoice"`
}

// SyncPayload is the body of the sync:* tasks.
type SyncPayload struct {
	Entity string    `json:"entity"`
	ID     uuid.UUID `json:"id"`
	Number string    `json:"number"`
	Action string    `json:"action"`
}

// NewQuoteNotifyTask constructs a quote notification task.
func NewQuoteNotifyTask(kind string, evt QuoteEvent) (*asynq.Task, error) {
	return newTask(TaskQuoteNotify, QuoteNotifyPayload{Kind: kind, Quote: evt})
}

// NewInvoiceNotifyTask constructs an invoice notification task.
func NewInvoiceNotifyTask(kind string, evt InvoiceEvent) (*asynq.Task, error) {
	return newTask(TaskInvoiceNotify, InvoiceNotifyPayload{Kind: kind, Invoice: evt})
}

// NewSyncTask constructs a task for one of the sync:* types.
func NewSyncTask(taskType string, payload SyncPayload) (*asynq.Task, error) {
	return newTask(taskType, payload)
}

func newTask(taskType string, payload any) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(taskType, data), nil
}
