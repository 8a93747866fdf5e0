package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// Enqueuer is satisfied by *asynq.Client.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// AsyncDispatcher turns events into asynq tasks.
type AsyncDispatcher struct {
	client Enqueuer
	logger *slog.Logger
}

// NewAsyncDispatcher builds a dispatcher on top of an asynq client.
func NewAsyncDispatcher(client Enqueuer, logger *slog.Logger) *AsyncDispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &AsyncDispatcher{client: client, logger: logger}
}

func (d *AsyncDispatcher) QuoteSubmitted(ctx context.Context, evt QuoteEvent) error {
	return d.quote(ctx, KindSubmitted, evt)
}

func (d *AsyncDispatcher) QuoteApproved(ctx context.Context, evt QuoteEvent) error {
	return errors.Join(
		d.quote(ctx, KindApproved, evt),
		d.sync(ctx, TaskSyncCRM, quoteSync(evt, KindApproved)),
		d.sync(ctx, TaskSyncCalendar, quoteSync(evt, KindApproved)),
	)
}

func (d *AsyncDispatcher) QuoteRejected(ctx context.Context, evt QuoteEvent) error {
	return errors.Join(
		d.quote(ctx, KindRejected, evt),
		d.sync(ctx, TaskSyncCRM, quoteSync(evt, KindRejected)),
	)
}

func (d *AsyncDispatcher) QuoteCancelled(ctx context.Context, evt QuoteEvent) error {
	return errors.Join(
		d.quote(ctx, KindCancelled, evt),
		d.sync(ctx, TaskSyncCalendar, quoteSync(evt, KindCancelled)),
	)
}

func (d *AsyncDispatcher) InvoiceSent(ctx context.Context, evt InvoiceEvent) error {
	task, err := NewInvoiceNotifyTask(KindSent, evt)
	if err != nil {
		return err
	}
	return errors.Join(
		d.enqueue(ctx, task, QueueDefault),
		d.sync(ctx, TaskSyncAccounting, SyncPayload{Entity: "invoice", ID: evt.InvoiceID, Number: evt.InvoiceNumber, Action: KindSent}),
	)
}

func quoteSync(evt QuoteEvent, action string) SyncPayload {
	return SyncPayload{Entity: "quote", ID: evt.QuoteID, Number: evt.QuoteNumber, Action: action}
}

func (d *AsyncDispatcher) quote(ctx context.Context, kind string, evt QuoteEvent) error {
	task, err := NewQuoteNotifyTask(kind, evt)
	if err != nil {
		return err
	}
	return d.enqueue(ctx, task, QueueDefault)
}

func (d *AsyncDispatcher) sync(ctx context.Context, taskType string, payload SyncPayload) error {
	task, err := NewSyncTask(taskType, payload)
	if err != nil {
		return err
	}
	return d.enqueue(ctx, task, QueueSync)
}

func (d *AsyncDispatcher) enqueue(ctx context.Context, task *asynq.Task, queue string) error {
	if d == nil || d.client == nil {
		return nil
	}
	info, err := d.client.EnqueueContext(ctx, task, asynq.Queue(queue), asynq.MaxRetry(5), asynq.Timeout(time.Minute))
	if err != nil {
		return fmt.Errorf("notify: enqueue %s: %w", task.Type(), err)
	}
	d.logger.Debug("task enqueued", slog.String("type", task.Type()), slog.String("id", info.ID), slog.String("queue", queue))
	return nil
}
