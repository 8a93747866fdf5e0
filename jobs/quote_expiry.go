package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/sparkleops/sparkle-ops/internal/jobs"
)

// TaskQuoteExpire sweeps approved quotes past their expiry.
const TaskQuoteExpire = "quote:expire"

// Expirer is satisfied by quotes.Service.
type Expirer interface {
	ExpireDue(ctx context.Context, now time.Time) (int, error)
}

// QuoteExpiryJob runs the hourly expiry sweep.
type QuoteExpiryJob struct {
	Quotes  Expirer
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewQuoteExpiryJob initialises the sweep handler.
func NewQuoteExpiryJob(quotes Expirer, logger *slog.Logger, metrics *jobmetrics.Metrics) *QuoteExpiryJob {
	return &QuoteExpiryJob{
		Quotes:  quotes,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// NewQuoteExpireTask builds the scheduled task.
func NewQuoteExpireTask() *asynq.Task {
	return asynq.NewTask(TaskQuoteExpire, nil, asynq.Queue(QueueDefault))
}

// Handle executes one sweep.
func (j *QuoteExpiryJob) Handle(ctx context.Context, _ *asynq.Task) (err error) {
	if j == nil || j.Quotes == nil {
		return errors.New("quote expiry: handler not configured")
	}
	tracker := j.Metrics.Track(TaskQuoteExpire)
	defer func() { err = tracker.End(err) }()

	now := j.clock()
	expired, err := j.Quotes.ExpireDue(ctx, now)
	if err != nil {
		j.logger().Error("quote expiry sweep failed", slog.Any("error", err))
		return err
	}
	j.Metrics.AddExpired(expired)
	if expired > 0 {
		j.logger().Info("quotes expired", slog.Int("count", expired), slog.Time("as_of", now))
	}
	return nil
}

func (j *QuoteExpiryJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
