package notification

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/zjoart/go-invest-ledger/pkg/events"
	"github.com/zjoart/go-invest-ledger/pkg/logger"
	"github.com/zjoart/go-invest-ledger/pkg/metrics"
)

// Queue is the event source the worker drains.
type Queue interface {
	Pop(ctx context.Context, timeout time.Duration) ([]byte, error)
	PushToDLQ(ctx context.Context, data []byte) error
}

type Worker struct {
	Queue      Queue
	Repo       Repository
	MaxRetries int
	Backoff    time.Duration
	PopTimeout time.Duration
}

func NewWorker(queue Queue, repo Repository) *Worker {
	return &Worker{
		Queue:      queue,
		Repo:       repo,
		MaxRetries: 3,
		Backoff:    time.Second,
		PopTimeout: 5 * time.Second,
	}
}

// Start drains the queue in the background until ctx is cancelled. The
// returned channel closes once the loop has exited.
func (w *Worker) Start(ctx context.Context) <-chan struct{} {
	logger.Info("Starting notification worker...")
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.processEvents(ctx)
	}()
	return done
}

func (w *Worker) processEvents(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			logger.Info("Notification worker stopped")
			return
		}

		data, err := w.Queue.Pop(ctx, w.PopTimeout)
		if err != nil {
			if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
				logger.Warn("NotificationWorker: Failed to pop event", logger.WithError(err))
				sleep(ctx, w.Backoff)
			}
			continue
		}

		w.handle(ctx, data)
	}
}

// handle turns one payload into a notification, retrying transient store
// failures and parking anything that cannot be processed.
func (w *Worker) handle(ctx context.Context, data []byte) {
	var event events.LedgerEvent
	if err := json.Unmarshal(data, &event); err != nil {
		logger.Error("NotificationWorker: Failed to unmarshal event", logger.Fields{"error": err.Error(), "data": string(data)})
		w.moveToDLQ(ctx, data)
		return
	}

	n, err := FromEvent(event)
	if err != nil {
		logger.Warn("NotificationWorker: Unprocessable event", logger.Merge(logger.WithError(err), logger.Fields{"event": event.Event}))
		w.moveToDLQ(ctx, data)
		return
	}

	for i := 0; i < w.MaxRetries; i++ {
		err = w.Repo.Create(ctx, n)
		if err == nil {
			metrics.EventsProcessed.WithLabelValues("ok").Inc()
			logger.Debug("NotificationWorker: Successfully processed event", logger.Fields{"event": event.Event, logger.UserIdKey: event.UserID})
			return
		}

		metrics.EventsProcessed.WithLabelValues("retry").Inc()
		logger.Warn("NotificationWorker: Failed to process event, retrying", logger.Fields{
			"event":   event.Event,
			"attempt": i + 1,
			"error":   err.Error(),
		})
		sleep(ctx, time.Duration(i+1)*w.Backoff)
	}

	logger.Error("NotificationWorker: Max retries exhausted, moving to DLQ", logger.Fields{"event": event.Event, logger.UserIdKey: event.UserID})
	w.moveToDLQ(ctx, data)
}

func (w *Worker) moveToDLQ(ctx context.Context, data []byte) {
	metrics.EventsProcessed.WithLabelValues("dead").Inc()
	if err := w.Queue.PushToDLQ(context.WithoutCancel(ctx), data); err != nil {
		logger.Error("NotificationWorker: Failed to push to DLQ", logger.WithError(err))
	}
}

func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
