// internal/notify/retryqueue.go
package notify

import (
	"context"
	"encoding/json"

	apperrors "signup-notifier/internal/common/errors"
	"signup-notifier/internal/common/logger"
	"signup-notifier/internal/common/metrics"
	"signup-notifier/internal/models"
)

const retryQueueKey = "reschedule_queue"

// RetryQueue is the durable FIFO of pending reschedule notifications. Each
// entry is a self-contained snapshot; once a reschedule flow enqueues, the
// originating records may be deleted and the queue is the only remaining
// record of the intent to notify.
//
// Drains and appends go through the option store's compare-and-swap, so a
// reschedule flow enqueueing while a batch run is mid-drain loses nothing.
type RetryQueue struct {
	state  StateStore
	clock  Clock
	logger logger.Logger
}

func NewRetryQueue(state StateStore, clock Clock, log logger.Logger) *RetryQueue {
	return &RetryQueue{
		state:  state,
		clock:  clock,
		logger: log.WithFields(map[string]interface{}{"component": "retry-queue"}),
	}
}

// Enqueue appends entries to the tail of the persisted queue.
func (q *RetryQueue) Enqueue(ctx context.Context, entries []models.RetryEntry) error {
	if len(entries) == 0 {
		return nil
	}
	now := q.clock.Now()
	for i := range entries {
		if entries[i].EnqueuedAt.IsZero() {
			entries[i].EnqueuedAt = now
		}
	}

	return q.append(ctx, entries)
}

// DrainUpTo atomically removes and returns up to maxCount entries from the
// head of the queue, in stored order; maxCount < 0 means no bound. The
// remainder stays persisted verbatim so later runs resume where this one
// left off.
func (q *RetryQueue) DrainUpTo(ctx context.Context, maxCount int) ([]models.RetryEntry, error) {
	if maxCount == 0 {
		return nil, nil
	}

	var batch []models.RetryEntry
	err := q.state.Update(ctx, retryQueueKey, func(raw []byte) ([]byte, error) {
		queue, err := decodeQueue(raw)
		if err != nil {
			return nil, err
		}

		n := len(queue)
		if maxCount >= 0 && maxCount < n {
			n = maxCount
		}
		batch = queue[:n]
		return json.Marshal(queue[n:])
	})
	if err != nil {
		return nil, err
	}

	q.observeDepth(ctx)
	return batch, nil
}

// Requeue appends entries that failed to send back onto the tail of the
// queue so a later run retries them. Never called twice for the same entry
// within one run.
func (q *RetryQueue) Requeue(ctx context.Context, failed []models.RetryEntry) error {
	if len(failed) == 0 {
		q.observeDepth(ctx)
		return nil
	}
	q.logger.Info("requeueing failed entries", map[string]interface{}{
		"count": len(failed),
	})
	return q.append(ctx, failed)
}

// Depth returns the number of entries currently persisted.
func (q *RetryQueue) Depth(ctx context.Context) (int, error) {
	queue, err := q.Load(ctx)
	if err != nil {
		return 0, err
	}
	return len(queue), nil
}

// Load returns the stored queue without modifying it.
func (q *RetryQueue) Load(ctx context.Context) ([]models.RetryEntry, error) {
	var queue []models.RetryEntry
	if _, err := q.state.GetJSON(ctx, retryQueueKey, &queue); err != nil {
		return nil, err
	}
	return queue, nil
}

func (q *RetryQueue) append(ctx context.Context, entries []models.RetryEntry) error {
	err := q.state.Update(ctx, retryQueueKey, func(raw []byte) ([]byte, error) {
		queue, err := decodeQueue(raw)
		if err != nil {
			return nil, err
		}
		return json.Marshal(append(queue, entries...))
	})
	if err != nil {
		return err
	}
	q.observeDepth(ctx)
	return nil
}

func (q *RetryQueue) observeDepth(ctx context.Context) {
	if depth, err := q.Depth(ctx); err == nil {
		metrics.RetryQueueDepth.Set(float64(depth))
	}
}

func decodeQueue(raw []byte) ([]models.RetryEntry, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var queue []models.RetryEntry
	if err := json.Unmarshal(raw, &queue); err != nil {
		return nil, apperrors.NewQueueCorruptError(err)
	}
	return queue, nil
}
