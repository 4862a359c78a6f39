// internal/notify/ratelimit.go
package notify

import (
	"context"
	"encoding/json"

	"signup-notifier/internal/common/logger"
	"signup-notifier/internal/models"
)

const rateWindowKeyPrefix = "rate_window:"

// RateLimiter gates one batch pathway against its persisted hourly window.
// The reminder and reschedule pathways each own an independent instance;
// they never share window state.
//
// The persisted window is read once per batch (Begin) and every reservation
// increments the in-memory counter, so a single batch can never exceed the
// limit even though it reads the stored count only once. Commit writes the
// batch's sends back additively through a compare-and-swap, which keeps a
// concurrent manual invocation from double-counting.
type RateLimiter struct {
	pathway string
	limit   int
	state   StateStore
	clock   Clock
	logger  logger.Logger

	window   models.RateWindow
	reserved int
	loaded   bool
}

func NewRateLimiter(pathway string, limit int, state StateStore, clock Clock, log logger.Logger) *RateLimiter {
	return &RateLimiter{
		pathway: pathway,
		limit:   limit,
		state:   state,
		clock:   clock,
		logger:  log.WithFields(map[string]interface{}{"component": "rate-limiter", "pathway": pathway}),
	}
}

func (l *RateLimiter) key() string { return rateWindowKeyPrefix + l.pathway }

// Pathway names the batch pathway this limiter guards.
func (l *RateLimiter) Pathway() string { return l.pathway }

// Begin loads the persisted window for this batch run.
func (l *RateLimiter) Begin(ctx context.Context) error {
	w := models.RateWindow{Start: l.clock.Now(), Limit: l.limit}
	if _, err := l.state.GetJSON(ctx, l.key(), &w); err != nil {
		return err
	}
	w.Limit = l.limit
	l.window = w
	l.reserved = 0
	l.loaded = true
	return nil
}

// TryReserve reports whether one more send fits the current window. The
// staleness reset runs before the capacity comparison, so a window filled
// an hour ago opens back up mid-batch.
func (l *RateLimiter) TryReserve() bool {
	now := l.clock.Now()
	if l.window.Stale(now) {
		l.window.Start = now
		l.window.Count = 0
		l.reserved = 0
	}
	if l.limit <= 0 {
		l.reserved++
		return true
	}
	if l.window.Count+l.reserved >= l.limit {
		return false
	}
	l.reserved++
	return true
}

// Remaining returns how many sends the current window still allows, -1 for
// unlimited. Used to bound the retry-queue drain.
func (l *RateLimiter) Remaining() int {
	if l.limit <= 0 {
		return -1
	}
	if l.window.Stale(l.clock.Now()) {
		return l.limit
	}
	left := l.limit - l.window.Count - l.reserved
	if left < 0 {
		return 0
	}
	return left
}

// Commit persists the batch's sends additively. A stale persisted window
// is reset before the count is added.
func (l *RateLimiter) Commit(ctx context.Context, sent int) error {
	if sent < 0 {
		sent = 0
	}
	now := l.clock.Now()

	err := l.state.Update(ctx, l.key(), func(raw []byte) ([]byte, error) {
		w := models.RateWindow{Start: now, Limit: l.limit}
		if raw != nil {
			if err := json.Unmarshal(raw, &w); err != nil {
				// Unreadable state starts a fresh window rather than
				// wedging the pathway.
				w = models.RateWindow{Start: now, Limit: l.limit}
			}
		}
		w.Limit = l.limit
		if w.Stale(now) {
			w.Start = now
			w.Count = 0
		}
		w.Count += sent
		return json.Marshal(w)
	})
	if err != nil {
		return err
	}

	l.logger.Debug("rate window committed", map[string]interface{}{
		"sent": sent, "limit": l.limit,
	})
	return nil
}
