// internal/notify/deps.go
package notify

import (
	"context"
	"time"

	"signup-notifier/internal/models"
	"signup-notifier/internal/store"
)

// TemplateSource is the slice of the template store the resolver consumes.
type TemplateSource interface {
	Template(ctx context.Context, id int64) (models.Template, bool, error)
	DefaultMap(ctx context.Context) (map[models.Category]int64, error)
}

// RecordSource is the read-only view over the signup records, plus the two
// writes this engine owns: template seeding happens elsewhere, reminder
// flags are flipped here after a confirmed send.
type RecordSource interface {
	Task(ctx context.Context, id int64) (models.Task, bool, error)
	Sheet(ctx context.Context, id int64) (models.Sheet, bool, error)
	Participant(ctx context.Context, id int64) (models.Participant, bool, error)
	DueReminders(ctx context.Context, cutoff time.Time, kind store.ReminderKind) ([]models.Participant, error)
	MarkReminderSent(ctx context.Context, participantID int64, kind store.ReminderKind) error
}

// StateStore is the persisted key/value interface backing the rate windows,
// the retry queue and run statistics.
type StateStore interface {
	GetJSON(ctx context.Context, key string, out interface{}) (bool, error)
	SetJSON(ctx context.Context, key string, v interface{}) error
	Update(ctx context.Context, key string, fn func(raw []byte) ([]byte, error)) error
	WithLock(ctx context.Context, name string, ttl time.Duration, fn func() error) error
}

// Clock is injected everywhere time matters so tests can steer the window
// arithmetic.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns the wall clock.
func SystemClock() Clock { return systemClock{} }
