// internal/notify/helpers_test.go
package notify

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	apperrors "signup-notifier/internal/common/errors"
	"signup-notifier/internal/models"
	"signup-notifier/internal/store"
)

// ==========================
// Mock Implementations
// ==========================

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// memState is an in-memory StateStore with the same semantics as the
// Redis-backed option store: JSON values, atomic read-modify-write,
// single-holder locks.
type memState struct {
	mu     sync.Mutex
	values map[string][]byte
	locks  map[string]bool
}

func newMemState() *memState {
	return &memState{
		values: make(map[string][]byte),
		locks:  make(map[string]bool),
	}
}

func (m *memState) GetJSON(ctx context.Context, key string, out interface{}) (bool, error) {
	m.mu.Lock()
	raw, ok := m.values[key]
	m.mu.Unlock()
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, out)
}

func (m *memState) SetJSON(ctx context.Context, key string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.values[key] = raw
	m.mu.Unlock()
	return nil
}

func (m *memState) Update(ctx context.Context, key string, fn func(raw []byte) ([]byte, error)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	next, err := fn(m.values[key])
	if err != nil {
		return err
	}
	m.values[key] = next
	return nil
}

func (m *memState) WithLock(ctx context.Context, name string, ttl time.Duration, fn func() error) error {
	m.mu.Lock()
	if m.locks[name] {
		m.mu.Unlock()
		return apperrors.NewLockHeldError(name)
	}
	m.locks[name] = true
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		delete(m.locks, name)
		m.mu.Unlock()
	}()
	return fn()
}

// fakeTemplates backs TemplateSource with maps.
type fakeTemplates struct {
	templates map[int64]models.Template
	defaults  map[models.Category]int64
}

func newFakeTemplates() *fakeTemplates {
	return &fakeTemplates{
		templates: make(map[int64]models.Template),
		defaults:  make(map[models.Category]int64),
	}
}

func (f *fakeTemplates) add(t models.Template) {
	f.templates[t.ID] = t
}

func (f *fakeTemplates) setDefault(cat models.Category, id int64) {
	f.defaults[cat] = id
}

func (f *fakeTemplates) Template(ctx context.Context, id int64) (models.Template, bool, error) {
	t, ok := f.templates[id]
	return t, ok, nil
}

func (f *fakeTemplates) DefaultMap(ctx context.Context) (map[models.Category]int64, error) {
	return f.defaults, nil
}

// fakeRecords backs RecordSource with maps.
type fakeRecords struct {
	tasks        map[int64]models.Task
	sheets       map[int64]models.Sheet
	participants map[int64]models.Participant
	due          map[store.ReminderKind][]models.Participant
	marked       map[store.ReminderKind][]int64
}

func newFakeRecords() *fakeRecords {
	return &fakeRecords{
		tasks:        make(map[int64]models.Task),
		sheets:       make(map[int64]models.Sheet),
		participants: make(map[int64]models.Participant),
		due:          make(map[store.ReminderKind][]models.Participant),
		marked:       make(map[store.ReminderKind][]int64),
	}
}

func (f *fakeRecords) Task(ctx context.Context, id int64) (models.Task, bool, error) {
	t, ok := f.tasks[id]
	return t, ok, nil
}

func (f *fakeRecords) Sheet(ctx context.Context, id int64) (models.Sheet, bool, error) {
	s, ok := f.sheets[id]
	return s, ok, nil
}

func (f *fakeRecords) Participant(ctx context.Context, id int64) (models.Participant, bool, error) {
	p, ok := f.participants[id]
	return p, ok, nil
}

func (f *fakeRecords) DueReminders(ctx context.Context, cutoff time.Time, kind store.ReminderKind) ([]models.Participant, error) {
	return f.due[kind], nil
}

func (f *fakeRecords) MarkReminderSent(ctx context.Context, participantID int64, kind store.ReminderKind) error {
	f.marked[kind] = append(f.marked[kind], participantID)
	return nil
}
