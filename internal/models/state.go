// internal/models/state.go
package models

import "time"

// RetryEntry is a self-contained snapshot of one pending reschedule
// notification. It carries everything needed to compose and render the
// message because the originating task and signup records may already be
// deleted by the time the entry is drained.
type RetryEntry struct {
	ParticipantName  string    `json:"participantName"`
	ParticipantEmail string    `json:"participantEmail"`
	TaskTitle        string    `json:"taskTitle"`
	OldDate          time.Time `json:"oldDate"`
	NewDate          time.Time `json:"newDate"`
	SheetID          int64     `json:"sheetId"`
	TaskID           int64     `json:"taskId"`
	EnqueuedAt       time.Time `json:"enqueuedAt"`
}

// RateWindow is the persisted hourly counter for one batch pathway.
// Limit 0 means unlimited.
type RateWindow struct {
	Start time.Time `json:"windowStart"`
	Count int       `json:"countSent"`
	Limit int       `json:"limit"`
}

// Stale reports whether the window started an hour or more before now and
// must be reset before any capacity check.
func (w RateWindow) Stale(now time.Time) bool {
	return now.Sub(w.Start) >= time.Hour
}

// RunStats is per-pathway bookkeeping for operator reporting. It is not
// authoritative for rate limiting; the RateWindow is.
type RunStats struct {
	LastRun       time.Time `json:"lastRun"`
	LastSent      time.Time `json:"lastSuccessfulSend"`
	SentLastBatch int       `json:"sentLastBatch"`
}
