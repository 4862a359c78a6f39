// internal/models/participant.go
package models

import "time"

// Participant is one volunteer signup on a task.
type Participant struct {
	ID            int64     `json:"id"`
	TaskID        int64     `json:"taskId"`
	SheetID       int64     `json:"sheetId"`
	Name          string    `json:"name"`
	FirstName     string    `json:"firstName,omitempty"`
	LastName      string    `json:"lastName,omitempty"`
	Email         string    `json:"email"`
	SignedUpAt    time.Time `json:"signedUpAt"`
	Reminder1Sent bool      `json:"reminder1Sent"`
	Reminder2Sent bool      `json:"reminder2Sent"`
}
