// internal/models/template.go
package models

import "time"

// Template is one stored notification template. ID 0 means "not set";
// resolution never loads template id 0. OwnerID 0 marks a shared/system
// template.
type Template struct {
	ID        int64     `json:"id"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	FromName  string    `json:"fromName,omitempty"`
	FromEmail string    `json:"fromEmail,omitempty"`
	OwnerID   int64     `json:"ownerId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// IsZero reports whether the template is the absent value.
func (t Template) IsZero() bool {
	return t.ID == 0
}
