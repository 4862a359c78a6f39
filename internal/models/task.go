// internal/models/task.go
package models

import "time"

// Task is one signup slot belonging to a sheet.
type Task struct {
	ID                int64              `json:"id"`
	SheetID           int64              `json:"sheetId"`
	Title             string             `json:"title"`
	Date              time.Time          `json:"date"`
	TemplateOverrides map[Category]int64 `json:"templateOverrides,omitempty"`
}

// Override returns the task-level template id for cat, 0 when unset.
func (t Task) Override(cat Category) int64 {
	return t.TemplateOverrides[cat]
}
