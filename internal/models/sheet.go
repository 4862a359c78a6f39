// internal/models/sheet.go
package models

// Sheet is one signup event. Chair addresses and chair-delivery flags drive
// recipient composition for clear and confirmation sends. TemplateOverrides
// holds the per-sheet template id for each overridable category; a missing
// or zero entry means "no override at this level".
type Sheet struct {
	ID                int64              `json:"id"`
	Title             string             `json:"title"`
	ChairName         string             `json:"chairName,omitempty"`
	ChairEmails       []string           `json:"chairEmails,omitempty"`
	ClearToChair      bool               `json:"clearToChair"`
	ConfirmToChair    bool               `json:"confirmToChair"`
	TemplateOverrides map[Category]int64 `json:"templateOverrides,omitempty"`
}

// Override returns the sheet-level template id for cat, 0 when unset.
func (s Sheet) Override(cat Category) int64 {
	return s.TemplateOverrides[cat]
}
