// internal/store/templates.go
package store

import (
	"context"

	"signup-notifier/internal/common/logger"
	"signup-notifier/internal/models"
)

// systemDefaultsKey is the option holding the category -> template id map.
const systemDefaultsKey = "system_default_templates"

// TemplateStore gives read access to template rows and to the persisted map
// of system-default template ids per category.
type TemplateStore struct {
	records *RecordStore
	options *OptionStore
	logger  logger.Logger
}

func NewTemplateStore(records *RecordStore, options *OptionStore, log logger.Logger) *TemplateStore {
	return &TemplateStore{
		records: records,
		options: options,
		logger:  log.WithFields(map[string]interface{}{"component": "template-store"}),
	}
}

// Template loads one template by id. Id 0 and dangling references both come
// back as found=false so resolution falls through the cascade.
func (s *TemplateStore) Template(ctx context.Context, id int64) (models.Template, bool, error) {
	return s.records.Template(ctx, id)
}

// DefaultMap returns the system-default template id per category. A missing
// entry (notably reminder2) is a signal, not an error.
func (s *TemplateStore) DefaultMap(ctx context.Context) (map[models.Category]int64, error) {
	defaults := make(map[models.Category]int64)
	if _, err := s.options.GetJSON(ctx, systemDefaultsKey, &defaults); err != nil {
		return nil, err
	}
	return defaults, nil
}

// SetDefault points the system default for cat at template id.
func (s *TemplateStore) SetDefault(ctx context.Context, cat models.Category, id int64) error {
	defaults, err := s.DefaultMap(ctx)
	if err != nil {
		return err
	}
	defaults[cat] = id
	return s.options.SetJSON(ctx, systemDefaultsKey, defaults)
}

// SeedDefault creates a shared template row and maps cat to it, but only
// when cat has no system default yet. Returns true when a row was created.
func (s *TemplateStore) SeedDefault(ctx context.Context, cat models.Category, subject, body string) (bool, error) {
	defaults, err := s.DefaultMap(ctx)
	if err != nil {
		return false, err
	}
	if defaults[cat] != 0 {
		return false, nil
	}

	id, err := s.records.InsertTemplate(ctx, models.Template{
		Subject: subject,
		Body:    body,
		OwnerID: 0, // shared/system
	})
	if err != nil {
		return false, err
	}

	defaults[cat] = id
	if err := s.options.SetJSON(ctx, systemDefaultsKey, defaults); err != nil {
		return false, err
	}

	s.logger.Info("seeded system default template", map[string]interface{}{
		"category":   cat.String(),
		"templateId": id,
	})
	return true, nil
}
