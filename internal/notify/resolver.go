// internal/notify/resolver.go
package notify

import (
	"context"

	"signup-notifier/internal/common/logger"
	"signup-notifier/internal/models"
)

// TemplateResolver walks the override cascade for a notification category:
// task override, then sheet override, then system default. A second
// reminder that is unconfigured at every level inherits the first
// reminder's resolution, including the first reminder's task and sheet
// overrides.
type TemplateResolver struct {
	templates TemplateSource
	records   RecordSource
	logger    logger.Logger
}

func NewTemplateResolver(templates TemplateSource, records RecordSource, log logger.Logger) *TemplateResolver {
	return &TemplateResolver{
		templates: templates,
		records:   records,
		logger:    log.WithFields(map[string]interface{}{"component": "template-resolver"}),
	}
}

// Resolve returns the concrete template for (cat, sheetID, taskID). found
// is false when nothing resolves anywhere in the cascade; callers treat
// that as "do not send", never as an error.
func (r *TemplateResolver) Resolve(ctx context.Context, cat models.Category, sheetID, taskID int64) (models.Template, bool, error) {
	if !cat.Overridable() {
		return r.ResolveValidation(ctx, cat, 0)
	}

	var (
		task     models.Task
		haveTask bool
		sheet    models.Sheet
		haveSheet bool
		err      error
	)
	if taskID != 0 {
		task, haveTask, err = r.records.Task(ctx, taskID)
		if err != nil {
			return models.Template{}, false, err
		}
	}
	if sheetID != 0 {
		sheet, haveSheet, err = r.records.Sheet(ctx, sheetID)
		if err != nil {
			return models.Template{}, false, err
		}
	}

	tmpl, found, err := r.resolveLevels(ctx, cat, task, haveTask, sheet, haveSheet)
	if err != nil || found {
		return tmpl, found, err
	}

	// A second reminder with no content configured at any level inherits
	// the first reminder's content, task and sheet overrides included.
	if cat == models.CategoryReminder2 {
		return r.resolveLevels(ctx, models.CategoryReminder1, task, haveTask, sheet, haveSheet)
	}

	return models.Template{}, false, nil
}

// ResolveValidation handles the two system-wide categories: an explicit
// caller-supplied override id, then the system default. No task or sheet
// level exists for these.
func (r *TemplateResolver) ResolveValidation(ctx context.Context, cat models.Category, overrideID int64) (models.Template, bool, error) {
	if overrideID != 0 {
		tmpl, found, err := r.templates.Template(ctx, overrideID)
		if err != nil || found {
			return tmpl, found, err
		}
	}
	return r.systemDefault(ctx, cat)
}

// resolveLevels runs the three cascade levels for one category. A non-zero
// override whose template row has been deleted counts as absent and falls
// through.
func (r *TemplateResolver) resolveLevels(ctx context.Context, cat models.Category, task models.Task, haveTask bool, sheet models.Sheet, haveSheet bool) (models.Template, bool, error) {
	if haveTask {
		if id := task.Override(cat); id != 0 {
			tmpl, found, err := r.templates.Template(ctx, id)
			if err != nil || found {
				return tmpl, found, err
			}
			r.logger.Debug("dangling task override", map[string]interface{}{
				"category": cat.String(), "taskId": task.ID, "templateId": id,
			})
		}
	}

	if haveSheet {
		if id := sheet.Override(cat); id != 0 {
			tmpl, found, err := r.templates.Template(ctx, id)
			if err != nil || found {
				return tmpl, found, err
			}
			r.logger.Debug("dangling sheet override", map[string]interface{}{
				"category": cat.String(), "sheetId": sheet.ID, "templateId": id,
			})
		}
	}

	return r.systemDefault(ctx, cat)
}

func (r *TemplateResolver) systemDefault(ctx context.Context, cat models.Category) (models.Template, bool, error) {
	defaults, err := r.templates.DefaultMap(ctx)
	if err != nil {
		return models.Template{}, false, err
	}
	id := defaults[cat]
	if id == 0 {
		return models.Template{}, false, nil
	}
	return r.templates.Template(ctx, id)
}
