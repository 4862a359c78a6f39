// internal/store/records.go
package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	apperrors "signup-notifier/internal/common/errors"
	"signup-notifier/internal/common/logger"
	"signup-notifier/internal/models"
)

// ReminderKind selects which reminder pass DueReminders serves.
type ReminderKind int

const (
	FirstReminder ReminderKind = iota + 1
	SecondReminder
)

// RecordStore is the read-mostly view over the signup database: sheets,
// tasks, signups and template rows. Everything except template inserts and
// the reminder-sent flags is consumed read-only by this engine.
type RecordStore struct {
	db     *sql.DB
	logger logger.Logger
}

func NewRecordStore(db *sql.DB, log logger.Logger) *RecordStore {
	return &RecordStore{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "record-store"}),
	}
}

const sheetColumns = `id, title, chair_name, chair_emails, clear_to_chair, confirm_to_chair,
	tmpl_confirmation, tmpl_reminder1, tmpl_reminder2, tmpl_clear, tmpl_reschedule`

// Sheet loads one sheet by id. found is false for unknown ids.
func (s *RecordStore) Sheet(ctx context.Context, id int64) (models.Sheet, bool, error) {
	var (
		sheet       models.Sheet
		chairEmails string
		overrides   = make([]int64, 5)
	)

	row := s.db.QueryRowContext(ctx,
		`SELECT `+sheetColumns+` FROM sheets WHERE id = $1`, id)
	err := row.Scan(&sheet.ID, &sheet.Title, &sheet.ChairName, &chairEmails,
		&sheet.ClearToChair, &sheet.ConfirmToChair,
		&overrides[0], &overrides[1], &overrides[2], &overrides[3], &overrides[4])
	if err == sql.ErrNoRows {
		return models.Sheet{}, false, nil
	}
	if err != nil {
		return models.Sheet{}, false, apperrors.NewRecordStoreError("sheet", err)
	}

	sheet.ChairEmails = splitAddressList(chairEmails)
	sheet.TemplateOverrides = overrideMap(overrides)
	return sheet, true, nil
}

// Task loads one task by id. found is false for unknown ids.
func (s *RecordStore) Task(ctx context.Context, id int64) (models.Task, bool, error) {
	var (
		task      models.Task
		overrides = make([]int64, 5)
	)

	row := s.db.QueryRowContext(ctx,
		`SELECT id, sheet_id, title, task_date,
			tmpl_confirmation, tmpl_reminder1, tmpl_reminder2, tmpl_clear, tmpl_reschedule
		FROM tasks WHERE id = $1`, id)
	err := row.Scan(&task.ID, &task.SheetID, &task.Title, &task.Date,
		&overrides[0], &overrides[1], &overrides[2], &overrides[3], &overrides[4])
	if err == sql.ErrNoRows {
		return models.Task{}, false, nil
	}
	if err != nil {
		return models.Task{}, false, apperrors.NewRecordStoreError("task", err)
	}

	task.TemplateOverrides = overrideMap(overrides)
	return task, true, nil
}

// Participant loads one signup by id. found is false for unknown ids.
func (s *RecordStore) Participant(ctx context.Context, id int64) (models.Participant, bool, error) {
	var p models.Participant

	row := s.db.QueryRowContext(ctx,
		`SELECT id, task_id, sheet_id, name, first_name, last_name, email,
			signup_at, reminder1_sent, reminder2_sent
		FROM signups WHERE id = $1`, id)
	err := row.Scan(&p.ID, &p.TaskID, &p.SheetID, &p.Name, &p.FirstName,
		&p.LastName, &p.Email, &p.SignedUpAt, &p.Reminder1Sent, &p.Reminder2Sent)
	if err == sql.ErrNoRows {
		return models.Participant{}, false, nil
	}
	if err != nil {
		return models.Participant{}, false, apperrors.NewRecordStoreError("participant", err)
	}
	return p, true, nil
}

// Template loads one template row by id. Id 0 is the absent value and is
// never queried.
func (s *RecordStore) Template(ctx context.Context, id int64) (models.Template, bool, error) {
	if id == 0 {
		return models.Template{}, false, nil
	}

	var t models.Template
	row := s.db.QueryRowContext(ctx,
		`SELECT id, subject, body, from_name, from_email, owner_id, created_at, updated_at
		FROM templates WHERE id = $1`, id)
	err := row.Scan(&t.ID, &t.Subject, &t.Body, &t.FromName, &t.FromEmail,
		&t.OwnerID, &t.CreatedAt, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return models.Template{}, false, nil
	}
	if err != nil {
		return models.Template{}, false, apperrors.NewRecordStoreError("template", err)
	}
	return t, true, nil
}

// InsertTemplate creates a template row and returns its id. Used by the
// one-time seeding of system defaults.
func (s *RecordStore) InsertTemplate(ctx context.Context, t models.Template) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO templates (subject, body, from_name, from_email, owner_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6) RETURNING id`,
		t.Subject, t.Body, t.FromName, t.FromEmail, t.OwnerID, time.Now().UTC()).Scan(&id)
	if err != nil {
		return 0, apperrors.NewRecordStoreError("insert-template", err)
	}
	return id, nil
}

// DueReminders returns signups whose task starts at or before the cutoff
// and whose reminder flag for kind has not been set, in stable id order.
func (s *RecordStore) DueReminders(ctx context.Context, cutoff time.Time, kind ReminderKind) ([]models.Participant, error) {
	flag := "reminder1_sent"
	if kind == SecondReminder {
		flag = "reminder2_sent"
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT s.id, s.task_id, s.sheet_id, s.name, s.first_name, s.last_name, s.email,
			s.signup_at, s.reminder1_sent, s.reminder2_sent
		FROM signups s
		JOIN tasks t ON t.id = s.task_id
		WHERE t.task_date <= $1 AND s.`+flag+` = FALSE
		ORDER BY s.id`, cutoff)
	if err != nil {
		return nil, apperrors.NewRecordStoreError("due-reminders", err)
	}
	defer rows.Close()

	var due []models.Participant
	for rows.Next() {
		var p models.Participant
		if err := rows.Scan(&p.ID, &p.TaskID, &p.SheetID, &p.Name, &p.FirstName,
			&p.LastName, &p.Email, &p.SignedUpAt, &p.Reminder1Sent, &p.Reminder2Sent); err != nil {
			return nil, apperrors.NewRecordStoreError("due-reminders", err)
		}
		due = append(due, p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewRecordStoreError("due-reminders", err)
	}
	return due, nil
}

// MarkReminderSent flips the sent flag for kind on one signup.
func (s *RecordStore) MarkReminderSent(ctx context.Context, participantID int64, kind ReminderKind) error {
	flag := "reminder1_sent"
	if kind == SecondReminder {
		flag = "reminder2_sent"
	}

	_, err := s.db.ExecContext(ctx,
		`UPDATE signups SET `+flag+` = TRUE WHERE id = $1`, participantID)
	if err != nil {
		return apperrors.NewRecordStoreError("mark-reminder", err)
	}
	return nil
}

// overrideMap builds the category override map out of the five template-id
// columns, skipping zeros so absence stays absent.
func overrideMap(ids []int64) map[models.Category]int64 {
	m := make(map[models.Category]int64, len(ids))
	for i, cat := range models.OverridableCategories {
		if ids[i] != 0 {
			m[cat] = ids[i]
		}
	}
	return m
}

// splitAddressList parses the comma-separated chair_emails column.
func splitAddressList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
