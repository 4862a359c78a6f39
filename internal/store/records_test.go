// internal/store/records_test.go
package store

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signup-notifier/internal/common/logger"
	"signup-notifier/internal/models"
)

func newRecordStoreTest(t *testing.T) (*RecordStore, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRecordStore(db, logger.NewTestLogger(t)), mock
}

func sheetRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "title", "chair_name", "chair_emails", "clear_to_chair", "confirm_to_chair",
		"tmpl_confirmation", "tmpl_reminder1", "tmpl_reminder2", "tmpl_clear", "tmpl_reschedule",
	})
}

func TestRecordStore_Sheet(t *testing.T) {
	store, mock := newRecordStoreTest(t)

	mock.ExpectQuery(`FROM sheets WHERE id = \$1`).
		WithArgs(int64(10)).
		WillReturnRows(sheetRows().
			AddRow(10, "Bake Sale", "Jo Chair", "chair@example.org, second@example.org",
				true, false, 0, 101, 0, 0, 0))

	sheet, found, err := store.Sheet(context.Background(), 10)

	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Bake Sale", sheet.Title)
	assert.Equal(t, []string{"chair@example.org", "second@example.org"}, sheet.ChairEmails)
	assert.True(t, sheet.ClearToChair)
	assert.False(t, sheet.ConfirmToChair)
	// Zero columns stay absent from the override map.
	assert.Equal(t, map[models.Category]int64{models.CategoryReminder1: 101}, sheet.TemplateOverrides)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordStore_SheetNotFound(t *testing.T) {
	store, mock := newRecordStoreTest(t)

	mock.ExpectQuery(`FROM sheets WHERE id = \$1`).
		WithArgs(int64(99)).
		WillReturnRows(sheetRows())

	_, found, err := store.Sheet(context.Background(), 99)

	require.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordStore_Task(t *testing.T) {
	store, mock := newRecordStoreTest(t)

	date := time.Date(2026, 9, 12, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`FROM tasks WHERE id = \$1`).
		WithArgs(int64(20)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "sheet_id", "title", "task_date",
			"tmpl_confirmation", "tmpl_reminder1", "tmpl_reminder2", "tmpl_clear", "tmpl_reschedule",
		}).AddRow(20, 10, "Setup", date, 201, 0, 0, 0, 0))

	task, found, err := store.Task(context.Background(), 20)

	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, int64(10), task.SheetID)
	assert.Equal(t, "Setup", task.Title)
	assert.True(t, date.Equal(task.Date))
	assert.Equal(t, int64(201), task.Override(models.CategoryConfirmation))
	assert.Equal(t, int64(0), task.Override(models.CategoryClear))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordStore_Template(t *testing.T) {
	store, mock := newRecordStoreTest(t)

	now := time.Now().UTC()
	mock.ExpectQuery(`FROM templates WHERE id = \$1`).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "subject", "body", "from_name", "from_email", "owner_id", "created_at", "updated_at",
		}).AddRow(5, "Subject", "Body", "", "", 0, now, now))

	tmpl, found, err := store.Template(context.Background(), 5)

	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Subject", tmpl.Subject)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordStore_TemplateZeroIDSkipsQuery(t *testing.T) {
	store, mock := newRecordStoreTest(t)

	_, found, err := store.Template(context.Background(), 0)

	require.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordStore_InsertTemplate(t *testing.T) {
	store, mock := newRecordStoreTest(t)

	mock.ExpectQuery(`INSERT INTO templates`).
		WithArgs("Subject", "Body", "", "", int64(0), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))

	id, err := store.InsertTemplate(context.Background(), models.Template{
		Subject: "Subject", Body: "Body",
	})

	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordStore_DueReminders(t *testing.T) {
	tests := []struct {
		name     string
		kind     ReminderKind
		wantFlag string
	}{
		{name: "first reminder pass", kind: FirstReminder, wantFlag: "reminder1_sent"},
		{name: "second reminder pass", kind: SecondReminder, wantFlag: "reminder2_sent"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, mock := newRecordStoreTest(t)
			cutoff := time.Date(2026, 9, 12, 0, 0, 0, 0, time.UTC)
			signedUp := cutoff.Add(-30 * 24 * time.Hour)

			mock.ExpectQuery(`FROM signups s\s+JOIN tasks t ON t\.id = s\.task_id\s+WHERE t\.task_date <= \$1 AND s\.` + tt.wantFlag + ` = FALSE`).
				WithArgs(cutoff).
				WillReturnRows(sqlmock.NewRows([]string{
					"id", "task_id", "sheet_id", "name", "first_name", "last_name", "email",
					"signup_at", "reminder1_sent", "reminder2_sent",
				}).
					AddRow(1, 20, 10, "Pat Jones", "Pat", "Jones", "pat@example.org", signedUp, false, false).
					AddRow(2, 20, 10, "Sam Lee", "Sam", "Lee", "sam@example.org", signedUp, false, false))

			due, err := store.DueReminders(context.Background(), cutoff, tt.kind)

			require.NoError(t, err)
			require.Len(t, due, 2)
			assert.Equal(t, int64(1), due[0].ID)
			assert.Equal(t, "pat@example.org", due[0].Email)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRecordStore_MarkReminderSent(t *testing.T) {
	store, mock := newRecordStoreTest(t)

	mock.ExpectExec(`UPDATE signups SET reminder2_sent = TRUE WHERE id = \$1`).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.MarkReminderSent(context.Background(), 7, SecondReminder)

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSplitAddressList(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{name: "empty", raw: "", want: nil},
		{name: "whitespace only", raw: "  ", want: nil},
		{name: "single", raw: "a@example.org", want: []string{"a@example.org"}},
		{name: "spaces and empties", raw: " a@example.org ,, b@example.org ", want: []string{"a@example.org", "b@example.org"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, splitAddressList(tt.raw))
		})
	}
}
