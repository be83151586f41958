package notification

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/wb-go/wbf/dbpg"

	"github.com/dmarkin/timed-notifier/internal/model"
)

func setupMockDB(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open mock db: %v", err)
	}

	wrappedDB := &dbpg.DB{Master: db}
	repo := NewRepository(wrappedDB)

	return repo, mock
}

func sampleNotification() model.Notification {
	return model.Notification{
		ID:            uuid.New(),
		RecipientID:   "user-42",
		Content:       "Your order has shipped",
		Channel:       model.ChannelEmail,
		Timezone:      "Europe/Moscow",
		CreatedAt:     time.Now(),
		ScheduledTime: time.Now().Add(time.Hour),
		Status:        model.StatusScheduled,
		AttemptCount:  0,
		Priority:      5,
	}
}

func TestCreateNotification(t *testing.T) {
	repo, mock := setupMockDB(t)

	n := sampleNotification()

	mock.ExpectQuery(regexp.QuoteMeta(`
		INSERT INTO notifications (
		    id, recipient_id, content, channel, timezone,
		    created_at, scheduled_time, status, attempt_count, task_id, priority
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id;
    `)).
		WithArgs(
			n.ID, n.RecipientID, n.Content, string(n.Channel), n.Timezone,
			n.CreatedAt, n.ScheduledTime, string(n.Status), n.AttemptCount, nil, n.Priority,
		).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(n.ID))

	id, err := repo.CreateNotification(context.Background(), n)
	assert.NoError(t, err)
	assert.Equal(t, n.ID, id)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByID(t *testing.T) {
	repo, mock := setupMockDB(t)

	n := sampleNotification()
	taskID := uuid.New()

	rows := sqlmock.NewRows([]string{
		"id", "recipient_id", "content", "channel", "timezone",
		"created_at", "scheduled_time", "status", "attempt_count", "task_id", "priority",
	}).AddRow(
		n.ID, n.RecipientID, n.Content, string(n.Channel), n.Timezone,
		n.CreatedAt, n.ScheduledTime, string(n.Status), n.AttemptCount, taskID.String(), n.Priority,
	)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, recipient_id, content, channel, timezone,`)).
		WithArgs(n.ID).
		WillReturnRows(rows)

	got, err := repo.GetByID(context.Background(), n.ID)
	assert.NoError(t, err)
	assert.Equal(t, n.ID, got.ID)
	assert.Equal(t, taskID, got.TaskID)
	assert.Equal(t, model.StatusScheduled, got.Status)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByID_NotFound(t *testing.T) {
	repo, mock := setupMockDB(t)

	id := uuid.New()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, recipient_id, content, channel, timezone,`)).
		WithArgs(id).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), id)
	assert.ErrorIs(t, err, ErrNotificationNotFound)
}

func TestUpdate(t *testing.T) {
	repo, mock := setupMockDB(t)

	n := sampleNotification()
	n.Status = model.StatusProcessing
	n.TaskID = uuid.New()

	mock.ExpectExec(regexp.QuoteMeta(`
		UPDATE notifications
		SET scheduled_time = $1, status = $2, attempt_count = $3, task_id = $4
		WHERE id = $5;
    `)).
		WithArgs(n.ScheduledTime, string(n.Status), n.AttemptCount, n.TaskID.String(), n.ID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Update(context.Background(), n)
	assert.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdate_NotFound(t *testing.T) {
	repo, mock := setupMockDB(t)

	n := sampleNotification()

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE notifications`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), n)
	assert.ErrorIs(t, err, ErrNotificationNotFound)
}

func TestList_WithFilters(t *testing.T) {
	repo, mock := setupMockDB(t)

	n := sampleNotification()

	rows := sqlmock.NewRows([]string{
		"id", "recipient_id", "content", "channel", "timezone",
		"created_at", "scheduled_time", "status", "attempt_count", "task_id", "priority",
	}).AddRow(
		n.ID, n.RecipientID, n.Content, string(n.Channel), n.Timezone,
		n.CreatedAt, n.ScheduledTime, string(n.Status), n.AttemptCount, nil, n.Priority,
	)

	mock.ExpectQuery(`SELECT id, recipient_id, content, channel, timezone,`).
		WithArgs(string(model.StatusScheduled), "user-42", 10).
		WillReturnRows(rows)

	got, err := repo.List(context.Background(), ListFilter{
		Statuses:    []model.Status{model.StatusScheduled},
		RecipientID: "user-42",
		Limit:       10,
	})
	assert.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, uuid.Nil, got[0].TaskID)
}

func TestList_IterationError(t *testing.T) {
	repo, mock := setupMockDB(t)

	n := sampleNotification()

	rows := sqlmock.NewRows([]string{
		"id", "recipient_id", "content", "channel", "timezone",
		"created_at", "scheduled_time", "status", "attempt_count", "task_id", "priority",
	}).AddRow(
		n.ID, n.RecipientID, n.Content, string(n.Channel), n.Timezone,
		n.CreatedAt, n.ScheduledTime, string(n.Status), n.AttemptCount, nil, n.Priority,
	).RowError(0, sql.ErrConnDone)

	mock.ExpectQuery(`SELECT id, recipient_id, content, channel, timezone,`).
		WillReturnRows(rows)

	_, err := repo.List(context.Background(), ListFilter{})
	assert.ErrorIs(t, err, sql.ErrConnDone, "a broken iteration must not look like an empty result")
	assert.NotErrorIs(t, err, ErrNoNotificationsFound)
}

func TestList_Empty(t *testing.T) {
	repo, mock := setupMockDB(t)

	rows := sqlmock.NewRows([]string{
		"id", "recipient_id", "content", "channel", "timezone",
		"created_at", "scheduled_time", "status", "attempt_count", "task_id", "priority",
	})

	mock.ExpectQuery(`SELECT id, recipient_id, content, channel, timezone,`).
		WillReturnRows(rows)

	_, err := repo.List(context.Background(), ListFilter{})
	assert.ErrorIs(t, err, ErrNoNotificationsFound)
}
