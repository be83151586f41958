package notification

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/wb-go/wbf/dbpg"

	"github.com/dmarkin/timed-notifier/internal/model"
)

var (
	ErrNotificationNotFound = errors.New("notification not found")
	ErrNoNotificationsFound = errors.New("no notifications found")
)

// ListFilter narrows the result of List. Zero values mean "no filter".
type ListFilter struct {
	Statuses    []model.Status
	Timezone    string
	RecipientID string
	Limit       int
	Offset      int
}

// Repository provides methods to interact with the notifications table.
type Repository struct {
	db *dbpg.DB
}

// NewRepository creates a new notification repository.
func NewRepository(db *dbpg.DB) *Repository {
	return &Repository{db: db}
}

// CreateNotification inserts a new notification and returns its ID.
func (r *Repository) CreateNotification(ctx context.Context, n model.Notification) (uuid.UUID, error) {
	query := `
		INSERT INTO notifications (
		    id, recipient_id, content, channel, timezone,
		    created_at, scheduled_time, status, attempt_count, task_id, priority
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id;
    `

	err := r.db.Master.QueryRowContext(
		ctx, query,
		n.ID, n.RecipientID, n.Content, n.Channel, n.Timezone,
		n.CreatedAt, n.ScheduledTime, n.Status, n.AttemptCount, taskIDValue(n.TaskID), n.Priority,
	).Scan(&n.ID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create notification: %w", err)
	}

	return n.ID, nil
}

// GetByID retrieves a notification by its ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (model.Notification, error) {
	query := `
		SELECT id, recipient_id, content, channel, timezone,
		       created_at, scheduled_time, status, attempt_count, task_id, priority
		FROM notifications
		WHERE id = $1;
    `

	var (
		n      model.Notification
		taskID sql.NullString
	)

	err := r.db.Master.QueryRowContext(ctx, query, id).Scan(
		&n.ID, &n.RecipientID, &n.Content, &n.Channel, &n.Timezone,
		&n.CreatedAt, &n.ScheduledTime, &n.Status, &n.AttemptCount, &taskID, &n.Priority,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Notification{}, ErrNotificationNotFound
		}

		return model.Notification{}, fmt.Errorf("failed to get notification: %w", err)
	}

	if taskID.Valid {
		n.TaskID, err = uuid.Parse(taskID.String)
		if err != nil {
			return model.Notification{}, fmt.Errorf("failed to parse task id: %w", err)
		}
	}

	return n, nil
}

// Update replaces the mutable fields of a notification.
func (r *Repository) Update(ctx context.Context, n model.Notification) error {
	query := `
		UPDATE notifications
		SET scheduled_time = $1, status = $2, attempt_count = $3, task_id = $4
		WHERE id = $5;
    `

	res, err := r.db.ExecContext(ctx, query, n.ScheduledTime, n.Status, n.AttemptCount, taskIDValue(n.TaskID), n.ID)
	if err != nil {
		return fmt.Errorf("failed to update notification: %w", err)
	}

	rows, _ := res.RowsAffected()

	if rows == 0 {
		return ErrNotificationNotFound
	}

	return nil
}

// List retrieves notifications matching the filter, newest first.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]model.Notification, error) {
	query := `
		SELECT id, recipient_id, content, channel, timezone,
		       created_at, scheduled_time, status, attempt_count, task_id, priority
		FROM notifications
    `

	var (
		conds []string
		args  []interface{}
	)

	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if len(filter.Statuses) > 0 {
		placeholders := make([]string, 0, len(filter.Statuses))
		for _, s := range filter.Statuses {
			placeholders = append(placeholders, arg(s))
		}
		conds = append(conds, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ", ")))
	}
	if filter.Timezone != "" {
		conds = append(conds, fmt.Sprintf("timezone = %s", arg(filter.Timezone)))
	}
	if filter.RecipientID != "" {
		conds = append(conds, fmt.Sprintf("recipient_id = %s", arg(filter.RecipientID)))
	}

	if len(conds) > 0 {
		query += "WHERE " + strings.Join(conds, " AND ") + "\n"
	}

	query += "ORDER BY created_at DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %s", arg(filter.Limit))
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %s", arg(filter.Offset))
	}

	query += ";"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var notifications []model.Notification
	for rows.Next() {
		var (
			n      model.Notification
			taskID sql.NullString
		)

		if err := rows.Scan(
			&n.ID, &n.RecipientID, &n.Content, &n.Channel, &n.Timezone,
			&n.CreatedAt, &n.ScheduledTime, &n.Status, &n.AttemptCount, &taskID, &n.Priority,
		); err != nil {
			return nil, err
		}

		if taskID.Valid {
			if n.TaskID, err = uuid.Parse(taskID.String); err != nil {
				return nil, fmt.Errorf("failed to parse task id: %w", err)
			}
		}

		notifications = append(notifications, n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate notifications: %w", err)
	}

	if len(notifications) == 0 {
		return nil, ErrNoNotificationsFound
	}

	return notifications, nil
}

// taskIDValue maps the zero UUID to NULL so that a never-enqueued
// notification has no task id on the row.
func taskIDValue(id uuid.UUID) interface{} {
	if id == uuid.Nil {
		return nil
	}
	return id.String()
}
