package notification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	"github.com/dmarkin/timed-notifier/internal/metrics"
	"github.com/dmarkin/timed-notifier/internal/model"
	repo "github.com/dmarkin/timed-notifier/internal/repository/notification"
	"github.com/dmarkin/timed-notifier/internal/schedule"
	"github.com/dmarkin/timed-notifier/internal/taskqueue"
	"github.com/dmarkin/timed-notifier/internal/validate"
)

//go:generate mockgen -source=service.go -destination=../../mocks/service/notification/mock.go -package=mocks

type notificationRepository interface {
	CreateNotification(ctx context.Context, n model.Notification) (uuid.UUID, error)
	GetByID(ctx context.Context, id uuid.UUID) (model.Notification, error)
	Update(ctx context.Context, n model.Notification) error
	List(ctx context.Context, filter repo.ListFilter) ([]model.Notification, error)
}

type taskQueue interface {
	Enqueue(ctx context.Context, task taskqueue.Task) (uuid.UUID, error)
	Revoke(ctx context.Context, taskID uuid.UUID) bool
}

type cache interface {
	SetWithRetry(ctx context.Context, strategy retry.Strategy, key string, value interface{}) error
	GetWithRetry(ctx context.Context, strategy retry.Strategy, key string) (string, error)
}

type metricsSource interface {
	Query(q metrics.Query) metrics.Report
}

// ScheduleRequest carries the caller-supplied fields of a schedule call.
// An empty ScheduledTime means "deliver now".
type ScheduleRequest struct {
	RecipientID   string
	Content       string
	Timezone      string
	ScheduledTime string
	Priority      int
	Channel       model.Channel
}

// Service implements the notification delivery lifecycle: scheduling under
// the appropriate-hours policy, forced delivery, cancellation and status
// queries.
type Service struct {
	repo      notificationRepository
	queue     taskQueue
	cache     cache
	metrics   metricsSource
	validator *validate.Validator
	window    schedule.Window
	strategy  retry.Strategy
}

// NewService creates a Service.
func NewService(
	repository notificationRepository,
	queue taskQueue,
	cache cache,
	metricsSource metricsSource,
	validator *validate.Validator,
	window schedule.Window,
	strategy retry.Strategy,
) *Service {
	return &Service{
		repo:      repository,
		queue:     queue,
		cache:     cache,
		metrics:   metricsSource,
		validator: validator,
		window:    window,
		strategy:  strategy,
	}
}

// Schedule validates the request, applies the appropriate-hours policy,
// persists the notification and enqueues its delivery task. The returned
// notification carries the assigned task id.
//
// If enqueueing fails after the row was persisted, the notification stays
// scheduled without a task id and the error is returned; there is no
// cross-store transaction here.
func (s *Service) Schedule(ctx context.Context, req ScheduleRequest) (model.Notification, error) {
	now := time.Now()

	if !req.Channel.Valid() {
		return model.Notification{}, &validate.ValidationError{
			Violations: []string{fmt.Sprintf("unsupported channel: %s", req.Channel)},
		}
	}

	if err := s.validator.Validate(validate.Request{
		RecipientID:   req.RecipientID,
		Content:       req.Content,
		Timezone:      req.Timezone,
		ScheduledTime: req.ScheduledTime,
		Priority:      req.Priority,
	}, now); err != nil {
		return model.Notification{}, err
	}

	loc, err := time.LoadLocation(req.Timezone)
	if err != nil {
		return model.Notification{}, fmt.Errorf("load location: %w", err)
	}

	requested := now
	if req.ScheduledTime != "" {
		requested, err = schedule.ParseInZone(req.ScheduledTime, req.Timezone)
		if err != nil {
			return model.Notification{}, fmt.Errorf("parse scheduled time: %w", err)
		}
	}

	effective := s.window.Next(requested, loc)
	if !effective.Equal(requested) {
		zlog.Logger.Info().
			Time("requested", requested).
			Time("effective", effective).
			Str("timezone", req.Timezone).
			Msg("scheduled time outside appropriate hours, deferred")
	}

	n := model.Notification{
		ID:            uuid.New(),
		RecipientID:   req.RecipientID,
		Content:       req.Content,
		Channel:       req.Channel,
		Timezone:      req.Timezone,
		CreatedAt:     now,
		ScheduledTime: effective,
		Status:        model.StatusScheduled,
		Priority:      req.Priority,
	}

	if _, err := s.repo.CreateNotification(ctx, n); err != nil {
		return model.Notification{}, fmt.Errorf("create notification: %w", err)
	}

	s.cacheStatus(ctx, n.ID, n.Status)

	taskID, err := s.queue.Enqueue(ctx, taskqueue.Task{
		NotificationID: n.ID,
		Channel:        n.Channel,
		ETA:            effective,
		Priority:       schedule.Weight(n.Priority),
	})
	if err != nil {
		zlog.Logger.Error().Err(err).Str("id", n.ID.String()).Msg("failed to enqueue delivery task")
		return n, fmt.Errorf("enqueue delivery task: %w", err)
	}

	n.TaskID = taskID
	if err := s.repo.Update(ctx, n); err != nil {
		return n, fmt.Errorf("store task id: %w", err)
	}

	zlog.Logger.Info().
		Str("id", n.ID.String()).
		Str("task_id", taskID.String()).
		Time("eta", effective).
		Msg("notification scheduled")

	return n, nil
}

// ForceDelivery revokes the pending task of a scheduled notification and
// enqueues an immediate delivery. Only a scheduled notification can be
// forced.
func (s *Service) ForceDelivery(ctx context.Context, id uuid.UUID) (model.Notification, error) {
	n, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return model.Notification{}, fmt.Errorf("get notification: %w", err)
	}

	if n.Status != model.StatusScheduled {
		return model.Notification{}, fmt.Errorf("cannot force delivery with status %s: %w", n.Status, model.ErrInvalidState)
	}

	if !s.queue.Revoke(ctx, n.TaskID) {
		zlog.Logger.Warn().
			Str("id", n.ID.String()).
			Str("task_id", n.TaskID.String()).
			Msg("failed to revoke task, proceeding with immediate delivery anyway")
	}

	if err := n.Transition(model.StatusProcessing); err != nil {
		return model.Notification{}, err
	}
	if err := s.repo.Update(ctx, n); err != nil {
		return model.Notification{}, fmt.Errorf("mark processing: %w", err)
	}

	s.cacheStatus(ctx, n.ID, n.Status)

	taskID, err := s.queue.Enqueue(ctx, taskqueue.Task{
		NotificationID: n.ID,
		Channel:        n.Channel,
		ETA:            time.Now(),
		Priority:       schedule.Weight(n.Priority),
	})
	if err != nil {
		return n, fmt.Errorf("enqueue immediate delivery: %w", err)
	}

	n.TaskID = taskID
	if err := s.repo.Update(ctx, n); err != nil {
		return n, fmt.Errorf("store task id: %w", err)
	}

	zlog.Logger.Info().Str("id", n.ID.String()).Str("task_id", taskID.String()).Msg("forced immediate delivery")

	return n, nil
}

// Cancel revokes the pending task of a scheduled notification and marks it
// cancelled. Revocation is best-effort; the delivery executor's cancelled
// check covers a task that slips through.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (model.Notification, error) {
	n, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return model.Notification{}, fmt.Errorf("get notification: %w", err)
	}

	if n.Status != model.StatusScheduled {
		return model.Notification{}, fmt.Errorf("cannot cancel with status %s: %w", n.Status, model.ErrInvalidState)
	}

	if !s.queue.Revoke(ctx, n.TaskID) {
		zlog.Logger.Warn().
			Str("id", n.ID.String()).
			Str("task_id", n.TaskID.String()).
			Msg("failed to revoke task for cancelled notification")
	}

	if err := n.Transition(model.StatusCancelled); err != nil {
		return model.Notification{}, err
	}
	if err := s.repo.Update(ctx, n); err != nil {
		return model.Notification{}, fmt.Errorf("mark cancelled: %w", err)
	}

	s.cacheStatus(ctx, n.ID, n.Status)

	zlog.Logger.Info().Str("id", n.ID.String()).Msg("notification cancelled")

	return n, nil
}

// Get retrieves a notification by its ID.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (model.Notification, error) {
	n, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return model.Notification{}, fmt.Errorf("get notification: %w", err)
	}

	return n, nil
}

// StatusByID returns the current status, reading through the cache.
func (s *Service) StatusByID(ctx context.Context, id uuid.UUID) (model.Status, error) {
	cached, err := s.cache.GetWithRetry(ctx, s.strategy, statusKey(id))
	if err == nil && cached != "" {
		return model.Status(cached), nil
	}
	if err != nil && !errors.Is(err, redis.Nil) {
		zlog.Logger.Error().Err(err).Str("id", id.String()).Msg("failed to get status from cache")
	}

	n, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return "", fmt.Errorf("get notification status: %w", err)
	}

	s.cacheStatus(ctx, id, n.Status)

	return n.Status, nil
}

// List retrieves notifications matching the filter.
func (s *Service) List(ctx context.Context, filter repo.ListFilter) ([]model.Notification, error) {
	notifications, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}

	return notifications, nil
}

// Metrics returns aggregated delivery metrics. Period bounds the report to
// the trailing window; zero means all time.
func (s *Service) Metrics(serverID string, channel model.Channel, period time.Duration) (metrics.Report, error) {
	if period < 0 {
		return metrics.Report{}, fmt.Errorf("period must be positive")
	}

	return s.metrics.Query(metrics.Query{
		ServerID: serverID,
		Channel:  channel,
		Window:   period,
	}), nil
}

// Window exposes the configured appropriate-hours window for status views.
func (s *Service) Window() schedule.Window {
	return s.window
}

func (s *Service) cacheStatus(ctx context.Context, id uuid.UUID, status model.Status) {
	if err := s.cache.SetWithRetry(ctx, s.strategy, statusKey(id), string(status)); err != nil {
		zlog.Logger.Error().Err(err).Str("id", id.String()).Msg("failed to cache notification status")
	}
}

func statusKey(id uuid.UUID) string {
	return "notification:status:" + id.String()
}
