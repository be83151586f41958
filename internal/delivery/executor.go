// Package delivery performs single delivery attempts for queued tasks and
// drives retry and terminal state transitions.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/wb-go/wbf/zlog"

	"github.com/dmarkin/timed-notifier/internal/model"
	"github.com/dmarkin/timed-notifier/internal/repository/notification"
)

// Deliverer sends a notification over one concrete channel.
type Deliverer interface {
	Deliver(ctx context.Context, n model.Notification) error
}

// Deliverers holds one Deliverer per supported channel. Adding a channel
// means adding a field here and a case in ForChannel, checked at compile
// time rather than through a lookup table.
type Deliverers struct {
	Push  Deliverer
	Email Deliverer
}

// ForChannel returns the Deliverer for the given channel.
func (d Deliverers) ForChannel(ch model.Channel) (Deliverer, error) {
	switch ch {
	case model.ChannelPush:
		return d.Push, nil
	case model.ChannelEmail:
		return d.Email, nil
	default:
		return nil, fmt.Errorf("unsupported channel %q", ch)
	}
}

// Outcome classifies the result of one task execution.
type Outcome string

const (
	OutcomeDelivered      Outcome = "delivered"
	OutcomeSkipped        Outcome = "skipped"
	OutcomeRetryScheduled Outcome = "retry_scheduled"
	OutcomeFailed         Outcome = "failed"
)

// RetryDecision tells the caller whether to re-enqueue the task and after
// what delay. Retry is an ordinary return value here, not an error path.
type RetryDecision struct {
	Retry bool
	Delay time.Duration
}

// Result is the outcome of one execution together with its retry decision.
type Result struct {
	Outcome Outcome
	Retry   RetryDecision
}

//go:generate mockgen -source=executor.go -destination=../mocks/delivery/mock.go -package=mocks

type notificationRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (model.Notification, error)
	Update(ctx context.Context, n model.Notification) error
}

type metricsSink interface {
	Record(serverID string, channel model.Channel, status string)
}

// Executor performs delivery attempts. The worker identity is injected at
// construction and tags every recorded metric.
type Executor struct {
	repo       notificationRepository
	deliverers Deliverers
	metrics    metricsSink

	serverID    string
	maxAttempts int
	retryDelay  time.Duration
}

// NewExecutor creates an Executor.
func NewExecutor(
	repo notificationRepository,
	deliverers Deliverers,
	metrics metricsSink,
	serverID string,
	maxAttempts int,
	retryDelay time.Duration,
) *Executor {
	return &Executor{
		repo:        repo,
		deliverers:  deliverers,
		metrics:     metrics,
		serverID:    serverID,
		maxAttempts: maxAttempts,
		retryDelay:  retryDelay,
	}
}

// Execute runs one delivery attempt for the notification. The cancelled
// check right before any side effect is the idempotency barrier that
// absorbs revocation races: a stale task arriving after a cancel is
// acknowledged as skipped, never as a failure.
func (e *Executor) Execute(ctx context.Context, notificationID uuid.UUID) (Result, error) {
	n, err := e.repo.GetByID(ctx, notificationID)
	if err != nil {
		if errors.Is(err, notification.ErrNotificationNotFound) {
			zlog.Logger.Error().Str("id", notificationID.String()).Msg("notification not found, dropping task")
			return Result{Outcome: OutcomeFailed}, fmt.Errorf("notification %s vanished: %w", notificationID, err)
		}

		return Result{Outcome: OutcomeFailed}, fmt.Errorf("load notification: %w", err)
	}

	switch n.Status {
	case model.StatusCancelled:
		zlog.Logger.Info().Str("id", n.ID.String()).Msg("notification cancelled, skipping delivery")
		return Result{Outcome: OutcomeSkipped}, nil
	case model.StatusDelivered, model.StatusFailed:
		// Stale duplicate of an already-settled task.
		zlog.Logger.Warn().Str("id", n.ID.String()).Str("status", string(n.Status)).Msg("notification already settled, skipping")
		return Result{Outcome: OutcomeSkipped}, nil
	case model.StatusScheduled:
		if err := n.Transition(model.StatusProcessing); err != nil {
			return Result{Outcome: OutcomeFailed}, err
		}
		if err := e.repo.Update(ctx, n); err != nil {
			return Result{Outcome: OutcomeFailed}, fmt.Errorf("mark processing: %w", err)
		}
	case model.StatusProcessing:
		// Forced delivery marks the row before enqueueing; proceed as is.
	}

	deliverer, err := e.deliverers.ForChannel(n.Channel)
	if err != nil {
		e.metrics.Record(e.serverID, n.Channel, string(OutcomeFailed))
		return e.fail(ctx, n, err)
	}

	if err := deliverer.Deliver(ctx, n); err != nil {
		return e.handleFailure(ctx, n, err)
	}

	if err := n.Transition(model.StatusDelivered); err != nil {
		return Result{Outcome: OutcomeFailed}, err
	}
	if err := e.repo.Update(ctx, n); err != nil {
		return Result{Outcome: OutcomeFailed}, fmt.Errorf("mark delivered: %w", err)
	}

	e.metrics.Record(e.serverID, n.Channel, string(OutcomeDelivered))
	zlog.Logger.Info().Str("id", n.ID.String()).Str("channel", string(n.Channel)).Msg("notification delivered")

	return Result{Outcome: OutcomeDelivered}, nil
}

// handleFailure counts the failed attempt and decides between a fixed-delay
// retry and a terminal failure.
func (e *Executor) handleFailure(ctx context.Context, n model.Notification, cause error) (Result, error) {
	n.AttemptCount++
	e.metrics.Record(e.serverID, n.Channel, string(OutcomeFailed))

	zlog.Logger.Error().
		Err(cause).
		Str("id", n.ID.String()).
		Int("attempt", n.AttemptCount).
		Msg("delivery attempt failed")

	if n.AttemptCount < e.maxAttempts {
		// Re-arm for the retry so that a cancel landing between attempts
		// still finds the notification in a cancellable state.
		n.Status = model.StatusScheduled
		if err := e.repo.Update(ctx, n); err != nil {
			return Result{Outcome: OutcomeFailed}, fmt.Errorf("persist attempt count: %w", err)
		}

		return Result{
			Outcome: OutcomeRetryScheduled,
			Retry:   RetryDecision{Retry: true, Delay: e.retryDelay},
		}, nil
	}

	return e.fail(ctx, n, cause)
}

func (e *Executor) fail(ctx context.Context, n model.Notification, cause error) (Result, error) {
	if err := n.Transition(model.StatusFailed); err != nil {
		return Result{Outcome: OutcomeFailed}, err
	}
	if err := e.repo.Update(ctx, n); err != nil {
		return Result{Outcome: OutcomeFailed}, fmt.Errorf("mark failed: %w", err)
	}

	zlog.Logger.Error().Err(cause).Str("id", n.ID.String()).Msg("notification failed terminally")

	return Result{Outcome: OutcomeFailed}, nil
}
