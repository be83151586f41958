// Package taskqueue implements the delivery task queue on RabbitMQ.
//
// Tasks carry an absolute ETA. Future tasks are parked in a wait queue with
// a per-message TTL and dead-letter into the main queue when due; due tasks
// go straight to the main queue. Expired messages dead-letter only from the
// head of the wait queue, so a single park never exceeds maxParkDelay and
// the consumer re-parks any task that surfaces before its ETA. The main
// queue is priority-ordered, so execution order across notifications
// follows task priority, not FIFO.
package taskqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	"github.com/dmarkin/timed-notifier/internal/model"
)

const (
	ExchangeName  = "notify-exchange"
	MainQueueName = "notify-tasks"
	WaitQueueName = "notify-wait"
	RoutingKey    = "notify"

	maxQueuePriority = 100
	revokedKeyPrefix = "revoked:"
	revokedMark      = "1"

	// maxParkDelay bounds a single stay in the wait queue. A far-future
	// task cycles through the wait queue in chunks of this size instead
	// of holding one long TTL that would block shorter-TTL messages
	// queued behind it.
	maxParkDelay = time.Minute
)

// Task is one queued delivery execution for a notification.
//
// Retries reuse the ID of the original task so that a revocation mark set
// against the task also covers its re-executions.
type Task struct {
	ID             uuid.UUID     `json:"id"`
	NotificationID uuid.UUID     `json:"notification_id"`
	Channel        model.Channel `json:"channel"`
	ETA            time.Time     `json:"eta"`
	Priority       int           `json:"priority"`
}

type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp091.Table) (<-chan amqp091.Delivery, error)
}

type revocationStore interface {
	SetWithRetry(ctx context.Context, strategy retry.Strategy, key string, value interface{}) error
	GetWithRetry(ctx context.Context, strategy retry.Strategy, key string) (string, error)
}

// Queue publishes and consumes delivery tasks.
type Queue struct {
	ch       amqpChannel
	revoked  revocationStore
	strategy retry.Strategy
}

// NewQueue creates a Queue over an open AMQP channel and a revocation
// mark store.
func NewQueue(ch amqpChannel, revoked revocationStore, strategy retry.Strategy) *Queue {
	return &Queue{ch: ch, revoked: revoked, strategy: strategy}
}

// Declare sets up the exchange and queue topology. Call once at startup.
func Declare(ch *amqp091.Channel) error {
	if err := ch.ExchangeDeclare(ExchangeName, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	mainArgs := amqp091.Table{
		"x-max-priority": int32(maxQueuePriority),
	}

	mainQ, err := ch.QueueDeclare(MainQueueName, true, false, false, false, mainArgs)
	if err != nil {
		return fmt.Errorf("failed to declare main queue: %w", err)
	}

	waitArgs := amqp091.Table{
		"x-dead-letter-exchange":    ExchangeName,
		"x-dead-letter-routing-key": RoutingKey,
	}

	if _, err := ch.QueueDeclare(WaitQueueName, true, false, false, false, waitArgs); err != nil {
		return fmt.Errorf("failed to declare wait queue: %w", err)
	}

	if err := ch.QueueBind(mainQ.Name, RoutingKey, ExchangeName, false, nil); err != nil {
		return fmt.Errorf("failed to bind main queue: %w", err)
	}

	return nil
}

// Enqueue publishes a delivery task and returns its task ID. A task with an
// ETA in the future is parked in the wait queue; parks longer than
// maxParkDelay are split across successive stays, with Consume re-parking
// the task until its ETA arrives.
func (q *Queue) Enqueue(ctx context.Context, task Task) (uuid.UUID, error) {
	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}

	body, err := json.Marshal(task)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to marshal task: %w", err)
	}

	msg := amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		MessageId:    task.ID.String(),
		Timestamp:    time.Now(),
		Priority:     uint8(clampPriority(task.Priority)),
		Body:         body,
	}

	delay := time.Until(task.ETA)
	if delay > 0 {
		if delay > maxParkDelay {
			delay = maxParkDelay
		}
		msg.Expiration = strconv.FormatInt(delay.Milliseconds(), 10)

		// Default exchange routes by queue name straight into the wait queue.
		if err := q.ch.PublishWithContext(ctx, "", WaitQueueName, false, false, msg); err != nil {
			return uuid.Nil, fmt.Errorf("failed to publish delayed task: %w", err)
		}

		return task.ID, nil
	}

	if err := q.ch.PublishWithContext(ctx, ExchangeName, RoutingKey, false, false, msg); err != nil {
		return uuid.Nil, fmt.Errorf("failed to publish task: %w", err)
	}

	return task.ID, nil
}

// Revoke marks a not-yet-executed task as revoked. The mark is advisory:
// a task that already fired is unaffected, and the delivery executor's
// cancelled-status check remains the real correctness barrier. Revoke
// never fails hard; an error only yields false.
func (q *Queue) Revoke(ctx context.Context, taskID uuid.UUID) bool {
	if taskID == uuid.Nil {
		zlog.Logger.Warn().Msg("no task id provided for revocation")
		return false
	}

	if err := q.revoked.SetWithRetry(ctx, q.strategy, revokedKeyPrefix+taskID.String(), revokedMark); err != nil {
		zlog.Logger.Error().Err(err).Str("task_id", taskID.String()).Msg("failed to revoke task")
		return false
	}

	zlog.Logger.Info().Str("task_id", taskID.String()).Msg("revoked task")
	return true
}

// Consume reads tasks from the main queue into out until ctx is done.
// Revoked tasks are acknowledged and dropped without dispatch; tasks that
// surface before their ETA are re-parked for the remaining delay.
func (q *Queue) Consume(ctx context.Context, out chan<- Task) error {
	deliveries, err := q.ch.Consume(MainQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("delivery channel closed")
			}

			var task Task
			if err := json.Unmarshal(d.Body, &task); err != nil {
				zlog.Logger.Error().Err(err).Msg("failed to unmarshal task")
				_ = d.Nack(false, false)
				continue
			}

			if q.isRevoked(ctx, task.ID) {
				zlog.Logger.Info().Str("task_id", task.ID.String()).Msg("task revoked, dropping")
				_ = d.Ack(false)
				continue
			}

			if time.Until(task.ETA) > 0 {
				// Chunked park expired before the ETA; park again for
				// the remaining delay.
				if _, err := q.Enqueue(ctx, task); err != nil {
					zlog.Logger.Error().Err(err).Str("task_id", task.ID.String()).Msg("failed to re-park early task")
					_ = d.Nack(false, true)
					continue
				}
				_ = d.Ack(false)
				continue
			}

			select {
			case <-ctx.Done():
				_ = d.Nack(false, true)
				return ctx.Err()
			case out <- task:
				_ = d.Ack(false)
			}
		}
	}
}

func (q *Queue) isRevoked(ctx context.Context, taskID uuid.UUID) bool {
	val, err := q.revoked.GetWithRetry(ctx, q.strategy, revokedKeyPrefix+taskID.String())
	if err != nil {
		// Missing mark and store trouble look the same here; the executor's
		// status check catches what slips through.
		return false
	}

	return val == revokedMark
}

func clampPriority(p int) int {
	if p < 0 {
		return 0
	}
	if p > maxQueuePriority {
		return maxQueuePriority
	}
	return p
}
