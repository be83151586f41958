package worker

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wb-go/wbf/zlog"

	"github.com/dmarkin/timed-notifier/internal/delivery"
	"github.com/dmarkin/timed-notifier/internal/model"
	"github.com/dmarkin/timed-notifier/internal/taskqueue"
)

//go:generate mockgen -source=pool.go -destination=../mocks/worker/mock.go -package=mocks

type taskQueue interface {
	Consume(ctx context.Context, out chan<- taskqueue.Task) error
	Enqueue(ctx context.Context, task taskqueue.Task) (uuid.UUID, error)
}

type taskExecutor interface {
	Execute(ctx context.Context, notificationID uuid.UUID) (delivery.Result, error)
}

type statusService interface {
	StatusByID(ctx context.Context, id uuid.UUID) (model.Status, error)
}

// Pool runs delivery workers over the shared task queue. Each worker pulls
// tasks independently; ordering across notifications follows queue
// priority, not arrival order.
type Pool struct {
	queue    taskQueue
	executor taskExecutor
	service  statusService
	serverID string
}

// NewPool creates a worker Pool identified by serverID.
func NewPool(queue taskQueue, executor taskExecutor, service statusService, serverID string) *Pool {
	return &Pool{
		queue:    queue,
		executor: executor,
		service:  service,
		serverID: serverID,
	}
}

// Run consumes tasks with workerCount workers until ctx is done.
func (p *Pool) Run(ctx context.Context, workerCount int) {
	var wg sync.WaitGroup
	taskChan := make(chan taskqueue.Task, workerCount*10)

	go func() {
		if err := p.queue.Consume(ctx, taskChan); err != nil && ctx.Err() == nil {
			zlog.Logger.Error().Err(err).Msg("failed to consume tasks")
		}
	}()

	wg.Add(workerCount)
	for i := 0; i < workerCount; i++ {
		go func(id int) {
			defer wg.Done()

			zlog.Logger.Info().Str("server", p.serverID).Int("worker", id).Msg("worker started")

			for {
				select {
				case <-ctx.Done():
					zlog.Logger.Info().Int("worker", id).Msg("worker shutting down")
					return
				case task, ok := <-taskChan:
					if !ok {
						zlog.Logger.Info().Int("worker", id).Msg("task channel closed, shutting down")
						return
					}

					p.handle(ctx, task)
				}
			}
		}(i)
	}

	<-ctx.Done()
	wg.Wait()
	zlog.Logger.Info().Str("server", p.serverID).Msg("worker pool stopped")
}

// handle runs one task execution and re-enqueues it when the executor asks
// for a retry. The cached status pre-check is only an optimization; the
// executor re-checks against the store before any side effect.
func (p *Pool) handle(ctx context.Context, task taskqueue.Task) {
	status, err := p.service.StatusByID(ctx, task.NotificationID)
	if err != nil {
		zlog.Logger.Error().Err(err).Str("id", task.NotificationID.String()).Msg("failed to get status, executing anyway")
	} else if status == model.StatusCancelled {
		zlog.Logger.Info().Str("id", task.NotificationID.String()).Msg("notification cancelled, skipping task")
		return
	}

	res, err := p.executor.Execute(ctx, task.NotificationID)
	if err != nil {
		zlog.Logger.Error().Err(err).Str("id", task.NotificationID.String()).Msg("task execution failed")
		return
	}

	if !res.Retry.Retry {
		return
	}

	retryTask := taskqueue.Task{
		ID:             task.ID, // same task identity, new execution
		NotificationID: task.NotificationID,
		Channel:        task.Channel,
		ETA:            time.Now().Add(res.Retry.Delay),
		Priority:       task.Priority,
	}

	if _, err := p.queue.Enqueue(ctx, retryTask); err != nil {
		zlog.Logger.Error().Err(err).Str("id", task.NotificationID.String()).Msg("failed to schedule retry")
		return
	}

	zlog.Logger.Info().
		Str("id", task.NotificationID.String()).
		Dur("delay", res.Retry.Delay).
		Msg("retry scheduled")
}
