package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	amqp091 "github.com/rabbitmq/amqp091-go"
	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/redis"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	metricshandler "github.com/dmarkin/timed-notifier/internal/api/handlers/metrics"
	"github.com/dmarkin/timed-notifier/internal/api/handlers/notification"
	"github.com/dmarkin/timed-notifier/internal/api/router"
	"github.com/dmarkin/timed-notifier/internal/api/server"
	"github.com/dmarkin/timed-notifier/internal/config"
	"github.com/dmarkin/timed-notifier/internal/delivery"
	"github.com/dmarkin/timed-notifier/internal/metrics"
	notifrepo "github.com/dmarkin/timed-notifier/internal/repository/notification"
	notifsvc "github.com/dmarkin/timed-notifier/internal/service/notification"
	"github.com/dmarkin/timed-notifier/internal/taskqueue"
	"github.com/dmarkin/timed-notifier/internal/validate"
	"github.com/dmarkin/timed-notifier/internal/worker"
	"github.com/dmarkin/timed-notifier/pkg/email"
	"github.com/dmarkin/timed-notifier/pkg/push"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	zlog.Init()
	cfg := config.Must()

	conn := mustConnectRabbit(cfg)

	ch, err := conn.Channel()
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to open channel")
	}

	if err := taskqueue.Declare(ch); err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to declare task queues")
	}

	opts := &dbpg.Options{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}

	slaveDSNs := make([]string, 0, len(cfg.Database.Slaves))
	for _, s := range cfg.Database.Slaves {
		slaveDSNs = append(slaveDSNs, s.DSN())
	}

	db, err := dbpg.New(cfg.Database.Master.DSN(), slaveDSNs, opts)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to connect to database")
	}

	repo := notifrepo.NewRepository(db)

	rdb := redis.New(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.Database)
	if err = rdb.Ping(ctx).Err(); err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to connect to redis")
	}

	queue := taskqueue.NewQueue(ch, rdb, cfg.Retry)
	collector := metrics.NewCollector()

	emailClient := email.NewClient(
		cfg.Email.SMTPHost,
		cfg.Email.SMTPPort,
		cfg.Email.Username,
		cfg.Email.Password,
		cfg.Email.From,
	)
	pushClient := push.NewClient(cfg.Push.GatewayURL, cfg.Push.APIKey)

	deliverers := delivery.Deliverers{
		Push:  delivery.NewSenderAdapter(pushClient),
		Email: delivery.NewSenderAdapter(emailClient),
	}

	serverID := workerIdentity()
	zlog.Logger.Info().Str("server_id", serverID).Msg("starting notifier")

	executor := delivery.NewExecutor(
		repo,
		deliverers,
		collector,
		serverID,
		cfg.Delivery.MaxAttempts,
		cfg.Delivery.RetryDelay,
	)

	service := notifsvc.NewService(
		repo,
		queue,
		rdb,
		collector,
		validate.New(),
		cfg.Delivery.Window,
		cfg.Retry,
	)

	pool := worker.NewPool(queue, executor, service, serverID)
	go pool.Run(ctx, cfg.Workers.Count)

	notifHandler := notification.NewHandler(service, validator.New())
	metricsHandler := metricshandler.NewHandler(service)

	r := router.New(notifHandler, metricsHandler)
	s := server.New(cfg.Server.HTTPPort, r)

	go func() {
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	<-ctx.Done()
	zlog.Logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.Shutdown(shutdownCtx); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to shutdown server")
	}

	if err := db.Master.Close(); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to close master DB")
	}
	for i, slave := range db.Slaves {
		if err := slave.Close(); err != nil {
			zlog.Logger.Error().Err(err).Int("slave", i).Msg("failed to close slave DB")
		}
	}

	if err := ch.Close(); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to close RabbitMQ channel")
	}
	if err := conn.Close(); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to close RabbitMQ connection")
	}
}

func mustConnectRabbit(cfg *config.Config) *amqp091.Connection {
	var conn *amqp091.Connection

	strategy := retry.Strategy{Attempts: cfg.RabbitMQ.Retries, Delay: cfg.RabbitMQ.Pause}
	err := retry.Do(func() error {
		var err error
		conn, err = amqp091.Dial(cfg.RabbitMQ.URL())
		return err
	}, strategy)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to connect to rabbitmq")
	}

	return conn
}

// workerIdentity builds the server identity tag recorded with every
// delivery outcome.
func workerIdentity() string {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	return "worker@" + hostname
}
