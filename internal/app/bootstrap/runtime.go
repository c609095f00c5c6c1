package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/caseflow/followup-service/internal/adapters/cache"
	"github.com/caseflow/followup-service/internal/adapters/clients"
	eventadapter "github.com/caseflow/followup-service/internal/adapters/events"
	httpadapter "github.com/caseflow/followup-service/internal/adapters/http"
	"github.com/caseflow/followup-service/internal/adapters/jobs"
	"github.com/caseflow/followup-service/internal/adapters/postgres"
	"github.com/caseflow/followup-service/internal/application"
	"github.com/caseflow/followup-service/internal/ports"
)

// readinessFlag flips once startup completed; readyz and the scheduler gate
// on it.
type readinessFlag struct {
	ready atomic.Bool
}

func (f *readinessFlag) Ready() bool { return f.ready.Load() }

var _ ports.Readiness = (*readinessFlag)(nil)

type Runtime struct {
	cfg        Config
	logger     *slog.Logger
	readiness  *readinessFlag
	httpServer *http.Server
	grpcServer *grpc.Server
	grpcLis    net.Listener
	outbox     *eventadapter.OutboxWorker
	intake     *eventadapter.IntakeWorker
	scheduler  *jobs.Scheduler
	leader     *cache.RedisLeaderProbe
	cleanupFn  func(context.Context)
}

func NewRuntime(ctx context.Context, configPath string) (*Runtime, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})).With("service", cfg.ServiceID)
	slog.SetDefault(logger)

	db, err := postgres.Connect(ctx, cfg.DatabaseURL, cfg.MaxDBConns)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if err := postgres.RunMigrations(ctx, db); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	redisClient, err := cache.Connect(ctx, cfg.RedisURL)
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	cacheStore := cache.NewRedisCache(redisClient)
	leader := cache.NewRedisLeaderProbe(redisClient, cfg.InstanceID, cfg.LeaderLeaseTTL, !cfg.LeaderElectionEnabled)

	var tokens ports.TokenSource
	if cfg.TokenURL != "" {
		tokens = clients.NewTokenClient(clients.TokenClientConfig{
			TokenURL:     cfg.TokenURL,
			ClientID:     cfg.TokenClientID,
			ClientSecret: cfg.TokenClientSecret,
			Scope:        cfg.TokenScope,
		})
	}
	archival := clients.NewArchivalClient(clients.ArchivalClientConfig{
		BaseURL: cfg.ArchivalBaseURL, Tokens: tokens,
	})
	personRegistry := clients.NewPersonRegistryClient(clients.PersonRegistryClientConfig{
		BaseURL: cfg.PersonRegistryBaseURL, Tokens: tokens,
	})
	caseClient := clients.NewCaseClient(clients.CaseClientConfig{
		BaseURL: cfg.CaseBaseURL, Tokens: tokens,
	})

	repos := postgres.NewRepositories(db)
	service := application.NewService(application.Dependencies{
		Config: application.Config{
			ServiceName:      cfg.ServiceID,
			MessageValidity:  cfg.MessageValidity,
			RenotifyInterval: cfg.RenotifyInterval,
			GraceWindow:      cfg.GraceWindow,
			SweepBatchSize:   cfg.SweepBatchSize,
			ChannelCacheTTL:  cfg.ChannelCacheTTL,
		},
		Logger:         logger,
		Events:         repos.Events,
		Notifications:  repos.Notifications,
		Outbox:         repos.Outbox,
		Archival:       archival,
		PersonRegistry: personRegistry,
		Cases:          caseClient,
		Cache:          cacheStore,
	})

	readiness := &readinessFlag{}
	handler := httpadapter.NewHandler(service)
	router := httpadapter.NewRouter(logger, handler, readiness)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcServer := grpc.NewServer()
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthSrv)
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.GRPCPort))
	if err != nil {
		_ = redisClient.Close()
		_ = sqlDB.Close()
		return nil, err
	}

	publisher := ports.EventPublisher(eventadapter.NewLoggingPublisher(logger))
	consumer := eventadapter.Consumer(eventadapter.NewNoopConsumer())
	var closers []io.Closer
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPublisher, pubErr := eventadapter.NewKafkaPublisher(cfg.KafkaBrokers, map[string]string{
			application.EventTypeNotificationCreate:     cfg.TopicNotificationCommands,
			application.EventTypeNotificationInactivate: cfg.TopicNotificationCommands,
			application.EventTypeNotificationState:      cfg.TopicNotificationState,
		})
		if pubErr != nil {
			logger.WarnContext(ctx, "kafka publisher disabled, using logging publisher", "error", pubErr)
		} else {
			publisher = kafkaPublisher
			closers = append(closers, kafkaPublisher)
		}

		kafkaConsumer, conErr := eventadapter.NewKafkaConsumer(
			cfg.KafkaBrokers,
			cfg.KafkaConsumerGroup,
			[]string{cfg.TopicParticipantEvents, cfg.TopicNotificationLifecycle, cfg.TopicProviderMessages},
		)
		if conErr != nil {
			logger.WarnContext(ctx, "kafka consumer disabled, using noop consumer", "error", conErr)
		} else {
			consumer = kafkaConsumer
			closers = append(closers, kafkaConsumer)
		}
	}
	outbox := eventadapter.NewOutboxWorker(logger, repos.Outbox, publisher, cfg.OutboxPollInterval, cfg.OutboxBatchSize)
	intake := eventadapter.NewIntakeWorker(logger, consumer, service, eventadapter.Topics{
		ParticipantEvents:     cfg.TopicParticipantEvents,
		NotificationLifecycle: cfg.TopicNotificationLifecycle,
		ProviderMessages:      cfg.TopicProviderMessages,
	})

	scheduler := jobs.NewScheduler(logger, leader, readiness)
	scheduler.Register("archival-consolidation", 30*time.Second, cfg.ConsolidationPeriod, service.ConsolidateUnarchived)
	scheduler.Register("notification-resend", time.Minute, cfg.ResendPeriod, service.ResendDue)
	scheduler.Register("notification-window-sweep", 15*time.Second, cfg.WindowSweepPeriod, service.SweepActivationWindows)
	scheduler.Register("event-retry", 45*time.Second, cfg.EventRetryPeriod, service.RetryPending)

	return &Runtime{
		cfg:        cfg,
		logger:     logger,
		readiness:  readiness,
		httpServer: httpServer,
		grpcServer: grpcServer,
		grpcLis:    lis,
		outbox:     outbox,
		intake:     intake,
		scheduler:  scheduler,
		leader:     leader,
		cleanupFn: func(ctx context.Context) {
			for _, closer := range closers {
				_ = closer.Close()
			}
			_ = redisClient.Close()
			_ = sqlDB.Close()
		},
	}, nil
}

func Build(ctx context.Context, configPath string) (*Runtime, error) {
	return NewRuntime(ctx, configPath)
}

func (r *Runtime) RunAPI(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	errCh := make(chan error, 2)

	go func() {
		if err := r.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	go func() {
		if err := r.grpcServer.Serve(r.grpcLis); err != nil {
			errCh <- err
		}
	}()
	r.readiness.ready.Store(true)

	select {
	case <-ctx.Done():
	case err := <-errCh:
		r.logger.ErrorContext(ctx, "runtime failure", "error", err)
	}
	r.readiness.ready.Store(false)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = r.httpServer.Shutdown(shutdownCtx)
	r.grpcServer.GracefulStop()
	r.cleanupFn(shutdownCtx)
	return nil
}

func (r *Runtime) RunWorker(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	errCh := make(chan error, 3)

	go func() {
		if err := r.outbox.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- err
		}
	}()
	go func() {
		if err := r.intake.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- err
		}
	}()
	go func() {
		if err := r.scheduler.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- err
		}
	}()
	r.readiness.ready.Store(true)

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
	}
	r.readiness.ready.Store(false)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	r.leader.Resign(shutdownCtx)
	r.cleanupFn(shutdownCtx)
	return runErr
}
