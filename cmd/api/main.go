package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	v1 "gigpulse/cmd/api/router/v1"
	"gigpulse/internal/config"
	cache "gigpulse/internal/infrastructure/cache/adapter"
	"gigpulse/internal/infrastructure/database"
	"gigpulse/internal/infrastructure/logging"
	mail "gigpulse/internal/infrastructure/mail/adapter"
	pubsub "gigpulse/internal/infrastructure/pubsub/adapter"
	queue "gigpulse/internal/infrastructure/queue/adapter"
	"gigpulse/internal/infrastructure/realtime"
	"gigpulse/internal/infrastructure/telemetry"
	chatTask "gigpulse/internal/pkg/chat/application/task"
	chatUsecase "gigpulse/internal/pkg/chat/application/usecase"
	chatRepo "gigpulse/internal/pkg/chat/persistence/repository/adapter"
	chatController "gigpulse/internal/pkg/chat/presentation/controller"
	"gigpulse/internal/pkg/notification/application/sender"
	notificationTask "gigpulse/internal/pkg/notification/application/task"
	notificationUsecase "gigpulse/internal/pkg/notification/application/usecase"
	notificationRepo "gigpulse/internal/pkg/notification/persistence/repository/adapter"
	"gigpulse/internal/pkg/presence/application/tracker"
	presenceRepo "gigpulse/internal/pkg/presence/persistence/repository/adapter"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load .env file
	if err := config.LoadDotEnv(); err != nil {
		log.Printf("Warning: .env file could not be loaded: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	shutdownTelemetry, err := telemetry.Init(ctx, "gigpulse", logger)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(sctx); err != nil {
			logger.Warn("telemetry shutdown", zap.Error(err))
		}
	}()

	// Connect to the database on startup
	dbCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	pool, err := database.Connect(dbCtx, cfg.Database.URL)
	cancel()
	if err != nil {
		return err
	}
	defer pool.Close()
	if err := database.Migrate(ctx, pool); err != nil {
		return err
	}

	redisCache, err := cache.NewRedisCache(ctx, cfg.Redis.URL)
	if err != nil {
		return err
	}
	defer func() { _ = redisCache.Close() }()

	nats, err := pubsub.NewNatsTransport(pubsub.NatsOptions{
		URL:           cfg.NATS.URL,
		User:          cfg.NATS.User,
		Password:      cfg.NATS.Password,
		Name:          cfg.NATS.Name,
		ReconnectWait: cfg.NATS.ReconnectWait,
	}, logger)
	if err != nil {
		return err
	}
	defer func() { _ = nats.Close() }()

	registry := realtime.NewRegistry(nats, logger)
	defer registry.Close()
	router := realtime.NewRouter(registry, logger)
	defer router.Close()

	client, err := queue.NewAsynqClient(cfg.Redis.URL)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	worker, err := queue.NewAsynqServer(queue.ServerOptions{
		RedisURL:    cfg.Redis.URL,
		Concurrency: cfg.Queue.Concurrency,
		Queues:      cfg.Queue.Queues,
	}, logger)
	if err != nil {
		return err
	}

	// Presence
	presence := tracker.NewTracker(presenceRepo.NewPgPresenceRepository(pool), registry, tracker.Options{
		HeartbeatInterval: cfg.Presence.HeartbeatInterval,
		InactivityTimeout: cfg.Presence.InactivityTimeout,
		SyncInterval:      cfg.Presence.SyncInterval,
	}, logger)
	defer presence.Wait()

	// Notifications
	notifications := notificationRepo.NewPgNotificationRepository(pool)
	tokens := notificationRepo.NewPgDeviceTokenRepository(pool)
	profiles := notificationRepo.NewPgProfileRepository(pool)
	templates := notificationUsecase.NewCachedTemplateResolver(
		notificationRepo.NewPgTemplateRepository(pool), redisCache, cfg.Notification.TemplateCacheTTL, logger)
	dispatch := notificationUsecase.NewDispatchUseCase(notifications, templates, cfg.Notification.Channels, logger,
		sender.NewAppSender(registry),
		sender.NewPushSender(tokens, nats, logger),
		sender.NewEmailSender(client, profiles),
	)
	notificationUC := notificationUsecase.NewUseCases(dispatch, notifications, tokens)
	queued := notificationTask.NewQueuedDispatcher(client)

	// Chat
	chatUC := chatUsecase.NewUseCases(
		chatRepo.NewPgChatRepository(pool),
		registry,
		chatTask.NewTypingExpiryScheduler(client, cfg.Chat.TypingTTL),
		cfg.Chat.TypingTTL,
		logger,
	)
	chatUC.Send.Observers = append(chatUC.Send.Observers,
		notificationUsecase.NewMessageNotifier(queued, profiles, logger))

	// Background tasks
	chatTask.RegisterSendMessageTask(worker, chatUC.Send)
	chatTask.RegisterExpireTypingTask(worker, chatUC.ExpireTyping)
	notificationTask.RegisterDispatchTask(worker, dispatch)
	notificationTask.RegisterSendEmailTask(worker,
		mail.NewSMTPMailer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.From), logger)

	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "OK",
		})
	})
	v1.RegisterRoutes(r, v1.Deps{
		Chat:           chatUC,
		Socket:         chatController.NewSocketController(router, chatUC, presence, logger),
		Presence:       presence,
		Notifications:  notificationUC,
		QueuedDispatch: queued,
		Queue:          client,
	})

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return presence.Run(gctx)
	})
	g.Go(func() error {
		return worker.Run(gctx)
	})
	g.Go(func() error {
		logger.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := srv.Shutdown(sctx)
		// Hijacked websocket connections are not tracked by Shutdown.
		router.Close()
		return err
	})
	return g.Wait()
}
