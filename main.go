package main

import (
	"context"
	"errors"
	"log"
	stdhttp "net/http"
	"os"
	"os/signal"
	"syscall"

	"uplora/internal/access"
	"uplora/internal/account"
	"uplora/internal/audit"
	"uplora/internal/auth"
	"uplora/internal/config"
	"uplora/internal/http"
	"uplora/internal/infra/cache"
	"uplora/internal/notify"
	"uplora/internal/realtime"
	"uplora/internal/repository/postgres"
	"uplora/internal/scheduler"
	"uplora/internal/storage/s3"
	"uplora/internal/team"
	"uplora/internal/upload"
	"uplora/internal/video"
	"uplora/pkg/logger"
	"uplora/pkg/metrics"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const (
	envFilePath      = ".env"
	serverAddrPrefix = ":"
	signalBufferSize = 1
	urlCacheSweep    = "@every 5m"
)

var shutdownSignals = []os.Signal{
	syscall.SIGINT,
	syscall.SIGTERM,
}

func main() {
	if err := godotenv.Load(envFilePath); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zl, err := logger.New(logger.Config(cfg.Log))
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zl.Sync()

	zl.Info("configuration loaded")

	db, err := postgres.New(&cfg.Database)
	if err != nil {
		zl.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	zl.Info("database connection established")

	userRepo := postgres.NewUserRepository(db)
	teamRepo := postgres.NewTeamRepository(db)
	inviteRepo := postgres.NewInviteRepository(db)
	videoRepo := postgres.NewVideoRepository(db)
	lockRepo := postgres.NewUploadLockRepository(db)
	resetRepo := postgres.NewPasswordResetRepository(db)

	s3Client, err := s3.NewClient(&cfg.AWS)
	if err != nil {
		zl.Fatal("failed to create S3 client", zap.Error(err))
	}

	zl.Info("S3 client initialized", zap.String("bucket", s3Client.Bucket()))

	m := metrics.New()
	bus := realtime.NewBus(cfg.Realtime.SubscriberBuffer, realtime.WithMetrics(m))

	relayCtx, stopRelay := context.WithCancel(context.Background())
	defer stopRelay()

	var events realtime.Publisher = bus
	if cfg.Realtime.RedisURL != "" {
		redisClient, err := cache.NewRedisClient(relayCtx, cfg.Realtime.RedisURL)
		if err != nil {
			zl.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer redisClient.Close()

		relay := realtime.NewRedisRelay(redisClient, bus, zl)
		go func() {
			if err := relay.Run(relayCtx); err != nil {
				zl.Error("realtime relay stopped", zap.Error(err))
			}
		}()
		events = relay
		zl.Info("realtime events relayed through redis")
	}

	notifier, closeNotifier := buildNotifier(cfg, m, zl)
	defer closeNotifier()

	auditLogger := audit.NewLogger(audit.NewPostgresStore(db.Pool), zl)
	defer auditLogger.Close()

	urlCache := cache.NewURLCache()
	resolver := access.NewResolver(teamRepo)

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpiryDuration)

	uploadService := upload.NewService(upload.Dependencies{
		Store:   s3Client,
		Locks:   lockRepo,
		Videos:  videoRepo,
		Access:  resolver,
		Events:  events,
		Audit:   auditLogger,
		Metrics: m,
		Config:  cfg.Upload,
		Logger:  zl,
	})

	videoService := video.NewService(video.Dependencies{
		Store:    s3Client,
		Videos:   videoRepo,
		Teams:    teamRepo,
		Users:    userRepo,
		Access:   resolver,
		URLs:     urlCache,
		Notifier: notifier,
		Events:   events,
		Audit:    auditLogger,
		Metrics:  m,
		Config:   cfg.Upload,
		Logger:   zl,
	})

	teamService := team.NewService(team.Dependencies{
		Teams:    teamRepo,
		Invites:  inviteRepo,
		Users:    userRepo,
		Tx:       db,
		Roles:    resolver.Checker(),
		Notifier: notifier,
		Events:   events,
		Audit:    auditLogger,
		App:      cfg.App,
		Logger:   zl,
	})

	accountService := account.NewService(account.Dependencies{
		Users:    userRepo,
		Resets:   resetRepo,
		Tx:       db,
		Tokens:   jwtService,
		Notifier: notifier,
		Audit:    auditLogger,
		App:      cfg.App,
		Logger:   zl,
	})

	jobs := scheduler.New(zl)
	if _, err := jobs.AddReaper(cfg.Upload.ReaperSchedule, uploadService, cfg.Upload.StaleLockAge); err != nil {
		zl.Fatal("failed to schedule lock reaper", zap.Error(err))
	}
	if err := jobs.AddSweep(urlCacheSweep, "playback-urls", urlCache); err != nil {
		zl.Fatal("failed to schedule cache sweep", zap.Error(err))
	}
	jobs.Start()

	server := http.NewServer(&http.ServerDependencies{
		Config:         cfg,
		Logger:         zl,
		Metrics:        m,
		AuthMiddleware: auth.NewMiddleware(jwtService),
		Access:         auth.NewAccessMiddleware(resolver, videoRepo, auditLogger),
		Uploads:        uploadService,
		Videos:         videoService,
		Teams:          teamService,
		Accounts:       accountService,
		Events:         bus,
		Roles:          resolver,
	})

	go func() {
		zl.Info("starting HTTP server", zap.String("port", cfg.Server.Port))
		if err := server.Start(serverAddrPrefix + cfg.Server.Port); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			zl.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, signalBufferSize)
	signal.Notify(quit, shutdownSignals...)
	<-quit

	zl.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	// End open event streams first; Shutdown waits for them otherwise.
	bus.Close()
	stopRelay()

	if err := server.Shutdown(ctx); err != nil {
		zl.Error("server forced to shutdown", zap.Error(err))
	}
	accountService.Wait()
	jobs.Stop(ctx)

	zl.Info("server exited gracefully")
}

// buildNotifier prefers the mail queue, then direct email, then a no-op.
func buildNotifier(cfg *config.Config, m *metrics.Metrics, zl *zap.Logger) (notify.Notifier, func()) {
	if cfg.Mail.AMQPURL != "" {
		broker, err := notify.DialBroker(cfg.Mail.AMQPURL, cfg.Mail.AMQPQueue, zl)
		if err != nil {
			zl.Fatal("failed to connect to mail broker", zap.Error(err))
		}
		zl.Info("notifications queued for the mail worker", zap.String("queue", cfg.Mail.AMQPQueue))
		return notify.NewQueueNotifier(broker), func() { _ = broker.Close() }
	}

	if cfg.Mail.Enabled() {
		mail, err := notify.NewMailer(cfg.Mail)
		if err != nil {
			zl.Fatal("failed to configure email providers", zap.Error(err))
		}
		notifier, err := notify.NewEmailNotifier(mail, cfg.App, m, zl)
		if err != nil {
			zl.Fatal("failed to load email templates", zap.Error(err))
		}
		zl.Info("notifications sent by email", zap.String("strategy", cfg.Mail.Strategy))
		return notifier, func() {}
	}

	zl.Info("no email provider configured; notifications are logged only")
	return notify.NewNop(zl), func() {}
}
