package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/xavierca1/ligue-leads/internal/config"
	"github.com/xavierca1/ligue-leads/internal/entity"
	"github.com/xavierca1/ligue-leads/internal/infra/blob"
	"github.com/xavierca1/ligue-leads/internal/infra/cache"
	"github.com/xavierca1/ligue-leads/internal/infra/crm"
	"github.com/xavierca1/ligue-leads/internal/infra/database"
	"github.com/xavierca1/ligue-leads/internal/infra/http/handlers"
	"github.com/xavierca1/ligue-leads/internal/infra/http/middleware"
	"github.com/xavierca1/ligue-leads/internal/infra/mail"
	"github.com/xavierca1/ligue-leads/internal/infra/memory"
	"github.com/xavierca1/ligue-leads/internal/infra/queue"
	"github.com/xavierca1/ligue-leads/internal/infra/worker"
	"github.com/xavierca1/ligue-leads/internal/usecase"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := config.SetupLogger(cfg)
	logger.Info("starting lead service", slog.String("version", config.Version), slog.String("store", cfg.StoreDriver))

	if err := run(cfg, logger); err != nil {
		logger.Error("service stopped with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	checks := map[string]handlers.Checker{"database": nil, "rabbitmq": nil}

	// 1. Stores
	var (
		leadRepo       entity.LeadRepositoryInterface
		conferenceRepo entity.ConferenceRepositoryInterface
	)
	switch cfg.StoreDriver {
	case config.StorePostgres:
		db, err := database.NewDBConnection(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := database.Migrate(db, logger); err != nil {
			return err
		}
		leadRepo = database.NewLeadRepository(db)
		conferenceRepo = database.NewConferenceRepository(db)
		checks["database"] = pingDB(db)
	default:
		logger.Warn("using in-memory store; data is lost on restart")
		leadRepo = memory.NewLeadRepo()
		conferenceRepo = memory.NewConferenceRepo()
	}

	blobStore, err := blob.NewFileStore(cfg.BlobDir)
	if err != nil {
		return err
	}
	checks["blob"] = handlers.CheckFunc(func(context.Context) error {
		_, err := os.Stat(cfg.BlobDir)
		return err
	})
	signer, err := blob.NewSigner(cfg.DownloadSigningSecret, cfg.PublicBaseURL)
	if err != nil {
		return err
	}

	// 2. Archive path: through RabbitMQ when configured, inline otherwise
	var archiver usecase.Archiver = blob.NewArchiver(blobStore)
	if cfg.RabbitMQURL != "" {
		rabbitMQ, err := queue.NewRabbitMQ(cfg.RabbitMQURL)
		if err != nil {
			return err
		}
		defer rabbitMQ.Close()
		checks["rabbitmq"] = handlers.CheckFunc(func(context.Context) error { return rabbitMQ.Ping() })

		var notifiers queue.Notifiers
		if cfg.NotificationsEnabled() {
			notifiers = append(notifiers, mail.NewEmailSender(cfg.MailHost, cfg.MailPort, cfg.MailUser, cfg.MailPass, cfg.MailFrom, cfg.NotifyEmail))
		}
		if cfg.CRMEnabled() {
			notifiers = append(notifiers, crm.NewKommo(cfg.KommoBaseURL, cfg.KommoAPIToken, cfg.KommoStatusID, logger))
		}
		var notifier queue.Notifier
		if len(notifiers) > 0 {
			notifier = notifiers
		}
		w := queue.NewWorker(rabbitMQ.Ch, archiver, notifier, logger.With("component", "lead_worker"))
		go func() {
			if err := w.Start(ctx, queue.QueueName); err != nil {
				logger.Error("lead worker stopped", slog.String("error", err.Error()))
			}
		}()
		archiver = rabbitMQ.Producer()
	}

	sweeper := worker.NewExportSweeper(blobStore, cfg.ExportRetention, logger.With("component", "export_sweeper"))
	go sweeper.Start(ctx)

	// 3. Use cases
	captureUC := usecase.NewCaptureLeadUseCase(leadRepo, archiver, logger.With("component", "capture"))
	captureUC.OnArchiveFailure = func(error) { middleware.RecordIntegrationError("archive") }
	manageUC := usecase.NewManageLeadsUseCase(leadRepo, logger.With("component", "leads"))
	exportUC := usecase.NewExportLeadsUseCase(leadRepo, blobStore, signer, logger.With("component", "export"))
	conferenceUC := usecase.NewConferenceUseCase(conferenceRepo,
		cache.NewConferenceCache(cfg.ConferenceCacheSize, cfg.ConferenceCacheTTL), logger.With("component", "conference"))

	// 4. Auth
	var verifiers []middleware.TokenVerifier
	if cfg.AuthJWKSURL != "" {
		v, err := middleware.NewJWKSVerifier(middleware.JWKSConfig{
			URL:             cfg.AuthJWKSURL,
			Issuer:          cfg.AuthIssuer,
			ClientTimeout:   10 * time.Second,
			RefreshInterval: time.Hour,
			Leeway:          30 * time.Second,
		}, logger)
		if err != nil {
			return err
		}
		verifiers = append(verifiers, v)
	}
	if cfg.AuthHMACSecret != "" {
		verifiers = append(verifiers, middleware.NewHMACVerifier(cfg.AuthHMACSecret, cfg.AuthIssuer))
	}

	// 5. Handlers and router
	limiter := handlers.NewRateLimiter(cfg.IntakeRateLimit, time.Minute)
	defer limiter.Stop()

	router := newRouter(routerDeps{
		Logger:         logger,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Auth:           middleware.BearerAuth(logger, verifiers...),
		Leads:          handlers.NewLeadHandler(captureUC, manageUC, limiter, logger),
		Exports:        handlers.NewExportHandler(exportUC, signer, blobStore, logger),
		Conferences:    handlers.NewConferenceHandler(conferenceUC, logger),
		Health:         handlers.NewHealthHandler(config.Version, checks),
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	logger.Info("http server stopped")
	return nil
}

func pingDB(db *sql.DB) handlers.Checker {
	return handlers.CheckFunc(func(ctx context.Context) error { return db.PingContext(ctx) })
}
