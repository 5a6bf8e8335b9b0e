package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"go.uber.org/zap"

	"laundrylink-backend/config"
	"laundrylink-backend/internal/abuse"
	"laundrylink-backend/internal/api"
	"laundrylink-backend/internal/clock"
	"laundrylink-backend/internal/db"
	"laundrylink-backend/internal/ids"
	"laundrylink-backend/internal/intake"
	"laundrylink-backend/internal/lifecycle"
	"laundrylink-backend/internal/notification"
	"laundrylink-backend/internal/store"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatal("failed to load configuration", zap.String("path", configPath), zap.Error(err))
	}
	logger.Info("configuration loaded", zap.String("path", configPath))

	if cfg.Auth.JWTSecret == "" {
		logger.Fatal("auth.jwt_secret must be configured")
	}

	gormDB, err := db.Init(&cfg.Database, logger)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appStore := store.NewGormStore(gormDB)
	clk := clock.NewSystem()
	gen := ids.NewGenerator()

	pipelineOpts := []intake.Option{intake.WithIDAttempts(cfg.Policy.IDMaxAttempts)}

	// Staff push alerts are optional.
	var webpushOptions *webpush.Options
	if cfg.Push.Enabled() {
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
		pool := notification.NewWorkerPool(cfg.WorkerPool.Size, cfg.WorkerPool.QueueSize, appStore, webpushOptions, logger)
		pool.Start(ctx)
		pipelineOpts = append(pipelineOpts, intake.WithAlerter(pool))
		logger.Info("push alerts enabled", zap.Int("workers", cfg.WorkerPool.Size))
	} else {
		logger.Warn("VAPID keys not configured, staff push alerts disabled")
	}

	filter := abuse.NewFilter(appStore, abuse.PolicyFromConfig(cfg.Policy), clk)
	pipeline := intake.NewPipeline(appStore, filter, gen, clk, logger, pipelineOpts...)
	mailer := notification.NewMailer(cfg.Email, logger)
	service := lifecycle.NewService(appStore, mailer, gen, clk, logger, cfg.Server.PublicURL, cfg.Policy.IDMaxAttempts)

	router := api.NewRouter(cfg, api.Deps{
		Store:     appStore,
		Intake:    pipeline,
		Lifecycle: service,
		WebPush:   webpushOptions,
		Log:       logger,
	})
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("HTTP server starting", zap.Int("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server ListenAndServe", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	logger.Info("shutdown signal received, stopping services")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown", zap.Error(err))
	}

	logger.Info("server gracefully stopped")
}
