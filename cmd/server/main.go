package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"notification-service/internal/channel/email"
	"notification-service/internal/channel/push"
	"notification-service/internal/common/config"
	"notification-service/internal/common/database"
	"notification-service/internal/common/logger"
	"notification-service/internal/common/observability"
	"notification-service/internal/delivery"
	"notification-service/internal/server"
	"notification-service/internal/service"
	"notification-service/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("failed to load configuration", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	log.Info("starting notification service", map[string]interface{}{
		"name":        cfg.App.Name,
		"version":     cfg.App.Version,
		"environment": cfg.App.Environment,
	})

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	pg, err := connectPostgres(cfg, log)
	if err != nil {
		log.Error("postgres unavailable", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
	defer pg.Close()

	rdb, err := database.NewRedis(cfg.Database.Redis)
	if err != nil {
		log.Error("redis unavailable", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
	defer rdb.Close()

	notificationStore := store.NewNotificationStore(pg.GetDB(), log)
	tokenStore := store.NewDeviceTokenStore(pg.GetDB(), log)
	templateStore := store.NewTemplateStore(pg.GetDB(), log)
	cachedTemplates := store.NewCachedTemplateStore(
		templateStore,
		rdb.GetClient(),
		time.Duration(cfg.Database.Redis.TemplateTTL)*time.Second,
		log,
	)

	var emailCh delivery.EmailChannel
	if cfg.SMTP.Enabled {
		emailCh = email.NewChannel(cfg.SMTP, log)
		log.Info("email channel enabled", map[string]interface{}{"host": cfg.SMTP.Host})
	}

	var pushCh delivery.PushChannel
	if cfg.Firebase.Enabled {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		client, err := push.NewMessagingClient(ctx, cfg.Firebase)
		cancel()
		if err != nil {
			log.Error("firebase initialization failed", map[string]interface{}{"error": err.Error()})
			os.Exit(1)
		}
		pushCh = push.NewChannel(client, tokenStore, log)
		log.Info("push channel enabled", map[string]interface{}{"projectId": cfg.Firebase.ProjectID})
	}

	orchestrator := delivery.NewOrchestrator(
		cachedTemplates, tokenStore, emailCh, pushCh, cfg.SMTP.From, obs, log,
	)

	srv := server.New(
		service.NewNotificationService(notificationStore, orchestrator, log),
		service.NewTemplateService(cachedTemplates, log),
		service.NewDeviceTokenService(tokenStore, log),
		map[string]server.HealthCheck{
			"postgres": pg.Ping,
			"redis":    rdb.Ping,
		},
		log,
	)

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      srv.Router(),
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
	}

	go func() {
		log.Info("http server listening", map[string]interface{}{"addr": httpServer.Addr})
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server failed", map[string]interface{}{"error": err.Error()})
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down", nil)
	ctx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", map[string]interface{}{"error": err.Error()})
	}
}

// connectPostgres retries the initial connection; container startup
// ordering makes the first attempts racy.
func connectPostgres(cfg *config.Config, log logger.Logger) (*database.PostgresClient, error) {
	var pg *database.PostgresClient
	var err error

	backoff := time.Second
	for attempt := 1; attempt <= 5; attempt++ {
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err == nil {
			return pg, nil
		}
		log.Warn("postgres connection attempt failed", map[string]interface{}{
			"attempt": attempt,
			"error":   err.Error(),
		})
		time.Sleep(backoff)
		backoff *= 2
	}
	return nil, err
}
