package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"Koro/backend/go/internal/attachment"
	"Koro/backend/go/internal/avatar"
	"Koro/backend/go/internal/config"
	"Koro/backend/go/internal/database/kafka"
	"Koro/backend/go/internal/database/mongo"
	"Koro/backend/go/internal/database/mysql"
	"Koro/backend/go/internal/database/redis"
	"Koro/backend/go/internal/engine"
	"Koro/backend/go/internal/events"
	"Koro/backend/go/internal/identity"
	"Koro/backend/go/internal/koro_service/api"
	"Koro/backend/go/internal/koro_service/service"
	"Koro/backend/go/internal/llm"
	"Koro/backend/go/internal/models"
	"Koro/backend/go/internal/storage"
	"Koro/backend/go/internal/voice"
	"Koro/backend/go/pkg/http"
	"Koro/backend/go/pkg/logger"

	"github.com/gin-gonic/gin"
)

const defaultConfigPath = "backend/go/internal/config/config.yaml"

func main() {
	path := os.Getenv("KORO_CONFIG")
	if path == "" {
		path = defaultConfigPath
	}
	cfg, loadErr := config.LoadConfig(path)
	if loadErr != nil {
		cfg = config.Default()
	}
	cfg.ApplyEnv()

	// Initialize logger
	logger.Init(logger.ParseLevel(cfg.Logger.Level))
	serviceLogger := logger.New("KoroService", "", "")
	if loadErr != nil {
		serviceLogger.WithError(models.NewErrorInfo(loadErr, "config_error")).Warn("Config file unavailable, using built-in defaults")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	kv, err := storage.NewStore(ctx, cfg)
	if err != nil {
		serviceLogger.WithError(models.NewErrorInfo(err, "storage_error")).Fatal("Failed to open storage backend")
	}
	serviceLogger.WithField("backend", cfg.Storage.Backend).Info("Storage backend ready")

	gen, err := llm.NewClient(ctx, cfg.LLM, serviceLogger)
	if err != nil {
		serviceLogger.WithError(models.NewErrorInfo(err, "llm_error")).Fatal("Failed to create generation client")
	}
	local := llm.NewLocal(cfg.LLM.WordDelay())

	var accountStore identity.AccountStore = identity.NewMemoryAccountStore()
	if cfg.Auth.AccountStore == "mysql" {
		db, err := mysql.GetDB(&cfg.Databases.MySQL)
		if err != nil {
			serviceLogger.WithError(models.NewErrorInfo(err, "mysql_error")).Fatal("Failed to connect to MySQL")
		}
		gormStore, err := identity.NewGormAccountStore(db)
		if err != nil {
			serviceLogger.WithError(models.NewErrorInfo(err, "mysql_error")).Fatal("Failed to migrate account table")
		}
		accountStore = gormStore
		serviceLogger.Info("Successfully connected to MySQL")
	}
	tokens := identity.NewTokenIssuer(cfg.Auth.JwtSecret, cfg.Auth.Issuer, time.Duration(cfg.Auth.TokenTTL)*time.Second)
	var localIdentity *identity.LocalProvider
	if cfg.Auth.AllowLocal {
		localIdentity = identity.NewLocalProvider(kv, tokens)
	}

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.Databases.Kafka.Enabled {
		w, err := kafka.GetWriter(&cfg.Databases.Kafka)
		if err != nil {
			serviceLogger.WithError(models.NewErrorInfo(err, "kafka_error")).Fatal("Failed to create Kafka writer")
		}
		publisher = events.NewKafkaPublisher(w, serviceLogger)
		serviceLogger.Info("Publishing turn events to " + cfg.Databases.Kafka.Topic)
	}

	workspaces, err := service.NewWorkspaces(kv, cfg.Workspace.Capacity, config.ParseDurationOr(cfg.Workspace.TTL, 30*time.Minute), serviceLogger)
	if err != nil {
		serviceLogger.WithError(models.NewErrorInfo(err, "config_error")).Fatal("Failed to create workspace cache")
	}
	orchestrator := engine.NewOrchestrator(gen, local, serviceLogger)
	conversations := service.NewConversationService(workspaces, orchestrator, publisher, serviceLogger)

	var synth llm.SpeechSynthesizer
	if s, ok := gen.(llm.SpeechSynthesizer); ok {
		synth = s
	}

	apiHandler := api.NewAPI(api.Options{
		Conversations: conversations,
		Accounts:      identity.NewAccountProvider(accountStore, tokens),
		Local:         localIdentity,
		Tokens:        tokens,
		Avatar:        avatar.NewService(gen),
		Voice:         voice.NewService(synth),
		Encoder:       attachment.NewEncoder(0),
		Logger:        serviceLogger,
	})

	// Setup HTTP server
	gin.SetMode(gin.ReleaseMode)
	router := gin.Default()
	api.RegisterRoutes(router, apiHandler)

	srv, err := http.NewServer(cfg, http.WithLogger(serviceLogger))
	if err != nil {
		serviceLogger.WithError(models.NewErrorInfo(err, "config_error")).Fatal("Failed to create HTTP server")
	}
	srv.Handle("/", router)

	// Start server
	go func() {
		if err := srv.ListenAndServe(); err != nil {
			serviceLogger.WithError(models.NewErrorInfo(err, "server_error")).Fatal("HTTP server failed to start")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	serviceLogger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ParseDurationOr(cfg.Server.ShutdownTimeout, 10*time.Second))
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		serviceLogger.WithError(models.NewErrorInfo(err, "server_error")).Error("Server forced to shutdown")
	}
	cancel()

	closeBackends(shutdownCtx, cfg, serviceLogger)
	serviceLogger.Info("Server gracefully stopped")
}

// closeBackends 关闭已按配置打开的外部连接。
func closeBackends(ctx context.Context, cfg *config.AppConfig, log *logger.Logger) {
	if cfg.Databases.Kafka.Enabled {
		if err := kafka.Close(); err != nil {
			log.WithError(models.NewErrorInfo(err, "kafka_error")).Error("Error closing Kafka writer")
		}
	}
	if cfg.Auth.AccountStore == "mysql" {
		if err := mysql.Close(); err != nil {
			log.WithError(models.NewErrorInfo(err, "mysql_error")).Error("Error closing MySQL")
		}
	}
	switch cfg.Storage.Backend {
	case "redis":
		if err := redis.Close(); err != nil {
			log.WithError(models.NewErrorInfo(err, "redis_error")).Error("Error closing Redis")
		}
	case "mongodb":
		if err := mongo.Close(ctx); err != nil {
			log.WithError(models.NewErrorInfo(err, "mongo_error")).Error("Error disconnecting from MongoDB")
		}
	}
}
