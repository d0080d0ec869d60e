package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/SAP-F-2025/school-portal-service/internal/cache"
	"github.com/SAP-F-2025/school-portal-service/internal/config"
	"github.com/SAP-F-2025/school-portal-service/internal/events"
	"github.com/SAP-F-2025/school-portal-service/internal/handlers"
	"github.com/SAP-F-2025/school-portal-service/internal/repositories/casdoor"
	"github.com/SAP-F-2025/school-portal-service/internal/repositories/postgres"
	"github.com/SAP-F-2025/school-portal-service/internal/runner"
	"github.com/SAP-F-2025/school-portal-service/internal/services"
	"github.com/SAP-F-2025/school-portal-service/internal/utils"
	"github.com/SAP-F-2025/school-portal-service/internal/validator"
	"github.com/SAP-F-2025/school-portal-service/pkg"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	slogLogger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(slogLogger)
	logger := utils.NewSlogLogger(slogLogger)

	// Initialize database
	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// Initialize Redis (if configured)
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = pkg.NewRedisClient(cfg)
		if err != nil {
			logger.Warn("Redis unavailable, child views will not be cached", "error", err)
			redisClient = nil
		}
	}

	// Initialize repositories
	repoManager := postgres.NewRepositoryManager(postgres.RepositoryConfig{
		DB:          db,
		RedisClient: redisClient,
		CasdoorConfig: casdoor.CasdoorConfig{
			Endpoint:         cfg.Casdoor.Endpoint,
			ClientID:         cfg.Casdoor.ClientID,
			ClientSecret:     cfg.Casdoor.ClientSecret,
			Certificate:      cfg.Casdoor.Cert,
			OrganizationName: cfg.Casdoor.Organization,
			ApplicationName:  cfg.Casdoor.Application,
		},
	})
	if err := repoManager.Initialize(); err != nil {
		log.Fatalf("Failed to initialize repositories: %v", err)
	}
	repo := repoManager.GetRepository()

	// Event bus: Kafka when brokers are configured, in-process otherwise
	bus, err := events.NewBus(events.BusConfig{
		KafkaBrokers:  cfg.KafkaBrokers,
		ConsumerGroup: cfg.ConsumerGroup,
	}, slogLogger)
	if err != nil {
		log.Fatalf("Failed to initialize event bus: %v", err)
	}
	cacheManager := cache.NewCacheManager(redisClient)

	// Initialize services
	serviceManager := services.NewServiceManager(services.Dependencies{
		DB:          db,
		Repo:        repo,
		Logger:      slogLogger,
		Validator:   validator.New(),
		Cache:       cacheManager,
		Events:      events.NewWatermillPublisher(bus.Publisher, slogLogger),
		RepoManager: repoManager,
	}, services.ServiceManagerConfig{
		ParentLinking: services.ParentLinkingConfig{
			ViewCacheTTL:       cfg.ChildViewCacheTTL,
			AggregationTimeout: cfg.AggregationTimeout,
		},
		Chat: services.ChatConfig{
			GatewayURL:   cfg.AI.GatewayURL,
			GatewayKey:   cfg.AI.GatewayKey,
			Model:        cfg.AI.Model,
			SystemPrompt: cfg.AI.SystemPrompt,
			Timeout:      cfg.AI.Timeout,
		},
		ChatEnabled:    cfg.AI.GatewayKey != "",
		DefaultTimeout: 5 * time.Second,
	})
	if err := serviceManager.Initialize(context.Background()); err != nil {
		log.Fatalf("Failed to initialize services: %v", err)
	}
	if serviceManager.Chat() == nil {
		logger.Warn("AI_GATEWAY_KEY is not set, chat is disabled")
	}
	if cfg.ParentLoginAPIKey == "" {
		logger.Warn("PARENT_LOGIN_API_KEY is not set, parent login will reject every request")
	}

	// Portal roles refine the Casdoor account type
	authMiddleware := handlers.NewCasdoorAuthMiddleware(cfg.Casdoor, repo.User(), serviceManager.Staff(), logger)
	handlerManager := handlers.NewHandlerManager(serviceManager, logger, authMiddleware, cfg.ParentLoginAPIKey)

	// Setup Gin router
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handlers.SetupMiddleware(router, logger)
	handlerManager.SetupRoutes(router)

	group := runner.Group{
		&runner.HTTPServer{
			Server: &http.Server{
				Addr:              fmt.Sprintf(":%s", cfg.Port),
				Handler:           router,
				ReadHeaderTimeout: 10 * time.Second,
			},
			ShutdownTimeout: 30 * time.Second,
			Logger:          slogLogger,
		},
		events.NewCacheInvalidator(bus, cacheManager, slogLogger),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting school portal service", "port", cfg.Port, "environment", cfg.Environment, "kafka", cfg.KafkaEnabled())
	runErr := group.Run(ctx)
	if runErr != nil {
		logger.Error("Service stopped with error", "error", runErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Closes the event publisher, the database pool and redis
	if err := serviceManager.Shutdown(shutdownCtx); err != nil {
		logger.Error("Failed to shutdown services", "error", err)
	}
	if err := bus.Subscriber.Close(); err != nil {
		logger.Error("Failed to close event subscriber", "error", err)
	}

	logger.Info("Server exited")
	if runErr != nil {
		os.Exit(1)
	}
}
