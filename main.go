package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"shopbot-svc/assistant"
	"shopbot-svc/cache"
	"shopbot-svc/config"
	"shopbot-svc/database"
	shopgrpc "shopbot-svc/grpc"
	"shopbot-svc/handlers"
	"shopbot-svc/kafka"
	"shopbot-svc/middleware"
	"shopbot-svc/models"
	"shopbot-svc/notification"
	"shopbot-svc/purchase"
	"shopbot-svc/router"
	"shopbot-svc/telegram"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

const serviceName = "shopbot"

func main() {
	cfg, cfgErr := config.Load()
	level := "info"
	if cfg != nil {
		level = cfg.LogLevel
	}

	// Initialize logger
	logger, err := middleware.NewLogger(level)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	if cfgErr != nil {
		logger.Fatal("Invalid configuration", zap.Error(cfgErr))
	}

	// Initialize OpenTelemetry
	shutdownTracing, err := middleware.InitTracing(serviceName, cfg.JaegerEndpoint)
	if err != nil {
		logger.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	defer shutdownTracing()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gateway, err := telegram.New(cfg.BotToken, logger)
	if err != nil {
		logger.Fatal("Failed to initialize Telegram gateway", zap.Error(err))
	}

	store, closeStore, err := newFulfillmentStore(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize fulfillment store", zap.Error(err))
	}
	defer closeStore()

	relay := notification.NewRelay(gateway, cfg.OperatorChatID, logger)
	publisher, closeEvents, err := newEventPublisher(ctx, cfg, relay, logger)
	if err != nil {
		logger.Fatal("Failed to initialize purchase events", zap.Error(err))
	}
	defer closeEvents()

	product := models.NewProduct(cfg.StarsPrice, cfg.ProductURL)
	controller := purchase.NewController(product, gateway, store, logger, purchase.WithPublisher(publisher))
	defer controller.Close()

	assistantClient := assistant.NewClient(assistant.Config{
		APIKey:  cfg.AssistantAPIKey,
		URL:     cfg.AssistantURL,
		Model:   cfg.AssistantModel,
		Timeout: cfg.AssistantTimeout,
	}, logger)
	if cfg.AssistantAPIKey == "" {
		logger.Warn("ASSISTANT_API_KEY is not set, free-text questions get the fallback reply")
	}
	intents := router.New(product, assistantClient, router.NewLocalLimiter(cfg.AssistantRatePerMinute), logger)

	dispatcher := handlers.NewDispatcher(gateway, controller, intents, logger)

	// Setup REST API with Gin
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(otelgin.Middleware(serviceName))
	engine.Use(middleware.LoggerMiddleware(logger))
	engine.Use(middleware.MetricsMiddleware())

	engine.GET("/", handlers.Liveness)
	engine.HEAD("/", handlers.Liveness)
	engine.GET("/health", handlers.HealthCheck)
	engine.GET("/metrics", middleware.PrometheusHandler())

	restSrv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: engine,
	}

	go func() {
		if err := restSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start REST server", zap.Error(err))
		}
	}()
	logger.Info("Liveness server started", zap.String("port", cfg.Port))

	var grpcServer *shopgrpc.Server
	if cfg.GRPCPort != "" {
		grpcListener, err := net.Listen("tcp", ":"+cfg.GRPCPort)
		if err != nil {
			logger.Fatal("Failed to listen on gRPC port", zap.Error(err))
		}
		grpcServer = shopgrpc.NewServer(logger)
		go func() {
			if err := grpcServer.Serve(grpcListener); err != nil {
				logger.Fatal("Failed to start gRPC server", zap.Error(err))
			}
		}()
		grpcServer.SetServing(true)
		logger.Info("gRPC health server started", zap.String("port", cfg.GRPCPort))
	}

	logger.Info("Bot started",
		zap.String("product", models.ProductID),
		zap.Int64("price", product.Price),
		zap.String("store", cfg.FulfillmentStore),
	)

	if err := gateway.Run(ctx, cfg.WorkerLimit, dispatcher.Dispatch); err != nil {
		logger.Error("Update loop stopped", zap.Error(err))
	}
	stop()

	logger.Info("Shutting down servers...")

	if grpcServer != nil {
		grpcServer.GracefulStop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := restSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("REST server forced to shutdown", zap.Error(err))
	}

	logger.Info("Bot stopped")
}

func newFulfillmentStore(cfg *config.Config, logger *zap.Logger) (purchase.FulfillmentStore, func(), error) {
	switch cfg.FulfillmentStore {
	case "postgres":
		db, err := database.InitDB(cfg.DB.DSN(), logger)
		if err != nil {
			return nil, nil, err
		}
		return database.NewFulfillmentStore(db), func() { db.Close() }, nil
	case "redis":
		rdb, err := cache.InitRedis(cfg.Redis.Addr(), cfg.Redis.Password, logger)
		if err != nil {
			return nil, nil, err
		}
		return cache.NewFulfillmentStore(rdb), func() { rdb.Close() }, nil
	default:
		logger.Warn("Using in-memory fulfillment store, deliveries are forgotten on restart")
		return purchase.NewMemoryStore(), func() {}, nil
	}
}

// newEventPublisher routes purchase events through Kafka when a broker is
// configured, with a consumer relaying them to the operator. Otherwise the
// relay receives them directly.
func newEventPublisher(ctx context.Context, cfg *config.Config, relay *notification.Relay, logger *zap.Logger) (purchase.EventPublisher, func(), error) {
	if cfg.KafkaBroker == "" {
		return relay, func() {}, nil
	}

	producer, err := kafka.InitProducer(cfg.KafkaBroker, logger)
	if err != nil {
		return nil, nil, err
	}

	consumer, err := kafka.InitConsumer(cfg.KafkaBroker, logger)
	if err != nil {
		producer.Close()
		return nil, nil, err
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := kafka.NewConsumer(consumer, cfg.KafkaTopic, relay, logger).Run(ctx); err != nil {
			logger.Error("Kafka consumer error", zap.Error(err))
		}
	}()

	closeFn := func() {
		<-done
		consumer.Close()
		producer.Close()
	}
	return kafka.NewPublisher(producer, cfg.KafkaTopic, logger), closeFn, nil
}

func init() {
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}
}
