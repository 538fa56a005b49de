package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fekuna/omnipos-catalog-service/config"
	"github.com/fekuna/omnipos-catalog-service/internal/broker"
	"github.com/fekuna/omnipos-catalog-service/internal/cache"
	"github.com/fekuna/omnipos-catalog-service/internal/catalog/listener"
	"github.com/fekuna/omnipos-catalog-service/internal/database"
	"github.com/fekuna/omnipos-catalog-service/internal/logger"
	"github.com/fekuna/omnipos-catalog-service/internal/metrics"
	"github.com/fekuna/omnipos-catalog-service/internal/schema"

	offerRepoPkg "github.com/fekuna/omnipos-catalog-service/internal/offer/repository"
	offerUCPkg "github.com/fekuna/omnipos-catalog-service/internal/offer/usecase"
	prodRepoPkg "github.com/fekuna/omnipos-catalog-service/internal/product/repository"
	variantRepoPkg "github.com/fekuna/omnipos-catalog-service/internal/variant/repository"
	variantUCPkg "github.com/fekuna/omnipos-catalog-service/internal/variant/usecase"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

func main() {
	// 1. Load Configuration
	_ = godotenv.Load() // Load .env file if it exists
	cfg := config.LoadEnv()

	// 2. Initialize Logger
	logConfig := &logger.ZapLoggerConfig{
		IsDevelopment:     false,
		Encoding:          cfg.Logger.Encoding,
		Level:             cfg.Logger.Level,
		DisableCaller:     cfg.Logger.DisableCaller,
		DisableStacktrace: cfg.Logger.DisableStacktrace,
	}
	if cfg.Server.AppEnv == "development" {
		logConfig.IsDevelopment = true
	}

	appLogger := logger.NewZapLogger(logConfig)
	defer appLogger.Sync()

	// 3. Connect to Database
	db, err := database.NewPostgres(&database.Config{
		Host:            cfg.Postgres.Host,
		Port:            cfg.Postgres.Port,
		User:            cfg.Postgres.User,
		Password:        cfg.Postgres.Password,
		DBName:          cfg.Postgres.DBName,
		SSLMode:         cfg.Postgres.SSLMode,
		MaxOpenConns:    cfg.Postgres.MaxOpenConns,
		MaxIdleConns:    cfg.Postgres.MaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.Postgres.ConnMaxLifetime) * time.Second,
		ConnMaxIdleTime: time.Duration(cfg.Postgres.ConnMaxIdleTime) * time.Second,
	})
	if err != nil {
		appLogger.Fatal("Could not connect to database", zap.Error(err))
	}
	defer db.Close()
	appLogger.Info("Connected to PostgreSQL database", zap.String("db_name", cfg.Postgres.DBName))

	// 4. Resolve schema capabilities
	var caps schema.Capability = schema.FullCatalog()
	if cfg.Catalog.IntrospectSchema {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		introspected, err := schema.Introspect(ctx, db, schema.DefaultMappings())
		cancel()
		if err != nil {
			appLogger.Warn("Schema introspection failed, assuming full catalog schema", zap.Error(err))
		} else {
			caps = introspected
			appLogger.Info("Schema capabilities introspected")
		}
	}

	// 5. Initialize Repositories
	txManager := database.NewTxManager(db)
	prodRepo := prodRepoPkg.NewPGRepository(db, caps)
	variantRepo := variantRepoPkg.NewPGRepository(db, caps)
	offerRepo := offerRepoPkg.NewPGRepository(db, caps)

	// 6. Initialize Redis
	var variantCache variantUCPkg.Cache
	redisClient, err := cache.NewRedisClient(&cache.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		appLogger.Warn("Could not connect to Redis, variant lists will not be cached", zap.Error(err))
	} else {
		defer redisClient.Close()
		variantCache = redisClient
		appLogger.Info("Connected to Redis", zap.String("addr", cfg.Redis.Addr))
	}

	// 7. Initialize Kafka
	eventProducer := broker.NewProducer(&broker.Config{
		Brokers: cfg.Kafka.Brokers,
		Topic:   cfg.Kafka.EventTopic,
	})
	defer eventProducer.Close()

	// 8. Initialize UseCases
	variantUC := variantUCPkg.NewVariantUseCase(
		variantRepo, prodRepo, txManager, caps, variantCache, eventProducer, appLogger,
		variantUCPkg.Options{
			SKUMaxAttempts: cfg.Catalog.SKUMaxAttempts,
			CacheTTL:       time.Duration(cfg.Catalog.VariantCacheTTLSecs) * time.Second,
		},
	)
	offerUC := offerUCPkg.NewOfferUseCase(offerRepo, prodRepo, variantRepo, txManager, caps, eventProducer, appLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 9. Start command listener
	if cfg.Kafka.EnableCommand {
		kafkaConsumer := broker.NewConsumer(&broker.Config{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.CommandTopic,
			GroupID: cfg.Kafka.GroupID,
		})
		defer kafkaConsumer.Close()
		appLogger.Info("Connected to Kafka Consumer",
			zap.Strings("brokers", cfg.Kafka.Brokers),
			zap.String("topic", cfg.Kafka.CommandTopic),
		)

		catalogListener := listener.NewCatalogListener(kafkaConsumer, variantUC, offerUC, eventProducer, appLogger)
		go catalogListener.Start(ctx)
	}

	// 10. Start metrics server
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	metricsServer := &http.Server{Addr: cfg.Metrics.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error("metrics server stopped", zap.Error(err))
		}
	}()
	appLogger.Info("Serving metrics", zap.String("addr", cfg.Metrics.Addr))

	// 11. Start gRPC Server
	port := cfg.Server.GRPCPort
	if !strings.HasPrefix(port, ":") {
		port = ":" + port
	}

	lis, err := net.Listen("tcp", port)
	if err != nil {
		log.Fatalf("failed to listen: %v", err)
	}

	grpcServer := grpc.NewServer()

	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	// Register Reflection
	reflection.Register(grpcServer)

	appLogger.Info("Starting gRPC server", zap.String("port", port))

	// Graceful Shutdown
	go func() {
		if err := grpcServer.Serve(lis); err != nil {
			appLogger.Fatal("failed to serve", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")
	healthServer.Shutdown()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		appLogger.Warn("metrics server shutdown", zap.Error(err))
	}
	grpcServer.GracefulStop()
	appLogger.Info("Server stopped")
}
