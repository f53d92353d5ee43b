package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/cloud-wave-best-zizon/pharmacy-service/internal/cache"
	"github.com/cloud-wave-best-zizon/pharmacy-service/internal/events"
	"github.com/cloud-wave-best-zizon/pharmacy-service/internal/handler"
	"github.com/cloud-wave-best-zizon/pharmacy-service/internal/repository"
	"github.com/cloud-wave-best-zizon/pharmacy-service/internal/repository/memory"
	"github.com/cloud-wave-best-zizon/pharmacy-service/internal/repository/postgres"
	"github.com/cloud-wave-best-zizon/pharmacy-service/internal/service"
	"github.com/cloud-wave-best-zizon/pharmacy-service/pkg/config"
	"github.com/cloud-wave-best-zizon/pharmacy-service/pkg/logger"
	"github.com/cloud-wave-best-zizon/pharmacy-service/pkg/tls"
)

type repositories struct {
	drugs      repository.DrugRepository
	pharmacies repository.PharmacyRepository
	inventory  repository.InventoryRepository
	closers    []func() error
}

func main() {
	// Config 로드
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	// Logger 초기화
	zl, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatal("Failed to create logger:", err)
	}
	defer zl.Sync()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	repos, err := buildRepositories(ctx, cfg, zl)
	if err != nil {
		zl.Fatal("Failed to initialize storage", zap.Error(err))
	}
	defer func() {
		for _, closeFn := range repos.closers {
			if err := closeFn(); err != nil {
				zl.Warn("Failed to close resource", zap.Error(err))
			}
		}
	}()

	// Service 초기화
	catalogService := service.NewCatalogService(repos.drugs, zl)
	pharmacyService := service.NewPharmacyService(repos.pharmacies, zl)
	inventoryService := service.NewInventoryService(repos.inventory, repos.drugs, cfg.MaxWriteRetries, zl)
	matchService := service.NewMatchService(catalogService, pharmacyService, inventoryService, service.MatchConfig{
		Concurrency:     cfg.SearchConcurrency,
		Timeout:         cfg.SearchTimeout,
		DefaultPageSize: cfg.DefaultPageSize,
		MaxPageSize:     cfg.MaxPageSize,
	}, zl)

	// Kafka 연결 (브로커가 설정된 경우에만)
	var consumer *events.KafkaConsumer
	if cfg.KafkaEnabled() {
		producer := events.NewKafkaProducer(cfg.KafkaBrokers, cfg.InventoryTopic, zl)
		defer producer.Close()
		inventoryService.SetPublisher(producer)

		consumer = events.NewKafkaConsumer(cfg.KafkaBrokers, cfg.OrderTopic, cfg.ConsumerGroup, inventoryService, zl)
		consumer.SetCompensationProducer(producer)
		consumer.Start(ctx)
	} else {
		zl.Info("Kafka disabled, order events will not be consumed")
	}

	if cfg.JWTSecret == "" {
		zl.Warn("JWT_SECRET is not set, authenticated routes will reject every request")
	}

	router := handler.NewRouter(handler.Handlers{
		Search:    handler.NewSearchHandler(matchService, zl),
		Drug:      handler.NewDrugHandler(catalogService, zl),
		Pharmacy:  handler.NewPharmacyHandler(pharmacyService, zl),
		Inventory: handler.NewInventoryHandler(inventoryService, pharmacyService, zl),
	}, cfg.JWTSecret, zl)

	// Server 시작
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	tlsSource, err := tls.Load(ctx, cfg.Settings, zl)
	if err != nil {
		zl.Fatal("Failed to load TLS configuration", zap.Error(err))
	}
	if tlsSource != nil {
		defer tlsSource.Close()
		srv.TLSConfig = tlsSource.ServerConfig()
		go tlsSource.Watch(ctx, cfg.WatchInterval)
	}

	go func() {
		zl.Info("Starting server",
			zap.String("port", cfg.Port),
			zap.Bool("tls", tlsSource != nil))
		var err error
		if tlsSource != nil {
			err = srv.ListenAndServeTLS("", "")
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			zl.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zl.Info("Shutting down server...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Error("Server forced to shutdown", zap.Error(err))
	}
	if consumer != nil {
		if err := consumer.Stop(); err != nil {
			zl.Warn("Failed to close Kafka consumer", zap.Error(err))
		}
	}
	zl.Info("Server exited")
}

func buildRepositories(ctx context.Context, cfg *config.Config, zl *zap.Logger) (*repositories, error) {
	repos := &repositories{}

	if cfg.LocalMode {
		zl.Info("Running in local mode with in-memory storage")
		repos.drugs = memory.NewDrugRepository()
		repos.pharmacies = memory.NewPharmacyRepository()
		repos.inventory = memory.NewInventoryRepository()
	} else {
		// DynamoDB 클라이언트 초기화
		dynamoClient, err := repository.NewDynamoDBClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		repos.drugs = repository.NewDrugRepository(dynamoClient, cfg.DrugTableName)
		repos.pharmacies = repository.NewPharmacyRepository(dynamoClient, cfg.PharmacyTableName)
		repos.inventory = repository.NewInventoryRepository(dynamoClient, cfg.InventoryTableName)
	}

	if cfg.CatalogBackend == "postgres" {
		db, err := postgres.Connect(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		repos.closers = append(repos.closers, db.Close)

		pg := postgres.NewDrugRepository(db)
		if err := pg.Migrate(ctx); err != nil {
			return nil, err
		}
		repos.drugs = pg
		zl.Info("Catalog stored in PostgreSQL")
	}

	if cfg.CacheEnabled() {
		client, err := cache.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, err
		}
		repos.closers = append(repos.closers, client.Close)
		repos.drugs = cache.NewCatalogCache(repos.drugs, client, cfg.CatalogCacheTTL, zl)
		zl.Info("Catalog cache enabled", zap.String("redis_addr", cfg.RedisAddr))
	}

	return repos, nil
}
