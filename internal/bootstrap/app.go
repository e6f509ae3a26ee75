package bootstrap

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"bookwise/internal/ai"
	"bookwise/internal/app"
	"bookwise/internal/cache"
	"bookwise/internal/chunker"
	"bookwise/internal/config"
	"bookwise/internal/library"
	"bookwise/internal/model"
	"bookwise/internal/pdfload"
	mysqlClient "bookwise/internal/platform/mysql"
	rabbitmqClient "bookwise/internal/platform/rabbitmq"
	redisClient "bookwise/internal/platform/redis"
	"bookwise/internal/repository"
	"bookwise/internal/vectorstore"
	"bookwise/internal/worker"
)

// App wires every component together: the RAG pipeline, its backing
// services, and the background ingest worker.
type App struct {
	Config *config.Config
	Logger zerolog.Logger

	Library  *library.Library
	Embedder ai.Embedder
	Store    *vectorstore.Store

	IngestService *app.IngestService
	QueryService  *app.QueryService
	Publisher     *rabbitmqClient.IngestPublisher

	MySQL        *gorm.DB
	Redis        *redis.Client
	MQConn       *amqp.Connection
	IngestWorker *worker.IngestWorker

	StartedAt time.Time
}

func New(ctx context.Context, logger zerolog.Logger) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}

	lib, err := library.New(cfg.Library.Root)
	if err != nil {
		return nil, fmt.Errorf("open library failed: %w", err)
	}

	store, err := vectorstore.New(cfg.Store.Dir)
	if err != nil {
		return nil, err
	}

	embedder, err := ai.NewEmbedder(cfg.Embedding)
	if err != nil {
		return nil, fmt.Errorf("init embedder failed: %w", err)
	}

	mysqlDB, err := mysqlClient.New(ctx, cfg.MySQLDSN())
	if err != nil {
		return nil, err
	}
	if err := mysqlDB.AutoMigrate(&model.Book{}); err != nil {
		return nil, fmt.Errorf("auto migrate tables failed: %w", err)
	}

	redisCli, err := redisClient.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, err
	}

	mqConn, err := rabbitmqClient.New(ctx, cfg.RabbitMQ.URL)
	if err != nil {
		return nil, err
	}

	bookRepo := repository.NewBookRepository(mysqlDB)
	history := cache.NewHistoryCache(
		redisCli,
		time.Duration(cfg.Redis.HistoryTTLSeconds)*time.Second,
		cfg.RAG.MaxHistoryTurns,
	)
	llmClient := ai.NewOpenAICompatibleClient(ai.ChatConfig{
		BaseURL:           cfg.LLM.BaseURL,
		APIKey:            cfg.LLM.APIKey,
		Model:             cfg.LLM.Model,
		Timeout:           cfg.LLM.Timeout(),
		RequestsPerMinute: cfg.LLM.RequestsPerMinute,
	})

	ingestService := app.NewIngestService(
		lib,
		pdfload.NewLoader(),
		chunker.New(cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap),
		embedder,
		store,
		bookRepo,
		logger,
	)
	queryService := app.NewQueryService(
		embedder,
		store,
		llmClient,
		history,
		lib,
		cfg.RAG.TopK,
		logger,
	)

	publisher := rabbitmqClient.NewIngestPublisher(mqConn, cfg.RabbitMQ.IngestQueue)
	ingestWorker := worker.NewIngestWorker(mqConn, ingestService, cfg.RabbitMQ.IngestQueue, logger)
	if err := ingestWorker.Start(ctx); err != nil {
		return nil, fmt.Errorf("start ingest worker failed: %w", err)
	}

	return &App{
		Config:        cfg,
		Logger:        logger,
		Library:       lib,
		Embedder:      embedder,
		Store:         store,
		IngestService: ingestService,
		QueryService:  queryService,
		Publisher:     publisher,
		MySQL:         mysqlDB,
		Redis:         redisCli,
		MQConn:        mqConn,
		IngestWorker:  ingestWorker,
		StartedAt:     time.Now(),
	}, nil
}

func (a *App) Close() error {
	var closeErr error
	if a.IngestWorker != nil {
		a.IngestWorker.Close()
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MySQL != nil {
		sqlDB, err := a.MySQL.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErr = err
			}
		}
	}
	if a.Embedder != nil {
		if err := a.Embedder.Close(); err != nil {
			closeErr = err
		}
	}
	return closeErr
}
