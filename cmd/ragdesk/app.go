package main

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/liliang-cn/ragdesk/internal/api"
	"github.com/liliang-cn/ragdesk/internal/api/booking"
	"github.com/liliang-cn/ragdesk/internal/api/chat"
	"github.com/liliang-cn/ragdesk/internal/api/documents"
	"github.com/liliang-cn/ragdesk/internal/api/health"
	"github.com/liliang-cn/ragdesk/internal/cache"
	"github.com/liliang-cn/ragdesk/internal/config"
	"github.com/liliang-cn/ragdesk/internal/llm"
	"github.com/liliang-cn/ragdesk/internal/repository"
	"github.com/liliang-cn/ragdesk/internal/service"
	"github.com/liliang-cn/ragdesk/internal/validator"
	"github.com/liliang-cn/ragdesk/internal/vectorstore"
	redisv9 "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// app holds the long-lived clients shared by every request
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *repository.DB
	store  *vectorstore.QdrantStore
	redis  *redisv9.Client
}

// openStorage opens SQLite and Qdrant and makes sure both are migrated
func openStorage(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	db, err := repository.NewDB(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	logger.Info("Database ready", zap.String("path", cfg.Database.Path))

	store, err := vectorstore.NewQdrantStore(cfg.Qdrant, cfg.Embedding.Dimension, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	if err := store.EnsureCollection(ctx); err != nil {
		store.Close()
		db.Close()
		return nil, err
	}

	return &app{cfg: cfg, logger: logger, db: db, store: store}, nil
}

// connectCache connects to Redis when enabled. A failed connection only
// disables the history cache.
func (a *app) connectCache(ctx context.Context) {
	if !a.cfg.Redis.Enabled {
		return
	}
	client, err := cache.NewRedisClient(ctx, a.cfg.Redis.Addr, a.cfg.Redis.Password, a.cfg.Redis.DB)
	if err != nil {
		a.logger.Warn("Redis unavailable, running without history cache", zap.String("addr", a.cfg.Redis.Addr), zap.Error(err))
		return
	}
	a.redis = client
	a.logger.Info("History cache enabled", zap.String("addr", a.cfg.Redis.Addr))
}

// router wires repositories, clients, services and handlers
func (a *app) router() *gin.Engine {
	cfg := a.cfg

	docRepo := repository.NewDocumentRepository(a.db)
	convRepo := repository.NewConversationRepository(a.db)
	bookingRepo := repository.NewBookingRepository(a.db)

	completer := llm.NewClient(cfg.LLM, a.logger)
	embedder := llm.NewEmbedder(cfg.Embedding)

	probes := map[string]health.Probe{
		"sqlite": a.db.Ping,
		"qdrant": a.store.Health,
	}

	var historyCache service.HistoryCache
	if a.redis != nil {
		hc := cache.NewHistoryCache(a.redis, cfg.Redis.HistoryTTL, cfg.Redis.DirtyTTL)
		historyCache = hc
		probes["redis"] = hc.Ping
	}

	memory := service.NewMemoryService(convRepo, historyCache, cfg.RAG.HistoryWindow, a.logger)
	ingestService := service.NewIngestService(cfg, docRepo, embedder, a.store, a.logger)
	chatService := service.NewChatService(cfg, memory, embedder, a.store, completer, a.logger)
	bookingService := service.NewBookingService(bookingRepo, completer,
		validator.NewBookingValidator(cfg.Booking.OpenHour, cfg.Booking.CloseHour), a.logger)

	gin.SetMode(cfg.Server.Mode)

	return api.SetupRouter(api.Handlers{
		Documents: documents.NewHandler(ingestService, cfg.Storage.MaxFileSize()),
		Chat:      chat.NewHandler(chatService, memory),
		Booking:   booking.NewHandler(bookingService),
		Health:    health.NewHandler("ragdesk", probes),
	}, api.RouterConfig{
		APIPrefix:    cfg.APIPrefix(),
		APIKey:       cfg.Admin.APIKey,
		AllowOrigins: cfg.CORS.AllowOrigins,
	}, a.logger)
}

func (a *app) Close() {
	if a.redis != nil {
		a.redis.Close()
	}
	a.store.Close()
	a.db.Close()
}
