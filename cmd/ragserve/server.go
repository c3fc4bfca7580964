package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/cortexa-labs/ragserve/api/handlers"
	"github.com/cortexa-labs/ragserve/chat"
	"github.com/cortexa-labs/ragserve/config"
	"github.com/cortexa-labs/ragserve/dispatch"
	"github.com/cortexa-labs/ragserve/embedding"
	"github.com/cortexa-labs/ragserve/inference"
	"github.com/cortexa-labs/ragserve/internal/database"
	"github.com/cortexa-labs/ragserve/internal/metrics"
	"github.com/cortexa-labs/ragserve/internal/server"
	"github.com/cortexa-labs/ragserve/knowledge"
	"github.com/cortexa-labs/ragserve/persona"
	"github.com/cortexa-labs/ragserve/prompt"
	"github.com/cortexa-labs/ragserve/rag"
)

// Server wires the whole service together: knowledge store, embedding and
// inference clients, dispatcher, orchestrator, HTTP handlers and middleware.
type Server struct {
	config  *config.Config
	logger  *zap.Logger
	metrics *metrics.Collector

	dbPool          *database.PoolManager
	mongoDisconnect func(context.Context) error
	rateLimiterStop context.CancelFunc
	knowledgeStore  *knowledge.Store
	gateway         *inference.Client
	httpServer      *server.Manager
}

// NewServer builds the service from configuration. It opens backing
// connections eagerly so that misconfiguration fails at startup.
func NewServer(cfg *config.Config, logger *zap.Logger) (*Server, error) {
	s := &Server{
		config:  cfg,
		logger:  logger,
		metrics: metrics.NewCollector("ragserve", nil, logger),
	}

	artifacts, err := s.buildArtifactStore()
	if err != nil {
		return nil, err
	}

	s.knowledgeStore = knowledge.NewStore(artifacts, logger)
	s.knowledgeStore.SetHooks(knowledge.Hooks{
		OnHit:  s.metrics.RecordCacheHit,
		OnMiss: s.metrics.RecordCacheMiss,
	})

	identities, err := s.buildIdentityService()
	if err != nil {
		return nil, err
	}

	embedder := embedding.NewClient(embedding.Config{
		BaseURL: cfg.Embedding.BaseURL,
		APIKey:  cfg.Embedding.APIKey,
		Model:   cfg.Embedding.Model,
		Timeout: cfg.Embedding.Timeout,
	})

	s.gateway = inference.NewClient(inference.Config{
		BaseURL:     cfg.Inference.BaseURL,
		APIKey:      cfg.Inference.APIKey,
		Temperature: cfg.Inference.Temperature,
		Timeout:     cfg.Inference.Timeout,
	})
	registry := inference.NewRegistry(s.gateway, cfg.Inference.ModelPrefix, logger)

	dispatcher := dispatch.NewDispatcher()
	dispatcher.SetHooks(dispatch.Hooks{
		OnAcquire: s.metrics.ReplicaAcquired,
		OnRelease: s.metrics.ReplicaReleased,
	})

	orchestrator := chat.NewOrchestrator(chat.Config{
		Bundles:    s.knowledgeStore,
		Identities: identities,
		Embedder:   embedder,
		Retriever:  rag.NewRetriever(cfg.Retrieval.TopK, logger),
		Replicas:   registry,
		Dispatcher: dispatcher,
		Completer:  s.gateway,
		Builder:    prompt.NewBuilder(),
		Metrics:    s.metrics,
		Timeout:    cfg.Inference.Timeout,
		Logger:     logger,
	})

	handler := s.buildHandler(orchestrator)

	s.httpServer = server.NewManager(handler, server.Config{
		Addr:            cfg.Server.Addr,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     cfg.Server.IdleTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, logger)

	return s, nil
}

func (s *Server) buildArtifactStore() (knowledge.ArtifactStore, error) {
	switch s.config.Knowledge.Backend {
	case "fs":
		return knowledge.NewFSStore(s.config.Knowledge.Root), nil
	case "db":
		pool, err := openDatabase(s.config.Database, s.logger)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		s.dbPool = pool
		store, err := knowledge.NewDBStore(pool.DB())
		if err != nil {
			return nil, fmt.Errorf("init artifact tables: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown knowledge backend %q", s.config.Knowledge.Backend)
	}
}

func (s *Server) buildIdentityService() (persona.Service, error) {
	switch s.config.Identity.Mode {
	case "http":
		return persona.NewClient(persona.ClientConfig{
			BaseURL: s.config.Identity.BaseURL,
			APIKey:  s.config.Identity.APIKey,
			Timeout: s.config.Identity.Timeout,
		}), nil
	case "mongo":
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		store, disconnect, err := persona.ConnectMongoStore(ctx,
			s.config.Identity.MongoURI,
			s.config.Identity.MongoDatabase,
			s.config.Identity.MongoCollection,
		)
		if err != nil {
			return nil, fmt.Errorf("connect identity store: %w", err)
		}
		s.mongoDisconnect = disconnect
		return store, nil
	default:
		return nil, fmt.Errorf("unknown identity mode %q", s.config.Identity.Mode)
	}
}

func (s *Server) buildHandler(orchestrator *chat.Orchestrator) http.Handler {
	chatHandler := handlers.NewChatHandler(orchestrator, s.metrics, s.logger)

	healthHandler := handlers.NewHealthHandler(s.logger)
	if s.dbPool != nil {
		healthHandler.RegisterCheck(handlers.NewProbe("database", s.dbPool.Ping))
	}
	healthHandler.RegisterCheck(handlers.NewProbe("inference_gateway", func(ctx context.Context) error {
		_, err := s.gateway.ListModels(ctx)
		return err
	}))

	mux := http.NewServeMux()
	mux.HandleFunc("/chat", requirePost(chatHandler.HandleChat))
	mux.HandleFunc("/health", healthHandler.HandleHealth)
	mux.HandleFunc("/ready", healthHandler.HandleReady)
	mux.HandleFunc("/version", healthHandler.HandleVersion(Version, BuildTime, GitCommit))
	mux.Handle("/metrics", promhttp.Handler())

	middlewares := []Middleware{
		Recovery(s.logger),
		RequestID(),
		SecurityHeaders(),
		RequestLogger(s.logger),
		MetricsMiddleware(s.metrics),
	}
	if len(s.config.Server.CORSAllowedOrigins) > 0 {
		middlewares = append(middlewares, CORS(s.config.Server.CORSAllowedOrigins))
	}
	if s.config.RateLimit.Enabled {
		limiter, stop := RateLimiter(s.config.RateLimit.RPS, s.config.RateLimit.Burst, s.logger)
		s.rateLimiterStop = stop
		middlewares = append(middlewares, limiter)
	}

	return Chain(mux, middlewares...)
}

func requirePost(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		next(w, r)
	}
}

// Start begins serving HTTP traffic.
func (s *Server) Start() error {
	s.logger.Info("server listening",
		zap.String("addr", s.config.Server.Addr),
		zap.String("knowledge_backend", s.config.Knowledge.Backend),
		zap.String("identity_mode", s.config.Identity.Mode),
		zap.String("model_prefix", s.config.Inference.ModelPrefix),
	)
	return s.httpServer.Start()
}

// WaitForShutdown blocks until a termination signal, then drains.
func (s *Server) WaitForShutdown() {
	s.httpServer.WaitForShutdown()
	s.cleanup()
}

// Shutdown stops the server explicitly.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	s.cleanup()
	return err
}

func (s *Server) cleanup() {
	if s.rateLimiterStop != nil {
		s.rateLimiterStop()
	}
	if s.mongoDisconnect != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.mongoDisconnect(ctx); err != nil {
			s.logger.Warn("identity store disconnect failed", zap.Error(err))
		}
	}
	if s.dbPool != nil {
		if err := s.dbPool.Close(); err != nil {
			s.logger.Warn("database close failed", zap.Error(err))
		}
	}
}

func openDatabase(cfg config.DatabaseConfig, logger *zap.Logger) (*database.PoolManager, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}

	poolCfg := database.DefaultPoolConfig()
	if cfg.MaxOpenConns > 0 {
		poolCfg.MaxOpenConns = cfg.MaxOpenConns
	}
	if cfg.MaxIdleConns > 0 {
		poolCfg.MaxIdleConns = cfg.MaxIdleConns
	}
	if cfg.ConnMaxLifetime > 0 {
		poolCfg.ConnMaxLifetime = cfg.ConnMaxLifetime
	}
	return database.NewPoolManager(db, poolCfg, logger)
}
