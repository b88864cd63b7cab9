package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-catalog/pkg/adapters/datasource"
	_ "github.com/ekaya-inc/ekaya-catalog/pkg/adapters/datasource/clickhouse"
	_ "github.com/ekaya-inc/ekaya-catalog/pkg/adapters/datasource/duckdb"
	_ "github.com/ekaya-inc/ekaya-catalog/pkg/adapters/datasource/mssql"
	_ "github.com/ekaya-inc/ekaya-catalog/pkg/adapters/datasource/postgres"
	"github.com/ekaya-inc/ekaya-catalog/pkg/cache"
	"github.com/ekaya-inc/ekaya-catalog/pkg/catalog"
	"github.com/ekaya-inc/ekaya-catalog/pkg/config"
	"github.com/ekaya-inc/ekaya-catalog/pkg/database"
	"github.com/ekaya-inc/ekaya-catalog/pkg/handlers"
	"github.com/ekaya-inc/ekaya-catalog/pkg/llm"
	"github.com/ekaya-inc/ekaya-catalog/pkg/logging"
	"github.com/ekaya-inc/ekaya-catalog/pkg/mcp"
	"github.com/ekaya-inc/ekaya-catalog/pkg/mcp/tools"
	"github.com/ekaya-inc/ekaya-catalog/pkg/metrics"
	"github.com/ekaya-inc/ekaya-catalog/pkg/middleware"
	"github.com/ekaya-inc/ekaya-catalog/pkg/repositories"
	"github.com/ekaya-inc/ekaya-catalog/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	// Load configuration
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("env", cfg.Env),
		zap.String("base_url", cfg.BaseURL),
		zap.Int("datasources", len(cfg.Datasources)),
		zap.String("cache_backend", cfg.Cache.Backend),
		zap.Bool("llm_available", cfg.LLM.IsAvailable()),
		zap.Bool("marketplace_enabled", cfg.Marketplace.Enabled),
		zap.Bool("mcp_enabled", cfg.MCP.Enabled),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("Server failed", zap.String("error", logging.SanitizeError(err)))
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	if cfg.Metrics.Enabled {
		metrics.Init()
	}

	// Datasources
	connManager := datasource.NewConnectionManager(datasource.ConnectionManagerConfig{
		TTLMinutes:   cfg.Pool.ConnectionTTLMinutes,
		PoolMaxConns: cfg.Pool.MaxConns,
		PoolMinConns: cfg.Pool.MinConns,
	}, logger)
	defer connManager.Close()

	factory := datasource.NewFactory(connManager, time.Duration(cfg.Pool.QueryTimeoutSeconds)*time.Second, logger)
	sources := services.NewSourceSet(cfg.Datasources, factory, logger)
	defer sources.Close()

	// Fetch cache
	fetchCache, closeCache, err := newFetchCache(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeCache()

	taxonomy := catalog.DefaultTaxonomy()
	if cfg.Catalog.CategoriesFile != "" {
		taxonomy, err = catalog.LoadTaxonomy(cfg.Catalog.CategoriesFile)
		if err != nil {
			return fmt.Errorf("failed to load categories: %w", err)
		}
	}

	// Services
	usageService := services.NewUsageService(sources, fetchCache, cfg.Usage, cfg.Catalog.MaxConcurrency, logger)
	catalogService := services.NewCatalogService(sources, fetchCache, taxonomy, usageService,
		cfg.Catalog.MaxConcurrency, cfg.Usage.RecommendationLimit, logger)

	llmClient, err := llm.NewFromConfig(&cfg.LLM, logger)
	if err != nil {
		if !errors.Is(err, llm.ErrNotConfigured) {
			return fmt.Errorf("failed to create llm client: %w", err)
		}
		logger.Info("No description model configured; table descriptions are disabled")
		llmClient = nil
	}
	descriptionService := services.NewDescriptionService(catalogService, llmClient, cfg.LLM, logger)

	var marketplaceService services.MarketplaceService
	if cfg.Marketplace.Enabled {
		db, err := database.Open(ctx, &cfg.Database, logger)
		if err != nil {
			return fmt.Errorf("failed to open marketplace database: %w", err)
		}
		defer db.Close()

		embedder, err := llm.NewEmbeddingClientFromConfig(&cfg.LLM, &cfg.Marketplace, logger)
		if err != nil {
			return fmt.Errorf("failed to create embedding client: %w", err)
		}
		pool := llm.NewWorkerPool(llm.DefaultWorkerPoolConfig(), logger)
		marketplaceService = services.NewMarketplaceService(
			repositories.NewMarketplaceRepository(db),
			sources, catalogService, descriptionService, embedder, pool,
			cfg.Marketplace, logger)
	}

	// Routes
	mux := http.NewServeMux()

	handlers.NewHealthHandler(cfg, connManager, logger).RegisterRoutes(mux)
	handlers.NewCatalogHandler(catalogService, logger).RegisterRoutes(mux)
	handlers.NewUsageHandler(usageService, logger).RegisterRoutes(mux)
	handlers.NewDescriptionHandler(descriptionService, logger).RegisterRoutes(mux)
	handlers.NewMarketplaceHandler(marketplaceService, logger).RegisterRoutes(mux)

	if cfg.MCP.Enabled {
		audit := mcp.NewAuditLogger(logger)
		mcpServer := mcp.NewServer("ekaya-catalog", cfg.Version, audit.Hooks(), logger)
		tools.RegisterCatalogTools(mcpServer.MCP(), &tools.CatalogToolDeps{
			Catalog:      catalogService,
			Usage:        usageService,
			Descriptions: descriptionService,
			Marketplace:  marketplaceService,
			Logger:       logger,
		})
		handlers.NewMCPHandler(mcpServer, logger).RegisterRoutes(mux)
	}

	if cfg.Metrics.Enabled {
		mux.Handle("GET /metrics", metrics.Handler())
	}

	handler := middleware.RequestID(middleware.RequestLogger(logger)(middleware.Metrics(mux)))

	srv := &http.Server{
		Addr:              net.JoinHostPort(cfg.BindAddr, cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting ekaya-catalog",
			zap.String("addr", srv.Addr),
			zap.String("version", cfg.Version),
			zap.Bool("tls", cfg.TLSCertPath != ""))

		var err error
		if cfg.TLSCertPath != "" {
			err = srv.ListenAndServeTLS(cfg.TLSCertPath, cfg.TLSKeyPath)
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newFetchCache builds the fetch cache on the configured backend. The
// returned func releases the backend connection.
func newFetchCache(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*cache.Cache, func(), error) {
	if cfg.Cache.Backend != "redis" {
		return cache.New(cache.NewMemoryStore(), cfg.Cache.TTL(), logger), func() {}, nil
	}

	rdb, err := database.NewRedisClient(ctx, &cfg.Cache.Redis)
	if err != nil {
		return nil, nil, err
	}
	return cache.New(cache.NewRedisStore(rdb), cfg.Cache.TTL(), logger), func() { _ = rdb.Close() }, nil
}
