package main

import (
	"log"
	"net/http"

	"go.uber.org/zap"

	"github.com/querypilot/engine/pkg/cache"
	"github.com/querypilot/engine/pkg/config"
	"github.com/querypilot/engine/pkg/datasource"
	"github.com/querypilot/engine/pkg/handlers"
	"github.com/querypilot/engine/pkg/llm"
	"github.com/querypilot/engine/pkg/middleware"
	"github.com/querypilot/engine/pkg/services"
	"github.com/querypilot/engine/pkg/vector"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("environment", cfg.Env),
		zap.String("database", cfg.Database.Host),
		zap.String("db_family", cfg.Database.Family),
		zap.String("llm_provider", cfg.LLM.Provider),
		zap.String("llm_model", cfg.LLM.Model),
		zap.Bool("read_only", cfg.Safety.ReadOnly))

	generation, err := llm.NewGenerationClient(&cfg.LLM, logger)
	if err != nil {
		logger.Fatal("Failed to create generation client", zap.Error(err))
	}
	embedding, err := llm.NewEmbeddingClient(&cfg.Embedding, logger)
	if err != nil {
		logger.Fatal("Failed to create embedding client", zap.Error(err))
	}

	store, err := cache.NewRedisStore(&cfg.Redis, logger)
	if err != nil {
		logger.Fatal("Failed to connect to redis", zap.Error(err))
	}
	if store == nil {
		logger.Info("Redis not configured, using in-process cache")
		store = cache.NewMemoryStore()
	}
	appCache := cache.New(store, logger)

	conn := datasource.FromAppConfig(&cfg.Database)
	registry := vector.NewRegistry()

	ingestion := services.NewSchemaIngestion(
		datasource.NewSchemaExtractor,
		services.NewChunker(),
		embedding,
		registry,
		appCache,
		logger,
	)
	catalog := services.NewTableCatalog(appCache, datasource.NewSchemaExtractor, logger)
	validator := services.NewSQLValidator(cfg.Safety.ReadOnly, cfg.Safety.MaxRowsLimit, catalog, logger)
	pipeline := services.NewQueryPipeline(
		services.NewIntentService(generation, logger),
		services.NewRetriever(embedding, registry, logger),
		services.NewSQLGenerator(generation, logger),
		validator,
		catalog,
		cfg.Safety.MaxRowsLimit,
		logger,
	)
	runner := services.NewQueryRunner(datasource.NewQueryExecutor, validator, logger)
	formatter := services.NewResultFormatter(generation, logger)

	mux := http.NewServeMux()
	handlers.NewHealthHandler(cfg, logger).RegisterRoutes(mux)
	handlers.NewSchemaHandler(ingestion, appCache, conn, logger).RegisterRoutes(mux)
	handlers.NewQueryHandler(pipeline, runner, formatter, registry, appCache, conn, logger).RegisterRoutes(mux)

	root := middleware.RequestLogger(logger)(mux)

	addr := cfg.BindAddr + ":" + cfg.Port
	logger.Info("Starting querypilot-engine",
		zap.String("addr", addr),
		zap.String("version", cfg.Version))
	if err := http.ListenAndServe(addr, root); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "local" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
