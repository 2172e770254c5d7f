package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core/api"
	"github.com/firebase/genkit/go/core/tracing"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/compat_oai/openai"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/firebase/genkit/go/plugins/ollama"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"golang.org/x/time/rate"

	apiserver "github.com/golfguiders/caddie/internal/api"
	"github.com/golfguiders/caddie/db"
	"github.com/golfguiders/caddie/internal/backend"
	"github.com/golfguiders/caddie/internal/completion"
	"github.com/golfguiders/caddie/internal/config"
	"github.com/golfguiders/caddie/internal/knowledge"
	"github.com/golfguiders/caddie/internal/log"
	"github.com/golfguiders/caddie/internal/orchestrator"
	"github.com/golfguiders/caddie/internal/session"
	"github.com/golfguiders/caddie/internal/tools"
)

// Setup initializes the application. Call Close() to release resources;
// on error everything already initialized is cleaned up before returning.
func Setup(ctx context.Context, cfg *config.Config) (_ *App, retErr error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	a := &App{
		Config: cfg,
		Logger: provideLogger(cfg),
	}

	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				a.Logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	// Tracing registers with Genkit's TracerProvider, so it must be set
	// up before genkit.Init.
	a.onClose(provideOtelShutdown(ctx, cfg, a.Logger))

	pool, err := provideDBPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.Pool = pool
	a.onClose(pool.Close)

	g, err := provideGenkit(ctx, cfg, a.Logger)
	if err != nil {
		return nil, err
	}
	a.Genkit = g

	embedder := provideEmbedder(g, cfg)
	if embedder == nil {
		return nil, fmt.Errorf("embedder %q not found for provider %q", cfg.EmbedderModel, cfg.Provider)
	}
	a.Embedder = embedder

	a.Knowledge = knowledge.NewStore(pool, embedder, a.Logger)
	a.Sessions = session.NewStore(pool, a.Logger)

	registry, err := provideRegistry(a)
	if err != nil {
		return nil, err
	}
	a.Registry = registry

	client := completion.NewGenkitClient(g, completion.Options{
		ModelName:   qualifiedModelName(cfg),
		Temperature: cfg.Temperature,
		Tools:       registry.Refs(),
		RateLimiter: rate.NewLimiter(rate.Limit(2), 4),
		Logger:      a.Logger,
	})

	orch, err := orchestrator.New(orchestrator.Config{
		Client:       client,
		Registry:     registry,
		Log:          a.Sessions,
		MaxRounds:    cfg.MaxRounds,
		Parallelism:  cfg.ToolParallelism,
		HistoryLimit: cfg.HistoryLimit,
		Logger:       a.Logger,
	})
	if err != nil {
		return nil, err
	}
	a.Orchestrator = orch

	server, err := apiserver.NewServer(apiserver.ServerConfig{
		Orchestrator: orch,
		Sessions:     a.Sessions,
		Pool:         pool,
		Logger:       a.Logger,
	})
	if err != nil {
		return nil, err
	}
	a.Server = server

	return a, nil
}

func provideLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	return log.New(log.Config{Level: level, JSON: cfg.LogJSON})
}

// provideOtelShutdown exports spans over OTLP/HTTP. Genkit traces its
// generate and tool calls through its own TracerProvider; registering a
// processor there captures them without extra instrumentation.
func provideOtelShutdown(ctx context.Context, cfg *config.Config, logger *slog.Logger) func() {
	if !cfg.TracingEnabled {
		return func() {}
	}

	if cfg.ServiceName != "" {
		_ = os.Setenv("OTEL_SERVICE_NAME", cfg.ServiceName)
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(cfg.OTLPEndpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		logger.Warn("creating OTLP exporter, tracing disabled", "error", err)
		return func() {}
	}

	processor := sdktrace.NewBatchSpanProcessor(exporter)
	tracing.TracerProvider().RegisterSpanProcessor(processor)

	logger.Debug("tracing enabled", "endpoint", cfg.OTLPEndpoint, "service", cfg.ServiceName)

	shutdown := tracing.TracerProvider().Shutdown

	//nolint:contextcheck // Shutdown runs during teardown when the parent is canceled
	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			logger.Warn("shutting down tracer provider", "error", err)
		}
	}
}

// provideDBPool runs migrations and opens the connection pool.
func provideDBPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return pool, nil
}

// provideGenkit initializes Genkit with the configured model provider.
func provideGenkit(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*genkit.Genkit, error) {
	var g *genkit.Genkit

	switch cfg.Provider {
	case config.ProviderOllama:
		ollamaPlugin := &ollama.Ollama{ServerAddress: cfg.OllamaHost}
		g = genkit.Init(ctx, genkit.WithPlugins(ollamaPlugin))
		if g == nil {
			return nil, errors.New("initializing genkit with ollama provider")
		}
		// Ollama has no auto-discovery; models must be registered.
		ollamaPlugin.DefineModel(g, ollama.ModelDefinition{
			Name: cfg.ModelName,
			Type: "chat",
		}, nil)
		ollamaPlugin.DefineEmbedder(g, cfg.OllamaHost, cfg.EmbedderModel, nil)
		logger.Info("initialized Genkit with ollama provider",
			"model", cfg.ModelName, "host", cfg.OllamaHost)

	case config.ProviderGemini:
		g = genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
		if g == nil {
			return nil, errors.New("initializing genkit with gemini provider")
		}
		logger.Info("initialized Genkit with gemini provider", "model", cfg.ModelName)

	default: // "openai"
		g = genkit.Init(ctx, genkit.WithPlugins(&openai.OpenAI{}))
		if g == nil {
			return nil, errors.New("initializing genkit with openai provider")
		}
		logger.Info("initialized Genkit with openai provider", "model", cfg.ModelName)
	}

	return g, nil
}

// provideEmbedder looks up the embedder registered by the provider plugin.
// Each provider keys embedders differently.
func provideEmbedder(g *genkit.Genkit, cfg *config.Config) ai.Embedder {
	switch cfg.Provider {
	case config.ProviderOllama:
		return ollama.Embedder(g, cfg.OllamaHost)
	case config.ProviderGemini:
		return googlegenai.GoogleAIEmbedder(g, cfg.EmbedderModel)
	default: // "openai"
		return genkit.LookupEmbedder(g, api.NewName("openai", cfg.EmbedderModel))
	}
}

// provideRegistry builds the tool registry and registers both backend
// adapters against it.
func provideRegistry(a *App) (*tools.Registry, error) {
	cfg := a.Config
	registry := tools.NewRegistry(a.Genkit, a.Logger)

	vector := backend.NewVector(a.Knowledge, cfg.SimilarityTopK, cfg.BackendTimeout, a.Logger)
	if err := vector.Register(registry); err != nil {
		return nil, fmt.Errorf("registering vector tools: %w", err)
	}

	columnar := backend.NewColumnar(a.Pool, cfg.BackendTimeout, a.Logger)
	if err := columnar.Register(registry); err != nil {
		return nil, fmt.Errorf("registering columnar tools: %w", err)
	}

	return registry, nil
}

// qualifiedModelName prefixes the model with its Genkit provider key.
func qualifiedModelName(cfg *config.Config) string {
	switch cfg.Provider {
	case config.ProviderOllama:
		return "ollama/" + cfg.ModelName
	case config.ProviderGemini:
		return "googleai/" + cfg.ModelName
	default:
		return "openai/" + cfg.ModelName
	}
}
