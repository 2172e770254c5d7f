package completion

import (
	"context"
	"log/slog"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"golang.org/x/time/rate"
)

// Options configures the Genkit-backed client.
type Options struct {
	// ModelName is the provider-qualified model, e.g. "openai/gpt-4.1-mini".
	ModelName string

	// Temperature for generation. Zero leaves the provider default.
	Temperature float64

	// SystemPrompt overrides DefaultSystemPrompt when non-empty.
	SystemPrompt string

	// Tools are the references announced when a request enables tools.
	Tools []ai.ToolRef

	// RateLimiter throttles calls to the provider. Nil disables limiting.
	RateLimiter *rate.Limiter

	// Retry holds backoff settings. The zero value uses defaults.
	Retry RetryConfig

	Logger *slog.Logger
}

// GenkitClient implements Client on top of genkit.Generate. Tool requests
// are returned to the caller instead of being auto-executed; the
// orchestrator owns dispatch.
type GenkitClient struct {
	g           *genkit.Genkit
	modelName   string
	temperature float64
	system      string
	tools       []ai.ToolRef
	limiter     *rate.Limiter
	retry       RetryConfig
	logger      *slog.Logger
}

// NewGenkitClient creates a client from the given Genkit instance.
func NewGenkitClient(g *genkit.Genkit, opts Options) *GenkitClient {
	system := opts.SystemPrompt
	if system == "" {
		system = DefaultSystemPrompt
	}
	retry := opts.Retry
	if retry.MaxRetries == 0 && retry.InitialInterval == 0 {
		retry = DefaultRetryConfig()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &GenkitClient{
		g:           g,
		modelName:   opts.ModelName,
		temperature: opts.Temperature,
		system:      system,
		tools:       opts.Tools,
		limiter:     opts.RateLimiter,
		retry:       retry,
		logger:      logger,
	}
}

// Complete runs one model call.
func (c *GenkitClient) Complete(ctx context.Context, req Request) (*Response, error) {
	genOpts := []ai.GenerateOption{
		ai.WithModelName(c.modelName),
		ai.WithSystem(c.system),
		ai.WithMessages(req.Messages...),
	}

	if c.temperature > 0 {
		genOpts = append(genOpts, ai.WithConfig(map[string]any{
			"temperature": c.temperature,
		}))
	}

	if req.ToolsEnabled && len(c.tools) > 0 {
		// ReturnToolRequests hands tool calls back instead of letting
		// Genkit run them; dispatch happens in the orchestrator where
		// ordering and persistence are controlled.
		genOpts = append(genOpts,
			ai.WithTools(c.tools...),
			ai.WithReturnToolRequests(true))
	}

	if req.Stream != nil {
		stream := req.Stream
		genOpts = append(genOpts, ai.WithStreaming(
			func(ctx context.Context, chunk *ai.ModelResponseChunk) error {
				text := chunk.Text()
				if text == "" {
					return nil
				}
				return stream(ctx, text)
			}))
	}

	resp, err := c.generateWithRetry(ctx, func(ctx context.Context) (*ai.ModelResponse, error) {
		return genkit.Generate(ctx, c.g, genOpts...)
	})
	if err != nil {
		return nil, err
	}

	return &Response{
		Text:         resp.Text(),
		ToolRequests: resp.ToolRequests(),
	}, nil
}
