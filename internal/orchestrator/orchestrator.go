package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/golfguiders/caddie/internal/backend"
	"github.com/golfguiders/caddie/internal/completion"
	"github.com/golfguiders/caddie/internal/session"
	"github.com/golfguiders/caddie/internal/tools"
)

// Defaults applied when Config leaves the knobs zero.
const (
	DefaultMaxRounds   = 6
	DefaultParallelism = 8

	// persistTimeout bounds writes that must survive request cancellation,
	// such as recording a truncated turn.
	persistTimeout = 5 * time.Second
)

// apologyMessage is streamed when the model cannot be reached at all.
const apologyMessage = "I apologize, but I couldn't complete that request right now. Please try again in a moment."

// Config assembles an Orchestrator.
type Config struct {
	Client   completion.Client
	Registry *tools.Registry
	Log      session.Log

	// MaxRounds caps tool rounds per turn. After the cap the model is
	// called once more with tools disabled and must answer.
	MaxRounds int

	// Parallelism caps concurrent tool dispatches within a round.
	Parallelism int

	// HistoryLimit bounds the messages handed to the model. Zero means
	// the full history.
	HistoryLimit int

	Logger *slog.Logger
}

// Orchestrator executes turns. Safe for concurrent use; per-session
// serialization is enforced internally.
type Orchestrator struct {
	client       completion.Client
	registry     *tools.Registry
	log          session.Log
	maxRounds    int
	parallelism  int
	historyLimit int
	logger       *slog.Logger
	gate         *gate
}

// New validates the configuration and creates an Orchestrator.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Client == nil {
		return nil, errors.New("completion client is required")
	}
	if cfg.Registry == nil {
		return nil, errors.New("tool registry is required")
	}
	if cfg.Log == nil {
		return nil, errors.New("session log is required")
	}
	if cfg.MaxRounds <= 0 {
		cfg.MaxRounds = DefaultMaxRounds
	}
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = DefaultParallelism
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Orchestrator{
		client:       cfg.Client,
		registry:     cfg.Registry,
		log:          cfg.Log,
		maxRounds:    cfg.MaxRounds,
		parallelism:  cfg.Parallelism,
		historyLimit: cfg.HistoryLimit,
		logger:       cfg.Logger,
		gate:         newGate(),
	}, nil
}

// TurnRequest is one inbound user message.
type TurnRequest struct {
	UserID uuid.UUID

	// SessionID resumes an existing session; uuid.Nil starts a new one.
	SessionID uuid.UUID

	Message string
}

// Result summarizes a completed turn.
type Result struct {
	Session     *session.Session
	Answer      string
	LoopLimited bool
}

// ExecuteTurn runs one turn and publishes its events onto stream. The
// stream is closed when ExecuteTurn returns, so consumers can range over
// it. The user message is persisted before the first model call; the
// returned error describes why a turn failed after any error event has
// been published.
func (o *Orchestrator) ExecuteTurn(ctx context.Context, req TurnRequest, stream *Stream) (*Result, error) {
	defer stream.Close()

	st, err := o.loadState(ctx, req)
	if err != nil {
		o.fail(ctx, stream, err)
		return nil, err
	}

	sessionID := st.Session().ID
	if err := o.gate.tryAcquire(sessionID); err != nil {
		o.fail(ctx, stream, err)
		return nil, err
	}
	defer o.gate.release(sessionID)

	if _, err := st.AppendUserMessage(ctx, req.Message); err != nil {
		err = fmt.Errorf("persisting user message: %w", err)
		o.fail(ctx, stream, err)
		return nil, err
	}

	var emitted strings.Builder
	streamToken := func(ctx context.Context, text string) error {
		if err := stream.Publish(ctx, Event{Type: EventToken, Text: text}); err != nil {
			return err
		}
		emitted.WriteString(text)
		return nil
	}

	loopLimited := false
	for round := 0; round <= o.maxRounds; round++ {
		toolsEnabled := round < o.maxRounds
		if !toolsEnabled {
			loopLimited = true
			o.logger.Warn("tool round limit reached, forcing final answer",
				"session", sessionID,
				"max_rounds", o.maxRounds,
				"error", ErrToolLoopLimit)
		}

		resp, err := o.client.Complete(ctx, completion.Request{
			Messages:     st.Window(o.historyLimit),
			ToolsEnabled: toolsEnabled,
			Stream:       streamToken,
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil, o.truncate(ctx, st, emitted.String())
			}
			return nil, o.apologize(ctx, st, stream, err)
		}

		if len(resp.ToolRequests) == 0 {
			return o.finish(ctx, st, stream, resp.Text, emitted.Len() > 0, loopLimited)
		}
		if !toolsEnabled {
			// Tools were not announced on this call; a tool request here
			// violates the protocol.
			err := fmt.Errorf("%w: tool request on tools-disabled round", ErrMalformedCompletion)
			o.fail(ctx, stream, err)
			return nil, err
		}

		if err := o.runToolRound(ctx, st, stream, resp.ToolRequests); err != nil {
			if ctx.Err() != nil {
				return nil, o.truncate(ctx, st, emitted.String())
			}
			o.fail(ctx, stream, err)
			return nil, err
		}
	}

	// Unreachable: the tools-disabled round always returns above.
	err = fmt.Errorf("%w: no final answer produced", ErrMalformedCompletion)
	o.fail(ctx, stream, err)
	return nil, err
}

func (o *Orchestrator) loadState(ctx context.Context, req TurnRequest) (*session.State, error) {
	if req.SessionID == uuid.Nil {
		return session.Create(ctx, o.log, req.UserID, req.Message)
	}
	return session.Hydrate(ctx, o.log, req.SessionID)
}

// finish persists and announces the final answer.
func (o *Orchestrator) finish(ctx context.Context, st *session.State, stream *Stream, text string, streamed, loopLimited bool) (*Result, error) {
	if strings.TrimSpace(text) == "" {
		err := fmt.Errorf("%w: neither text nor tool requests", ErrMalformedCompletion)
		o.fail(ctx, stream, err)
		return nil, err
	}

	if !streamed {
		// Non-streaming client: surface the whole answer at once.
		if err := stream.Publish(ctx, Event{Type: EventToken, Text: text}); err != nil {
			return nil, err
		}
	}

	// The answer has been surfaced; its persistence must not be lost to a
	// late disconnect.
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	created := time.Now().UTC()
	turn, err := st.AppendAssistantText(pctx, text, session.StatusCompleted)
	if err != nil {
		o.logger.Warn("assistant turn not persisted",
			"session", st.Session().ID,
			"error", err,
			"gap", session.ErrDurabilityGap)
	} else {
		created = turn.CreatedAt
	}

	meta := &Metadata{
		SessionID:   st.Session().ID,
		TurnOrdinal: st.Session().LastOrdinal,
		Created:     created,
		LoopLimited: loopLimited,
	}
	if err := stream.Publish(ctx, Event{Type: EventMetadata, Metadata: meta}); err != nil {
		return nil, err
	}
	if err := stream.Publish(ctx, Event{Type: EventDone}); err != nil {
		return nil, err
	}

	return &Result{Session: st.Session(), Answer: text, LoopLimited: loopLimited}, nil
}

// runToolRound persists the model's tool calls, dispatches them with
// bounded concurrency and records the results in call order.
func (o *Orchestrator) runToolRound(ctx context.Context, st *session.State, stream *Stream, requests []*ai.ToolRequest) error {
	if _, err := st.AppendToolCalls(ctx, requests); err != nil {
		return fmt.Errorf("persisting tool calls: %w", err)
	}

	for i, req := range requests {
		backendName, _ := o.registry.Backend(req.Name)
		ev := Event{Type: EventToolStart, Tool: &ToolEvent{
			CallID:  callID(req, i),
			Name:    req.Name,
			Backend: backendName,
		}}
		if err := stream.Publish(ctx, ev); err != nil {
			return err
		}
	}

	results := o.dispatch(ctx, requests)

	// The tool-call turn above is already durable, so every call must get
	// its result turn even when the caller is gone mid-round; a log ending
	// in an unanswered tool call would poison every later hydration of the
	// session. Persistence therefore runs detached and completes for all
	// results before any event is published.
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()
	for _, res := range results {
		if _, err := st.AppendToolResult(pctx, res.CallID, res.Tool, res.Backend, res.Output(), res.Failed()); err != nil {
			return fmt.Errorf("persisting tool result %s: %w", res.CallID, err)
		}
	}

	for _, res := range results {
		ev := Event{Type: EventToolEnd, Tool: &ToolEvent{
			CallID:  res.CallID,
			Name:    res.Tool,
			Backend: res.Backend,
			Status:  res.Status,
			Latency: res.Latency,
		}}
		if err := stream.Publish(ctx, ev); err != nil {
			return err
		}
	}
	return nil
}

// dispatch runs the round's calls concurrently, capped at the configured
// parallelism. Results come back indexed by call position, so order is
// preserved no matter which call finishes first. Call failures become
// failed results, never errors: the model decides what to do with them.
func (o *Orchestrator) dispatch(ctx context.Context, requests []*ai.ToolRequest) []*backend.ToolResult {
	results := make([]*backend.ToolResult, len(requests))

	var g errgroup.Group
	g.SetLimit(o.parallelism)
	for i, req := range requests {
		g.Go(func() error {
			start := time.Now()
			out, err := o.registry.Dispatch(ctx, req)
			latency := time.Since(start)

			backendName, _ := o.registry.Backend(req.Name)
			res := &backend.ToolResult{
				CallID:  callID(req, i),
				Tool:    req.Name,
				Backend: backendName,
				Latency: latency,
			}
			switch {
			case err == nil:
				res.Status = backend.StatusOK
				res.Content = out
			case errors.Is(err, context.DeadlineExceeded):
				res.Status = backend.StatusTimeout
				res.Diagnostic = fmt.Sprintf("The %s tool timed out after %v.", req.Name, latency.Round(time.Millisecond))
			default:
				res.Status = backend.StatusError
				res.Diagnostic = fmt.Sprintf("The %s tool failed: %v", req.Name, err)
			}

			if res.Failed() {
				o.logger.Warn("tool call failed",
					"tool", req.Name,
					"call_id", res.CallID,
					"status", res.Status,
					"latency", latency,
					"error", err)
			} else {
				o.logger.Debug("tool call completed",
					"tool", req.Name,
					"call_id", res.CallID,
					"latency", latency)
			}

			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// truncate records the prefix already surfaced to the caller after a
// cancellation. The write runs on a detached context so the truncated
// turn survives the disconnect that caused it.
func (o *Orchestrator) truncate(ctx context.Context, st *session.State, prefix string) error {
	cause := context.Cause(ctx)

	if prefix != "" {
		pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
		defer cancel()
		if _, err := st.AppendAssistantText(pctx, prefix, session.StatusTruncated); err != nil {
			o.logger.Warn("truncated turn not persisted",
				"session", st.Session().ID,
				"error", err,
				"gap", session.ErrDurabilityGap)
		}
	}

	o.logger.Info("turn truncated",
		"session", st.Session().ID,
		"emitted_bytes", len(prefix),
		"cause", cause)
	return fmt.Errorf("turn canceled: %w", cause)
}

// apologize surfaces a graceful failure when the model is unreachable:
// the caller gets a plain apology, the turn is recorded as failed, and
// the underlying cause is returned for logging.
func (o *Orchestrator) apologize(ctx context.Context, st *session.State, stream *Stream, cause error) error {
	_ = stream.Publish(ctx, Event{Type: EventToken, Text: apologyMessage})

	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()
	if _, err := st.AppendAssistantText(pctx, apologyMessage, session.StatusFailed); err != nil {
		o.logger.Warn("failed turn not persisted",
			"session", st.Session().ID,
			"error", err,
			"gap", session.ErrDurabilityGap)
	}

	o.fail(ctx, stream, cause)
	return fmt.Errorf("completion failed: %w", cause)
}

// fail publishes a terminal error event. Best effort: the consumer may
// already be gone.
func (o *Orchestrator) fail(ctx context.Context, stream *Stream, err error) {
	_ = stream.Publish(ctx, Event{Type: EventError, Error: err.Error()})
}

// callID returns the model-assigned call reference, or a positional one
// when the provider omits it.
func callID(req *ai.ToolRequest, index int) string {
	if req.Ref != "" {
		return req.Ref
	}
	return fmt.Sprintf("call-%d", index+1)
}
