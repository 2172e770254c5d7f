package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/golfguiders/caddie/internal/orchestrator"
	"github.com/golfguiders/caddie/internal/session"
)

// SSE event names on the chat stream.
const (
	eventChunk    = "chunk"
	eventTool     = "tool"
	eventMetadata = "metadata"
	eventDone     = "done"
	eventError    = "error"
)

// chatRequest is the POST /api/v1/chat body. session_id resumes an
// existing conversation; omitting it starts a new one.
type chatRequest struct {
	Message   string `json:"message"`
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id,omitempty"`
}

type chunkPayload struct {
	Text string `json:"text"`
}

type toolPayload struct {
	Phase   string `json:"phase"`
	CallID  string `json:"call_id"`
	Name    string `json:"name"`
	Backend string `json:"backend"`
	Status  string `json:"status,omitempty"`
	Latency int64  `json:"latency_ms,omitempty"`
}

type metadataPayload struct {
	SessionID   string    `json:"session_id"`
	TurnOrdinal int       `json:"turn_ordinal"`
	Created     time.Time `json:"created"`
	LoopLimited bool      `json:"loop_limited,omitempty"`
}

type donePayload struct {
	SessionID string `json:"session_id"`
}

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type chatHandler struct {
	orch         *orchestrator.Orchestrator
	streamBuffer int
	logger       *slog.Logger
}

// stream runs one turn and relays its events as SSE.
func (h *chatHandler) stream(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "missing_message", "message is required")
		return
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_user_id", "user_id must be a UUID")
		return
	}
	var sessionID uuid.UUID
	if req.SessionID != "" {
		sessionID, err = uuid.Parse(req.SessionID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_session_id", "session_id must be a UUID")
			return
		}
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming_unsupported", "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	turn := orchestrator.TurnRequest{
		UserID:    userID,
		SessionID: sessionID,
		Message:   req.Message,
	}
	stream := orchestrator.NewStream(h.streamBuffer)

	turnErr := make(chan error, 1)
	go func() {
		_, err := h.orch.ExecuteTurn(r.Context(), turn, stream)
		turnErr <- err
	}()

	var (
		lastSessionID string
		errorText     string
		sawError      bool
		writeFailed   bool
	)
	for ev := range stream.Events() {
		if writeFailed {
			continue // drain so the producer can finish
		}

		var werr error
		switch ev.Type {
		case orchestrator.EventToken:
			werr = writeEvent(w, flusher, eventChunk, chunkPayload{Text: ev.Text})
		case orchestrator.EventToolStart:
			werr = writeEvent(w, flusher, eventTool, toolEventPayload("start", ev.Tool))
		case orchestrator.EventToolEnd:
			werr = writeEvent(w, flusher, eventTool, toolEventPayload("end", ev.Tool))
		case orchestrator.EventMetadata:
			lastSessionID = ev.Metadata.SessionID.String()
			werr = writeEvent(w, flusher, eventMetadata, metadataPayload{
				SessionID:   lastSessionID,
				TurnOrdinal: ev.Metadata.TurnOrdinal,
				Created:     ev.Metadata.Created,
				LoopLimited: ev.Metadata.LoopLimited,
			})
		case orchestrator.EventError:
			// Held back until the turn error is known, so the payload
			// can carry a stable code.
			sawError = true
			errorText = ev.Error
		case orchestrator.EventDone:
			// Emitted below once the session ID is settled.
		}

		if werr != nil {
			h.logger.Debug("SSE write failed, draining turn", "error", werr)
			writeFailed = true
		}
	}

	err = <-turnErr
	if writeFailed {
		return
	}

	if sawError || err != nil {
		msg := errorText
		if msg == "" && err != nil {
			msg = err.Error()
		}
		_ = writeEvent(w, flusher, eventError, errorPayload{Code: errorCode(err), Message: msg})
		h.logger.Warn("turn failed",
			"user", userID,
			"session", req.SessionID,
			"request_id", requestIDFromContext(r.Context()),
			"error", err)
		return
	}

	_ = writeEvent(w, flusher, eventDone, donePayload{SessionID: lastSessionID})
}

func toolEventPayload(phase string, tool *orchestrator.ToolEvent) toolPayload {
	return toolPayload{
		Phase:   phase,
		CallID:  tool.CallID,
		Name:    tool.Name,
		Backend: tool.Backend,
		Status:  tool.Status,
		Latency: tool.Latency.Milliseconds(),
	}
}

// errorCode maps turn failures to stable client-facing codes.
func errorCode(err error) string {
	switch {
	case errors.Is(err, orchestrator.ErrSessionBusy):
		return "session_busy"
	case errors.Is(err, session.ErrSessionNotFound):
		return "session_not_found"
	case errors.Is(err, orchestrator.ErrMalformedCompletion):
		return "malformed_completion"
	default:
		return "turn_failed"
	}
}

// writeEvent writes one SSE frame: "event: <type>\ndata: <json>\n\n".
func writeEvent[T any](w io.Writer, flusher http.Flusher, event string, data T) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal event data: %w", err)
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, jsonData); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	flusher.Flush()
	return nil
}
