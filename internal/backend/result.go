package backend

import "time"

// Result statuses.
const (
	StatusOK      = "ok"
	StatusError   = "error"
	StatusTimeout = "timeout"
)

// ToolResult is the normalized outcome of one tool call. Failures carry a
// diagnostic instead of content; the model sees the diagnostic and decides
// how to proceed, so one failed call never aborts the turn.
type ToolResult struct {
	CallID     string
	Tool       string
	Backend    string
	Status     string
	Content    string
	Diagnostic string
	Latency    time.Duration
}

// Failed reports whether the call produced no usable content.
func (r *ToolResult) Failed() bool { return r.Status != StatusOK }

// Output returns the text to hand back to the model.
func (r *ToolResult) Output() string {
	if r.Failed() {
		return r.Diagnostic
	}
	return r.Content
}
