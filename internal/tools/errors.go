package tools

import "errors"

// Sentinel errors for registry operations. Check with errors.Is.
var (
	// ErrDuplicateTool indicates a second registration under a name that
	// is already taken. Registration is startup-time configuration, so
	// this is treated as a programming error and surfaced immediately.
	ErrDuplicateTool = errors.New("duplicate tool name")

	// ErrUnknownTool indicates a dispatch for a name no adapter registered.
	ErrUnknownTool = errors.New("unknown tool")

	// ErrSchemaViolation indicates tool call arguments that do not satisfy
	// the tool's declared input schema. Dispatch rejects these before any
	// backend I/O happens.
	ErrSchemaViolation = errors.New("arguments violate tool schema")
)
