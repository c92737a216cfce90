// Package llm defines the language-model boundary used by the routing
// pipeline: a Completer that turns a message sequence into a completion,
// optionally shaped as a structured tool call, plus the bounded retry
// policy applied to rate-limited calls.
package llm

import "context"

// Message is a single role-tagged entry in a conversation history.
type Message struct {
	// Role is one of "system", "user", "assistant" or "tool".
	Role string `json:"role"`

	// Content is the message text.
	Content string `json:"content"`
}

// ToolSpec describes a single tool offered to the model for a forced
// tool-call completion.
type ToolSpec struct {
	// Name is the tool's unique name.
	Name string

	// Description is the tool's human-readable description.
	Description string

	// InputSchema is the JSON schema for the tool's arguments. It may be
	// a *jsonschema.Schema or a plain map; it is marshaled as-is.
	InputSchema any
}

// ToolUse is the model's proposed invocation of a tool.
type ToolUse struct {
	// Name is the tool the model chose.
	Name string

	// Args are the proposed arguments, decoded from the model's JSON.
	Args map[string]any
}

// Completer is the opaque language-model operation the pipeline depends on.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use.
//   - Context: must honor cancellation/deadlines and return ctx.Err() when canceled.
//   - Errors: transient throttling must be reported as ErrRateLimited (via
//     errors.Is); all other failures are terminal for the call.
//   - Ownership: messages are read-only; returned values are caller-owned.
type Completer interface {
	// Complete returns a plain-text completion for the message sequence.
	Complete(ctx context.Context, messages []Message) (string, error)

	// CompleteWithTool asks the model to call the given tool. It returns
	// the proposed tool use, or a nil ToolUse with the model's text when
	// the model answered conversationally instead of calling the tool.
	CompleteWithTool(ctx context.Context, messages []Message, tool ToolSpec) (*ToolUse, string, error)
}

// Logger is an optional interface for observability during model calls.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use.
//   - Errors: logging must be best-effort; Logf should not panic.
type Logger interface {
	// Logf logs a formatted message.
	Logf(format string, args ...any)
}
