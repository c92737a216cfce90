// Package react implements the single-tool-call execution strategy: one
// model turn proposes arguments for the routed tool, the arguments are
// validated against the tool's schema, and the tool is invoked exactly
// once. Faults are carried inside the produced outcome so that answer
// synthesis can still report them to the user.
package react

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/routeact/routeact/llm"
	"github.com/routeact/routeact/registry"
	"github.com/routeact/routeact/task"
)

// Sentinel errors carried inside failed tool outcomes.
var (
	// ErrInvalidArguments reports model-proposed arguments rejected by the
	// tool's input schema. The tool is never invoked in that case.
	ErrInvalidArguments = errors.New("react: invalid tool arguments")

	// ErrToolInvocation reports a tool call that was attempted and failed.
	ErrToolInvocation = errors.New("react: tool invocation failed")
)

// Executor runs the single-call strategy against one routed tool.
//
// Contract:
//   - Concurrency: safe for concurrent use when Completer and the registry are.
//   - Context: ctx bounds both the model turn and the tool call.
//   - Errors: a non-nil error is returned only for model-transport failures
//     (including llm.ErrRateLimited); argument and invocation faults are
//     reported via the outcome's Err field with a nil error return.
type Executor struct {
	Completer llm.Completer
	Logger    llm.Logger
}

// Execute performs one model turn and at most one tool call for the given
// request and candidate tool.
func (e *Executor) Execute(ctx context.Context, request string, history []llm.Message, desc *registry.Descriptor) (*task.ToolResult, error) {
	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{Role: "system", Content: systemPrompt(desc)})
	messages = append(messages, history...)
	if len(history) == 0 || history[len(history)-1].Content != request {
		messages = append(messages, llm.Message{Role: "user", Content: request})
	}

	spec := llm.ToolSpec{
		Name:        desc.Name,
		Description: desc.Description,
	}
	if desc.InputSchema != nil {
		spec.InputSchema = desc.InputSchema
	}

	use, text, err := e.Completer.CompleteWithTool(ctx, messages, spec)
	if err != nil {
		return nil, fmt.Errorf("react: completion for %s: %w", desc.Name, err)
	}

	// The model declined the tool and answered in prose. That text is the
	// final answer as far as this strategy is concerned.
	if use == nil {
		return &task.ToolResult{Tool: desc.Name, Text: text, Conversational: true}, nil
	}

	result := &task.ToolResult{Tool: desc.Name, Args: use.Args}
	if err := desc.ValidateArgs(use.Args); err != nil {
		e.logf("react: %s rejected args %s: %v", desc.Name, compactArgs(use.Args), err)
		result.Err = fmt.Errorf("%w: %v", ErrInvalidArguments, err)
		return result, nil
	}

	value, err := desc.Call(ctx, use.Args)
	if err != nil {
		e.logf("react: %s call failed: %v", desc.Name, err)
		result.Err = fmt.Errorf("%w: %v", ErrToolInvocation, err)
		return result, nil
	}
	result.Value = value
	result.Text = renderValue(value)
	return result, nil
}

func (e *Executor) logf(format string, args ...any) {
	if e.Logger != nil {
		e.Logger.Logf(format, args...)
	}
}

// systemPrompt frames the single-call contract for the model.
func systemPrompt(desc *registry.Descriptor) string {
	var b strings.Builder
	b.WriteString("You resolve the user's request with a single call to the tool ")
	b.WriteString(desc.Name)
	b.WriteString(".\n")
	if desc.Description != "" {
		b.WriteString("Tool: ")
		b.WriteString(desc.Description)
		b.WriteString("\n")
	}
	if keys := desc.ArgumentKeys(); len(keys) > 0 {
		b.WriteString("Arguments: ")
		b.WriteString(strings.Join(keys, ", "))
		b.WriteString("\n")
	}
	b.WriteString("Call the tool with arguments taken from the request. ")
	b.WriteString("If the request cannot be served by this tool, answer briefly in plain text instead.")
	return b.String()
}

// renderValue produces the textual form of a tool's result for synthesis.
func renderValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(data)
	}
}

func compactArgs(args map[string]any) string {
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Sprintf("%v", args)
	}
	return string(data)
}
