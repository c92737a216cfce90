package codeact

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/routeact/routeact/llm"
	"github.com/routeact/routeact/registry"
)

// DefaultBudget bounds a single script run.
const DefaultBudget = 30 * time.Second

var (
	fencedBlock = regexp.MustCompile("(?s)```(?:javascript|js)?\\s*\n(.*?)```")
	entryPoint  = regexp.MustCompile(`\bfunction\s+main\s*\(|\bmain\s*=`)
	selfInvoke  = regexp.MustCompile(`(?m)^\s*(?:await\s+)?main\s*\(\s*\)\s*;?\s*$`)
)

// Executor implements the generated-script strategy: ask the model for a
// program over the candidate tools, then run it in the sandbox.
//
// Contract:
//   - Concurrency: safe for concurrent use when Completer and Engine are.
//   - Context: ctx bounds the model turn and the script run.
//   - Errors: a non-nil error return means the model call itself failed
//     (including llm.ErrRateLimited). Generation and execution faults are
//     carried in the outcome's Err field with a nil error return.
type Executor struct {
	Completer llm.Completer
	Engine    Engine

	// Budget bounds script wall-clock time. Zero means DefaultBudget.
	Budget time.Duration

	Logger llm.Logger
}

// Execute generates and runs a script over the candidate tools.
func (e *Executor) Execute(ctx context.Context, request string, history []llm.Message, candidates []*registry.Descriptor) (*ScriptOutcome, error) {
	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{Role: "system", Content: scriptPrompt(candidates)})
	messages = append(messages, history...)
	if len(history) == 0 || history[len(history)-1].Content != request {
		messages = append(messages, llm.Message{Role: "user", Content: request})
	}

	reply, err := e.Completer.Complete(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("codeact: script generation: %w", err)
	}

	outcome := &ScriptOutcome{}
	source, ok := extractProgram(reply)
	if !ok {
		outcome.Err = fmt.Errorf("%w: reply contains no program", ErrCodeGeneration)
		return outcome, nil
	}
	outcome.GeneratedSource = source
	if !entryPoint.MatchString(source) {
		outcome.Err = fmt.Errorf("%w: program defines no main function", ErrCodeGeneration)
		return outcome, nil
	}

	recorder := &callRecorder{}
	bindings := make([]Binding, 0, len(candidates))
	for _, desc := range candidates {
		bindings = append(bindings, recorder.bind(desc))
	}

	budget := e.Budget
	if budget <= 0 {
		budget = DefaultBudget
	}
	res, runErr := e.Engine.Run(ctx, source, bindings, budget)
	outcome.Stdout = res.Stdout
	outcome.NamedResult = res.NamedResult
	outcome.NamedSet = res.NamedSet
	outcome.ToolInvocations = recorder.records()
	if runErr != nil {
		e.logf("codeact: script failed after %d tool calls (%s): %v",
			len(outcome.ToolInvocations), renderTrace(outcome.ToolInvocations), runErr)
		outcome.Err = runErr
	}
	return outcome, nil
}

func (e *Executor) logf(format string, args ...any) {
	if e.Logger != nil {
		e.Logger.Logf(format, args...)
	}
}

// callRecorder keeps the ordered trace of tool calls made by a script.
type callRecorder struct {
	mu   sync.Mutex
	recs []ToolCallRecord
}

func (r *callRecorder) bind(desc *registry.Descriptor) Binding {
	return Binding{
		Name: desc.Name,
		Invoke: func(ctx context.Context, args map[string]any) (any, error) {
			start := time.Now()
			value, err := desc.Call(ctx, args)
			rec := ToolCallRecord{
				Tool:       desc.Name,
				Args:       args,
				Result:     value,
				DurationMs: time.Since(start).Milliseconds(),
			}
			if err != nil {
				rec.Error = err.Error()
			}
			r.mu.Lock()
			r.recs = append(r.recs, rec)
			r.mu.Unlock()
			return value, err
		},
	}
}

func (r *callRecorder) records() []ToolCallRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ToolCallRecord(nil), r.recs...)
}

// scriptPrompt frames the program contract for the model: which tools
// exist, how to call them, and how to hand back the result.
func scriptPrompt(candidates []*registry.Descriptor) string {
	var b strings.Builder
	b.WriteString("Write a JavaScript program that resolves the user's request using the tools below.\n")
	b.WriteString("Rules:\n")
	b.WriteString("- Define a plain function main() and do all work inside it.\n")
	b.WriteString("- Call tools as ordinary functions taking a single object argument.\n")
	b.WriteString("- Assign the value to report to a top-level variable named final_output inside main.\n")
	b.WriteString("- You may print intermediate values with print(...).\n")
	b.WriteString("- Reply with a single ```javascript code block and nothing else.\n\n")
	b.WriteString("Tools:\n")
	for _, desc := range candidates {
		b.WriteString("- ")
		b.WriteString(desc.Name)
		if keys := desc.ArgumentKeys(); len(keys) > 0 {
			b.WriteString("({")
			for i, k := range keys {
				if i > 0 {
					b.WriteString(", ")
				}
				fmt.Fprintf(&b, "%q: ...", k)
			}
			b.WriteString("})")
		} else {
			b.WriteString("({})")
		}
		if desc.Description != "" {
			b.WriteString(": ")
			b.WriteString(desc.Description)
		}
		b.WriteString("\n")
	}
	b.WriteString("\nExample call shape:\n")
	b.WriteString("  var r = get_weather({\"location\": \"Lisbon\"});\n")
	return b.String()
}

// extractProgram pulls the program out of a model reply: the first fenced
// code block, or the whole reply when it already looks like code.
func extractProgram(reply string) (string, bool) {
	if m := fencedBlock.FindStringSubmatch(reply); m != nil {
		src := cleanProgram(m[1])
		return src, src != ""
	}
	trimmed := strings.TrimSpace(reply)
	if looksLikeCode(trimmed) {
		return cleanProgram(trimmed), true
	}
	return "", false
}

// cleanProgram drops top-level self-invocations of main. The sandbox
// calls main itself; leaving the call in would run the program twice.
func cleanProgram(src string) string {
	return strings.TrimSpace(selfInvoke.ReplaceAllString(src, ""))
}

func looksLikeCode(s string) bool {
	return strings.Contains(s, "function ") || strings.Contains(s, "=>") ||
		strings.Contains(s, "const ") || strings.Contains(s, "var ")
}

func renderTrace(recs []ToolCallRecord) string {
	data, err := json.Marshal(recs)
	if err != nil {
		return fmt.Sprintf("%v", recs)
	}
	return string(data)
}
