// Package synth turns execution outcomes into the user-facing answer.
// Every task ends here: tool results and script outputs are summarized
// by one model turn, outcomes that are already finished prose pass
// through untouched, and the synthesis call is the only model call
// protected by the rate-limit retry policy.
package synth

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/routeact/routeact/codeact"
	"github.com/routeact/routeact/llm"
	"github.com/routeact/routeact/task"
)

// Synthesizer produces the final answer for a task state.
//
// Contract:
//   - Concurrency: safe for concurrent use when Completer is.
//   - Context: ctx bounds the model turn including retries.
//   - Errors: a non-nil error means no answer could be produced; an error
//     still matching llm.ErrRateLimited means the retry budget is exhausted.
type Synthesizer struct {
	Completer llm.Completer
	Retry     llm.RetryPolicy
	Logger    llm.Logger
}

// Synthesize sets the task's final answer and returns it.
//
// Outcomes that are already complete prose are passed through verbatim
// with no model call, so re-synthesizing a finished answer is a no-op on
// its text.
func (s *Synthesizer) Synthesize(ctx context.Context, st *task.State) (string, error) {
	if st.Outcome != nil && st.Outcome.AlreadyFinal() {
		answer := st.Outcome.FinalText()
		// Re-synthesizing a finished outcome is a no-op, not an error.
		if st.Answered() && st.FinalAnswer == answer {
			return answer, nil
		}
		if err := st.SetFinalAnswer(answer); err != nil {
			return "", err
		}
		return answer, nil
	}

	messages := make([]llm.Message, 0, len(st.History)+2)
	messages = append(messages, llm.Message{
		Role: "system",
		Content: "You write the final answer to the user's request. " +
			"Base it only on the evidence provided. Answer in the user's language, " +
			"concisely, and mention any failure honestly.",
	})
	messages = append(messages, st.History...)
	messages = append(messages, llm.Message{Role: "user", Content: evidence(st)})

	var answer string
	err := s.Retry.Do(ctx, func(ctx context.Context) error {
		text, err := s.Completer.Complete(ctx, messages)
		if err != nil {
			return err
		}
		answer = text
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("synth: %w", err)
	}
	if err := st.SetFinalAnswer(answer); err != nil {
		return "", err
	}
	return answer, nil
}

// evidence renders the execution outcome as the synthesis prompt body.
func evidence(st *task.State) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Original request: %s\n\n", st.Request)

	switch out := st.Outcome.(type) {
	case nil:
		b.WriteString("No tool was used. Answer the request directly.")

	case *task.ToolResult:
		fmt.Fprintf(&b, "Tool called: %s\n", out.Tool)
		if len(out.Args) > 0 {
			fmt.Fprintf(&b, "Arguments: %s\n", compactJSON(out.Args))
		}
		if out.Err != nil {
			fmt.Fprintf(&b, "The call failed: %v\n", out.Err)
			b.WriteString("Explain the failure to the user and suggest what to try instead.")
			break
		}
		fmt.Fprintf(&b, "Result: %s\n", valueText(out))
		b.WriteString("Write the answer from this result.")

	case *codeact.ScriptOutcome:
		if len(out.ToolInvocations) > 0 {
			b.WriteString("Tool calls made by the generated program:\n")
			for _, rec := range out.ToolInvocations {
				fmt.Fprintf(&b, "- %s(%s)", rec.Tool, compactJSON(rec.Args))
				if rec.Error != "" {
					fmt.Fprintf(&b, " failed: %s", rec.Error)
				} else {
					fmt.Fprintf(&b, " -> %s", compactAny(rec.Result))
				}
				b.WriteString("\n")
			}
		}
		// The program's explicit result wins over whatever it printed.
		if out.NamedSet {
			fmt.Fprintf(&b, "Program result: %s\n", compactAny(out.NamedResult))
		} else if out.Stdout != "" {
			fmt.Fprintf(&b, "Program output:\n%s\n", out.Stdout)
		}
		if out.Err != nil {
			fmt.Fprintf(&b, "The program failed: %v\n", out.Err)
			b.WriteString("Explain the failure to the user, using any partial results above.")
			break
		}
		b.WriteString("Write the answer from the program result.")

	default:
		fmt.Fprintf(&b, "Execution outcome (%s): %s\n", out.Kind(), out.FinalText())
		b.WriteString("Write the answer from this outcome.")
	}
	return b.String()
}

func valueText(r *task.ToolResult) string {
	if r.Text != "" {
		return r.Text
	}
	return compactAny(r.Value)
}

func compactJSON(m map[string]any) string {
	if len(m) == 0 {
		return "{}"
	}
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Sprintf("%v", m)
	}
	return string(data)
}

func compactAny(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
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
