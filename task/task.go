// Package task defines the mutable state record threaded through one
// pipeline run, plus the enums and outcome union shared by the router,
// executors and synthesizer.
package task

import (
	"errors"
	"fmt"

	"github.com/routeact/routeact/llm"
	"github.com/routeact/routeact/registry"
)

// Complexity classifies a request for strategy selection.
type Complexity string

// Complexity classes.
const (
	Simple  Complexity = "SIMPLE"
	Complex Complexity = "COMPLEX"
)

// Strategy is the chosen execution strategy.
type Strategy string

// Execution strategies.
const (
	// StrategyReact dispatches a single model-argued tool call.
	StrategyReact Strategy = "REACT"

	// StrategyCodeAct runs a model-synthesized script over the candidates.
	StrategyCodeAct Strategy = "CODEACT"

	// StrategyDirect bypasses both executors; the synthesizer answers
	// from the conversation alone.
	StrategyDirect Strategy = "DIRECT"
)

// Phase is a stage of the pipeline state machine. Transitions are strictly
// forward; Done and Failed are terminal.
type Phase string

// Pipeline phases.
const (
	PhaseReceived        Phase = "received"
	PhaseToolsDiscovered Phase = "tools_discovered"
	PhaseRouted          Phase = "routed"
	PhaseExecuting       Phase = "executing"
	PhaseSynthesized     Phase = "synthesized"
	PhaseDone            Phase = "done"
	PhaseFailed          Phase = "failed"
)

// Outcome is the structured result of an execution strategy, consumed by
// the synthesis stage. Implementations: ToolResult (react), DirectAnswer
// (no-tool path after synthesis) and codeact.ScriptOutcome.
type Outcome interface {
	// Kind discriminates the outcome for logging and summaries.
	Kind() string

	// AlreadyFinal reports whether the outcome is itself a complete
	// natural-language answer needing no synthesis model call.
	AlreadyFinal() bool

	// FinalText returns the answer text when AlreadyFinal is true.
	FinalText() string
}

// ToolResult is the outcome of the single-tool strategy.
type ToolResult struct {
	// Tool is the invoked tool's name.
	Tool string

	// Args are the model-proposed arguments actually sent.
	Args map[string]any

	// Value is the tool's return value on success.
	Value any

	// Text is the model's conversational reply when it chose not to call
	// the tool.
	Text string

	// Conversational marks Text as the complete answer.
	Conversational bool

	// Err records argument-validation or invocation failure; it is
	// surfaced to synthesis, not hidden.
	Err error
}

// Kind implements Outcome.
func (r *ToolResult) Kind() string { return "tool" }

// AlreadyFinal implements Outcome.
func (r *ToolResult) AlreadyFinal() bool { return r.Conversational && r.Err == nil }

// FinalText implements Outcome.
func (r *ToolResult) FinalText() string {
	if r.AlreadyFinal() {
		return r.Text
	}
	return ""
}

// DirectAnswer is a finished no-tool answer.
type DirectAnswer struct {
	Text string
}

// Kind implements Outcome.
func (d *DirectAnswer) Kind() string { return "direct" }

// AlreadyFinal implements Outcome.
func (d *DirectAnswer) AlreadyFinal() bool { return true }

// FinalText implements Outcome.
func (d *DirectAnswer) FinalText() string { return d.Text }

// ErrAnswerAlreadySet guards the set-once final answer invariant.
var ErrAnswerAlreadySet = errors.New("final answer already set")

// State is the single mutable record for one task. It is created at task
// entry, mutated in place by each pipeline stage in order, and discarded
// after the final answer is emitted. It is never shared across tasks.
type State struct {
	// Request is the original natural-language task text.
	Request string

	// History is the ordered, append-only conversation.
	History []llm.Message

	// Candidates are the tool descriptors selected by the router.
	Candidates []*registry.Descriptor

	// Complexity and Strategy are assigned by the router.
	Complexity Complexity
	Strategy   Strategy

	// Outcome is the execution result; nil on the direct path until
	// synthesis completes.
	Outcome Outcome

	// FinalAnswer is set exactly once by the synthesizer.
	FinalAnswer string

	// Phase tracks the state machine position.
	Phase Phase

	// Err records the failure that moved the task to PhaseFailed.
	Err error

	answered bool
}

// NewState creates the state for one task and seeds the history with the
// user's request.
func NewState(request string) *State {
	return &State{
		Request: request,
		History: []llm.Message{{Role: "user", Content: request}},
		Phase:   PhaseReceived,
	}
}

// Append adds a message to the conversation history.
func (s *State) Append(m llm.Message) {
	s.History = append(s.History, m)
}

// SetFinalAnswer records the answer. Setting it twice is a programming
// error and is rejected.
func (s *State) SetFinalAnswer(answer string) error {
	if s.answered {
		return ErrAnswerAlreadySet
	}
	s.FinalAnswer = answer
	s.answered = true
	return nil
}

// Answered reports whether the final answer has been set.
func (s *State) Answered() bool { return s.answered }

// Fail moves the task to the terminal failed phase.
func (s *State) Fail(err error) {
	s.Phase = PhaseFailed
	s.Err = err
}

// CandidateNames returns the candidate tool names in rank order.
func (s *State) CandidateNames() []string {
	out := make([]string, 0, len(s.Candidates))
	for _, d := range s.Candidates {
		out = append(out, d.Name)
	}
	return out
}

// String summarizes the state for logs.
func (s *State) String() string {
	return fmt.Sprintf("task{phase=%s strategy=%s candidates=%v}", s.Phase, s.Strategy, s.CandidateNames())
}
