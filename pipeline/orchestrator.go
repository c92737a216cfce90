// Package pipeline drives one task through the full state machine:
// discovery snapshot, routing, strategy execution and answer synthesis.
// The orchestrator owns the phase transitions; the stages own the work.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/routeact/routeact/codeact"
	"github.com/routeact/routeact/llm"
	"github.com/routeact/routeact/react"
	"github.com/routeact/routeact/registry"
	"github.com/routeact/routeact/route"
	"github.com/routeact/routeact/synth"
	"github.com/routeact/routeact/task"
)

// Orchestrator runs tasks end to end over an already-discovered registry.
//
// Contract:
//   - Concurrency: safe for concurrent Run calls; each task gets its own state.
//   - Context: ctx bounds the whole task including retries.
//   - Errors: Run always returns the task state, terminal in PhaseDone or
//     PhaseFailed. A non-nil error matches route.ErrEmptyRequest for
//     rejected input and ErrFatal for unrecoverable model failures.
type Orchestrator struct {
	Registry *registry.Registry
	Router   *route.Router
	React    *react.Executor
	CodeAct  *codeact.Executor
	Synth    *synth.Synthesizer
	Logger   llm.Logger
}

// Run executes one task and returns its terminal state.
func (o *Orchestrator) Run(ctx context.Context, request string) (*task.State, error) {
	st := task.NewState(request)

	// The registry snapshot taken at startup is the tool universe for this
	// task; tools that failed discovery simply do not exist here.
	st.Phase = task.PhaseToolsDiscovered
	o.logf("pipeline: task started, %d tools available", o.Registry.Len())

	dec, err := o.Router.Route(request, st.History)
	if err != nil {
		st.Fail(err)
		return st, err
	}
	st.Candidates = dec.Candidates
	st.Complexity = dec.Complexity
	st.Strategy = dec.Strategy
	st.Phase = task.PhaseRouted
	o.logf("pipeline: routed %s/%s candidates=%v", dec.Complexity, dec.Strategy, st.CandidateNames())

	st.Phase = task.PhaseExecuting
	switch st.Strategy {
	case task.StrategyReact:
		outcome, err := o.React.Execute(ctx, request, st.History, st.Candidates[0])
		if err != nil {
			return o.fatal(st, fmt.Errorf("single-call execution: %w", err))
		}
		st.Outcome = outcome

	case task.StrategyCodeAct:
		outcome, err := o.CodeAct.Execute(ctx, request, st.History, st.Candidates)
		if err != nil {
			return o.fatal(st, fmt.Errorf("script execution: %w", err))
		}
		st.Outcome = outcome

	case task.StrategyDirect:
		// No tools apply; synthesis answers from the conversation alone.

	default:
		return o.fatal(st, fmt.Errorf("unknown strategy %q", st.Strategy))
	}

	answer, err := o.Synth.Synthesize(ctx, st)
	if err != nil {
		if errors.Is(err, llm.ErrRateLimited) {
			return o.fatal(st, fmt.Errorf("retry budget exhausted: %w", err))
		}
		return o.fatal(st, err)
	}
	st.Phase = task.PhaseSynthesized
	st.Append(llm.Message{Role: "assistant", Content: answer})

	st.Phase = task.PhaseDone
	o.logf("pipeline: task done via %s", st.Strategy)
	return st, nil
}

func (o *Orchestrator) fatal(st *task.State, err error) (*task.State, error) {
	wrapped := fmt.Errorf("%w: %w", ErrFatal, err)
	st.Fail(wrapped)
	o.logf("pipeline: task failed: %v", err)
	return st, wrapped
}

func (o *Orchestrator) logf(format string, args ...any) {
	if o.Logger != nil {
		o.Logger.Logf(format, args...)
	}
}
