package codeact

import (
	"context"
	"time"
)

// Binding exposes one tool to a running script as a host function.
type Binding struct {
	// Name is the identifier the script calls.
	Name string

	// Invoke runs the tool. A returned error is raised inside the script
	// as an exception.
	Invoke func(ctx context.Context, args map[string]any) (any, error)
}

// RunResult is what an engine recovered from a script run. On failure it
// still carries whatever stdout and bindings were produced before the
// fault.
type RunResult struct {
	// Stdout is the captured print output.
	Stdout string

	// NamedResult is the value of final_output after the run.
	NamedResult any

	// NamedSet reports whether the script assigned final_output at all.
	NamedSet bool
}

// Engine runs a generated program with tools bound as host functions.
//
// Contract:
//   - Concurrency: an Engine value may be shared; each Run uses an isolated
//     interpreter instance.
//   - Context: Run must stop the program when ctx is canceled.
//   - Errors: compile and missing-entry faults wrap ErrCodeGeneration;
//     runtime faults, interrupts and budget exhaustion wrap
//     ErrScriptExecution. The partial RunResult is valid in both cases.
type Engine interface {
	// Run compiles source, binds the tools, calls its main function and
	// returns the result. budget bounds wall-clock execution; zero means
	// no budget beyond ctx.
	Run(ctx context.Context, source string, bindings []Binding, budget time.Duration) (RunResult, error)
}
