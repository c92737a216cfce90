package codeact

import "errors"

// Sentinel errors carried inside failed script outcomes.
var (
	// ErrCodeGeneration reports that the model produced no usable program:
	// no code block, a syntax error, or a missing main entry point. Nothing
	// was executed.
	ErrCodeGeneration = errors.New("codeact: code generation failed")

	// ErrScriptExecution reports a program that started and then failed:
	// an uncaught exception, an interrupt, or an exhausted execution budget.
	// Output captured before the fault is preserved.
	ErrScriptExecution = errors.New("codeact: script execution failed")
)
