// Package codeact implements the generated-script execution strategy:
// the model writes a small JavaScript program against the routed tools,
// and the program runs in an embedded sandbox with the tools bound as
// host functions. The sandbox shares the caller's goroutine, so tool
// calls made from the script go through the same context and budget as
// the rest of the pipeline.
//
// A run produces a ScriptOutcome carrying the generated source, captured
// stdout, the script's named result binding if it set one, and a record
// of every tool invocation the script made. Faults are carried inside
// the outcome so answer synthesis can still explain them.
package codeact
