package codeact

import "strings"

// ToolCallRecord is one tool invocation made by a running script, in
// call order. Failed calls are recorded too, with Error set.
type ToolCallRecord struct {
	// Tool is the invoked tool's name.
	Tool string `json:"tool"`

	// Args are the arguments the script passed.
	Args map[string]any `json:"args,omitempty"`

	// Result is the tool's returned value, nil when the call failed.
	Result any `json:"result,omitempty"`

	// Error is the failure message, empty on success.
	Error string `json:"error,omitempty"`

	// DurationMs is the wall-clock cost of the call.
	DurationMs int64 `json:"duration_ms"`
}

// ScriptOutcome is the result of one generated-script execution. It
// implements the pipeline's outcome contract: a script result always
// goes through answer synthesis, never straight to the user.
type ScriptOutcome struct {
	// GeneratedSource is the program the model wrote, as executed.
	GeneratedSource string

	// Stdout is everything the script printed, in order.
	Stdout string

	// NamedResult is the value the script bound to final_output. When set
	// it is authoritative over Stdout for synthesis.
	NamedResult any

	// NamedSet distinguishes an explicit null result from no result.
	NamedSet bool

	// ToolInvocations records every tool call the script made, including
	// calls made before a later fault.
	ToolInvocations []ToolCallRecord

	// Err carries the generation or execution fault, nil on success.
	Err error
}

// Kind implements the outcome contract.
func (o *ScriptOutcome) Kind() string { return "script" }

// AlreadyFinal implements the outcome contract. Script output is raw
// material for synthesis, never a finished answer.
func (o *ScriptOutcome) AlreadyFinal() bool { return false }

// FinalText implements the outcome contract.
func (o *ScriptOutcome) FinalText() string { return "" }

// ToolNames returns the distinct tools the script invoked, in first-use
// order.
func (o *ScriptOutcome) ToolNames() []string {
	seen := map[string]bool{}
	var out []string
	for _, rec := range o.ToolInvocations {
		if !seen[rec.Tool] {
			seen[rec.Tool] = true
			out = append(out, rec.Tool)
		}
	}
	return out
}

// String renders a short human-readable summary for logs.
func (o *ScriptOutcome) String() string {
	var b strings.Builder
	b.WriteString("script(")
	b.WriteString(strings.Join(o.ToolNames(), ","))
	b.WriteString(")")
	if o.Err != nil {
		b.WriteString(" err=")
		b.WriteString(o.Err.Error())
	}
	return b.String()
}
