package codeact

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dop251/goja"
)

// GojaEngine runs generated programs on an embedded ECMAScript
// interpreter. Each Run builds a fresh interpreter, so the engine itself
// holds no state and is safe to share.
type GojaEngine struct{}

// NewGojaEngine returns a ready engine.
func NewGojaEngine() *GojaEngine { return &GojaEngine{} }

// Run implements Engine.
func (e *GojaEngine) Run(ctx context.Context, source string, bindings []Binding, budget time.Duration) (RunResult, error) {
	prog, err := goja.Compile("generated.js", source, false)
	if err != nil {
		return RunResult{}, fmt.Errorf("%w: %v", ErrCodeGeneration, err)
	}

	vm := goja.New()
	var stdout strings.Builder

	printFn := func(call goja.FunctionCall) goja.Value {
		parts := make([]string, 0, len(call.Arguments))
		for _, a := range call.Arguments {
			parts = append(parts, formatValue(a))
		}
		stdout.WriteString(strings.Join(parts, " "))
		stdout.WriteByte('\n')
		return goja.Undefined()
	}
	_ = vm.Set("print", printFn)
	console := vm.NewObject()
	_ = console.Set("log", printFn)
	_ = vm.Set("console", console)

	for _, b := range bindings {
		invoke := b.Invoke
		_ = vm.Set(b.Name, func(args map[string]any) (any, error) {
			return invoke(ctx, args)
		})
	}

	// The interpreter runs on this goroutine; interrupts are the only way
	// to stop it from outside.
	if budget > 0 {
		timer := time.AfterFunc(budget, func() {
			vm.Interrupt(fmt.Sprintf("execution budget of %s exceeded", budget))
		})
		defer timer.Stop()
	}
	watchdogDone := make(chan struct{})
	defer close(watchdogDone)
	go func() {
		select {
		case <-ctx.Done():
			vm.Interrupt(ctx.Err())
		case <-watchdogDone:
		}
	}()

	collect := func() RunResult {
		vm.ClearInterrupt()
		out := RunResult{Stdout: stdout.String()}
		if v := vm.Get("final_output"); v != nil && !goja.IsUndefined(v) {
			out.NamedResult = v.Export()
			out.NamedSet = true
		}
		return out
	}

	if _, err := runProtected(func() (goja.Value, error) { return vm.RunProgram(prog) }); err != nil {
		return collect(), classifyRuntime(err)
	}

	mainFn, ok := goja.AssertFunction(vm.Get("main"))
	if !ok {
		return collect(), fmt.Errorf("%w: program defines no main function", ErrCodeGeneration)
	}

	res, err := runProtected(func() (goja.Value, error) { return mainFn(goja.Undefined()) })
	if err != nil {
		return collect(), classifyRuntime(err)
	}

	// An async main returns a promise. Host calls are synchronous, so by
	// the time the call returns the microtask queue has drained and the
	// promise has settled.
	if res != nil {
		if p, ok := res.Export().(*goja.Promise); ok {
			switch p.State() {
			case goja.PromiseStateRejected:
				return collect(), fmt.Errorf("%w: %s", ErrScriptExecution, p.Result().String())
			case goja.PromiseStatePending:
				return collect(), fmt.Errorf("%w: main never settled", ErrScriptExecution)
			}
		}
	}

	return collect(), nil
}

// runProtected contains interpreter panics from host bindings.
func runProtected(fn func() (goja.Value, error)) (v goja.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}

func classifyRuntime(err error) error {
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		return fmt.Errorf("%w: interrupted: %v", ErrScriptExecution, interrupted.Value())
	}
	var exc *goja.Exception
	if errors.As(err, &exc) {
		return fmt.Errorf("%w: %v", ErrScriptExecution, exc.Value())
	}
	return fmt.Errorf("%w: %v", ErrScriptExecution, err)
}

// formatValue renders one printed argument the way a developer console
// would: objects and arrays as JSON, everything else via its string form.
func formatValue(v goja.Value) string {
	switch exported := v.Export().(type) {
	case map[string]any, []any:
		data, err := json.Marshal(exported)
		if err != nil {
			return v.String()
		}
		return string(data)
	default:
		return v.String()
	}
}
