package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/routeact/routeact/codeact"
	"github.com/routeact/routeact/llm"
	"github.com/routeact/routeact/react"
	"github.com/routeact/routeact/registry"
	"github.com/routeact/routeact/route"
	"github.com/routeact/routeact/synth"
	"github.com/routeact/routeact/task"
)

// fakeService is an in-process stand-in for a subprocess tool service.
type fakeService struct {
	name        string
	tools       []*mcp.Tool
	handlers    map[string]func(args map[string]any) (any, error)
	unreachable bool
}

func (s *fakeService) Name() string { return s.name }

func (s *fakeService) Start(ctx context.Context) error {
	if s.unreachable {
		return fmt.Errorf("spawn %s: executable not found", s.name)
	}
	return nil
}

func (s *fakeService) Stop() error { return nil }

func (s *fakeService) ListTools(ctx context.Context) ([]*mcp.Tool, error) {
	return s.tools, nil
}

func (s *fakeService) Call(ctx context.Context, tool string, args map[string]any) (any, error) {
	h, ok := s.handlers[tool]
	if !ok {
		return nil, fmt.Errorf("%s: no handler for %s", s.name, tool)
	}
	return h(args)
}

// step is one scripted model turn.
type step struct {
	text string
	use  *llm.ToolUse
	err  error
}

// queueCompleter replays scripted turns for Complete and CompleteWithTool.
type queueCompleter struct {
	steps []step
	calls int
}

func (c *queueCompleter) next() step {
	if c.calls >= len(c.steps) {
		return step{err: fmt.Errorf("unexpected model call %d", c.calls)}
	}
	s := c.steps[c.calls]
	c.calls++
	return s
}

func (c *queueCompleter) Complete(ctx context.Context, messages []llm.Message) (string, error) {
	s := c.next()
	return s.text, s.err
}

func (c *queueCompleter) CompleteWithTool(ctx context.Context, messages []llm.Message, tool llm.ToolSpec) (*llm.ToolUse, string, error) {
	s := c.next()
	return s.use, s.text, s.err
}

func weatherService() *fakeService {
	return &fakeService{
		name:  "weather",
		tools: []*mcp.Tool{{Name: "get_weather", Description: "Gets current weather for a location"}},
		handlers: map[string]func(args map[string]any) (any, error){
			"get_weather": func(args map[string]any) (any, error) {
				loc, _ := args["location"].(string)
				if loc == "" {
					return nil, fmt.Errorf("location is required")
				}
				return map[string]any{"location": loc, "temp_c": 21.5, "conditions": "clear"}, nil
			},
		},
	}
}

func mathService() *fakeService {
	return &fakeService{
		name: "math",
		tools: []*mcp.Tool{
			{Name: "add", Description: "Adds two numbers"},
			{Name: "multiply", Description: "Multiplies two numbers"},
		},
		handlers: map[string]func(args map[string]any) (any, error){
			"add": func(args map[string]any) (any, error) {
				return toFloat(args["a"]) + toFloat(args["b"]), nil
			},
			"multiply": func(args map[string]any) (any, error) {
				return toFloat(args["a"]) * toFloat(args["b"]), nil
			},
		},
	}
}

func sqliteService() *fakeService {
	return &fakeService{
		name: "sqlite",
		tools: []*mcp.Tool{
			{Name: "list_tables", Description: "Lists the tables in the database"},
			{Name: "describe_table", Description: "Describes the columns of a table"},
			{Name: "read_query", Description: "Runs a SELECT query"},
		},
		handlers: map[string]func(args map[string]any) (any, error){
			"list_tables": func(args map[string]any) (any, error) {
				return []any{"airports", "bookings", "flights"}, nil
			},
		},
	}
}

func toFloat(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case int64:
		return float64(t)
	case int:
		return float64(t)
	default:
		return 0
	}
}

func newOrchestrator(t *testing.T, completer llm.Completer, services ...registry.Service) *Orchestrator {
	t.Helper()
	reg := registry.New(services...)
	if err := reg.Discover(context.Background()); err != nil {
		t.Fatalf("discover: %v", err)
	}
	retry := llm.RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		Sleep:       func(ctx context.Context, d time.Duration) error { return nil },
	}
	return &Orchestrator{
		Registry: reg,
		Router: &route.Router{
			Registry:  reg,
			Retriever: route.NewKeywordRetriever(reg.All(), route.DefaultKeywordHints()),
		},
		React:   &react.Executor{Completer: completer},
		CodeAct: &codeact.Executor{Completer: completer, Engine: codeact.NewGojaEngine()},
		Synth:   &synth.Synthesizer{Completer: completer, Retry: retry},
	}
}

func allServices() []registry.Service {
	return []registry.Service{weatherService(), mathService(), sqliteService()}
}

func TestRun_SimpleWeatherGoesReact(t *testing.T) {
	c := &queueCompleter{steps: []step{
		{use: &llm.ToolUse{Name: "get_weather", Args: map[string]any{"location": "Lisbon"}}},
		{text: "It is 21.5 C and clear in Lisbon."},
	}}
	o := newOrchestrator(t, c, allServices()...)

	st, err := o.Run(context.Background(), "What's the weather in Lisbon?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st.Phase != task.PhaseDone {
		t.Errorf("phase = %s, want done", st.Phase)
	}
	if st.Strategy != task.StrategyReact {
		t.Errorf("strategy = %s, want REACT", st.Strategy)
	}
	res, ok := st.Outcome.(*task.ToolResult)
	if !ok || res.Tool != "get_weather" {
		t.Fatalf("outcome = %#v, want get_weather tool result", st.Outcome)
	}
	if st.FinalAnswer != "It is 21.5 C and clear in Lisbon." {
		t.Errorf("answer = %q", st.FinalAnswer)
	}
	last := st.History[len(st.History)-1]
	if last.Role != "assistant" || last.Content != st.FinalAnswer {
		t.Errorf("history must end with the answer, got %+v", last)
	}
}

func TestRun_CompositeRequestGoesCodeAct(t *testing.T) {
	script := "```javascript\n" + `
function main() {
	var w = get_weather({"location": "Porto"});
	var s = add({"a": 10, "b": 5});
	final_output = "Porto: " + w.conditions + ", sum: " + s;
}
` + "```"
	c := &queueCompleter{steps: []step{
		{text: script},
		{text: "In Porto it is clear, and 10 + 5 = 15."},
	}}
	o := newOrchestrator(t, c, allServices()...)

	st, err := o.Run(context.Background(), "What's the weather in Porto and calculate the sum of 10 and 5?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st.Strategy != task.StrategyCodeAct {
		t.Fatalf("strategy = %s, want CODEACT", st.Strategy)
	}
	out, ok := st.Outcome.(*codeact.ScriptOutcome)
	if !ok {
		t.Fatalf("outcome = %#v, want script outcome", st.Outcome)
	}
	if len(out.ToolInvocations) != 2 {
		t.Errorf("expected 2 tool invocations, got %+v", out.ToolInvocations)
	}
	if !out.NamedSet {
		t.Error("script result missing")
	}
	if st.Phase != task.PhaseDone || st.FinalAnswer == "" {
		t.Errorf("task not completed: phase=%s answer=%q", st.Phase, st.FinalAnswer)
	}
}

func TestRun_DatabaseListingGoesReact(t *testing.T) {
	c := &queueCompleter{steps: []step{
		{use: &llm.ToolUse{Name: "list_tables", Args: map[string]any{}}},
		{text: "The database has airports, bookings and flights tables."},
	}}
	o := newOrchestrator(t, c, allServices()...)

	st, err := o.Run(context.Background(), "List the tables in the travel database")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st.Strategy != task.StrategyReact {
		t.Fatalf("strategy = %s, want REACT", st.Strategy)
	}
	res, ok := st.Outcome.(*task.ToolResult)
	if !ok || res.Tool != "list_tables" {
		t.Fatalf("outcome = %#v, want list_tables tool result", st.Outcome)
	}
	if !strings.Contains(st.FinalAnswer, "airports") {
		t.Errorf("answer = %q", st.FinalAnswer)
	}
}

func TestRun_UnreachableServiceDegradesToDirect(t *testing.T) {
	weather := weatherService()
	weather.unreachable = true
	c := &queueCompleter{steps: []step{
		{text: "I cannot reach the weather service right now."},
	}}
	o := newOrchestrator(t, c, weather, mathService(), sqliteService())

	if o.Registry.Len() != 5 {
		t.Fatalf("expected 5 tools without weather, got %v", o.Registry.Names())
	}

	st, err := o.Run(context.Background(), "What's the weather in Lisbon?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st.Strategy != task.StrategyDirect {
		t.Fatalf("strategy = %s, want DIRECT", st.Strategy)
	}
	if st.Outcome != nil {
		t.Errorf("direct path must have no outcome, got %#v", st.Outcome)
	}
	if st.Phase != task.PhaseDone || st.FinalAnswer == "" {
		t.Errorf("task not completed: phase=%s answer=%q", st.Phase, st.FinalAnswer)
	}
}

func TestRun_EmptyRequestFailsBeforeExecution(t *testing.T) {
	c := &queueCompleter{}
	o := newOrchestrator(t, c, allServices()...)

	st, err := o.Run(context.Background(), "   ")
	if !errors.Is(err, route.ErrEmptyRequest) {
		t.Fatalf("expected ErrEmptyRequest, got %v", err)
	}
	if st.Phase != task.PhaseFailed {
		t.Errorf("phase = %s, want failed", st.Phase)
	}
	if c.calls != 0 {
		t.Errorf("no model call may happen, got %d", c.calls)
	}
}

func TestRun_ToolFailureStillSynthesizes(t *testing.T) {
	c := &queueCompleter{steps: []step{
		{use: &llm.ToolUse{Name: "get_weather", Args: map[string]any{}}},
		{text: "I could not fetch the weather: the location was missing."},
	}}
	o := newOrchestrator(t, c, allServices()...)

	st, err := o.Run(context.Background(), "What's the weather?")
	if err != nil {
		t.Fatalf("execution faults must still produce an answer, got %v", err)
	}
	res, ok := st.Outcome.(*task.ToolResult)
	if !ok || res.Err == nil {
		t.Fatalf("outcome should carry the fault, got %#v", st.Outcome)
	}
	if st.Phase != task.PhaseDone || st.FinalAnswer == "" {
		t.Errorf("task not completed: phase=%s answer=%q", st.Phase, st.FinalAnswer)
	}
}

func TestRun_RateLimitExhaustionIsFatal(t *testing.T) {
	c := &queueCompleter{steps: []step{
		{use: &llm.ToolUse{Name: "get_weather", Args: map[string]any{"location": "Lisbon"}}},
		{err: llm.ErrRateLimited},
		{err: llm.ErrRateLimited},
		{err: llm.ErrRateLimited},
	}}
	o := newOrchestrator(t, c, allServices()...)

	st, err := o.Run(context.Background(), "What's the weather in Lisbon?")
	if !errors.Is(err, ErrFatal) {
		t.Fatalf("expected ErrFatal, got %v", err)
	}
	if !errors.Is(err, llm.ErrRateLimited) {
		t.Fatalf("fatal error must keep the rate-limit identity, got %v", err)
	}
	if st.Phase != task.PhaseFailed {
		t.Errorf("phase = %s, want failed", st.Phase)
	}
	if st.Answered() {
		t.Error("no answer may be recorded")
	}
}

func TestRun_ConversationalReactSkipsSynthesisCall(t *testing.T) {
	c := &queueCompleter{steps: []step{
		{text: "Weather reports only cover real places."},
	}}
	o := newOrchestrator(t, c, allServices()...)

	st, err := o.Run(context.Background(), "What's the weather in Narnia?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st.FinalAnswer != "Weather reports only cover real places." {
		t.Errorf("answer = %q", st.FinalAnswer)
	}
	if c.calls != 1 {
		t.Errorf("finished outcome must not trigger a synthesis call, got %d calls", c.calls)
	}
}
