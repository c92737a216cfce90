package route

import (
	"errors"
	"strings"

	"github.com/routeact/routeact/llm"
	"github.com/routeact/routeact/registry"
	"github.com/routeact/routeact/task"
)

// ErrEmptyRequest is returned for blank or whitespace-only requests.
var ErrEmptyRequest = errors.New("empty request")

// DefaultMaxCandidates caps the candidate set when no cap is configured.
const DefaultMaxCandidates = 4

// conjunctionMarkers indicate a request carrying multiple independent
// sub-asks.
var conjunctionMarkers = []string{" and ", " then ", ", and ", " e ", " depois "}

// transformMarkers indicate data transformation or aggregation across tool
// outputs.
var transformMarkers = []string{
	"calculate", "compute", "combine", "process", "aggregate", "sql", "code",
	"calcular", "calcula", "processar", "combinar", "codigo",
}

// Decision is the router's output for one request.
type Decision struct {
	// Candidates are the retrieved tool descriptors, best first.
	Candidates []*registry.Descriptor

	// Complexity is the estimated task complexity.
	Complexity task.Complexity

	// Strategy is the selected execution strategy.
	Strategy task.Strategy
}

// Logger is an optional interface for routing observability.
type Logger interface {
	Logf(format string, args ...any)
}

// Router selects candidate tools and an execution strategy for a request.
// It is a pure decision function over a registry snapshot: no side effects,
// deterministic for the same snapshot and request.
type Router struct {
	// Registry resolves match names to descriptors.
	Registry *registry.Registry

	// Retriever is the pluggable candidate scorer.
	Retriever Retriever

	// MaxCandidates caps the candidate set. Zero means DefaultMaxCandidates.
	MaxCandidates int

	// Logger is optional.
	Logger Logger
}

// Route classifies the request and selects the strategy.
//
// Rules:
//   - zero candidates: SIMPLE, direct-answer path (no executor runs);
//   - exactly one candidate and simple text: REACT;
//   - anything else with at least one candidate: CODEACT.
//
// The history parameter is accepted for parity with the pipeline contract;
// the shipped heuristics classify on the request text alone.
func (r *Router) Route(request string, history []llm.Message) (Decision, error) {
	_ = history
	if strings.TrimSpace(request) == "" {
		return Decision{}, ErrEmptyRequest
	}

	limit := r.MaxCandidates
	if limit <= 0 {
		limit = DefaultMaxCandidates
	}
	matches, err := r.Retriever.Retrieve(request, limit)
	if err != nil {
		return Decision{}, err
	}

	candidates := make([]*registry.Descriptor, 0, len(matches))
	for _, m := range matches {
		d, err := r.Registry.Describe(m.Name)
		if err != nil {
			// Retriever and registry snapshots should agree; a stale
			// name is dropped rather than failing the task.
			r.logf("retrieved tool %s missing from registry, dropping", m.Name)
			continue
		}
		candidates = append(candidates, d)
	}

	complexity := classify(request, len(candidates))
	strategy := selectStrategy(complexity, len(candidates))
	r.logf("routed request to %s (%s, %d candidates)", strategy, complexity, len(candidates))

	return Decision{Candidates: candidates, Complexity: complexity, Strategy: strategy}, nil
}

// classify estimates complexity. An empty candidate set forces SIMPLE: with
// no tools there is nothing to orchestrate.
func classify(request string, candidateCount int) task.Complexity {
	if candidateCount == 0 {
		return task.Simple
	}
	if candidateCount > 1 {
		return task.Complex
	}
	normalized := Normalize(request)
	for _, marker := range conjunctionMarkers {
		if strings.Contains(normalized, marker) {
			return task.Complex
		}
	}
	for _, marker := range transformMarkers {
		if strings.Contains(normalized, marker) {
			return task.Complex
		}
	}
	return task.Simple
}

func selectStrategy(c task.Complexity, candidateCount int) task.Strategy {
	switch {
	case candidateCount == 0:
		return task.StrategyDirect
	case c == task.Simple && candidateCount == 1:
		return task.StrategyReact
	default:
		return task.StrategyCodeAct
	}
}

func (r *Router) logf(format string, args ...any) {
	if r.Logger != nil {
		r.Logger.Logf(format, args...)
	}
}
