package route

import (
	"context"
	"testing"

	"github.com/routeact/routeact/registry"
)

func noopInvoke(ctx context.Context, args map[string]any) (any, error) { return nil, nil }

func descriptors(t *testing.T, names ...string) []*registry.Descriptor {
	t.Helper()
	out := make([]*registry.Descriptor, 0, len(names))
	for _, name := range names {
		d, err := registry.NewDescriptor(name, name, "test", nil, noopInvoke)
		if err != nil {
			t.Fatalf("descriptor %s: %v", name, err)
		}
		out = append(out, d)
	}
	return out
}

func matchNames(ms []Match) []string {
	out := make([]string, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.Name)
	}
	return out
}

func TestNormalizeStripsAccentsAndCase(t *testing.T) {
	cases := map[string]string{
		"Qual é o TEMPO em São Paulo?": "qual e o tempo em sao paulo?",
		"Multiplicação":                "multiplicacao",
		"plain ascii":                  "plain ascii",
	}
	for in, want := range cases {
		if got := Normalize(in); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRetrieve_AccentInsensitiveMatch(t *testing.T) {
	r := NewKeywordRetriever(descriptors(t, "get_weather", "add"), DefaultKeywordHints())
	ms, err := r.Retrieve("Qual é o CLIMA em Brasília?", 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ms) != 1 || ms[0].Name != "get_weather" {
		t.Fatalf("expected [get_weather], got %v", matchNames(ms))
	}
}

func TestRetrieve_ReadQueryPullsSchemaTools(t *testing.T) {
	r := NewKeywordRetriever(
		descriptors(t, "get_weather", "read_query", "describe_table", "list_tables"),
		DefaultKeywordHints(),
	)
	ms, err := r.Retrieve("Run a select over the bookings", 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := matchNames(ms)
	want := map[string]bool{"read_query": false, "describe_table": false, "list_tables": false}
	for _, name := range got {
		if _, ok := want[name]; ok {
			want[name] = true
		}
	}
	for name, seen := range want {
		if !seen {
			t.Errorf("expected %s among matches, got %v", name, got)
		}
	}
	if got[0] != "read_query" {
		t.Errorf("read_query should rank first, got %v", got)
	}
}

func TestRetrieve_ExpansionSkipsUnregisteredTools(t *testing.T) {
	// describe_table and list_tables are not deployed: the expansion must
	// not invent matches for them.
	r := NewKeywordRetriever(descriptors(t, "read_query"), DefaultKeywordHints())
	ms, err := r.Retrieve("query the flights table for delays", 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ms) != 1 || ms[0].Name != "read_query" {
		t.Fatalf("expected [read_query], got %v", matchNames(ms))
	}
}

func TestRetrieve_LimitCapsMatches(t *testing.T) {
	r := NewKeywordRetriever(
		descriptors(t, "get_weather", "add", "multiply", "read_query", "describe_table", "list_tables"),
		DefaultKeywordHints(),
	)
	ms, err := r.Retrieve("weather plus sum times select describe tables", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ms) != 2 {
		t.Fatalf("expected 2 matches, got %v", matchNames(ms))
	}
}

func TestRetrieve_NoMatches(t *testing.T) {
	r := NewKeywordRetriever(descriptors(t, "get_weather", "add"), DefaultKeywordHints())
	ms, err := r.Retrieve("compose a haiku", 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ms) != 0 {
		t.Fatalf("expected no matches, got %v", matchNames(ms))
	}
}
