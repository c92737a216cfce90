// Package route decides how a task is executed: it retrieves candidate
// tools for the request, estimates complexity, and selects between the
// single-call and generated-script strategies.
//
// Candidate retrieval is a pluggable seam: the Retriever interface can be
// served by the keyword scorer or by a bleve full-text index, and an
// embedding-based implementation could be substituted without changing the
// router's contract.
package route

import (
	"sort"
	"strings"

	"github.com/routeact/routeact/registry"
)

// Match is a scored retrieval hit.
type Match struct {
	// Name is the tool name.
	Name string

	// Score is the retrieval relevance; higher is more relevant.
	Score float64
}

// Retriever scores tools against a request text.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Ownership: returned matches are caller-owned, ranked by descending score.
type Retriever interface {
	// Retrieve returns up to limit matches above the implementation's
	// relevance floor, best first.
	Retrieve(query string, limit int) ([]Match, error)
}

// DefaultKeywordHints maps tool names to trigger keywords for the shipped
// services, in both English and Portuguese.
func DefaultKeywordHints() map[string][]string {
	return map[string][]string{
		"get_weather":    {"weather", "tempo", "clima", "forecast", "temperature"},
		"add":            {"add", "sum", "soma", "plus", "matematica", "+"},
		"multiply":       {"multiply", "multiplica", "times", "product", "*"},
		"list_tables":    {"tables", "table", "tabela", "tabelas", "database", "base de dados", "db", "sqlite"},
		"describe_table": {"columns", "colunas", "schema", "describe", "descrever"},
		"read_query":     {"select", "query", "consultar", "ler", "read"},
		"write_query":    {"insert", "update", "delete", "inserir", "atualizar", "apagar", "escrever"},
	}
}

// KeywordRetriever scores tools by normalized keyword containment in the
// request, the way the original ad-hoc retrieval did: longer keywords are
// tried first so partial matches don't shadow specific ones, and a
// read_query hit pulls in the schema-inspection tools it usually needs.
type KeywordRetriever struct {
	descriptors []*registry.Descriptor
	keywords    map[string][]string
}

// NewKeywordRetriever builds a retriever over the given descriptors.
// hints may be nil, in which case each tool matches only on its own name
// and description words.
func NewKeywordRetriever(descriptors []*registry.Descriptor, hints map[string][]string) *KeywordRetriever {
	return &KeywordRetriever{descriptors: descriptors, keywords: hints}
}

// Retrieve implements Retriever.
func (r *KeywordRetriever) Retrieve(query string, limit int) ([]Match, error) {
	normalized := Normalize(query)

	type scored struct {
		name  string
		score float64
		rank  int
	}
	known := make(map[string]bool, len(r.descriptors))
	for _, d := range r.descriptors {
		known[d.Name] = true
	}

	hits := map[string]*scored{}
	record := func(name string, weight float64) {
		if !known[name] {
			return
		}
		if s, ok := hits[name]; ok {
			s.score += weight
			return
		}
		hits[name] = &scored{name: name, score: weight, rank: len(hits)}
	}

	for _, d := range r.descriptors {
		for _, kw := range r.sortedKeywords(d.Name) {
			if strings.Contains(normalized, kw) {
				record(d.Name, float64(len(kw)))
			}
		}
	}

	// Reading the database usually needs the schema tools alongside.
	if _, ok := hits["read_query"]; ok {
		record("describe_table", 1)
		record("list_tables", 1)
	}

	ranked := make([]*scored, 0, len(hits))
	for _, s := range hits {
		ranked = append(ranked, s)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].rank < ranked[j].rank
	})
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	out := make([]Match, 0, len(ranked))
	for _, s := range ranked {
		out = append(out, Match{Name: s.name, Score: s.score})
	}
	return out, nil
}

// sortedKeywords returns the normalized keywords for a tool, longest
// first, seeded with the tool's own name.
func (r *KeywordRetriever) sortedKeywords(tool string) []string {
	kws := []string{Normalize(tool)}
	for _, kw := range r.keywords[tool] {
		kws = append(kws, Normalize(kw))
	}
	sort.Slice(kws, func(i, j int) bool { return len(kws[i]) > len(kws[j]) })
	return kws
}
