package route

import (
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"

	"github.com/routeact/routeact/registry"
)

// indexDoc is the shape indexed per tool.
type indexDoc struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Keywords    string `json:"keywords"`
}

// IndexRetriever scores tools with a bleve full-text index over tool
// names, descriptions and keyword hints. It is built once from a registry
// snapshot and read-only afterwards.
type IndexRetriever struct {
	index    bleve.Index
	minScore float64
}

// NewIndexRetriever builds an in-memory index over the descriptors.
// minScore is the relevance floor below which hits are dropped; zero keeps
// every hit bleve returns.
func NewIndexRetriever(descriptors []*registry.Descriptor, hints map[string][]string, minScore float64) (*IndexRetriever, error) {
	mapping := bleve.NewIndexMapping()
	idx, err := bleve.NewMemOnly(mapping)
	if err != nil {
		return nil, fmt.Errorf("route: creating retrieval index: %w", err)
	}
	for _, d := range descriptors {
		doc := indexDoc{
			Name:        d.Name,
			Description: d.Description,
			Keywords:    strings.Join(hints[d.Name], " "),
		}
		if err := idx.Index(d.Name, doc); err != nil {
			return nil, fmt.Errorf("route: indexing %s: %w", d.Name, err)
		}
	}
	return &IndexRetriever{index: idx, minScore: minScore}, nil
}

// Retrieve implements Retriever.
func (r *IndexRetriever) Retrieve(query string, limit int) ([]Match, error) {
	q := bleve.NewMatchQuery(Normalize(query))
	req := bleve.NewSearchRequest(q)
	if limit > 0 {
		req.Size = limit
	}
	res, err := r.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("route: retrieval search: %w", err)
	}
	out := make([]Match, 0, len(res.Hits))
	for _, hit := range res.Hits {
		if r.minScore > 0 && hit.Score < r.minScore {
			continue
		}
		out = append(out, Match{Name: hit.ID, Score: hit.Score})
	}
	return out, nil
}

// Close releases the index resources.
func (r *IndexRetriever) Close() error {
	return r.index.Close()
}
