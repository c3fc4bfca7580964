package rag

import (
	"go.uber.org/zap"
)

// DefaultTopK is the fixed number of passages retrieved per question. It is a
// server-side constant, not caller-controlled, to bound prompt size and cost.
const DefaultTopK = 5

// Match is one retrieved passage with provenance, ordered most-relevant-first.
type Match struct {
	Source   string
	Passage  string
	Distance float32
}

// Retriever runs exact nearest-neighbor search over a tenant's index and maps
// hits back to (source, passage) pairs via the index-aligned slices.
type Retriever struct {
	topK   int
	logger *zap.Logger
}

// NewRetriever creates a retriever returning at most topK matches. A
// non-positive topK falls back to DefaultTopK.
func NewRetriever(topK int, logger *zap.Logger) *Retriever {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Retriever{
		topK:   topK,
		logger: logger.With(zap.String("component", "retriever")),
	}
}

// Retrieve returns up to topK passages nearest to query, ascending by
// distance. Hits whose index falls outside passages/sources are skipped and
// logged rather than failing the request: partial context beats losing the
// whole answer to one corrupted alignment entry.
func (r *Retriever) Retrieve(index *FlatIndex, passages, sources []string, query []float32) ([]Match, error) {
	hits, err := index.Search(query, r.topK)
	if err != nil {
		return nil, err
	}

	matches := make([]Match, 0, len(hits))
	for _, hit := range hits {
		if hit.Index < 0 || hit.Index >= len(passages) || hit.Index >= len(sources) {
			r.logger.Warn("retrieved index out of document range, skipping",
				zap.Int("index", hit.Index),
				zap.Int("passages", len(passages)),
				zap.Int("sources", len(sources)))
			continue
		}
		matches = append(matches, Match{
			Source:   sources[hit.Index],
			Passage:  passages[hit.Index],
			Distance: hit.Distance,
		})
	}
	return matches, nil
}
