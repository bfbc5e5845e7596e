package learning

import (
	"context"

	"github.com/aurosystems/ragkit/core"
	"github.com/aurosystems/ragkit/storage"
)

// DefaultDedupThreshold is the similarity above which a learned candidate
// is considered already known. Deliberately stricter than the retrieval
// threshold: retrieval wants related chunks, dedup wants near-identical ones.
const DefaultDedupThreshold = 0.9

// Guard suppresses near-duplicate learned chunks before insertion.
type Guard struct {
	chunks    storage.ChunkStore
	threshold float64
}

// NewGuard creates a dedup guard over a chunk store.
// A non-positive threshold selects the default.
func NewGuard(chunks storage.ChunkStore, threshold float64) *Guard {
	if threshold <= 0 {
		threshold = DefaultDedupThreshold
	}
	return &Guard{chunks: chunks, threshold: threshold}
}

// IsDuplicate reports whether any stored chunk within the scope is at least
// as similar as the guard threshold. A single hit suppresses insertion.
func (g *Guard) IsDuplicate(ctx context.Context, embedding []float32, scope core.Scope) (bool, error) {
	matches, err := g.chunks.QuerySimilar(ctx, embedding, storage.SimilarityQuery{
		Scope:     scope,
		Threshold: g.threshold,
		TopK:      1,
	})
	if err != nil {
		return false, err
	}
	return len(matches) > 0, nil
}
