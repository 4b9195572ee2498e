package retriever

import (
	"sort"

	"github.com/docrag/docrag-mcp/pkg/types"
)

// Fuse deduplicates, adjusts, merges, sorts, and truncates raw candidates
// into the final ranked result list. Deterministic given identical inputs:
// duplicates resolve to the first-seen instance (stage order), and ties in
// adjusted score break on the identity key.
//
// For visual-intent queries, image candidate scores are boosted by the
// configured factor and clamped to 1.0, and the result budget grows by the
// image limit so downstream context assembly can pick a modality mix.
func (r *Retriever) Fuse(candidates []types.Candidate, topK int, visual bool) []types.RankedResult {
	if topK <= 0 {
		topK = 10
	}

	// Deduplicate by identity key, keeping the first-seen instance. Scores
	// are not merged across duplicate stage hits.
	seen := make(map[string]struct{}, len(candidates))
	results := make([]types.RankedResult, 0, len(candidates))

	for _, c := range candidates {
		key := c.Key()
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		adjusted := c.Score
		if visual && c.Modality == types.ModalityImage {
			adjusted = c.Score * r.cfg.ImageScoreBoost
			if adjusted > 1.0 {
				adjusted = 1.0
			}
		}

		results = append(results, types.RankedResult{
			Candidate:     c,
			AdjustedScore: adjusted,
		})
	}

	// Descending by adjusted score; the identity key is an explicit
	// deterministic tiebreaker rather than relying on insertion order.
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].AdjustedScore != results[j].AdjustedScore {
			return results[i].AdjustedScore > results[j].AdjustedScore
		}
		return results[i].Key() < results[j].Key()
	})

	budget := topK
	if visual {
		budget = topK + r.cfg.MaxImagesPerQuery
	}
	if len(results) > budget {
		results = results[:budget]
	}

	for i := range results {
		results[i].Rank = i + 1
	}

	return results
}
