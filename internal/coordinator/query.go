package coordinator

import (
	"context"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"codesearch/internal/coreerrors"
	"codesearch/internal/types"
)

// rrfK is the reciprocal-rank-fusion constant (spec §4.7.4): rrf_i =
// 1/(rrfK+rank_i), rank_i 1-based.
const rrfK = 60

// minScoreRungs is the fixed descending ladder spec §4.7.4 falls through
// below whatever MinScore the caller asked for, applied to the dense
// (vector) score only — preserved as-is for compatibility with pure-vector
// callers even though applying it to the combined score would read more
// naturally.
var minScoreRungs = []float64{0.7, 0.6, 0.5, 0.4, 0.3}

// QueryOptions configures one hybrid query.
type QueryOptions struct {
	K      int
	Hybrid bool // false restricts to dense-only search.
	Filter types.Filter
	// MinScore, if non-nil, filters the dense score before fusion. If the
	// filtered set is empty the threshold descends through minScoreRungs
	// (skipping rungs above MinScore) until results appear or the ladder is
	// exhausted, at which point the result set stays empty.
	MinScore *float64
}

// Query implements spec §4.7.4's hybrid retrieval: dense and lexical search
// run concurrently at an inner k, results fuse via reciprocal rank fusion,
// and a descending min-score ladder trims the dense score's long tail
// before truncating to the caller's k.
func (c *Coordinator) Query(ctx context.Context, queryText string, opts QueryOptions) ([]types.SearchResult, error) {
	k := opts.K
	if k <= 0 {
		k = 10
	}
	inner := k
	if opts.Hybrid && inner < 50 {
		inner = 50
	}

	vecs, err := c.embedder.Embed(ctx, []string{queryText})
	if err != nil {
		return nil, coreerrors.New(coreerrors.KindEmbedderFailure, "coordinator.Query", err)
	}
	queryVec := vecs[0]

	var dense []types.ScoredChunk
	var lexical []types.ScoredChunk

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		res, err := c.vectors.Search(gctx, queryVec, inner, opts.Filter)
		if err != nil {
			return coreerrors.New(coreerrors.KindVectorStoreFailure, "coordinator.Query", err)
		}
		dense = res
		return nil
	})
	if opts.Hybrid {
		g.Go(func() error {
			res, err := c.lexical.Search(gctx, queryText, inner, opts.Filter)
			if err != nil {
				return coreerrors.New(coreerrors.KindLexicalIndexFailure, "coordinator.Query", err)
			}
			lexical = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if opts.MinScore != nil {
		dense = applyMinScoreLadder(dense, *opts.MinScore)
	}

	var fused []types.SearchResult
	if opts.Hybrid {
		fused = fuseRRF(dense, lexical)
	} else {
		fused = make([]types.SearchResult, 0, len(dense))
		for _, sc := range dense {
			fused = append(fused, resultFrom(sc.Chunk, sc.Score, 0, sc.Score))
		}
	}

	if len(fused) > k {
		fused = fused[:k]
	}

	c.logger.Debug("query complete",
		zap.Int("dense_hits", len(dense)),
		zap.Int("lexical_hits", len(lexical)),
		zap.Int("fused", len(fused)),
		zap.Bool("hybrid", opts.Hybrid))

	return fused, nil
}

// applyMinScoreLadder filters dense by minScore, then — if that leaves
// nothing — descends through minScoreRungs below minScore until a rung
// admits at least one result or the ladder is exhausted. An exhausted
// ladder yields an empty slice; scenario 5 of spec §8 explicitly allows
// "empty with the tried thresholds reported" as a valid outcome.
func applyMinScoreLadder(dense []types.ScoredChunk, minScore float64) []types.ScoredChunk {
	thresholds := []float64{minScore}
	for _, rung := range minScoreRungs {
		if rung < minScore {
			thresholds = append(thresholds, rung)
		}
	}

	for _, threshold := range thresholds {
		filtered := make([]types.ScoredChunk, 0, len(dense))
		for _, sc := range dense {
			if sc.Score >= threshold {
				filtered = append(filtered, sc)
			}
		}
		if len(filtered) > 0 {
			return filtered
		}
	}
	return nil
}

// fuseRRF combines ranked dense and lexical hit lists via reciprocal rank
// fusion, summing 1/(rrfK+rank) per list a chunk id appears in, then sorts
// descending by combined score with an ascending chunk-id tiebreak for
// determinism.
func fuseRRF(dense, lexical []types.ScoredChunk) []types.SearchResult {
	byID := make(map[string]*types.SearchResult)
	order := make([]string, 0, len(dense)+len(lexical))

	for rank, sc := range dense {
		r := ensureResult(byID, &order, sc.Chunk)
		r.VectorScore = sc.Score
		r.CombinedScore += rrfScore(rank)
	}
	for rank, sc := range lexical {
		r := ensureResult(byID, &order, sc.Chunk)
		r.KeywordScore = sc.Score
		r.CombinedScore += rrfScore(rank)
	}

	results := make([]types.SearchResult, 0, len(order))
	for _, id := range order {
		results = append(results, *byID[id])
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].CombinedScore != results[j].CombinedScore {
			return results[i].CombinedScore > results[j].CombinedScore
		}
		return results[i].ChunkID < results[j].ChunkID
	})
	return results
}

func rrfScore(zeroBasedRank int) float64 {
	return 1.0 / float64(rrfK+zeroBasedRank+1)
}

func ensureResult(byID map[string]*types.SearchResult, order *[]string, c types.Chunk) *types.SearchResult {
	if r, ok := byID[c.ID]; ok {
		return r
	}
	r := resultFrom(c, 0, 0, 0)
	byID[c.ID] = &r
	*order = append(*order, c.ID)
	return byID[c.ID]
}

func resultFrom(c types.Chunk, vectorScore, keywordScore, combinedScore float64) types.SearchResult {
	return types.SearchResult{
		ChunkID:       c.ID,
		FilePath:      c.FilePath,
		RelativePath:  c.RelativePath,
		StartLine:     c.StartLine,
		EndLine:       c.EndLine,
		Language:      c.Language,
		Content:       c.Content,
		VectorScore:   vectorScore,
		KeywordScore:  keywordScore,
		CombinedScore: combinedScore,
	}
}
