package search

import (
	"sort"

	"github.com/Thomasbjerke/IngestionBaard/internal/domain"
)

// ReciprocalRankFusion merges several ranked result lists into one, used
// when the semantic ranker override combines BM25 with the overlap ranking.
type ReciprocalRankFusion struct {
	k int // smoothing constant
}

// NewReciprocalRankFusion creates a fuser with the conventional k of 60.
func NewReciprocalRankFusion() *ReciprocalRankFusion {
	return &ReciprocalRankFusion{k: 60}
}

// Fuse combines the result lists; a section's fused score is the sum of
// 1/(k+rank+1) over the lists it appears in.
func (r *ReciprocalRankFusion) Fuse(resultLists ...[]domain.Section) []domain.Section {
	if len(resultLists) == 0 {
		return nil
	}

	scores := make(map[string]float64)
	byID := make(map[string]domain.Section)

	for _, results := range resultLists {
		for rank, sec := range results {
			scores[sec.ID] += 1.0 / float64(r.k+rank+1)
			byID[sec.ID] = sec
		}
	}

	fused := make([]domain.Section, 0, len(scores))
	for id, score := range scores {
		sec := byID[id]
		sec.Score = score
		fused = append(fused, sec)
	}

	sort.Slice(fused, func(i, j int) bool {
		if fused[i].Score == fused[j].Score {
			return fused[i].ID < fused[j].ID
		}
		return fused[i].Score > fused[j].Score
	})

	return fused
}

// OverlapScore is the fraction of query terms present in the content,
// a cheap stand-in for a semantic similarity signal.
func OverlapScore(query, content string) float64 {
	queryTokens := Tokenize(query)
	if len(queryTokens) == 0 {
		return 0
	}

	docTerms := make(map[string]bool)
	for _, token := range Tokenize(content) {
		docTerms[token] = true
	}

	var hits int
	for _, token := range queryTokens {
		if docTerms[token] {
			hits++
		}
	}

	return float64(hits) / float64(len(queryTokens))
}
