package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/Thomasbjerke/IngestionBaard/internal/domain"
	"github.com/Thomasbjerke/IngestionBaard/internal/ports"
	"github.com/Thomasbjerke/IngestionBaard/internal/search"
	"github.com/google/uuid"
)

// Index implements SearchIndex with an in-memory section map and BM25
// ranking.
type Index struct {
	mu       sync.RWMutex
	sections map[string]domain.Section
	bm25     *search.BM25Scorer
	fuser    *search.ReciprocalRankFusion
}

// NewIndex creates an empty in-memory search index
func NewIndex() *Index {
	return &Index{
		sections: make(map[string]domain.Section),
		bm25:     search.NewBM25Scorer(),
		fuser:    search.NewReciprocalRankFusion(),
	}
}

// Add stores or updates sections and rebuilds the ranking statistics
// (ports.SearchIndex interface)
func (i *Index) Add(ctx context.Context, sections []domain.Section) error {
	if len(sections) == 0 {
		return nil
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	for _, sec := range sections {
		if sec.ID == "" {
			sec.ID = uuid.NewString()
		}
		i.sections[sec.ID] = sec
	}

	i.reindex()
	return nil
}

// Delete removes the sections with the given IDs and returns how many were
// actually removed (ports.SearchIndex interface)
func (i *Index) Delete(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	var removed int
	for _, id := range ids {
		if _, ok := i.sections[id]; ok {
			delete(i.sections, id)
			removed++
		}
	}

	if removed > 0 {
		i.reindex()
	}
	return removed, nil
}

// Search ranks sections against the query. An empty or "*" query matches
// every section passing the filters (ports.SearchIndex interface)
func (i *Index) Search(ctx context.Context, query string, opts ports.SearchOptions) (*ports.SearchResult, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	matchAll := query == "" || query == "*"

	var candidates []domain.Section
	for _, sec := range i.sections {
		if !matchFilters(sec, opts) {
			continue
		}
		candidates = append(candidates, sec)
	}

	var ranked []domain.Section
	if matchAll {
		ranked = candidates
		sort.Slice(ranked, func(a, b int) bool {
			return ranked[a].ID < ranked[b].ID
		})
	} else {
		ranked = i.rankBM25(query, candidates)
		if opts.UseSemanticRanker {
			ranked = i.fuser.Fuse(ranked, rankOverlap(query, candidates))
		}
	}

	total := len(ranked)
	if opts.Top > 0 && opts.Top < len(ranked) {
		ranked = ranked[:opts.Top]
	}

	return &ports.SearchResult{Sections: ranked, Total: total}, nil
}

// Count returns the number of indexed sections.
func (i *Index) Count() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.sections)
}

// reindex rebuilds BM25 statistics. Callers must hold mu.
func (i *Index) reindex() {
	all := make([]domain.Section, 0, len(i.sections))
	for _, sec := range i.sections {
		all = append(all, sec)
	}
	i.bm25.Index(all)
}

// rankBM25 scores and orders candidates, dropping zero-score sections.
// Callers must hold mu for reading.
func (i *Index) rankBM25(query string, candidates []domain.Section) []domain.Section {
	results := make([]domain.Section, 0, len(candidates))
	for _, sec := range candidates {
		scored := sec
		scored.Score = i.bm25.Score(query, sec)
		if scored.Score == 0 {
			continue
		}
		results = append(results, scored)
	}

	sort.Slice(results, func(a, b int) bool {
		if results[a].Score == results[b].Score {
			return results[a].ID < results[b].ID
		}
		return results[a].Score > results[b].Score
	})

	return results
}

// rankOverlap orders candidates by query term overlap.
func rankOverlap(query string, candidates []domain.Section) []domain.Section {
	results := make([]domain.Section, 0, len(candidates))
	for _, sec := range candidates {
		scored := sec
		scored.Score = search.OverlapScore(query, sec.Content)
		if scored.Score == 0 {
			continue
		}
		results = append(results, scored)
	}

	sort.Slice(results, func(a, b int) bool {
		if results[a].Score == results[b].Score {
			return results[a].ID < results[b].ID
		}
		return results[a].Score > results[b].Score
	})

	return results
}

// matchFilters checks a section against the search options.
func matchFilters(sec domain.Section, opts ports.SearchOptions) bool {
	if opts.ExcludeCategory != "" && sec.Category == opts.ExcludeCategory {
		return false
	}
	if opts.SourceFile != "" && sec.SourceFile != opts.SourceFile {
		return false
	}
	return true
}
