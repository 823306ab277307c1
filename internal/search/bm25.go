package search

import (
	"math"

	"github.com/Thomasbjerke/IngestionBaard/internal/domain"
)

// BM25Scorer scores query/section relevance with the BM25 ranking function.
type BM25Scorer struct {
	k1 float64 // term frequency saturation
	b  float64 // length normalization

	avgDocLen float64
	docCount  int
	docFreq   map[string]int
	docLens   map[string]int
	idf       map[string]float64
}

// NewBM25Scorer creates a scorer with the usual parameter defaults.
func NewBM25Scorer() *BM25Scorer {
	return &BM25Scorer{
		k1:      1.5,
		b:       0.75,
		docFreq: make(map[string]int),
		docLens: make(map[string]int),
		idf:     make(map[string]float64),
	}
}

// Index rebuilds the corpus statistics for the given sections.
func (s *BM25Scorer) Index(sections []domain.Section) {
	s.docCount = len(sections)
	s.docFreq = make(map[string]int)
	s.docLens = make(map[string]int)
	s.idf = make(map[string]float64)

	var totalLen int
	for _, sec := range sections {
		tokens := Tokenize(sec.Content)
		s.docLens[sec.ID] = len(tokens)
		totalLen += len(tokens)

		// Each term counts once per section for document frequency
		seen := make(map[string]bool)
		for _, token := range tokens {
			if !seen[token] {
				s.docFreq[token]++
				seen[token] = true
			}
		}
	}

	if s.docCount > 0 {
		s.avgDocLen = float64(totalLen) / float64(s.docCount)
	}

	for term, df := range s.docFreq {
		s.idf[term] = math.Log((float64(s.docCount)-float64(df)+0.5)/(float64(df)+0.5) + 1.0)
	}
}

// Score computes the BM25 score of a section against a query.
func (s *BM25Scorer) Score(query string, sec domain.Section) float64 {
	queryTokens := Tokenize(query)
	docTokens := Tokenize(sec.Content)

	termFreq := make(map[string]int)
	for _, token := range docTokens {
		termFreq[token]++
	}

	docLen := s.docLens[sec.ID]
	if docLen == 0 {
		docLen = len(docTokens)
	}

	var score float64
	for _, queryToken := range queryTokens {
		tf := float64(termFreq[queryToken])
		if tf == 0 {
			continue
		}

		idf := s.idf[queryToken]
		if idf == 0 {
			// Term unseen at index time, fall back to a corpus-size IDF
			idf = math.Log(float64(s.docCount) + 1.0)
		}

		numerator := tf * (s.k1 + 1)
		denominator := tf + s.k1*(1-s.b+s.b*float64(docLen)/s.avgDocLen)
		score += idf * (numerator / denominator)
	}

	return score
}
