package aiclient

import (
	"context"
	"math"
	"sync"
)

// Embedder is the slice of the sidecar the scorer needs.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// SimilarityScorer ranks text pairs by cosine similarity of their
// embeddings. Vectors are memoized per text, so scoring one segment
// against a whole footage library embeds each description once.
type SimilarityScorer struct {
	embedder Embedder

	mu    sync.Mutex
	cache map[string][]float64
}

func NewSimilarityScorer(embedder Embedder) *SimilarityScorer {
	return &SimilarityScorer{
		embedder: embedder,
		cache:    make(map[string][]float64),
	}
}

// Score returns the cosine similarity of the two texts' embeddings,
// conceptually in [-1, 1]. Deterministic for fixed texts as long as the
// embedding model is.
func (s *SimilarityScorer) Score(ctx context.Context, segmentText, clipText string) (float64, error) {
	a, err := s.vector(ctx, segmentText)
	if err != nil {
		return 0, err
	}
	b, err := s.vector(ctx, clipText)
	if err != nil {
		return 0, err
	}
	return cosine(a, b), nil
}

func (s *SimilarityScorer) vector(ctx context.Context, text string) ([]float64, error) {
	s.mu.Lock()
	v, ok := s.cache[text]
	s.mu.Unlock()
	if ok {
		return v, nil
	}

	vectors, err := s.embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	v = vectors[0]

	s.mu.Lock()
	s.cache[text] = v
	s.mu.Unlock()
	return v, nil
}

func cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
