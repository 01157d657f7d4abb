package aiclient

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
)

// countingEmbedder returns canned unit vectors and counts how many texts it
// is asked to embed.
type countingEmbedder struct {
	mu      sync.Mutex
	vectors map[string][]float64
	calls   int
	err     error
}

func (e *countingEmbedder) Embed(_ context.Context, texts []string) ([][]float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float64, 0, len(texts))
	for _, text := range texts {
		e.calls++
		v, ok := e.vectors[text]
		if !ok {
			v = []float64{1, 0, 0}
		}
		out = append(out, v)
	}
	return out, nil
}

func TestScoreIdenticalVectors(t *testing.T) {
	embedder := &countingEmbedder{vectors: map[string][]float64{
		"intro": {0.6, 0.8, 0},
		"clip":  {0.6, 0.8, 0},
	}}
	scorer := NewSimilarityScorer(embedder)

	score, err := scorer.Score(context.Background(), "intro", "clip")
	if err != nil {
		t.Fatalf("Score returned error: %v", err)
	}
	if math.Abs(score-1) > 1e-9 {
		t.Errorf("identical vectors should score 1, got %v", score)
	}
}

func TestScoreOrthogonalVectors(t *testing.T) {
	embedder := &countingEmbedder{vectors: map[string][]float64{
		"intro": {1, 0},
		"clip":  {0, 1},
	}}
	scorer := NewSimilarityScorer(embedder)

	score, err := scorer.Score(context.Background(), "intro", "clip")
	if err != nil {
		t.Fatalf("Score returned error: %v", err)
	}
	if score != 0 {
		t.Errorf("orthogonal vectors should score 0, got %v", score)
	}
}

func TestScoreMemoizesEmbeddings(t *testing.T) {
	embedder := &countingEmbedder{vectors: map[string][]float64{
		"segment": {1, 0},
		"clip a":  {0.8, 0.6},
		"clip b":  {0, 1},
	}}
	scorer := NewSimilarityScorer(embedder)
	ctx := context.Background()

	// One segment scored against two clips, twice over: each distinct text
	// is embedded exactly once.
	for i := 0; i < 2; i++ {
		if _, err := scorer.Score(ctx, "segment", "clip a"); err != nil {
			t.Fatalf("Score returned error: %v", err)
		}
		if _, err := scorer.Score(ctx, "segment", "clip b"); err != nil {
			t.Fatalf("Score returned error: %v", err)
		}
	}
	if embedder.calls != 3 {
		t.Errorf("expected 3 embed calls for 3 distinct texts, got %d", embedder.calls)
	}
}

func TestScorePropagatesEmbedderError(t *testing.T) {
	wantErr := errors.New("sidecar unreachable")
	scorer := NewSimilarityScorer(&countingEmbedder{err: wantErr})

	if _, err := scorer.Score(context.Background(), "a", "b"); !errors.Is(err, wantErr) {
		t.Fatalf("expected the embedder error, got %v", err)
	}
}

func TestCosineDegenerateInputs(t *testing.T) {
	if got := cosine([]float64{1, 0}, []float64{1}); got != 0 {
		t.Errorf("length mismatch should score 0, got %v", got)
	}
	if got := cosine(nil, nil); got != 0 {
		t.Errorf("empty vectors should score 0, got %v", got)
	}
	if got := cosine([]float64{0, 0}, []float64{1, 0}); got != 0 {
		t.Errorf("zero-norm vector should score 0, got %v", got)
	}
}
