// Package planner computes the edit plan: which B-roll clip covers which
// transcript moment, under relevance, duration and pacing constraints.
//
// The pass is greedy and deterministic given a fixed scorer. It never
// mutates its inputs, so re-running matching for a project is safe.
package planner

import (
	"context"
	"fmt"
	"strings"

	"cuesens/models"
)

// Scorer ranks a B-roll descriptor against a span of transcript text.
// Higher is better; no sign is assumed. Implementations must be
// deterministic for fixed inputs.
type Scorer interface {
	Score(ctx context.Context, segmentText, clipText string) (float64, error)
}

// Config carries the two pacing/relevance knobs of the pass.
type Config struct {
	// SimilarityThreshold is the minimum score a clip must reach to be
	// placed. Segments whose best candidate scores below it simply yield
	// no placement.
	SimilarityThreshold float64
	// MinGapSeconds is the minimum silence between the end of one
	// placement and the start of the next.
	MinGapSeconds float64
}

// Generate walks the transcript in start-time order and emits an ordered,
// non-overlapping plan.
//
// A segment is skipped when it starts inside the refractory window after
// the previous placement's end. Otherwise every clip in the library is
// scored against the segment text; the best-scoring clip wins, ties broken
// by collection order. Placement duration never exceeds the speech window
// or the clip's own runtime. Clips may be reused across placements; short
// libraries covering long transcripts depend on that.
//
// An empty transcript, an empty library, or a pass where nothing reaches
// the threshold all produce an empty plan, not an error.
func Generate(ctx context.Context, transcript []models.TranscriptSegment, library []models.BRoll, cfg Config, scorer Scorer) ([]models.Placement, error) {
	plan := []models.Placement{}
	cursor := -cfg.MinGapSeconds

	for _, segment := range transcript {
		if segment.Start < cursor+cfg.MinGapSeconds {
			continue
		}

		best, score, err := bestMatch(ctx, segment.Text, library, scorer)
		if err != nil {
			return nil, err
		}
		if best == nil || score < cfg.SimilarityThreshold {
			continue
		}

		placement := models.Placement{
			BRollID:      best.BRollID,
			StartInARoll: segment.Start,
			Duration:     min(segment.Window(), best.Duration),
			Confidence:   score,
			Reason:       fmt.Sprintf("Matches phrase: %q", segment.Text),
		}
		plan = append(plan, placement)
		cursor = placement.End()
	}

	return plan, nil
}

// bestMatch returns the highest-scoring clip for the given text, stable on
// ties (the first clip in collection order wins). Returns nil for an empty
// library.
func bestMatch(ctx context.Context, text string, library []models.BRoll, scorer Scorer) (*models.BRoll, float64, error) {
	var best *models.BRoll
	bestScore := 0.0

	for i := range library {
		clip := &library[i]
		score, err := scorer.Score(ctx, text, Descriptor(*clip))
		if err != nil {
			return nil, 0, fmt.Errorf("score clip %s: %w", clip.BRollID, err)
		}
		if best == nil || score > bestScore {
			best = clip
			bestScore = score
		}
	}

	return best, bestScore, nil
}

// Descriptor flattens a clip's description, keywords and mood into the text
// the scorer ranks against.
func Descriptor(clip models.BRoll) string {
	parts := []string{clip.Description}
	parts = append(parts, clip.Keywords...)
	if clip.Mood != "" {
		parts = append(parts, clip.Mood)
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}
