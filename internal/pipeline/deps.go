package pipeline

import (
	"context"
	"time"

	"cuesens/internal/composer"
	"cuesens/internal/planner"
	"cuesens/models"
)

// ProjectStore is the document store holding project state, keyed by the
// unique short project code.
type ProjectStore interface {
	Find(ctx context.Context, projectID string) (*models.Project, error)
	Insert(ctx context.Context, p *models.Project) error
	Save(ctx context.Context, p *models.Project) error
	ListAll(ctx context.Context) ([]models.Project, error)
}

// BlobStore holds raw and rendered media, keyed by opaque identifiers.
type BlobStore interface {
	Put(ctx context.Context, bucket, key string, data []byte, contentType string) error
	Get(ctx context.Context, bucket, key string) ([]byte, error)
	PresignedURL(ctx context.Context, bucket, key string) (string, error)
}

// Transcriber produces timestamped text segments from a stored media
// identifier.
type Transcriber interface {
	Transcribe(ctx context.Context, mediaID string) ([]models.TranscriptSegment, error)
}

// Describer produces a short description, keywords and mood for a stored
// clip. It never fails: on internal error it returns the neutral
// placeholder analysis.
type Describer interface {
	Describe(ctx context.Context, mediaID string) models.ClipAnalysis
}

// Encoder executes a synthesized composition command against real files.
type Encoder interface {
	Encode(ctx context.Context, cmd composer.Command) error
}

// Config carries the pipeline's fixed policy knobs.
type Config struct {
	SimilarityThreshold float64
	MinGapSeconds       float64
	FrameWidth          int
	FrameHeight         int
	RenderTimeout       time.Duration
	ARollBucket         string
	BRollBucket         string
	OutputBucket        string
}

// Deps bundles the collaborators a Pipeline is constructed with, mirroring
// how handlers receive theirs. Everything is an interface so stages can be
// exercised with fakes.
type Deps struct {
	Store   ProjectStore
	Blobs   BlobStore
	Speech  Transcriber
	Vision  Describer
	Scorer  planner.Scorer
	Encoder Encoder
}
