package handlers

import (
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"cuesens/internal/ffmpeg"
	"cuesens/internal/pipeline"
	"cuesens/internal/worker"
)

// JobDispatcher is what handlers need from the background worker pool.
type JobDispatcher interface {
	Submit(job worker.Job) error
}

// ApplicationHandler holds shared dependencies for handlers.
type ApplicationHandler struct {
	Logger     *logrus.Logger
	Store      pipeline.ProjectStore
	Blobs      pipeline.BlobStore
	Pipeline   *pipeline.Pipeline
	Dispatcher JobDispatcher
	Validate   *validator.Validate

	// Probe derives a media duration from a local file, returning 0 on
	// failure. Swappable in tests.
	Probe func(path string) float64
}

// NewApplicationHandler creates an ApplicationHandler with the given
// dependencies.
func NewApplicationHandler(logger *logrus.Logger, store pipeline.ProjectStore, blobs pipeline.BlobStore, pl *pipeline.Pipeline, dispatcher JobDispatcher) *ApplicationHandler {
	return &ApplicationHandler{
		Logger:     logger,
		Store:      store,
		Blobs:      blobs,
		Pipeline:   pl,
		Dispatcher: dispatcher,
		Validate:   validator.New(),
		Probe:      ffmpeg.ProbeDuration,
	}
}
