// Package pipeline drives a project through its ordered, resumable stages:
// transcription, footage analysis, matching and render. Each stage handler
// validates its precondition against the transition table, performs the
// delegated work, and persists exactly one terminal update (success or
// FAILED) before returning.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"cuesens/internal/composer"
	"cuesens/internal/planner"
	"cuesens/models"
)

// downloadConcurrency bounds parallel blob downloads during render.
const downloadConcurrency = 3

// Pipeline executes stage transitions for projects. Stages for different
// projects run fully concurrently; the worker dispatcher serializes stages
// of the same project.
type Pipeline struct {
	cfg Config
	d   Deps
	log *logrus.Logger
}

func New(cfg Config, d Deps, log *logrus.Logger) *Pipeline {
	return &Pipeline{cfg: cfg, d: d, log: log}
}

// Run fires the given trigger for a project. It returns a
// *PreconditionError without touching state when the trigger is illegal;
// any failure inside the stage body lands the project in FAILED with the
// captured error text in the status message.
func (pl *Pipeline) Run(ctx context.Context, trig Trigger, projectID string) error {
	switch trig {
	case TriggerTranscribe:
		return pl.RunTranscription(ctx, projectID)
	case TriggerAnalyze:
		return pl.RunAnalysis(ctx, projectID)
	case TriggerMatch:
		return pl.RunMatching(ctx, projectID)
	case TriggerRender:
		return pl.RunRender(ctx, projectID)
	default:
		return fmt.Errorf("unknown trigger %q", trig)
	}
}

// RunTranscription transcribes the primary take and attaches the produced
// segments.
func (pl *Pipeline) RunTranscription(ctx context.Context, projectID string) error {
	p, err := pl.d.Store.Find(ctx, projectID)
	if err != nil {
		return err
	}
	return pl.runStage(ctx, p, TriggerTranscribe, "Transcribing primary take", func(ctx context.Context) error {
		segments, err := pl.d.Speech.Transcribe(ctx, p.ARoll.FileID)
		if err != nil {
			return pl.fail(ctx, p, fmt.Errorf("transcription failed: %w", err))
		}
		if err := validateTranscript(segments); err != nil {
			return pl.fail(ctx, p, fmt.Errorf("transcription failed: %w", &CorruptOutputError{Source: "transcription", Err: err}))
		}
		p.ARoll.Transcript = segments
		return pl.finish(ctx, p, TriggerTranscribe, fmt.Sprintf("Transcription complete: %d segments", len(segments)))
	})
}

// RunAnalysis describes every footage clip that still carries the sentinel
// description. Progress is persisted clip by clip so it is externally
// observable, and re-running the stage only processes unfinished clips.
func (pl *Pipeline) RunAnalysis(ctx context.Context, projectID string) error {
	p, err := pl.d.Store.Find(ctx, projectID)
	if err != nil {
		return err
	}
	return pl.runStage(ctx, p, TriggerAnalyze, "Analyzing footage", func(ctx context.Context) error {
		total := len(p.BRolls)
		if total == 0 {
			return pl.finish(ctx, p, TriggerAnalyze, "No footage uploaded; nothing to analyze")
		}
		for i := range p.BRolls {
			clip := &p.BRolls[i]
			if clip.Described() {
				continue
			}
			p.StatusMessage = fmt.Sprintf("Analyzing clip %d/%d", i+1, total)
			if err := pl.d.Store.Save(ctx, p); err != nil {
				return pl.fail(ctx, p, fmt.Errorf("persist analysis progress: %w", err))
			}

			// Describe never fails; a bad clip comes back as the neutral
			// placeholder and the batch keeps going.
			analysis := pl.d.Vision.Describe(ctx, clip.BRollID)
			clip.Description = analysis.Description
			clip.Keywords = analysis.Keywords
			clip.Mood = analysis.Mood
			if err := pl.d.Store.Save(ctx, p); err != nil {
				return pl.fail(ctx, p, fmt.Errorf("persist clip analysis: %w", err))
			}
		}
		return pl.finish(ctx, p, TriggerAnalyze, fmt.Sprintf("All %d clips analyzed", total))
	})
}

// RunMatching delegates to the placement engine and persists the returned
// plan. An empty plan is a normal outcome, not a failure.
func (pl *Pipeline) RunMatching(ctx context.Context, projectID string) error {
	p, err := pl.d.Store.Find(ctx, projectID)
	if err != nil {
		return err
	}
	return pl.runStage(ctx, p, TriggerMatch, "Matching footage to transcript", func(ctx context.Context) error {
		var transcript []models.TranscriptSegment
		if p.ARoll != nil {
			transcript = p.ARoll.Transcript
		}
		cfg := planner.Config{
			SimilarityThreshold: pl.cfg.SimilarityThreshold,
			MinGapSeconds:       pl.cfg.MinGapSeconds,
		}
		plan, err := planner.Generate(ctx, transcript, p.BRolls, cfg, pl.d.Scorer)
		if err != nil {
			return pl.fail(ctx, p, fmt.Errorf("matching failed: %w", err))
		}
		p.EditPlan = plan

		msg := fmt.Sprintf("Plan ready: %d placements", len(plan))
		if len(p.BRolls) == 0 {
			msg = "Plan ready: no footage uploaded"
		}
		return pl.finish(ctx, p, TriggerMatch, msg)
	})
}

// RunRender downloads the referenced media into a scoped workspace, runs
// the encoder on the synthesized composition and uploads the result. The
// workspace is removed on every exit path.
func (pl *Pipeline) RunRender(ctx context.Context, projectID string) error {
	p, err := pl.d.Store.Find(ctx, projectID)
	if err != nil {
		return err
	}
	return pl.runStage(ctx, p, TriggerRender, "Rendering final video", func(ctx context.Context) error {
		workspace, err := os.MkdirTemp("", "cuesens-render-")
		if err != nil {
			return pl.fail(ctx, p, &ResourceError{Op: "create render workspace", Err: err})
		}
		defer os.RemoveAll(workspace)

		entries, arollPath, err := pl.fetchRenderMedia(ctx, p, workspace)
		if err != nil {
			return pl.fail(ctx, p, err)
		}

		outPath := filepath.Join(workspace, "final_"+p.ProjectID+".mp4")
		cmd := composer.Build(composer.Input{
			ARollPath:  arollPath,
			Entries:    entries,
			Width:      pl.cfg.FrameWidth,
			Height:     pl.cfg.FrameHeight,
			OutputPath: outPath,
		})

		encCtx, cancel := context.WithTimeout(ctx, pl.cfg.RenderTimeout)
		defer cancel()
		if err := pl.d.Encoder.Encode(encCtx, cmd); err != nil {
			return pl.fail(ctx, p, &ResourceError{Op: "encoder failed", Err: err})
		}

		rendered, err := os.ReadFile(outPath)
		if err != nil {
			return pl.fail(ctx, p, &ResourceError{Op: "read rendered output", Err: err})
		}
		outKey := "final_" + p.ProjectID + ".mp4"
		if err := pl.d.Blobs.Put(ctx, pl.cfg.OutputBucket, outKey, rendered, "video/mp4"); err != nil {
			return pl.fail(ctx, p, &ResourceError{Op: "upload rendered output", Err: err})
		}

		p.FinalVideoPath = outKey
		return pl.finish(ctx, p, TriggerRender, "Render complete")
	})
}

// fetchRenderMedia downloads the A-roll and every clip the plan references
// into the workspace, a few at a time. Plan order is preserved in the
// returned entries; a clip placed twice is downloaded once.
func (pl *Pipeline) fetchRenderMedia(ctx context.Context, p *models.Project, workspace string) ([]composer.Entry, string, error) {
	// The engine emits sorted plans; sort again so a hand-edited document
	// cannot break the overlay chain.
	plan := make([]models.Placement, len(p.EditPlan))
	copy(plan, p.EditPlan)
	sort.SliceStable(plan, func(i, j int) bool {
		return plan[i].StartInARoll < plan[j].StartInARoll
	})

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(downloadConcurrency)

	arollPath := filepath.Join(workspace, p.ARoll.FileID)
	g.Go(func() error {
		return pl.download(gctx, pl.cfg.ARollBucket, p.ARoll.FileID, arollPath)
	})

	clipPaths := make(map[string]string, len(plan))
	for _, placement := range plan {
		clip := p.FindBRoll(placement.BRollID)
		if clip == nil {
			return nil, "", &CorruptOutputError{
				Source: "edit plan",
				Err:    fmt.Errorf("placement references unknown clip %s", placement.BRollID),
			}
		}
		if _, seen := clipPaths[clip.BRollID]; seen {
			continue
		}
		localPath := filepath.Join(workspace, clip.BRollID)
		clipPaths[clip.BRollID] = localPath
		g.Go(func() error {
			return pl.download(gctx, pl.cfg.BRollBucket, clip.BRollID, localPath)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, "", &ResourceError{Op: "download render media", Err: err}
	}

	entries := make([]composer.Entry, 0, len(plan))
	for _, placement := range plan {
		entries = append(entries, composer.Entry{
			ClipPath:  clipPaths[placement.BRollID],
			Placement: placement,
		})
	}
	return entries, arollPath, nil
}

func (pl *Pipeline) download(ctx context.Context, bucket, key, dest string) error {
	data, err := pl.d.Blobs.Get(ctx, bucket, key)
	if err != nil {
		return fmt.Errorf("download %s/%s: %w", bucket, key, err)
	}
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", dest, err)
	}
	return nil
}

// runStage validates the trigger, publishes the running state, and invokes
// the stage body. A panic in the body is converted into the FAILED
// terminal state so a project is never stranded mid-stage.
func (pl *Pipeline) runStage(ctx context.Context, p *models.Project, trig Trigger, msg string, body func(ctx context.Context) error) (err error) {
	if err := CanTrigger(p, trig); err != nil {
		return err
	}
	p.Status = transitions[trig].running
	p.StatusMessage = msg
	if err := pl.d.Store.Save(ctx, p); err != nil {
		return fmt.Errorf("persist %s state: %w", trig, err)
	}

	defer func() {
		if r := recover(); r != nil {
			err = pl.fail(ctx, p, fmt.Errorf("%s stage panicked: %v", trig, r))
		}
	}()
	return body(ctx)
}

// fail records the terminal FAILED state with the cause in the status
// message, and returns the cause so callers can log it.
func (pl *Pipeline) fail(ctx context.Context, p *models.Project, cause error) error {
	p.Status = models.StateFailed
	p.StatusMessage = cause.Error()
	if saveErr := pl.d.Store.Save(ctx, p); saveErr != nil {
		pl.log.WithFields(logrus.Fields{
			"project_id": p.ProjectID,
			"cause":      cause.Error(),
		}).WithError(saveErr).Error("Could not persist FAILED state")
		return errors.Join(cause, saveErr)
	}
	pl.log.WithField("project_id", p.ProjectID).WithError(cause).Error("Stage failed")
	return cause
}

// finish records the trigger's success state.
func (pl *Pipeline) finish(ctx context.Context, p *models.Project, trig Trigger, msg string) error {
	p.Status = transitions[trig].done
	p.StatusMessage = msg
	if err := pl.d.Store.Save(ctx, p); err != nil {
		return fmt.Errorf("persist %s completion: %w", trig, err)
	}
	pl.log.WithFields(logrus.Fields{
		"project_id": p.ProjectID,
		"status":     p.Status,
	}).Info(msg)
	return nil
}

// validateTranscript checks the transcription collaborator's output before
// it is trusted downstream: segments ordered by start, every end after its
// start.
func validateTranscript(segments []models.TranscriptSegment) error {
	for i, s := range segments {
		if s.End <= s.Start {
			return fmt.Errorf("segment %d: end %.3f not after start %.3f", i, s.End, s.Start)
		}
		if i > 0 && s.Start < segments[i-1].Start {
			return fmt.Errorf("segment %d out of order", i)
		}
	}
	return nil
}
