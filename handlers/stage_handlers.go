package handlers

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"cuesens/internal/pipeline"
	"cuesens/internal/store"
	"cuesens/internal/worker"
	"cuesens/utils"
)

// StartTranscription godoc
// @Summary Start transcribing the primary take
// @Tags stages
// @Param id path string true "Project code"
// @Success 202 "Stage dispatched"
// @Failure 409 "Precondition failed or a stage is already running"
// @Router /projects/{id}/transcribe [post]
func (h *ApplicationHandler) StartTranscription(c *fiber.Ctx) error {
	return h.triggerStage(c, pipeline.TriggerTranscribe)
}

// StartAnalysis godoc
// @Summary Start describing the footage library
// @Tags stages
// @Param id path string true "Project code"
// @Success 202 "Stage dispatched"
// @Failure 409 "Precondition failed or a stage is already running"
// @Router /projects/{id}/analyze [post]
func (h *ApplicationHandler) StartAnalysis(c *fiber.Ctx) error {
	return h.triggerStage(c, pipeline.TriggerAnalyze)
}

// StartMatching godoc
// @Summary Start matching footage to the transcript
// @Tags stages
// @Param id path string true "Project code"
// @Success 202 "Stage dispatched"
// @Failure 409 "Precondition failed or a stage is already running"
// @Router /projects/{id}/match [post]
func (h *ApplicationHandler) StartMatching(c *fiber.Ctx) error {
	return h.triggerStage(c, pipeline.TriggerMatch)
}

// StartRender godoc
// @Summary Start rendering the composed video
// @Tags stages
// @Param id path string true "Project code"
// @Success 202 "Stage dispatched"
// @Failure 409 "Precondition failed or a stage is already running"
// @Router /projects/{id}/render [post]
func (h *ApplicationHandler) StartRender(c *fiber.Ctx) error {
	return h.triggerStage(c, pipeline.TriggerRender)
}

// triggerStage validates the trigger against the project's current state
// and hands the stage to the background pool. The stage body re-validates
// before mutating anything, so a stale check here can reject but never
// corrupt.
func (h *ApplicationHandler) triggerStage(c *fiber.Ctx, trig pipeline.Trigger) error {
	projectID := c.Params("id")

	project, err := h.Store.Find(c.Context(), projectID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return utils.RespondWithError(c, fiber.StatusNotFound, fmt.Sprintf("Project %s not found", projectID))
		}
		return utils.RespondWithError(c, fiber.StatusInternalServerError, fmt.Sprintf("Could not retrieve project %s: %v", projectID, err))
	}
	if err := pipeline.CanTrigger(project, trig); err != nil {
		return utils.RespondWithError(c, fiber.StatusConflict, err.Error())
	}

	job := &stageJob{
		jobID:     fmt.Sprintf("%s-%s-%s", trig, projectID, uuid.NewString()[:8]),
		projectID: projectID,
		trigger:   trig,
		pipeline:  h.Pipeline,
		log:       h.Logger,
	}
	if err := h.Dispatcher.Submit(job); err != nil {
		switch {
		case errors.Is(err, worker.ErrKeyBusy):
			return utils.RespondWithError(c, fiber.StatusConflict,
				fmt.Sprintf("Project %s already has a stage in flight", projectID))
		case errors.Is(err, worker.ErrQueueFull):
			return utils.RespondWithError(c, fiber.StatusServiceUnavailable, "Background queue is full, retry later")
		default:
			return utils.RespondWithError(c, fiber.StatusInternalServerError, fmt.Sprintf("Could not dispatch stage: %v", err))
		}
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"status":  "accepted",
		"message": fmt.Sprintf("%s started for project %s", trig, projectID),
	})
}

// stageJob runs one pipeline stage on the worker pool. Its key is the
// project id, so the dispatcher guarantees no two stages of the same
// project ever overlap.
type stageJob struct {
	jobID     string
	projectID string
	trigger   pipeline.Trigger
	pipeline  *pipeline.Pipeline
	log       *logrus.Logger
}

func (j *stageJob) Execute() error {
	err := j.pipeline.Run(context.Background(), j.trigger, j.projectID)
	if err != nil {
		j.log.WithFields(logrus.Fields{
			"project_id": j.projectID,
			"trigger":    j.trigger,
		}).WithError(err).Error("Stage job failed")
	}
	return err
}

func (j *stageJob) ID() string  { return j.jobID }
func (j *stageJob) Key() string { return j.projectID }
