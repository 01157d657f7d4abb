package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"cuesens/internal/storage"
	"cuesens/internal/store"
	"cuesens/models"
	"cuesens/utils"
)

// UploadARoll godoc
// @Summary Upload the primary talking-head take
// @Description Stores the A-roll, derives its duration, and moves the
// project to UPLOADING_PRIMARY. Zero-duration or unreadable media is
// rejected.
// @Tags uploads
// @Accept mpfd
// @Produce json
// @Param id path string true "Project code"
// @Param file formData file true "Primary take"
// @Success 200 "File stored and linked"
// @Failure 409 "Project is past the upload stage"
// @Failure 422 "Media rejected by the duration probe"
// @Router /projects/{id}/a-roll [post]
func (h *ApplicationHandler) UploadARoll(c *fiber.Ctx) error {
	projectID := c.Params("id")

	project, err := h.Store.Find(c.Context(), projectID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return utils.RespondWithError(c, fiber.StatusNotFound, fmt.Sprintf("Project %s not found", projectID))
		}
		return utils.RespondWithError(c, fiber.StatusInternalServerError, fmt.Sprintf("Could not retrieve project %s: %v", projectID, err))
	}
	if project.Status != models.StateDraft && project.Status != models.StateUploadingPrimary {
		return utils.RespondWithError(c, fiber.StatusConflict,
			fmt.Sprintf("Project %s is in state %s; the primary take can no longer be replaced", projectID, project.Status))
	}

	file, err := c.FormFile("file")
	if err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, fmt.Sprintf("Error getting file: %v", err))
	}

	data, err := readUpload(file)
	if err != nil {
		return utils.RespondWithError(c, fiber.StatusInternalServerError, fmt.Sprintf("Error reading file: %v", err))
	}

	duration, err := h.probeUpload(data, filepath.Ext(file.Filename))
	if err != nil {
		return utils.RespondWithError(c, fiber.StatusInternalServerError, fmt.Sprintf("Error probing file: %v", err))
	}
	if duration <= 0 {
		return utils.RespondWithError(c, fiber.StatusUnprocessableEntity,
			fmt.Sprintf("File %s was rejected: zero-duration or unreadable media", file.Filename))
	}

	fileID := newMediaID("aroll", file.Filename)
	if err := h.Blobs.Put(c.Context(), storage.BucketARoll, fileID, data, contentTypeOf(file)); err != nil {
		h.Logger.WithError(err).Errorf("A-roll upload failed for project %s", projectID)
		return utils.RespondWithError(c, fiber.StatusInternalServerError, fmt.Sprintf("Upload failed: %v", err))
	}

	project.ARoll = &models.ARoll{FileID: fileID, Path: fileID, Duration: duration}
	project.Status = models.StateUploadingPrimary
	project.StatusMessage = "Primary take uploaded"
	if err := h.Store.Save(c.Context(), project); err != nil {
		return utils.RespondWithError(c, fiber.StatusInternalServerError, fmt.Sprintf("Could not link uploaded file: %v", err))
	}

	h.Logger.WithFields(map[string]interface{}{
		"project_id": projectID,
		"file_id":    fileID,
		"duration":   duration,
	}).Info("A-roll uploaded")
	return utils.RespondWithJSON(c, fiber.StatusOK, fiber.Map{
		"file_id":  fileID,
		"duration": duration,
	})
}

// UploadBRolls godoc
// @Summary Upload a batch of footage clips
// @Description Stores each clip with its probed duration. A file that
// fails to store or probes to zero duration is skipped, not fatal to the
// batch. Clips start undescribed until footage analysis runs.
// @Tags uploads
// @Accept mpfd
// @Produce json
// @Param id path string true "Project code"
// @Param files formData file true "Footage clips"
// @Success 200 "Uploaded clip ids and any skipped filenames"
// @Router /projects/{id}/b-roll [post]
func (h *ApplicationHandler) UploadBRolls(c *fiber.Ctx) error {
	projectID := c.Params("id")

	project, err := h.Store.Find(c.Context(), projectID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return utils.RespondWithError(c, fiber.StatusNotFound, fmt.Sprintf("Project %s not found", projectID))
		}
		return utils.RespondWithError(c, fiber.StatusInternalServerError, fmt.Sprintf("Could not retrieve project %s: %v", projectID, err))
	}

	form, err := c.MultipartForm()
	if err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, fmt.Sprintf("Error parsing multipart form: %v", err))
	}
	files := form.File["files"]
	if len(files) == 0 {
		return utils.RespondWithError(c, fiber.StatusBadRequest, "No files provided under the 'files' field")
	}

	var uploaded []string
	var skipped []string
	for _, file := range files {
		brollID, ok := h.storeBRoll(c, project, file)
		if !ok {
			skipped = append(skipped, file.Filename)
			continue
		}
		uploaded = append(uploaded, brollID)
	}

	if err := h.Store.Save(c.Context(), project); err != nil {
		return utils.RespondWithError(c, fiber.StatusInternalServerError, fmt.Sprintf("Could not link uploaded clips: %v", err))
	}

	return utils.RespondWithJSON(c, fiber.StatusOK, fiber.Map{
		"message":     fmt.Sprintf("Successfully uploaded %d of %d clips", len(uploaded), len(files)),
		"broll_ids":   uploaded,
		"skipped":     skipped,
		"total_clips": len(project.BRolls),
	})
}

// storeBRoll probes, uploads and appends one clip. Failures are logged and
// reported as a skip so one bad file never aborts the batch.
func (h *ApplicationHandler) storeBRoll(c *fiber.Ctx, project *models.Project, file *multipart.FileHeader) (string, bool) {
	data, err := readUpload(file)
	if err != nil {
		h.Logger.WithError(err).Warnf("Skipping unreadable clip %s", file.Filename)
		return "", false
	}

	duration, err := h.probeUpload(data, filepath.Ext(file.Filename))
	if err != nil || duration <= 0 {
		h.Logger.WithField("file", file.Filename).Warn("Skipping clip: zero-duration or unreadable media")
		return "", false
	}

	brollID := newMediaID("broll", file.Filename)
	if err := h.Blobs.Put(c.Context(), storage.BucketBRoll, brollID, data, contentTypeOf(file)); err != nil {
		h.Logger.WithError(err).Warnf("Skipping clip %s: upload failed", file.Filename)
		return "", false
	}

	project.BRolls = append(project.BRolls, models.BRoll{
		BRollID:     brollID,
		Path:        brollID,
		Duration:    duration,
		Description: models.DescriptionPending,
		Keywords:    []string{},
		Mood:        "unknown",
	})
	return brollID, true
}

// probeUpload writes the uploaded bytes to a scratch file so the duration
// probe can inspect them. The scratch file is always removed.
func (h *ApplicationHandler) probeUpload(data []byte, ext string) (float64, error) {
	tmp, err := os.CreateTemp("", "cuesens-probe-*"+ext)
	if err != nil {
		return 0, err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return 0, err
	}
	if err := tmp.Close(); err != nil {
		return 0, err
	}
	return h.Probe(tmp.Name()), nil
}

func readUpload(file *multipart.FileHeader) ([]byte, error) {
	handle, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer handle.Close()
	return io.ReadAll(handle)
}

func contentTypeOf(file *multipart.FileHeader) string {
	if ct := file.Header.Get("Content-Type"); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// newMediaID mints an opaque storage key like "broll_1a2b3c4d.mp4".
func newMediaID(kind, filename string) string {
	return fmt.Sprintf("%s_%s%s", kind, strings.ReplaceAll(uuid.NewString(), "-", "")[:8], filepath.Ext(filename))
}
