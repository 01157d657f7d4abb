package handlers

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"cuesens/internal/storage"
	"cuesens/internal/store"
	"cuesens/models"
	"cuesens/utils"
)

// CreateProjectRequest defines the expected request body for creating a
// project.
type CreateProjectRequest struct {
	Name string `json:"name" validate:"required"`
}

// ProjectStatusResponse is the status-polling view of a project.
type ProjectStatusResponse struct {
	ProjectID      string             `json:"project_id"`
	Name           string             `json:"name"`
	Status         models.State       `json:"status"`
	StatusMessage  string             `json:"status_message"`
	ARollDuration  float64            `json:"a_roll_duration"`
	FootageCount   int                `json:"footage_count"`
	EditPlan       []models.Placement `json:"edit_plan"`
	FinalVideoPath string             `json:"final_video_path,omitempty"`
}

func statusView(p *models.Project) ProjectStatusResponse {
	resp := ProjectStatusResponse{
		ProjectID:      p.ProjectID,
		Name:           p.Name,
		Status:         p.Status,
		StatusMessage:  p.StatusMessage,
		FootageCount:   len(p.BRolls),
		EditPlan:       p.EditPlan,
		FinalVideoPath: p.FinalVideoPath,
	}
	if p.ARoll != nil {
		resp.ARollDuration = p.ARoll.Duration
	}
	return resp
}

// newProjectCode mints the short opaque project code: six upper-case hex
// characters, matching the format clients already share around.
func newProjectCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
}

// CreateProject godoc
// @Summary Create a new project
// @Description Creates a new project in the DRAFT state.
// @Tags projects
// @Accept json
// @Produce json
// @Param project body CreateProjectRequest true "Project to create"
// @Success 201 {object} ProjectStatusResponse
// @Failure 400 "Bad request if the name is missing"
// @Router /projects [post]
func (h *ApplicationHandler) CreateProject(c *fiber.Ctx) error {
	req := new(CreateProjectRequest)
	if err := c.BodyParser(req); err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, fmt.Sprintf("Cannot parse project JSON: %v", err))
	}
	if err := h.Validate.Struct(req); err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, strings.Join(utils.FormatValidationErrors(err), "; "))
	}

	project := &models.Project{
		ProjectID: newProjectCode(),
		Name:      req.Name,
		Status:    models.StateDraft,
		BRolls:    []models.BRoll{},
		EditPlan:  []models.Placement{},
	}
	if err := h.Store.Insert(c.Context(), project); err != nil {
		h.Logger.WithError(err).Error("Could not create project")
		return utils.RespondWithError(c, fiber.StatusInternalServerError, fmt.Sprintf("Could not create project: %v", err))
	}

	return utils.RespondWithJSON(c, fiber.StatusCreated, statusView(project))
}

// GetProjects godoc
// @Summary List all projects
// @Tags projects
// @Produce json
// @Success 200 {array} ProjectStatusResponse
// @Router /projects [get]
func (h *ApplicationHandler) GetProjects(c *fiber.Ctx) error {
	projects, err := h.Store.ListAll(c.Context())
	if err != nil {
		h.Logger.WithError(err).Error("Could not list projects")
		return utils.RespondWithError(c, fiber.StatusInternalServerError, fmt.Sprintf("Could not retrieve projects: %v", err))
	}

	views := make([]ProjectStatusResponse, 0, len(projects))
	for i := range projects {
		views = append(views, statusView(&projects[i]))
	}
	return utils.RespondWithJSON(c, fiber.StatusOK, views)
}

// GetProject godoc
// @Summary Poll one project's pipeline status
// @Tags projects
// @Produce json
// @Param id path string true "Project code"
// @Success 200 {object} ProjectStatusResponse
// @Failure 404 "Project not found"
// @Router /projects/{id} [get]
func (h *ApplicationHandler) GetProject(c *fiber.Ctx) error {
	projectID := c.Params("id")

	project, err := h.Store.Find(c.Context(), projectID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return utils.RespondWithError(c, fiber.StatusNotFound, fmt.Sprintf("Project %s not found", projectID))
		}
		h.Logger.WithError(err).Errorf("Could not fetch project %s", projectID)
		return utils.RespondWithError(c, fiber.StatusInternalServerError, fmt.Sprintf("Could not retrieve project %s: %v", projectID, err))
	}

	return utils.RespondWithJSON(c, fiber.StatusOK, statusView(project))
}

// GetProjectOutput godoc
// @Summary Get a presigned URL for the rendered video
// @Tags projects
// @Produce json
// @Param id path string true "Project code"
// @Success 200 "Presigned download URL"
// @Failure 409 "Project has not completed rendering"
// @Router /projects/{id}/output [get]
func (h *ApplicationHandler) GetProjectOutput(c *fiber.Ctx) error {
	projectID := c.Params("id")

	project, err := h.Store.Find(c.Context(), projectID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return utils.RespondWithError(c, fiber.StatusNotFound, fmt.Sprintf("Project %s not found", projectID))
		}
		return utils.RespondWithError(c, fiber.StatusInternalServerError, fmt.Sprintf("Could not retrieve project %s: %v", projectID, err))
	}
	if project.Status != models.StateCompleted || project.FinalVideoPath == "" {
		return utils.RespondWithError(c, fiber.StatusConflict, fmt.Sprintf("Project %s has no rendered output (state %s)", projectID, project.Status))
	}

	url, err := h.Blobs.PresignedURL(c.Context(), storage.BucketOutput, project.FinalVideoPath)
	if err != nil {
		h.Logger.WithError(err).Errorf("Could not sign output URL for %s", projectID)
		return utils.RespondWithError(c, fiber.StatusInternalServerError, fmt.Sprintf("Could not sign output URL: %v", err))
	}

	return utils.RespondWithJSON(c, fiber.StatusOK, fiber.Map{"url": url})
}
