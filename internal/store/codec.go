package store

import (
	"encoding/json"
	"fmt"
	"time"

	"cuesens/models"
)

// projectRow mirrors the projects table: scalar columns plus JSONB
// aggregates for the owned entities.
type projectRow struct {
	ProjectID      string          `json:"project_id"`
	Name           string          `json:"name"`
	Status         string          `json:"status"`
	StatusMessage  string          `json:"status_message"`
	ARoll          json.RawMessage `json:"a_roll,omitempty"`
	BRolls         json.RawMessage `json:"b_rolls"`
	EditPlan       json.RawMessage `json:"edit_plan"`
	FinalVideoPath string          `json:"final_video_path"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

func encodeRow(p *models.Project) (projectRow, error) {
	row := projectRow{
		ProjectID:      p.ProjectID,
		Name:           p.Name,
		Status:         string(p.Status),
		StatusMessage:  p.StatusMessage,
		FinalVideoPath: p.FinalVideoPath,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}

	if p.ARoll != nil {
		aroll, err := json.Marshal(p.ARoll)
		if err != nil {
			return projectRow{}, fmt.Errorf("encode a_roll for %s: %w", p.ProjectID, err)
		}
		row.ARoll = aroll
	}

	brolls, err := json.Marshal(orEmpty(p.BRolls))
	if err != nil {
		return projectRow{}, fmt.Errorf("encode b_rolls for %s: %w", p.ProjectID, err)
	}
	row.BRolls = brolls

	plan, err := json.Marshal(orEmpty(p.EditPlan))
	if err != nil {
		return projectRow{}, fmt.Errorf("encode edit_plan for %s: %w", p.ProjectID, err)
	}
	row.EditPlan = plan

	return row, nil
}

func (r projectRow) decode() (*models.Project, error) {
	p := &models.Project{
		ProjectID:      r.ProjectID,
		Name:           r.Name,
		Status:         models.State(r.Status),
		StatusMessage:  r.StatusMessage,
		BRolls:         []models.BRoll{},
		EditPlan:       []models.Placement{},
		FinalVideoPath: r.FinalVideoPath,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}

	if len(r.ARoll) > 0 && string(r.ARoll) != "null" {
		p.ARoll = &models.ARoll{}
		if err := json.Unmarshal(r.ARoll, p.ARoll); err != nil {
			return nil, fmt.Errorf("decode a_roll for %s: %w", r.ProjectID, err)
		}
	}
	if len(r.BRolls) > 0 && string(r.BRolls) != "null" {
		if err := json.Unmarshal(r.BRolls, &p.BRolls); err != nil {
			return nil, fmt.Errorf("decode b_rolls for %s: %w", r.ProjectID, err)
		}
	}
	if len(r.EditPlan) > 0 && string(r.EditPlan) != "null" {
		if err := json.Unmarshal(r.EditPlan, &p.EditPlan); err != nil {
			return nil, fmt.Errorf("decode edit_plan for %s: %w", r.ProjectID, err)
		}
	}

	return p, nil
}

// orEmpty keeps nil slices out of the JSONB columns so they round-trip as
// empty arrays rather than SQL nulls.
func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
