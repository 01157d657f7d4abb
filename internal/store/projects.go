// Package store persists project documents in Supabase Postgres through
// the PostgREST API. Each project is one row; the A-roll, B-roll
// collection and edit plan live in JSONB columns so the aggregate is
// written and read as a unit.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	supa "github.com/supabase-community/supabase-go"

	"cuesens/models"
)

const projectsTable = "projects"

// ErrNotFound is returned when no project exists for the given id.
var ErrNotFound = errors.New("project not found")

// Projects is the document store for project state.
type Projects struct {
	db  *supa.Client
	log *logrus.Logger
}

func NewProjects(db *supa.Client, log *logrus.Logger) *Projects {
	return &Projects{db: db, log: log}
}

// Find returns the project with the given short code, or ErrNotFound.
func (s *Projects) Find(ctx context.Context, projectID string) (*models.Project, error) {
	body, _, err := s.db.From(projectsTable).
		Select("*", "", false).
		Eq("project_id", projectID).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("fetch project %s: %w", projectID, err)
	}

	var rows []projectRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("unmarshal project %s: %w", projectID, err)
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return rows[0].decode()
}

// Insert stores a newly created project.
func (s *Projects) Insert(ctx context.Context, p *models.Project) error {
	p.CreatedAt = time.Now().UTC()
	p.UpdatedAt = p.CreatedAt

	row, err := encodeRow(p)
	if err != nil {
		return err
	}
	body, _, err := s.db.From(projectsTable).
		Insert(row, false, "", "representation", "").
		Execute()
	if err != nil {
		return fmt.Errorf("insert project %s: %w", p.ProjectID, err)
	}

	var rows []projectRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return fmt.Errorf("unmarshal insert response for %s: %w", p.ProjectID, err)
	}
	if len(rows) == 0 {
		return fmt.Errorf("insert project %s: empty representation returned", p.ProjectID)
	}

	s.log.WithField("project_id", p.ProjectID).Info("Project created")
	return nil
}

// Save writes the full project document back.
func (s *Projects) Save(ctx context.Context, p *models.Project) error {
	p.UpdatedAt = time.Now().UTC()

	row, err := encodeRow(p)
	if err != nil {
		return err
	}
	_, _, err = s.db.From(projectsTable).
		Update(row, "", "").
		Eq("project_id", p.ProjectID).
		Execute()
	if err != nil {
		return fmt.Errorf("save project %s: %w", p.ProjectID, err)
	}
	return nil
}

// ListAll returns every stored project.
func (s *Projects) ListAll(ctx context.Context) ([]models.Project, error) {
	body, _, err := s.db.From(projectsTable).
		Select("*", "", false).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}

	var rows []projectRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("unmarshal project list: %w", err)
	}

	projects := make([]models.Project, 0, len(rows))
	for _, row := range rows {
		p, err := row.decode()
		if err != nil {
			return nil, err
		}
		projects = append(projects, *p)
	}
	return projects, nil
}
