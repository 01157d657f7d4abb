package models

import "time"

// DescriptionPending is the sentinel description a B-roll clip carries until
// the analysis stage has described it. Matching must never run against
// sentinel descriptions.
const DescriptionPending = "No description available"

// Project is the root document for one editing job. It exclusively owns its
// A-roll, B-roll collection and edit plan; the whole aggregate is persisted
// as a single row.
type Project struct {
	ProjectID      string      `json:"project_id"`
	Name           string      `json:"name"`
	Status         State       `json:"status"`
	StatusMessage  string      `json:"status_message"`
	ARoll          *ARoll      `json:"a_roll,omitempty"`
	BRolls         []BRoll     `json:"b_rolls"`
	EditPlan       []Placement `json:"edit_plan"`
	FinalVideoPath string      `json:"final_video_path"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// FindBRoll returns the clip with the given id, or nil.
func (p *Project) FindBRoll(brollID string) *BRoll {
	for i := range p.BRolls {
		if p.BRolls[i].BRollID == brollID {
			return &p.BRolls[i]
		}
	}
	return nil
}

// ARoll is the primary talking-head take. Duration is derived once from the
// uploaded bytes and immutable afterwards.
type ARoll struct {
	FileID     string              `json:"file_id"`
	Path       string              `json:"path"`
	Duration   float64             `json:"duration"`
	Transcript []TranscriptSegment `json:"transcript,omitempty"`
}

// BRoll is one supplementary footage clip. Description, Keywords and Mood
// stay at their defaults until the analysis stage has run.
type BRoll struct {
	BRollID     string   `json:"broll_id"`
	Path        string   `json:"path"`
	Duration    float64  `json:"duration"`
	Description string   `json:"description"`
	Keywords    []string `json:"keywords"`
	Mood        string   `json:"mood"`
}

// Described reports whether the clip has a non-sentinel description. The
// analysis stage skips described clips, which makes re-running it after a
// partial failure resume where it left off.
func (b *BRoll) Described() bool {
	return b.Description != "" && b.Description != DescriptionPending
}

// Placement schedules one B-roll insertion on the A-roll timeline.
type Placement struct {
	BRollID      string  `json:"broll_id"`
	StartInARoll float64 `json:"start_in_aroll"`
	Duration     float64 `json:"duration"`
	Confidence   float64 `json:"confidence"`
	Reason       string  `json:"reason"`
}

// End returns the placement's end time on the A-roll timeline.
func (p Placement) End() float64 {
	return p.StartInARoll + p.Duration
}
