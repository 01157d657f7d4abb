package store

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"

	"cuesens/models"
)

func fullProject() *models.Project {
	created := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	return &models.Project{
		ProjectID:     "A1B2C3",
		Name:          "launch teaser",
		Status:        models.StatePlanReady,
		StatusMessage: "Plan ready: 2 placements",
		ARoll: &models.ARoll{
			FileID:   "aroll_1a2b3c4d.mp4",
			Path:     "aroll_1a2b3c4d.mp4",
			Duration: 42.5,
			Transcript: []models.TranscriptSegment{
				{Start: 0, End: 4.2, Text: "welcome back"},
				{Start: 4.8, End: 9.1, Text: "today we ship"},
			},
		},
		BRolls: []models.BRoll{
			{
				BRollID:     "broll_aaaa1111.mp4",
				Path:        "broll_aaaa1111.mp4",
				Duration:    8,
				Description: "city street at dusk",
				Keywords:    []string{"city", "dusk"},
				Mood:        "moody",
			},
			{
				BRollID:     "broll_bbbb2222.mp4",
				Path:        "broll_bbbb2222.mp4",
				Duration:    12,
				Description: models.DescriptionPending,
				Keywords:    []string{},
				Mood:        "unknown",
			},
		},
		EditPlan: []models.Placement{
			{BRollID: "broll_aaaa1111.mp4", StartInARoll: 1.5, Duration: 3, Confidence: 0.91, Reason: `Matches phrase: "welcome back"`},
			{BRollID: "broll_aaaa1111.mp4", StartInARoll: 20, Duration: 4, Confidence: 0.84, Reason: `Matches phrase: "today we ship"`},
		},
		FinalVideoPath: "",
		CreatedAt:      created,
		UpdatedAt:      created.Add(5 * time.Minute),
	}
}

func TestProjectRowRoundTrip(t *testing.T) {
	original := fullProject()

	row, err := encodeRow(original)
	if err != nil {
		t.Fatalf("encodeRow failed: %v", err)
	}

	// Push the row through real JSON, the same shape the table sees.
	raw, err := json.Marshal(row)
	if err != nil {
		t.Fatalf("marshal row failed: %v", err)
	}
	var back projectRow
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatalf("unmarshal row failed: %v", err)
	}

	decoded, err := back.decode()
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if !reflect.DeepEqual(original, decoded) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", decoded, original)
	}
}

func TestProjectRowPlanOrderSurvives(t *testing.T) {
	original := fullProject()
	row, err := encodeRow(original)
	if err != nil {
		t.Fatalf("encodeRow failed: %v", err)
	}
	decoded, err := row.decode()
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	for i, placement := range decoded.EditPlan {
		if placement.StartInARoll != original.EditPlan[i].StartInARoll {
			t.Errorf("placement %d moved: got %v want %v", i, placement.StartInARoll, original.EditPlan[i].StartInARoll)
		}
	}
}

func TestEncodeRowKeepsNilAggregatesAsEmptyArrays(t *testing.T) {
	p := &models.Project{ProjectID: "A1B2C3", Name: "bare", Status: models.StateDraft}

	row, err := encodeRow(p)
	if err != nil {
		t.Fatalf("encodeRow failed: %v", err)
	}
	if string(row.BRolls) != "[]" {
		t.Errorf("nil b_rolls should encode as [], got %s", row.BRolls)
	}
	if string(row.EditPlan) != "[]" {
		t.Errorf("nil edit_plan should encode as [], got %s", row.EditPlan)
	}
	if len(row.ARoll) != 0 {
		t.Errorf("absent a_roll should stay empty, got %s", row.ARoll)
	}
}

func TestDecodeToleratesNullColumns(t *testing.T) {
	row := projectRow{
		ProjectID: "A1B2C3",
		Name:      "legacy row",
		Status:    string(models.StateDraft),
		ARoll:     json.RawMessage("null"),
		BRolls:    json.RawMessage("null"),
		EditPlan:  json.RawMessage("null"),
	}

	p, err := row.decode()
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if p.ARoll != nil {
		t.Error("null a_roll should decode to nil")
	}
	if p.BRolls == nil || len(p.BRolls) != 0 {
		t.Errorf("null b_rolls should decode to an empty slice, got %#v", p.BRolls)
	}
	if p.EditPlan == nil || len(p.EditPlan) != 0 {
		t.Errorf("null edit_plan should decode to an empty slice, got %#v", p.EditPlan)
	}
}
