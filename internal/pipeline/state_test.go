package pipeline

import (
	"errors"
	"testing"

	"cuesens/models"
)

func TestCanTriggerTable(t *testing.T) {
	aroll := &models.ARoll{FileID: "aroll_1"}
	cases := []struct {
		name    string
		state   models.State
		aroll   *models.ARoll
		trigger Trigger
		allowed bool
	}{
		{"transcribe from upload", models.StateUploadingPrimary, aroll, TriggerTranscribe, true},
		{"transcribe from draft", models.StateDraft, aroll, TriggerTranscribe, false},
		{"transcribe without primary take", models.StateUploadingPrimary, nil, TriggerTranscribe, false},
		{"transcribe while transcribing", models.StateTranscribing, aroll, TriggerTranscribe, false},
		{"analyze after transcription", models.StateTranscriptionComplete, aroll, TriggerAnalyze, true},
		{"analyze resumes after analysis", models.StateFootageAnalyzed, aroll, TriggerAnalyze, true},
		{"analyze from draft", models.StateDraft, nil, TriggerAnalyze, false},
		{"analyze while analyzing", models.StateAnalyzingFootage, aroll, TriggerAnalyze, false},
		{"match after analysis", models.StateFootageAnalyzed, aroll, TriggerMatch, true},
		{"match before analysis", models.StateTranscriptionComplete, aroll, TriggerMatch, false},
		{"match while matching", models.StateMatching, aroll, TriggerMatch, false},
		{"render with plan ready", models.StatePlanReady, aroll, TriggerRender, true},
		{"render before matching", models.StateFootageAnalyzed, aroll, TriggerRender, false},
		{"render while rendering", models.StateRendering, aroll, TriggerRender, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := &models.Project{ProjectID: "A1B2C3", Status: tc.state, ARoll: tc.aroll}
			err := CanTrigger(p, tc.trigger)
			if tc.allowed && err != nil {
				t.Errorf("trigger %s from %s should be allowed, got %v", tc.trigger, tc.state, err)
			}
			if !tc.allowed {
				var precond *PreconditionError
				if !errors.As(err, &precond) {
					t.Errorf("trigger %s from %s should yield a PreconditionError, got %v", tc.trigger, tc.state, err)
				}
			}
		})
	}
}

func TestTerminalStatesAbsorb(t *testing.T) {
	aroll := &models.ARoll{FileID: "aroll_1"}
	for _, state := range []models.State{models.StateCompleted, models.StateFailed} {
		for _, trig := range []Trigger{TriggerTranscribe, TriggerAnalyze, TriggerMatch, TriggerRender} {
			p := &models.Project{ProjectID: "A1B2C3", Status: state, ARoll: aroll}
			if err := CanTrigger(p, trig); err == nil {
				t.Errorf("trigger %s must be rejected from terminal state %s", trig, state)
			}
		}
		if !state.Terminal() {
			t.Errorf("%s should report terminal", state)
		}
	}
}

func TestCanTriggerUnknownTrigger(t *testing.T) {
	p := &models.Project{ProjectID: "A1B2C3", Status: models.StateDraft}
	if err := CanTrigger(p, Trigger("rewind")); err == nil {
		t.Error("unknown trigger should be rejected")
	}
}
