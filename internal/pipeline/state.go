package pipeline

import "cuesens/models"

// Trigger names a client-initiated stage transition.
type Trigger string

const (
	TriggerTranscribe Trigger = "transcribe"
	TriggerAnalyze    Trigger = "analyze"
	TriggerMatch      Trigger = "match"
	TriggerRender     Trigger = "render"
)

// transition is one row of the state machine: the states a trigger may
// fire from, the state published while the stage runs, and the state on
// success. FAILED is reachable from every running state and is handled by
// the stage bodies, not the table.
type transition struct {
	from    []models.State
	running models.State
	done    models.State
}

var transitions = map[Trigger]transition{
	TriggerTranscribe: {
		from:    []models.State{models.StateUploadingPrimary},
		running: models.StateTranscribing,
		done:    models.StateTranscriptionComplete,
	},
	TriggerAnalyze: {
		// FOOTAGE_ANALYZED is eligible so a batch extended after a partial
		// failure can be resumed; already-described clips are skipped.
		from:    []models.State{models.StateTranscriptionComplete, models.StateFootageAnalyzed},
		running: models.StateAnalyzingFootage,
		done:    models.StateFootageAnalyzed,
	},
	TriggerMatch: {
		from:    []models.State{models.StateFootageAnalyzed},
		running: models.StateMatching,
		done:    models.StatePlanReady,
	},
	TriggerRender: {
		from:    []models.State{models.StatePlanReady},
		running: models.StateRendering,
		done:    models.StateCompleted,
	},
}

// CanTrigger reports whether trig may fire for the project in its current
// state, without changing anything. Handlers use it to reject bad requests
// before dispatching background work; the stage bodies re-check it.
func CanTrigger(p *models.Project, trig Trigger) error {
	t, ok := transitions[trig]
	if !ok {
		return &PreconditionError{Trigger: trig, State: p.Status, Reason: "unknown trigger"}
	}
	for _, s := range t.from {
		if p.Status == s {
			if trig == TriggerTranscribe && p.ARoll == nil {
				return &PreconditionError{Trigger: trig, State: p.Status, Reason: "no primary take uploaded"}
			}
			return nil
		}
	}
	return &PreconditionError{Trigger: trig, State: p.Status, Reason: "stage not reachable from current state"}
}
