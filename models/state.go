package models

// State is the pipeline state of a project. Progress through the states is
// ordered; COMPLETED and FAILED are absorbing.
type State string

const (
	StateDraft                 State = "DRAFT"
	StateUploadingPrimary      State = "UPLOADING_PRIMARY"
	StateTranscribing          State = "TRANSCRIBING"
	StateTranscriptionComplete State = "TRANSCRIPTION_COMPLETE"
	StateAnalyzingFootage      State = "ANALYZING_FOOTAGE"
	StateFootageAnalyzed       State = "FOOTAGE_ANALYZED"
	StateMatching              State = "MATCHING"
	StatePlanReady             State = "PLAN_READY"
	StateRendering             State = "RENDERING"
	StateCompleted             State = "COMPLETED"
	StateFailed                State = "FAILED"
)

// Terminal reports whether no further stage can be triggered from s.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}
