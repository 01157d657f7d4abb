package pipeline

import (
	"fmt"

	"cuesens/models"
)

// PreconditionError rejects a stage trigger fired out of order. No project
// state changes when it is returned.
type PreconditionError struct {
	Trigger Trigger
	State   models.State
	Reason  string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("cannot %s project in state %s: %s", e.Trigger, e.State, e.Reason)
}

// CorruptOutputError marks a collaborator response that could not be
// parsed or validated into the expected structure. The stage fails and
// nothing is partially persisted.
type CorruptOutputError struct {
	Source string
	Err    error
}

func (e *CorruptOutputError) Error() string {
	return fmt.Sprintf("corrupt %s output: %v", e.Source, e.Err)
}

func (e *CorruptOutputError) Unwrap() error { return e.Err }

// ResourceError marks a disk, storage or encoder-process failure during
// render.
type ResourceError struct {
	Op  string
	Err error
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ResourceError) Unwrap() error { return e.Err }
