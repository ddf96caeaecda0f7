package pipeline

import (
	"errors"
	"fmt"
)

var (
	// ErrStoreRequired is returned when no graph store is supplied.
	ErrStoreRequired = errors.New("graph store is required")

	// ErrAIProviderRequired is returned when no AI provider is supplied.
	ErrAIProviderRequired = errors.New("AI provider is required")

	// ErrNoUnits is returned when regrouping yields no meaningful units.
	ErrNoUnits = errors.New("structure produced no meaningful units")

	// ErrInvalidTransition is returned when a run would move backwards or
	// leave a terminal state.
	ErrInvalidTransition = errors.New("invalid state transition")
)

// Phase names the step of a run that failed.
type Phase string

const (
	PhaseValidate  Phase = "validate"
	PhaseSpeakers  Phase = "speakers"
	PhaseStructure Phase = "structure"
	PhaseRegroup   Phase = "regroup"
	PhaseExtract   Phase = "extract"
	PhaseEmbed     Phase = "embed"
	PhaseResolve   Phase = "resolve"
	PhaseCommit    Phase = "commit"
	PhaseRollback  Phase = "rollback"
)

// PipelineError is the single error returned for a rejected episode. It
// unwraps to the root cause, so errors.As finds the typed core errors.
type PipelineError struct {
	EpisodeID string
	Phase     Phase
	Cause     error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("episode %s rejected in %s phase: %v", e.EpisodeID, e.Phase, e.Cause)
}

func (e *PipelineError) Unwrap() error { return e.Cause }
