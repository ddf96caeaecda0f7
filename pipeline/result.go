package pipeline

import (
	"errors"
	"time"
)

// Stats counts what a run produced. Counts for phases that never ran are zero.
type Stats struct {
	SegmentsIn             int
	SpeakersResolved       int
	Coverage               float64
	MeaningfulUnitsCreated int
	UnitsSkipped           int
	UnitsExtracted         int
	UnitsFailed            int
	EntitiesExtracted      int
	EntitiesResolved       int
	EntitiesMerged         int
	Relationships          int
	Quotes                 int
	Insights               int
	InvalidItemsDropped    int
	DanglingDropped        int
	UnitsEmbedded          int
	CollaboratorCalls      int
	RecordsWritten         int
	RecordsRolledBack      int
	// RecordsRestored counts records of a replaced graph written back after
	// a failed overwrite commit.
	RecordsRestored int
}

// EpisodeResult is the outcome of ProcessEpisode. It is returned for
// committed and rejected runs alike.
type EpisodeResult struct {
	EpisodeID string
	Status    State
	// FailedPhase is set when Status is StateRejected.
	FailedPhase Phase
	Stats       Stats
	// Errors holds the fatal cause of a rejection and every recorded unit
	// failure, including failures tolerated by the threshold.
	Errors []error
	// Timings holds the wall time of each phase that ran.
	Timings  map[Phase]time.Duration
	Duration time.Duration
	// History lists the states the run passed through, in order.
	History []State
}

// Committed reports whether the episode's subgraph was committed.
func (r *EpisodeResult) Committed() bool {
	return r.Status == StateCommitted
}

// Err joins every recorded error, or returns nil.
func (r *EpisodeResult) Err() error {
	return errors.Join(r.Errors...)
}
