// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package core

import (
	"errors"
	"fmt"
	"strings"
)

// Domain validation errors
var (
	// ErrInvalidSegment indicates a Segment failed validation.
	ErrInvalidSegment = errors.New("invalid segment")

	// ErrNoSegments indicates an episode was submitted without segments.
	ErrNoSegments = errors.New("episode has no segments")

	// ErrSegmentOrder indicates segments overlap or are out of order.
	ErrSegmentOrder = errors.New("segments are not ordered and non-overlapping")

	// ErrEmptyEpisodeID indicates the episode metadata has no ID.
	ErrEmptyEpisodeID = errors.New("episode id cannot be empty")

	// ErrInvalidEntity indicates an Entity failed validation.
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrInvalidRelationship indicates a Relationship failed validation.
	ErrInvalidRelationship = errors.New("invalid relationship")

	// ErrInvalidQuote indicates a Quote failed validation.
	ErrInvalidQuote = errors.New("invalid quote")

	// ErrInvalidInsight indicates an Insight failed validation.
	ErrInvalidInsight = errors.New("invalid insight")

	// ErrEmptyValue indicates a required text field is empty.
	ErrEmptyValue = errors.New("value cannot be empty")

	// ErrEmptyType indicates a required type field is empty.
	ErrEmptyType = errors.New("type cannot be empty")

	// ErrConfidenceRange indicates a confidence outside [0,1].
	ErrConfidenceRange = errors.New("confidence must be between 0 and 1")
)

// ConversationAnalysisError reports a conversation structure that could not be
// accepted, typically because its units cover too little of the transcript.
type ConversationAnalysisError struct {
	Coverage    float64
	MinCoverage float64
	Reason      string
	Err         error
}

func (e *ConversationAnalysisError) Error() string {
	var b strings.Builder
	b.WriteString("conversation analysis failed")
	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	}
	if e.MinCoverage > 0 {
		fmt.Fprintf(&b, " (coverage %.2f, required %.2f)", e.Coverage, e.MinCoverage)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ConversationAnalysisError) Unwrap() error { return e.Err }

// SpeakerIdentificationError reports speaker labels that stayed generic after
// resolution.
type SpeakerIdentificationError struct {
	Unresolved []string
	Err        error
}

func (e *SpeakerIdentificationError) Error() string {
	msg := "speaker identification failed"
	if len(e.Unresolved) > 0 {
		msg += ": unresolved generic labels " + strings.Join(e.Unresolved, ", ")
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SpeakerIdentificationError) Unwrap() error { return e.Err }

// ExtractionError reports a failed knowledge extraction for a single unit.
type ExtractionError struct {
	UnitID   string
	Attempts int
	Err      error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed for unit %s after %d attempt(s): %v", e.UnitID, e.Attempts, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// ExtractionThresholdError reports that too many units failed extraction for
// the episode to proceed.
type ExtractionThresholdError struct {
	Failed    int
	Total     int
	Threshold float64
	Failures  []*ExtractionError
}

func (e *ExtractionThresholdError) Error() string {
	return fmt.Sprintf("%d of %d units failed extraction, exceeding threshold %.2f", e.Failed, e.Total, e.Threshold)
}

// Unwrap exposes the individual unit failures to errors.Is/As.
func (e *ExtractionThresholdError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f
	}
	return errs
}

// StorageError reports a failed graph write or delete.
type StorageError struct {
	Op  string // "create_unit", "delete_episode_subgraph", ...
	Key string
	Err error
}

func (e *StorageError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("storage %s %s: %v", e.Op, e.Key, e.Err)
	}
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
