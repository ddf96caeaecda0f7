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
	"fmt"
	"strings"
)

// ValidateSegment validates a single Segment.
//
// Validation rules:
//   - Start must be non-negative
//   - Start must be strictly before End
//   - Text must not be blank
func ValidateSegment(seg Segment) error {
	if seg.Start < 0 {
		return fmt.Errorf("%w: negative start %.3f", ErrInvalidSegment, seg.Start)
	}
	if seg.Start >= seg.End {
		return fmt.Errorf("%w: start %.3f not before end %.3f", ErrInvalidSegment, seg.Start, seg.End)
	}
	if strings.TrimSpace(seg.Text) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidSegment, ErrEmptyValue)
	}
	return nil
}

// ValidateSegments validates an episode's segment list: every segment must be
// valid and segments must be ordered and non-overlapping.
func ValidateSegments(segments []Segment) error {
	if len(segments) == 0 {
		return ErrNoSegments
	}
	for i, seg := range segments {
		if err := ValidateSegment(seg); err != nil {
			return fmt.Errorf("segment %d: %w", i, err)
		}
		if i > 0 && seg.Start < segments[i-1].End {
			return fmt.Errorf("segment %d starts at %.3f before previous end %.3f: %w",
				i, seg.Start, segments[i-1].End, ErrSegmentOrder)
		}
	}
	return nil
}

// ValidateConfidence checks that c is within [0,1].
func ValidateConfidence(c float64) error {
	if c < 0 || c > 1 {
		return fmt.Errorf("%w: got %v", ErrConfidenceRange, c)
	}
	return nil
}

// ValidateEntity validates the structural shape of an Entity.
// Type vocabulary is deliberately not checked.
func ValidateEntity(e *Entity) error {
	if e == nil {
		return fmt.Errorf("%w: entity is nil", ErrInvalidEntity)
	}
	if strings.TrimSpace(e.Value) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidEntity, ErrEmptyValue)
	}
	if strings.TrimSpace(e.Type) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidEntity, ErrEmptyType)
	}
	if err := ValidateConfidence(e.Confidence); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidEntity, err)
	}
	return nil
}

// ValidateRelationship validates the structural shape of a Relationship.
func ValidateRelationship(r *Relationship) error {
	if r == nil {
		return fmt.Errorf("%w: relationship is nil", ErrInvalidRelationship)
	}
	if strings.TrimSpace(r.Type) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidRelationship, ErrEmptyType)
	}
	if err := ValidateConfidence(r.Confidence); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRelationship, err)
	}
	return nil
}

// ValidateQuote validates the structural shape of a Quote.
func ValidateQuote(q *Quote) error {
	if q == nil {
		return fmt.Errorf("%w: quote is nil", ErrInvalidQuote)
	}
	if strings.TrimSpace(q.Text) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidQuote, ErrEmptyValue)
	}
	if err := ValidateConfidence(q.Confidence); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidQuote, err)
	}
	return nil
}

// ValidateInsight validates the structural shape of an Insight.
func ValidateInsight(in *Insight) error {
	if in == nil {
		return fmt.Errorf("%w: insight is nil", ErrInvalidInsight)
	}
	if strings.TrimSpace(in.Text) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidInsight, ErrEmptyValue)
	}
	if err := ValidateConfidence(in.Confidence); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInsight, err)
	}
	return nil
}
