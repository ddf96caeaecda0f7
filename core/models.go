package core

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a content-derived identifier for graph records.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// String renders the ID as fixed-width lowercase hex.
func (id ID) String() string {
	return fmt.Sprintf("%016x", uint64(id))
}

// ParseID parses the hex form produced by ID.String.
func ParseID(s string) (ID, error) {
	v, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("parse id %q: %w", s, err)
	}
	return ID(v), nil
}

// Segment is one timed line of dialogue as produced by a caption parser.
// Times are in seconds from the start of the recording.
type Segment struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Speaker string  `json:"speaker"`
	Text    string  `json:"text"`
}

// Duration returns End - Start.
func (s Segment) Duration() float64 {
	return s.End - s.Start
}

// EpisodeMetadata describes the recording a transcript belongs to.
type EpisodeMetadata struct {
	ID          string
	Title       string
	Description string
	Source      string    // Podcast or channel name, optional
	PublishedAt time.Time // Optional

	// SpeakerHints maps raw speaker labels to known names ("SPEAKER_00" -> "Jane Doe").
	SpeakerHints map[string]string
}

// EpisodeContext is the immutable per-run context handed to every phase.
// It is passed by value; phases must not retain references to its maps.
type EpisodeContext struct {
	EpisodeID string
	Metadata  EpisodeMetadata
	StartedAt time.Time
}

// NewEpisodeContext builds a context, copying the speaker hints so later
// mutation of the caller's metadata is not observed by the run.
func NewEpisodeContext(meta EpisodeMetadata) EpisodeContext {
	hints := make(map[string]string, len(meta.SpeakerHints))
	for k, v := range meta.SpeakerHints {
		hints[k] = v
	}
	meta.SpeakerHints = hints
	return EpisodeContext{
		EpisodeID: meta.ID,
		Metadata:  meta,
		StartedAt: time.Now().UTC(),
	}
}

// EpisodeStatus is the visibility state of a stored episode.
type EpisodeStatus int

const (
	// EpisodeStatusPending marks an episode whose subgraph is still being written.
	EpisodeStatusPending EpisodeStatus = iota + 1
	// EpisodeStatusCommitted marks an episode whose subgraph is complete and readable.
	EpisodeStatusCommitted
)

// String implements fmt.Stringer.
func (s EpisodeStatus) String() string {
	switch s {
	case EpisodeStatusPending:
		return "pending"
	case EpisodeStatusCommitted:
		return "committed"
	default:
		return "unknown"
	}
}

// Episode is the stored root node of an episode subgraph.
type Episode struct {
	ID           string
	Title        string
	Description  string
	Source       string
	Status       EpisodeStatus
	SegmentCount int
	UnitCount    int
	Coverage     float64
	Themes       []string
	CreatedAt    time.Time
	CommittedAt  time.Time
}
