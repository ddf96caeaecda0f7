// Package transcript reads caption files into ordered segments.
//
// SRT, WebVTT and JSON segment files are supported. Speakers come from a
// leading "Name:" or "[Name]" prefix in SRT, from <v Name> voice tags in
// WebVTT, and from the speaker field in JSON.
package transcript

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/poiesic/unitgraph/core"
)

// Format identifies a caption file format.
type Format string

const (
	FormatSRT  Format = "srt"
	FormatVTT  Format = "vtt"
	FormatJSON Format = "json"
)

var (
	// ErrUnknownFormat is returned for a file extension with no parser.
	ErrUnknownFormat = errors.New("unknown transcript format")

	// ErrNoCues is returned when a file yields no usable segments.
	ErrNoCues = errors.New("transcript contains no cues")
)

// Transcript is a parsed caption file.
type Transcript struct {
	Segments []core.Segment
	// Issues describes cues that were repaired, merged or dropped.
	Issues []string
}

// DetectFormat picks a format from the file extension.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".srt":
		return FormatSRT, nil
	case ".vtt":
		return FormatVTT, nil
	case ".json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, filepath.Ext(path))
}

// ParseFile reads and parses a caption file, choosing the format by extension.
func ParseFile(path string) (*Transcript, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open transcript: %w", err)
	}
	defer f.Close()
	return Parse(f, format)
}

// Parse reads captions in the given format. The returned segments are sorted,
// non-overlapping and pass core.ValidateSegments.
func Parse(r io.Reader, format Format) (*Transcript, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read transcript: %w", err)
	}
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	text = strings.TrimPrefix(text, "\ufeff")

	var cues []cue
	var issues []string
	switch format {
	case FormatSRT:
		cues, issues = parseSRT(text)
	case FormatVTT:
		cues, issues, err = parseVTT(text)
	case FormatJSON:
		cues, err = parseJSON([]byte(text))
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	if err != nil {
		return nil, err
	}

	segments, fixes := normalize(cues)
	issues = append(issues, fixes...)
	if len(segments) == 0 {
		return nil, ErrNoCues
	}
	if err := core.ValidateSegments(segments); err != nil {
		return nil, err
	}
	return &Transcript{Segments: segments, Issues: issues}, nil
}

// cue is one caption before normalization.
type cue struct {
	start, end float64
	speaker    string
	text       string
}
