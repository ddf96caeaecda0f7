package transcript

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/poiesic/unitgraph/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleSRT = `1
00:00:01,000 --> 00:00:04,500
Jane Doe: Welcome to the show.

2
00:00:04,500 --> 00:00:07,000
[Sam Lee] Thanks for
having me.

3
00:00:07,000 --> 00:00:09,250
<i>Today we talk koji.</i>
`

const sampleVTT = `WEBVTT

NOTE recorded live

intro
00:01.000 --> 00:04.000 align:start
<v Jane Doe>Welcome back.</v>

00:00:04.000 --> 00:00:06.500
<v.loud Sam Lee>Glad to be here.
`

func TestParse_SRT(t *testing.T) {
	tr, err := Parse(strings.NewReader(sampleSRT), FormatSRT)
	require.NoError(t, err)
	require.Len(t, tr.Segments, 3)

	assert.Equal(t, core.Segment{Start: 1, End: 4.5, Speaker: "Jane Doe", Text: "Welcome to the show."}, tr.Segments[0])
	assert.Equal(t, "Sam Lee", tr.Segments[1].Speaker)
	assert.Equal(t, "Thanks for having me.", tr.Segments[1].Text)
	assert.Equal(t, "", tr.Segments[2].Speaker)
	assert.Equal(t, "Today we talk koji.", tr.Segments[2].Text)
	assert.InDelta(t, 9.25, tr.Segments[2].End, 1e-9)
	assert.Empty(t, tr.Issues)
}

func TestParse_SRTWindowsLineEndings(t *testing.T) {
	crlf := strings.ReplaceAll(sampleSRT, "\n", "\r\n")
	tr, err := Parse(strings.NewReader(crlf), FormatSRT)
	require.NoError(t, err)
	assert.Len(t, tr.Segments, 3)
}

func TestParse_VTT(t *testing.T) {
	tr, err := Parse(strings.NewReader(sampleVTT), FormatVTT)
	require.NoError(t, err)
	require.Len(t, tr.Segments, 2)

	assert.Equal(t, core.Segment{Start: 1, End: 4, Speaker: "Jane Doe", Text: "Welcome back."}, tr.Segments[0])
	assert.Equal(t, "Sam Lee", tr.Segments[1].Speaker)
	assert.Equal(t, "Glad to be here.", tr.Segments[1].Text)
}

func TestParse_VTTRequiresHeader(t *testing.T) {
	_, err := Parse(strings.NewReader("00:01.000 --> 00:02.000\nhi\n"), FormatVTT)
	assert.ErrorIs(t, err, ErrNotVTT)
}

func TestParse_JSON(t *testing.T) {
	doc := `{"segments": [
		{"start": 0, "end": 2.5, "speaker": "SPEAKER_00", "text": " hello "},
		{"start": 2.5, "end": 4, "speaker": "SPEAKER_01", "text": "hi there"}
	]}`
	tr, err := Parse(strings.NewReader(doc), FormatJSON)
	require.NoError(t, err)
	require.Len(t, tr.Segments, 2)
	assert.Equal(t, "hello", tr.Segments[0].Text)
	assert.Equal(t, "SPEAKER_01", tr.Segments[1].Speaker)

	arr := `[{"start": 0, "end": 1, "speaker": "A", "text": "x"}]`
	tr, err = Parse(strings.NewReader(arr), FormatJSON)
	require.NoError(t, err)
	assert.Len(t, tr.Segments, 1)

	_, err = Parse(strings.NewReader("{not json"), FormatJSON)
	assert.Error(t, err)
}

func TestParse_RepairsTiming(t *testing.T) {
	doc := `[
		{"start": 5, "end": 8, "speaker": "B", "text": "second"},
		{"start": 0, "end": 6, "speaker": "A", "text": "first"},
		{"start": 8, "end": 8, "speaker": "B", "text": "tail"},
		{"start": 9, "end": 9, "speaker": "C", "text": "ghost"},
		{"start": 10, "end": 12, "speaker": "C", "text": "   "}
	]`
	tr, err := Parse(strings.NewReader(doc), FormatJSON)
	require.NoError(t, err)
	require.Len(t, tr.Segments, 2)

	assert.Equal(t, core.Segment{Start: 0, End: 5, Speaker: "A", Text: "first"}, tr.Segments[0])
	assert.Equal(t, core.Segment{Start: 5, End: 8, Speaker: "B", Text: "second tail"}, tr.Segments[1])
	assert.Len(t, tr.Issues, 4)
	assert.NoError(t, core.ValidateSegments(tr.Segments))
}

func TestParse_NoCues(t *testing.T) {
	_, err := Parse(strings.NewReader("[]"), FormatJSON)
	assert.ErrorIs(t, err, ErrNoCues)
	_, err = Parse(strings.NewReader(""), FormatSRT)
	assert.ErrorIs(t, err, ErrNoCues)
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{"00:00:01,000", 1, false},
		{"01:02:03.456", 3723.456, false},
		{"02:03.5", 123.5, false},
		{"00:00:01.2345", 1.234, false},
		{"00:61:00,000", 0, true},
		{"garbage", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := parseTimestamp(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.InDelta(t, tt.want, got, 1e-9, tt.in)
	}
}

func TestDetectFormatAndParseFile(t *testing.T) {
	f, err := DetectFormat("show.SRT")
	require.NoError(t, err)
	assert.Equal(t, FormatSRT, f)
	_, err = DetectFormat("show.txt")
	assert.ErrorIs(t, err, ErrUnknownFormat)

	path := filepath.Join(t.TempDir(), "ep.vtt")
	require.NoError(t, os.WriteFile(path, []byte(sampleVTT), 0o644))
	tr, err := ParseFile(path)
	require.NoError(t, err)
	assert.Len(t, tr.Segments, 2)
}

func TestSplitSpeaker(t *testing.T) {
	tests := []struct {
		in, speaker, text string
	}{
		{"Jane: hi", "Jane", "hi"},
		{"Dr. Jane Doe: hello there", "Dr. Jane Doe", "hello there"},
		{"[SPEAKER_01] yes", "SPEAKER_01", "yes"},
		{"It was 10:30 when we met", "", "It was 10:30 when we met"},
		{"this is a very long lead in sentence: not a speaker", "", "this is a very long lead in sentence: not a speaker"},
	}
	for _, tt := range tests {
		speaker, text := splitSpeaker(tt.in)
		assert.Equal(t, tt.speaker, speaker, tt.in)
		assert.Equal(t, tt.text, text, tt.in)
	}
}
