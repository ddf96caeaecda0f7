package batch

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/poiesic/unitgraph/ai/mock"
	"github.com/poiesic/unitgraph/core"
	"github.com/poiesic/unitgraph/pipeline"
	badgerstore "github.com/poiesic/unitgraph/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProcessor struct {
	mu      sync.Mutex
	seen    []string
	active  atomic.Int32
	peak    atomic.Int32
	rejectN map[string]bool
}

func (f *fakeProcessor) ProcessEpisode(ctx context.Context, meta core.EpisodeMetadata, segments []core.Segment) (*pipeline.EpisodeResult, error) {
	n := f.active.Add(1)
	defer f.active.Add(-1)
	for {
		peak := f.peak.Load()
		if n <= peak || f.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	time.Sleep(10 * time.Millisecond)

	f.mu.Lock()
	f.seen = append(f.seen, meta.ID)
	f.mu.Unlock()

	if f.rejectN[meta.ID] {
		return &pipeline.EpisodeResult{EpisodeID: meta.ID, Status: pipeline.StateRejected},
			&pipeline.PipelineError{EpisodeID: meta.ID, Phase: pipeline.PhaseStructure, Cause: errors.New("no")}
	}
	return &pipeline.EpisodeResult{EpisodeID: meta.ID, Status: pipeline.StateCommitted}, nil
}

func segmentJobs(ids ...string) []Job {
	jobs := make([]Job, len(ids))
	for i, id := range ids {
		jobs[i] = Job{
			Metadata: core.EpisodeMetadata{ID: id},
			Segments: []core.Segment{{Start: 0, End: 1, Speaker: "A", Text: "hi"}},
		}
	}
	return jobs
}

func TestNewRunner_RequiresProcessor(t *testing.T) {
	_, err := NewRunner(nil)
	assert.ErrorIs(t, err, ErrProcessorRequired)
}

func TestRun_RecordsRejectionsAndKeepsOrder(t *testing.T) {
	proc := &fakeProcessor{rejectN: map[string]bool{"ep-2": true}}
	var out bytes.Buffer
	tracker := NewProgressTracker(&out, 4)
	r, err := NewRunner(proc, WithConcurrency(2), WithProgress(tracker))
	require.NoError(t, err)

	summary, err := r.Run(context.Background(), segmentJobs("ep-1", "ep-2", "ep-3", "ep-4"))
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Committed)
	assert.Equal(t, 1, summary.Rejected)
	require.Len(t, summary.Results, 4)
	for i, id := range []string{"ep-1", "ep-2", "ep-3", "ep-4"} {
		assert.Equal(t, id, summary.Results[i].Job.Metadata.ID)
	}
	var pe *pipeline.PipelineError
	assert.True(t, errors.As(summary.Results[1].Err, &pe))

	assert.LessOrEqual(t, proc.peak.Load(), int32(2))
	assert.Contains(t, out.String(), "4/4")
	assert.Contains(t, out.String(), "3 committed, 1 rejected")
}

func TestRun_UnreadableTranscript(t *testing.T) {
	proc := &fakeProcessor{}
	r, err := NewRunner(proc)
	require.NoError(t, err)

	jobs := JobsFromFiles([]string{filepath.Join(t.TempDir(), "missing.srt")})
	summary, err := r.Run(context.Background(), jobs)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Rejected)
	assert.Error(t, summary.Results[0].Err)
	assert.Empty(t, proc.seen)
}

func TestRun_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r, err := NewRunner(&fakeProcessor{})
	require.NoError(t, err)

	_, err = r.Run(ctx, segmentJobs("ep-1", "ep-2"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEpisodeIDForPath_Stable(t *testing.T) {
	a := EpisodeIDForPath("shows/koji/ep1.srt")
	b := EpisodeIDForPath("shows/koji/ep1.srt")
	c := EpisodeIDForPath("shows/koji/ep2.srt")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 36)

	jobs := JobsFromFiles([]string{"shows/koji/ep1.srt"})
	assert.Equal(t, "ep1", jobs[0].Metadata.Title)
	assert.Equal(t, "koji", jobs[0].Metadata.Source)
	assert.Equal(t, a, jobs[0].Metadata.ID)
}

func TestRun_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	srt := "1\n00:00:00,000 --> 00:00:03,000\nJane: Welcome to Koji Hour.\n\n" +
		"2\n00:00:03,000 --> 00:00:06,000\nSam: Glad to talk about Miso.\n"
	path := filepath.Join(dir, "ep1.srt")
	require.NoError(t, os.WriteFile(path, []byte(srt), 0o644))

	store, err := badgerstore.NewMemoryGraphStore()
	require.NoError(t, err)
	defer store.Close()

	p, err := pipeline.New(store, mock.NewMockProvider(), pipeline.WithRetryDelay(0))
	require.NoError(t, err)
	defer p.Release()

	r, err := NewRunner(p)
	require.NoError(t, err)
	summary, err := r.Run(context.Background(), JobsFromFiles([]string{path}))
	require.NoError(t, err)
	require.Equal(t, 1, summary.Committed)

	ep, err := store.GetEpisode(context.Background(), EpisodeIDForPath(path))
	require.NoError(t, err)
	assert.Equal(t, "ep1", ep.Title)
}

func TestProgressTracker_NotStarted(t *testing.T) {
	var out bytes.Buffer
	tracker := NewProgressTracker(&out, 3)
	tracker.Done(true)
	tracker.Finish()
	assert.Empty(t, out.String())
	assert.Equal(t, time.Duration(0), tracker.Elapsed())

	tracker.Start()
	tracker.Done(true)
	tracker.Done(false)
	committed, rejected := tracker.Counts()
	assert.Equal(t, 1, committed)
	assert.Equal(t, 1, rejected)
	assert.Contains(t, out.String(), "2/3 (66.7%)")
}
