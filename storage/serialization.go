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


package storage

import (
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/unitgraph/core"
)

// recordVersion prefixes every encoded record.
const recordVersion = 1

// writer appends MUS-encoded fields to a byte slice.
type writer struct {
	bs []byte
}

func newWriter() *writer {
	return &writer{bs: []byte{recordVersion}}
}

func (w *writer) grow(n int) []byte {
	off := len(w.bs)
	w.bs = append(w.bs, make([]byte, n)...)
	return w.bs[off:]
}

func (w *writer) str(v string) {
	ord.String.Marshal(v, w.grow(ord.String.Size(v)))
}

func (w *writer) u64(v uint64) {
	varint.Uint64.Marshal(v, w.grow(varint.Uint64.Size(v)))
}

func (w *writer) i64(v int64) {
	varint.Int64.Marshal(v, w.grow(varint.Int64.Size(v)))
}

func (w *writer) int(v int) { w.i64(int64(v)) }

func (w *writer) f64(v float64) { w.u64(math.Float64bits(v)) }

func (w *writer) time(t time.Time) {
	if t.IsZero() {
		w.i64(0)
		return
	}
	w.i64(t.UnixMicro())
}

func (w *writer) strs(vs []string) {
	w.int(len(vs))
	for _, v := range vs {
		w.str(v)
	}
}

func (w *writer) ints(vs []int) {
	w.int(len(vs))
	for _, v := range vs {
		w.int(v)
	}
}

func (w *writer) f32s(vs []float32) {
	w.int(len(vs))
	for _, v := range vs {
		w.u64(uint64(math.Float32bits(v)))
	}
}

// reader consumes MUS-encoded fields. The first failure sticks; later reads
// return zero values.
type reader struct {
	bs  []byte
	err error
}

func newReader(data []byte) *reader {
	if len(data) == 0 {
		return &reader{err: ErrTruncatedData}
	}
	if data[0] != recordVersion {
		return &reader{err: fmt.Errorf("%w: unknown record version %d", ErrSerializationFailed, data[0])}
	}
	return &reader{bs: data[1:]}
}

func (r *reader) fail(err error) {
	if r.err == nil {
		r.err = fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
}

func (r *reader) str() string {
	if r.err != nil {
		return ""
	}
	v, n, err := ord.String.Unmarshal(r.bs)
	if err != nil {
		r.fail(err)
		return ""
	}
	r.bs = r.bs[n:]
	return v
}

func (r *reader) u64() uint64 {
	if r.err != nil {
		return 0
	}
	v, n, err := varint.Uint64.Unmarshal(r.bs)
	if err != nil {
		r.fail(err)
		return 0
	}
	r.bs = r.bs[n:]
	return v
}

func (r *reader) i64() int64 {
	if r.err != nil {
		return 0
	}
	v, n, err := varint.Int64.Unmarshal(r.bs)
	if err != nil {
		r.fail(err)
		return 0
	}
	r.bs = r.bs[n:]
	return v
}

func (r *reader) int() int { return int(r.i64()) }

func (r *reader) f64() float64 { return math.Float64frombits(r.u64()) }

func (r *reader) time() time.Time {
	us := r.i64()
	if us == 0 {
		return time.Time{}
	}
	return time.UnixMicro(us).UTC()
}

// length reads a collection length and rejects values the remaining bytes
// cannot possibly hold.
func (r *reader) length() int {
	n := r.int()
	if n < 0 || n > len(r.bs) {
		if r.err == nil {
			r.err = fmt.Errorf("%w: bad length %d", ErrTruncatedData, n)
		}
		return 0
	}
	return n
}

func (r *reader) strs() []string {
	n := r.length()
	if n == 0 {
		return nil
	}
	vs := make([]string, n)
	for i := range vs {
		vs[i] = r.str()
	}
	return vs
}

func (r *reader) ints() []int {
	n := r.length()
	if n == 0 {
		return nil
	}
	vs := make([]int, n)
	for i := range vs {
		vs[i] = r.int()
	}
	return vs
}

func (r *reader) f32s() []float32 {
	n := r.length()
	if n == 0 {
		return nil
	}
	vs := make([]float32, n)
	for i := range vs {
		vs[i] = math.Float32frombits(uint32(r.u64()))
	}
	return vs
}

// MarshalEpisode serializes an Episode to bytes.
func MarshalEpisode(ep *core.Episode) []byte {
	w := newWriter()
	w.str(ep.ID)
	w.str(ep.Title)
	w.str(ep.Description)
	w.str(ep.Source)
	w.int(int(ep.Status))
	w.int(ep.SegmentCount)
	w.int(ep.UnitCount)
	w.f64(ep.Coverage)
	w.strs(ep.Themes)
	w.time(ep.CreatedAt)
	w.time(ep.CommittedAt)
	return w.bs
}

// UnmarshalEpisode deserializes an Episode from bytes.
func UnmarshalEpisode(data []byte) (*core.Episode, error) {
	r := newReader(data)
	ep := &core.Episode{
		ID:           r.str(),
		Title:        r.str(),
		Description:  r.str(),
		Source:       r.str(),
		Status:       core.EpisodeStatus(r.int()),
		SegmentCount: r.int(),
		UnitCount:    r.int(),
		Coverage:     r.f64(),
		Themes:       r.strs(),
		CreatedAt:    r.time(),
		CommittedAt:  r.time(),
	}
	if r.err != nil {
		return nil, r.err
	}
	return ep, nil
}

// MarshalUnit serializes a MeaningfulUnit to bytes. The speaker distribution
// is written in sorted key order so equal units encode identically.
func MarshalUnit(u *core.MeaningfulUnit) []byte {
	w := newWriter()
	w.str(u.ID)
	w.str(u.EpisodeID)
	w.int(u.Index)
	w.str(u.Text)
	w.f64(u.StartTime)
	w.f64(u.OriginalStart)
	w.f64(u.EndTime)
	w.str(u.Summary)
	w.str(u.UnitType)
	w.strs(u.Themes)

	speakers := make([]string, 0, len(u.SpeakerDistribution))
	for s := range u.SpeakerDistribution {
		speakers = append(speakers, s)
	}
	slices.Sort(speakers)
	w.int(len(speakers))
	for _, s := range speakers {
		w.str(s)
		w.f64(u.SpeakerDistribution[s])
	}

	w.strs(u.Speakers)
	w.ints(u.SegmentIndices)
	w.f32s(u.Vector)
	return w.bs
}

// UnmarshalUnit deserializes a MeaningfulUnit from bytes.
func UnmarshalUnit(data []byte) (*core.MeaningfulUnit, error) {
	r := newReader(data)
	u := &core.MeaningfulUnit{
		ID:            r.str(),
		EpisodeID:     r.str(),
		Index:         r.int(),
		Text:          r.str(),
		StartTime:     r.f64(),
		OriginalStart: r.f64(),
		EndTime:       r.f64(),
		Summary:       r.str(),
		UnitType:      r.str(),
		Themes:        r.strs(),
	}
	n := r.length()
	u.SpeakerDistribution = make(map[string]float64, n)
	for i := 0; i < n; i++ {
		s := r.str()
		u.SpeakerDistribution[s] = r.f64()
	}
	u.Speakers = r.strs()
	u.SegmentIndices = r.ints()
	u.Vector = r.f32s()
	if r.err != nil {
		return nil, r.err
	}
	return u, nil
}

// MarshalEntity serializes an Entity to bytes.
func MarshalEntity(e *core.Entity) []byte {
	w := newWriter()
	w.u64(uint64(e.ID))
	w.str(e.Type)
	w.str(e.Value)
	w.str(e.Description)
	w.f64(e.Confidence)
	w.int(e.Mentions)
	w.strs(e.SupportingUnitIDs)
	return w.bs
}

// UnmarshalEntity deserializes an Entity from bytes.
func UnmarshalEntity(data []byte) (*core.Entity, error) {
	r := newReader(data)
	e := &core.Entity{
		ID:                core.ID(r.u64()),
		Type:              r.str(),
		Value:             r.str(),
		Description:       r.str(),
		Confidence:        r.f64(),
		Mentions:          r.int(),
		SupportingUnitIDs: r.strs(),
	}
	if r.err != nil {
		return nil, r.err
	}
	return e, nil
}

// MarshalRelationship serializes a Relationship to bytes.
func MarshalRelationship(rel *core.Relationship) []byte {
	w := newWriter()
	w.u64(uint64(rel.SourceEntityID))
	w.u64(uint64(rel.TargetEntityID))
	w.str(rel.Type)
	w.str(rel.Description)
	w.f64(rel.Confidence)
	w.str(rel.SupportingUnitID)
	return w.bs
}

// UnmarshalRelationship deserializes a Relationship from bytes.
func UnmarshalRelationship(data []byte) (*core.Relationship, error) {
	r := newReader(data)
	rel := &core.Relationship{
		SourceEntityID:   core.ID(r.u64()),
		TargetEntityID:   core.ID(r.u64()),
		Type:             r.str(),
		Description:      r.str(),
		Confidence:       r.f64(),
		SupportingUnitID: r.str(),
	}
	if r.err != nil {
		return nil, r.err
	}
	return rel, nil
}

// MarshalQuote serializes a Quote to bytes.
func MarshalQuote(q *core.Quote) []byte {
	w := newWriter()
	w.u64(uint64(q.ID))
	w.str(q.Text)
	w.str(q.UnitID)
	w.str(q.Speaker)
	w.str(q.Category)
	w.f64(q.Confidence)
	return w.bs
}

// UnmarshalQuote deserializes a Quote from bytes.
func UnmarshalQuote(data []byte) (*core.Quote, error) {
	r := newReader(data)
	q := &core.Quote{
		ID:         core.ID(r.u64()),
		Text:       r.str(),
		UnitID:     r.str(),
		Speaker:    r.str(),
		Category:   r.str(),
		Confidence: r.f64(),
	}
	if r.err != nil {
		return nil, r.err
	}
	return q, nil
}

// MarshalInsight serializes an Insight to bytes.
func MarshalInsight(in *core.Insight) []byte {
	w := newWriter()
	w.u64(uint64(in.ID))
	w.str(in.Text)
	w.str(in.UnitID)
	w.str(in.Speaker)
	w.str(in.Category)
	w.f64(in.Confidence)
	return w.bs
}

// UnmarshalInsight deserializes an Insight from bytes.
func UnmarshalInsight(data []byte) (*core.Insight, error) {
	r := newReader(data)
	in := &core.Insight{
		ID:         core.ID(r.u64()),
		Text:       r.str(),
		UnitID:     r.str(),
		Speaker:    r.str(),
		Category:   r.str(),
		Confidence: r.f64(),
	}
	if r.err != nil {
		return nil, r.err
	}
	return in, nil
}
