// Package timeline is the ordered measure index of a score and the home
// of its structural edits.
package timeline

import (
	"errors"

	"github.com/jsphweid/tactus/duration"
	"github.com/jsphweid/tactus/frac"
	"github.com/jsphweid/tactus/model"
	"github.com/jsphweid/tactus/spanner"
)

// ErrInvalidSplitPoint indicates a split position that is not strictly
// inside a measure.
var ErrInvalidSplitPoint = errors.New("split position not strictly inside a measure")

// ErrNoMeasure indicates a measure index out of range.
var ErrNoMeasure = errors.New("measure index out of range")

// ErrInvalidMeasureLength indicates a non-positive measure length.
var ErrInvalidMeasureLength = errors.New("measure length must be positive")

// ErrOverlap indicates an attempt to place a chord over existing notes.
var ErrOverlap = errors.New("span overlaps existing notes")

// Timeline owns the measures of one score plus its spanner registry.
// One logical editing context mutates it at a time; structural edits
// are atomic (commit or full rollback).
type Timeline struct {
	Measures []*model.Measure
	Spanners *spanner.Registry
}

func New() *Timeline {
	return &Timeline{Spanners: spanner.NewRegistry()}
}

// Copy takes a deep snapshot, used by edits for rollback.
func (t *Timeline) Copy() *Timeline {
	out := &Timeline{
		Measures: make([]*model.Measure, len(t.Measures)),
		Spanners: t.Spanners.Copy(),
	}
	for i, m := range t.Measures {
		out.Measures[i] = m.Copy()
	}
	return out
}

func (t *Timeline) restore(snap *Timeline) {
	t.Measures = snap.Measures
	t.Spanners = snap.Spanners
}

// Len is the total score length. Structural edits conserve it except
// for insert/delete, which change it by exactly the measure involved.
func (t *Timeline) Len() frac.Frac {
	if len(t.Measures) == 0 {
		return frac.Zero()
	}
	return t.Measures[len(t.Measures)-1].End()
}

func (t *Timeline) EndTick() int64 {
	return t.Len().Ticks()
}

func (t *Timeline) NumVoices() int {
	n := 0
	for _, m := range t.Measures {
		if len(m.Voices) > n {
			n = len(m.Voices)
		}
	}
	return n
}

// AppendMeasure adds a rest-filled measure at the end.
func (t *Timeline) AppendMeasure(sig model.TimeSig, numVoices int) *model.Measure {
	m := &model.Measure{
		Start:   t.Len(),
		Nominal: sig.Len(),
		Sig:     sig,
		Repeat:  model.RepeatMarks{JumpTo: -1},
	}
	for vi := 0; vi < numVoices; vi++ {
		m.Voices = append(m.Voices, padRests(nil, m.Len()))
	}
	t.Measures = append(t.Measures, m)
	return m
}

// MeasureIndexAt returns the measure containing pos.
func (t *Timeline) MeasureIndexAt(pos frac.Frac) (int, bool) {
	for i, m := range t.Measures {
		if !pos.Less(m.Start) && pos.Less(m.End()) {
			return i, true
		}
	}
	return 0, false
}

// ResolveNote resolves a spanner endpoint location to its note.
func (t *Timeline) ResolveNote(loc model.Location) (model.Note, bool) {
	if loc.MeasureIndex < 0 || loc.MeasureIndex >= len(t.Measures) {
		return model.Note{}, false
	}
	m := t.Measures[loc.MeasureIndex]
	if loc.VoiceIndex < 0 || loc.VoiceIndex >= len(m.Voices) {
		return model.Note{}, false
	}
	for _, cr := range m.Voices[loc.VoiceIndex] {
		if cr.Offset.Equal(loc.Offset) && !cr.IsRest() {
			if loc.NoteIndex >= 0 && loc.NoteIndex < len(cr.Notes) {
				return cr.Notes[loc.NoteIndex], true
			}
			return model.Note{}, false
		}
	}
	return model.Note{}, false
}

// Beat maps a raw tick to measure/beat coordinates for UI display.
func (t *Timeline) Beat(rawTick int64) model.MeasureBeat {
	var mb model.MeasureBeat
	if len(t.Measures) == 0 {
		return mb
	}
	pos := frac.FromTicks(rawTick)
	idx := len(t.Measures) - 1
	for i, m := range t.Measures {
		if pos.Less(m.End()) {
			idx = i
			break
		}
	}
	m := t.Measures[idx]
	local := pos.Sub(m.Start)
	if local.Negative() {
		local = frac.Zero()
	}
	beatTicks := frac.New(1, int64(m.Sig.Den)).Ticks()
	localTicks := local.Ticks()
	mb.MeasureIndex = idx
	mb.BeatIndex = int(localTicks / beatTicks)
	mb.Beat = float64(mb.BeatIndex) + float64(localTicks%beatTicks)/float64(beatTicks)
	mb.MaxMeasureIndex = len(t.Measures) - 1
	mb.MaxBeatIndex = m.Sig.Num - 1
	return mb
}

// BeatToRawTick is the inverse of Beat for whole beat positions.
func (t *Timeline) BeatToRawTick(measureIdx, beatIdx int) int64 {
	if len(t.Measures) == 0 {
		return 0
	}
	if measureIdx < 0 {
		measureIdx = 0
	}
	if measureIdx >= len(t.Measures) {
		measureIdx = len(t.Measures) - 1
	}
	m := t.Measures[measureIdx]
	beatTicks := frac.New(1, int64(m.Sig.Den)).Ticks()
	return m.Start.Ticks() + int64(beatIdx)*beatTicks
}

// padRests appends rests so the voice covers [0, upto). Fails when the
// gap is not expressible as dotted rests (degenerate split points).
func padRestsChecked(v model.Voice, upto frac.Frac) (model.Voice, error) {
	at := frac.Zero()
	if len(v) > 0 {
		at = v[len(v)-1].End()
	}
	gap := upto.Sub(at)
	if !gap.Positive() {
		return v, nil
	}
	tokens, _, err := duration.Decompose(gap, gap)
	if err != nil {
		return nil, err
	}
	for _, tok := range tokens {
		v = append(v, model.ChordRest{Offset: at, Tokens: []duration.Token{tok}})
		at = at.Add(tok.Value())
	}
	return v, nil
}

// padRests is padRestsChecked for callers that control the gap (measure
// construction from a time signature).
func padRests(v model.Voice, upto frac.Frac) model.Voice {
	out, err := padRestsChecked(v, upto)
	if err != nil {
		panic("timeline: unrepresentable rest gap " + upto.String())
	}
	return out
}
