package timeline

import (
	"testing"

	"github.com/jsphweid/tactus/duration"
	"github.com/jsphweid/tactus/frac"
	"github.com/jsphweid/tactus/model"
	"github.com/jsphweid/tactus/spanner"
	"github.com/stretchr/testify/assert"
)

func fourFour() model.TimeSig {
	return model.TimeSig{Num: 4, Den: 4}
}

func notes(pitches ...uint8) []model.Note {
	var out []model.Note
	for _, p := range pitches {
		out = append(out, model.NewNote(p, 80))
	}
	return out
}

func TestAppendMeasureIsRestFilled(t *testing.T) {
	tl := New()
	m := tl.AppendMeasure(fourFour(), 2)

	assert := assert.New(t)
	assert.Equal(frac.New(1, 1), m.Len())
	assert.Equal(2, len(m.Voices))
	for _, v := range m.Voices {
		assert.Equal(1, len(v))
		assert.True(v[0].IsRest())
		assert.Equal(frac.New(1, 1), v[0].Dur())
	}
}

func TestPlaceChordCarvesRests(t *testing.T) {
	tl := New()
	tl.AppendMeasure(fourFour(), 1)
	loc, err := tl.PlaceChord(0, 0, frac.New(1, 4), frac.New(1, 4), notes(60, 64))

	assert := assert.New(t)
	assert.NoError(err)
	assert.Equal(frac.New(1, 4), loc.Offset)

	v := tl.Measures[0].Voices[0]
	assert.Equal(3, len(v))
	assert.True(v[0].IsRest())
	assert.False(v[1].IsRest())
	assert.True(v[2].IsRest())
	assert.Equal(frac.New(1, 2), v[2].Dur())

	// the carved voice still sums to the measure length
	assert.True(v[2].End().Equal(frac.New(1, 1)))
}

func TestPlaceChordRejectsOverlap(t *testing.T) {
	tl := New()
	tl.AppendMeasure(fourFour(), 1)
	_, err := tl.PlaceChord(0, 0, frac.Zero(), frac.New(1, 2), notes(60))
	assert.NoError(t, err)
	_, err = tl.PlaceChord(0, 0, frac.New(1, 4), frac.New(1, 4), notes(62))
	assert.ErrorIs(t, err, ErrOverlap)
}

func TestSplitWholeNoteMeasure(t *testing.T) {
	// measure of one whole note split at 1/4: quarter tied to dotted
	// half across the new boundary
	tl := New()
	tl.AppendMeasure(fourFour(), 1)
	_, err := tl.PlaceChord(0, 0, frac.Zero(), frac.New(1, 1), notes(60))
	assert := assert.New(t)
	assert.NoError(err)

	assert.NoError(tl.SplitMeasure(frac.New(1, 4)))

	assert.Equal(2, len(tl.Measures))
	a, b := tl.Measures[0], tl.Measures[1]
	assert.Equal(frac.New(1, 4), a.Len())
	assert.Equal(frac.New(3, 4), b.Len())
	assert.Equal(frac.New(1, 4), b.Start)

	assert.Equal([]duration.Token{{Base: duration.Quarter}}, a.Voices[0][0].Tokens)
	assert.Equal([]duration.Token{{Base: duration.Half, Dots: 1}}, b.Voices[0][0].Tokens)

	// one tie connects the two chords
	assert.Equal(1, tl.Spanners.Len())
	s := tl.Spanners.All()[0]
	assert.Equal(model.Tie, s.Kind)
	assert.Equal(0, s.Start.Loc.MeasureIndex)
	assert.Equal(1, s.End.Loc.MeasureIndex)
	assert.NoError(tl.Spanners.Verify())
}

func TestSplitChordGetsPerNoteTies(t *testing.T) {
	// splitting through a two-note chord ties each note to its
	// counterpart at the start of the new measure
	tl := New()
	tl.AppendMeasure(fourFour(), 1)
	tl.AppendMeasure(fourFour(), 1)
	_, err := tl.PlaceChord(1, 0, frac.Zero(), frac.New(1, 2), notes(60, 64))
	assert := assert.New(t)
	assert.NoError(err)

	assert.NoError(tl.SplitMeasure(frac.New(5, 4)))

	assert.Equal(2, tl.Spanners.Len())
	for _, s := range tl.Spanners.All() {
		assert.Equal(model.Tie, s.Kind)
		assert.Equal(1, s.Start.Loc.MeasureIndex)
		assert.Equal(2, s.End.Loc.MeasureIndex)
		assert.True(s.End.Loc.Offset.IsZero())
		assert.NoError(s.End.Loc.Offset.Check())
	}
	assert.NoError(tl.VerifySpanners())
}

func TestSplitConservesLengthAndContent(t *testing.T) {
	tl := New()
	tl.AppendMeasure(fourFour(), 1)
	tl.AppendMeasure(fourFour(), 1)
	tl.PlaceChord(0, 0, frac.Zero(), frac.New(1, 4), notes(60))
	tl.PlaceChord(0, 0, frac.New(1, 4), frac.New(1, 2), notes(64))
	total := tl.Len()

	// split in the middle of the second chord
	assert := assert.New(t)
	assert.NoError(tl.SplitMeasure(frac.New(1, 2)))

	assert.Equal(3, len(tl.Measures))
	assert.True(tl.Len().Equal(total))
	a, b := tl.Measures[0], tl.Measures[1]
	assert.True(a.Len().Add(b.Len()).Equal(frac.New(1, 1)))

	// replaying both sides in sequence reconstructs the original
	// chord/rest sequence: quarter 60, quarter+quarter tied 64, rest
	assert.Equal(2, len(a.Voices[0]))
	assert.Equal(uint8(60), a.Voices[0][0].Notes[0].Pitch)
	assert.Equal(frac.New(1, 4), a.Voices[0][1].Dur())
	assert.Equal(uint8(64), a.Voices[0][1].Notes[0].Pitch)
	assert.Equal(uint8(64), b.Voices[0][0].Notes[0].Pitch)
	assert.Equal(frac.New(1, 4), b.Voices[0][0].Dur())
	assert.True(b.Voices[0][1].IsRest())

	// later measures keep their absolute positions
	assert.True(tl.Measures[2].Start.Equal(frac.New(1, 1)))
}

func TestSplitRejectsBoundaryPositions(t *testing.T) {
	tl := New()
	tl.AppendMeasure(fourFour(), 1)
	tl.AppendMeasure(fourFour(), 1)

	assert := assert.New(t)
	assert.ErrorIs(tl.SplitMeasure(frac.Zero()), ErrInvalidSplitPoint)
	assert.ErrorIs(tl.SplitMeasure(frac.New(1, 1)), ErrInvalidSplitPoint)
	assert.ErrorIs(tl.SplitMeasure(frac.New(2, 1)), ErrInvalidSplitPoint)
	assert.ErrorIs(tl.SplitMeasure(frac.New(5, 2)), ErrInvalidSplitPoint)
}

func TestSplitMovesTimeSigAtSplitPoint(t *testing.T) {
	tl := New()
	m := tl.AppendMeasure(fourFour(), 1)
	m.Annots = append(m.Annots,
		model.Annotation{Kind: model.KindText, Offset: frac.New(1, 8), Text: "rit."},
		model.Annotation{Kind: model.KindTimeSig, Offset: frac.New(1, 4), Sig: model.TimeSig{Num: 3, Den: 4}},
	)

	assert := assert.New(t)
	assert.NoError(tl.SplitMeasure(frac.New(1, 4)))

	a, b := tl.Measures[0], tl.Measures[1]
	assert.Equal(1, len(a.Annots))
	assert.Equal("rit.", a.Annots[0].Text)
	assert.Equal(1, len(b.Annots))
	assert.Equal(model.KindTimeSig, b.Annots[0].Kind)
	assert.True(b.Annots[0].Offset.IsZero())
}

func TestSplitRelocatesOutgoingTie(t *testing.T) {
	// chord in measure 0 tied to chord in measure 1; measure 0 is then
	// split through the first chord
	tl := New()
	tl.AppendMeasure(fourFour(), 1)
	tl.AppendMeasure(fourFour(), 1)
	start, _ := tl.PlaceChord(0, 0, frac.Zero(), frac.New(1, 1), notes(60))
	end, _ := tl.PlaceChord(1, 0, frac.Zero(), frac.New(1, 4), notes(60))
	_, err := tl.Spanners.Attach(model.Tie, start, end)
	assert := assert.New(t)
	assert.NoError(err)

	assert.NoError(tl.SplitMeasure(frac.New(1, 2)))

	// two ties now: pre->post inside the old measure, post->partner
	assert.Equal(2, tl.Spanners.Len())
	assert.NoError(tl.Spanners.Verify())
	for _, s := range tl.Spanners.All() {
		_, ok := tl.ResolveNote(s.Start.Loc)
		assert.True(ok)
		_, ok = tl.ResolveNote(s.End.Loc)
		assert.True(ok)
	}
}

func TestSplitRollsBackOnCorruptSpanner(t *testing.T) {
	tl := New()
	tl.AppendMeasure(fourFour(), 1)
	tl.AppendMeasure(fourFour(), 1)
	start, _ := tl.PlaceChord(0, 0, frac.Zero(), frac.New(1, 4), notes(60))
	end, _ := tl.PlaceChord(1, 0, frac.Zero(), frac.New(1, 4), notes(60))
	s, _ := tl.Spanners.Attach(model.Tie, start, end)

	// corrupt one endpoint behind the registry's back so it no longer
	// resolves to a note
	s.End.Loc.NoteIndex = 5

	err := tl.SplitMeasure(frac.New(1, 8))
	assert := assert.New(t)
	assert.ErrorIs(err, spanner.ErrInvariantViolation)

	// full rollback: still two measures, chord untouched
	assert.Equal(2, len(tl.Measures))
	assert.Equal(frac.New(1, 1), tl.Measures[0].Len())
	_, ok := tl.ResolveNote(model.Location{MeasureIndex: 0, VoiceIndex: 0, Offset: frac.Zero()})
	assert.True(ok)
}

func TestInsertMeasureShiftsAndWidens(t *testing.T) {
	tl := New()
	tl.AppendMeasure(fourFour(), 1)
	tl.AppendMeasure(fourFour(), 1)
	start, _ := tl.PlaceChord(0, 0, frac.Zero(), frac.New(1, 4), notes(60))
	end, _ := tl.PlaceChord(1, 0, frac.Zero(), frac.New(1, 4), notes(64))
	s, _ := tl.Spanners.Attach(model.Slur, start, end)

	assert := assert.New(t)
	assert.NoError(tl.InsertMeasure(0, frac.New(1, 2)))

	assert.Equal(3, len(tl.Measures))
	assert.True(tl.Measures[1].Start.Equal(frac.New(1, 1)))
	assert.True(tl.Measures[1].Len().Equal(frac.New(1, 2)))
	assert.True(tl.Measures[2].Start.Equal(frac.New(3, 2)))
	assert.Equal(2, s.Start.Rel.MeasureDelta)
	assert.NoError(tl.Spanners.Verify())
}

func TestDeleteMeasureRemovesAnchoredSpanners(t *testing.T) {
	tl := New()
	tl.AppendMeasure(fourFour(), 1)
	tl.AppendMeasure(fourFour(), 1)
	tl.AppendMeasure(fourFour(), 1)
	start, _ := tl.PlaceChord(0, 0, frac.Zero(), frac.New(1, 4), notes(60))
	mid, _ := tl.PlaceChord(1, 0, frac.Zero(), frac.New(1, 4), notes(62))
	end, _ := tl.PlaceChord(2, 0, frac.Zero(), frac.New(1, 4), notes(64))
	tl.Spanners.Attach(model.Tie, start, mid)
	crossing, _ := tl.Spanners.Attach(model.Slur, start, end)

	assert := assert.New(t)
	assert.NoError(tl.DeleteMeasure(1))

	assert.Equal(2, len(tl.Measures))
	assert.Equal(1, tl.Spanners.Len())
	assert.Equal(1, crossing.Start.Rel.MeasureDelta)
	assert.True(tl.Measures[1].Start.Equal(frac.New(1, 1)))
	assert.NoError(tl.Spanners.Verify())
}

func TestBeatMapping(t *testing.T) {
	tl := New()
	tl.AppendMeasure(fourFour(), 1)
	tl.AppendMeasure(model.TimeSig{Num: 3, Den: 4}, 1)

	assert := assert.New(t)

	mb := tl.Beat(0)
	assert.Equal(0, mb.MeasureIndex)
	assert.Equal(0, mb.BeatIndex)

	// tick 2640 = whole measure (1920) + 1.5 quarters (720)
	mb = tl.Beat(2640)
	assert.Equal(1, mb.MeasureIndex)
	assert.Equal(1, mb.BeatIndex)
	assert.InDelta(1.5, mb.Beat, 1e-9)
	assert.Equal(1, mb.MaxMeasureIndex)
	assert.Equal(2, mb.MaxBeatIndex)

	assert.Equal(int64(2400), tl.BeatToRawTick(1, 1))
	assert.Equal(int64(0), tl.BeatToRawTick(0, 0))
}

func TestBeatOnEmptyTimeline(t *testing.T) {
	tl := New()
	mb := tl.Beat(1234)
	assert.Equal(t, model.MeasureBeat{}, mb)
}
