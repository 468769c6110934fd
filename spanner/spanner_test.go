package spanner

import (
	"testing"

	"github.com/jsphweid/tactus/frac"
	"github.com/jsphweid/tactus/model"
	"github.com/stretchr/testify/assert"
)

func loc(measure int, num, den int64, note int) model.Location {
	return model.Location{
		MeasureIndex: measure,
		VoiceIndex:   0,
		Offset:       frac.New(num, den),
		NoteIndex:    note,
	}
}

func TestAttachComputesMutualInverses(t *testing.T) {
	r := NewRegistry()
	s, err := r.Attach(model.Tie, loc(0, 3, 4, 0), loc(1, 0, 1, 0))

	assert := assert.New(t)
	assert.NoError(err)
	assert.Equal(1, s.Start.Rel.MeasureDelta)
	assert.Equal(frac.New(-3, 4), s.Start.Rel.OffsetDelta)
	assert.Equal(-1, s.End.Rel.MeasureDelta)
	assert.Equal(frac.New(3, 4), s.End.Rel.OffsetDelta)
	assert.NoError(r.Verify())
}

func TestAttachRejectsSameNote(t *testing.T) {
	r := NewRegistry()
	_, err := r.Attach(model.Tie, loc(0, 0, 1, 0), loc(0, 0, 1, 0))
	assert.ErrorIs(t, err, ErrInvalidEndpoints)
}

func TestAttachRejectsDoubleSpan(t *testing.T) {
	r := NewRegistry()
	_, err := r.Attach(model.Tie, loc(0, 0, 1, 0), loc(1, 0, 1, 0))
	assert := assert.New(t)
	assert.NoError(err)

	_, err = r.Attach(model.Tie, loc(0, 0, 1, 0), loc(2, 0, 1, 0))
	assert.ErrorIs(err, ErrInvalidEndpoints)
	_, err = r.Attach(model.Tie, loc(2, 0, 1, 0), loc(1, 0, 1, 0))
	assert.ErrorIs(err, ErrInvalidEndpoints)

	// a slur between the same two notes is fine
	_, err = r.Attach(model.Slur, loc(0, 0, 1, 0), loc(1, 0, 1, 0))
	assert.NoError(err)
}

func TestDetachIdempotent(t *testing.T) {
	r := NewRegistry()
	s, _ := r.Attach(model.Slur, loc(0, 0, 1, 0), loc(3, 1, 2, 0))
	r.Detach(s.EID)
	r.Detach(s.EID)
	assert.Equal(t, 0, r.Len())
}

func TestOnMeasureSplitBeforeBothEndpoints(t *testing.T) {
	r := NewRegistry()
	s, _ := r.Attach(model.Slur, loc(2, 0, 1, 0), loc(4, 1, 4, 0))

	// splitting measure 0 renumbers everything after it
	r.OnMeasureSplit(0, frac.New(1, 4))

	assert := assert.New(t)
	assert.Equal(3, s.Start.Loc.MeasureIndex)
	assert.Equal(5, s.End.Loc.MeasureIndex)
	assert.Equal(2, s.Start.Rel.MeasureDelta)
	assert.NoError(r.Verify())
}

func TestOnMeasureSplitBetweenTieNotes(t *testing.T) {
	// tie within one measure: note at 0 tied to note at 1/4
	r := NewRegistry()
	s, _ := r.Attach(model.Tie, loc(1, 0, 1, 0), loc(1, 1, 4, 0))

	// split falls exactly between them; the encoding becomes a
	// one-measure offset
	r.OnMeasureSplit(1, frac.New(1, 4))

	assert := assert.New(t)
	assert.Equal(1, s.Start.Loc.MeasureIndex)
	assert.Equal(2, s.End.Loc.MeasureIndex)
	assert.True(s.End.Loc.Offset.IsZero())
	assert.Equal(1, s.Start.Rel.MeasureDelta)
	assert.True(s.Start.Rel.OffsetDelta.IsZero())
	assert.NoError(r.Verify())
}

func TestOnMeasureInsertWidensCrossingSpanner(t *testing.T) {
	r := NewRegistry()
	crossing, _ := r.Attach(model.Slur, loc(0, 1, 2, 0), loc(3, 0, 1, 0))
	before, _ := r.Attach(model.Slur, loc(0, 0, 1, 0), loc(1, 0, 1, 0))

	r.OnMeasureInsert(1)

	assert := assert.New(t)
	assert.Equal(4, crossing.Start.Rel.MeasureDelta)
	assert.Equal(1, before.Start.Rel.MeasureDelta)
	assert.NoError(r.Verify())
}

func TestOnMeasureDeleteRemovesAnchored(t *testing.T) {
	r := NewRegistry()
	doomed, _ := r.Attach(model.Tie, loc(1, 3, 4, 0), loc(2, 0, 1, 0))
	survivor, _ := r.Attach(model.Slur, loc(0, 0, 1, 0), loc(3, 0, 1, 0))

	removed := r.OnMeasureDelete(2)

	assert := assert.New(t)
	assert.Equal([]string{doomed.EID}, removed)
	_, ok := r.Get(doomed.EID)
	assert.False(ok)

	// the pass-through spanner renumbers to skip the removed measure
	assert.Equal(2, survivor.End.Loc.MeasureIndex)
	assert.Equal(2, survivor.Start.Rel.MeasureDelta)
	assert.NoError(r.Verify())
}

func TestVerifyCatchesCorruption(t *testing.T) {
	r := NewRegistry()
	s, _ := r.Attach(model.Tie, loc(0, 1, 2, 0), loc(1, 0, 1, 0))
	s.Start.Rel.MeasureDelta = 5
	assert.ErrorIs(t, r.Verify(), ErrInvariantViolation)
}

func TestEditSequenceKeepsInvariant(t *testing.T) {
	r := NewRegistry()
	r.Attach(model.Tie, loc(0, 3, 4, 0), loc(1, 0, 1, 0))
	r.Attach(model.Slur, loc(1, 1, 4, 1), loc(5, 1, 2, 0))
	r.Attach(model.Slur, loc(2, 0, 1, 0), loc(2, 1, 2, 0))

	r.OnMeasureSplit(2, frac.New(1, 4))
	r.OnMeasureInsert(0)
	r.OnMeasureDelete(4)
	r.OnMeasureSplit(1, frac.New(1, 8))

	assert.NoError(t, r.Verify())
}
