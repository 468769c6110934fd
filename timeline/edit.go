package timeline

import (
	"fmt"

	"github.com/jsphweid/tactus/duration"
	"github.com/jsphweid/tactus/frac"
	"github.com/jsphweid/tactus/model"
	"github.com/jsphweid/tactus/spanner"
)

// SplitMeasure splits the measure containing pos into two measures
// whose lengths sum to the original. Chords and rests straddling pos
// are re-decomposed on each side; split chords get a tie. The edit is
// atomic: any failure leaves the timeline untouched.
func (t *Timeline) SplitMeasure(pos frac.Frac) (err error) {
	idx := -1
	for i, m := range t.Measures {
		if m.Start.Less(pos) && pos.Less(m.End()) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrInvalidSplitPoint
	}
	snap := t.Copy()
	// a panic mid-edit must not leave partial state behind
	defer func() {
		if r := recover(); r != nil {
			t.restore(snap)
			err = fmt.Errorf("measure split failed: %v", r)
		}
	}()
	if err := t.splitMeasure(idx, pos); err != nil {
		t.restore(snap)
		return err
	}
	if err := t.VerifySpanners(); err != nil {
		t.restore(snap)
		return err
	}
	return nil
}

type pendingTie struct {
	voice     int
	preOffset frac.Frac
	noteCount int
}

func (t *Timeline) splitMeasure(idx int, pos frac.Frac) error {
	m := t.Measures[idx]
	off := pos.Sub(m.Start)

	a := &model.Measure{
		Start:    m.Start,
		Nominal:  m.Nominal,
		Override: off,
		Sig:      m.Sig,
		Repeat:   model.RepeatMarks{Start: m.Repeat.Start, JumpTo: -1},
	}
	b := &model.Measure{
		Start:    pos,
		Nominal:  m.Nominal,
		Override: m.Len().Sub(off),
		Sig:      m.Sig,
		// end-of-measure marks travel with the second half
		Repeat: model.RepeatMarks{
			End:    m.Repeat.End,
			Count:  m.Repeat.Count,
			JumpTo: m.Repeat.JumpTo,
		},
	}

	var ties []pendingTie
	for vi, v := range m.Voices {
		var va, vb model.Voice
		for _, cr := range v {
			switch {
			case cr.End().LessEq(off):
				va = append(va, cr)
			case !cr.Offset.Less(off):
				moved := cr.Copy()
				moved.Offset = cr.Offset.Sub(off)
				vb = append(vb, moved)
			default:
				split, err := duration.SplitAt(cr.Dur(), off.Sub(cr.Offset))
				if err != nil {
					return err
				}
				pre := model.ChordRest{
					Offset: cr.Offset,
					Tokens: split.Pre,
					Notes:  append([]model.Note(nil), cr.Notes...),
				}
				post := model.ChordRest{Offset: frac.Zero(), Tokens: split.Post}
				for _, n := range cr.Notes {
					post.Notes = append(post.Notes, model.NewNote(n.Pitch, n.Velocity))
				}
				va = append(va, pre)
				vb = append(vb, post)
				if !cr.IsRest() {
					ties = append(ties, pendingTie{vi, cr.Offset, len(cr.Notes)})
				}
			}
		}
		var err error
		if va, err = padRestsChecked(va, off); err != nil {
			return err
		}
		if vb, err = padRestsChecked(vb, b.Len()); err != nil {
			return err
		}
		a.Voices = append(a.Voices, va)
		b.Voices = append(b.Voices, vb)
	}

	for _, an := range m.Annots {
		if an.Offset.Less(off) {
			a.Annots = append(a.Annots, an)
		} else {
			// a time signature exactly at the split point starts the
			// second measure
			an.Offset = an.Offset.Sub(off)
			b.Annots = append(b.Annots, an)
		}
	}

	t.Measures[idx] = a
	t.Measures = append(t.Measures, nil)
	copy(t.Measures[idx+2:], t.Measures[idx+1:])
	t.Measures[idx+1] = b

	t.Spanners.OnMeasureSplit(idx, off)

	for _, pt := range ties {
		for ni := 0; ni < pt.noteCount; ni++ {
			start := model.Location{
				MeasureIndex: idx,
				VoiceIndex:   pt.voice,
				Offset:       pt.preOffset,
				NoteIndex:    ni,
			}
			end := model.Location{
				MeasureIndex: idx + 1,
				VoiceIndex:   pt.voice,
				Offset:       frac.Zero(),
				NoteIndex:    ni,
			}
			// a tie that already left the pre chord now leaves the
			// post chord instead, so the internal tie can take its
			// place
			if prev, ok := t.Spanners.StartingAt(model.Tie, start); ok {
				t.Spanners.MoveStart(prev.EID, end)
			}
			if _, err := t.Spanners.Attach(model.Tie, start, end); err != nil {
				return err
			}
		}
	}
	return nil
}

// InsertMeasure inserts a rest-filled measure of the given length after
// afterIdx (-1 inserts at the front). Spanners crossing the insertion
// point widen by one measure.
func (t *Timeline) InsertMeasure(afterIdx int, length frac.Frac) error {
	if afterIdx < -1 || afterIdx >= len(t.Measures) {
		return ErrNoMeasure
	}
	if !length.Positive() {
		return ErrInvalidMeasureLength
	}
	snap := t.Copy()

	sig := model.TimeSig{Num: 4, Den: 4}
	start := frac.Zero()
	if afterIdx >= 0 {
		sig = t.Measures[afterIdx].Sig
		start = t.Measures[afterIdx].End()
	} else if len(t.Measures) > 0 {
		sig = t.Measures[0].Sig
	}

	m := &model.Measure{
		Start:    start,
		Nominal:  sig.Len(),
		Override: length,
		Sig:      sig,
		Repeat:   model.RepeatMarks{JumpTo: -1},
	}
	numVoices := t.NumVoices()
	if numVoices == 0 {
		numVoices = 1
	}
	for vi := 0; vi < numVoices; vi++ {
		v, err := padRestsChecked(nil, length)
		if err != nil {
			t.restore(snap)
			return err
		}
		m.Voices = append(m.Voices, v)
	}

	at := afterIdx + 1
	t.Measures = append(t.Measures, nil)
	copy(t.Measures[at+1:], t.Measures[at:])
	t.Measures[at] = m
	for _, later := range t.Measures[at+1:] {
		later.Start = later.Start.Add(length)
	}

	t.Spanners.OnMeasureInsert(afterIdx)

	if err := t.VerifySpanners(); err != nil {
		t.restore(snap)
		return err
	}
	return nil
}

// DeleteMeasure removes measure idx. Spanners anchored in it are
// removed; spanners crossing it renumber to skip it.
func (t *Timeline) DeleteMeasure(idx int) error {
	if idx < 0 || idx >= len(t.Measures) {
		return ErrNoMeasure
	}
	snap := t.Copy()

	length := t.Measures[idx].Len()
	t.Measures = append(t.Measures[:idx], t.Measures[idx+1:]...)
	for _, later := range t.Measures[idx:] {
		later.Start = later.Start.Sub(length)
	}

	t.Spanners.OnMeasureDelete(idx)

	if err := t.VerifySpanners(); err != nil {
		t.restore(snap)
		return err
	}
	return nil
}

// PlaceChord writes a chord over rest space in one measure, carving the
// covering rests. Returns the location of the placed chord.
func (t *Timeline) PlaceChord(mi, vi int, offset, dur frac.Frac, notes []model.Note) (model.Location, error) {
	var none model.Location
	if mi < 0 || mi >= len(t.Measures) {
		return none, ErrNoMeasure
	}
	m := t.Measures[mi]
	if vi < 0 || vi >= len(m.Voices) {
		return none, ErrNoMeasure
	}
	if offset.Negative() || !dur.Positive() || m.Len().Less(offset.Add(dur)) {
		return none, fmt.Errorf("%w: chord does not fit the measure", ErrOverlap)
	}
	end := offset.Add(dur)

	tokens, _, err := duration.Decompose(dur, dur)
	if err != nil {
		return none, err
	}

	var out model.Voice
	placed := false
	for _, cr := range m.Voices[vi] {
		if cr.End().LessEq(offset) || !cr.Offset.Less(end) {
			out = append(out, cr)
			continue
		}
		if !cr.IsRest() {
			return none, ErrOverlap
		}
		left := offset.Sub(cr.Offset)
		if left.Positive() {
			leftTokens, _, err := duration.Decompose(left, left)
			if err != nil {
				return none, err
			}
			at := cr.Offset
			for _, tok := range leftTokens {
				out = append(out, model.ChordRest{Offset: at, Tokens: []duration.Token{tok}})
				at = at.Add(tok.Value())
			}
		}
		if !placed {
			out = append(out, model.ChordRest{Offset: offset, Tokens: tokens, Notes: notes})
			placed = true
		}
		right := cr.End().Sub(end)
		if right.Positive() {
			rightTokens, _, err := duration.Decompose(right, right)
			if err != nil {
				return none, err
			}
			at := end
			for _, tok := range rightTokens {
				out = append(out, model.ChordRest{Offset: at, Tokens: []duration.Token{tok}})
				at = at.Add(tok.Value())
			}
		}
	}
	if !placed {
		return none, ErrOverlap
	}
	m.Voices[vi] = out
	return model.Location{MeasureIndex: mi, VoiceIndex: vi, Offset: offset}, nil
}

// VerifySpanners checks the mutual-inverse invariant and that every
// endpoint resolves to a live note. Structural edits run it before
// committing; loaders run it on rehydrated documents.
func (t *Timeline) VerifySpanners() error {
	if err := t.Spanners.Verify(); err != nil {
		return err
	}
	for _, s := range t.Spanners.All() {
		for _, e := range []model.Endpoint{s.Start, s.End} {
			if _, ok := t.ResolveNote(e.Loc); !ok {
				return fmt.Errorf("%w: %v %s endpoint does not resolve to a note",
					spanner.ErrInvariantViolation, s.Kind, s.EID)
			}
		}
	}
	return nil
}
