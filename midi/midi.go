// Package midi loads scores from and persists played timelines to
// standard MIDI files.
package midi

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/jsphweid/tactus/constants"
	"github.com/jsphweid/tactus/frac"
	"github.com/jsphweid/tactus/model"
	"github.com/jsphweid/tactus/repeats"
	"github.com/jsphweid/tactus/timeline"
	"gitlab.com/gomidi/midi/v2/smf"
)

func ReadFile(filepath string) (s *smf.SMF, e error) {
	var blank smf.SMF

	// the smf parser panics on some malformed files
	// https://github.com/gomidi/midi/issues/20
	defer func() {
		if r, ok := recover().(string); ok {
			e = errors.New(r)
		}
	}()

	dat, err := os.ReadFile(filepath)
	if err != nil {
		return &blank, fmt.Errorf("error reading midi file... %w", err)
	}
	res, err := smf.ReadFrom(bytes.NewReader(dat))
	if err != nil {
		return &blank, fmt.Errorf("error parsing midi file... %w", err)
	}
	return res, nil
}

type meterEvent struct {
	tick int64
	sig  model.TimeSig
}

type importNote struct {
	voice    int
	pitch    uint8
	velocity uint8
	on       frac.Frac
	off      frac.Frac
}

// quantize snaps a position to the 1/64 grid. MIDI deltas rarely land
// exactly on renderable values.
func quantize(f frac.Frac) frac.Frac {
	num := (f.Num*64*2 + f.Den) / (f.Den * 2)
	return frac.New(num, 64)
}

// Import builds a timeline from an SMF: measures from the meter events,
// one voice per track carrying notes, plus the tempo map. Notes that
// cannot be placed (overlaps, unrepresentable spans) are skipped and
// counted.
func Import(s *smf.SMF) (*timeline.Timeline, repeats.TempoMap, int, error) {
	metric, ok := s.TimeFormat.(smf.MetricTicks)
	if !ok {
		return nil, repeats.TempoMap{}, 0, errors.New("unsupported time format, expected metric ticks")
	}
	ppw := 4 * int64(metric)

	var meters []meterEvent
	var tempos []repeats.TempoEvent
	var notes []importNote
	lastOff := frac.Zero()

	voice := 0
	for _, track := range s.Tracks {
		var absTicks int64
		pressed := make(map[uint8]importNote)
		hasNotes := false
		for _, event := range track {
			absTicks += int64(event.Delta)
			pos := frac.New(absTicks, ppw)
			var channel, key, velocity uint8
			var num, denom uint8
			var bpm float64
			switch {
			case event.Message.GetNoteOn(&channel, &key, &velocity) && velocity > 0:
				pressed[key] = importNote{
					voice:    voice,
					pitch:    key,
					velocity: velocity,
					on:       quantize(pos),
				}
			// a note-on with velocity 0 releases like a note-off
			case event.Message.GetNoteOff(&channel, &key, &velocity),
				event.Message.GetNoteOn(&channel, &key, &velocity):
				n, ok := pressed[key]
				if !ok {
					continue
				}
				delete(pressed, key)
				n.off = quantize(pos)
				if n.on.Less(n.off) {
					notes = append(notes, n)
					hasNotes = true
					if lastOff.Less(n.off) {
						lastOff = n.off
					}
				}
			case event.Message.GetMetaMeter(&num, &denom):
				meters = append(meters, meterEvent{
					tick: absTicks * constants.TicksPerWhole / ppw,
					sig:  model.TimeSig{Num: int(num), Den: int(denom)},
				})
			case event.Message.GetMetaTempo(&bpm):
				if bpm > 0 {
					tempos = append(tempos, repeats.TempoEvent{
						Tick:             absTicks * constants.TicksPerWhole / ppw,
						MicrosPerQuarter: int64(60e6 / bpm),
					})
				}
			}
		}
		if hasNotes {
			voice++
		}
	}
	numVoices := voice
	if numVoices == 0 {
		numVoices = 1
	}

	tl := buildMeasures(meters, lastOff, numVoices)
	skipped := placeNotes(tl, notes)
	return tl, repeats.NewTempoMap(tempos), skipped, nil
}

func buildMeasures(meters []meterEvent, upto frac.Frac, numVoices int) *timeline.Timeline {
	sort.Slice(meters, func(i, j int) bool { return meters[i].tick < meters[j].tick })
	tl := timeline.New()
	sig := model.TimeSig{Num: 4, Den: 4}
	next := 0
	for tl.Len().Less(upto) || len(tl.Measures) == 0 {
		for next < len(meters) && meters[next].tick <= tl.EndTick() {
			if meters[next].sig.Num > 0 && meters[next].sig.Den > 0 {
				sig = meters[next].sig
			}
			next++
		}
		tl.AppendMeasure(sig, numVoices)
	}
	return tl
}

// placeNotes writes notes into the timeline, splitting across measure
// boundaries with ties. Identical spans in one voice merge into chords.
func placeNotes(tl *timeline.Timeline, notes []importNote) int {
	type key struct {
		voice  int
		onNum  int64
		onDen  int64
		offNum int64
		offDen int64
	}
	grouped := make(map[key][]importNote)
	var order []key
	for _, n := range notes {
		k := key{n.voice, n.on.Num, n.on.Den, n.off.Num, n.off.Den}
		if _, ok := grouped[k]; !ok {
			order = append(order, k)
		}
		grouped[k] = append(grouped[k], n)
	}
	sort.Slice(order, func(i, j int) bool {
		a, b := order[i], order[j]
		if a.voice != b.voice {
			return a.voice < b.voice
		}
		return frac.New(a.onNum, a.onDen).Less(frac.New(b.onNum, b.onDen))
	})

	skipped := 0
	for _, k := range order {
		group := grouped[k]
		first := group[0]
		if err := placeSpan(tl, first.voice, first.on, first.off, group); err != nil {
			skipped += len(group)
		}
	}
	return skipped
}

func placeSpan(tl *timeline.Timeline, voice int, on, off frac.Frac, group []importNote) error {
	var prev model.Location
	havePrev := false
	cur := on
	for cur.Less(off) {
		mi, ok := tl.MeasureIndexAt(cur)
		if !ok {
			return timeline.ErrNoMeasure
		}
		m := tl.Measures[mi]
		pieceEnd := off
		if m.End().Less(pieceEnd) {
			pieceEnd = m.End()
		}
		var chord []model.Note
		for _, n := range group {
			chord = append(chord, model.NewNote(n.pitch, n.velocity))
		}
		loc, err := tl.PlaceChord(mi, voice, cur.Sub(m.Start), pieceEnd.Sub(cur), chord)
		if err != nil {
			return err
		}
		if havePrev {
			for ni := range chord {
				start, end := prev, loc
				start.NoteIndex = ni
				end.NoteIndex = ni
				if _, err := tl.Spanners.Attach(model.Tie, start, end); err != nil {
					return err
				}
			}
		}
		prev = loc
		havePrev = true
		cur = pieceEnd
	}
	return nil
}
