// Package playback resolves the score into per-track sounding events in
// played-tick space. A tied token chain yields one sustained event.
package playback

import (
	"github.com/google/uuid"
	"github.com/jsphweid/tactus/model"
	"github.com/jsphweid/tactus/repeats"
	"github.com/jsphweid/tactus/timeline"
)

// Event is one sounding note with on/off timing in played ticks.
type Event struct {
	Pitch    uint8
	Velocity uint8
	OnUtick  int64
	OffUtick int64
}

// Track identifies one playable voice of the score.
type Track struct {
	ID         string
	VoiceIndex int
}

// Model resolves playback data against a timeline and its repeat list.
type Model struct {
	tl     *timeline.Timeline
	list   *repeats.List
	tracks []Track
}

func NewModel(tl *timeline.Timeline, list *repeats.List) *Model {
	m := &Model{tl: tl, list: list}
	for vi := 0; vi < tl.NumVoices(); vi++ {
		m.tracks = append(m.tracks, Track{ID: uuid.New().String(), VoiceIndex: vi})
	}
	return m
}

func (m *Model) Tracks() []Track {
	return m.tracks
}

func (m *Model) TrackByID(id string) (Track, bool) {
	for _, tr := range m.tracks {
		if tr.ID == id {
			return tr, true
		}
	}
	return Track{}, false
}

// rawNote is a sustained note in raw-tick space after tie merging.
type rawNote struct {
	pitch    uint8
	velocity uint8
	onRaw    int64
	offRaw   int64
}

// chordAt finds the chord at a spanner endpoint location.
func (m *Model) chordAt(loc model.Location) (model.ChordRest, bool) {
	if loc.MeasureIndex < 0 || loc.MeasureIndex >= len(m.tl.Measures) {
		return model.ChordRest{}, false
	}
	measure := m.tl.Measures[loc.MeasureIndex]
	if loc.VoiceIndex < 0 || loc.VoiceIndex >= len(measure.Voices) {
		return model.ChordRest{}, false
	}
	for _, cr := range measure.Voices[loc.VoiceIndex] {
		if cr.Offset.Equal(loc.Offset) && !cr.IsRest() {
			return cr, true
		}
	}
	return model.ChordRest{}, false
}

// resolveRawNotes walks one voice and merges tie chains: a note that is
// the end of a tie extends the chain's event instead of starting one.
func (m *Model) resolveRawNotes(voiceIndex int) []rawNote {
	var out []rawNote
	for mi, measure := range m.tl.Measures {
		if voiceIndex >= len(measure.Voices) {
			continue
		}
		for _, cr := range measure.Voices[voiceIndex] {
			if cr.IsRest() {
				continue
			}
			for ni, note := range cr.Notes {
				loc := model.Location{
					MeasureIndex: mi,
					VoiceIndex:   voiceIndex,
					Offset:       cr.Offset,
					NoteIndex:    ni,
				}
				if _, tiedIn := m.tl.Spanners.EndingAt(model.Tie, loc); tiedIn {
					// sustained continuation, handled by the chain head
					continue
				}
				on := measure.Start.Add(cr.Offset).Ticks()
				off := m.chainEnd(loc, cr)
				out = append(out, rawNote{
					pitch:    note.Pitch,
					velocity: note.Velocity,
					onRaw:    on,
					offRaw:   off,
				})
			}
		}
	}
	return out
}

// chainEnd follows outgoing ties from a chain head and returns the raw
// off tick of the final chord.
func (m *Model) chainEnd(loc model.Location, cr model.ChordRest) int64 {
	cur := loc
	curCR := cr
	for hops := 0; hops < 1024; hops++ {
		s, ok := m.tl.Spanners.StartingAt(model.Tie, cur)
		if !ok {
			break
		}
		next := s.End.Loc
		nextCR, ok := m.chordAt(next)
		if !ok {
			break
		}
		cur = next
		curCR = nextCR
	}
	return m.tl.Measures[cur.MeasureIndex].Start.Add(curCR.End()).Ticks()
}

// ResolveTrackEvents returns the track's events in played-tick space.
// Material inside a repeated section sounds once per repetition.
// Unknown track ids degrade to an empty list.
func (m *Model) ResolveTrackEvents(trackID string) []Event {
	tr, ok := m.TrackByID(trackID)
	if !ok {
		return nil
	}
	raw := m.resolveRawNotes(tr.VoiceIndex)
	var out []Event
	for _, seg := range m.list.Segments() {
		for _, n := range raw {
			if n.onRaw < seg.StartRaw || n.onRaw >= seg.EndRaw {
				continue
			}
			off := n.offRaw
			if off > seg.EndRaw {
				off = seg.EndRaw
			}
			out = append(out, Event{
				Pitch:    n.pitch,
				Velocity: n.velocity,
				OnUtick:  seg.UOffset + n.onRaw - seg.StartRaw,
				OffUtick: seg.UOffset + off - seg.StartRaw,
			})
		}
	}
	return out
}
