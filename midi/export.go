package midi

import (
	"errors"
	"sort"

	"github.com/jsphweid/tactus/constants"
	"github.com/jsphweid/tactus/playback"
	"github.com/jsphweid/tactus/repeats"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

var ErrEmptyRange = errors.New("midi: nothing to export in range")

type timedMessage struct {
	tick int64
	// offs sort before ons at the same tick so retriggered notes survive
	off bool
	msg smf.Message
}

func closeTrack(msgs []timedMessage) smf.Track {
	sort.SliceStable(msgs, func(i, j int) bool {
		if msgs[i].tick != msgs[j].tick {
			return msgs[i].tick < msgs[j].tick
		}
		return msgs[i].off && !msgs[j].off
	})
	var track smf.Track
	var last int64
	for _, tm := range msgs {
		track = append(track, smf.Event{
			Delta:   uint32(tm.tick - last),
			Message: tm.msg,
		})
		last = tm.tick
	}
	track.Close(0)
	return track
}

// Export renders the played timeline as a format 1 SMF: a meta track
// with the tempo events in played-tick positions, then one track per
// playback track. Repeated sections come out written through.
func Export(m *playback.Model, list *repeats.List, tm repeats.TempoMap) *smf.SMF {
	res := smf.NewSMF1()
	res.TimeFormat = smf.MetricTicks(constants.Division)

	var meta []timedMessage
	for _, ev := range tm.Events {
		bpm := 60e6 / float64(ev.MicrosPerQuarter)
		meta = append(meta, timedMessage{
			tick: list.Tick2Utick(ev.Tick),
			msg:  smf.MetaTempo(bpm),
		})
	}
	if len(meta) == 0 {
		meta = append(meta, timedMessage{msg: smf.MetaTempo(60e6 / float64(constants.DefaultTempoMicros))})
	}
	res.Add(closeTrack(meta))

	for _, tr := range m.Tracks() {
		var msgs []timedMessage
		for _, ev := range m.ResolveTrackEvents(tr.ID) {
			msgs = append(msgs, timedMessage{
				tick: ev.OnUtick,
				msg:  smf.Message(midi.NoteOn(0, ev.Pitch, ev.Velocity)),
			})
			msgs = append(msgs, timedMessage{
				tick: ev.OffUtick,
				off:  true,
				msg:  smf.Message(midi.NoteOff(0, ev.Pitch)),
			})
		}
		res.Add(closeTrack(msgs))
	}
	return res
}

// Excerpt renders only the [fromUtick, toUtick) slice of played time,
// shifted so the excerpt starts at zero. Events are clipped to the
// range; notes sounding across an edge are truncated at it.
func Excerpt(m *playback.Model, list *repeats.List, tm repeats.TempoMap, fromUtick, toUtick int64) (*smf.SMF, error) {
	if fromUtick < 0 {
		fromUtick = 0
	}
	if toUtick <= fromUtick {
		return nil, ErrEmptyRange
	}

	res := smf.NewSMF1()
	res.TimeFormat = smf.MetricTicks(constants.Division)

	bpm := tm.TempoAt(list.Utick2Tick(fromUtick))
	res.Add(closeTrack([]timedMessage{{msg: smf.MetaTempo(bpm)}}))

	any := false
	for _, tr := range m.Tracks() {
		var msgs []timedMessage
		for _, ev := range m.ResolveTrackEvents(tr.ID) {
			on, off := ev.OnUtick, ev.OffUtick
			if off <= fromUtick || on >= toUtick {
				continue
			}
			if on < fromUtick {
				on = fromUtick
			}
			if off > toUtick {
				off = toUtick
			}
			any = true
			msgs = append(msgs, timedMessage{
				tick: on - fromUtick,
				msg:  smf.Message(midi.NoteOn(0, ev.Pitch, ev.Velocity)),
			})
			msgs = append(msgs, timedMessage{
				tick: off - fromUtick,
				off:  true,
				msg:  smf.Message(midi.NoteOff(0, ev.Pitch)),
			})
		}
		res.Add(closeTrack(msgs))
	}
	if !any {
		return nil, ErrEmptyRange
	}
	return res, nil
}
