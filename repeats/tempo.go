package repeats

import (
	"sort"

	"github.com/jsphweid/tactus/constants"
)

// TempoEvent is a tempo change at a raw tick.
type TempoEvent struct {
	Tick             int64
	MicrosPerQuarter int64
}

// TempoMap is the externally supplied monotonic tempo function plus a
// global multiplier applied uniformly.
type TempoMap struct {
	Events     []TempoEvent
	Multiplier float64
}

func NewTempoMap(events []TempoEvent) TempoMap {
	sort.Slice(events, func(i, j int) bool {
		return events[i].Tick < events[j].Tick
	})
	return TempoMap{Events: events, Multiplier: 1.0}
}

func (tm TempoMap) multiplier() float64 {
	if tm.Multiplier <= 0 {
		return 1.0
	}
	return tm.Multiplier
}

// TempoAt returns beats per minute at a raw tick, multiplier applied.
func (tm TempoMap) TempoAt(rawTick int64) float64 {
	micros := int64(constants.DefaultTempoMicros)
	for _, e := range tm.Events {
		if e.Tick > rawTick {
			break
		}
		micros = e.MicrosPerQuarter
	}
	return 60e6 / float64(micros) * tm.multiplier()
}

// rawRangeSecs integrates the tempo map over a raw tick range.
func (tm TempoMap) rawRangeSecs(from, to int64) float64 {
	if to <= from {
		return 0
	}
	secs := 0.0
	at := from
	micros := int64(constants.DefaultTempoMicros)
	for _, e := range tm.Events {
		if e.Tick <= from {
			micros = e.MicrosPerQuarter
			continue
		}
		if e.Tick >= to {
			break
		}
		secs += float64(e.Tick-at) * float64(micros) / 1e6 / constants.Division
		at = e.Tick
		micros = e.MicrosPerQuarter
	}
	secs += float64(to-at) * float64(micros) / 1e6 / constants.Division
	return secs / tm.multiplier()
}

// UtickToSecs converts a played tick to seconds under the tempo map.
func (l *List) UtickToSecs(utick int64, tm TempoMap) float64 {
	l.ensureBuilt()
	secs := 0.0
	for _, s := range l.segs {
		if utick <= s.UOffset {
			break
		}
		end := s.EndRaw
		if utick < s.UEnd() {
			end = s.StartRaw + utick - s.UOffset
		}
		secs += tm.rawRangeSecs(s.StartRaw, end)
		if utick < s.UEnd() {
			break
		}
	}
	return secs
}

// SecsToUtick is the inverse of UtickToSecs.
func (l *List) SecsToUtick(secs float64, tm TempoMap) int64 {
	l.ensureBuilt()
	if secs <= 0 {
		return 0
	}
	elapsed := 0.0
	for _, s := range l.segs {
		segSecs := tm.rawRangeSecs(s.StartRaw, s.EndRaw)
		if elapsed+segSecs < secs {
			elapsed += segSecs
			continue
		}
		// scan ticks within the segment tempo span by tempo span
		lo, hi := int64(0), s.Len()
		for lo < hi {
			mid := (lo + hi) / 2
			if elapsed+tm.rawRangeSecs(s.StartRaw, s.StartRaw+mid) < secs {
				lo = mid + 1
			} else {
				hi = mid
			}
		}
		return s.UOffset + lo
	}
	return l.TotalPlayedTicks()
}

// PlayedTimeSeconds is the played time of a raw tick's first
// occurrence.
func (l *List) PlayedTimeSeconds(rawTick int64, tm TempoMap) float64 {
	return l.UtickToSecs(l.Tick2Utick(rawTick), tm)
}

// RawTickForTime locates the raw tick sounding at a played time.
func (l *List) RawTickForTime(secs float64, tm TempoMap) int64 {
	return l.Utick2Tick(l.SecsToUtick(secs, tm))
}

// TotalPlayTime is the full played duration plus the trailing silence
// reserved for decay.
func (l *List) TotalPlayTime(tm TempoMap) float64 {
	return l.UtickToSecs(l.TotalPlayedTicks(), tm) + constants.PlaybackTailSecs
}
