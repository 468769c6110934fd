// Package repeats expands the raw measure timeline into the played
// timeline and maps between raw ticks, played ticks and seconds.
package repeats

import (
	"sort"

	"github.com/jsphweid/tactus/timeline"
)

// Segment is one contiguous excerpt of the raw timeline in play order.
// Raw ranges of different segments may overlap (material played twice);
// played-tick ranges never do.
type Segment struct {
	StartRaw int64
	EndRaw   int64
	UOffset  int64 // played tick at which this excerpt begins
}

func (s Segment) Len() int64 {
	return s.EndRaw - s.StartRaw
}

func (s Segment) UEnd() int64 {
	return s.UOffset + s.Len()
}

// List is the rebuildable play-segment cache over a timeline. It is
// derived state: rebuilt lazily after MarkDirty, never persisted.
type List struct {
	tl     *timeline.Timeline
	expand bool
	built  bool
	segs   []Segment
}

func New(tl *timeline.Timeline) *List {
	return &List{tl: tl, expand: true}
}

// SetExpandRepeats switches between repeat expansion and the identity
// mapping.
func (l *List) SetExpandRepeats(expand bool) {
	if l.expand != expand {
		l.expand = expand
		l.built = false
	}
}

func (l *List) ExpandRepeats() bool {
	return l.expand
}

// MarkDirty invalidates the cache after the raw timeline changed.
func (l *List) MarkDirty() {
	l.built = false
}

func (l *List) ensureBuilt() {
	if !l.built {
		l.Rebuild()
	}
}

// playOrder simulates playback and returns the measure indices in the
// order they sound. Repeats replay from the last start mark; a jump
// mark is taken once. Nested repeats are not expanded (the inner marks
// replay literally), matching the raw marks the loader produces.
func (l *List) playOrder() []int {
	ms := l.tl.Measures
	var order []int
	start := 0
	// passes is keyed by the end-mark measure so the count survives the
	// measures in between on each replay
	passes := make(map[int]int)
	jumped := make(map[int]bool)
	for i := 0; i < len(ms) && len(order) < len(ms)*64; {
		m := ms[i]
		if m.Repeat.Start {
			start = i
		}
		order = append(order, i)
		if m.Repeat.End {
			passes[i]++
			if passes[i] < m.Repeat.PlayCount() {
				i = start
				continue
			}
		}
		if m.Repeat.JumpTo >= 0 && m.Repeat.JumpTo < len(ms) && !jumped[i] {
			jumped[i] = true
			i = m.Repeat.JumpTo
			continue
		}
		i++
	}
	return order
}

// Rebuild walks the raw timeline honoring repeat/jump marks and emits
// the play segments. Idempotent for unchanged inputs.
func (l *List) Rebuild() {
	l.segs = nil
	l.built = true
	end := l.tl.EndTick()
	if end <= 0 {
		return
	}
	if !l.expand {
		l.segs = []Segment{{StartRaw: 0, EndRaw: end}}
		return
	}
	var utick int64
	for _, mi := range l.playOrder() {
		m := l.tl.Measures[mi]
		mStart := m.Start.Ticks()
		mEnd := m.End().Ticks()
		if n := len(l.segs); n > 0 && l.segs[n-1].EndRaw == mStart {
			l.segs[n-1].EndRaw = mEnd
		} else {
			l.segs = append(l.segs, Segment{StartRaw: mStart, EndRaw: mEnd, UOffset: utick})
		}
		utick += mEnd - mStart
	}
}

// Segments returns the play segments in play order.
func (l *List) Segments() []Segment {
	l.ensureBuilt()
	return l.segs
}

// Tick2Utick maps a raw tick to its played tick, choosing the first
// repetition when the material is played more than once.
func (l *List) Tick2Utick(rawTick int64) int64 {
	l.ensureBuilt()
	for _, s := range l.segs {
		if rawTick >= s.StartRaw && rawTick < s.EndRaw {
			return s.UOffset + rawTick - s.StartRaw
		}
	}
	return l.TotalPlayedTicks()
}

// Utick2Tick maps a played tick back to its raw tick. Unambiguous:
// played ranges are disjoint and increasing.
func (l *List) Utick2Tick(utick int64) int64 {
	l.ensureBuilt()
	if len(l.segs) == 0 || utick < 0 {
		return 0
	}
	i := sort.Search(len(l.segs), func(i int) bool {
		return l.segs[i].UEnd() > utick
	})
	if i == len(l.segs) {
		return l.segs[len(l.segs)-1].EndRaw
	}
	s := l.segs[i]
	if utick < s.UOffset {
		return s.StartRaw
	}
	return s.StartRaw + utick - s.UOffset
}

// TotalPlayedTicks is the played tick of the end of the last segment.
func (l *List) TotalPlayedTicks() int64 {
	l.ensureBuilt()
	if len(l.segs) == 0 {
		return 0
	}
	return l.segs[len(l.segs)-1].UEnd()
}
