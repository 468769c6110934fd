package repeats

// LoopBoundaries is the playback loop range in played-tick space.
type LoopBoundaries struct {
	InTick  int64
	OutTick int64
	Enabled bool
}

// Loop manages the loop range against a repeat list. Boundary updates
// that cross each other reset the other side to a sane default.
type Loop struct {
	list     *List
	b        LoopBoundaries
	onChange func(LoopBoundaries)
}

func NewLoop(list *List) *Loop {
	return &Loop{list: list}
}

// SetOnChange registers the change notification callback. Recompute is
// explicit: the edit-transaction boundary triggers it, not an event
// bus.
func (lp *Loop) SetOnChange(fn func(LoopBoundaries)) {
	lp.onChange = fn
}

func (lp *Loop) Boundaries() LoopBoundaries {
	return lp.b
}

func (lp *Loop) notify() {
	if lp.onChange != nil {
		lp.onChange(lp.b)
	}
}

func (lp *Loop) SetEnabled(enabled bool) {
	if lp.b.Enabled == enabled {
		return
	}
	lp.b.Enabled = enabled
	lp.notify()
}

// AddLoopIn sets the loop start, clamped to end-of-score. If it lands
// at or past the loop end, the end resets to end-of-score.
func (lp *Loop) AddLoopIn(tick int64) {
	if tick < 0 {
		tick = 0
	}
	if end := lp.list.TotalPlayedTicks(); tick > end {
		tick = end
	}
	if tick >= lp.b.OutTick {
		lp.b.OutTick = lp.list.TotalPlayedTicks()
	}
	lp.b.InTick = tick
	lp.notify()
}

// AddLoopOut sets the loop end, clamped to end-of-score. If it lands at
// or before the loop start, the start resets to the beginning.
func (lp *Loop) AddLoopOut(tick int64) {
	if tick <= lp.b.InTick {
		lp.b.InTick = 0
	}
	if end := lp.list.TotalPlayedTicks(); tick > end {
		tick = end
	}
	lp.b.OutTick = tick
	lp.notify()
}
