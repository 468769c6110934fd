// Package spanner maintains ties and slurs as relative-offset endpoint
// pairs that survive measure insertion, splitting and deletion.
package spanner

import (
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/jsphweid/tactus/frac"
	"github.com/jsphweid/tactus/model"
)

// ErrInvalidEndpoints indicates a malformed attach request: both
// endpoints on the same note, or an endpoint already hosting a spanner
// of the same kind.
var ErrInvalidEndpoints = errors.New("invalid spanner endpoints")

// ErrInvariantViolation indicates that relocation produced endpoints
// that are no longer mutual inverses. It is an edit-algorithm bug: the
// surrounding edit must roll back.
var ErrInvariantViolation = errors.New("spanner endpoints are not mutual inverses")

// Registry owns every spanner of one score.
type Registry struct {
	spans map[string]*model.Spanner
}

func NewRegistry() *Registry {
	return &Registry{spans: make(map[string]*model.Spanner)}
}

func (r *Registry) Copy() *Registry {
	out := NewRegistry()
	for eid, s := range r.spans {
		out.spans[eid] = s.Copy()
	}
	return out
}

// Put rehydrates a stored spanner under its existing eid. The caller is
// expected to Verify afterwards.
func (r *Registry) Put(s model.Spanner) {
	r.spans[s.EID] = s.Copy()
}

func (r *Registry) Get(eid string) (*model.Spanner, bool) {
	s, ok := r.spans[eid]
	return s, ok
}

func (r *Registry) Len() int {
	return len(r.spans)
}

// All returns the spanners ordered by eid so walks are deterministic.
func (r *Registry) All() []*model.Spanner {
	eids := make([]string, 0, len(r.spans))
	for eid := range r.spans {
		eids = append(eids, eid)
	}
	sort.Strings(eids)
	out := make([]*model.Spanner, 0, len(eids))
	for _, eid := range eids {
		out = append(out, r.spans[eid])
	}
	return out
}

// StartingAt returns the spanner of the given kind whose start endpoint
// sits at loc, if any.
func (r *Registry) StartingAt(kind model.SpannerKind, loc model.Location) (*model.Spanner, bool) {
	for _, s := range r.All() {
		if s.Kind == kind && s.Start.Loc.Equal(loc) {
			return s, true
		}
	}
	return nil, false
}

// EndingAt is the end-side counterpart of StartingAt.
func (r *Registry) EndingAt(kind model.SpannerKind, loc model.Location) (*model.Spanner, bool) {
	for _, s := range r.All() {
		if s.Kind == kind && s.End.Loc.Equal(loc) {
			return s, true
		}
	}
	return nil, false
}

func relativeOf(from, to model.Location) model.Relative {
	return model.Relative{
		MeasureDelta: to.MeasureIndex - from.MeasureIndex,
		OffsetDelta:  to.Offset.Sub(from.Offset),
		NoteDelta:    to.NoteIndex - from.NoteIndex,
	}
}

// Attach creates a spanner between two note locations, computing the
// relative encoding from their absolute coordinates.
func (r *Registry) Attach(kind model.SpannerKind, start, end model.Location) (*model.Spanner, error) {
	if start.Equal(end) {
		return nil, fmt.Errorf("%w: start and end are the same note", ErrInvalidEndpoints)
	}
	if start.VoiceIndex != end.VoiceIndex {
		return nil, fmt.Errorf("%w: endpoints in different voices", ErrInvalidEndpoints)
	}
	if _, ok := r.StartingAt(kind, start); ok {
		return nil, fmt.Errorf("%w: start note already hosts a %v", ErrInvalidEndpoints, kind)
	}
	if _, ok := r.EndingAt(kind, end); ok {
		return nil, fmt.Errorf("%w: end note already hosts a %v", ErrInvalidEndpoints, kind)
	}
	s := &model.Spanner{
		EID:  uuid.New().String(),
		Kind: kind,
		Start: model.Endpoint{
			IsStart: true,
			Loc:     start,
			Rel:     relativeOf(start, end),
		},
		End: model.Endpoint{
			Loc: end,
			Rel: relativeOf(end, start),
		},
	}
	r.spans[s.EID] = s
	return s, nil
}

// Detach removes a spanner. Idempotent.
func (r *Registry) Detach(eid string) {
	delete(r.spans, eid)
}

// Verify checks the mutual-inverse invariant for every spanner.
func (r *Registry) Verify() error {
	for _, s := range r.All() {
		if !s.Start.Decode().Equal(s.End.Loc) || !s.End.Decode().Equal(s.Start.Loc) {
			return fmt.Errorf("%w: %v %s", ErrInvariantViolation, s.Kind, s.EID)
		}
		if s.Start.Loc.VoiceIndex != s.End.Loc.VoiceIndex {
			return fmt.Errorf("%w: %v %s crosses voices", ErrInvariantViolation, s.Kind, s.EID)
		}
	}
	return nil
}

func (r *Registry) reencode(s *model.Spanner) {
	s.Start.Rel = relativeOf(s.Start.Loc, s.End.Loc)
	s.End.Rel = relativeOf(s.End.Loc, s.Start.Loc)
}

// MoveStart relocates the start endpoint of an existing spanner and
// recomputes both relative encodings.
func (r *Registry) MoveStart(eid string, loc model.Location) {
	if s, ok := r.spans[eid]; ok {
		s.Start.Loc = loc
		r.reencode(s)
	}
}

// OnMeasureSplit relocates endpoints after measure idx was split at
// splitOffset (local to the old measure). Endpoints at or past the
// split move into the new measure idx+1; later measures renumber.
func (r *Registry) OnMeasureSplit(idx int, splitOffset frac.Frac) {
	relocate := func(e *model.Endpoint) {
		switch {
		case e.Loc.MeasureIndex > idx:
			e.Loc.MeasureIndex++
		case e.Loc.MeasureIndex == idx && !e.Loc.Offset.Less(splitOffset):
			e.Loc.MeasureIndex++
			e.Loc.Offset = e.Loc.Offset.Sub(splitOffset)
		}
	}
	for _, s := range r.spans {
		relocate(&s.Start)
		relocate(&s.End)
		r.reencode(s)
	}
}

// OnMeasureInsert shifts endpoints after a measure was inserted at
// index afterIdx+1. Spanners crossing the insertion point widen by one
// measure.
func (r *Registry) OnMeasureInsert(afterIdx int) {
	for _, s := range r.spans {
		if s.Start.Loc.MeasureIndex > afterIdx {
			s.Start.Loc.MeasureIndex++
		}
		if s.End.Loc.MeasureIndex > afterIdx {
			s.End.Loc.MeasureIndex++
		}
		r.reencode(s)
	}
}

// OnMeasureDelete removes spanners with an endpoint in the deleted
// measure and renumbers the rest. Returns the removed eids.
func (r *Registry) OnMeasureDelete(idx int) []string {
	var removed []string
	for eid, s := range r.spans {
		if s.Start.Loc.MeasureIndex == idx || s.End.Loc.MeasureIndex == idx {
			removed = append(removed, eid)
		}
	}
	for _, eid := range removed {
		delete(r.spans, eid)
	}
	for _, s := range r.spans {
		if s.Start.Loc.MeasureIndex > idx {
			s.Start.Loc.MeasureIndex--
		}
		if s.End.Loc.MeasureIndex > idx {
			s.End.Loc.MeasureIndex--
		}
		r.reencode(s)
	}
	sort.Strings(removed)
	return removed
}
