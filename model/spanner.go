package model

import "github.com/jsphweid/tactus/frac"

type SpannerKind int

const (
	Tie SpannerKind = iota
	Slur
)

func (k SpannerKind) String() string {
	switch k {
	case Tie:
		return "tie"
	case Slur:
		return "slur"
	}
	return "spanner"
}

// Location addresses a note through the timeline: measure index, voice
// index, local offset of the owning chord, note index within the chord.
// Index-based so structural edits relocate by renumbering, never by
// chasing pointers.
type Location struct {
	MeasureIndex int
	VoiceIndex   int
	Offset       frac.Frac
	NoteIndex    int
}

func (l Location) Equal(o Location) bool {
	return l.MeasureIndex == o.MeasureIndex &&
		l.VoiceIndex == o.VoiceIndex &&
		l.Offset.Equal(o.Offset) &&
		l.NoteIndex == o.NoteIndex
}

// Relative encodes the partner endpoint's location relative to this
// one: signed measure count, local-offset delta, note-index delta.
type Relative struct {
	MeasureDelta int
	OffsetDelta  frac.Frac
	NoteDelta    int
}

// Endpoint is one side of a spanner. Loc is where it currently lives;
// Rel points at the partner. The two endpoints of a spanner must stay
// mutual inverses of this encoding.
type Endpoint struct {
	IsStart bool
	Loc     Location
	Rel     Relative
}

// Decode resolves the partner's location from this endpoint.
func (e Endpoint) Decode() Location {
	return Location{
		MeasureIndex: e.Loc.MeasureIndex + e.Rel.MeasureDelta,
		VoiceIndex:   e.Loc.VoiceIndex,
		Offset:       e.Loc.Offset.Add(e.Rel.OffsetDelta),
		NoteIndex:    e.Loc.NoteIndex + e.Rel.NoteDelta,
	}
}

// Spanner links two notes across arbitrary structural distance.
type Spanner struct {
	EID   string
	Kind  SpannerKind
	Start Endpoint
	End   Endpoint
}

func (s *Spanner) Copy() *Spanner {
	out := *s
	return &out
}
