package model

import (
	"github.com/google/uuid"
	"github.com/jsphweid/tactus/duration"
	"github.com/jsphweid/tactus/frac"
)

// Note is a single pitch inside a chord. EID is the stable element
// identifier used to resolve spanner partners at load time.
type Note struct {
	EID      string
	Pitch    uint8
	Velocity uint8
}

func NewNote(pitch, velocity uint8) Note {
	return Note{EID: uuid.New().String(), Pitch: pitch, Velocity: velocity}
}

// ChordRest is one timed item in a voice: a chord when Notes is
// non-empty, otherwise a rest. Tokens holds one or more duration
// tokens; more than one means an internally tied chain.
type ChordRest struct {
	Offset frac.Frac // local offset within the owning measure
	Tokens []duration.Token
	Notes  []Note
}

func (cr ChordRest) IsRest() bool {
	return len(cr.Notes) == 0
}

func (cr ChordRest) Dur() frac.Frac {
	return duration.Sum(cr.Tokens)
}

func (cr ChordRest) End() frac.Frac {
	return cr.Offset.Add(cr.Dur())
}

func (cr ChordRest) Copy() ChordRest {
	out := cr
	out.Tokens = append([]duration.Token(nil), cr.Tokens...)
	out.Notes = append([]Note(nil), cr.Notes...)
	return out
}

// Voice is an ordered, gap-free item sequence; rests pad any gaps so
// the items always sum to the measure length.
type Voice []ChordRest

func (v Voice) Copy() Voice {
	out := make(Voice, len(v))
	for i, cr := range v {
		out[i] = cr.Copy()
	}
	return out
}

type TimeSig struct {
	Num int
	Den int
}

// Len is the nominal measure length under this signature.
func (ts TimeSig) Len() frac.Frac {
	return frac.New(int64(ts.Num), int64(ts.Den))
}

type AnnotationKind int

const (
	KindTimeSig AnnotationKind = iota
	KindBarLine
	KindText
)

// Annotation is a non-sounding item owned by a measure, positioned by
// local offset.
type Annotation struct {
	Kind   AnnotationKind
	Offset frac.Frac
	Sig    TimeSig // KindTimeSig only
	Text   string  // KindText only
}

// RepeatMarks is the repeat/jump structure attached to a measure. The
// repeat list only reads these predicates.
type RepeatMarks struct {
	Start  bool
	End    bool
	Count  int // plays of the repeated section; 0 means the usual 2
	JumpTo int // target measure index, taken once; -1 for none
}

func (r RepeatMarks) PlayCount() int {
	if r.Count < 2 {
		return 2
	}
	return r.Count
}

// Measure has an absolute start position, a nominal length from the
// active time signature and an optional override length for irregular
// measures (pickups, split remainders).
type Measure struct {
	Start    frac.Frac
	Nominal  frac.Frac
	Override frac.Frac // zero when regular
	Sig      TimeSig
	Voices   []Voice
	Annots   []Annotation
	Repeat   RepeatMarks
}

func (m *Measure) Len() frac.Frac {
	if m.Override.Positive() {
		return m.Override
	}
	return m.Nominal
}

func (m *Measure) End() frac.Frac {
	return m.Start.Add(m.Len())
}

func (m *Measure) Irregular() bool {
	return m.Override.Positive() && !m.Override.Equal(m.Nominal)
}

func (m *Measure) Copy() *Measure {
	out := *m
	out.Voices = make([]Voice, len(m.Voices))
	for i, v := range m.Voices {
		out.Voices[i] = v.Copy()
	}
	out.Annots = append([]Annotation(nil), m.Annots...)
	return &out
}

// MeasureBeat locates a raw tick for UI position display.
type MeasureBeat struct {
	MeasureIndex    int
	BeatIndex       int
	Beat            float64 // BeatIndex plus the fractional part
	MaxMeasureIndex int
	MaxBeatIndex    int
}

// ScoreMetadata is what the metadata store knows about a score file.
type ScoreMetadata struct {
	Title    string `json:"title"`
	Composer string `json:"composer"`
}
