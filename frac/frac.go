// Package frac implements exact rational positions and durations in
// whole-note units. The timing path never touches floating point; ticks
// are produced by one integer division at the edge.
package frac

import (
	"errors"
	"fmt"

	"github.com/jsphweid/tactus/constants"
)

// ErrOverflow indicates that a reduced denominator exceeded MaxDen.
// It corresponds to a degenerate tuplet nesting the engine does not
// support; edits that produce it are rejected.
var ErrOverflow = errors.New("fraction denominator overflow")

// MaxDen bounds reduced denominators. 1/128 notes with four dots
// combined with 3-, 5-, 7- and 11-tuplets stay well inside this.
const MaxDen = 1 << 21

// Frac is a position or duration in whole-note units, kept in lowest
// terms with a positive denominator.
type Frac struct {
	Num int64
	Den int64
}

func gcd(a, b int64) int64 {
	if a < 0 {
		a = -a
	}
	if b < 0 {
		b = -b
	}
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// New returns num/den reduced to lowest terms. den must be nonzero.
func New(num, den int64) Frac {
	if den == 0 {
		panic("frac: zero denominator")
	}
	if den < 0 {
		num, den = -num, -den
	}
	if num == 0 {
		return Frac{0, 1}
	}
	g := gcd(num, den)
	return Frac{num / g, den / g}
}

func Zero() Frac {
	return Frac{0, 1}
}

// norm maps the uninitialized zero value {0, 0} to 0/1 so it behaves as
// zero everywhere instead of poisoning arithmetic with a zero
// denominator.
func (f Frac) norm() Frac {
	if f.Den == 0 {
		f.Den = 1
	}
	return f
}

func (f Frac) Add(o Frac) Frac {
	f, o = f.norm(), o.norm()
	return New(f.Num*o.Den+o.Num*f.Den, f.Den*o.Den)
}

func (f Frac) Sub(o Frac) Frac {
	f, o = f.norm(), o.norm()
	return New(f.Num*o.Den-o.Num*f.Den, f.Den*o.Den)
}

func (f Frac) Mul(o Frac) Frac {
	f, o = f.norm(), o.norm()
	return New(f.Num*o.Num, f.Den*o.Den)
}

func (f Frac) MulInt(n int64) Frac {
	f = f.norm()
	return New(f.Num*n, f.Den)
}

func (f Frac) Cmp(o Frac) int {
	f, o = f.norm(), o.norm()
	l := f.Num * o.Den
	r := o.Num * f.Den
	switch {
	case l < r:
		return -1
	case l > r:
		return 1
	}
	return 0
}

func (f Frac) Less(o Frac) bool {
	return f.Cmp(o) < 0
}

func (f Frac) LessEq(o Frac) bool {
	return f.Cmp(o) <= 0
}

func (f Frac) Equal(o Frac) bool {
	return f.Cmp(o) == 0
}

func (f Frac) IsZero() bool {
	return f.Num == 0
}

func (f Frac) Positive() bool {
	return f.Num > 0
}

func (f Frac) Negative() bool {
	return f.Num < 0
}

// Check reports ErrOverflow when the reduced denominator left the
// supported range.
func (f Frac) Check() error {
	if f.norm().Den > MaxDen {
		return ErrOverflow
	}
	return nil
}

// Ticks converts to integer ticks. Positions that do not land on a tick
// boundary truncate toward zero; this is the only rounding point.
func (f Frac) Ticks() int64 {
	f = f.norm()
	return f.Num * constants.TicksPerWhole / f.Den
}

// FromTicks converts an integer tick count to an exact position.
func FromTicks(t int64) Frac {
	return New(t, constants.TicksPerWhole)
}

func (f Frac) String() string {
	f = f.norm()
	return fmt.Sprintf("%d/%d", f.Num, f.Den)
}
