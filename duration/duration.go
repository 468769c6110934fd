// Package duration turns arbitrary rational durations into renderable
// dotted note/rest tokens.
package duration

import (
	"errors"
	"fmt"

	"github.com/jsphweid/tactus/frac"
)

// ErrUnrepresentable indicates a duration that no finite sequence of
// dotted tokens can express; the caller must insert a tuplet or reject
// the edit.
var ErrUnrepresentable = errors.New("duration not expressible as dotted tokens")

// Base is a plain (undotted) note value, Whole down to 1/128.
type Base int

const (
	Whole Base = iota
	Half
	Quarter
	Eighth
	Sixteenth
	ThirtySecond
	SixtyFourth
	HundredTwentyEighth
)

var baseNames = []string{
	"whole", "half", "quarter", "eighth",
	"16th", "32nd", "64th", "128th",
}

func (b Base) String() string {
	if b < Whole || b > HundredTwentyEighth {
		return fmt.Sprintf("base(%d)", int(b))
	}
	return baseNames[b]
}

// Frac is the undotted value in whole-note units.
func (b Base) Frac() frac.Frac {
	return frac.New(1, int64(1)<<uint(b))
}

// Token is a base value plus dot count. Each dot adds half of the
// previous increment.
type Token struct {
	Base Base
	Dots int
}

// Value is base * (2 - 2^-dots).
func (t Token) Value() frac.Frac {
	num := int64(1)<<uint(t.Dots+1) - 1
	den := int64(1) << uint(int(t.Base)+t.Dots)
	return frac.New(num, den)
}

func (t Token) String() string {
	s := t.Base.String()
	for i := 0; i < t.Dots; i++ {
		s += "."
	}
	return s
}

// Sum adds the values of a token sequence.
func Sum(tokens []Token) frac.Frac {
	total := frac.Zero()
	for _, tok := range tokens {
		total = total.Add(tok.Value())
	}
	return total
}

// largestBase returns the longest undotted value fitting under cap.
func largestBase(cap frac.Frac) (Token, bool) {
	for b := Whole; b <= HundredTwentyEighth; b++ {
		if b.Frac().LessEq(cap) {
			return Token{Base: b}, true
		}
	}
	return Token{}, false
}

// largestFit returns the longest token with at most one dot fitting
// under cap.
func largestFit(cap frac.Frac) (Token, bool) {
	tok, ok := largestBase(cap)
	if !ok {
		return Token{}, false
	}
	if dotted := (Token{Base: tok.Base, Dots: 1}); dotted.Value().LessEq(cap) {
		tok = dotted
	}
	return tok, true
}

// Decompose expresses d as dotted tokens, each no longer than
// maxSingle, summing to d exactly. Emitted tokens carry at most one
// dot: a 7/16 reads as quarter tied to dotted eighth, not as a
// double-dotted quarter. The expansion is binary (largest undotted
// value first), then adjacent halves merge into single-dotted tokens
// from the short end, which yields the fewest tokens the one-dot
// system allows. tied is true when the result is more than one token,
// in which case consecutive tokens form a tied chain.
func Decompose(d, maxSingle frac.Frac) (tokens []Token, tied bool, err error) {
	if err := d.Check(); err != nil {
		return nil, false, err
	}
	if !d.Positive() || !maxSingle.Positive() {
		return nil, false, ErrUnrepresentable
	}
	var raw []Token
	rem := d
	for rem.Positive() {
		var tok Token
		var ok bool
		if maxSingle.Less(rem) {
			// the chain is forced anyway, so take the biggest piece
			// the cap admits, dot included
			tok, ok = largestFit(maxSingle)
		} else {
			tok, ok = largestBase(rem)
		}
		if !ok {
			// remainder shorter than a 128th: no finite dotted sum
			return nil, false, ErrUnrepresentable
		}
		raw = append(raw, tok)
		rem = rem.Sub(tok.Value())
		if err := rem.Check(); err != nil {
			return nil, false, err
		}
	}
	for i := len(raw) - 1; i >= 0; i-- {
		if i > 0 && raw[i].Dots == 0 && raw[i-1].Dots == 0 &&
			raw[i-1].Base+1 == raw[i].Base {
			if dotted := (Token{Base: raw[i-1].Base, Dots: 1}); dotted.Value().LessEq(maxSingle) {
				tokens = append(tokens, dotted)
				i--
				continue
			}
		}
		tokens = append(tokens, raw[i])
	}
	for i, j := 0, len(tokens)-1; i < j; i, j = i+1, j-1 {
		tokens[i], tokens[j] = tokens[j], tokens[i]
	}
	return tokens, len(tokens) > 1, nil
}

// Split is the result of decomposing a duration across a boundary. The
// last Pre token is tied to the first Post token.
type Split struct {
	Pre  []Token
	Post []Token
}

// SplitAt decomposes a duration that must not produce a token crossing
// the boundary at pre (0 < pre < d). Each side is decomposed
// independently; the tokens adjacent to the boundary are a tie.
func SplitAt(d, pre frac.Frac) (Split, error) {
	if !pre.Positive() || !pre.Less(d) {
		return Split{}, ErrUnrepresentable
	}
	post := d.Sub(pre)
	preTokens, _, err := Decompose(pre, pre)
	if err != nil {
		return Split{}, err
	}
	postTokens, _, err := Decompose(post, post)
	if err != nil {
		return Split{}, err
	}
	return Split{Pre: preTokens, Post: postTokens}, nil
}
