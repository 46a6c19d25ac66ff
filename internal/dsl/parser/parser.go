// Package parser implements the generic parser-combinator framework
// (C6): small composable functions over a token slice. No library in
// the retrieval pack implements parser combinators in active use, so
// this is hand-written against the standard library, mirroring the
// shape of original_source/kairei-core/src/analyzer/core.rs's
// Parser<I,O> trait as plain Go functions instead of a trait object.
package parser

import "fmt"

// ParseError carries the input position a parser failed at.
type ParseError struct {
	Message string
	Pos     int
}

func (e ParseError) Error() string {
	return fmt.Sprintf("parse error at position %d: %s", e.Pos, e.Message)
}

// Parser consumes zero or more items of I starting at pos and either
// returns the new position plus a value of O, or a ParseError.
type Parser[I, O any] func(input []I, pos int) (int, O, error)

// Tag succeeds consuming exactly one input item when match(item) is
// true, returning that item.
func Tag[I any](name string, match func(I) bool) Parser[I, I] {
	return func(input []I, pos int) (int, I, error) {
		var zero I
		if pos >= len(input) {
			return pos, zero, ParseError{Message: "unexpected end of input, expected " + name, Pos: pos}
		}
		if !match(input[pos]) {
			return pos, zero, ParseError{Message: "expected " + name, Pos: pos}
		}
		return pos + 1, input[pos], nil
	}
}

// Map transforms a successful parse's value.
func Map[I, A, B any](p Parser[I, A], f func(A) B) Parser[I, B] {
	return func(input []I, pos int) (int, B, error) {
		newPos, v, err := p(input, pos)
		if err != nil {
			var zero B
			return pos, zero, err
		}
		return newPos, f(v), nil
	}
}

// Alt tries each parser in order, returning the first success. If all
// fail, it returns the error from the parser that consumed the most
// input before failing (a common heuristic for the most relevant
// diagnostic).
func Alt[I, O any](parsers ...Parser[I, O]) Parser[I, O] {
	return func(input []I, pos int) (int, O, error) {
		var zero O
		var best error
		bestPos := -1
		for _, p := range parsers {
			newPos, v, err := p(input, pos)
			if err == nil {
				return newPos, v, nil
			}
			if pe, ok := err.(ParseError); ok && pe.Pos > bestPos {
				bestPos = pe.Pos
				best = err
			} else if best == nil {
				best = err
			}
		}
		if best == nil {
			best = ParseError{Message: "no alternative matched", Pos: pos}
		}
		return pos, zero, best
	}
}

// Preceded runs before, discards its value, then runs p and returns
// p's value.
func Preceded[I, A, B any](before Parser[I, A], p Parser[I, B]) Parser[I, B] {
	return func(input []I, pos int) (int, B, error) {
		var zero B
		newPos, _, err := before(input, pos)
		if err != nil {
			return pos, zero, err
		}
		return p(input, newPos)
	}
}

// Terminated runs p, discards what follows (closing), and returns p's
// value.
func Terminated[I, A, B any](p Parser[I, A], closing Parser[I, B]) Parser[I, A] {
	return func(input []I, pos int) (int, A, error) {
		var zero A
		newPos, v, err := p(input, pos)
		if err != nil {
			return pos, zero, err
		}
		newPos2, _, err := closing(input, newPos)
		if err != nil {
			return pos, zero, err
		}
		return newPos2, v, nil
	}
}

// Delimited runs open, then p, then closeP, returning only p's value.
func Delimited[I, A, B, C any](open Parser[I, A], p Parser[I, B], closeP Parser[I, C]) Parser[I, B] {
	return Preceded(open, Terminated(p, closeP))
}

// Many0 runs p zero or more times until it fails, returning every
// successful value. Never itself fails.
func Many0[I, O any](p Parser[I, O]) Parser[I, []O] {
	return func(input []I, pos int) (int, []O, error) {
		var out []O
		cur := pos
		for {
			newPos, v, err := p(input, cur)
			if err != nil {
				return cur, out, nil
			}
			if newPos == cur {
				// A zero-width match would loop forever; stop here.
				return cur, out, nil
			}
			out = append(out, v)
			cur = newPos
		}
	}
}

// Many1 requires at least one successful match of p.
func Many1[I, O any](p Parser[I, O]) Parser[I, []O] {
	return func(input []I, pos int) (int, []O, error) {
		newPos, first, err := p(input, pos)
		if err != nil {
			return pos, nil, err
		}
		restPos, rest, _ := Many0(p)(input, newPos)
		out := append([]O{first}, rest...)
		return restPos, out, nil
	}
}

// Opt always succeeds: it returns p's value and true if p matched, or
// the zero value and false (consuming no input) if it didn't.
func Opt[I, O any](p Parser[I, O]) Parser[I, struct {
	Value O
	Found bool
}] {
	type result = struct {
		Value O
		Found bool
	}
	return func(input []I, pos int) (int, result, error) {
		newPos, v, err := p(input, pos)
		if err != nil {
			return pos, result{Found: false}, nil
		}
		return newPos, result{Value: v, Found: true}, nil
	}
}

// SepBy parses zero or more occurrences of p separated by sep,
// returning the list of p's values.
func SepBy[I, O, S any](p Parser[I, O], sep Parser[I, S]) Parser[I, []O] {
	return func(input []I, pos int) (int, []O, error) {
		newPos, first, err := p(input, pos)
		if err != nil {
			return pos, nil, nil
		}
		out := []O{first}
		cur := newPos
		for {
			afterSep, _, err := sep(input, cur)
			if err != nil {
				return cur, out, nil
			}
			afterItem, v, err := p(input, afterSep)
			if err != nil {
				return cur, out, nil
			}
			out = append(out, v)
			cur = afterItem
		}
	}
}

// Seq2 runs two parsers in sequence and pairs their values.
func Seq2[I, A, B any](a Parser[I, A], b Parser[I, B]) Parser[I, struct {
	First  A
	Second B
}] {
	type result = struct {
		First  A
		Second B
	}
	return func(input []I, pos int) (int, result, error) {
		var zero result
		pos1, av, err := a(input, pos)
		if err != nil {
			return pos, zero, err
		}
		pos2, bv, err := b(input, pos1)
		if err != nil {
			return pos, zero, err
		}
		return pos2, result{First: av, Second: bv}, nil
	}
}
