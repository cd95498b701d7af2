package shorten

import (
	"errors"
	"fmt"
	"math"
	"sync"
)

// ErrInvalidInput is returned when the input contains a character outside the alphabet.
var ErrInvalidInput = errors.New("string is not valid")

var defaultReducer = sync.OnceValue(func() *Reducer {
	return &Reducer{table: DefaultTable()}
})

// Reducer shortens strings using a fixed substitution table.
// It is read-only after construction and safe for concurrent use.
type Reducer struct {
	table Table
}

// Step describes a single collapse chosen by the reducer.
type Step struct {
	// Position is the index of the right symbol of the collapsed pair.
	Position int    `json:"position" yaml:"position"`
	Pair     string `json:"pair" yaml:"pair"`
	Into     string `json:"into" yaml:"into"`
	Result   string `json:"result" yaml:"result"`
	Score    int    `json:"score" yaml:"score"`
}

// Result holds the outcome of a traced reduction.
type Result struct {
	Input  string  `json:"input" yaml:"input"`
	Output string  `json:"output" yaml:"output"`
	Steps  []*Step `json:"steps,omitempty" yaml:"steps,omitempty"`
}

// New creates a reducer for the given table.
func New(t Table) (*Reducer, error) {
	if err := t.check(); err != nil {
		return nil, err
	}
	own := make(Table, len(t))
	for k, v := range t {
		own[k] = v
	}
	return &Reducer{table: own}, nil
}

// Default returns the shared reducer built on the canonical table.
func Default() *Reducer {
	return defaultReducer()
}

// Shorten reduces input with the default reducer.
func Shorten(input string) (string, error) {
	return Default().Shorten(input)
}

// Table returns a copy of the reducer's substitution table.
func (r *Reducer) Table() Table {
	t := make(Table, len(r.table))
	for k, v := range r.table {
		t[k] = v
	}
	return t
}

// Shorten collapses adjacent distinct symbols until the string is terminal.
func (r *Reducer) Shorten(input string) (string, error) {
	return r.reduce(input, nil)
}

// Trace works like Shorten but also records each step taken.
func (r *Reducer) Trace(input string) (*Result, error) {
	res := &Result{Input: input}
	out, err := r.reduce(input, func(s *Step) {
		res.Steps = append(res.Steps, s)
	})
	if err != nil {
		return nil, err
	}
	res.Output = out
	return res, nil
}

func (r *Reducer) reduce(input string, observe func(*Step)) (string, error) {
	if err := Validate(input); err != nil {
		return "", err
	}

	cur := input
	for !IsTerminal(cur) {
		next, best, pos := "", math.MaxInt, 0
		for i := 1; i < len(cur); i++ {
			if cur[i] == cur[i-1] {
				continue
			}
			// lookup key is (right, left)
			sym := r.table[[2]byte{cur[i], cur[i-1]}]
			cand := cur[:i-1] + string(sym) + cur[i+1:]
			if s := Score(cand); s < best {
				next, best, pos = cand, s, i
			}
		}
		if observe != nil {
			observe(&Step{
				Position: pos,
				Pair:     cur[pos-1 : pos+1],
				Into:     string(next[pos-1]),
				Result:   next,
				Score:    best,
			})
		}
		cur = next
	}
	return cur, nil
}

// Validate checks that every character of input belongs to the alphabet.
func Validate(input string) error {
	for i := 0; i < len(input); i++ {
		if !IsSymbol(input[i]) {
			return fmt.Errorf("%w: unexpected character %q at offset %d", ErrInvalidInput, input[i], i)
		}
	}
	return nil
}

// AdjacentDistinct counts adjacent pairs of different symbols.
func AdjacentDistinct(s string) int {
	n := 0
	for i := 1; i < len(s); i++ {
		if s[i] != s[i-1] {
			n++
		}
	}
	return n
}

// Score is the length of s minus its adjacent distinct pair count. Lower is better.
func Score(s string) int {
	return len(s) - AdjacentDistinct(s)
}

// IsTerminal reports whether s can not be shortened any further.
func IsTerminal(s string) bool {
	return len(s) < 2 || AdjacentDistinct(s) == 0
}
