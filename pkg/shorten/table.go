package shorten

import (
	"fmt"
	"sort"
)

// Alphabet lists the symbols a shortened string may contain.
const Alphabet = "abc"

// Table maps an ordered pair of distinct symbols to the symbol they collapse into.
type Table map[[2]byte]byte

var defaultTable = Table{
	{'a', 'b'}: 'c',
	{'a', 'c'}: 'b',
	{'b', 'a'}: 'c',
	{'b', 'c'}: 'a',
	{'c', 'a'}: 'b',
	{'c', 'b'}: 'a',
}

// IsSymbol reports whether b belongs to the alphabet.
func IsSymbol(b byte) bool {
	return b == 'a' || b == 'b' || b == 'c'
}

// DefaultTable returns a copy of the canonical table where every pair
// collapses into the remaining third symbol.
func DefaultTable() Table {
	t := make(Table, len(defaultTable))
	for k, v := range defaultTable {
		t[k] = v
	}
	return t
}

// NewTable builds a table from two-character keys, e.g. "ab": "c".
func NewTable(m map[string]string) (Table, error) {
	t := make(Table, len(m))
	for k, v := range m {
		if len(k) != 2 || !IsSymbol(k[0]) || !IsSymbol(k[1]) || k[0] == k[1] {
			return nil, fmt.Errorf("invalid table key %q: must be two distinct symbols of %q", k, Alphabet)
		}
		if len(v) != 1 || !IsSymbol(v[0]) {
			return nil, fmt.Errorf("invalid table value %q for key %q: must be one symbol of %q", v, k, Alphabet)
		}
		t[[2]byte{k[0], k[1]}] = v[0]
	}
	if err := t.check(); err != nil {
		return nil, err
	}
	return t, nil
}

// Map renders the table with two-character keys, the inverse of NewTable.
func (t Table) Map() map[string]string {
	m := make(map[string]string, len(t))
	for k, v := range t {
		m[string(k[:])] = string(v)
	}
	return m
}

// Keys returns the table keys in sorted order.
func (t Table) Keys() []string {
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, string(k[:]))
	}
	sort.Strings(keys)
	return keys
}

// check makes sure every ordered pair of distinct symbols has an entry
// that stays within the alphabet.
func (t Table) check() error {
	for i := 0; i < len(Alphabet); i++ {
		for j := 0; j < len(Alphabet); j++ {
			if i == j {
				continue
			}
			key := [2]byte{Alphabet[i], Alphabet[j]}
			v, ok := t[key]
			if !ok {
				return fmt.Errorf("table missing entry for pair %q", string(key[:]))
			}
			if !IsSymbol(v) {
				return fmt.Errorf("table entry for pair %q is not a symbol: %q", string(key[:]), v)
			}
		}
	}
	return nil
}
