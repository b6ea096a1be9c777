package domains

import (
	"fmt"
	"sort"
)

// Domain is an immutable ascending set of 0-indexed residue positions.
type Domain struct {
	positions []int
}

// NewDomain copies positions into a sorted, duplicate free domain.
func NewDomain(positions []int) Domain {
	sorted := make([]int, len(positions))
	copy(sorted, positions)
	sort.Ints(sorted)

	out := sorted[:0]
	for i, p := range sorted {
		if i > 0 && p == sorted[i-1] {
			continue
		}
		out = append(out, p)
	}
	return Domain{positions: out}
}

// Span returns the domain covering positions 0..n-1.
func Span(n int) Domain {
	positions := make([]int, n)
	for i := range positions {
		positions[i] = i
	}
	return Domain{positions: positions}
}

// Len returns the number of residues in the domain.
func (d Domain) Len() int { return len(d.positions) }

// IsEmpty reports whether trimming removed every residue.
func (d Domain) IsEmpty() bool { return len(d.positions) == 0 }

// Positions returns a copy of the 0-indexed positions.
func (d Domain) Positions() []int {
	out := make([]int, len(d.positions))
	copy(out, d.positions)
	return out
}

// OneIndexed returns the positions in structure file numbering.
func (d Domain) OneIndexed() []int {
	out := make([]int, len(d.positions))
	for i, p := range d.positions {
		out[i] = p + 1
	}
	return out
}

func (d Domain) String() string {
	if d.IsEmpty() {
		return "Domain{}"
	}
	return fmt.Sprintf("Domain{%d..%d, n=%d}", d.positions[0], d.positions[len(d.positions)-1], len(d.positions))
}
