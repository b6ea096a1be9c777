package alignments

import (
	"fmt"
	"sort"
)

// Group holds every alignment of one query.
type Group struct {
	Query      string
	Alignments []*Alignment
}

// NewGroup creates an empty group for query.
func NewGroup(query string) *Group {
	return &Group{Query: query}
}

// Add appends a to the group. Self alignments are dropped and reported false.
func (g *Group) Add(a *Alignment) bool {
	if a.IsSelf() {
		return false
	}
	g.Alignments = append(g.Alignments, a)
	return true
}

// Len returns the number of alignments.
func (g *Group) Len() int { return len(g.Alignments) }

// Filter keeps alignments whose field lies in [min, max].
func (g *Group) Filter(field string, max, min float64) error {
	kept := g.Alignments[:0]
	for _, a := range g.Alignments {
		v, err := a.Number(field)
		if err != nil {
			return fmt.Errorf("failed to filter %s: %w", g.Query, err)
		}
		if v >= min && v <= max {
			kept = append(kept, a)
		}
	}
	g.Alignments = kept
	return nil
}

// KeepTopN keeps the n alignments with the highest field value. Ties keep
// file order.
func (g *Group) KeepTopN(field string, n int) error {
	values := make(map[*Alignment]float64, len(g.Alignments))
	for _, a := range g.Alignments {
		v, err := a.Number(field)
		if err != nil {
			return fmt.Errorf("failed to rank %s: %w", g.Query, err)
		}
		values[a] = v
	}

	sort.SliceStable(g.Alignments, func(i, j int) bool {
		return values[g.Alignments[i]] > values[g.Alignments[j]]
	})
	if n >= 0 && n < len(g.Alignments) {
		g.Alignments = g.Alignments[:n]
	}
	return nil
}

// MeanTMScore returns the mean alntmscore of the group, or zero when empty.
func (g *Group) MeanTMScore() float64 {
	if len(g.Alignments) == 0 {
		return 0
	}
	sum := 0.0
	for _, a := range g.Alignments {
		sum += a.AlnTMScore
	}
	return sum / float64(len(g.Alignments))
}
