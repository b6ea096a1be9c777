package domains

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/stat"
)

var (
	// ErrEmptyDomain is returned when an average is requested over no residues.
	ErrEmptyDomain = errors.New("domains: empty domain")
	// ErrPosition is returned when a domain references a residue beyond the
	// pLDDT array.
	ErrPosition = errors.New("domains: position out of range")
)

// Policy holds the thresholds a candidate must meet to be kept.
type Policy struct {
	MinLength int
	MinPLDDT  float64
}

// Outcome is the result of resolving candidates. An empty outcome is a
// normal result, not an error.
type Outcome struct {
	Domains  []Domain
	Empty    bool
	FellBack bool // the whole-structure candidate was used
}

func checkPositions(d Domain, plddt []float64) error {
	if d.IsEmpty() {
		return nil
	}
	last := d.positions[len(d.positions)-1]
	if d.positions[0] < 0 || last >= len(plddt) {
		return fmt.Errorf("%w: %s with %d pLDDT values", ErrPosition, d, len(plddt))
	}
	return nil
}

// AveragePLDDT returns the mean pLDDT over the domain's residues.
func AveragePLDDT(d Domain, plddt []float64) (float64, error) {
	if d.IsEmpty() {
		return 0, ErrEmptyDomain
	}
	if err := checkPositions(d, plddt); err != nil {
		return 0, err
	}

	values := make([]float64, len(d.positions))
	for i, p := range d.positions {
		values[i] = plddt[p]
	}
	return stat.Mean(values, nil), nil
}

// Filter keeps candidates with at least minLength residues and a mean pLDDT
// of at least minPLDDT, preserving order. Empty candidates never pass.
func Filter(cands []Domain, plddt []float64, minLength int, minPLDDT float64) ([]Domain, error) {
	out := make([]Domain, 0, len(cands))
	for _, d := range cands {
		if d.Len() < minLength {
			continue
		}
		avg, err := AveragePLDDT(d, plddt)
		if errors.Is(err, ErrEmptyDomain) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if avg < minPLDDT {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

// Trim strips the low confidence prefix and suffix of every candidate. The
// output has one entry per input, some of which may be empty.
func Trim(cands []Domain, plddt []float64, minPLDDT float64) ([]Domain, error) {
	out := make([]Domain, len(cands))
	for i, d := range cands {
		if err := checkPositions(d, plddt); err != nil {
			return nil, err
		}

		lo, hi := 0, len(d.positions)
		for lo < hi && plddt[d.positions[lo]] < minPLDDT {
			lo++
		}
		for hi > lo && plddt[d.positions[hi-1]] < minPLDDT {
			hi--
		}

		out[i] = Domain{positions: d.positions[lo:hi]}
	}
	return out, nil
}

func dropEmpty(cands []Domain) []Domain {
	out := make([]Domain, 0, len(cands))
	for _, d := range cands {
		if !d.IsEmpty() {
			out = append(out, d)
		}
	}
	return out
}

// Resolve applies the filter and trim policy to the candidates. If nothing
// survives, the whole structure of residueCount residues is trimmed and
// filtered instead.
func Resolve(cands []Domain, plddt []float64, residueCount int, policy Policy) (Outcome, error) {
	filtered, err := Filter(cands, plddt, policy.MinLength, policy.MinPLDDT)
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to filter candidates: %w", err)
	}
	trimmed, err := Trim(filtered, plddt, policy.MinPLDDT)
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to trim candidates: %w", err)
	}

	if kept := dropEmpty(trimmed); len(kept) > 0 {
		return Outcome{Domains: kept}, nil
	}

	whole, err := Trim([]Domain{Span(residueCount)}, plddt, policy.MinPLDDT)
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to trim whole structure: %w", err)
	}
	kept, err := Filter(whole, plddt, policy.MinLength, policy.MinPLDDT)
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to filter whole structure: %w", err)
	}

	return Outcome{Domains: kept, Empty: len(kept) == 0, FellBack: true}, nil
}
