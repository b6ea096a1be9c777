package domains

import (
	"fmt"
	"math"

	"github.com/gilchrisn/structural-annotation-toolkit/pkg/louvain"
	"github.com/gilchrisn/structural-annotation-toolkit/pkg/pae"
)

// MinPAE is the floor applied to sub-cutoff PAE values before weighting.
const MinPAE = 1e-6

// BuildGraph converts a PAE matrix into a sparse residue graph. Each pair i<j
// with a PAE below paeCutoff in either direction gets one edge weighted
// 1/pae^paePower. When both directions qualify, pae[j][i] is used.
func BuildGraph(m *pae.Matrix, paePower, paeCutoff float64) (*louvain.Graph, error) {
	n := m.Size()
	g := louvain.NewGraph(n)

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			upper, lower := m.At(i, j), m.At(j, i)

			var value float64
			switch {
			case lower < paeCutoff:
				value = lower
			case upper < paeCutoff:
				value = upper
			default:
				continue
			}

			weight := 1.0 / math.Pow(math.Max(value, MinPAE), paePower)
			if math.IsInf(weight, 0) || math.IsNaN(weight) {
				return nil, fmt.Errorf("non-finite edge weight for residues %d-%d (pae=%f, power=%f)", i, j, value, paePower)
			}
			if err := g.AddEdge(i, j, weight); err != nil {
				return nil, fmt.Errorf("failed to add edge %d-%d: %w", i, j, err)
			}
		}
	}

	return g, nil
}
