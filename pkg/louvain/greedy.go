package louvain

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
)

// Result represents the partitioner output
type Result struct {
	Communities [][]int `json:"communities"` // disjoint, each sorted ascending
	Modularity  float64 `json:"modularity"`
	NumMerges   int     `json:"num_merges"`
	RuntimeMS   int64   `json:"runtime_ms"`
}

// cnmState holds the sparse dQ matrix of Clauset-Newman-Moore agglomeration.
type cnmState struct {
	resolution float64
	a          []float64         // a[c] = fraction of edge ends attached to community c
	dq         []map[int]float64 // dq[c][d] = modularity change for merging c and d
	members    [][]int
	active     []bool
	best       []int // best[c] = neighbor with largest dq, -1 if none
	bestVal    []float64
}

func newCNMState(g *Graph, resolution float64) *cnmState {
	n := g.NumNodes
	s := &cnmState{
		resolution: resolution,
		a:          make([]float64, n),
		dq:         make([]map[int]float64, n),
		members:    make([][]int, n),
		active:     make([]bool, n),
		best:       make([]int, n),
		bestVal:    make([]float64, n),
	}

	m2 := 2.0 * g.TotalWeight
	for i := 0; i < n; i++ {
		s.a[i] = g.Degrees[i] / m2
		s.members[i] = []int{i}
		s.active[i] = true
	}

	for u := 0; u < n; u++ {
		neighbors, weights := g.GetNeighbors(u)
		s.dq[u] = make(map[int]float64, len(neighbors))
		for i, v := range neighbors {
			s.dq[u][v] += 2 * (weights[i]/m2 - resolution*s.a[u]*s.a[v])
		}
	}

	for u := 0; u < n; u++ {
		s.refreshBest(u)
	}

	return s
}

// refreshBest rescans row c. Ties go to the smaller neighbor index so the
// result does not depend on map iteration order.
func (s *cnmState) refreshBest(c int) {
	s.best[c] = -1
	s.bestVal[c] = 0
	for d, v := range s.dq[c] {
		if s.best[c] == -1 || v > s.bestVal[c] || (v == s.bestVal[c] && d < s.best[c]) {
			s.best[c] = d
			s.bestVal[c] = v
		}
	}
}

// pick returns the pair with the largest dq, ties broken by smallest row.
func (s *cnmState) pick() (int, int, float64) {
	u, v, val := -1, -1, 0.0
	for c := range s.best {
		if !s.active[c] || s.best[c] == -1 {
			continue
		}
		if u == -1 || s.bestVal[c] > val {
			u, v, val = c, s.best[c], s.bestVal[c]
		}
	}
	return u, v, val
}

// merge folds community r into community k, following CNM equations 10a-10c.
func (s *cnmState) merge(keep, r int) {
	// Neighbors of keep only
	for k, dqKeep := range s.dq[keep] {
		if k == r {
			continue
		}
		if _, shared := s.dq[r][k]; !shared {
			v := dqKeep - 2*s.resolution*s.a[r]*s.a[k]
			s.dq[keep][k] = v
			s.dq[k][keep] = v
		}
	}

	// Neighbors of r, shared or not
	for k, dqR := range s.dq[r] {
		if k == keep {
			continue
		}
		var v float64
		if dqKeep, shared := s.dq[keep][k]; shared {
			v = dqKeep + dqR
		} else {
			v = dqR - 2*s.resolution*s.a[keep]*s.a[k]
		}
		s.dq[keep][k] = v
		s.dq[k][keep] = v
		delete(s.dq[k], r)
	}

	delete(s.dq[keep], r)
	s.dq[r] = nil
	s.active[r] = false
	s.best[r] = -1

	s.a[keep] += s.a[r]
	s.a[r] = 0
	s.members[keep] = append(s.members[keep], s.members[r]...)
	s.members[r] = nil

	s.refreshBest(keep)
	for k, v := range s.dq[keep] {
		switch {
		case s.best[k] == r || s.best[k] == keep:
			s.refreshBest(k)
		case v > s.bestVal[k] || (v == s.bestVal[k] && keep < s.best[k]):
			s.best[k] = keep
			s.bestVal[k] = v
		}
	}
}

func (s *cnmState) communities() [][]int {
	out := make([][]int, 0)
	for c, active := range s.active {
		if !active {
			continue
		}
		nodes := make([]int, len(s.members[c]))
		copy(nodes, s.members[c])
		sort.Ints(nodes)
		out = append(out, nodes)
	}
	sortCommunities(out)
	return out
}

// sortCommunities orders by size descending, then by smallest member.
func sortCommunities(communities [][]int) {
	sort.SliceStable(communities, func(i, j int) bool {
		if len(communities[i]) != len(communities[j]) {
			return len(communities[i]) > len(communities[j])
		}
		return communities[i][0] < communities[j][0]
	})
}

// GreedyModularity partitions every node of the graph by greedy agglomerative
// modularity maximisation (Clauset, Newman and Moore 2004). Smaller
// resolutions favour larger communities. The output is deterministic for a
// given graph and resolution.
func GreedyModularity(ctx context.Context, g *Graph, resolution float64, logger zerolog.Logger) (*Result, error) {
	startTime := time.Now()

	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("invalid graph: %w", err)
	}
	if resolution <= 0 {
		return nil, fmt.Errorf("resolution must be positive: %f", resolution)
	}

	logger.Info().
		Int("nodes", g.NumNodes).
		Int("edges", g.NumEdges).
		Float64("total_weight", g.TotalWeight).
		Float64("resolution", resolution).
		Msg("Starting greedy modularity")

	result := &Result{Communities: make([][]int, 0)}
	if g.NumNodes == 0 {
		return result, nil
	}

	state := newCNMState(g, resolution)
	if g.TotalWeight > 0 {
		for {
			if result.NumMerges%256 == 0 {
				if err := ctx.Err(); err != nil {
					return nil, err
				}
			}

			u, v, gain := state.pick()
			if u == -1 || gain <= 0 {
				break
			}

			keep, r := u, v
			if r < keep {
				keep, r = r, keep
			}
			state.merge(keep, r)
			result.NumMerges++

			if result.NumMerges%1000 == 0 {
				logger.Debug().
					Int("merges", result.NumMerges).
					Float64("gain", gain).
					Msg("Agglomeration progress")
			}
		}
	}

	result.Communities = state.communities()
	result.Modularity = GonumModularity(g, result.Communities, resolution)
	result.RuntimeMS = time.Since(startTime).Milliseconds()

	logger.Info().
		Int("communities", len(result.Communities)).
		Int("merges", result.NumMerges).
		Float64("modularity", result.Modularity).
		Int64("runtime_ms", result.RuntimeMS).
		Msg("Greedy modularity completed")

	return result, nil
}
