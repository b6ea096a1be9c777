package louvain

import (
	"math"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/community"
	"gonum.org/v1/gonum/graph/simple"
)

// CalculateModularity computes Newman's modularity of a partition with the
// given resolution. Nodes missing from communities contribute nothing.
func CalculateModularity(g *Graph, communities [][]int, resolution float64) float64 {
	if g.TotalWeight == 0 {
		return 0.0
	}

	nodeToComm := make([]int, g.NumNodes)
	for i := range nodeToComm {
		nodeToComm[i] = -1
	}
	for c, nodes := range communities {
		for _, n := range nodes {
			nodeToComm[n] = c
		}
	}

	m2 := 2.0 * g.TotalWeight
	modularity := 0.0

	for c, nodes := range communities {
		internal := 0.0
		total := 0.0
		for _, n := range nodes {
			total += g.Degrees[n]
			neighbors, weights := g.GetNeighbors(n)
			for i, neighbor := range neighbors {
				if nodeToComm[neighbor] == c {
					internal += weights[i]
				}
			}
		}
		modularity += internal/m2 - resolution*(total/m2)*(total/m2)
	}

	return modularity
}

// ToGonum converts the graph to a gonum weighted undirected graph whose node
// IDs are the residue indices.
func ToGonum(g *Graph) *simple.WeightedUndirectedGraph {
	wg := simple.NewWeightedUndirectedGraph(0, math.Inf(1))

	for i := 0; i < g.NumNodes; i++ {
		wg.AddNode(simple.Node(int64(i)))
	}

	for u := 0; u < g.NumNodes; u++ {
		neighbors, weights := g.GetNeighbors(u)
		for i, v := range neighbors {
			if u < v {
				wg.SetWeightedEdge(simple.WeightedEdge{
					F: simple.Node(int64(u)),
					T: simple.Node(int64(v)),
					W: weights[i],
				})
			}
		}
	}

	return wg
}

// GonumModularity scores a partition with gonum's community.Q.
func GonumModularity(g *Graph, communities [][]int, resolution float64) float64 {
	if g.TotalWeight == 0 {
		return 0.0
	}

	wg := ToGonum(g)
	nodes := make([][]graph.Node, len(communities))
	for c, members := range communities {
		nodes[c] = make([]graph.Node, len(members))
		for i, id := range members {
			nodes[c][i] = wg.Node(int64(id))
		}
	}

	return community.Q(wg, nodes, resolution)
}
