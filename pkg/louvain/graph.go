package louvain

import (
	"fmt"
)

// Graph represents a weighted undirected graph using simple arrays (NetworkX style)
type Graph struct {
	NumNodes    int         `json:"num_nodes"`
	Adjacency   [][]int     `json:"-"`            // adjacency[i] = list of neighbors of node i
	Weights     [][]float64 `json:"-"`            // weights[i][j] = weight of edge from node i to neighbor adjacency[i][j]
	Degrees     []float64   `json:"degrees"`      // degrees[i] = weighted degree of node i
	TotalWeight float64     `json:"total_weight"` // sum of all edge weights
	NumEdges    int         `json:"num_edges"`
}

// NewGraph creates a new graph with n nodes
func NewGraph(numNodes int) *Graph {
	return &Graph{
		NumNodes:  numNodes,
		Adjacency: make([][]int, numNodes),
		Weights:   make([][]float64, numNodes),
		Degrees:   make([]float64, numNodes),
	}
}

// AddEdge adds a weighted edge between two distinct nodes. Callers add each
// unordered pair once.
func (g *Graph) AddEdge(u, v int, weight float64) error {
	if u < 0 || u >= g.NumNodes || v < 0 || v >= g.NumNodes {
		return fmt.Errorf("node index out of range: u=%d, v=%d, numNodes=%d", u, v, g.NumNodes)
	}
	if u == v {
		return fmt.Errorf("self-loop on node %d not allowed", u)
	}
	if weight <= 0 {
		return fmt.Errorf("edge weight must be positive: %f", weight)
	}

	g.Adjacency[u] = append(g.Adjacency[u], v)
	g.Weights[u] = append(g.Weights[u], weight)
	g.Degrees[u] += weight

	g.Adjacency[v] = append(g.Adjacency[v], u)
	g.Weights[v] = append(g.Weights[v], weight)
	g.Degrees[v] += weight

	g.TotalWeight += weight
	g.NumEdges++
	return nil
}

// GetEdgeWeight returns the weight of edge between u and v
func (g *Graph) GetEdgeWeight(u, v int) float64 {
	if u < 0 || u >= g.NumNodes || v < 0 || v >= g.NumNodes {
		return 0.0
	}

	for i, neighbor := range g.Adjacency[u] {
		if neighbor == v {
			return g.Weights[u][i]
		}
	}
	return 0.0
}

// GetNeighbors returns neighbors and their edge weights for a node
func (g *Graph) GetNeighbors(node int) ([]int, []float64) {
	if node < 0 || node >= g.NumNodes {
		return nil, nil
	}
	return g.Adjacency[node], g.Weights[node]
}

// Validate checks graph consistency
func (g *Graph) Validate() error {
	if g.NumNodes < 0 {
		return fmt.Errorf("graph must have a non-negative number of nodes")
	}

	for i := 0; i < g.NumNodes; i++ {
		if len(g.Adjacency[i]) != len(g.Weights[i]) {
			return fmt.Errorf("adjacency and weights arrays inconsistent for node %d", i)
		}

		for j, neighbor := range g.Adjacency[i] {
			if neighbor < 0 || neighbor >= g.NumNodes {
				return fmt.Errorf("invalid neighbor %d for node %d", neighbor, i)
			}
			if neighbor == i {
				return fmt.Errorf("self-loop on node %d", i)
			}
			if g.Weights[i][j] <= 0 {
				return fmt.Errorf("non-positive weight %f for edge %d-%d", g.Weights[i][j], i, neighbor)
			}
		}
	}

	return nil
}
