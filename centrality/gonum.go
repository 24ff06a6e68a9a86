package centrality

import (
	"sort"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/network"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// weightedUndirected builds a gonum graph over the given node indices of a.
// Node IDs are adjacency indices. A nil members slice selects every node.
func (a *adjacency) weightedUndirected(members []int) *simple.WeightedUndirectedGraph {
	g := simple.NewWeightedUndirectedGraph(0, 0)
	in := make(map[int]bool, len(members))
	if members == nil {
		for i := range a.ids {
			in[i] = true
		}
	} else {
		for _, m := range members {
			in[m] = true
		}
	}
	for i := range a.ids {
		if in[i] {
			g.AddNode(simple.Node(int64(i)))
		}
	}
	for u, nb := range a.und {
		if !in[u] {
			continue
		}
		for _, e := range nb {
			if e.to <= u || !in[e.to] {
				continue
			}
			g.SetWeightedEdge(g.NewWeightedEdge(simple.Node(int64(u)), simple.Node(int64(e.to)), e.weight))
		}
	}
	return g
}

// acyclic reports whether the directed edges among members contain no
// cycle, in which case the adjacency matrix is nilpotent.
func (a *adjacency) acyclic(members []int) bool {
	g := simple.NewDirectedGraph()
	in := make(map[int]bool, len(members))
	for _, m := range members {
		in[m] = true
		g.AddNode(simple.Node(int64(m)))
	}
	for _, u := range members {
		for _, e := range a.out[u] {
			if in[e.to] {
				g.SetEdge(g.NewEdge(simple.Node(int64(u)), simple.Node(int64(e.to))))
			}
		}
	}
	_, err := topo.Sort(g)
	return err == nil
}

// components returns the connected components of the undirected projection
// (weak components for directed snapshots), each sorted by node index.
func components(g graph.Undirected) [][]int {
	cc := topo.ConnectedComponents(g)
	out := make([][]int, len(cc))
	for i, c := range cc {
		ids := make([]int, len(c))
		for j, n := range c {
			ids[j] = int(n.ID())
		}
		sort.Ints(ids)
		out[i] = ids
	}
	return out
}

// giant picks the largest component. Ties go to the component holding the
// lowest node index, i.e. the lowest person id. Components of a single node
// never qualify.
func giant(comps [][]int) []int {
	var best []int
	for _, c := range comps {
		if len(c) < 2 {
			continue
		}
		if best == nil || len(c) > len(best) || (len(c) == len(best) && c[0] < best[0]) {
			best = c
		}
	}
	return best
}

// betweenness computes weighted betweenness over g with edge weights as
// distances, normalised by 1/((n-1)(n-2)). gonum counts each unordered
// source/target pair in both directions, which this normalisation expects.
func betweenness(g *simple.WeightedUndirectedGraph) map[int]float64 {
	n := g.Nodes().Len()
	out := make(map[int]float64, n)
	nodes := graph.NodesOf(g.Nodes())
	for _, nd := range nodes {
		out[int(nd.ID())] = 0
	}
	if n <= 2 {
		return out
	}
	paths := path.DijkstraAllPaths(g)
	raw := network.BetweennessWeighted(g, paths)
	scale := 1 / float64((n-1)*(n-2))
	for id, v := range raw {
		out[int(id)] = v * scale
	}
	return out
}
