package centrality

import (
	"sort"

	"github.com/brunobiangulo/collabnet/network"
)

// edge is a weighted neighbour entry in the in-memory adjacency list.
type edge struct {
	to     int
	weight float64
}

// adjacency is the compact form of a snapshot. Node indices follow the
// snapshot's canonical node order, so index order is id order.
type adjacency struct {
	ids   []network.PersonID
	index map[network.PersonID]int
	// und is the undirected projection; reciprocal directed edges are merged
	// and their weights summed.
	und [][]edge
	// out holds weighted successors for directed snapshots, nil otherwise.
	out    [][]edge
	inDeg  []int
	outDeg []int
	links  int
}

func newAdjacency(s *network.Snapshot) *adjacency {
	n := s.NumNodes()
	a := &adjacency{
		ids:   s.Nodes(),
		index: make(map[network.PersonID]int, n),
		und:   make([][]edge, n),
		links: s.NumEdges(),
	}
	for i, id := range a.ids {
		a.index[id] = i
	}
	if s.Directed() {
		a.out = make([][]edge, n)
		a.inDeg = make([]int, n)
		a.outDeg = make([]int, n)
	}

	type upair struct{ lo, hi int }
	merged := make(map[upair]float64, s.NumEdges())
	for _, e := range s.Edges() {
		u, v := a.index[e.From], a.index[e.To]
		if a.out != nil {
			a.out[u] = append(a.out[u], edge{to: v, weight: e.Weight})
			a.outDeg[u]++
			a.inDeg[v]++
		}
		p := upair{min(u, v), max(u, v)}
		merged[p] += e.Weight
	}
	for p, w := range merged {
		a.und[p.lo] = append(a.und[p.lo], edge{to: p.hi, weight: w})
		a.und[p.hi] = append(a.und[p.hi], edge{to: p.lo, weight: w})
	}
	for i := range a.und {
		sort.Slice(a.und[i], func(x, y int) bool { return a.und[i][x].to < a.und[i][y].to })
	}
	return a
}

func (a *adjacency) n() int { return len(a.ids) }

func (a *adjacency) degree(i int) Degree {
	if a.out != nil {
		return DirectedDegree{In: a.inDeg[i], Out: a.outDeg[i]}
	}
	return UndirectedDegree{Degree: len(a.und[i])}
}

// bfs returns hop distances from src over the undirected projection, -1 for
// unreachable nodes. cutoff < 0 means unbounded.
func (a *adjacency) bfs(src, cutoff int, dist []int) []int {
	if dist == nil {
		dist = make([]int, a.n())
	}
	for i := range dist {
		dist[i] = -1
	}
	dist[src] = 0
	queue := []int{src}
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		if cutoff >= 0 && dist[node] >= cutoff {
			continue
		}
		for _, e := range a.und[node] {
			if dist[e.to] < 0 {
				dist[e.to] = dist[node] + 1
				queue = append(queue, e.to)
			}
		}
	}
	return dist
}

// secondOrder counts nodes exactly two hops from i. With successorsOnly the
// walk follows out-edges of a directed snapshot.
func (a *adjacency) secondOrder(i int, successorsOnly bool) int {
	if !successorsOnly || a.out == nil {
		dist := a.bfs(i, 2, nil)
		count := 0
		for _, d := range dist {
			if d == 2 {
				count++
			}
		}
		return count
	}
	first := make(map[int]bool, len(a.out[i]))
	for _, e := range a.out[i] {
		first[e.to] = true
	}
	second := make(map[int]bool)
	for j := range first {
		for _, e := range a.out[j] {
			if e.to != i && !first[e.to] {
				second[e.to] = true
			}
		}
	}
	return len(second)
}

// averageClustering is the mean local clustering coefficient of the
// unweighted undirected projection. Nodes with fewer than two neighbours
// contribute zero.
func (a *adjacency) averageClustering() float64 {
	if a.n() == 0 {
		return 0
	}
	var total float64
	for _, nb := range a.und {
		k := len(nb)
		if k < 2 {
			continue
		}
		links := 0
		for x := 0; x < k; x++ {
			links += intersect(a.und[nb[x].to], nb[x+1:])
		}
		total += 2 * float64(links) / float64(k*(k-1))
	}
	return total / float64(a.n())
}

// intersect counts common targets of two neighbour lists sorted by target.
func intersect(xs, ys []edge) int {
	count := 0
	for i, j := 0, 0; i < len(xs) && j < len(ys); {
		switch {
		case xs[i].to < ys[j].to:
			i++
		case xs[i].to > ys[j].to:
			j++
		default:
			count++
			i++
			j++
		}
	}
	return count
}

// distanceStats runs a BFS from every member of a connected component and
// returns per-member closeness ((n-1)/sum of distances), the average
// shortest path length and the diameter.
func (a *adjacency) distanceStats(members []int) (closeness []float64, apl float64, diameter int) {
	n := len(members)
	closeness = make([]float64, n)
	if n < 2 {
		return closeness, 0, 0
	}
	dist := make([]int, a.n())
	var pathSum float64
	for mi, src := range members {
		a.bfs(src, -1, dist)
		sum := 0
		for _, v := range members {
			d := dist[v]
			sum += d
			if d > diameter {
				diameter = d
			}
		}
		if sum > 0 {
			closeness[mi] = float64(n-1) / float64(sum)
		}
		pathSum += float64(sum)
	}
	apl = pathSum / float64(n*(n-1))
	return closeness, apl, diameter
}
