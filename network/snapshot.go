package network

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"sort"

	"lukechampine.com/blake3"
)

// ErrDataIntegrity marks fatal violations of the snapshot invariants.
var ErrDataIntegrity = errors.New("network: data integrity violation")

// IntegrityError describes a DataIntegrity violation for one key.
type IntegrityError struct {
	Key    Key
	Detail string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("network: data integrity violation in %s: %s", e.Key, e.Detail)
}

// Is makes IntegrityError match ErrDataIntegrity.
func (e *IntegrityError) Is(target error) bool { return target == ErrDataIntegrity }

// Edge is a frozen edge with its merged attributes.
type Edge struct {
	Pair
	Weight   float64  `json:"weight"`
	Journals []string `json:"journals"`
}

// Accumulator collects contributions for a single (year, kind) key. It has
// exactly one writer; Freeze ends its life.
type Accumulator struct {
	key    Key
	schema Schema
	nodes  map[PersonID]struct{}
	edges  map[Pair][]attrState
	frozen bool
}

// NewAccumulator creates an empty accumulator for key.
func NewAccumulator(key Key) *Accumulator {
	return &Accumulator{
		key:    key,
		schema: EdgeSchema,
		nodes:  make(map[PersonID]struct{}),
		edges:  make(map[Pair][]attrState),
	}
}

// Key returns the accumulator's key.
func (a *Accumulator) Key() Key { return a.key }

// AddNode adds an isolated node; existing nodes are left untouched.
func (a *Accumulator) AddNode(p PersonID) {
	a.mustBeOpen()
	a.nodes[p] = struct{}{}
}

// AddEdge records one contribution to the edge u-v (u->v for directed
// kinds). vals is keyed by attribute name and merged according to the
// schema. Self-pairs are stored as given; Freeze rejects them.
func (a *Accumulator) AddEdge(u, v PersonID, vals map[string]Value) error {
	a.mustBeOpen()
	p := Pair{From: u, To: v}
	if !a.key.Kind.Directed() {
		p = undirectedPair(u, v)
	}
	a.nodes[u] = struct{}{}
	a.nodes[v] = struct{}{}

	st, ok := a.edges[p]
	if !ok {
		st = make([]attrState, len(a.schema))
		a.edges[p] = st
	}
	for name, val := range vals {
		i := a.schema.index(name)
		if i < 0 {
			return fmt.Errorf("network: unknown edge attribute %q", name)
		}
		st[i].add(a.schema[i].Op, val)
	}
	return nil
}

func (a *Accumulator) mustBeOpen() {
	if a.frozen {
		panic("network: accumulator for " + a.key.String() + " used after Freeze")
	}
}

// Freeze validates the accumulated graph and returns the immutable snapshot.
func (a *Accumulator) Freeze() (*Snapshot, error) {
	a.mustBeOpen()
	a.frozen = true

	s := &Snapshot{
		key:   a.key,
		index: make(map[Pair]int, len(a.edges)),
	}
	s.nodes = make([]PersonID, 0, len(a.nodes))
	for n := range a.nodes {
		s.nodes = append(s.nodes, n)
	}
	SortPersons(s.nodes)

	wi, ji := a.schema.index(AttrWeight), a.schema.index(AttrJournal)
	s.edges = make([]Edge, 0, len(a.edges))
	for p, st := range a.edges {
		if p.From == p.To {
			return nil, &IntegrityError{Key: a.key, Detail: fmt.Sprintf("self-loop on %q", p.From)}
		}
		s.edges = append(s.edges, Edge{Pair: p, Weight: st[wi].sum(), Journals: st[ji].set()})
	}
	sortEdges(s.edges)
	for i, e := range s.edges {
		s.index[e.Pair] = i
	}
	return s, nil
}

func sortEdges(es []Edge) {
	sort.Slice(es, func(i, j int) bool {
		if c := ComparePersons(es[i].From, es[j].From); c != 0 {
			return c < 0
		}
		return ComparePersons(es[i].To, es[j].To) < 0
	})
}

// Snapshot is an immutable attributed graph for one (year, kind) key.
type Snapshot struct {
	key   Key
	nodes []PersonID
	edges []Edge
	index map[Pair]int
}

// NewSnapshot assembles a snapshot from already-merged nodes and edges,
// e.g. when loading from storage. It enforces the same invariants as Freeze.
func NewSnapshot(key Key, nodes []PersonID, edges []Edge) (*Snapshot, error) {
	seen := make(map[PersonID]struct{}, len(nodes))
	for _, n := range nodes {
		seen[n] = struct{}{}
	}
	s := &Snapshot{key: key, index: make(map[Pair]int, len(edges))}
	for _, e := range edges {
		if e.From == e.To {
			return nil, &IntegrityError{Key: key, Detail: fmt.Sprintf("self-loop on %q", e.From)}
		}
		p := e.Pair
		if !key.Kind.Directed() {
			p = undirectedPair(e.From, e.To)
		}
		if _, dup := s.index[p]; dup {
			return nil, &IntegrityError{Key: key, Detail: fmt.Sprintf("duplicate edge %s-%s", p.From, p.To)}
		}
		s.index[p] = -1
		seen[p.From] = struct{}{}
		seen[p.To] = struct{}{}
		journals := append([]string(nil), e.Journals...)
		sort.Strings(journals)
		s.edges = append(s.edges, Edge{Pair: p, Weight: e.Weight, Journals: journals})
	}
	for n := range seen {
		s.nodes = append(s.nodes, n)
	}
	SortPersons(s.nodes)
	sortEdges(s.edges)
	for i, e := range s.edges {
		s.index[e.Pair] = i
	}
	return s, nil
}

// Key returns the snapshot key.
func (s *Snapshot) Key() Key { return s.key }

// Directed reports whether edges are ordered.
func (s *Snapshot) Directed() bool { return s.key.Kind.Directed() }

// Nodes returns the node set in canonical order. Callers must not modify it.
func (s *Snapshot) Nodes() []PersonID { return s.nodes }

// Edges returns the edge list in canonical order. Callers must not modify it.
func (s *Snapshot) Edges() []Edge { return s.edges }

// NumNodes returns the number of nodes.
func (s *Snapshot) NumNodes() int { return len(s.nodes) }

// NumEdges returns the number of edges.
func (s *Snapshot) NumEdges() int { return len(s.edges) }

// Edge looks up the edge u-v (u->v for directed snapshots).
func (s *Snapshot) Edge(u, v PersonID) (Edge, bool) {
	p := Pair{From: u, To: v}
	if !s.Directed() {
		p = undirectedPair(u, v)
	}
	i, ok := s.index[p]
	if !ok {
		return Edge{}, false
	}
	return s.edges[i], true
}

// HasNode reports whether p is a node of the snapshot.
func (s *Snapshot) HasNode(p PersonID) bool {
	i := sort.Search(len(s.nodes), func(i int) bool { return ComparePersons(s.nodes[i], p) >= 0 })
	return i < len(s.nodes) && s.nodes[i] == p
}

// SelfLoops returns every edge whose endpoints coincide. A valid snapshot
// always returns none.
func (s *Snapshot) SelfLoops() []Edge {
	var out []Edge
	for _, e := range s.edges {
		if e.From == e.To {
			out = append(out, e)
		}
	}
	return out
}

// Fingerprint is a blake3 digest of the canonical node and edge encoding.
// Two snapshots with identical nodes, edges and attribute bits share it.
func (s *Snapshot) Fingerprint() string {
	h := blake3.New(32, nil)
	var buf [8]byte
	h.Write([]byte(s.key.String()))
	h.Write([]byte{0})
	for _, n := range s.nodes {
		h.Write([]byte(n))
		h.Write([]byte{0})
	}
	h.Write([]byte{1})
	for _, e := range s.edges {
		h.Write([]byte(e.From))
		h.Write([]byte{0})
		h.Write([]byte(e.To))
		h.Write([]byte{0})
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(e.Weight))
		h.Write(buf[:])
		for _, j := range e.Journals {
			h.Write([]byte(j))
			h.Write([]byte{0})
		}
		h.Write([]byte{1})
	}
	return hex.EncodeToString(h.Sum(nil))
}
