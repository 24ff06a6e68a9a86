package network

import (
	"fmt"
	"sort"
)

// MergeOp is the operator used when an attribute receives a second value
// for the same edge.
type MergeOp int

const (
	// MergeSum adds numeric contributions.
	MergeSum MergeOp = iota
	// MergeUnion collects distinct string labels.
	MergeUnion
)

func (op MergeOp) String() string {
	switch op {
	case MergeSum:
		return "sum"
	case MergeUnion:
		return "union"
	}
	return fmt.Sprintf("MergeOp(%d)", int(op))
}

// AttrSpec declares one edge attribute and its merge operator.
type AttrSpec struct {
	Name string
	Op   MergeOp
}

// Schema is the fixed list of edge attributes. The operator for every
// attribute is decided here, never by inspecting stored values.
type Schema []AttrSpec

// Edge attribute names.
const (
	AttrWeight  = "weight"
	AttrJournal = "journal"
)

// EdgeSchema is the attribute schema shared by both network kinds.
var EdgeSchema = Schema{
	{Name: AttrWeight, Op: MergeSum},
	{Name: AttrJournal, Op: MergeUnion},
}

// index returns the position of name in the schema or -1.
func (s Schema) index(name string) int {
	for i, a := range s {
		if a.Name == name {
			return i
		}
	}
	return -1
}

// Value is one contribution to an attribute.
type Value struct {
	Num   float64
	Label string
}

// Num builds a numeric contribution.
func Num(v float64) Value { return Value{Num: v} }

// Label builds a categorical contribution.
func Label(s string) Value { return Value{Label: s} }

// attrState holds pending contributions for one attribute of one edge.
type attrState struct {
	parts  []float64
	labels map[string]struct{}
}

func (a *attrState) add(op MergeOp, v Value) {
	switch op {
	case MergeSum:
		a.parts = append(a.parts, v.Num)
	case MergeUnion:
		if v.Label == "" {
			return
		}
		if a.labels == nil {
			a.labels = make(map[string]struct{})
		}
		a.labels[v.Label] = struct{}{}
	}
}

// sum adds the contributions in ascending order so the result does not
// depend on the order events were applied.
func (a *attrState) sum() float64 {
	parts := append([]float64(nil), a.parts...)
	sort.Float64s(parts)
	var total float64
	for _, p := range parts {
		total += p
	}
	return total
}

func (a *attrState) set() []string {
	if len(a.labels) == 0 {
		return nil
	}
	out := make([]string, 0, len(a.labels))
	for l := range a.labels {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}
