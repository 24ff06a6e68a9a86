// Package centrality derives per-node centralities and per-network
// descriptors from frozen network snapshots.
package centrality

import (
	"errors"
	"strconv"

	"github.com/brunobiangulo/collabnet/network"
	"github.com/brunobiangulo/collabnet/rankstat"
)

// ErrDegenerateGraph marks snapshots on which some measures are undefined.
// It is reported through Result.Warnings and never returned by the engine.
var ErrDegenerateGraph = errors.New("centrality: degenerate graph")

// Degree is either a DirectedDegree or an UndirectedDegree, chosen by the
// snapshot kind.
type Degree interface {
	Total() int
	isDegree()
}

// DirectedDegree holds in- and out-degree of a commenter-network node.
type DirectedDegree struct {
	In  int `json:"in_degree"`
	Out int `json:"out_degree"`
}

func (d DirectedDegree) Total() int { return d.In + d.Out }
func (DirectedDegree) isDegree()    {}

// UndirectedDegree holds the degree of an author-network node.
type UndirectedDegree struct {
	Degree int `json:"degree"`
}

func (d UndirectedDegree) Total() int { return d.Degree }
func (UndirectedDegree) isDegree()    {}

// Record holds the measures of one node. Pointer fields are nil for nodes
// outside the giant component.
type Record struct {
	Node            network.PersonID `json:"node"`
	Giant           bool             `json:"giant"`
	Degree          Degree           `json:"degree"`
	SecondOrder     int              `json:"num_2nd_neighbors"`
	Betweenness     *float64         `json:"betweenness,omitempty"`
	Closeness       *float64         `json:"closeness,omitempty"`
	Eigenvector     *float64         `json:"eigenvector,omitempty"`
	BetweennessRank *int             `json:"betweenness_rank,omitempty"`
	EigenvectorRank *int             `json:"eigenvector_rank,omitempty"`
}

// Measure names used in long-format output.
const (
	MeasureGiant           = "giant"
	MeasureDegree          = "degree"
	MeasureInDegree        = "in_degree"
	MeasureOutDegree       = "out_degree"
	MeasureSecondOrder     = "num_2nd_neighbors"
	MeasureBetweenness     = "betweenness"
	MeasureCloseness       = "closeness"
	MeasureEigenvector     = "eigenvector"
	MeasureBetweennessRank = "betweenness_rank"
	MeasureEigenvectorRank = "eigenvector_rank"
)

// LongRow is one (node, measure, value) triple.
type LongRow struct {
	Node    network.PersonID `json:"node"`
	Measure string           `json:"centrality"`
	Value   float64          `json:"value"`
}

// Long flattens the record into long-format rows. Absent measures produce
// no row.
func (r Record) Long() []LongRow {
	rows := make([]LongRow, 0, 10)
	add := func(m string, v float64) { rows = append(rows, LongRow{Node: r.Node, Measure: m, Value: v}) }

	giant := 0.0
	if r.Giant {
		giant = 1
	}
	add(MeasureGiant, giant)
	switch d := r.Degree.(type) {
	case DirectedDegree:
		add(MeasureInDegree, float64(d.In))
		add(MeasureOutDegree, float64(d.Out))
	case UndirectedDegree:
		add(MeasureDegree, float64(d.Degree))
	}
	add(MeasureSecondOrder, float64(r.SecondOrder))
	if r.Betweenness != nil {
		add(MeasureBetweenness, *r.Betweenness)
	}
	if r.Closeness != nil {
		add(MeasureCloseness, *r.Closeness)
	}
	if r.Eigenvector != nil {
		add(MeasureEigenvector, *r.Eigenvector)
	}
	if r.BetweennessRank != nil {
		add(MeasureBetweennessRank, float64(*r.BetweennessRank))
	}
	if r.EigenvectorRank != nil {
		add(MeasureEigenvectorRank, float64(*r.EigenvectorRank))
	}
	return rows
}

// Descriptor summarises one snapshot. Giant-component measures are nil when
// undefined.
type Descriptor struct {
	Key                network.Key          `json:"key"`
	Nodes              int                  `json:"nodes"`
	Links              int                  `json:"links"`
	Clustering         float64              `json:"avg_clustering"`
	Components         int                  `json:"components"`
	GiantSize          int                  `json:"giant_size"`
	Density            *float64             `json:"density,omitempty"`
	AvgPathLength      *float64             `json:"avg_path_length,omitempty"`
	Diameter           *int                 `json:"diameter,omitempty"`
	ExpectedClustering *float64             `json:"expected_clustering,omitempty"`
	Rho                rankstat.Correlation `json:"rho"`
}

// RhoLabel renders the betweenness/eigenvector correlation with stars.
func (d Descriptor) RhoLabel() string { return d.Rho.Label() }

// Row returns the descriptor as ordered label/value cells for tables.
func (d Descriptor) Row() []string {
	opt := func(p *float64, decimals int) string {
		if p == nil {
			return ""
		}
		return strconv.FormatFloat(rankstat.Round(*p, decimals), 'f', -1, 64)
	}
	diam := ""
	if d.Diameter != nil {
		diam = strconv.Itoa(*d.Diameter)
	}
	return []string{
		strconv.Itoa(d.Key.Year),
		strconv.Itoa(d.Nodes),
		strconv.Itoa(d.Links),
		strconv.FormatFloat(rankstat.Round(d.Clustering, 3), 'f', -1, 64),
		strconv.Itoa(d.Components),
		strconv.Itoa(d.GiantSize),
		opt(d.Density, 4),
		opt(d.AvgPathLength, 2),
		diam,
		d.RhoLabel(),
	}
}

// DescriptorHeader names the cells returned by Descriptor.Row.
var DescriptorHeader = []string{
	"year", "nodes", "links", "avg_clustering", "components",
	"giant_size", "density", "avg_path_length", "diameter", "rho",
}

// Result is the engine output for one snapshot.
type Result struct {
	Key        network.Key `json:"key"`
	Records    []Record    `json:"records"`
	Descriptor Descriptor  `json:"descriptor"`
	Warnings   []string    `json:"warnings,omitempty"`
}

// Record returns the record for node p.
func (r *Result) Record(p network.PersonID) (Record, bool) {
	for _, rec := range r.Records {
		if rec.Node == p {
			return rec, true
		}
	}
	return Record{}, false
}
