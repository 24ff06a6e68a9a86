// Package ranking compares people across the yearly networks: a person-year
// panel of ranks and acknowledgement counts, top-K tables and rank
// correlations over time.
package ranking

import (
	"math"
	"sort"

	"github.com/brunobiangulo/collabnet/centrality"
	"github.com/brunobiangulo/collabnet/collab"
	"github.com/brunobiangulo/collabnet/network"
)

// Measure names one panel column.
type Measure string

const (
	ComGiven            Measure = "com_given"
	ComEigenvectorRank  Measure = "com_eigenvector_rank"
	ComBetweennessRank  Measure = "com_betweenness_rank"
	AuthEigenvectorRank Measure = "auth_eigenvector_rank"
	AuthBetweennessRank Measure = "auth_betweenness_rank"
)

// Measures is the fixed column order of the panel.
var Measures = []Measure{
	ComGiven, ComEigenvectorRank, ComBetweennessRank, AuthEigenvectorRank, AuthBetweennessRank,
}

// NumMeasures is len(Measures).
const NumMeasures = 5

// Ascending reports whether smaller values rank first. Ranks sort
// ascending, counts descending.
func (m Measure) Ascending() bool { return m != ComGiven }

func (m Measure) index() int {
	for i, mm := range Measures {
		if mm == m {
			return i
		}
	}
	return -1
}

// Row is one person in one year. Missing values are NaN.
type Row struct {
	Person network.PersonID
	Year   int
	Values [NumMeasures]float64
}

// Value returns the value of m.
func (r Row) Value(m Measure) float64 { return r.Values[m.index()] }

// Panel is the person-year table, ordered by person then year.
type Panel struct {
	Rows []Row
}

// Years returns the distinct panel years in ascending order.
func (p *Panel) Years() []int {
	seen := make(map[int]bool)
	var years []int
	for _, r := range p.Rows {
		if !seen[r.Year] {
			seen[r.Year] = true
			years = append(years, r.Year)
		}
	}
	sort.Ints(years)
	return years
}

// PanelOptions configures BuildPanel.
type PanelOptions struct {
	// StableOnly keeps persons with a numeric identity only.
	StableOnly bool
}

// BuildPanel joins centrality ranks of both networks with acknowledgement
// counts. A row exists for every person present in either network in a
// year; given supplies the count column and may be produced by
// collab.GivenSeries.
func BuildPanel(results map[network.Key]*centrality.Result, given map[collab.PersonYear]float64, opts PanelOptions) *Panel {
	rows := make(map[collab.PersonYear]*Row)
	row := func(p network.PersonID, year int) *Row {
		k := collab.PersonYear{Person: p, Year: year}
		r, ok := rows[k]
		if !ok {
			r = &Row{Person: p, Year: year}
			for i := range r.Values {
				r.Values[i] = math.NaN()
			}
			rows[k] = r
		}
		return r
	}

	for key, res := range results {
		eigCol, btwCol := AuthEigenvectorRank.index(), AuthBetweennessRank.index()
		if key.Kind == network.KindCommenter {
			eigCol, btwCol = ComEigenvectorRank.index(), ComBetweennessRank.index()
		}
		for _, rec := range res.Records {
			if opts.StableOnly && !rec.Node.Stable() {
				continue
			}
			r := row(rec.Node, key.Year)
			if rec.EigenvectorRank != nil {
				r.Values[eigCol] = float64(*rec.EigenvectorRank)
			}
			if rec.BetweennessRank != nil {
				r.Values[btwCol] = float64(*rec.BetweennessRank)
			}
		}
	}
	gi := ComGiven.index()
	for k, r := range rows {
		if v, ok := given[k]; ok {
			r.Values[gi] = v
		}
	}

	p := &Panel{Rows: make([]Row, 0, len(rows))}
	for _, r := range rows {
		p.Rows = append(p.Rows, *r)
	}
	sort.Slice(p.Rows, func(i, j int) bool {
		a, b := p.Rows[i], p.Rows[j]
		if c := network.ComparePersons(a.Person, b.Person); c != 0 {
			return c < 0
		}
		return a.Year < b.Year
	})
	return p
}
