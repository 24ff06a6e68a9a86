package ranking

import (
	"math"
	"sort"

	"github.com/brunobiangulo/collabnet/network"
	"github.com/brunobiangulo/collabnet/rankstat"
)

// DefaultTopK is the default number of rows per ranking column.
const DefaultTopK = 30

// Window selects the years averaged by TopK. The zero value covers every
// panel year.
type Window struct {
	From int `json:"from,omitempty"`
	To   int `json:"to,omitempty"`
}

func (w Window) contains(year int) bool {
	if w.From != 0 && year < w.From {
		return false
	}
	if w.To != 0 && year > w.To {
		return false
	}
	return true
}

// Entry is one ranked person with their averaged value.
type Entry struct {
	Person network.PersonID `json:"person"`
	Value  float64          `json:"value"`
}

// Column is the ranking of one measure.
type Column struct {
	Measure Measure `json:"measure"`
	Entries []Entry `json:"entries"`
}

// Table holds one independently sorted column per measure. Row i of two
// columns need not refer to the same person.
type Table struct {
	Window  Window   `json:"window"`
	K       int      `json:"k"`
	Columns []Column `json:"columns"`
}

// TopK averages each measure per person over the window, ignoring missing
// values, and keeps the best k persons per measure.
func TopK(p *Panel, w Window, k int) *Table {
	if k <= 0 {
		k = DefaultTopK
	}
	type acc struct {
		sum [NumMeasures]float64
		n   [NumMeasures]int
	}
	byPerson := make(map[network.PersonID]*acc)
	for _, r := range p.Rows {
		if !w.contains(r.Year) {
			continue
		}
		a, ok := byPerson[r.Person]
		if !ok {
			a = &acc{}
			byPerson[r.Person] = a
		}
		for i, v := range r.Values {
			if !math.IsNaN(v) {
				a.sum[i] += v
				a.n[i]++
			}
		}
	}

	t := &Table{Window: w, K: k}
	for mi, m := range Measures {
		var entries []Entry
		for person, a := range byPerson {
			if a.n[mi] == 0 {
				continue
			}
			entries = append(entries, Entry{Person: person, Value: a.sum[mi] / float64(a.n[mi])})
		}
		asc := m.Ascending()
		sort.Slice(entries, func(i, j int) bool {
			if entries[i].Value != entries[j].Value {
				if asc {
					return entries[i].Value < entries[j].Value
				}
				return entries[i].Value > entries[j].Value
			}
			return network.ComparePersons(entries[i].Person, entries[j].Person) < 0
		})
		if len(entries) > k {
			entries = entries[:k]
		}
		t.Columns = append(t.Columns, Column{Measure: m, Entries: entries})
	}
	return t
}

// CorrelationPoint is one measure pair in one year.
type CorrelationPoint struct {
	Year    int     `json:"year"`
	Source  Measure `json:"source"`
	Target  Measure `json:"var"`
	Rho     float64 `json:"spearman"`
	P       float64 `json:"p"`
	N       int     `json:"n"`
	Defined bool    `json:"defined"`
	Stars   string  `json:"stars,omitempty"`
}

// CorrelationSeries computes, for every panel year, Spearman's rho between
// every ordered pair of distinct measures over pairwise-complete rows,
// rounded to two decimals.
func CorrelationSeries(p *Panel) []CorrelationPoint {
	byYear := make(map[int][]Row)
	for _, r := range p.Rows {
		byYear[r.Year] = append(byYear[r.Year], r)
	}
	var out []CorrelationPoint
	for _, year := range p.Years() {
		rows := byYear[year]
		cols := make([][]float64, NumMeasures)
		for i := range cols {
			cols[i] = make([]float64, len(rows))
			for j, r := range rows {
				cols[i][j] = r.Values[i]
			}
		}
		for si, src := range Measures {
			for ti, tgt := range Measures {
				if si == ti {
					continue
				}
				c := rankstat.Spearman(cols[si], cols[ti])
				pt := CorrelationPoint{Year: year, Source: src, Target: tgt, N: c.N, Defined: c.Defined}
				if c.Defined {
					pt.Rho = rankstat.Round(c.Rho, 2)
					pt.P = c.P
					pt.Stars = c.Stars()
				} else {
					pt.Rho = math.NaN()
					pt.P = math.NaN()
				}
				out = append(out, pt)
			}
		}
	}
	return out
}
