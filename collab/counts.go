// Package collab measures informal collaboration per person and year:
// acknowledgement counts, author/commenter pairs, reciprocity and pure
// role sets.
package collab

import (
	"sort"

	"github.com/brunobiangulo/collabnet/network"
)

// PersonYear addresses one person in one publication year.
type PersonYear struct {
	Person network.PersonID `json:"node"`
	Year   int              `json:"year"`
}

// Counts are the informal collaboration counts of one person in one year.
// Author-side fields sum over the person's acknowledged papers; the *N
// variants divide each paper's count by its number of authors.
type Counts struct {
	NumAuth  float64 `json:"num_auth"`
	NumCom   float64 `json:"num_com"`
	NumDis   float64 `json:"num_dis"`
	NumCon   float64 `json:"num_con"`
	NumSem   float64 `json:"num_sem"`
	NumPaper float64 `json:"num_paper"`
	NumComN  float64 `json:"num_com_n"`
	NumDisN  float64 `json:"num_dis_n"`
	NumConN  float64 `json:"num_con_n"`
	NumSemN  float64 `json:"num_sem_n"`
	ComGiven float64 `json:"com_given"`
	DisGiven float64 `json:"dis_given"`
}

// Variables lists the count names in output order.
var Variables = []string{
	"com_given", "dis_given", "num_auth", "num_com", "num_com_n", "num_con",
	"num_con_n", "num_dis", "num_dis_n", "num_paper", "num_sem", "num_sem_n",
}

func (c *Counts) values() []float64 {
	return []float64{
		c.ComGiven, c.DisGiven, c.NumAuth, c.NumCom, c.NumComN, c.NumCon,
		c.NumConN, c.NumDis, c.NumDisN, c.NumPaper, c.NumSem, c.NumSemN,
	}
}

// Table holds counts keyed by person and year.
type Table map[PersonYear]*Counts

func (t Table) at(p network.PersonID, year int) *Counts {
	k := PersonYear{Person: p, Year: year}
	c, ok := t[k]
	if !ok {
		c = &Counts{}
		t[k] = c
	}
	return c
}

// Count tallies every event that carries an acknowledgement signal. No
// editor filtering is applied here.
func Count(events []network.Event) Table {
	t := make(Table)
	for _, ev := range events {
		if !ev.HasAcknowledgement() {
			continue
		}
		authors := network.DistinctAuthors(ev)
		if len(authors) == 0 {
			continue
		}
		n := float64(len(authors))
		com := float64(len(ev.Commenters))
		dis := float64(len(ev.Discussants))
		con := float64(ev.Conferences)
		sem := float64(ev.Seminars)
		for _, a := range authors {
			c := t.at(a, ev.Year)
			c.NumAuth += n
			c.NumCom += com
			c.NumDis += dis
			c.NumCon += con
			c.NumSem += sem
			c.NumPaper++
			c.NumComN += com / n
			c.NumDisN += dis / n
			c.NumConN += con / n
			c.NumSemN += sem / n
		}
		for _, p := range ev.Commenters {
			t.at(p, ev.Year).ComGiven++
		}
		for _, p := range ev.Discussants {
			t.at(p, ev.Year).DisGiven++
		}
	}
	return t
}

// Keys returns the table keys ordered by person, then year.
func (t Table) Keys() []PersonYear {
	keys := make([]PersonYear, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if c := network.ComparePersons(keys[i].Person, keys[j].Person); c != 0 {
			return c < 0
		}
		return keys[i].Year < keys[j].Year
	})
	return keys
}

// YearRange returns the smallest and largest year in the table.
func (t Table) YearRange() (lo, hi int, ok bool) {
	for k := range t {
		if !ok || k.Year < lo {
			lo = k.Year
		}
		if !ok || k.Year > hi {
			hi = k.Year
		}
		ok = true
	}
	return lo, hi, ok
}

// LongRow is one (node, variable, year, value) entry.
type LongRow struct {
	PersonYear
	Variable string  `json:"variable"`
	Value    float64 `json:"value"`
}

// Long flattens the table, omitting zero counts.
func (t Table) Long() []LongRow {
	var rows []LongRow
	for _, k := range t.Keys() {
		for i, v := range t[k].values() {
			if v == 0 {
				continue
			}
			rows = append(rows, LongRow{PersonYear: k, Variable: Variables[i], Value: v})
		}
	}
	return rows
}

// GivenSeries returns, for every person in the table and every year in the
// table's range, the number of acknowledgements given over the trailing
// window of years ending in that year. Years whose window would reach
// before the first observed year are left out. window <= 1 yields the plain
// yearly count.
func GivenSeries(t Table, window int) map[PersonYear]float64 {
	if window < 1 {
		window = 1
	}
	lo, hi, ok := t.YearRange()
	out := make(map[PersonYear]float64)
	if !ok {
		return out
	}
	persons := make(map[network.PersonID]struct{})
	for k := range t {
		persons[k.Person] = struct{}{}
	}
	for p := range persons {
		for y := lo + window - 1; y <= hi; y++ {
			var sum float64
			for k := 0; k < window; k++ {
				if c, ok := t[PersonYear{Person: p, Year: y - k}]; ok {
					sum += c.ComGiven
				}
			}
			out[PersonYear{Person: p, Year: y}] = sum
		}
	}
	return out
}
