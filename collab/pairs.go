package collab

import (
	"sort"

	"github.com/brunobiangulo/collabnet/network"
)

// Pair links an author to one of their commenters in a publication year.
type Pair struct {
	Author    network.PersonID `json:"author"`
	Commenter network.PersonID `json:"commenter"`
	Year      int              `json:"year"`
}

// InformalPairs lists the distinct (author, commenter, year) combinations
// after editor filtering, ordered by year, author and commenter. A person
// is never paired with themself.
func InformalPairs(events []network.Event, editors network.EditorFilter) []Pair {
	seen := make(map[Pair]struct{})
	for _, ev := range events {
		coms, _ := network.FilterCommenters(ev, editors)
		for _, a := range network.DistinctAuthors(ev) {
			for _, c := range coms {
				if a == c {
					continue
				}
				seen[Pair{Author: a, Commenter: c, Year: ev.Year}] = struct{}{}
			}
		}
	}
	pairs := make([]Pair, 0, len(seen))
	for p := range seen {
		pairs = append(pairs, p)
	}
	sort.Slice(pairs, func(i, j int) bool {
		a, b := pairs[i], pairs[j]
		if a.Year != b.Year {
			return a.Year < b.Year
		}
		if c := network.ComparePersons(a.Author, b.Author); c != 0 {
			return c < 0
		}
		return network.ComparePersons(a.Commenter, b.Commenter) < 0
	})
	return pairs
}

// ReciprocityStats count papers with reciprocal ties and papers where such
// a tie was possible at all.
type ReciprocityStats struct {
	Papers            int `json:"papers"`
	CoauthorRealized  int `json:"reci_auth_real"`
	CoauthorPotential int `json:"reci_auth_pot"`
	CommentRealized   int `json:"reci_com_real"`
	CommentPotential  int `json:"reci_com_pot"`
	AnyRealized       int `json:"reci_any_real"`
	AnyPotential      int `json:"reci_any_pot"`
}

// Reciprocity checks every event against the union of all author snapshots.
// Co-author reciprocity is realised when a commenter has co-authored with
// one of the paper's authors; comment reciprocity when one of the paper's
// authors acknowledged the commenter on the commenter's own work.
func Reciprocity(events []network.Event, editors network.EditorFilter, authorNets []*network.Snapshot) ReciprocityStats {
	coauthors := make(map[network.PersonID]map[network.PersonID]struct{})
	link := func(a, b network.PersonID) {
		if coauthors[a] == nil {
			coauthors[a] = make(map[network.PersonID]struct{})
		}
		coauthors[a][b] = struct{}{}
	}
	for _, s := range authorNets {
		for _, n := range s.Nodes() {
			if coauthors[n] == nil {
				coauthors[n] = make(map[network.PersonID]struct{})
			}
		}
		for _, e := range s.Edges() {
			link(e.From, e.To)
			link(e.To, e.From)
		}
	}

	type prepared struct {
		authors []network.PersonID
		coms    []network.PersonID
	}
	preps := make([]prepared, 0, len(events))
	// commentedBy maps an author to everyone who acknowledged them.
	commentedBy := make(map[network.PersonID]map[network.PersonID]struct{})
	for _, ev := range events {
		coms, _ := network.FilterCommenters(ev, editors)
		authors := network.DistinctAuthors(ev)
		preps = append(preps, prepared{authors: authors, coms: coms})
		for _, a := range authors {
			if commentedBy[a] == nil {
				commentedBy[a] = make(map[network.PersonID]struct{})
			}
			for _, c := range coms {
				commentedBy[a][c] = struct{}{}
			}
		}
	}

	var st ReciprocityStats
	for _, p := range preps {
		if len(p.coms) == 0 {
			continue
		}
		st.Papers++
		authorSet := make(map[network.PersonID]struct{}, len(p.authors))
		for _, a := range p.authors {
			authorSet[a] = struct{}{}
		}

		var coReal, coPot, comReal, comPot bool
		for _, c := range p.coms {
			nb, isAuthor := coauthors[c]
			if isAuthor && len(nb) > 0 {
				coPot = true
				for other := range nb {
					if _, ok := authorSet[other]; !ok {
						comPot = true
						break
					}
				}
			}
			for _, a := range p.authors {
				if _, ok := nb[a]; ok {
					coReal = true
				}
				if _, ok := commentedBy[c][a]; ok {
					comReal = true
				}
			}
		}
		if coReal {
			st.CoauthorRealized++
		}
		if coPot {
			st.CoauthorPotential++
		}
		if comReal {
			st.CommentRealized++
		}
		if comPot {
			st.CommentPotential++
		}
		if coReal || comReal {
			st.AnyRealized++
		}
		if coPot || comPot {
			st.AnyPotential++
		}
	}
	return st
}

// Roles splits everyone into commenter-only and author-only sets.
type Roles struct {
	PureCommenters []network.PersonID `json:"pure_commenters"`
	PureAuthors    []network.PersonID `json:"pure_authors"`
}

// PureRoles compares the nodes of all author snapshots with the nodes of
// all commenter snapshots.
func PureRoles(snaps map[network.Key]*network.Snapshot) Roles {
	authors := make(map[network.PersonID]struct{})
	commenters := make(map[network.PersonID]struct{})
	for k, s := range snaps {
		target := authors
		if k.Kind == network.KindCommenter {
			target = commenters
		}
		for _, n := range s.Nodes() {
			target[n] = struct{}{}
		}
	}
	var r Roles
	for c := range commenters {
		if _, ok := authors[c]; !ok {
			r.PureCommenters = append(r.PureCommenters, c)
		}
	}
	for a := range authors {
		if _, ok := commenters[a]; !ok {
			r.PureAuthors = append(r.PureAuthors, a)
		}
	}
	network.SortPersons(r.PureCommenters)
	network.SortPersons(r.PureAuthors)
	return r
}
