package network

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Kind identifies which of the two yearly networks a snapshot belongs to.
type Kind string

// Network kinds used in keys, file names and storage.
const (
	KindAuthor    Kind = "auth"
	KindCommenter Kind = "com"
)

// Kinds lists both network kinds in manifest order.
var Kinds = []Kind{KindAuthor, KindCommenter}

// Directed reports whether snapshots of this kind carry ordered edges.
func (k Kind) Directed() bool { return k == KindCommenter }

// ParseKind accepts the short labels and their long aliases.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "auth", "author":
		return KindAuthor, nil
	case "com", "commenter":
		return KindCommenter, nil
	}
	return "", fmt.Errorf("unknown network kind %q", s)
}

// Key addresses one snapshot.
type Key struct {
	Year int  `json:"year" yaml:"year"`
	Kind Kind `json:"kind" yaml:"kind"`
}

func (k Key) String() string { return fmt.Sprintf("%d_%s", k.Year, k.Kind) }

// Less orders keys by year, then author before commenter.
func (k Key) Less(o Key) bool {
	if k.Year != o.Year {
		return k.Year < o.Year
	}
	return kindOrder(k.Kind) < kindOrder(o.Kind)
}

func kindOrder(k Kind) int {
	for i, kk := range Kinds {
		if kk == k {
			return i
		}
	}
	return len(Kinds)
}

// Manifest is the complete, sorted set of keys produced by a build.
// Downstream stages iterate it instead of rediscovering keys from storage.
type Manifest []Key

// Sort orders the manifest in place.
func (m Manifest) Sort() {
	sort.Slice(m, func(i, j int) bool { return m[i].Less(m[j]) })
}

// Years returns the distinct years in ascending order.
func (m Manifest) Years() []int {
	seen := make(map[int]bool)
	var years []int
	for _, k := range m {
		if !seen[k.Year] {
			seen[k.Year] = true
			years = append(years, k.Year)
		}
	}
	sort.Ints(years)
	return years
}

// Contains reports whether key k is part of the manifest.
func (m Manifest) Contains(k Key) bool {
	for _, kk := range m {
		if kk == k {
			return true
		}
	}
	return false
}

// PersonID is an opaque node identity: a stable numeric id when one exists,
// otherwise the literal display label.
type PersonID string

// Stable reports whether the id is a numeric identity rather than a label.
func (p PersonID) Stable() bool {
	if p == "" {
		return false
	}
	for _, r := range p {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// ComparePersons orders stable ids numerically before labels, labels
// lexicographically.
func ComparePersons(a, b PersonID) int {
	sa, sb := a.Stable(), b.Stable()
	switch {
	case sa && !sb:
		return -1
	case !sa && sb:
		return 1
	case sa && sb:
		na, errA := strconv.ParseUint(string(a), 10, 64)
		nb, errB := strconv.ParseUint(string(b), 10, 64)
		if errA == nil && errB == nil {
			switch {
			case na < nb:
				return -1
			case na > nb:
				return 1
			}
		}
	}
	return strings.Compare(string(a), string(b))
}

// SortPersons sorts ids in place using ComparePersons.
func SortPersons(ps []PersonID) {
	sort.Slice(ps, func(i, j int) bool { return ComparePersons(ps[i], ps[j]) < 0 })
}

// Pair is an edge endpoint pair. Undirected pairs are stored with From
// ordered before To; directed pairs keep commenter -> author order.
type Pair struct {
	From PersonID `json:"source"`
	To   PersonID `json:"target"`
}

// undirectedPair returns the canonical orientation of an unordered pair.
func undirectedPair(a, b PersonID) Pair {
	if ComparePersons(b, a) < 0 {
		a, b = b, a
	}
	return Pair{From: a, To: b}
}

// Event is one normalised collaboration record as consumed by the builder.
type Event struct {
	Year       int
	Journal    string
	Title      string
	Authors    []PersonID
	Commenters []PersonID
	// Discussants is the subset of Commenters that discussed the paper.
	Discussants   []PersonID
	HasSeminar    bool
	HasConference bool
	Seminars      int
	Conferences   int
}

// HasAcknowledgement reports whether the event carries any informal
// collaboration signal.
func (e Event) HasAcknowledgement() bool {
	return len(e.Commenters) > 0 || e.HasSeminar || e.HasConference
}
