package network

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultWindow is the number of consecutive target years an event feeds.
const DefaultWindow = 3

// EditorFilter reports whether a person held a managing-editor role for a
// journal in a given year.
type EditorFilter interface {
	IsManagingEditor(journal string, year int, p PersonID) bool
}

// Options configures Build.
type Options struct {
	Window      int
	MinYear     int
	MaxYear     int
	Concurrency int
}

func (o *Options) applyDefaults() {
	if o.Window <= 0 {
		o.Window = DefaultWindow
	}
	if o.Concurrency <= 0 {
		o.Concurrency = runtime.NumCPU()
	}
}

// TargetYears returns the snapshot years an event published in pubYear
// contributes to: [pubYear, pubYear+Window-1] clipped to
// [MinYear+Window-1, MaxYear].
func (o Options) TargetYears(pubYear int) []int {
	w := o.Window
	if w <= 0 {
		w = DefaultWindow
	}
	lo := max(pubYear, o.MinYear+w-1)
	hi := min(pubYear+w-1, o.MaxYear)
	if hi < lo {
		return nil
	}
	years := make([]int, 0, hi-lo+1)
	for y := lo; y <= hi; y++ {
		years = append(years, y)
	}
	return years
}

// BuildStats are the descriptive counts published alongside the networks.
type BuildStats struct {
	Articles         int         `json:"articles"`
	ArticlesWithAck  int         `json:"articles_with_ack"`
	ArticlesByYear   map[int]int `json:"articles_by_year"`
	WithAckByYear    map[int]int `json:"with_ack_by_year"`
	Authors          int         `json:"authors"`
	AuthorsStable    int         `json:"authors_stable"`
	Commenters       int         `json:"commenters"`
	CommentersStable int         `json:"commenters_stable"`
	Comments         int         `json:"comments"`
	CommentsStable   int         `json:"comments_stable"`
	Persons          int         `json:"persons"`
	PersonsStable    int         `json:"persons_stable"`
	EditorFiltered   int         `json:"editor_filtered"`
	SelfLinksDropped int         `json:"self_links_dropped"`
}

// Result is the output of Build.
type Result struct {
	Snapshots map[Key]*Snapshot
	Manifest  Manifest
	Stats     BuildStats
}

// prepared is an event after author deduplication and editor filtering.
type prepared struct {
	year       int
	journal    string
	authors    []PersonID
	commenters []PersonID
}

// Build accumulates the yearly author and commenter networks from events.
// Each (year, kind) accumulator is written by a single goroutine and frozen
// once all of its events have been applied.
func Build(ctx context.Context, events []Event, editors EditorFilter, opts Options) (*Result, error) {
	opts.applyDefaults()
	if opts.MaxYear < opts.MinYear {
		return nil, fmt.Errorf("network.Build: invalid year bound [%d, %d]", opts.MinYear, opts.MaxYear)
	}
	start := time.Now()

	stats := BuildStats{
		Articles:       len(events),
		ArticlesByYear: make(map[int]int),
		WithAckByYear:  make(map[int]int),
	}
	preps := make([]prepared, len(events))
	byYear := make(map[int][]int)

	authors := make(map[PersonID]struct{})
	commenters := make(map[PersonID]struct{})
	for i, ev := range events {
		p, filtered, err := prepare(ev, editors)
		if err != nil {
			return nil, err
		}
		preps[i] = p
		stats.EditorFiltered += filtered

		hasAck := len(p.commenters) > 0 || ev.HasSeminar || ev.HasConference
		if hasAck {
			stats.ArticlesWithAck++
		}
		for _, a := range p.authors {
			authors[a] = struct{}{}
		}
		for _, c := range p.commenters {
			commenters[c] = struct{}{}
			stats.Comments++
			if c.Stable() {
				stats.CommentsStable++
			}
		}

		selfLinks := 0
		for _, c := range p.commenters {
			for _, a := range p.authors {
				if c == a {
					selfLinks++
				}
			}
		}

		for _, y := range opts.TargetYears(p.year) {
			byYear[y] = append(byYear[y], i)
			stats.ArticlesByYear[y]++
			if hasAck {
				stats.WithAckByYear[y]++
			}
			stats.SelfLinksDropped += selfLinks
		}
	}

	persons := make(map[PersonID]struct{}, len(authors)+len(commenters))
	for a := range authors {
		persons[a] = struct{}{}
		stats.Authors++
		if a.Stable() {
			stats.AuthorsStable++
		}
	}
	for c := range commenters {
		persons[c] = struct{}{}
		stats.Commenters++
		if c.Stable() {
			stats.CommentersStable++
		}
	}
	for p := range persons {
		stats.Persons++
		if p.Stable() {
			stats.PersonsStable++
		}
	}

	years := make([]int, 0, len(byYear))
	for y := range byYear {
		years = append(years, y)
	}
	sort.Ints(years)

	var keys Manifest
	for _, y := range years {
		for _, k := range Kinds {
			keys = append(keys, Key{Year: y, Kind: k})
		}
	}

	slog.Info("network: building snapshots",
		"events", len(events), "years", len(years), "keys", len(keys),
		"window", opts.Window, "concurrency", opts.Concurrency)

	snaps := make([]*Snapshot, len(keys))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)
	for i, key := range keys {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			snap, err := accumulate(key, byYear[key.Year], preps)
			if err != nil {
				return err
			}
			snaps[i] = snap
			slog.Debug("network: snapshot frozen", "key", key.String(),
				"nodes", snap.NumNodes(), "edges", snap.NumEdges())
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("network.Build: %w", err)
	}

	res := &Result{
		Snapshots: make(map[Key]*Snapshot, len(keys)),
		Manifest:  keys,
		Stats:     stats,
	}
	for i, k := range keys {
		res.Snapshots[k] = snaps[i]
	}

	slog.Info("network: build complete",
		"snapshots", len(keys),
		"editor_filtered", stats.EditorFiltered,
		"self_links_dropped", stats.SelfLinksDropped,
		"elapsed", time.Since(start).Round(time.Millisecond))
	return res, nil
}

// prepare deduplicates authors, merges commenters and removes managing
// editors of the event's journal in the publication year and the year before.
func prepare(ev Event, editors EditorFilter) (prepared, int, error) {
	authors := dedupe(ev.Authors)
	if len(authors) == 0 {
		return prepared{}, 0, &IntegrityError{
			Key:    Key{Year: ev.Year, Kind: KindAuthor},
			Detail: fmt.Sprintf("event %q in %s references zero authors", ev.Title, ev.Journal),
		}
	}
	coms, filtered := FilterCommenters(ev, editors)
	return prepared{year: ev.Year, journal: ev.Journal, authors: authors, commenters: coms}, filtered, nil
}

// FilterCommenters returns the event's distinct commenters minus the
// managing editors of its journal in the publication year and the year
// before, together with the number removed. A nil filter removes nobody.
func FilterCommenters(ev Event, editors EditorFilter) ([]PersonID, int) {
	filtered := 0
	var coms []PersonID
	for _, c := range dedupe(ev.Commenters) {
		if editors != nil && (editors.IsManagingEditor(ev.Journal, ev.Year, c) ||
			editors.IsManagingEditor(ev.Journal, ev.Year-1, c)) {
			filtered++
			continue
		}
		coms = append(coms, c)
	}
	return coms, filtered
}

// DistinctAuthors returns the event's authors with duplicates and empty ids
// removed, in first-seen order.
func DistinctAuthors(ev Event) []PersonID { return dedupe(ev.Authors) }

func dedupe(ps []PersonID) []PersonID {
	seen := make(map[PersonID]struct{}, len(ps))
	out := make([]PersonID, 0, len(ps))
	for _, p := range ps {
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

// accumulate applies every contributing event to a fresh accumulator for key.
func accumulate(key Key, idx []int, preps []prepared) (*Snapshot, error) {
	acc := NewAccumulator(key)
	for _, i := range idx {
		p := preps[i]
		var err error
		switch key.Kind {
		case KindAuthor:
			err = addAuthorLinks(acc, p)
		case KindCommenter:
			err = addCommenterLinks(acc, p)
		}
		if err != nil {
			return nil, err
		}
	}
	return acc.Freeze()
}

// addAuthorLinks adds every author as a node and every unordered author
// pair with weight 1.
func addAuthorLinks(acc *Accumulator, p prepared) error {
	for _, a := range p.authors {
		acc.AddNode(a)
	}
	for i := 0; i < len(p.authors); i++ {
		for j := i + 1; j < len(p.authors); j++ {
			if err := acc.AddEdge(p.authors[i], p.authors[j], map[string]Value{
				AttrWeight:  Num(1.0),
				AttrJournal: Label(p.journal),
			}); err != nil {
				return err
			}
		}
	}
	return nil
}

// addCommenterLinks adds commenter -> author links weighted 1/|authors|.
// A person commenting on their own paper contributes no link.
func addCommenterLinks(acc *Accumulator, p prepared) error {
	w := 1.0 / float64(len(p.authors))
	for _, c := range p.commenters {
		acc.AddNode(c)
		for _, a := range p.authors {
			if c == a {
				continue
			}
			if err := acc.AddEdge(c, a, map[string]Value{
				AttrWeight:  Num(w),
				AttrJournal: Label(p.journal),
			}); err != nil {
				return err
			}
		}
	}
	return nil
}
