package network

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type editorSet map[string]bool

func (e editorSet) IsManagingEditor(journal string, year int, p PersonID) bool {
	return e[fmt.Sprintf("%s|%d|%s", journal, year, p)]
}

func ids(ss ...string) []PersonID {
	out := make([]PersonID, len(ss))
	for i, s := range ss {
		out[i] = PersonID(s)
	}
	return out
}

func TestBuildSingleEventAcrossWindow(t *testing.T) {
	events := []Event{{Year: 2000, Journal: "AER", Authors: ids("1", "2"), Commenters: ids("3")}}
	// The first snapshot year is MinYear+Window-1, so MinYear 1998 yields
	// snapshots for 2000 through 2002.
	res, err := Build(context.Background(), events, nil, Options{Window: 3, MinYear: 1998, MaxYear: 2002})
	require.NoError(t, err)

	for _, y := range []int{2000, 2001, 2002} {
		auth := res.Snapshots[Key{Year: y, Kind: KindAuthor}]
		require.NotNil(t, auth, "author snapshot %d", y)
		e, ok := auth.Edge("1", "2")
		require.True(t, ok)
		assert.Equal(t, 1.0, e.Weight)
		assert.Equal(t, []string{"AER"}, e.Journals)

		com := res.Snapshots[Key{Year: y, Kind: KindCommenter}]
		require.NotNil(t, com, "commenter snapshot %d", y)
		for _, a := range []PersonID{"1", "2"} {
			e, ok := com.Edge("3", a)
			require.True(t, ok, "edge 3->%s in %d", a, y)
			assert.Equal(t, 0.5, e.Weight)
		}
		_, ok = com.Edge("1", "3")
		assert.False(t, ok, "commenter edges are directed")
	}
	assert.Len(t, res.Manifest, 6)
	assert.Equal(t, []int{2000, 2001, 2002}, res.Manifest.Years())
}

func TestBuildSingleEventLiteralBound(t *testing.T) {
	// With the bound [2000, 2002] the first snapshot year is 2000+3-1.
	events := []Event{{Year: 2000, Journal: "AER", Authors: ids("1", "2"), Commenters: ids("3")}}
	res, err := Build(context.Background(), events, nil, Options{Window: 3, MinYear: 2000, MaxYear: 2002})
	require.NoError(t, err)

	assert.Equal(t, Manifest{{Year: 2002, Kind: KindAuthor}, {Year: 2002, Kind: KindCommenter}}, res.Manifest)
	e, ok := res.Snapshots[Key{Year: 2002, Kind: KindAuthor}].Edge("1", "2")
	require.True(t, ok)
	assert.Equal(t, 1.0, e.Weight)
	e, ok = res.Snapshots[Key{Year: 2002, Kind: KindCommenter}].Edge("3", "1")
	require.True(t, ok)
	assert.Equal(t, 0.5, e.Weight)
}

func TestCommenterWeightConservation(t *testing.T) {
	events := []Event{{Year: 2005, Journal: "JPE", Authors: ids("A", "B", "C"), Commenters: ids("X")}}
	res, err := Build(context.Background(), events, nil, Options{Window: 1, MinYear: 2005, MaxYear: 2005})
	require.NoError(t, err)

	com := res.Snapshots[Key{Year: 2005, Kind: KindCommenter}]
	var total float64
	for _, a := range []PersonID{"A", "B", "C"} {
		e, ok := com.Edge("X", a)
		require.True(t, ok)
		assert.Equal(t, 1.0/3.0, e.Weight)
		total += e.Weight
	}
	assert.InDelta(t, 1.0, total, 1e-15)
}

func TestTargetYearsMatchesWindowFormula(t *testing.T) {
	opts := Options{Window: 3, MinYear: 1997, MaxYear: 2011}
	for p := 1990; p <= 2015; p++ {
		want := min(p+opts.Window-1, opts.MaxYear) - max(p, opts.MinYear+opts.Window-1) + 1
		if want < 0 {
			want = 0
		}
		got := opts.TargetYears(p)
		assert.Len(t, got, want, "publication year %d", p)
		for _, y := range got {
			assert.GreaterOrEqual(t, y, p)
			assert.GreaterOrEqual(t, y, opts.MinYear+opts.Window-1)
			assert.LessOrEqual(t, y, opts.MaxYear)
		}
	}
}

func TestEditorsAreExcludedAsCommenters(t *testing.T) {
	editors := editorSet{
		"AER|2004|ed1": true, // previous year
		"AER|2005|ed2": true, // same year
		"JPE|2005|ed3": true, // other journal
		"AER|2003|ed4": true, // too early
	}
	events := []Event{{
		Year: 2005, Journal: "AER",
		Authors:    ids("a1", "a2"),
		Commenters: ids("ed1", "ed2", "ed3", "ed4", "c1"),
	}}
	res, err := Build(context.Background(), events, editors, Options{Window: 1, MinYear: 2005, MaxYear: 2005})
	require.NoError(t, err)

	com := res.Snapshots[Key{Year: 2005, Kind: KindCommenter}]
	sources := map[PersonID]bool{}
	for _, e := range com.Edges() {
		sources[e.From] = true
	}
	assert.False(t, sources["ed1"])
	assert.False(t, sources["ed2"])
	assert.True(t, sources["ed3"])
	assert.True(t, sources["ed4"])
	assert.True(t, sources["c1"])
	assert.Equal(t, 2, res.Stats.EditorFiltered)
}

func TestSelfCommentIsDroppedNotLooped(t *testing.T) {
	events := []Event{
		{Year: 2001, Journal: "QJE", Authors: ids("7"), Commenters: ids("7")},
		{Year: 2001, Journal: "QJE", Authors: ids("7", "8"), Commenters: ids("7")},
	}
	res, err := Build(context.Background(), events, nil, Options{Window: 1, MinYear: 2001, MaxYear: 2001})
	require.NoError(t, err)

	for _, k := range res.Manifest {
		assert.Empty(t, res.Snapshots[k].SelfLoops(), k.String())
	}
	com := res.Snapshots[Key{Year: 2001, Kind: KindCommenter}]
	e, ok := com.Edge("7", "8")
	require.True(t, ok)
	assert.Equal(t, 0.5, e.Weight)
	assert.Equal(t, 2, res.Stats.SelfLinksDropped)
}

func TestSoleAuthorGetsIsolatedNode(t *testing.T) {
	events := []Event{{Year: 2003, Journal: "RES", Authors: ids("5")}}
	res, err := Build(context.Background(), events, nil, Options{Window: 1, MinYear: 2003, MaxYear: 2003})
	require.NoError(t, err)

	auth := res.Snapshots[Key{Year: 2003, Kind: KindAuthor}]
	assert.Equal(t, []PersonID{"5"}, auth.Nodes())
	assert.Zero(t, auth.NumEdges())

	com := res.Snapshots[Key{Year: 2003, Kind: KindCommenter}]
	require.NotNil(t, com)
	assert.Zero(t, com.NumNodes(), "no acknowledgement means no commenter contribution")
}

func TestZeroAuthorEventIsIntegrityError(t *testing.T) {
	events := []Event{{Year: 2003, Journal: "RES", Commenters: ids("9")}}
	_, err := Build(context.Background(), events, nil, Options{Window: 1, MinYear: 2003, MaxYear: 2003})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDataIntegrity))
}

func TestFreezeRejectsSelfLoop(t *testing.T) {
	acc := NewAccumulator(Key{Year: 2000, Kind: KindCommenter})
	require.NoError(t, acc.AddEdge("1", "1", map[string]Value{AttrWeight: Num(1)}))
	_, err := acc.Freeze()
	var ie *IntegrityError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, 2000, ie.Key.Year)
	assert.ErrorIs(t, err, ErrDataIntegrity)
}

func TestJournalsMergeAsSetAndWeightsSum(t *testing.T) {
	events := []Event{
		{Year: 2002, Journal: "AER", Authors: ids("1", "2")},
		{Year: 2002, Journal: "AER", Authors: ids("2", "1")},
		{Year: 2002, Journal: "JPE", Authors: ids("1", "2", "2")},
	}
	res, err := Build(context.Background(), events, nil, Options{Window: 1, MinYear: 2002, MaxYear: 2002})
	require.NoError(t, err)

	e, ok := res.Snapshots[Key{Year: 2002, Kind: KindAuthor}].Edge("2", "1")
	require.True(t, ok)
	assert.Equal(t, 3.0, e.Weight)
	assert.Equal(t, []string{"AER", "JPE"}, e.Journals)
}

func TestBuildIsOrderIndependent(t *testing.T) {
	var events []Event
	for i := 0; i < 60; i++ {
		n := 1 + i%7
		authors := make([]PersonID, n)
		for j := range authors {
			authors[j] = PersonID(fmt.Sprint(100 + (i+j)%11))
		}
		events = append(events, Event{
			Year:       1999 + i%5,
			Journal:    []string{"AER", "JPE", "QJE"}[i%3],
			Authors:    authors,
			Commenters: ids(fmt.Sprint(200+i%4), fmt.Sprint(100+i%3)),
		})
	}
	opts := Options{Window: 3, MinYear: 1997, MaxYear: 2005}

	first, err := Build(context.Background(), events, nil, opts)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(42))
	for round := 0; round < 5; round++ {
		shuffled := append([]Event(nil), events...)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		again, err := Build(context.Background(), shuffled, nil, opts)
		require.NoError(t, err)
		require.Equal(t, first.Manifest, again.Manifest)
		for _, k := range first.Manifest {
			assert.Equal(t, first.Snapshots[k].Fingerprint(), again.Snapshots[k].Fingerprint(), k.String())
			assert.Equal(t, first.Snapshots[k].Edges(), again.Snapshots[k].Edges(), k.String())
		}
	}
}

func TestBuildStats(t *testing.T) {
	events := []Event{
		{Year: 2000, Journal: "AER", Authors: ids("1", "Jane Doe"), Commenters: ids("3", "Bob")},
		{Year: 2001, Journal: "AER", Authors: ids("1"), HasSeminar: true},
		{Year: 2001, Journal: "AER", Authors: ids("4")},
	}
	res, err := Build(context.Background(), events, nil, Options{Window: 2, MinYear: 1999, MaxYear: 2001})
	require.NoError(t, err)

	st := res.Stats
	assert.Equal(t, 3, st.Articles)
	assert.Equal(t, 2, st.ArticlesWithAck)
	assert.Equal(t, map[int]int{2000: 1, 2001: 3}, st.ArticlesByYear)
	assert.Equal(t, map[int]int{2000: 1, 2001: 2}, st.WithAckByYear)
	assert.Equal(t, 3, st.Authors)
	assert.Equal(t, 2, st.AuthorsStable)
	assert.Equal(t, 2, st.Commenters)
	assert.Equal(t, 1, st.CommentersStable)
	assert.Equal(t, 5, st.Persons)
	assert.Equal(t, 3, st.PersonsStable)
}

func TestComparePersons(t *testing.T) {
	ps := ids("b", "10", "9", "a", "007")
	SortPersons(ps)
	assert.Equal(t, ids("007", "9", "10", "a", "b"), ps)
	assert.True(t, PersonID("123").Stable())
	assert.False(t, PersonID("12a").Stable())
	assert.False(t, PersonID("").Stable())
}
