package collab

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brunobiangulo/collabnet/network"
)

func ids(ss ...string) []network.PersonID {
	out := make([]network.PersonID, len(ss))
	for i, s := range ss {
		out[i] = network.PersonID(s)
	}
	return out
}

type editors map[network.PersonID]int

func (e editors) IsManagingEditor(_ string, year int, p network.PersonID) bool {
	y, ok := e[p]
	return ok && y == year
}

func TestCount(t *testing.T) {
	events := []network.Event{
		{Year: 2000, Journal: "AER", Authors: ids("1", "2"), Commenters: ids("3", "4"),
			Discussants: ids("4"), Seminars: 3, HasSeminar: true},
		{Year: 2000, Journal: "AER", Authors: ids("1"), Commenters: ids("3")},
		{Year: 2001, Journal: "AER", Authors: ids("1"), Conferences: 1, HasConference: true},
		{Year: 2001, Journal: "AER", Authors: ids("5")},
	}
	tbl := Count(events)

	c := tbl[PersonYear{Person: "1", Year: 2000}]
	require.NotNil(t, c)
	assert.Equal(t, 2.0, c.NumPaper)
	assert.Equal(t, 3.0, c.NumAuth)
	assert.Equal(t, 3.0, c.NumCom)
	assert.Equal(t, 2.0, c.NumComN)
	assert.Equal(t, 1.5, c.NumSemN)
	assert.Equal(t, 0.5, c.NumDisN)

	assert.Equal(t, 2.0, tbl[PersonYear{Person: "3", Year: 2000}].ComGiven)
	assert.Equal(t, 1.0, tbl[PersonYear{Person: "4", Year: 2000}].DisGiven)
	assert.Equal(t, 1.0, tbl[PersonYear{Person: "1", Year: 2001}].NumConN)
	assert.NotContains(t, tbl, PersonYear{Person: "5", Year: 2001}, "no acknowledgement")

	lo, hi, ok := tbl.YearRange()
	assert.True(t, ok)
	assert.Equal(t, 2000, lo)
	assert.Equal(t, 2001, hi)

	keys := tbl.Keys()
	assert.Equal(t, PersonYear{Person: "1", Year: 2000}, keys[0])
	assert.Equal(t, PersonYear{Person: "1", Year: 2001}, keys[1])

	for _, r := range tbl.Long() {
		assert.NotZero(t, r.Value)
	}
}

func TestGivenSeries(t *testing.T) {
	tbl := Table{
		{Person: "3", Year: 2000}: {ComGiven: 1},
		{Person: "3", Year: 2001}: {ComGiven: 2},
		{Person: "3", Year: 2003}: {ComGiven: 4},
		{Person: "4", Year: 2002}: {ComGiven: 8},
	}
	rolling := GivenSeries(tbl, 3)
	assert.Equal(t, 3.0, rolling[PersonYear{Person: "3", Year: 2002}])
	assert.Equal(t, 6.0, rolling[PersonYear{Person: "3", Year: 2003}])
	assert.Equal(t, 8.0, rolling[PersonYear{Person: "4", Year: 2003}])
	assert.NotContains(t, rolling, PersonYear{Person: "3", Year: 2001}, "incomplete window")

	yearly := GivenSeries(tbl, 0)
	assert.Equal(t, 2.0, yearly[PersonYear{Person: "3", Year: 2001}])
	assert.Equal(t, 0.0, yearly[PersonYear{Person: "3", Year: 2002}])
	assert.Len(t, yearly, 8)
}

func TestInformalPairs(t *testing.T) {
	events := []network.Event{
		{Year: 2001, Journal: "AER", Authors: ids("2", "1"), Commenters: ids("3", "1", "9")},
		{Year: 2000, Journal: "AER", Authors: ids("1"), Commenters: ids("3")},
		{Year: 2000, Journal: "JPE", Authors: ids("1"), Commenters: ids("3")},
	}
	pairs := InformalPairs(events, editors{"9": 2000})
	assert.Equal(t, []Pair{
		{Author: "1", Commenter: "3", Year: 2000},
		{Author: "1", Commenter: "3", Year: 2001},
		{Author: "2", Commenter: "1", Year: 2001},
		{Author: "2", Commenter: "3", Year: 2001},
	}, pairs)
}

func TestReciprocity(t *testing.T) {
	events := []network.Event{
		// 3 co-authored with 1 elsewhere; 1 acknowledged 3 on 3's own paper.
		{Year: 2001, Journal: "AER", Authors: ids("1", "2"), Commenters: ids("3")},
		{Year: 2001, Journal: "AER", Authors: ids("3", "1")},
		{Year: 2002, Journal: "AER", Authors: ids("3", "4"), Commenters: ids("1")},
		// 7 never authored anything.
		{Year: 2002, Journal: "JPE", Authors: ids("5"), Commenters: ids("7")},
		{Year: 2002, Journal: "JPE", Authors: ids("8")},
	}
	res, err := network.Build(context.Background(), events, nil, network.Options{Window: 1, MinYear: 2001, MaxYear: 2002})
	require.NoError(t, err)
	var authorNets []*network.Snapshot
	for _, k := range res.Manifest {
		if k.Kind == network.KindAuthor {
			authorNets = append(authorNets, res.Snapshots[k])
		}
	}

	st := Reciprocity(events, nil, authorNets)
	assert.Equal(t, 3, st.Papers)
	assert.Equal(t, 2, st.CoauthorRealized)
	assert.Equal(t, 2, st.CoauthorPotential)
	assert.Equal(t, 2, st.CommentRealized)
	assert.Equal(t, 2, st.CommentPotential)
	assert.Equal(t, 2, st.AnyRealized)
	assert.Equal(t, 2, st.AnyPotential)

	roles := PureRoles(res.Snapshots)
	assert.Equal(t, ids("7"), roles.PureCommenters)
	// Acknowledged authors are commenter-network nodes too.
	assert.Equal(t, ids("8"), roles.PureAuthors)
}
