package record

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/brunobiangulo/collabnet/network"
)

const sampleFeed = `{"data": [
  {"year": 2001, "journal": "AER", "title": "On Things",
   "authors": [{"label": "Ann", "scopus_id": 101, "phd": [{"label": "Prof", "scopus_id": "900"}]},
               {"label": "Bob Builder"}],
   "com": [{"label": "Cy", "scopus_id": "300"}, {"label": "Ann", "scopus_id": 101}],
   "dis": [{"label": "Di", "scopus_id": 400}, {"label": "Cy", "scopus_id": 300}],
   "sem": 2, "con": [{"label": "NBER"}]},
  {"year": "2002", "journal": "JPE",
   "authors": [{"label": ""}, {"label": "Eve", "scopus_id": 7}]},
  {"year": 2003, "journal": "",
   "authors": [{"label": "Fay"}]},
  {"year": 2003.5, "journal": "QJE", "authors": [{"label": "Gus"}]},
  {"year": 2004, "journal": "QJE", "authors": [{"label": "Hal", "scopus_id": "H-1"}]},
  "not an object"
]}`

func TestDecodeEvents(t *testing.T) {
	feed, err := DecodeEvents(context.Background(), "acks.json", strings.NewReader(sampleFeed))
	require.NoError(t, err)

	d := feed.Diagnostics
	assert.Equal(t, 6, d.Read)
	assert.Equal(t, 2, d.Kept)
	assert.Len(t, d.Skipped, 4)
	assert.Equal(t, 1, d.WithoutIdentity)
	for _, s := range d.Skipped {
		assert.Equal(t, "acks.json", s.Source)
	}

	require.Len(t, feed.Events, 2)
	ev := feed.Events[0]
	assert.Equal(t, 2001, ev.Year)
	assert.Equal(t, "AER", ev.Journal)
	assert.Equal(t, []network.PersonID{"101", "Bob Builder"}, ev.Authors)
	assert.Equal(t, []network.PersonID{"300", "101", "400", "900"}, ev.Commenters)
	assert.Equal(t, []network.PersonID{"400", "300"}, ev.Discussants)
	assert.True(t, ev.HasSeminar)
	assert.Equal(t, 2, ev.Seminars)
	assert.True(t, ev.HasConference)
	assert.Equal(t, 1, ev.Conferences)
	assert.True(t, ev.HasAcknowledgement())

	ev = feed.Events[1]
	assert.Equal(t, 2002, ev.Year)
	assert.Equal(t, []network.PersonID{"7"}, ev.Authors)
	assert.False(t, ev.HasAcknowledgement())
}

func TestDecodeEventsBareArray(t *testing.T) {
	feed, err := DecodeEvents(context.Background(), "x", strings.NewReader(
		`[{"year": 1999, "journal": "RES", "authors": [{"label": "A", "scopus_id": 12345.0}]}]`))
	require.NoError(t, err)
	require.Len(t, feed.Events, 1)
	assert.Equal(t, []network.PersonID{"12345"}, feed.Events[0].Authors)
}

func TestDecodeEventsRejectsGarbage(t *testing.T) {
	_, err := DecodeEvents(context.Background(), "x", strings.NewReader(`{"data": `))
	assert.Error(t, err)
}

func TestUpstreamErrorIs(t *testing.T) {
	err := error(&UpstreamError{Source: "a", Index: 3, Reason: "bad"})
	assert.ErrorIs(t, err, ErrUpstreamData)
	assert.Contains(t, err.Error(), "a[3]")
}

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

const tenureCSV = `journal,year,scopus_id,managing_editor
AER,2000,111,1
AER,2001,111.0,1
AER,2001,222,0
JPE,2001,,1
JPE,2001,abc,1
JPE,20x1,333,1
`

func TestCSVTenures(t *testing.T) {
	p := writeFile(t, t.TempDir(), "list.csv", tenureCSV)
	feed, err := (&CSVTenureReader{}).ReadTenures(context.Background(), p)
	require.NoError(t, err)

	assert.Len(t, feed.Tenures, 3)
	assert.Equal(t, 1, feed.Diagnostics.WithoutIdentity)
	assert.Len(t, feed.Diagnostics.Skipped, 2)

	idx := NewEditorIndex(feed.Tenures)
	assert.Equal(t, 2, idx.Len())
	assert.True(t, idx.IsManagingEditor("AER", 2000, "111"))
	assert.True(t, idx.IsManagingEditor("AER", 2001, "111"))
	assert.False(t, idx.IsManagingEditor("AER", 2001, "222"))
	assert.False(t, idx.IsManagingEditor("JPE", 2001, "111"))

	var nilIdx *EditorIndex
	assert.False(t, nilIdx.IsManagingEditor("AER", 2000, "111"))
}

func TestCSVTenuresMissingColumn(t *testing.T) {
	p := writeFile(t, t.TempDir(), "list.csv", "journal,year\nAER,2000\n")
	_, err := (&CSVTenureReader{}).ReadTenures(context.Background(), p)
	assert.ErrorContains(t, err, "scopus_id")
}

func TestXLSXTenures(t *testing.T) {
	p := filepath.Join(t.TempDir(), "list.xlsx")
	f := excelize.NewFile()
	rows := [][]any{
		{"journal", "year", "scopus_id", "managing_editor"},
		{"QJE", 2005, 555, 1},
		{"QJE", 2005, 556, 0},
	}
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &r))
	}
	require.NoError(t, f.SaveAs(p))
	require.NoError(t, f.Close())

	reg := NewRegistry()
	tr, err := reg.Tenures(FormatOf(p))
	require.NoError(t, err)
	feed, err := tr.ReadTenures(context.Background(), p)
	require.NoError(t, err)
	require.Len(t, feed.Tenures, 2)

	idx := NewEditorIndex(feed.Tenures)
	assert.True(t, idx.IsManagingEditor("QJE", 2005, "555"))
	assert.False(t, idx.IsManagingEditor("QJE", 2005, "556"))
}

func TestRegistryReadEventsGlob(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b/2002.json", `[{"year": 2002, "journal": "AER", "authors": [{"label": "B"}]}]`)
	writeFile(t, dir, "a/2001.json", `[{"year": 2001, "journal": "AER", "authors": [{"label": "A"}]}]`)
	writeFile(t, dir, "a/notes.txt", `ignored`)

	reg := NewRegistry()
	feed, err := reg.ReadEvents(context.Background(), filepath.Join(dir, "**", "*.json"))
	require.NoError(t, err)
	require.Len(t, feed.Events, 2)
	assert.Equal(t, 2001, feed.Events[0].Year)
	assert.Equal(t, 2002, feed.Events[1].Year)
	assert.Equal(t, 2, feed.Diagnostics.Read)

	_, err = reg.ReadEvents(context.Background(), filepath.Join(dir, "*.yaml"))
	assert.Error(t, err)

	_, err = reg.Events("pdf")
	assert.Error(t, err)
}
