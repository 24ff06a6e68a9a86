//go:build cgo

package collabnet

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/brunobiangulo/collabnet/network"
	"github.com/brunobiangulo/collabnet/report"
)

const pipelineEvents = `[
  {"year": 1999, "journal": "AER", "authors": [{"label": "A", "scopus_id": 1}, {"label": "B", "scopus_id": 2}],
   "com": [{"label": "C", "scopus_id": 3}]},
  {"year": 2000, "journal": "AER", "authors": [{"label": "B", "scopus_id": 2}, {"label": "C", "scopus_id": 3}],
   "com": [{"label": "A", "scopus_id": 1}, {"label": "D", "scopus_id": 4}]},
  {"year": 2000, "journal": "JPE", "authors": [{"label": "C", "scopus_id": 3}, {"label": "E", "scopus_id": 5}],
   "com": [{"label": "A", "scopus_id": 1}], "sem": 2},
  {"year": 2001, "journal": "QJE", "authors": [{"label": "A", "scopus_id": 1}, {"label": "E", "scopus_id": 5}],
   "com": [{"label": "B", "scopus_id": 2}, {"label": "C", "scopus_id": 3}]},
  {"year": 2001, "journal": "QJE", "authors": [{"label": "F", "scopus_id": 6}]},
  {"year": "x", "journal": "QJE", "authors": [{"label": "G"}]}
]`

const pipelineTenures = "journal,year,scopus_id,managing_editor\nAER,2000,4,1\n"

func testConfig(t *testing.T) Config {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "events.json"), []byte(pipelineEvents), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tenures.csv"), []byte(pipelineTenures), 0644))

	cfg := DefaultConfig()
	cfg.DBPath = filepath.Join(dir, "db", "collabnet.db")
	cfg.Events = filepath.Join(dir, "*.json")
	cfg.Tenures = filepath.Join(dir, "tenures.csv")
	cfg.GEXFDir = filepath.Join(dir, "gexf")
	cfg.Workbook = filepath.Join(dir, "report.xlsx")
	cfg.Window = 2
	cfg.MinYear = 1999
	cfg.MaxYear = 2001
	cfg.GivenWindow = 0
	return cfg
}

func TestPipelineRun(t *testing.T) {
	cfg := testConfig(t)
	p, err := New(cfg)
	require.NoError(t, err)
	defer p.Close()
	ctx := context.Background()

	res, err := p.Run(ctx)
	require.NoError(t, err)

	d := res.Diagnostics
	assert.Equal(t, 6, d.Events.Read)
	assert.Len(t, d.Events.Skipped, 1)
	assert.Equal(t, 1, d.Editors)
	assert.Equal(t, 1, d.Build.EditorFiltered)
	assert.Equal(t, 4, d.Snapshots)
	assert.Len(t, d.GEXFFiles, 4)
	assert.Empty(t, d.Failures)
	assert.Equal(t, 1, d.PureAuthors, "6 never commented or was acknowledged")

	want := network.Manifest{
		{Year: 2000, Kind: network.KindAuthor}, {Year: 2000, Kind: network.KindCommenter},
		{Year: 2001, Kind: network.KindAuthor}, {Year: 2001, Kind: network.KindCommenter},
	}
	assert.Equal(t, want, res.Networks.Manifest)

	stored, err := p.Store().Manifest(ctx, res.RunID)
	require.NoError(t, err)
	assert.Equal(t, want, stored)

	run, err := p.Store().GetRun(ctx, res.RunID)
	require.NoError(t, err)
	assert.Equal(t, "complete", run.Status)

	require.Len(t, res.Rankings, 1)
	assert.Equal(t, []int{2000, 2001}, res.Panel.Years())
	assert.Len(t, res.Correlations, 2*5*4)

	f, err := excelize.OpenFile(cfg.Workbook)
	require.NoError(t, err)
	assert.Equal(t, report.Sheets, f.GetSheetList())
	f.Close()

	exported := filepath.Join(t.TempDir(), "again.xlsx")
	require.NoError(t, p.ExportWorkbook(ctx, "", exported))
	_, err = os.Stat(exported)
	require.NoError(t, err)

	nbs, err := p.Similar(ctx, res.RunID, network.Key{Year: 2001, Kind: network.KindAuthor}, "3", 2)
	require.NoError(t, err)
	assert.Len(t, nbs, 2)
}

func TestPipelineRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Window = 0
	_, err := New(cfg)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestPipelineNoEvents(t *testing.T) {
	cfg := testConfig(t)
	p, err := New(cfg)
	require.NoError(t, err)
	defer p.Close()

	_, err = p.RunInput(context.Background(), &Input{})
	require.ErrorIs(t, err, ErrNoEvents)

	runs, err := p.Store().ListRuns(context.Background())
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "failed", runs[0].Status)
}
