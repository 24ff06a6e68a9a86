package report

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/brunobiangulo/collabnet/centrality"
	"github.com/brunobiangulo/collabnet/network"
	"github.com/brunobiangulo/collabnet/ranking"
	"github.com/brunobiangulo/collabnet/rankstat"
)

func fp(v float64) *float64 { return &v }

func TestWriteWorkbook(t *testing.T) {
	auth := network.Key{Year: 2000, Kind: network.KindAuthor}
	com := network.Key{Year: 2000, Kind: network.KindCommenter}
	diam := 3
	tables := Tables{
		Descriptors: []centrality.Descriptor{
			{Key: auth, Nodes: 10, Links: 12, Clustering: 0.12345, Components: 2, GiantSize: 8,
				Density: fp(0.123456), AvgPathLength: fp(2.346), Diameter: &diam,
				Rho: rankstat.Correlation{Rho: 0.9, P: 0.03, N: 8, Defined: true}},
			{Key: com, Nodes: 4, Links: 0},
		},
		Centralities: map[network.Key][]centrality.LongRow{
			auth: {{Node: "1", Measure: centrality.MeasureDegree, Value: 2}, {Node: "2", Measure: centrality.MeasureDegree, Value: 1}},
			com:  {{Node: "1", Measure: centrality.MeasureInDegree, Value: 1}},
		},
		Rankings: []*ranking.Table{{
			K: 2,
			Columns: []ranking.Column{
				{Measure: ranking.ComGiven, Entries: []ranking.Entry{{Person: "1", Value: 5}, {Person: "2", Value: 3}}},
				{Measure: ranking.ComEigenvectorRank, Entries: []ranking.Entry{{Person: "2", Value: 1}}},
			},
		}},
		Correlations: []ranking.CorrelationPoint{
			{Year: 2000, Source: ranking.ComGiven, Target: ranking.ComEigenvectorRank, Rho: -0.5, P: 0.2, N: 9, Defined: true},
			{Year: 2000, Source: ranking.ComEigenvectorRank, Target: ranking.ComGiven, Rho: math.NaN(), P: math.NaN(), N: 2},
		},
		Diagnostics: []Fact{{Name: "records_read", Value: 42}},
	}

	path := filepath.Join(t.TempDir(), "out.xlsx")
	require.NoError(t, WriteWorkbook(path, tables))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, Sheets, f.GetSheetList())

	rows, err := f.GetRows(SheetNetworkAuth)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, centrality.DescriptorHeader, rows[0])
	assert.Equal(t, []string{"2000", "10", "12", "0.123", "2", "8", "0.1235", "2.35", "3", "0.90**"}, rows[1])

	rows, err = f.GetRows(SheetNetworkCom)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "n/a", rows[1][len(rows[1])-1])

	rows, err = f.GetRows(SheetCentrAuth)
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"year", "node", "centrality", "value"},
		{"2000", "1", "degree", "2"},
		{"2000", "2", "degree", "1"},
	}, rows)

	rows, err = f.GetRows(SheetRanking)
	require.NoError(t, err)
	assert.Equal(t, []string{"window", "all years"}, rows[0])
	assert.Equal(t, []string{"rank", "com_given", "value", "com_eigenvector_rank", "value"}, rows[1])
	assert.Equal(t, []string{"1", "1", "5", "2", "1"}, rows[2])
	assert.Equal(t, []string{"2", "2", "3"}, rows[3])

	rows, err = f.GetRows(SheetCorrelations)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "-0.5", rows[1][3])
	assert.Equal(t, "", rows[2][3])

	v, err := f.GetCellValue(SheetDiagnostics, "B2")
	require.NoError(t, err)
	assert.Equal(t, "42", v)
}
