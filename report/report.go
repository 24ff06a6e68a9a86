// Package report writes the result tables of a run to an xlsx workbook.
package report

import (
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/xuri/excelize/v2"

	"github.com/brunobiangulo/collabnet/centrality"
	"github.com/brunobiangulo/collabnet/network"
	"github.com/brunobiangulo/collabnet/ranking"
)

// Sheet names.
const (
	SheetNetworkAuth  = "network_auth"
	SheetNetworkCom   = "network_com"
	SheetCentrAuth    = "centr_auth"
	SheetCentrCom     = "centr_com"
	SheetRanking      = "ranking"
	SheetCorrelations = "correlations"
	SheetDiagnostics  = "diagnostics"
)

// Sheets lists the workbook sheets in order.
var Sheets = []string{
	SheetNetworkAuth, SheetNetworkCom, SheetCentrAuth, SheetCentrCom,
	SheetRanking, SheetCorrelations, SheetDiagnostics,
}

// Fact is one labelled diagnostic value.
type Fact struct {
	Name  string
	Value any
}

// Tables is everything the workbook renders.
type Tables struct {
	Descriptors  []centrality.Descriptor
	Centralities map[network.Key][]centrality.LongRow
	Rankings     []*ranking.Table
	Correlations []ranking.CorrelationPoint
	Diagnostics  []Fact
}

// WriteWorkbook writes t to path, replacing any existing file.
func WriteWorkbook(path string, t Tables) error {
	f := excelize.NewFile()
	defer f.Close()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("creating header style: %w", err)
	}

	for i, name := range Sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				return err
			}
			continue
		}
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("creating sheet %s: %w", name, err)
		}
	}

	w := &writer{f: f, header: bold}
	w.descriptors(SheetNetworkAuth, network.KindAuthor, t.Descriptors)
	w.descriptors(SheetNetworkCom, network.KindCommenter, t.Descriptors)
	w.centralities(SheetCentrAuth, network.KindAuthor, t.Centralities)
	w.centralities(SheetCentrCom, network.KindCommenter, t.Centralities)
	w.rankings(t.Rankings)
	w.correlations(t.Correlations)
	w.diagnostics(t.Diagnostics)
	if w.err != nil {
		return w.err
	}

	f.SetActiveSheet(0)
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("saving workbook: %w", err)
	}
	slog.Info("report: workbook written", "path", path, "descriptors", len(t.Descriptors),
		"rankings", len(t.Rankings), "correlations", len(t.Correlations))
	return nil
}

// writer keeps the first error so sheet builders can run unconditionally.
type writer struct {
	f      *excelize.File
	header int
	err    error
}

func (w *writer) row(sheet string, r int, vals []any) {
	if w.err != nil {
		return
	}
	cell, err := excelize.CoordinatesToCellName(1, r)
	if err != nil {
		w.err = err
		return
	}
	if err := w.f.SetSheetRow(sheet, cell, &vals); err != nil {
		w.err = fmt.Errorf("writing %s row %d: %w", sheet, r, err)
	}
}

func (w *writer) headerRow(sheet string, names []string) {
	vals := make([]any, len(names))
	for i, n := range names {
		vals[i] = n
	}
	w.row(sheet, 1, vals)
	if w.err != nil || len(names) == 0 {
		return
	}
	last, _ := excelize.CoordinatesToCellName(len(names), 1)
	if err := w.f.SetCellStyle(sheet, "A1", last, w.header); err != nil {
		w.err = err
	}
}

func (w *writer) descriptors(sheet string, kind network.Kind, descs []centrality.Descriptor) {
	w.headerRow(sheet, centrality.DescriptorHeader)
	r := 2
	for _, d := range descs {
		if d.Key.Kind != kind {
			continue
		}
		cells := d.Row()
		vals := make([]any, len(cells))
		for i, c := range cells {
			vals[i] = c
		}
		w.row(sheet, r, vals)
		r++
	}
}

// centralities uses a stream writer; these are by far the largest sheets.
func (w *writer) centralities(sheet string, kind network.Kind, tables map[network.Key][]centrality.LongRow) {
	if w.err != nil {
		return
	}
	var keys []network.Key
	for k := range tables {
		if k.Kind == kind {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })

	sw, err := w.f.NewStreamWriter(sheet)
	if err != nil {
		w.err = err
		return
	}
	if err := sw.SetRow("A1", []any{"year", "node", "centrality", "value"}, excelize.RowOpts{StyleID: w.header}); err != nil {
		w.err = err
		return
	}
	r := 2
	for _, k := range keys {
		for _, row := range tables[k] {
			cell, _ := excelize.CoordinatesToCellName(1, r)
			if err := sw.SetRow(cell, []any{k.Year, string(row.Node), row.Measure, row.Value}); err != nil {
				w.err = err
				return
			}
			r++
		}
	}
	if err := sw.Flush(); err != nil {
		w.err = err
	}
}

// rankings writes one block per window: a title row, a header row and k
// rows holding person and value for every measure side by side.
func (w *writer) rankings(tables []*ranking.Table) {
	r := 1
	for _, t := range tables {
		title := "all years"
		if t.Window.From != 0 || t.Window.To != 0 {
			title = fmt.Sprintf("%d-%d", t.Window.From, t.Window.To)
		}
		w.row(SheetRanking, r, []any{"window", title})
		r++
		head := []any{"rank"}
		depth := 0
		for _, c := range t.Columns {
			head = append(head, string(c.Measure), "value")
			depth = max(depth, len(c.Entries))
		}
		w.row(SheetRanking, r, head)
		r++
		for i := 0; i < depth; i++ {
			vals := []any{i + 1}
			for _, c := range t.Columns {
				if i < len(c.Entries) {
					vals = append(vals, string(c.Entries[i].Person), c.Entries[i].Value)
				} else {
					vals = append(vals, nil, nil)
				}
			}
			w.row(SheetRanking, r, vals)
			r++
		}
		r++
	}
}

func (w *writer) correlations(pts []ranking.CorrelationPoint) {
	w.headerRow(SheetCorrelations, []string{"year", "source", "var", "spearman", "p", "n", "stars"})
	for i, pt := range pts {
		w.row(SheetCorrelations, i+2, []any{
			pt.Year, string(pt.Source), string(pt.Target), cellFloat(pt.Rho), cellFloat(pt.P), pt.N, pt.Stars,
		})
	}
}

func (w *writer) diagnostics(facts []Fact) {
	w.headerRow(SheetDiagnostics, []string{"name", "value"})
	for i, fact := range facts {
		w.row(SheetDiagnostics, i+2, []any{fact.Name, fact.Value})
	}
}

// cellFloat leaves NaN cells empty.
func cellFloat(v float64) any {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}
