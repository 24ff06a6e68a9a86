package record

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/brunobiangulo/collabnet/network"
)

// Tenure is one editor-role row.
type Tenure struct {
	Journal        string
	Year           int
	Person         network.PersonID
	ManagingEditor bool
}

var tenureColumns = []string{"journal", "year", "scopus_id", "managing_editor"}

// CSVTenureReader reads tenures from a CSV file with a header row.
type CSVTenureReader struct{}

func (p *CSVTenureReader) SupportedFormats() []string { return []string{"csv"} }

func (p *CSVTenureReader) ReadTenures(ctx context.Context, path string) (*TenureFeed, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening tenure file: %w", err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	var rows [][]string
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading tenure csv: %w", err)
		}
		rows = append(rows, row)
	}
	return tenuresFromRows(ctx, filepath.Base(path), rows)
}

// XLSXTenureReader reads tenures from the first sheet of a workbook.
type XLSXTenureReader struct{}

func (p *XLSXTenureReader) SupportedFormats() []string { return []string{"xlsx"} }

func (p *XLSXTenureReader) ReadTenures(ctx context.Context, path string) (*TenureFeed, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening XLSX: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("no sheets in %s", path)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("reading sheet %s: %w", sheets[0], err)
	}
	return tenuresFromRows(ctx, filepath.Base(path), rows)
}

// tenuresFromRows maps a header row plus data rows onto tenures. Rows with an
// empty id are dropped as without identity; rows with a malformed id or year
// are skipped.
func tenuresFromRows(ctx context.Context, source string, rows [][]string) (*TenureFeed, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("tenure source %s is empty", source)
	}
	col := make(map[string]int)
	for i, h := range rows[0] {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, c := range tenureColumns {
		if _, ok := col[c]; !ok {
			return nil, fmt.Errorf("tenure source %s: missing column %q", source, c)
		}
	}
	cell := func(row []string, name string) string {
		i := col[name]
		if i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	feed := &TenureFeed{}
	for i, row := range rows[1:] {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		feed.Diagnostics.Read++
		idx := i + 1

		rawID := cell(row, "scopus_id")
		if rawID == "" {
			feed.Diagnostics.WithoutIdentity++
			continue
		}
		id, err := canonicalID(rawID)
		if err != nil {
			feed.Diagnostics.skip(&UpstreamError{Source: source, Index: idx, Reason: err.Error()})
			continue
		}
		year, err := strconv.Atoi(cell(row, "year"))
		if err != nil {
			feed.Diagnostics.skip(&UpstreamError{Source: source, Index: idx, Reason: fmt.Sprintf("non-integer year %q", cell(row, "year"))})
			continue
		}
		me := cell(row, "managing_editor")
		feed.Tenures = append(feed.Tenures, Tenure{
			Journal:        cell(row, "journal"),
			Year:           year,
			Person:         id,
			ManagingEditor: me == "1" || me == "1.0",
		})
		feed.Diagnostics.Kept++
	}
	return feed, nil
}

// EditorIndex answers managing-editor lookups by journal, year and person.
type EditorIndex struct {
	byKey map[editorKey]struct{}
}

type editorKey struct {
	journal string
	year    int
	person  network.PersonID
}

// NewEditorIndex indexes the managing-editor rows of tenures.
func NewEditorIndex(tenures []Tenure) *EditorIndex {
	idx := &EditorIndex{byKey: make(map[editorKey]struct{})}
	for _, t := range tenures {
		if !t.ManagingEditor {
			continue
		}
		idx.byKey[editorKey{t.Journal, t.Year, t.Person}] = struct{}{}
	}
	return idx
}

// IsManagingEditor implements network.EditorFilter.
func (x *EditorIndex) IsManagingEditor(journal string, year int, p network.PersonID) bool {
	if x == nil {
		return false
	}
	_, ok := x.byKey[editorKey{journal, year, p}]
	return ok
}

// Len returns the number of indexed managing-editor roles.
func (x *EditorIndex) Len() int {
	if x == nil {
		return 0
	}
	return len(x.byKey)
}
