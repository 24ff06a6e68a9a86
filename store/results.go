package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/brunobiangulo/collabnet/centrality"
	"github.com/brunobiangulo/collabnet/network"
	"github.com/brunobiangulo/collabnet/ranking"
)

// SaveCentralities stores the centrality tables, descriptors, failures and
// node profiles of a batch. Snapshots must have been saved first.
func (s *Store) SaveCentralities(ctx context.Context, runID string, batch *centrality.Batch) error {
	ids := make(map[network.Key]int64, len(batch.Results))
	for key := range batch.Results {
		id, err := s.snapshotID(ctx, runID, key)
		if err != nil {
			return err
		}
		ids[key] = id
	}

	return s.inTx(ctx, func(tx *sql.Tx) error {
		rowStmt, err := tx.PrepareContext(ctx,
			"INSERT OR REPLACE INTO centralities (snapshot_id, person, measure, value) VALUES (?, ?, ?, ?)")
		if err != nil {
			return err
		}
		defer rowStmt.Close()

		for _, key := range batch.Manifest {
			res, ok := batch.Results[key]
			if !ok {
				continue
			}
			id := ids[key]
			for _, rec := range res.Records {
				for _, r := range rec.Long() {
					if _, err := rowStmt.ExecContext(ctx, id, string(r.Node), r.Measure, r.Value); err != nil {
						return fmt.Errorf("inserting centrality %s/%s: %w", key, r.Node, err)
					}
				}
			}
			body, err := json.Marshal(res.Descriptor)
			if err != nil {
				return err
			}
			warnings, err := json.Marshal(res.Warnings)
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx,
				"INSERT OR REPLACE INTO descriptors (snapshot_id, body, warnings) VALUES (?, ?, ?)",
				id, string(body), string(warnings)); err != nil {
				return fmt.Errorf("inserting descriptor %s: %w", key, err)
			}
			if err := indexProfiles(ctx, tx, id, res.Records); err != nil {
				return fmt.Errorf("indexing profiles %s: %w", key, err)
			}
		}
		for _, f := range batch.Failures {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO failures (run_id, year, kind, error) VALUES (?, ?, ?, ?)",
				runID, f.Key.Year, string(f.Key.Kind), f.Err.Error()); err != nil {
				return err
			}
		}
		return nil
	})
}

// Descriptors returns the stored descriptors of a run in manifest order.
func (s *Store) Descriptors(ctx context.Context, runID string) ([]centrality.Descriptor, error) {
	if err := s.requireRun(ctx, s.db, runID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT d.body FROM descriptors d
		JOIN snapshots sn ON sn.id = d.snapshot_id
		WHERE sn.run_id = ? ORDER BY sn.position`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []centrality.Descriptor
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		var d centrality.Descriptor
		if err := json.Unmarshal([]byte(body), &d); err != nil {
			return nil, fmt.Errorf("decoding descriptor: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Centralities returns the long-format centrality rows of one snapshot,
// ordered by node then measure.
func (s *Store) Centralities(ctx context.Context, runID string, key network.Key) ([]centrality.LongRow, error) {
	id, err := s.snapshotID(ctx, runID, key)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT person, measure, value FROM centralities WHERE snapshot_id = ?", id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []centrality.LongRow
	for rows.Next() {
		var r centrality.LongRow
		var node string
		if err := rows.Scan(&node, &r.Measure, &r.Value); err != nil {
			return nil, err
		}
		r.Node = network.PersonID(node)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		if c := network.ComparePersons(out[i].Node, out[j].Node); c != 0 {
			return c < 0
		}
		return out[i].Measure < out[j].Measure
	})
	return out, nil
}

// Failures returns the per-key centrality failures recorded for a run.
func (s *Store) Failures(ctx context.Context, runID string) ([]FailureRow, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT year, kind, error FROM failures WHERE run_id = ? ORDER BY year, kind", runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []FailureRow
	for rows.Next() {
		var f FailureRow
		var kind string
		if err := rows.Scan(&f.Key.Year, &kind, &f.Error); err != nil {
			return nil, err
		}
		f.Key.Kind = network.Kind(kind)
		out = append(out, f)
	}
	return out, rows.Err()
}

// FailureRow is a stored centrality failure.
type FailureRow struct {
	Key   network.Key `json:"key"`
	Error string      `json:"error"`
}

// SaveRanking stores a top-K table.
func (s *Store) SaveRanking(ctx context.Context, runID string, t *ranking.Table) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := s.requireRun(ctx, tx, runID); err != nil {
			return err
		}
		for _, col := range t.Columns {
			for pos, e := range col.Entries {
				if _, err := tx.ExecContext(ctx, `
					INSERT OR REPLACE INTO rankings (run_id, window_from, window_to, measure, position, person, value)
					VALUES (?, ?, ?, ?, ?, ?, ?)`,
					runID, t.Window.From, t.Window.To, string(col.Measure), pos+1, string(e.Person), e.Value); err != nil {
					return fmt.Errorf("inserting ranking %s: %w", col.Measure, err)
				}
			}
		}
		return nil
	})
}

// Rankings returns every stored top-K table of a run, ordered by window.
func (s *Store) Rankings(ctx context.Context, runID string) ([]*ranking.Table, error) {
	if err := s.requireRun(ctx, s.db, runID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT window_from, window_to, measure, person, value FROM rankings
		WHERE run_id = ? ORDER BY window_from, window_to, measure, position`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tables := make(map[ranking.Window]*ranking.Table)
	var order []ranking.Window
	for rows.Next() {
		var w ranking.Window
		var measure, person string
		var value float64
		if err := rows.Scan(&w.From, &w.To, &measure, &person, &value); err != nil {
			return nil, err
		}
		t, ok := tables[w]
		if !ok {
			t = &ranking.Table{Window: w}
			for _, m := range ranking.Measures {
				t.Columns = append(t.Columns, ranking.Column{Measure: m})
			}
			tables[w] = t
			order = append(order, w)
		}
		for i := range t.Columns {
			if string(t.Columns[i].Measure) == measure {
				t.Columns[i].Entries = append(t.Columns[i].Entries, ranking.Entry{Person: network.PersonID(person), Value: value})
				t.K = max(t.K, len(t.Columns[i].Entries))
			}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	out := make([]*ranking.Table, len(order))
	for i, w := range order {
		out[i] = tables[w]
	}
	return out, nil
}

// SaveCorrelations stores a correlation series.
func (s *Store) SaveCorrelations(ctx context.Context, runID string, pts []ranking.CorrelationPoint) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := s.requireRun(ctx, tx, runID); err != nil {
			return err
		}
		stmt, err := tx.PrepareContext(ctx, `
			INSERT OR REPLACE INTO correlations (run_id, year, source, target, rho, p, n, stars)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, pt := range pts {
			if _, err := stmt.ExecContext(ctx, runID, pt.Year, string(pt.Source), string(pt.Target),
				nullFloat(pt.Rho), nullFloat(pt.P), pt.N, pt.Stars); err != nil {
				return fmt.Errorf("inserting correlation %d %s/%s: %w", pt.Year, pt.Source, pt.Target, err)
			}
		}
		return nil
	})
}

// Correlations returns the stored correlation series of a run.
func (s *Store) Correlations(ctx context.Context, runID string) ([]ranking.CorrelationPoint, error) {
	if err := s.requireRun(ctx, s.db, runID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT year, source, target, rho, p, n, stars FROM correlations
		WHERE run_id = ? ORDER BY year, source, target`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ranking.CorrelationPoint
	for rows.Next() {
		var pt ranking.CorrelationPoint
		var src, tgt string
		var rho, p sql.NullFloat64
		var stars sql.NullString
		if err := rows.Scan(&pt.Year, &src, &tgt, &rho, &p, &pt.N, &stars); err != nil {
			return nil, err
		}
		pt.Source, pt.Target = ranking.Measure(src), ranking.Measure(tgt)
		pt.Rho, pt.P = floatOrNaN(rho), floatOrNaN(p)
		pt.Defined = rho.Valid
		pt.Stars = stars.String
		out = append(out, pt)
	}
	return out, rows.Err()
}
