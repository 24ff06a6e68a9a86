package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/brunobiangulo/collabnet/network"
)

// SnapshotInfo is a stored snapshot without its graph.
type SnapshotInfo struct {
	Key         network.Key `json:"key"`
	Fingerprint string      `json:"fingerprint"`
	NumNodes    int         `json:"num_nodes"`
	NumEdges    int         `json:"num_edges"`
}

// SaveSnapshots stores every snapshot of a build result under runID, in
// manifest order.
func (s *Store) SaveSnapshots(ctx context.Context, runID string, res *network.Result) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := s.requireRun(ctx, tx, runID); err != nil {
			return err
		}
		nodeStmt, err := tx.PrepareContext(ctx, "INSERT INTO nodes (snapshot_id, person) VALUES (?, ?)")
		if err != nil {
			return err
		}
		defer nodeStmt.Close()
		edgeStmt, err := tx.PrepareContext(ctx,
			"INSERT INTO edges (snapshot_id, source, target, weight, journals) VALUES (?, ?, ?, ?, ?)")
		if err != nil {
			return err
		}
		defer edgeStmt.Close()

		for pos, key := range res.Manifest {
			snap, ok := res.Snapshots[key]
			if !ok {
				return fmt.Errorf("manifest key %s has no snapshot", key)
			}
			r, err := tx.ExecContext(ctx, `
				INSERT INTO snapshots (run_id, year, kind, position, fingerprint, num_nodes, num_edges)
				VALUES (?, ?, ?, ?, ?, ?, ?)`,
				runID, key.Year, string(key.Kind), pos, snap.Fingerprint(), snap.NumNodes(), snap.NumEdges())
			if err != nil {
				return fmt.Errorf("inserting snapshot %s: %w", key, err)
			}
			id, err := r.LastInsertId()
			if err != nil {
				return err
			}
			for _, n := range snap.Nodes() {
				if _, err := nodeStmt.ExecContext(ctx, id, string(n)); err != nil {
					return fmt.Errorf("inserting node %s/%s: %w", key, n, err)
				}
			}
			for _, e := range snap.Edges() {
				journals, err := json.Marshal(e.Journals)
				if err != nil {
					return err
				}
				if _, err := edgeStmt.ExecContext(ctx, id, string(e.From), string(e.To), e.Weight, string(journals)); err != nil {
					return fmt.Errorf("inserting edge %s/%s-%s: %w", key, e.From, e.To, err)
				}
			}
		}
		return nil
	})
}

// Manifest returns the snapshot keys of a run in manifest order.
func (s *Store) Manifest(ctx context.Context, runID string) (network.Manifest, error) {
	infos, err := s.Snapshots(ctx, runID)
	if err != nil {
		return nil, err
	}
	m := make(network.Manifest, len(infos))
	for i, info := range infos {
		m[i] = info.Key
	}
	return m, nil
}

// Snapshots lists the stored snapshots of a run in manifest order.
func (s *Store) Snapshots(ctx context.Context, runID string) ([]SnapshotInfo, error) {
	if err := s.requireRun(ctx, s.db, runID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT year, kind, fingerprint, num_nodes, num_edges
		FROM snapshots WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var infos []SnapshotInfo
	for rows.Next() {
		var info SnapshotInfo
		var kind string
		if err := rows.Scan(&info.Key.Year, &kind, &info.Fingerprint, &info.NumNodes, &info.NumEdges); err != nil {
			return nil, err
		}
		info.Key.Kind = network.Kind(kind)
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

// snapshotID resolves the row id of (runID, key).
func (s *Store) snapshotID(ctx context.Context, runID string, key network.Key) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		"SELECT id FROM snapshots WHERE run_id = ? AND year = ? AND kind = ?",
		runID, key.Year, string(key.Kind)).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		if rerr := s.requireRun(ctx, s.db, runID); rerr != nil {
			return 0, rerr
		}
		return 0, fmt.Errorf("%w: %s in run %s", ErrSnapshotNotFound, key, runID)
	}
	return id, err
}

// LoadSnapshot rebuilds a stored snapshot. Its fingerprint matches the
// snapshot that was saved.
func (s *Store) LoadSnapshot(ctx context.Context, runID string, key network.Key) (*network.Snapshot, error) {
	id, err := s.snapshotID(ctx, runID, key)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, "SELECT person FROM nodes WHERE snapshot_id = ?", id)
	if err != nil {
		return nil, err
	}
	var nodes []network.PersonID
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			rows.Close()
			return nil, err
		}
		nodes = append(nodes, network.PersonID(p))
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = s.db.QueryContext(ctx,
		"SELECT source, target, weight, journals FROM edges WHERE snapshot_id = ?", id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var edges []network.Edge
	for rows.Next() {
		var from, to string
		var e network.Edge
		var journals sql.NullString
		if err := rows.Scan(&from, &to, &e.Weight, &journals); err != nil {
			return nil, err
		}
		e.From, e.To = network.PersonID(from), network.PersonID(to)
		if journals.Valid {
			if err := json.Unmarshal([]byte(journals.String), &e.Journals); err != nil {
				return nil, fmt.Errorf("decoding journals of %s-%s: %w", from, to, err)
			}
		}
		edges = append(edges, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return network.NewSnapshot(key, nodes, edges)
}

// LoadResult rebuilds every snapshot of a run.
func (s *Store) LoadResult(ctx context.Context, runID string) (*network.Result, error) {
	manifest, err := s.Manifest(ctx, runID)
	if err != nil {
		return nil, err
	}
	res := &network.Result{Snapshots: make(map[network.Key]*network.Snapshot, len(manifest)), Manifest: manifest}
	for _, k := range manifest {
		snap, err := s.LoadSnapshot(ctx, runID, k)
		if err != nil {
			return nil, err
		}
		res.Snapshots[k] = snap
	}
	return res, nil
}
