package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/brunobiangulo/collabnet/centrality"
	"github.com/brunobiangulo/collabnet/network"
)

// ProfileDim is the length of a node's centrality profile: total degree,
// second-order neighbours, betweenness, closeness and eigenvector.
const ProfileDim = 5

// Neighbor is a node with a similar centrality profile.
type Neighbor struct {
	Node     network.PersonID `json:"node"`
	Distance float64          `json:"distance"`
}

// profiles returns one vector per giant-component record, every dimension
// scaled by its maximum within the snapshot so that snapshots of different
// size are comparable.
func profiles(recs []centrality.Record) (map[network.PersonID][]float32, []network.PersonID) {
	raw := make(map[network.PersonID][ProfileDim]float64)
	var order []network.PersonID
	var maxes [ProfileDim]float64
	for _, r := range recs {
		if !r.Giant || r.Betweenness == nil || r.Closeness == nil {
			continue
		}
		// Degenerate directed spectra leave the eigenvector absent.
		eig := 0.0
		if r.Eigenvector != nil {
			eig = *r.Eigenvector
		}
		v := [ProfileDim]float64{
			float64(r.Degree.Total()),
			float64(r.SecondOrder),
			*r.Betweenness,
			*r.Closeness,
			eig,
		}
		for i, x := range v {
			if x > maxes[i] {
				maxes[i] = x
			}
		}
		raw[r.Node] = v
		order = append(order, r.Node)
	}
	out := make(map[network.PersonID][]float32, len(raw))
	for n, v := range raw {
		p := make([]float32, ProfileDim)
		for i, x := range v {
			if maxes[i] > 0 {
				p[i] = float32(x / maxes[i])
			}
		}
		out[n] = p
	}
	return out, order
}

func indexProfiles(ctx context.Context, tx *sql.Tx, snapshotID int64, recs []centrality.Record) error {
	vecs, order := profiles(recs)
	for _, n := range order {
		res, err := tx.ExecContext(ctx,
			"INSERT INTO profiles (snapshot_id, person) VALUES (?, ?)", snapshotID, string(n))
		if err != nil {
			return err
		}
		pid, err := res.LastInsertId()
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO vec_profiles (profile_id, snapshot_id, profile) VALUES (?, ?, ?)",
			pid, snapshotID, serializeFloat32(vecs[n])); err != nil {
			return err
		}
	}
	return nil
}

// SimilarNodes returns up to k nodes of the same snapshot whose centrality
// profile is closest to node's, nearest first. Only giant-component nodes
// have profiles.
func (s *Store) SimilarNodes(ctx context.Context, runID string, key network.Key, node network.PersonID, k int) ([]Neighbor, error) {
	if k <= 0 {
		return nil, nil
	}
	sid, err := s.snapshotID(ctx, runID, key)
	if err != nil {
		return nil, err
	}

	var pid int64
	var vec []byte
	err = s.db.QueryRowContext(ctx, `
		SELECT p.id, v.profile FROM profiles p
		JOIN vec_profiles v ON v.profile_id = p.id
		WHERE p.snapshot_id = ? AND p.person = ?`, sid, string(node)).Scan(&pid, &vec)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s in %s", ErrNodeNotFound, node, key)
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT v.profile_id, v.distance, p.person
		FROM vec_profiles v
		JOIN profiles p ON p.id = v.profile_id
		WHERE v.profile MATCH ? AND k = ? AND v.snapshot_id = ?
		ORDER BY v.distance
	`, vec, k+1, sid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Neighbor
	for rows.Next() {
		var id int64
		var nb Neighbor
		var person string
		if err := rows.Scan(&id, &nb.Distance, &person); err != nil {
			return nil, err
		}
		if id == pid {
			continue
		}
		nb.Node = network.PersonID(person)
		out = append(out, nb)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) > k {
		out = out[:k]
	}
	return out, nil
}
