package store

import "fmt"

// schemaSQL returns the DDL for all tables. profileDim controls the vec0
// virtual table dimension.
func schemaSQL(profileDim int) string {
	return fmt.Sprintf(`
-- One row per pipeline run
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    config JSON,
    diagnostics JSON,
    status TEXT DEFAULT 'running',
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    finished_at DATETIME
);

-- Frozen snapshots; position is the manifest order
CREATE TABLE IF NOT EXISTS snapshots (
    id INTEGER PRIMARY KEY,
    run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    year INTEGER NOT NULL,
    kind TEXT NOT NULL,
    position INTEGER NOT NULL,
    fingerprint TEXT NOT NULL,
    num_nodes INTEGER NOT NULL,
    num_edges INTEGER NOT NULL,
    UNIQUE(run_id, year, kind)
);

CREATE TABLE IF NOT EXISTS nodes (
    snapshot_id INTEGER NOT NULL REFERENCES snapshots(id) ON DELETE CASCADE,
    person TEXT NOT NULL,
    PRIMARY KEY (snapshot_id, person)
);

CREATE TABLE IF NOT EXISTS edges (
    snapshot_id INTEGER NOT NULL REFERENCES snapshots(id) ON DELETE CASCADE,
    source TEXT NOT NULL,
    target TEXT NOT NULL,
    weight REAL NOT NULL,
    journals JSON,
    PRIMARY KEY (snapshot_id, source, target)
);

-- Long-format centrality table
CREATE TABLE IF NOT EXISTS centralities (
    snapshot_id INTEGER NOT NULL REFERENCES snapshots(id) ON DELETE CASCADE,
    person TEXT NOT NULL,
    measure TEXT NOT NULL,
    value REAL NOT NULL,
    PRIMARY KEY (snapshot_id, person, measure)
);

CREATE TABLE IF NOT EXISTS descriptors (
    snapshot_id INTEGER PRIMARY KEY REFERENCES snapshots(id) ON DELETE CASCADE,
    body JSON NOT NULL,
    warnings JSON
);

CREATE TABLE IF NOT EXISTS failures (
    run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    year INTEGER NOT NULL,
    kind TEXT NOT NULL,
    error TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS rankings (
    run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    window_from INTEGER NOT NULL,
    window_to INTEGER NOT NULL,
    measure TEXT NOT NULL,
    position INTEGER NOT NULL,
    person TEXT NOT NULL,
    value REAL NOT NULL,
    PRIMARY KEY (run_id, window_from, window_to, measure, position)
);

CREATE TABLE IF NOT EXISTS correlations (
    run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    year INTEGER NOT NULL,
    source TEXT NOT NULL,
    target TEXT NOT NULL,
    rho REAL,
    p REAL,
    n INTEGER NOT NULL,
    stars TEXT,
    PRIMARY KEY (run_id, year, source, target)
);

-- Centrality profiles via sqlite-vec, one partition per snapshot
CREATE VIRTUAL TABLE IF NOT EXISTS vec_profiles USING vec0(
    profile_id INTEGER PRIMARY KEY,
    snapshot_id INTEGER partition key,
    profile float[%d]
);

CREATE TABLE IF NOT EXISTS profiles (
    id INTEGER PRIMARY KEY,
    snapshot_id INTEGER NOT NULL REFERENCES snapshots(id) ON DELETE CASCADE,
    person TEXT NOT NULL,
    UNIQUE(snapshot_id, person)
);

-- Indexes
CREATE INDEX IF NOT EXISTS idx_snapshots_run ON snapshots(run_id);
CREATE INDEX IF NOT EXISTS idx_edges_source ON edges(snapshot_id, source);
CREATE INDEX IF NOT EXISTS idx_centralities_measure ON centralities(snapshot_id, measure);
CREATE INDEX IF NOT EXISTS idx_failures_run ON failures(run_id);
`, profileDim)
}
