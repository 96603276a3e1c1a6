package store

const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    started_at TIMESTAMP NOT NULL,
    finished_at TIMESTAMP,
    mode TEXT NOT NULL,
    upgraded INTEGER NOT NULL DEFAULT 0,
    failed INTEGER NOT NULL DEFAULT 0,
    skipped INTEGER NOT NULL DEFAULT 0,
    interrupted BOOLEAN NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS outcomes (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id TEXT NOT NULL,
    package TEXT NOT NULL,
    status TEXT NOT NULL,
    old_version TEXT,
    new_version TEXT,
    tier TEXT,
    reason_kind TEXT,
    detail TEXT,
    FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS snapshots (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    created_at TIMESTAMP NOT NULL,
    reason TEXT,
    run_id TEXT,
    project_dir TEXT NOT NULL,
    snapshot_dir TEXT NOT NULL,
    has_lock BOOLEAN NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_outcomes_run ON outcomes(run_id);
CREATE INDEX IF NOT EXISTS idx_outcomes_package ON outcomes(package);
CREATE INDEX IF NOT EXISTS idx_snapshots_created ON snapshots(created_at);
`
