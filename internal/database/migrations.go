package database

import "database/sql"

// Migration represents a single schema migration step.
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

// migrations is the ordered list of all schema migrations.
// Append new migrations to the end with incrementing Version numbers.
var migrations = []Migration{
	{
		Version:     1,
		Description: "initial schema",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS creators (
    handle TEXT PRIMARY KEY,
    display_name TEXT,
    feishu_record_id TEXT,
    first_seen_at TEXT DEFAULT (datetime('now')),
    last_analyzed_at TEXT
);

CREATE TABLE IF NOT EXISTS analysis_runs (
    id TEXT PRIMARY KEY,
    handle TEXT NOT NULL REFERENCES creators(handle),
    status TEXT NOT NULL DEFAULT 'pending',
    total_videos INTEGER DEFAULT 0,
    category_videos INTEGER DEFAULT 0,
    used_fallback INTEGER DEFAULT 0,
    verdict TEXT,
    report_markdown TEXT,
    report_degraded INTEGER DEFAULT 0,
    bundle_json TEXT,
    error TEXT,
    created_at TEXT DEFAULT (datetime('now')),
    finished_at TEXT
);

CREATE TABLE IF NOT EXISTS run_videos (
    run_id TEXT NOT NULL REFERENCES analysis_runs(id),
    video_id TEXT NOT NULL,
    description TEXT,
    created_at_unix INTEGER DEFAULT 0,
    play_count INTEGER DEFAULT 0,
    like_count INTEGER DEFAULT 0,
    comment_count INTEGER DEFAULT 0,
    share_count INTEGER DEFAULT 0,
    collect_count INTEGER DEFAULT 0,
    in_category INTEGER DEFAULT 0,
    representative INTEGER DEFAULT 0,
    match_reason TEXT,
    PRIMARY KEY (run_id, video_id)
);

CREATE INDEX IF NOT EXISTS idx_runs_handle ON analysis_runs(handle);
CREATE INDEX IF NOT EXISTS idx_runs_created ON analysis_runs(created_at);
CREATE INDEX IF NOT EXISTS idx_run_videos_run ON run_videos(run_id);
`)
			return err
		},
	},
}

// latestVersion returns the highest migration version number.
func latestVersion() int {
	if len(migrations) == 0 {
		return 0
	}
	return migrations[len(migrations)-1].Version
}
