package database

import (
	"database/sql"
	"fmt"
)

const runColumns = `id, handle, status, total_videos, category_videos, used_fallback,
	verdict, report_markdown, report_degraded, bundle_json, error, created_at, finished_at`

// CreateRun inserts a new pending run.
func (db *DB) CreateRun(id, handle string) error {
	_, err := db.conn.Exec(
		"INSERT INTO analysis_runs (id, handle, status) VALUES (?, ?, ?)",
		id, handle, RunPending,
	)
	if err != nil {
		return fmt.Errorf("creating run %s: %w", id, err)
	}
	return nil
}

// CompleteRun records a finished run's results.
func (db *DB) CompleteRun(run *AnalysisRun) error {
	_, err := db.conn.Exec(
		`UPDATE analysis_runs SET
			status = ?, total_videos = ?, category_videos = ?, used_fallback = ?,
			verdict = ?, report_markdown = ?, report_degraded = ?, bundle_json = ?,
			finished_at = datetime('now')
		WHERE id = ?`,
		RunCompleted, run.TotalVideos, run.CategoryVideos, boolToInt(run.UsedFallback),
		run.Verdict, run.ReportMarkdown, boolToInt(run.ReportDegraded), run.BundleJSON,
		run.ID,
	)
	if err != nil {
		return fmt.Errorf("completing run %s: %w", run.ID, err)
	}
	return nil
}

// FailRun marks a run as failed with its error message.
func (db *DB) FailRun(id, message string) error {
	_, err := db.conn.Exec(
		`UPDATE analysis_runs SET status = ?, error = ?, finished_at = datetime('now')
		WHERE id = ?`,
		RunFailed, message, id,
	)
	if err != nil {
		return fmt.Errorf("failing run %s: %w", id, err)
	}
	return nil
}

// GetRun returns a run by id, or nil if unknown.
func (db *DB) GetRun(id string) (*AnalysisRun, error) {
	row := db.conn.QueryRow(
		"SELECT "+runColumns+" FROM analysis_runs WHERE id = ?", id,
	)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return run, err
}

// GetRunsForHandle returns a creator's runs, newest first.
func (db *DB) GetRunsForHandle(handle string) ([]AnalysisRun, error) {
	rows, err := db.conn.Query(
		"SELECT "+runColumns+" FROM analysis_runs WHERE handle = ? ORDER BY created_at DESC", handle,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRuns(rows)
}

// GetRecentRuns returns the most recent runs across all creators.
func (db *DB) GetRecentRuns(limit int) ([]AnalysisRun, error) {
	rows, err := db.conn.Query(
		"SELECT "+runColumns+" FROM analysis_runs ORDER BY created_at DESC LIMIT ?", limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRuns(rows)
}

// InsertRunVideos stores video snapshots for a run in one transaction.
func (db *DB) InsertRunVideos(runID string, videos []RunVideo) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin inserting run videos: %w", err)
	}

	stmt, err := tx.Prepare(
		`INSERT OR REPLACE INTO run_videos
		(run_id, video_id, description, created_at_unix, play_count, like_count,
		comment_count, share_count, collect_count, in_category, representative, match_reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("preparing run video insert: %w", err)
	}
	defer stmt.Close()

	for _, v := range videos {
		if _, err := stmt.Exec(
			runID, v.VideoID, v.Description, v.CreatedAtUnix,
			v.PlayCount, v.LikeCount, v.CommentCount, v.ShareCount, v.CollectCount,
			boolToInt(v.InCategory), boolToInt(v.Representative), v.MatchReason,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("inserting video %s: %w", v.VideoID, err)
		}
	}

	return tx.Commit()
}

// GetRunVideos returns a run's video snapshots ordered by play count.
func (db *DB) GetRunVideos(runID string) ([]RunVideo, error) {
	rows, err := db.conn.Query(
		`SELECT video_id, description, created_at_unix, play_count, like_count,
		comment_count, share_count, collect_count, in_category, representative, match_reason
		FROM run_videos WHERE run_id = ? ORDER BY play_count DESC`, runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var videos []RunVideo
	for rows.Next() {
		var v RunVideo
		var inCategory, representative int
		if err := rows.Scan(&v.VideoID, &v.Description, &v.CreatedAtUnix,
			&v.PlayCount, &v.LikeCount, &v.CommentCount, &v.ShareCount, &v.CollectCount,
			&inCategory, &representative, &v.MatchReason); err != nil {
			return nil, err
		}
		v.InCategory = inCategory != 0
		v.Representative = representative != 0
		videos = append(videos, v)
	}
	return videos, rows.Err()
}

// GetStats returns aggregate database statistics.
func (db *DB) GetStats() (*Stats, error) {
	s := &Stats{}

	queries := []struct {
		sql  string
		dest *int
	}{
		{"SELECT COUNT(*) FROM creators", &s.Creators},
		{"SELECT COUNT(*) FROM analysis_runs", &s.Runs},
		{"SELECT COUNT(*) FROM analysis_runs WHERE status = 'completed'", &s.CompletedRuns},
		{"SELECT COUNT(*) FROM analysis_runs WHERE status = 'failed'", &s.FailedRuns},
		{"SELECT COUNT(*) FROM run_videos", &s.StoredVideos},
	}

	for _, q := range queries {
		if err := db.conn.QueryRow(q.sql).Scan(q.dest); err != nil {
			return nil, err
		}
	}

	return s, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*AnalysisRun, error) {
	var r AnalysisRun
	var usedFallback, degraded int
	if err := row.Scan(&r.ID, &r.Handle, &r.Status, &r.TotalVideos, &r.CategoryVideos,
		&usedFallback, &r.Verdict, &r.ReportMarkdown, &degraded, &r.BundleJSON,
		&r.Error, &r.CreatedAt, &r.FinishedAt); err != nil {
		return nil, err
	}
	r.UsedFallback = usedFallback != 0
	r.ReportDegraded = degraded != 0
	return &r, nil
}

func collectRuns(rows *sql.Rows) ([]AnalysisRun, error) {
	var runs []AnalysisRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
