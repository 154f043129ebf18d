package database

import "database/sql"

// UpsertCreator inserts a creator or refreshes its display name and record
// id if it already exists.
func (db *DB) UpsertCreator(handle string, displayName, feishuRecordID *string) error {
	_, err := db.conn.Exec(
		`INSERT INTO creators (handle, display_name, feishu_record_id)
		VALUES (?, ?, ?)
		ON CONFLICT(handle) DO UPDATE SET
			display_name = COALESCE(excluded.display_name, display_name),
			feishu_record_id = COALESCE(excluded.feishu_record_id, feishu_record_id)`,
		handle, displayName, feishuRecordID,
	)
	return err
}

// TouchCreator updates the last analyzed timestamp.
func (db *DB) TouchCreator(handle string) error {
	_, err := db.conn.Exec(
		"UPDATE creators SET last_analyzed_at = datetime('now') WHERE handle = ?",
		handle,
	)
	return err
}

// GetCreator returns a creator by handle, or nil if unknown.
func (db *DB) GetCreator(handle string) (*Creator, error) {
	row := db.conn.QueryRow(
		`SELECT handle, display_name, feishu_record_id, first_seen_at, last_analyzed_at
		FROM creators WHERE handle = ?`, handle,
	)

	var c Creator
	if err := row.Scan(&c.Handle, &c.DisplayName, &c.FeishuRecordID,
		&c.FirstSeenAt, &c.LastAnalyzedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

// GetAllCreators returns all creators ordered by most recently analyzed.
func (db *DB) GetAllCreators() ([]Creator, error) {
	rows, err := db.conn.Query(
		`SELECT handle, display_name, feishu_record_id, first_seen_at, last_analyzed_at
		FROM creators ORDER BY last_analyzed_at DESC, handle ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var creators []Creator
	for rows.Next() {
		var c Creator
		if err := rows.Scan(&c.Handle, &c.DisplayName, &c.FeishuRecordID,
			&c.FirstSeenAt, &c.LastAnalyzedAt); err != nil {
			return nil, err
		}
		creators = append(creators, c)
	}
	return creators, rows.Err()
}
