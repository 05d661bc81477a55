package manifest

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	_ "modernc.org/sqlite"
	"snapmap-archiver/pkg/snap"
)

const schema = `
CREATE TABLE snaps (
	position    INTEGER PRIMARY KEY,
	id          TEXT NOT NULL UNIQUE,
	url         TEXT NOT NULL,
	create_time REAL NOT NULL,
	file_type   TEXT NOT NULL,
	location    TEXT NOT NULL
);
`

// writeSQLite builds the database next to path and renames it into place
// once committed
func writeSQLite(path string, records []snap.Record) error {
	tmp := path + ".tmp"
	os.Remove(tmp)

	if err := fillDB(tmp, records); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to rename temporary database: %w", err)
	}
	return nil
}

func fillDB(path string, records []snap.Record) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := context.Background()
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO snaps (position, id, url, create_time, file_type, location) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range records {
		if _, err := stmt.ExecContext(ctx, i, r.ID, r.URL, r.CreateTime, string(r.Kind), r.Location); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to insert %s: %w", r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// ReadSQLite loads the records of a sqlite manifest in their original order
func ReadSQLite(path string) ([]snap.Record, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	rows, err := db.Query(`SELECT id, url, create_time, file_type, location FROM snaps ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("failed to query snaps: %w", err)
	}
	defer rows.Close()

	var records []snap.Record
	for rows.Next() {
		var r snap.Record
		var kind string
		if err := rows.Scan(&r.ID, &r.URL, &r.CreateTime, &kind, &r.Location); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		r.Kind = snap.MediaKind(kind)
		records = append(records, r)
	}
	return records, rows.Err()
}
