package index

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/starford/wunjo/internal/models"
	"github.com/starford/wunjo/internal/parser"
)

// sortableTime formats created_at so text order is time order.
const sortableTime = "2006-01-02T15:04:05.000000000Z"

// IndexNote replaces every record sourced from path with doc.
func (db *DB) IndexNote(path, checksum string, doc *parser.NoteDoc) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := resetSource(tx, path, checksum); err != nil {
		return err
	}
	if err := insertRecord(tx, models.CollectionNotes, doc.Note.ID, path, doc.Note.CreatedAt, doc.Note); err != nil {
		return err
	}
	if doc.Folder != nil {
		if err := upsertFolder(tx, doc.Folder); err != nil {
			return err
		}
	}
	if err := pruneFolders(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// IndexBoard replaces every record sourced from path with the board, its
// lists and its cards.
func (db *DB) IndexBoard(path, checksum string, doc *parser.BoardDoc) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := resetSource(tx, path, checksum); err != nil {
		return err
	}
	if err := insertRecord(tx, models.CollectionBoards, doc.Board.ID, path, doc.Board.CreatedAt, doc.Board); err != nil {
		return err
	}
	for _, l := range doc.Lists {
		if err := insertRecord(tx, models.CollectionLists, l.ID, path, l.CreatedAt, l); err != nil {
			return err
		}
	}
	for _, c := range doc.Cards {
		if err := insertRecord(tx, models.CollectionCards, c.ID, path, c.CreatedAt, c); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// RemoveSource drops path and every record it produced.
func (db *DB) RemoveSource(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(`DELETE FROM sources WHERE path = ?`, path); err != nil {
		return fmt.Errorf("index: delete source: %w", err)
	}
	if err := pruneFolders(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// GetChecksum returns the stored checksum for path, or "" when unknown.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM sources WHERE path = ?`, path).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: checksum: %w", err)
	}
	return cs, nil
}

// AllChecksums returns path -> checksum for every indexed file.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM sources`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

// Counts returns the number of records per collection.
func (db *DB) Counts() (map[string]int, error) {
	rows, err := db.conn.Query(`SELECT collection, count(*) FROM records GROUP BY collection`)
	if err != nil {
		return nil, fmt.Errorf("index: counts: %w", err)
	}
	defer rows.Close()
	out := map[string]int{
		models.CollectionNotes:   0,
		models.CollectionFolders: 0,
		models.CollectionBoards:  0,
		models.CollectionLists:   0,
		models.CollectionCards:   0,
	}
	for rows.Next() {
		var c string
		var n int
		if err := rows.Scan(&c, &n); err != nil {
			return nil, err
		}
		out[c] = n
	}
	return out, rows.Err()
}

func resetSource(tx *sql.Tx, path, checksum string) error {
	_, err := tx.Exec(`
		INSERT INTO sources (path, checksum, indexed_at) VALUES (?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			checksum   = excluded.checksum,
			indexed_at = excluded.indexed_at
	`, path, checksum, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("index: upsert source: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM records WHERE source = ?`, path); err != nil {
		return fmt.Errorf("index: clear source records: %w", err)
	}
	return nil
}

func insertRecord(tx *sql.Tx, collection, id, source string, created time.Time, v any) error {
	doc, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("index: encode %s: %w", collection, err)
	}
	_, err = tx.Exec(`
		INSERT INTO records (collection, id, source, doc, created_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(collection, id) DO UPDATE SET
			source     = excluded.source,
			doc        = excluded.doc,
			created_at = excluded.created_at
	`, collection, id, source, string(doc), created.UTC().Format(sortableTime))
	if err != nil {
		return fmt.Errorf("index: insert %s: %w", collection, err)
	}
	return nil
}

// upsertFolder keeps the earliest created time seen for a folder. Folders
// have no source file; pruneFolders removes them once unreferenced.
func upsertFolder(tx *sql.Tx, f *models.Folder) error {
	doc, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("index: encode folder: %w", err)
	}
	_, err = tx.Exec(`
		INSERT INTO records (collection, id, source, doc, created_at) VALUES (?, ?, NULL, ?, ?)
		ON CONFLICT(collection, id) DO UPDATE SET
			doc        = CASE WHEN excluded.created_at < records.created_at THEN excluded.doc ELSE records.doc END,
			created_at = min(excluded.created_at, records.created_at)
	`, models.CollectionFolders, f.ID, string(doc), f.CreatedAt.UTC().Format(sortableTime))
	if err != nil {
		return fmt.Errorf("index: upsert folder: %w", err)
	}
	return nil
}

func pruneFolders(tx *sql.Tx) error {
	_, err := tx.Exec(`
		DELETE FROM records
		WHERE collection = 'folders'
		  AND id NOT IN (
			SELECT json_extract(doc, '$.folderId') FROM records
			WHERE collection = 'notes' AND json_extract(doc, '$.folderId') IS NOT NULL
		  )
	`)
	if err != nil {
		return fmt.Errorf("index: prune folders: %w", err)
	}
	return nil
}
