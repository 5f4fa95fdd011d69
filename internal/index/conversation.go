package index

import (
	"context"
	"fmt"
	"time"

	"github.com/starford/wunjo/internal/chat"
	"github.com/starford/wunjo/internal/llm"
)

// LoadConversation returns stored turns, oldest first.
func (db *DB) LoadConversation(ctx context.Context) ([]chat.Turn, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT id, role, content, created_at FROM conversation ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("index: load conversation: %w", err)
	}
	defer rows.Close()

	var out []chat.Turn
	for rows.Next() {
		var (
			t       chat.Turn
			role    string
			created string
		)
		if err := rows.Scan(&t.ID, &role, &t.Content, &created); err != nil {
			return nil, err
		}
		t.Role = llm.Role(role)
		if t.Timestamp, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return nil, fmt.Errorf("index: conversation timestamp: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// SaveConversation replaces the stored conversation with turns.
func (db *DB) SaveConversation(ctx context.Context, turns []chat.Turn) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM conversation`); err != nil {
		return fmt.Errorf("index: clear conversation: %w", err)
	}
	if len(turns) > 0 {
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO conversation (id, role, content, created_at) VALUES (?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare turn insert: %w", err)
		}
		defer stmt.Close()
		for _, t := range turns {
			if _, err := stmt.ExecContext(ctx, t.ID, string(t.Role), t.Content, t.Timestamp.UTC().Format(time.RFC3339Nano)); err != nil {
				return fmt.Errorf("index: insert turn: %w", err)
			}
		}
	}
	return tx.Commit()
}

// ClearConversation deletes every stored turn.
func (db *DB) ClearConversation(ctx context.Context) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM conversation`); err != nil {
		return fmt.Errorf("index: clear conversation: %w", err)
	}
	return nil
}
