package index

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/starford/wunjo/internal/datasource"
	"github.com/starford/wunjo/internal/models"
)

var fieldRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// Repository lists one collection of indexed records.
type Repository[T any] struct {
	db         *DB
	collection string
}

// List returns records matching every filter, oldest first.
func (r Repository[T]) List(ctx context.Context, filters ...datasource.Filter) ([]T, error) {
	var (
		sb   strings.Builder
		args = []any{r.collection}
	)
	sb.WriteString(`SELECT doc FROM records WHERE collection = ?`)
	for _, f := range filters {
		if !fieldRe.MatchString(f.Field) {
			return nil, fmt.Errorf("index: invalid filter field %q", f.Field)
		}
		v := filterValue(f.Value)
		if v == nil {
			sb.WriteString(` AND json_extract(doc, ?) IS NULL`)
			args = append(args, "$."+f.Field)
			continue
		}
		sb.WriteString(` AND json_extract(doc, ?) = ?`)
		args = append(args, "$."+f.Field, v)
	}
	sb.WriteString(` ORDER BY created_at, id`)

	rows, err := r.db.conn.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("index: list %s: %w", r.collection, err)
	}
	defer rows.Close()

	out := make([]T, 0)
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var item T
		if err := json.Unmarshal([]byte(raw), &item); err != nil {
			return nil, fmt.Errorf("index: decode %s: %w", r.collection, err)
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

// filterValue converts v to what json_extract yields for the same JSON value.
func filterValue(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case bool:
		if x {
			return 1
		}
		return 0
	case *string:
		if x == nil {
			return nil
		}
		return *x
	}
	return v
}

// Source exposes the index as a datasource.Source.
func (db *DB) Source() datasource.Source {
	return datasource.Source{
		Notes:   Repository[models.Note]{db: db, collection: models.CollectionNotes},
		Folders: Repository[models.Folder]{db: db, collection: models.CollectionFolders},
		Boards:  Repository[models.Board]{db: db, collection: models.CollectionBoards},
		Lists:   Repository[models.List]{db: db, collection: models.CollectionLists},
		Cards:   Repository[models.Card]{db: db, collection: models.CollectionCards},
	}
}
