package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/starford/wunjo/internal/models"
)

// MemoryRepository is an in-process Repository backed by a slice.
// Records are returned in insertion order.
type MemoryRepository[T any] struct {
	mu    sync.RWMutex
	items []T
	err   error
}

// NewMemoryRepository creates a repository holding items.
func NewMemoryRepository[T any](items ...T) *MemoryRepository[T] {
	return &MemoryRepository[T]{items: append([]T(nil), items...)}
}

// Add appends records.
func (r *MemoryRepository[T]) Add(items ...T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, items...)
}

// Replace swaps the full record set.
func (r *MemoryRepository[T]) Replace(items ...T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append([]T(nil), items...)
}

// FailWith makes every subsequent List return err (nil clears it).
func (r *MemoryRepository[T]) FailWith(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

// List returns a copy of the records matching every filter.
func (r *MemoryRepository[T]) List(ctx context.Context, filters ...Filter) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.err != nil {
		return nil, r.err
	}
	out := make([]T, 0, len(r.items))
	for _, item := range r.items {
		ok, err := matches(item, filters)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, item)
		}
	}
	return out, nil
}

// matches compares filter values against the record's JSON representation,
// which keeps field names identical to the SQLite json_extract paths.
func matches(item any, filters []Filter) (bool, error) {
	if len(filters) == 0 {
		return true, nil
	}
	raw, err := json.Marshal(item)
	if err != nil {
		return false, fmt.Errorf("datasource: encode record: %w", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return false, fmt.Errorf("datasource: decode record: %w", err)
	}
	for _, f := range filters {
		v, ok := fields[f.Field]
		if !ok || fmt.Sprint(v) != fmt.Sprint(f.Value) {
			return false, nil
		}
	}
	return true, nil
}

// Memory is a Source whose repositories live in memory.
type Memory struct {
	NoteRepo   *MemoryRepository[models.Note]
	FolderRepo *MemoryRepository[models.Folder]
	BoardRepo  *MemoryRepository[models.Board]
	ListRepo   *MemoryRepository[models.List]
	CardRepo   *MemoryRepository[models.Card]
}

// NewMemory creates an empty in-memory workspace.
func NewMemory() *Memory {
	return &Memory{
		NoteRepo:   NewMemoryRepository[models.Note](),
		FolderRepo: NewMemoryRepository[models.Folder](),
		BoardRepo:  NewMemoryRepository[models.Board](),
		ListRepo:   NewMemoryRepository[models.List](),
		CardRepo:   NewMemoryRepository[models.Card](),
	}
}

// Source exposes the repositories through the Source contract.
func (m *Memory) Source() Source {
	return Source{
		Notes:   m.NoteRepo,
		Folders: m.FolderRepo,
		Boards:  m.BoardRepo,
		Lists:   m.ListRepo,
		Cards:   m.CardRepo,
	}
}
