// Package datasource defines the read-side contract the assistant uses to
// reach workspace records, independent of where they are stored.
package datasource

import (
	"context"

	"github.com/starford/wunjo/internal/models"
)

// Filter is an exact-match equality on a JSON field of a record.
type Filter struct {
	Field string
	Value any
}

// Eq returns a Filter for field == value.
func Eq(field string, value any) Filter {
	return Filter{Field: field, Value: value}
}

// Repository lists records of one collection. There is no pagination and no
// ordering guarantee; callers sort and filter in memory.
type Repository[T any] interface {
	List(ctx context.Context, filters ...Filter) ([]T, error)
}

// Source bundles the repositories of every collection.
type Source struct {
	Notes   Repository[models.Note]
	Folders Repository[models.Folder]
	Boards  Repository[models.Board]
	Lists   Repository[models.List]
	Cards   Repository[models.Card]
}
