package index

import (
	"github.com/starford/wunjo/internal/chat"
	"github.com/starford/wunjo/internal/datasource"
	"github.com/starford/wunjo/internal/models"
)

// Compile-time checks for the contracts *DB serves.
var (
	_ chat.HistoryStore                    = (*DB)(nil)
	_ datasource.Repository[models.Note]   = Repository[models.Note]{}
	_ datasource.Repository[models.Folder] = Repository[models.Folder]{}
	_ datasource.Repository[models.Board]  = Repository[models.Board]{}
	_ datasource.Repository[models.List]   = Repository[models.List]{}
	_ datasource.Repository[models.Card]   = Repository[models.Card]{}
)
