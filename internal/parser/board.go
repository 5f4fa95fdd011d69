package parser

import (
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/starford/wunjo/internal/models"
)

type boardFile struct {
	ID      string      `yaml:"id"`
	Name    string      `yaml:"name"`
	Created Timestamp   `yaml:"created"`
	Updated Timestamp   `yaml:"updated"`
	Lists   []listEntry `yaml:"lists"`
}

type listEntry struct {
	ID      string      `yaml:"id"`
	Name    string      `yaml:"name"`
	Created Timestamp   `yaml:"created"`
	Cards   []cardEntry `yaml:"cards"`
}

type cardEntry struct {
	ID          string       `yaml:"id"`
	Title       string       `yaml:"title"`
	Description string       `yaml:"description"`
	Tags        []models.Tag `yaml:"tags"`
	Created     Timestamp    `yaml:"created"`
	Updated     Timestamp    `yaml:"updated"`
}

// BoardDoc is a parsed board with its lists and cards.
type BoardDoc struct {
	Board models.Board
	Lists []models.List
	Cards []models.Card
}

// ParseBoard parses the board YAML at path. Records without an explicit id
// get one derived from their position; missing created times fall back to
// the board's, then to modTime.
func ParseBoard(p string, data []byte, modTime time.Time) (*BoardDoc, error) {
	var f boardFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parser: board %s: %w", p, err)
	}

	boardCreated := f.Created.Time
	if boardCreated.IsZero() {
		boardCreated = modTime
	}
	name := strings.TrimSpace(f.Name)
	if name == "" {
		name = strings.TrimSuffix(path.Base(p), path.Ext(p))
	}
	doc := &BoardDoc{Board: models.Board{
		ID:         orID(f.ID, models.CollectionBoards, p),
		Name:       name,
		Path:       p,
		Timestamps: models.Timestamps{CreatedAt: boardCreated, UpdatedAt: f.Updated.ptr()},
	}}

	for li, l := range f.Lists {
		listCreated := l.Created.Time
		if listCreated.IsZero() {
			listCreated = boardCreated
		}
		list := models.List{
			ID:         orID(l.ID, models.CollectionLists, p, strconv.Itoa(li)),
			Name:       strings.TrimSpace(l.Name),
			BoardID:    doc.Board.ID,
			Position:   li,
			Timestamps: models.Timestamps{CreatedAt: listCreated},
		}
		doc.Lists = append(doc.Lists, list)

		for ci, c := range l.Cards {
			created := c.Created.Time
			if created.IsZero() {
				created = listCreated
			}
			doc.Cards = append(doc.Cards, models.Card{
				ID:          orID(c.ID, models.CollectionCards, p, strconv.Itoa(li), strconv.Itoa(ci)),
				Title:       strings.TrimSpace(c.Title),
				Description: c.Description,
				Tags:        mergeTags(c.Tags, ""),
				ListID:      list.ID,
				BoardID:     doc.Board.ID,
				Position:    ci,
				Timestamps:  models.Timestamps{CreatedAt: created, UpdatedAt: c.Updated.ptr()},
			})
		}
	}
	return doc, nil
}

// orID returns the record id for parts, which start with collection and
// board path. An explicit id replaces the positional parts but stays scoped
// to the board file, so two boards may both name a list "done".
func orID(explicit string, parts ...string) string {
	if explicit = strings.TrimSpace(explicit); explicit != "" {
		return ID(parts[0], parts[1], "#"+explicit)
	}
	return ID(parts...)
}
