// Package models defines the domain types for Wunjo.
package models

import "time"

// Collection names used by the index and data sources.
const (
	CollectionNotes   = "notes"
	CollectionFolders = "folders"
	CollectionBoards  = "boards"
	CollectionLists   = "lists"
	CollectionCards   = "cards"
)

// Timestamps is embedded by every workspace record.
type Timestamps struct {
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

// ActivityTime returns UpdatedAt when set, otherwise CreatedAt.
func (t Timestamps) ActivityTime() time.Time {
	if t.UpdatedAt != nil && !t.UpdatedAt.IsZero() {
		return *t.UpdatedAt
	}
	return t.CreatedAt
}

// Note is a Markdown note in the workspace.
type Note struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Content  string  `json:"content"`
	Tags     []Tag   `json:"tags"`
	IsPinned bool    `json:"isPinned"`
	FolderID *string `json:"folderId"`
	Path     string  `json:"path,omitempty"`
	Timestamps
}

// Folder groups notes. It maps to a directory in the workspace.
type Folder struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Path string `json:"path,omitempty"`
	Timestamps
}

// Board is a kanban board.
type Board struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Path string `json:"path,omitempty"`
	Timestamps
}

// List is a column on a board.
type List struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	BoardID  string `json:"boardId"`
	Position int    `json:"position"`
	Timestamps
}

// Card is a task on a list.
type Card struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Tags        []Tag  `json:"tags"`
	ListID      string `json:"listId"`
	BoardID     string `json:"boardId"`
	Position    int    `json:"position"`
	Timestamps
}

// FileMetadata is a lightweight representation of a workspace file.
type FileMetadata struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}
