// Package storage reads and writes workspace files on disk.
package storage

import (
	"path/filepath"
	"strings"

	"github.com/starford/wunjo/internal/models"
)

// Provider is the workspace file interface. Paths are relative to the
// workspace root and use forward slashes.
type Provider interface {
	// List returns metadata for every note and board file under dir.
	List(dir string) ([]models.FileMetadata, error)
	Read(path string) ([]byte, error)
	// Write replaces path atomically, creating parent directories.
	Write(path string, content []byte) error
}

// Kind classifies a workspace file.
type Kind int

const (
	KindOther Kind = iota
	KindNote
	KindBoard
)

// KindOf classifies path by extension.
func KindOf(path string) Kind {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md":
		return KindNote
	case ".yaml", ".yml":
		return KindBoard
	}
	return KindOther
}
