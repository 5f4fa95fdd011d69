// Package parser turns workspace files into records: Markdown notes with
// YAML frontmatter, and YAML kanban boards.
package parser

import (
	"bytes"
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/starford/wunjo/internal/models"
)

// NotesDir is the workspace directory whose subdirectories become folders.
const NotesDir = "notes"

var tagRe = regexp.MustCompile(`(?:^|\s)#([A-Za-z][A-Za-z0-9_/-]*)`)

// idSpace scopes record ids derived from workspace paths.
var idSpace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://wunjo.local/records"))

// ID derives a stable record id from its parts.
func ID(parts ...string) string {
	return uuid.NewSHA1(idSpace, []byte(strings.Join(parts, "\x00"))).String()
}

// Timestamp decodes RFC 3339, "2006-01-02 15:04[:05]" and date-only values.
type Timestamp struct{ time.Time }

var timestampLayouts = []string{time.RFC3339Nano, time.RFC3339, time.DateTime, "2006-01-02 15:04", time.DateOnly}

func (t *Timestamp) UnmarshalYAML(node *yaml.Node) error {
	v := strings.TrimSpace(node.Value)
	if v == "" {
		return nil
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, v); err == nil {
			t.Time = ts
			return nil
		}
	}
	return fmt.Errorf("parser: line %d: unrecognized timestamp %q", node.Line, v)
}

func (t Timestamp) ptr() *time.Time {
	if t.IsZero() {
		return nil
	}
	v := t.Time
	return &v
}

type noteFrontmatter struct {
	Title   string       `yaml:"title"`
	Tags    []models.Tag `yaml:"tags"`
	Pinned  bool         `yaml:"pinned"`
	Created Timestamp    `yaml:"created"`
	Updated Timestamp    `yaml:"updated"`
}

// NoteDoc is a parsed note and, when it lives in a subdirectory of
// NotesDir, its folder.
type NoteDoc struct {
	Note   models.Note
	Folder *models.Folder
}

// ParseNote parses the Markdown file at path. modTime stands in for a
// missing created timestamp. Invalid frontmatter is treated as body text.
func ParseNote(p string, data []byte, modTime time.Time) *NoteDoc {
	fm, body := splitFrontmatter(data)

	note := models.Note{
		ID:       ID(models.CollectionNotes, p),
		Title:    deriveTitle(fm.Title, body, p),
		Content:  body,
		Tags:     mergeTags(fm.Tags, body),
		IsPinned: fm.Pinned,
		Path:     p,
		Timestamps: models.Timestamps{
			CreatedAt: fm.Created.Time,
			UpdatedAt: fm.Updated.ptr(),
		},
	}
	if note.CreatedAt.IsZero() {
		note.CreatedAt = modTime
	}

	doc := &NoteDoc{Note: note}
	if dir := folderPath(p); dir != "" {
		folder := &models.Folder{
			ID:         ID(models.CollectionFolders, dir),
			Name:       strings.TrimPrefix(dir, NotesDir+"/"),
			Path:       dir,
			Timestamps: models.Timestamps{CreatedAt: note.CreatedAt},
		}
		doc.Folder = folder
		doc.Note.FolderID = &folder.ID
	}
	return doc
}

// folderPath returns the note's directory when it is below NotesDir.
func folderPath(p string) string {
	dir := path.Dir(p)
	if dir == "." || dir == NotesDir || !strings.HasPrefix(dir, NotesDir+"/") {
		return ""
	}
	return dir
}

// splitFrontmatter separates a leading --- YAML block from the body.
func splitFrontmatter(data []byte) (noteFrontmatter, string) {
	const delim = "---"
	var fm noteFrontmatter
	trimmed := bytes.TrimLeft(data, "\n\r")
	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return fm, string(data)
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return fm, string(data)
	}
	block := rest[:idx]
	body := strings.TrimLeft(string(rest[idx+1+len(delim):]), "\n\r")

	if err := yaml.Unmarshal(block, &fm); err != nil {
		return noteFrontmatter{}, string(data)
	}
	return fm, body
}

// mergeTags appends inline #tags from body to the frontmatter tags.
func mergeTags(fm []models.Tag, body string) []models.Tag {
	seen := make(map[string]struct{}, len(fm))
	out := make([]models.Tag, 0, len(fm))
	for _, t := range fm {
		t.Name = strings.TrimSpace(t.Name)
		if t.Name == "" {
			continue
		}
		if _, dup := seen[t.Name]; dup {
			continue
		}
		seen[t.Name] = struct{}{}
		out = append(out, t)
	}
	for _, m := range tagRe.FindAllStringSubmatch(body, -1) {
		if _, dup := seen[m[1]]; dup {
			continue
		}
		seen[m[1]] = struct{}{}
		out = append(out, models.Tag{Name: m[1]})
	}
	return out
}

// deriveTitle prefers the frontmatter title, then the first H1, then the
// file name.
func deriveTitle(fmTitle, body, p string) string {
	if fmTitle != "" {
		return fmTitle
	}
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return strings.TrimSuffix(path.Base(p), path.Ext(p))
}
