package aggregator

import (
	"time"

	"github.com/starford/wunjo/internal/analyzer"
	"github.com/starford/wunjo/internal/models"
)

// TagCount is one entry of a tag frequency ranking.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// BoardBreakdown is the per-board task split.
type BoardBreakdown struct {
	Board     string `json:"board"`
	Total     int    `json:"total"`
	Completed int    `json:"completed"`
	Pending   int    `json:"pending"`
}

// TasksSummary aggregates cards in the window.
type TasksSummary struct {
	TotalTasks      int              `json:"totalTasks"`
	CompletedTasks  int              `json:"completedTasks"`
	PendingTasks    int              `json:"pendingTasks"`
	CompletionRate  int              `json:"completionRate"`
	TasksByBoard    []BoardBreakdown `json:"tasksByBoard"`
	MostActiveBoard string           `json:"mostActiveBoard,omitempty"`
	OverdueTasks    int              `json:"overdueTasks"`
	TopTags         []TagCount       `json:"topTags"`
}

// FolderCount is the number of notes in one folder.
type FolderCount struct {
	Folder string `json:"folder"`
	Count  int    `json:"count"`
}

// NotesSummary aggregates notes in the window.
type NotesSummary struct {
	TotalNotes     int           `json:"totalNotes"`
	NotesByFolder  []FolderCount `json:"notesByFolder"`
	PinnedNotes    int           `json:"pinnedNotes"`
	TopTags        []TagCount    `json:"topTags"`
	AvgNotesPerDay float64       `json:"avgNotesPerDay"`
}

// PatternsSummary describes when work happens. Available is false when the
// window holds no activity; the other fields are then empty and must not be
// presented as findings.
type PatternsSummary struct {
	Available         bool    `json:"available"`
	MostProductiveDay string  `json:"mostProductiveDay,omitempty"`
	PeakHours         []int   `json:"peakHours,omitempty"`
	ConsistencyScore  float64 `json:"consistencyScore"`
	ActiveDays        int     `json:"activeDays"`
}

// SearchResult is a note matching the search term.
type SearchResult struct {
	ID        string       `json:"id"`
	Title     string       `json:"title"`
	Snippet   string       `json:"snippet"`
	FolderID  *string      `json:"folderId,omitempty"`
	Tags      []models.Tag `json:"tags"`
	CreatedAt time.Time    `json:"createdAt"`
}

// Data is everything gathered for one assistant turn. It is rebuilt from the
// live workspace on every call and never cached.
type Data struct {
	Tasks         *TasksSummary      `json:"tasks,omitempty"`
	Notes         *NotesSummary      `json:"notes,omitempty"`
	Patterns      *PatternsSummary   `json:"patterns,omitempty"`
	SearchTerm    string             `json:"searchTerm,omitempty"`
	SearchResults []SearchResult     `json:"searchResults,omitempty"`
	TimeRange     analyzer.TimeRange `json:"timeRange"`
	Timestamp     time.Time          `json:"timestamp"`
}

// Searched reports whether a note search ran for this turn.
func (d *Data) Searched() bool {
	return d.SearchTerm != ""
}
