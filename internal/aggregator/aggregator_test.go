package aggregator

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/wunjo/internal/analyzer"
	"github.com/starford/wunjo/internal/datasource"
	"github.com/starford/wunjo/internal/models"
)

// Wednesday noon.
var fixedNow = time.Date(2025, 6, 18, 12, 0, 0, 0, time.UTC)

func daysAgo(n int) time.Time { return fixedNow.AddDate(0, 0, -n) }

func ts(created time.Time) models.Timestamps { return models.Timestamps{CreatedAt: created} }

func newAgg(mem *datasource.Memory) *Aggregator {
	return New(mem.Source(), WithClock(func() time.Time { return fixedNow }))
}

func tags(names ...string) []models.Tag {
	out := make([]models.Tag, len(names))
	for i, n := range names {
		out[i] = models.Tag{Name: n}
	}
	return out
}

func seedBoard(mem *datasource.Memory) {
	mem.BoardRepo.Add(
		models.Board{ID: "b1", Name: "Work", Timestamps: ts(daysAgo(30))},
		models.Board{ID: "b2", Name: "Home", Timestamps: ts(daysAgo(30))},
	)
	mem.ListRepo.Add(
		models.List{ID: "l1", Name: "To Do", BoardID: "b1", Timestamps: ts(daysAgo(30))},
		models.List{ID: "l2", Name: "Done", BoardID: "b1", Timestamps: ts(daysAgo(30))},
		models.List{ID: "l3", Name: "Backlog", BoardID: "b2", Timestamps: ts(daysAgo(30))},
	)
}

func TestIsDoneList(t *testing.T) {
	assert.True(t, IsDoneList(models.List{Name: "Done"}))
	assert.True(t, IsDoneList(models.List{Name: "Completed this sprint"}))
	assert.True(t, IsDoneList(models.List{Name: "ALL DONE"}))
	assert.False(t, IsDoneList(models.List{Name: "In Progress"}))
}

func TestAggregateTasks_NoCards(t *testing.T) {
	mem := datasource.NewMemory()
	seedBoard(mem)

	s := newAgg(mem).AggregateTasks(context.Background(), analyzer.Range7d)
	assert.Equal(t, 0, s.TotalTasks)
	assert.Equal(t, 0, s.CompletionRate)
	assert.Empty(t, s.MostActiveBoard)
	assert.Len(t, s.TasksByBoard, 2)
	assert.NotNil(t, s.TopTags)
}

func TestAggregateTasks_Counts(t *testing.T) {
	mem := datasource.NewMemory()
	seedBoard(mem)
	mem.CardRepo.Add(
		models.Card{ID: "c1", ListID: "l1", BoardID: "b1", Tags: tags("urgent"), Timestamps: ts(daysAgo(1))},
		models.Card{ID: "c2", ListID: "l2", BoardID: "b1", Tags: tags("urgent", "q3"), Timestamps: ts(daysAgo(2))},
		models.Card{ID: "c3", ListID: "l2", BoardID: "b1", Timestamps: ts(daysAgo(3))},
		models.Card{ID: "c4", ListID: "l3", BoardID: "b2", Tags: tags("q3"), Timestamps: ts(daysAgo(4))},
		// Outside the 7 day window.
		models.Card{ID: "c5", ListID: "l1", BoardID: "b1", Timestamps: ts(daysAgo(20))},
	)

	s := newAgg(mem).AggregateTasks(context.Background(), analyzer.Range7d)
	assert.Equal(t, 4, s.TotalTasks)
	assert.Equal(t, 2, s.CompletedTasks)
	assert.Equal(t, 2, s.PendingTasks)
	assert.Equal(t, 50, s.CompletionRate)
	assert.Equal(t, 0, s.OverdueTasks)
	assert.Equal(t, "Work", s.MostActiveBoard)
	assert.Equal(t, []BoardBreakdown{
		{Board: "Home", Total: 1, Completed: 0, Pending: 1},
		{Board: "Work", Total: 3, Completed: 2, Pending: 1},
	}, s.TasksByBoard)
	// Tied counts keep first-seen order.
	assert.Equal(t, []TagCount{{Tag: "urgent", Count: 2}, {Tag: "q3", Count: 2}}, s.TopTags)
}

func TestAggregateTasks_Overdue(t *testing.T) {
	mem := datasource.NewMemory()
	seedBoard(mem)
	mem.CardRepo.Add(models.Card{ID: "old", ListID: "l1", BoardID: "b1", Timestamps: ts(daysAgo(10))})

	agg := newAgg(mem)
	assert.Equal(t, 1, agg.AggregateTasks(context.Background(), analyzer.RangeAll).OverdueTasks)
	// Filtered out of the 7 day window entirely.
	assert.Equal(t, 0, agg.AggregateTasks(context.Background(), analyzer.Range7d).OverdueTasks)

	mem.CardRepo.Replace(models.Card{ID: "old", ListID: "l2", BoardID: "b1", Timestamps: ts(daysAgo(10))})
	assert.Equal(t, 0, agg.AggregateTasks(context.Background(), analyzer.RangeAll).OverdueTasks)
}

func TestAggregateTasks_MissingCreatedNotOverdue(t *testing.T) {
	mem := datasource.NewMemory()
	seedBoard(mem)
	mem.CardRepo.Add(models.Card{ID: "undated", ListID: "l1", BoardID: "b1"})

	s := newAgg(mem).AggregateTasks(context.Background(), analyzer.RangeAll)
	assert.Equal(t, 1, s.TotalTasks)
	assert.Equal(t, 0, s.OverdueTasks)
}

func TestAggregateTasks_UpdatedAtCountsAsActivity(t *testing.T) {
	mem := datasource.NewMemory()
	seedBoard(mem)
	updated := daysAgo(1)
	mem.CardRepo.Add(models.Card{
		ID: "c1", ListID: "l1", BoardID: "b1",
		Timestamps: models.Timestamps{CreatedAt: daysAgo(40), UpdatedAt: &updated},
	})

	s := newAgg(mem).AggregateTasks(context.Background(), analyzer.Range7d)
	assert.Equal(t, 1, s.TotalTasks)
	assert.Equal(t, 1, s.OverdueTasks)
}

func TestAggregateTasks_TopTagsLimit(t *testing.T) {
	mem := datasource.NewMemory()
	seedBoard(mem)
	mem.CardRepo.Add(
		models.Card{ID: "c1", ListID: "l1", Tags: tags("a", "b", "c", "d", "e", "f"), Timestamps: ts(daysAgo(1))},
		models.Card{ID: "c2", ListID: "l1", Tags: tags("f"), Timestamps: ts(daysAgo(1))},
	)

	s := newAgg(mem).AggregateTasks(context.Background(), analyzer.Range7d)
	require.Len(t, s.TopTags, 5)
	assert.Equal(t, TagCount{Tag: "f", Count: 2}, s.TopTags[0])
	assert.Equal(t, "a", s.TopTags[1].Tag)
}

func TestAggregateNotes(t *testing.T) {
	mem := datasource.NewMemory()
	ideas, journal := "f1", "f2"
	mem.FolderRepo.Add(
		models.Folder{ID: ideas, Name: "Ideas"},
		models.Folder{ID: journal, Name: "Journal"},
		models.Folder{ID: "f3", Name: "Archive"},
	)
	mem.NoteRepo.Add(
		models.Note{ID: "n1", FolderID: &ideas, IsPinned: true, Tags: tags("go"), Timestamps: ts(daysAgo(1))},
		models.Note{ID: "n2", FolderID: &ideas, Tags: tags("go", "ai"), Timestamps: ts(daysAgo(2))},
		models.Note{ID: "n3", FolderID: &journal, Timestamps: ts(daysAgo(3))},
		models.Note{ID: "n4", Timestamps: ts(daysAgo(50))},
	)

	s := newAgg(mem).AggregateNotes(context.Background(), analyzer.Range7d)
	assert.Equal(t, 3, s.TotalNotes)
	assert.Equal(t, 1, s.PinnedNotes)
	assert.Equal(t, []FolderCount{
		{Folder: "Archive", Count: 0},
		{Folder: "Ideas", Count: 2},
		{Folder: "Journal", Count: 1},
	}, s.NotesByFolder)
	assert.Equal(t, []TagCount{{Tag: "go", Count: 2}, {Tag: "ai", Count: 1}}, s.TopTags)
	assert.Equal(t, 0.4, s.AvgNotesPerDay)
}

func TestAggregateNotes_Empty(t *testing.T) {
	s := newAgg(datasource.NewMemory()).AggregateNotes(context.Background(), analyzer.Range30d)
	assert.Equal(t, 0, s.TotalNotes)
	assert.Equal(t, 0.0, s.AvgNotesPerDay)
	assert.NotNil(t, s.NotesByFolder)
}

func TestGetData_Sections(t *testing.T) {
	mem := datasource.NewMemory()
	seedBoard(mem)
	mem.CardRepo.Add(models.Card{ID: "c1", ListID: "l1", Timestamps: ts(daysAgo(1))})
	mem.NoteRepo.Add(models.Note{ID: "n1", Title: "Budget", Timestamps: ts(daysAgo(1))})
	agg := newAgg(mem)
	ctx := context.Background()

	tasksOnly := agg.GetData(ctx, analyzer.DataNeed{NeedsTasks: true, TimeRange: analyzer.Range7d})
	assert.NotNil(t, tasksOnly.Tasks)
	assert.Nil(t, tasksOnly.Notes)
	assert.Nil(t, tasksOnly.Patterns)
	assert.False(t, tasksOnly.Searched())
	assert.Equal(t, fixedNow, tasksOnly.Timestamp)

	both := agg.GetData(ctx, analyzer.DataNeed{NeedsTasks: true, NeedsNotes: true, TimeRange: analyzer.Range7d})
	require.NotNil(t, both.Patterns)
	assert.True(t, both.Patterns.Available)

	search := agg.GetData(ctx, analyzer.DataNeed{NeedsNotes: true, SearchTerm: "budget"})
	assert.Equal(t, analyzer.Range7d, search.TimeRange)
	assert.True(t, search.Searched())
	require.Len(t, search.SearchResults, 1)
	assert.Equal(t, "n1", search.SearchResults[0].ID)
}

func TestGetData_Idempotent(t *testing.T) {
	mem := datasource.NewMemory()
	seedBoard(mem)
	mem.CardRepo.Add(
		models.Card{ID: "c1", ListID: "l1", Tags: tags("x"), Timestamps: ts(daysAgo(1))},
		models.Card{ID: "c2", ListID: "l2", Tags: tags("y"), Timestamps: ts(daysAgo(2))},
	)
	mem.NoteRepo.Add(models.Note{ID: "n1", Tags: tags("y"), Timestamps: ts(daysAgo(3))})
	agg := newAgg(mem)
	need := analyzer.DataNeed{NeedsTasks: true, NeedsNotes: true, TimeRange: analyzer.Range30d}

	assert.Equal(t, agg.GetData(context.Background(), need), agg.GetData(context.Background(), need))
}

func TestGetData_DegradesOnRepositoryError(t *testing.T) {
	mem := datasource.NewMemory()
	seedBoard(mem)
	mem.CardRepo.FailWith(errors.New("disk on fire"))
	mem.NoteRepo.Add(models.Note{ID: "n1", Timestamps: ts(daysAgo(1))})

	data := newAgg(mem).GetData(context.Background(), analyzer.DataNeed{NeedsTasks: true, NeedsNotes: true})
	require.NotNil(t, data.Tasks)
	assert.Equal(t, 0, data.Tasks.TotalTasks)
	assert.Empty(t, data.Tasks.TasksByBoard)
	require.NotNil(t, data.Notes)
	assert.Equal(t, 1, data.Notes.TotalNotes)
}

func TestSearch_LimitAndSnippet(t *testing.T) {
	mem := datasource.NewMemory()
	long := strings.Repeat("é", 200)
	for i := range 12 {
		mem.NoteRepo.Add(models.Note{
			ID:         string(rune('a' + i)),
			Title:      "Meeting notes",
			Content:    long,
			Timestamps: ts(daysAgo(i)),
		})
	}
	mem.NoteRepo.Add(models.Note{ID: "z", Title: "Other", Content: "short MEETING recap", Timestamps: ts(daysAgo(400))})

	data := newAgg(mem).GetData(context.Background(), analyzer.DataNeed{NeedsNotes: true, SearchTerm: "meeting"})
	require.Len(t, data.SearchResults, 10)
	// Oldest first, regardless of the time window.
	assert.Equal(t, "z", data.SearchResults[0].ID)
	assert.Equal(t, "short MEETING recap", data.SearchResults[0].Snippet)

	s := data.SearchResults[1].Snippet
	assert.True(t, strings.HasSuffix(s, "..."))
	assert.Equal(t, 153, len([]rune(s)))
}

func TestSearch_NoResults(t *testing.T) {
	mem := datasource.NewMemory()
	mem.NoteRepo.Add(models.Note{ID: "n1", Title: "Groceries"})

	data := newAgg(mem).GetData(context.Background(), analyzer.DataNeed{NeedsNotes: true, SearchTerm: "budget"})
	assert.True(t, data.Searched())
	assert.Empty(t, data.SearchResults)
}
