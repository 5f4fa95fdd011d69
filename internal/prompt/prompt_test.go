package prompt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/wunjo/internal/aggregator"
	"github.com/starford/wunjo/internal/analyzer"
	"github.com/starford/wunjo/internal/llm"
	"github.com/starford/wunjo/internal/models"
)

func sampleData() *aggregator.Data {
	return &aggregator.Data{
		TimeRange: analyzer.Range30d,
		Tasks: &aggregator.TasksSummary{
			TotalTasks:     4,
			CompletedTasks: 3,
			PendingTasks:   1,
			CompletionRate: 75,
			TasksByBoard:   []aggregator.BoardBreakdown{{Board: "Work", Total: 4, Completed: 3, Pending: 1}},
			OverdueTasks:   1,
			TopTags:        []aggregator.TagCount{{Tag: "urgent", Count: 2}, {Tag: "q3", Count: 1}},
		},
		Notes: &aggregator.NotesSummary{
			TotalNotes:     2,
			NotesByFolder:  []aggregator.FolderCount{{Folder: "Ideas", Count: 2}},
			TopTags:        []aggregator.TagCount{},
			AvgNotesPerDay: 0.1,
		},
		Patterns: &aggregator.PatternsSummary{
			Available:         true,
			MostProductiveDay: "Monday",
			PeakHours:         []int{9, 14},
			ConsistencyScore:  2.3,
		},
		SearchTerm: "budget",
		SearchResults: []aggregator.SearchResult{
			{Title: "Budget 2025", Snippet: "rent and food", Tags: []models.Tag{{Name: "finance"}, {Name: "home"}}},
			{Title: "Q3 plan"},
		},
		Timestamp: time.Date(2025, 6, 18, 12, 0, 0, 0, time.UTC),
	}
}

func TestContext_AllSections(t *testing.T) {
	want := "DATA CONTEXT:\n" +
		"Time Range: Last 30 days\n\n" +
		"TASKS:\n" +
		"• Total: 4 tasks\n" +
		"• Completed: 3 (75%)\n" +
		"• Pending: 1\n" +
		"• By Board:\n" +
		"  - Work: 4 tasks (3 completed)\n" +
		"• Overdue: 1 tasks\n" +
		"• Top tags: #urgent (2), #q3 (1)\n" +
		"\n" +
		"NOTES:\n" +
		"• Total: 2 notes\n" +
		"• By Folder:\n" +
		"  - Ideas: 2 notes\n" +
		"• Average: 0.1 notes/day\n" +
		"\n" +
		"PRODUCTIVITY PATTERNS:\n" +
		"• Most productive: Monday\n" +
		"• Peak hours: 9:00, 14:00\n" +
		"• Consistency score: 2.3/10\n" +
		"\n" +
		"SEARCH RESULTS for \"budget\":\n" +
		"1. \"Budget 2025\"\n" +
		"   Snippet: rent and food\n" +
		"   Tags: finance, home\n" +
		"2. \"Q3 plan\"\n" +
		"\n"

	assert.Equal(t, want, New().Context(sampleData()))
}

func TestContext_OnlyPresentSections(t *testing.T) {
	data := &aggregator.Data{
		TimeRange: analyzer.Range7d,
		Notes:     &aggregator.NotesSummary{TotalNotes: 0},
	}
	got := New().Context(data)
	assert.Equal(t, "DATA CONTEXT:\nTime Range: Last 7 days\n\nNOTES:\n• Total: 0 notes\n\n", got)
}

func TestContext_EmptySearch(t *testing.T) {
	data := &aggregator.Data{TimeRange: analyzer.RangeAll, SearchTerm: "taxes", SearchResults: nil}
	assert.Contains(t, New().Context(data), "SEARCH RESULTS for \"taxes\": No results found\n")
}

func TestContext_SearchQuotesVerbatim(t *testing.T) {
	data := &aggregator.Data{
		TimeRange:     analyzer.RangeAll,
		SearchTerm:    `say "hi"`,
		SearchResults: []aggregator.SearchResult{{Title: `C:\notes "draft"`}},
	}
	out := New().Context(data)
	assert.Contains(t, out, "SEARCH RESULTS for \"say \"hi\"\":\n")
	assert.Contains(t, out, "1. \"C:\\notes \"draft\"\"\n")
}

func TestContext_PatternsUnavailable(t *testing.T) {
	data := &aggregator.Data{Patterns: &aggregator.PatternsSummary{}}
	got := New().Context(data)
	assert.Contains(t, got, "PRODUCTIVITY PATTERNS:\n• Not enough activity")
	assert.NotContains(t, got, "Most productive")
}

func TestBuild(t *testing.T) {
	history := []llm.Message{
		{Role: llm.RoleUser, Content: "hi"},
		{Role: llm.RoleAssistant, Content: "hello"},
	}
	p := New().Build(sampleData(), history, "How am I doing?")

	assert.Equal(t, SystemPrompt, p.System)
	assert.Equal(t, llm.DefaultMaxTokens, p.MaxTokens)
	require.Len(t, p.Messages, 3)
	assert.Equal(t, history, p.Messages[:2])

	last := p.Messages[2]
	assert.Equal(t, llm.RoleUser, last.Role)
	assert.Contains(t, last.Content, "DATA CONTEXT:\n")
	assert.Contains(t, last.Content, "\n\nUSER QUESTION: How am I doing?")

	// History is not modified.
	assert.Len(t, history, 2)
}

func TestBuild_Deterministic(t *testing.T) {
	b := New()
	assert.Equal(t, b.Build(sampleData(), nil, "q"), b.Build(sampleData(), nil, "q"))
}

func TestBuild_Options(t *testing.T) {
	p := New(WithMaxTokens(800), WithSystemPrompt("short")).Build(nil, nil, "q")
	assert.Equal(t, 800, p.MaxTokens)
	assert.Equal(t, "short", p.System)
	assert.Equal(t, "DATA CONTEXT:\nTime Range: Last 7 days\n\n\nUSER QUESTION: q", p.Messages[0].Content)

	assert.Equal(t, llm.DefaultMaxTokens, New(WithMaxTokens(0)).Build(nil, nil, "q").MaxTokens)
}

func TestEstimateTokens(t *testing.T) {
	p := llm.Prompt{System: "abcd", Messages: []llm.Message{}}
	// "abcd" + "[]"
	assert.Equal(t, 2, EstimateTokens(p))
}
