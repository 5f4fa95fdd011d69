// Package prompt renders aggregated workspace data and conversation history
// into an llm.Prompt.
package prompt

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/starford/wunjo/internal/aggregator"
	"github.com/starford/wunjo/internal/analyzer"
	"github.com/starford/wunjo/internal/llm"
	"github.com/starford/wunjo/internal/models"
)

// SystemPrompt is the assistant's standing instruction.
const SystemPrompt = `You are a productivity assistant for a task & notes management app.

CAPABILITIES:
- Analyze task/note data and provide insights
- Answer questions about user's productivity
- Search through notes and tasks
- Suggest improvements based on patterns

PERSONALITY & TONE:
- Concise (2-3 sentences unless asked for detail)
- Encouraging and positive
- Use emojis sparingly (max 2-3 per response)
- Professional but friendly

FORMATTING RULES:
- Highlight numbers and key facts in **bold**
- Use bullet points for lists (• item)
- Use line breaks for readability
- When referencing items, use: "Note: [Title]" or "Task: [Title]"

LIMITATIONS:
- You can only analyze data, not create/modify
- If user asks to create/edit, explain they need to do it manually
- Never make up data - only use what's provided

RESPONSE FORMAT:
1. Start with a direct answer
2. Support with specific data points
3. End with an actionable insight (if relevant)`

// Builder is stateless after construction and safe for concurrent use.
type Builder struct {
	system    string
	maxTokens int
}

// Option configures a Builder.
type Option func(*Builder)

// WithMaxTokens overrides the reply token cap.
func WithMaxTokens(n int) Option {
	return func(b *Builder) {
		if n > 0 {
			b.maxTokens = n
		}
	}
}

// WithSystemPrompt replaces SystemPrompt.
func WithSystemPrompt(s string) Option {
	return func(b *Builder) { b.system = s }
}

func New(opts ...Option) *Builder {
	b := &Builder{system: SystemPrompt, maxTokens: llm.DefaultMaxTokens}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build appends the rendered data context and query after history, which is
// passed through unchanged.
func (b *Builder) Build(data *aggregator.Data, history []llm.Message, query string) llm.Prompt {
	messages := make([]llm.Message, 0, len(history)+1)
	messages = append(messages, history...)
	messages = append(messages, llm.Message{
		Role:    llm.RoleUser,
		Content: b.Context(data) + "\nUSER QUESTION: " + query,
	})
	return llm.Prompt{System: b.system, Messages: messages, MaxTokens: b.maxTokens}
}

// Context renders the DATA CONTEXT block. Only sections present in data are
// rendered.
func (b *Builder) Context(data *aggregator.Data) string {
	var sb strings.Builder
	tr := analyzer.Range7d
	if data != nil && data.TimeRange != "" {
		tr = data.TimeRange
	}
	sb.WriteString("DATA CONTEXT:\n")
	fmt.Fprintf(&sb, "Time Range: %s\n\n", tr.Label())
	if data == nil {
		return sb.String()
	}

	if data.Tasks != nil {
		writeTasks(&sb, data.Tasks)
		sb.WriteString("\n")
	}
	if data.Notes != nil {
		writeNotes(&sb, data.Notes)
		sb.WriteString("\n")
	}
	if data.Patterns != nil {
		writePatterns(&sb, data.Patterns)
		sb.WriteString("\n")
	}
	if data.Searched() {
		writeSearch(&sb, data.SearchTerm, data.SearchResults)
		sb.WriteString("\n")
	}
	return sb.String()
}

func writeTasks(sb *strings.Builder, t *aggregator.TasksSummary) {
	sb.WriteString("TASKS:\n")
	fmt.Fprintf(sb, "• Total: %d tasks\n", t.TotalTasks)
	fmt.Fprintf(sb, "• Completed: %d (%d%%)\n", t.CompletedTasks, t.CompletionRate)
	fmt.Fprintf(sb, "• Pending: %d\n", t.PendingTasks)
	if len(t.TasksByBoard) > 0 {
		sb.WriteString("• By Board:\n")
		for _, b := range t.TasksByBoard {
			fmt.Fprintf(sb, "  - %s: %d tasks (%d completed)\n", b.Board, b.Total, b.Completed)
		}
	}
	if t.OverdueTasks > 0 {
		fmt.Fprintf(sb, "• Overdue: %d tasks\n", t.OverdueTasks)
	}
	writeTopTags(sb, t.TopTags)
}

func writeNotes(sb *strings.Builder, n *aggregator.NotesSummary) {
	sb.WriteString("NOTES:\n")
	fmt.Fprintf(sb, "• Total: %d notes\n", n.TotalNotes)
	if len(n.NotesByFolder) > 0 {
		sb.WriteString("• By Folder:\n")
		for _, f := range n.NotesByFolder {
			fmt.Fprintf(sb, "  - %s: %d notes\n", f.Folder, f.Count)
		}
	}
	if n.PinnedNotes > 0 {
		fmt.Fprintf(sb, "• Pinned: %d notes\n", n.PinnedNotes)
	}
	writeTopTags(sb, n.TopTags)
	if n.AvgNotesPerDay != 0 {
		fmt.Fprintf(sb, "• Average: %s notes/day\n", formatFloat(n.AvgNotesPerDay))
	}
}

func writePatterns(sb *strings.Builder, p *aggregator.PatternsSummary) {
	sb.WriteString("PRODUCTIVITY PATTERNS:\n")
	if !p.Available {
		sb.WriteString("• Not enough activity in this period to identify patterns\n")
		return
	}
	if p.MostProductiveDay != "" {
		fmt.Fprintf(sb, "• Most productive: %s\n", p.MostProductiveDay)
	}
	if len(p.PeakHours) > 0 {
		hours := make([]string, len(p.PeakHours))
		for i, h := range p.PeakHours {
			hours[i] = fmt.Sprintf("%d:00", h)
		}
		fmt.Fprintf(sb, "• Peak hours: %s\n", strings.Join(hours, ", "))
	}
	if p.ConsistencyScore != 0 {
		fmt.Fprintf(sb, "• Consistency score: %s/10\n", formatFloat(p.ConsistencyScore))
	}
}

func writeSearch(sb *strings.Builder, term string, results []aggregator.SearchResult) {
	if len(results) == 0 {
		fmt.Fprintf(sb, "SEARCH RESULTS for \"%s\": No results found\n", term)
		return
	}
	fmt.Fprintf(sb, "SEARCH RESULTS for \"%s\":\n", term)
	for i, r := range results {
		fmt.Fprintf(sb, "%d. \"%s\"\n", i+1, r.Title)
		if r.Snippet != "" {
			fmt.Fprintf(sb, "   Snippet: %s\n", r.Snippet)
		}
		if len(r.Tags) > 0 {
			fmt.Fprintf(sb, "   Tags: %s\n", strings.Join(models.TagNames(r.Tags), ", "))
		}
	}
}

func writeTopTags(sb *strings.Builder, tags []aggregator.TagCount) {
	if len(tags) == 0 {
		return
	}
	parts := make([]string, len(tags))
	for i, t := range tags {
		parts[i] = fmt.Sprintf("#%s (%d)", t.Tag, t.Count)
	}
	fmt.Fprintf(sb, "• Top tags: %s\n", strings.Join(parts, ", "))
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// EstimateTokens approximates the prompt size: the system text plus the
// JSON-encoded messages, at four characters per token.
func EstimateTokens(p llm.Prompt) int {
	raw, _ := json.Marshal(p.Messages)
	return llm.EstimateTokens(p.System + string(raw))
}
