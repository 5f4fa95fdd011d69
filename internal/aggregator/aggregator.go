// Package aggregator turns raw workspace records into the summaries the
// assistant reasons over: task completion, note activity, work patterns and
// note search hits.
package aggregator

import (
	"context"
	"log/slog"
	"math"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/starford/wunjo/internal/analyzer"
	"github.com/starford/wunjo/internal/datasource"
	"github.com/starford/wunjo/internal/models"
)

const (
	topTagLimit     = 5
	searchLimit     = 10
	snippetLength   = 150
	overdueAfter    = 7 * 24 * time.Hour
	peakHourResults = 3
)

// Aggregator reads from a datasource.Source and never writes to it.
type Aggregator struct {
	src    datasource.Source
	now    func() time.Time
	logger *slog.Logger
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

// WithLogger sets the logger used for degraded sections.
func WithLogger(l *slog.Logger) Option {
	return func(a *Aggregator) { a.logger = l }
}

// New creates an Aggregator over src.
func New(src datasource.Source, opts ...Option) *Aggregator {
	a := &Aggregator{src: src, now: time.Now, logger: slog.Default()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// IsDoneList reports whether cards on l count as completed. Wunjo has no
// explicit status field; a list whose name mentions "done" or "completed"
// marks its cards complete.
func IsDoneList(l models.List) bool {
	name := strings.ToLower(l.Name)
	return strings.Contains(name, "done") || strings.Contains(name, "completed")
}

// GetData gathers what need asks for. Section failures are logged and
// yield zeroed summaries instead of failing the turn.
func (a *Aggregator) GetData(ctx context.Context, need analyzer.DataNeed) *Data {
	tr := need.TimeRange
	if tr == "" {
		tr = analyzer.Range7d
	}
	now := a.now()
	data := &Data{TimeRange: tr}

	var activity []time.Time
	if need.NeedsTasks {
		tasks, cardTimes := a.aggregateTasks(ctx, tr, now)
		data.Tasks = &tasks
		activity = append(activity, cardTimes...)
	}
	if need.NeedsNotes {
		notes, noteTimes := a.aggregateNotes(ctx, tr, now)
		data.Notes = &notes
		activity = append(activity, noteTimes...)
	}
	if need.NeedsTasks && need.NeedsNotes {
		patterns := AnalyzePatterns(activity, tr, now)
		data.Patterns = &patterns
	}
	if need.SearchTerm != "" && need.NeedsNotes {
		data.SearchTerm = need.SearchTerm
		data.SearchResults = a.searchNotes(ctx, need.SearchTerm)
	}

	data.Timestamp = now
	return data
}

// AggregateTasks summarizes cards active within tr.
func (a *Aggregator) AggregateTasks(ctx context.Context, tr analyzer.TimeRange) TasksSummary {
	s, _ := a.aggregateTasks(ctx, tr, a.now())
	return s
}

// AggregateNotes summarizes notes active within tr.
func (a *Aggregator) AggregateNotes(ctx context.Context, tr analyzer.TimeRange) NotesSummary {
	s, _ := a.aggregateNotes(ctx, tr, a.now())
	return s
}

func (a *Aggregator) aggregateTasks(ctx context.Context, tr analyzer.TimeRange, now time.Time) (TasksSummary, []time.Time) {
	var (
		boards []models.Board
		lists  []models.List
		cards  []models.Card
	)
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { boards, err = a.src.Boards.List(gCtx); return err })
	g.Go(func() (err error) { lists, err = a.src.Lists.List(gCtx); return err })
	g.Go(func() (err error) { cards, err = a.src.Cards.List(gCtx); return err })
	if err := g.Wait(); err != nil {
		a.logger.Warn("aggregator: tasks unavailable", slog.String("error", err.Error()))
		return emptyTasks(), nil
	}

	sortByName(boards, func(b models.Board) (string, string) { return b.Name, b.ID })
	filtered := filterByTime(cards, tr, now, func(c models.Card) time.Time { return c.ActivityTime() })

	done := make(map[string]struct{})
	listBoard := make(map[string]string, len(lists))
	for _, l := range lists {
		listBoard[l.ID] = l.BoardID
		if IsDoneList(l) {
			done[l.ID] = struct{}{}
		}
	}
	isDone := func(c models.Card) bool {
		_, ok := done[c.ListID]
		return ok
	}

	s := emptyTasks()
	s.TotalTasks = len(filtered)
	overdueCutoff := now.Add(-overdueAfter)
	tags := newTagCounter()
	times := make([]time.Time, 0, len(filtered))
	for _, c := range filtered {
		if isDone(c) {
			s.CompletedTasks++
		} else if !c.CreatedAt.IsZero() && c.CreatedAt.Before(overdueCutoff) {
			s.OverdueTasks++
		}
		tags.add(c.Tags)
		times = append(times, c.ActivityTime())
	}
	s.PendingTasks = s.TotalTasks - s.CompletedTasks
	if s.TotalTasks > 0 {
		s.CompletionRate = int(math.Round(float64(s.CompletedTasks) / float64(s.TotalTasks) * 100))
	}

	maxTotal := 0
	for _, b := range boards {
		bd := BoardBreakdown{Board: b.Name}
		for _, c := range filtered {
			if listBoard[c.ListID] != b.ID {
				continue
			}
			bd.Total++
			if isDone(c) {
				bd.Completed++
			}
		}
		bd.Pending = bd.Total - bd.Completed
		s.TasksByBoard = append(s.TasksByBoard, bd)
		if bd.Total > maxTotal {
			maxTotal = bd.Total
			s.MostActiveBoard = b.Name
		}
	}
	s.TopTags = tags.top(topTagLimit)
	return s, times
}

func (a *Aggregator) aggregateNotes(ctx context.Context, tr analyzer.TimeRange, now time.Time) (NotesSummary, []time.Time) {
	var (
		folders []models.Folder
		notes   []models.Note
	)
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { folders, err = a.src.Folders.List(gCtx); return err })
	g.Go(func() (err error) { notes, err = a.src.Notes.List(gCtx); return err })
	if err := g.Wait(); err != nil {
		a.logger.Warn("aggregator: notes unavailable", slog.String("error", err.Error()))
		return emptyNotes(), nil
	}

	sortByName(folders, func(f models.Folder) (string, string) { return f.Name, f.ID })
	filtered := filterByTime(notes, tr, now, func(n models.Note) time.Time { return n.ActivityTime() })

	s := emptyNotes()
	s.TotalNotes = len(filtered)
	perFolder := make(map[string]int)
	tags := newTagCounter()
	times := make([]time.Time, 0, len(filtered))
	for _, n := range filtered {
		if n.IsPinned {
			s.PinnedNotes++
		}
		if n.FolderID != nil {
			perFolder[*n.FolderID]++
		}
		tags.add(n.Tags)
		times = append(times, n.ActivityTime())
	}
	for _, f := range folders {
		s.NotesByFolder = append(s.NotesByFolder, FolderCount{Folder: f.Name, Count: perFolder[f.ID]})
	}
	s.TopTags = tags.top(topTagLimit)
	if s.TotalNotes > 0 {
		s.AvgNotesPerDay = round1(float64(s.TotalNotes) / float64(tr.Days()))
	}
	return s, times
}

// searchNotes matches term against every note regardless of the window.
func (a *Aggregator) searchNotes(ctx context.Context, term string) []SearchResult {
	notes, err := a.src.Notes.List(ctx)
	if err != nil {
		a.logger.Warn("aggregator: search unavailable", slog.String("error", err.Error()))
		return []SearchResult{}
	}
	slices.SortStableFunc(notes, func(x, y models.Note) int {
		if c := x.CreatedAt.Compare(y.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(x.ID, y.ID)
	})

	needle := strings.ToLower(term)
	out := []SearchResult{}
	for _, n := range notes {
		if !strings.Contains(strings.ToLower(n.Title), needle) && !strings.Contains(strings.ToLower(n.Content), needle) {
			continue
		}
		tags := n.Tags
		if tags == nil {
			tags = []models.Tag{}
		}
		out = append(out, SearchResult{
			ID:        n.ID,
			Title:     n.Title,
			Snippet:   snippet(n.Content),
			FolderID:  n.FolderID,
			Tags:      tags,
			CreatedAt: n.CreatedAt,
		})
		if len(out) == searchLimit {
			break
		}
	}
	return out
}

// filterByTime keeps items whose activity time is within [now-window, now].
// The "all" window keeps everything.
func filterByTime[T any](items []T, tr analyzer.TimeRange, now time.Time, at func(T) time.Time) []T {
	if tr == analyzer.RangeAll {
		return items
	}
	start := now.AddDate(0, 0, -tr.Days())
	out := make([]T, 0, len(items))
	for _, it := range items {
		t := at(it)
		if !t.Before(start) && !t.After(now) {
			out = append(out, it)
		}
	}
	return out
}

func sortByName[T any](items []T, key func(T) (string, string)) {
	slices.SortStableFunc(items, func(x, y T) int {
		xn, xid := key(x)
		yn, yid := key(y)
		if c := strings.Compare(strings.ToLower(xn), strings.ToLower(yn)); c != 0 {
			return c
		}
		return strings.Compare(xid, yid)
	})
}

func snippet(content string) string {
	if content == "" {
		return ""
	}
	if utf8.RuneCountInString(content) <= snippetLength {
		return content
	}
	return string([]rune(content)[:snippetLength]) + "..."
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func emptyTasks() TasksSummary {
	return TasksSummary{TasksByBoard: []BoardBreakdown{}, TopTags: []TagCount{}}
}

func emptyNotes() NotesSummary {
	return NotesSummary{NotesByFolder: []FolderCount{}, TopTags: []TagCount{}}
}

// tagCounter counts tag names, remembering first-seen order for ties.
type tagCounter struct {
	order  []string
	counts map[string]int
}

func newTagCounter() *tagCounter {
	return &tagCounter{counts: make(map[string]int)}
}

func (tc *tagCounter) add(tags []models.Tag) {
	for _, name := range models.TagNames(tags) {
		if _, seen := tc.counts[name]; !seen {
			tc.order = append(tc.order, name)
		}
		tc.counts[name]++
	}
}

func (tc *tagCounter) top(n int) []TagCount {
	out := make([]TagCount, 0, len(tc.order))
	for _, name := range tc.order {
		out = append(out, TagCount{Tag: name, Count: tc.counts[name]})
	}
	slices.SortStableFunc(out, func(x, y TagCount) int { return y.Count - x.Count })
	if len(out) > n {
		out = out[:n]
	}
	return out
}
