// Package analyzer classifies free-text assistant queries into an intent and
// works out which workspace data is needed to answer them.
//
// Classification is keyword substring matching, not language understanding.
// "ever" also matches "every" and "however", "done" matches "undone"; this is
// the precision ceiling of the approach, not something to patch case by case.
package analyzer

import (
	"regexp"
	"strings"
)

// Intent is the coarse category of a query.
type Intent string

const (
	IntentSummary    Intent = "SUMMARY"
	IntentSearch     Intent = "SEARCH"
	IntentTaskStatus Intent = "TASK_STATUS"
	IntentNoteSearch Intent = "NOTE_SEARCH"
	IntentInsights   Intent = "INSIGHTS"
	IntentCount      Intent = "COUNT"
	IntentGeneral    Intent = "GENERAL"
)

// TimeRange is the trailing aggregation window.
type TimeRange string

const (
	Range7d  TimeRange = "7d"
	Range30d TimeRange = "30d"
	Range90d TimeRange = "90d"
	RangeAll TimeRange = "all"
)

// ParseTimeRange returns the TimeRange for s, or false if s is not one.
func ParseTimeRange(s string) (TimeRange, bool) {
	switch tr := TimeRange(strings.ToLower(strings.TrimSpace(s))); tr {
	case Range7d, Range30d, Range90d, RangeAll:
		return tr, true
	}
	return "", false
}

// Days is the window length used for per-day averages; "all" counts as a year.
func (r TimeRange) Days() int {
	switch r {
	case Range30d:
		return 30
	case Range90d:
		return 90
	case RangeAll:
		return 365
	default:
		return 7
	}
}

// Label is the human-readable window name.
func (r TimeRange) Label() string {
	switch r {
	case Range30d:
		return "Last 30 days"
	case Range90d:
		return "Last 90 days"
	case RangeAll:
		return "All time"
	default:
		return "Last 7 days"
	}
}

// DataNeed tells the aggregator what to fetch.
type DataNeed struct {
	NeedsTasks bool      `json:"needsTasks"`
	NeedsNotes bool      `json:"needsNotes"`
	TimeRange  TimeRange `json:"timeRange"`
	Keywords   []string  `json:"keywords"`
	SearchTerm string    `json:"searchTerm,omitempty"`
}

// Result is the outcome of analyzing one query.
type Result struct {
	Intent        Intent   `json:"intent"`
	Confidence    float64  `json:"confidence"`
	DataNeeded    DataNeed `json:"dataNeeded"`
	OriginalQuery string   `json:"originalQuery"`
}

type intentRule struct {
	intent   Intent
	keywords []string
}

// rules is ordered; on equal scores the earlier intent wins.
var rules = []intentRule{
	{IntentSummary, []string{"summary", "what did i", "accomplish", "this week", "last month", "overview", "worked on"}},
	{IntentSearch, []string{"show", "find", "search", "notes about", "tasks with", "containing"}},
	{IntentTaskStatus, []string{"overdue", "pending", "completed", "todo", "done", "finished"}},
	{IntentNoteSearch, []string{"notes", "note about", "wrote about", "documented"}},
	{IntentInsights, []string{"productive", "pattern", "trend", "analysis", "when", "most", "tips", "recommend"}},
	{IntentCount, []string{"how many", "count", "total", "number of"}},
}

type rangeRule struct {
	tr      TimeRange
	phrases []string
}

var rangeRules = []rangeRule{
	{Range7d, []string{"this week", "past week"}},
	{Range30d, []string{"this month", "past month", "last 30 days", "past 30 days"}},
	{Range90d, []string{"past 90 days", "last 3 months"}},
	{RangeAll, []string{"all time", "ever"}},
}

var stopWords = map[string]struct{}{
	"the": {}, "is": {}, "are": {}, "was": {}, "were": {}, "be": {}, "been": {}, "being": {},
	"have": {}, "has": {}, "had": {}, "do": {}, "does": {}, "did": {}, "will": {}, "would": {},
	"could": {}, "should": {}, "may": {}, "might": {}, "must": {}, "can": {}, "a": {}, "an": {},
	"and": {}, "or": {}, "but": {}, "in": {}, "on": {}, "at": {}, "to": {}, "for": {}, "of": {}, "with": {},
}

var (
	punctRe       = regexp.MustCompile(`[^\w\s]`)
	searchTermRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)about\s+(.+?)(?:\?|$)`),
		regexp.MustCompile(`(?i)containing\s+(.+?)(?:\?|$)`),
		regexp.MustCompile(`(?i)with\s+(.+?)(?:\?|$)`),
		regexp.MustCompile(`(?i)for\s+(.+?)(?:\?|$)`),
		regexp.MustCompile(`(?i)notes?\s+(.+?)(?:\?|$)`),
	}
)

// Config tunes classification. Zero values fall back to the defaults.
type Config struct {
	// Threshold is the minimum weighted score for a non-GENERAL intent.
	Threshold float64 `yaml:"threshold"`
	// Weights overrides the per-intent confidence weight.
	Weights map[Intent]float64 `yaml:"weights"`
}

// DefaultThreshold is the score below which a query is GENERAL.
const DefaultThreshold = 0.5

// DefaultWeights returns the stock per-intent weights.
func DefaultWeights() map[Intent]float64 {
	return map[Intent]float64{
		IntentSummary:    0.8,
		IntentSearch:     0.9,
		IntentTaskStatus: 0.85,
		IntentNoteSearch: 0.85,
		IntentInsights:   0.7,
		IntentCount:      0.9,
	}
}

// Analyzer is safe for concurrent use; it holds no mutable state.
type Analyzer struct {
	threshold float64
	weights   map[Intent]float64
}

// New creates an Analyzer from cfg.
func New(cfg Config) *Analyzer {
	a := &Analyzer{threshold: cfg.Threshold, weights: DefaultWeights()}
	if a.threshold <= 0 {
		a.threshold = DefaultThreshold
	}
	for intent, w := range cfg.Weights {
		if _, ok := a.weights[intent]; ok && w > 0 {
			a.weights[intent] = w
		}
	}
	return a
}

// Analyze classifies query and resolves its data needs.
func (a *Analyzer) Analyze(query string) Result {
	intent := a.DetectIntent(query)
	return Result{
		Intent:        intent,
		Confidence:    a.Confidence(intent),
		DataNeeded:    a.DataNeeded(intent, query),
		OriginalQuery: query,
	}
}

// DetectIntent scores every rule as matches × weight and returns the best,
// or GENERAL when the best score is under the threshold.
func (a *Analyzer) DetectIntent(query string) Intent {
	q := strings.ToLower(query)
	best, bestScore := IntentGeneral, 0.0
	for _, r := range rules {
		hits := 0
		for _, kw := range r.keywords {
			if strings.Contains(q, kw) {
				hits++
			}
		}
		if score := float64(hits) * a.weights[r.intent]; score > bestScore {
			best, bestScore = r.intent, score
		}
	}
	if bestScore < a.threshold {
		return IntentGeneral
	}
	return best
}

// Confidence returns the weight of intent; GENERAL reports the threshold.
func (a *Analyzer) Confidence(intent Intent) float64 {
	if w, ok := a.weights[intent]; ok {
		return w
	}
	return DefaultThreshold
}

// DataNeeded maps an intent to the collections it needs.
func (a *Analyzer) DataNeeded(intent Intent, query string) DataNeed {
	need := DataNeed{
		TimeRange: ExtractTimeRange(query),
		Keywords:  ExtractKeywords(query),
	}
	switch intent {
	case IntentSearch, IntentNoteSearch:
		need.NeedsNotes = true
		need.SearchTerm = ExtractSearchTerm(query)
	case IntentTaskStatus:
		need.NeedsTasks = true
	default:
		need.NeedsTasks = true
		need.NeedsNotes = true
	}
	return need
}

// ExtractTimeRange finds the first window phrase in query; 7d by default.
func ExtractTimeRange(query string) TimeRange {
	q := strings.ToLower(query)
	for _, r := range rangeRules {
		for _, p := range r.phrases {
			if strings.Contains(q, p) {
				return r.tr
			}
		}
	}
	return Range7d
}

// ExtractKeywords lower-cases query, strips punctuation and returns the
// unique words longer than two characters that are not stop words.
func ExtractKeywords(query string) []string {
	cleaned := punctRe.ReplaceAllString(strings.ToLower(query), "")
	seen := make(map[string]struct{})
	out := []string{}
	for _, w := range strings.Fields(cleaned) {
		if len(w) <= 2 {
			continue
		}
		if _, stop := stopWords[w]; stop {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}

// ExtractSearchTerm tries the "about X", "containing X", "with X", "for X"
// and "notes X" patterns in order and falls back to the first keyword.
func ExtractSearchTerm(query string) string {
	for _, re := range searchTermRes {
		if m := re.FindStringSubmatch(query); m != nil {
			if term := strings.TrimSpace(m[1]); term != "" {
				return term
			}
		}
	}
	if kws := ExtractKeywords(query); len(kws) > 0 {
		return kws[0]
	}
	return ""
}
