package aggregator

import (
	"slices"
	"time"

	"github.com/starford/wunjo/internal/analyzer"
)

var weekdayOrder = []time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday,
	time.Friday, time.Saturday, time.Sunday,
}

// AnalyzePatterns derives work patterns from activity timestamps, read in
// now's location. Without activity the summary is returned unavailable.
func AnalyzePatterns(activity []time.Time, tr analyzer.TimeRange, now time.Time) PatternsSummary {
	if len(activity) == 0 {
		return PatternsSummary{}
	}
	loc := now.Location()

	perDay := make(map[time.Weekday]int)
	perHour := make(map[int]int)
	activeDates := make(map[string]struct{})
	for _, t := range activity {
		lt := t.In(loc)
		perDay[lt.Weekday()]++
		perHour[lt.Hour()]++
		activeDates[lt.Format(time.DateOnly)] = struct{}{}
	}

	best, bestCount := time.Monday, -1
	for _, d := range weekdayOrder {
		if perDay[d] > bestCount {
			best, bestCount = d, perDay[d]
		}
	}

	hours := make([]int, 0, len(perHour))
	for h := range perHour {
		hours = append(hours, h)
	}
	slices.SortFunc(hours, func(x, y int) int {
		if perHour[x] != perHour[y] {
			return perHour[y] - perHour[x]
		}
		return x - y
	})
	if len(hours) > peakHourResults {
		hours = hours[:peakHourResults]
	}

	score := float64(len(activeDates)) / float64(tr.Days()) * 10
	if score > 10 {
		score = 10
	}

	return PatternsSummary{
		Available:         true,
		MostProductiveDay: best.String(),
		PeakHours:         hours,
		ConsistencyScore:  round1(score),
		ActiveDays:        len(activeDates),
	}
}
