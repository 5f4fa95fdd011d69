package analyzer

import (
	"reflect"
	"testing"

	"pgregory.net/rapid"
)

// TestProperty_AnalyzeDeterministic verifies that analysis is a pure function
// of the query text.
func TestProperty_AnalyzeDeterministic(t *testing.T) {
	a := New(Config{})
	rapid.Check(t, func(rt *rapid.T) {
		q := rapid.String().Draw(rt, "query")
		first := a.Analyze(q)
		second := a.Analyze(q)
		if !reflect.DeepEqual(first, second) {
			rt.Fatalf("Analyze(%q) not deterministic: %+v vs %+v", q, first, second)
		}
	})
}

// TestProperty_DefaultTimeRange verifies that queries without any window
// phrase default to seven days.
func TestProperty_DefaultTimeRange(t *testing.T) {
	a := New(Config{})
	rapid.Check(t, func(rt *rapid.T) {
		// The alphabet cannot spell any window phrase.
		q := rapid.StringMatching(`[abcdfgh ?!]{0,60}`).Draw(rt, "query")
		if got := a.Analyze(q).DataNeeded.TimeRange; got != Range7d {
			rt.Fatalf("TimeRange(%q) = %s, want 7d", q, got)
		}
	})
}

// TestProperty_ConfidenceInRange verifies the reported confidence is in [0,1].
func TestProperty_ConfidenceInRange(t *testing.T) {
	a := New(Config{})
	rapid.Check(t, func(rt *rapid.T) {
		q := rapid.String().Draw(rt, "query")
		c := a.Analyze(q).Confidence
		if c < 0 || c > 1 {
			rt.Fatalf("confidence %v out of range for %q", c, q)
		}
	})
}
