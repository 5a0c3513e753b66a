package harness

import (
	"fmt"
	"strings"
)

// EvaluateAssertions checks every assertion against the trace and
// returns the failures as messages.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var failures []string
	rendered := result.Rendered()

	for i, a := range assertions {
		switch a.Type {
		case AssertTraceContains:
			if countOf(rendered, a.Event) == 0 {
				failures = append(failures, fmt.Sprintf(
					"assertions[%d] trace_contains: event %q not found in trace:\n  %s",
					i, a.Event, strings.Join(rendered, "\n  ")))
			}

		case AssertTraceCount:
			if got := countOf(rendered, a.Event); got != a.Count {
				failures = append(failures, fmt.Sprintf(
					"assertions[%d] trace_count: event %q occurred %d times, want %d",
					i, a.Event, got, a.Count))
			}

		case AssertTraceOrder:
			if !isSubsequence(rendered, a.Events) {
				failures = append(failures, fmt.Sprintf(
					"assertions[%d] trace_order: events %v not in order in trace:\n  %s",
					i, a.Events, strings.Join(rendered, "\n  ")))
			}
		}
	}
	return failures
}

func countOf(rendered []string, event string) int {
	n := 0
	for _, r := range rendered {
		if r == event {
			n++
		}
	}
	return n
}

// isSubsequence reports whether want appears in trace in order, not
// necessarily contiguously.
func isSubsequence(trace, want []string) bool {
	i := 0
	for _, r := range trace {
		if i < len(want) && r == want[i] {
			i++
		}
	}
	return i == len(want)
}
