package harness

import "fmt"

// TraceEvent is one observed engine action. Seq is the harness's own
// trace counter (1-based position), independent of the engine clock, so
// traces stay byte-stable when internal seq allocation changes.
type TraceEvent struct {
	// Type is one of select, render, highlight, clear.
	Type string `json:"type"`

	Component  string `json:"component,omitempty"`
	Identifier string `json:"identifier,omitempty"`

	// Value is the rendered selection value (select events).
	Value string `json:"value,omitempty"`

	// RowIndex is the resolved row (highlight events); -1 otherwise.
	RowIndex int `json:"row_index,omitempty"`

	// Rows is the materialized row count (render events).
	Rows int `json:"rows,omitempty"`

	Seq int64 `json:"seq"`
}

// String renders the event in the compact form assertions match on.
func (e TraceEvent) String() string {
	switch e.Type {
	case "select":
		return fmt.Sprintf("select identifier=%s value=%s", e.Identifier, e.Value)
	case "render":
		return fmt.Sprintf("render component=%s rows=%d", e.Component, e.Rows)
	case "highlight":
		return fmt.Sprintf("highlight component=%s identifier=%s row=%d", e.Component, e.Identifier, e.RowIndex)
	case "clear":
		return fmt.Sprintf("clear component=%s identifier=%s", e.Component, e.Identifier)
	}
	return e.Type
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every assertion held.
	Pass bool `json:"pass"`

	// Trace contains all observed events in execution order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains assertion failures. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a passing result.
func NewResult() *Result {
	return &Result{Pass: true, Trace: []TraceEvent{}}
}

// AddError records an assertion failure and marks the result failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

func (r *Result) addEvent(e TraceEvent) {
	e.Seq = int64(len(r.Trace) + 1)
	r.Trace = append(r.Trace, e)
}

// Rendered returns the trace in compact string form.
func (r *Result) Rendered() []string {
	out := make([]string, len(r.Trace))
	for i, e := range r.Trace {
		out[i] = e.String()
	}
	return out
}
