// Package harness executes scenario files against the real engine: a
// selection store, a synchronous-job materialization cache, and the
// scheduler, wired exactly as in production but with deterministic
// tokens. The observed trace is asserted directly and compared against
// golden files.
package harness

import (
	"context"
	"fmt"

	"github.com/omicsview/insight/internal/cache"
	"github.com/omicsview/insight/internal/compiler"
	"github.com/omicsview/insight/internal/dataset"
	"github.com/omicsview/insight/internal/engine"
	"github.com/omicsview/insight/internal/frame"
	"github.com/omicsview/insight/internal/selection"
)

// tracedEffect records one component's effects into the shared result.
type tracedEffect struct {
	component string
	result    *Result
}

func (e *tracedEffect) Render(rows []frame.Row) {
	e.result.addEvent(TraceEvent{Type: "render", Component: e.component, Rows: len(rows), RowIndex: -1})
}

func (e *tracedEffect) Highlight(identifier string, rowIndex int) {
	e.result.addEvent(TraceEvent{Type: "highlight", Component: e.component, Identifier: identifier, RowIndex: rowIndex})
}

func (e *tracedEffect) ClearHighlight(identifier string) {
	e.result.addEvent(TraceEvent{Type: "clear", Component: e.component, Identifier: identifier, RowIndex: -1})
}

// Run executes a scenario and returns the observed trace plus assertion
// outcomes.
//
// Determinism: jobs run synchronously, the dataset version tokens come
// from the scenario file, and the queue is drained to quiescence after
// every flow step, so the same scenario always yields the same trace.
func Run(scenario *Scenario) (*Result, error) {
	ctx := context.Background()
	result := NewResult()

	decls, err := compiler.CompileFile(scenario.Components)
	if err != nil {
		return nil, fmt.Errorf("compile components: %w", err)
	}

	rows, err := convertRows(scenario.Dataset.Rows)
	if err != nil {
		return nil, fmt.Errorf("dataset rows: %w", err)
	}
	provider := dataset.NewMemory(scenario.Dataset.Name, scenario.Dataset.Columns, rows)
	provider.SetVersion(scenario.Dataset.Version)

	store := selection.NewStore()
	sched := engine.New(store)

	c := cache.New(sched.Clock(), sched.NotifyCompletion,
		cache.WithSynchronousJobs(),
	)
	c.RegisterProvider(provider)
	sched.BindCache(c)

	for _, decl := range decls {
		err := sched.Register(engine.Component{
			Config:  decl.Config,
			Dataset: decl.Dataset,
			Effect:  &tracedEffect{component: decl.Config.Component, result: result},
		})
		if err != nil {
			return nil, fmt.Errorf("register %s: %w", decl.Config.Component, err)
		}
	}
	sched.Drain(ctx)

	for i, step := range scenario.Flow {
		switch {
		case step.Select != nil:
			value, err := frame.FromAny(step.Select.Value)
			if err != nil {
				return nil, fmt.Errorf("flow[%d].select: %w", i, err)
			}
			result.addEvent(TraceEvent{
				Type:       "select",
				Identifier: step.Select.Identifier,
				Value:      renderValue(value),
				RowIndex:   -1,
			})
			store.Set(step.Select.Identifier, value)

		case step.Rerender != "":
			target := step.Rerender
			if target == "*" {
				target = ""
			}
			sched.Rerender(target)

		case step.Dataset != nil:
			newRows, err := convertRows(step.Dataset.Rows)
			if err != nil {
				return nil, fmt.Errorf("flow[%d].dataset: %w", i, err)
			}
			provider.Replace(newRows)
			provider.SetVersion(step.Dataset.Version)
			sched.Rerender("")
		}
		sched.Drain(ctx)
	}

	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(errMsg)
	}
	return result, nil
}

func convertRows(raw []map[string]any) ([]frame.Row, error) {
	rows := make([]frame.Row, len(raw))
	for i, m := range raw {
		row := make(frame.Row, len(m))
		for k, v := range m {
			fv, err := frame.FromAny(v)
			if err != nil {
				return nil, fmt.Errorf("row %d, column %q: %w", i, k, err)
			}
			row[k] = fv
		}
		rows[i] = row
	}
	return rows, nil
}

// renderValue formats a selection value for the trace.
func renderValue(v frame.Value) string {
	if _, isNull := v.(frame.Null); isNull {
		return "null"
	}
	return fmt.Sprintf("%v", v)
}
