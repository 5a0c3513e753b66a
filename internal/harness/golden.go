package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/omicsview/insight/internal/frame"
)

// snapshot converts a result to the canonical map form golden files are
// built from. Only the fields meaningful for each event type are
// emitted, so golden files stay hand-writable.
func snapshot(scenarioName string, result *Result) map[string]any {
	traceList := make([]any, len(result.Trace))
	for i, event := range result.Trace {
		eventMap := map[string]any{
			"type": event.Type,
			"seq":  event.Seq,
		}
		if event.Component != "" {
			eventMap["component"] = event.Component
		}
		if event.Identifier != "" {
			eventMap["identifier"] = event.Identifier
		}
		if event.Value != "" {
			eventMap["value"] = event.Value
		}
		if event.Type == "highlight" {
			eventMap["row_index"] = event.RowIndex
		}
		if event.Type == "render" {
			eventMap["rows"] = event.Rows
		}
		traceList[i] = eventMap
	}

	return map[string]any{
		"scenario_name": scenarioName,
		"trace":         traceList,
	}
}

// RunWithGolden executes a scenario and compares its trace against the
// golden file testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}

	traceJSON, err := frame.MarshalCanonical(snapshot(scenario.Name, result))
	if err != nil {
		return nil, err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, traceJSON)

	return result, nil
}
