package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines a deterministic end-to-end run: a dataset, a set of
// component declarations, a flow of selection events, and assertions on
// the resulting trace.
type Scenario struct {
	// Name uniquely identifies this scenario; golden files are stored
	// under testdata/golden/{name}.golden.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Components is the path to a CUE component declaration file,
	// relative to the scenario file.
	Components string `yaml:"components"`

	// Dataset is the inline dataset the components view.
	Dataset DatasetSpec `yaml:"dataset"`

	// Flow contains selection events, rerenders, and dataset rewrites in
	// execution order.
	Flow []FlowStep `yaml:"flow"`

	// Assertions validate the final trace. Optional when the scenario is
	// only compared against a golden file.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// DatasetSpec declares the scenario's dataset inline.
type DatasetSpec struct {
	// Name is the dataset reference components point at.
	Name string `yaml:"name"`

	// Version is the initial version token. Fixed tokens keep
	// fingerprints, and therefore golden traces, deterministic.
	Version string `yaml:"version"`

	Columns []string         `yaml:"columns,omitempty"`
	Rows    []map[string]any `yaml:"rows"`
}

// FlowStep is one step of the scenario flow. Exactly one of the fields
// must be set.
type FlowStep struct {
	// Select sets a selection identifier to a value (null clears it).
	Select *SelectStep `yaml:"select,omitempty"`

	// Rerender triggers a fresh fetch cycle for one component, or for
	// all components when the value is "*".
	Rerender string `yaml:"rerender,omitempty"`

	// Dataset rewrites the dataset rows and bumps the version token.
	Dataset *DatasetStep `yaml:"dataset,omitempty"`
}

// SelectStep is one selection store mutation.
type SelectStep struct {
	Identifier string `yaml:"identifier"`
	Value      any    `yaml:"value"`
}

// DatasetStep rewrites the dataset mid-flow.
type DatasetStep struct {
	Version string           `yaml:"version"`
	Rows    []map[string]any `yaml:"rows"`
}

// Assertion validates the trace after the flow completes.
type Assertion struct {
	// Type is one of trace_contains, trace_order, trace_count.
	Type string `yaml:"type"`

	// Event is the expected trace event in rendered form (used by
	// trace_contains and trace_count), e.g.
	// "highlight component=psm_table identifier=identification row=2".
	Event string `yaml:"event,omitempty"`

	// Events is the expected subsequence of rendered trace events
	// (used by trace_order).
	Events []string `yaml:"events,omitempty"`

	// Count is the expected number of occurrences (trace_count).
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
)

// LoadScenario reads and parses a scenario YAML file. The component
// declaration path is resolved relative to the scenario file. Unknown
// fields are rejected so typos fail loudly.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("parse scenario YAML: %w", err)
	}

	if scenario.Components != "" && !filepath.IsAbs(scenario.Components) {
		scenario.Components = filepath.Join(filepath.Dir(path), scenario.Components)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario %s: %w", path, err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Components == "" {
		return fmt.Errorf("components declaration path is required")
	}
	if _, err := os.Stat(s.Components); err != nil {
		return fmt.Errorf("components file not found: %s", s.Components)
	}
	if s.Dataset.Name == "" {
		return fmt.Errorf("dataset.name is required")
	}
	if s.Dataset.Version == "" {
		return fmt.Errorf("dataset.version is required (fixed tokens keep traces deterministic)")
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}

	for i, step := range s.Flow {
		n := 0
		if step.Select != nil {
			n++
			if step.Select.Identifier == "" {
				return fmt.Errorf("flow[%d].select: identifier is required", i)
			}
		}
		if step.Rerender != "" {
			n++
		}
		if step.Dataset != nil {
			n++
			if step.Dataset.Version == "" {
				return fmt.Errorf("flow[%d].dataset: version is required", i)
			}
		}
		if n != 1 {
			return fmt.Errorf("flow[%d]: exactly one of select, rerender, dataset is required", i)
		}
	}

	for i, a := range s.Assertions {
		switch a.Type {
		case AssertTraceContains:
			if a.Event == "" {
				return fmt.Errorf("assertions[%d]: event is required for trace_contains", i)
			}
		case AssertTraceOrder:
			if len(a.Events) == 0 {
				return fmt.Errorf("assertions[%d]: events list is required for trace_order", i)
			}
		case AssertTraceCount:
			if a.Event == "" {
				return fmt.Errorf("assertions[%d]: event is required for trace_count", i)
			}
			if a.Count < 0 {
				return fmt.Errorf("assertions[%d]: count must be non-negative", i)
			}
		case "":
			return fmt.Errorf("assertions[%d]: type is required", i)
		default:
			return fmt.Errorf("assertions[%d]: unknown assertion type %q", i, a.Type)
		}
	}
	return nil
}
