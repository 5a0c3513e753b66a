package harness

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestScenarios runs every scenario under testdata and checks both the
// inline assertions and the golden trace.
func TestScenarios(t *testing.T) {
	files, err := filepath.Glob(filepath.Join("testdata", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, files, "no scenario files found")

	for _, path := range files {
		name := strings.TrimSuffix(filepath.Base(path), ".yaml")
		t.Run(name, func(t *testing.T) {
			scenario, err := LoadScenario(path)
			require.NoError(t, err)

			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "assertion failures:\n%s", strings.Join(result.Errors, "\n"))
		})
	}
}

func TestRun_TraceIsDeterministic(t *testing.T) {
	scenario, err := LoadScenario(filepath.Join("testdata", "linked_highlight.yaml"))
	require.NoError(t, err)

	first, err := Run(scenario)
	require.NoError(t, err)
	second, err := Run(scenario)
	require.NoError(t, err)

	assert.Equal(t, first.Rendered(), second.Rendered())
}

func TestRun_SelectEventsAppearInTrace(t *testing.T) {
	scenario, err := LoadScenario(filepath.Join("testdata", "linked_highlight.yaml"))
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)

	rendered := result.Rendered()
	assert.Contains(t, rendered, "select identifier=identification value=2")
	assert.Contains(t, rendered, "select identifier=identification value=99")
}
