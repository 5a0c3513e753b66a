package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/omicsview/insight/internal/harness"
)

// SimulateOptions holds flags for the simulate command.
type SimulateOptions struct {
	*RootOptions
}

// NewSimulateCommand creates the simulate command.
func NewSimulateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SimulateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "simulate <scenario.yaml>",
		Short: "Run a scenario and print the observed trace",
		Long: `Run a scenario file against the engine with synchronous jobs and a
fixed dataset version, then print the observed trace and evaluate the
scenario's assertions. Exits non-zero when an assertion fails.

Example:
  insight simulate scenarios/linked_highlight.yaml
  insight simulate --format json scenarios/filter_flow.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulate(opts, args[0], cmd)
		},
	}

	return cmd
}

func runSimulate(opts *SimulateOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	scenario, err := harness.LoadScenario(path)
	if err != nil {
		return commandError(formatter, ErrCodeScenario, err.Error())
	}
	formatter.VerboseLog("running scenario %s (%d flow steps)", scenario.Name, len(scenario.Flow))

	result, err := harness.Run(scenario)
	if err != nil {
		return commandError(formatter, ErrCodeScenario, err.Error())
	}

	if formatter.Format == "json" {
		if encErr := formatter.Success(result); encErr != nil {
			return encErr
		}
	} else {
		fmt.Fprintf(formatter.Writer, "Scenario: %s\n\n", scenario.Name)
		for _, event := range result.Trace {
			fmt.Fprintf(formatter.Writer, "%4d  %s\n", event.Seq, event)
		}
		fmt.Fprintln(formatter.Writer)
		if result.Pass {
			fmt.Fprintf(formatter.Writer, "✓ %d assertion(s) passed\n", len(scenario.Assertions))
		} else {
			fmt.Fprintln(formatter.Writer, "✗ Assertions failed")
			for _, msg := range result.Errors {
				fmt.Fprintf(formatter.Writer, "  %s\n", msg)
			}
		}
	}

	if !result.Pass {
		return NewExitError(ExitFailure,
			fmt.Sprintf("scenario %s failed with %d assertion error(s)", scenario.Name, len(result.Errors)))
	}
	return nil
}
