package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/omicsview/insight/internal/compiler"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
}

// ComponentSummary is the JSON form of one compiled declaration.
type ComponentSummary struct {
	Component        string                 `json:"component"`
	Dataset          string                 `json:"dataset"`
	SortColumn       string                 `json:"sort_column"`
	SortDirection    string                 `json:"sort_direction"`
	ResolutionTarget int                    `json:"resolution_target,omitempty"`
	XColumn          string                 `json:"x_column,omitempty"`
	YColumn          string                 `json:"y_column,omitempty"`
	Interactivity    []InteractivitySummary `json:"interactivity,omitempty"`
}

// InteractivitySummary is one identifier binding of a component.
type InteractivitySummary struct {
	Identifier string `json:"identifier"`
	Column     string `json:"column"`
	Mode       string `json:"mode"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <components.cue>",
		Short: "Compile and validate component declarations",
		Long: `Compile a CUE component declaration file and print the validated
configuration of every component: query shape, resolution target, and
interactivity bindings.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	return cmd
}

func runCompile(opts *CompileOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	decls, err := compiler.CompileFile(path)
	if err != nil {
		return outputCompileError(formatter, err)
	}

	summaries := summarize(decls)
	if formatter.Format == "json" {
		return formatter.Success(summaries)
	}

	fmt.Fprintf(formatter.Writer, "✓ Compiled %d component(s)\n\n", len(summaries))
	for _, s := range summaries {
		fmt.Fprintf(formatter.Writer, "%s: dataset=%s sort=%s/%s",
			s.Component, s.Dataset, s.SortColumn, s.SortDirection)
		if s.ResolutionTarget > 0 {
			fmt.Fprintf(formatter.Writer, " resolution=%d axes=%s,%s",
				s.ResolutionTarget, s.XColumn, s.YColumn)
		}
		fmt.Fprintln(formatter.Writer)
		for _, entry := range s.Interactivity {
			fmt.Fprintf(formatter.Writer, "  %s: column=%s mode=%s\n",
				entry.Identifier, entry.Column, entry.Mode)
		}
	}
	return nil
}

func summarize(decls []compiler.Declaration) []ComponentSummary {
	summaries := make([]ComponentSummary, len(decls))
	for i, decl := range decls {
		s := ComponentSummary{
			Component:        decl.Config.Component,
			Dataset:          decl.Dataset,
			SortColumn:       decl.Config.SortColumn,
			SortDirection:    string(decl.Config.SortDirection),
			ResolutionTarget: decl.Config.ResolutionTarget,
			XColumn:          decl.Config.XColumn,
			YColumn:          decl.Config.YColumn,
		}
		for _, entry := range decl.Config.Interactivity {
			s.Interactivity = append(s.Interactivity, InteractivitySummary{
				Identifier: entry.Identifier,
				Column:     entry.Column,
				Mode:       string(entry.Mode),
			})
		}
		summaries[i] = s
	}
	return summaries
}

// outputCompileError renders a declaration failure with its CUE source
// position when one is available.
func outputCompileError(formatter *OutputFormatter, err error) error {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		if formatter.Format != "json" && compileErr.Pos.IsValid() {
			fmt.Fprintf(formatter.Writer, "%s:%d:%d\n",
				compileErr.Pos.Filename(),
				compileErr.Pos.Line(),
				compileErr.Pos.Column())
		}
		return commandError(formatter, ErrCodeCompileFailed,
			fmt.Sprintf("%s: %s", compileErr.Field, compileErr.Message))
	}
	return commandError(formatter, ErrCodeCompileFailed, err.Error())
}
