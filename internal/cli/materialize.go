package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/omicsview/insight/internal/cache"
	"github.com/omicsview/insight/internal/compiler"
	"github.com/omicsview/insight/internal/dataset"
	"github.com/omicsview/insight/internal/engine"
	"github.com/omicsview/insight/internal/selection"
)

// MaterializeOptions holds flags for the materialize command.
type MaterializeOptions struct {
	*RootOptions
	Database string
	Data     string
	Dataset  string
	Version  string
	Watch    bool
}

// MaterializeSummary reports what was written to the store.
type MaterializeSummary struct {
	Component      string `json:"component"`
	SignatureHash  string `json:"signature_hash"`
	Fingerprint    string `json:"fingerprint"`
	RowCount       int64  `json:"row_count"`
	DatasetVersion string `json:"dataset_version"`
}

// NewMaterializeCommand creates the materialize command.
func NewMaterializeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MaterializeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "materialize <components.cue>",
		Short: "Warm the persistent cache from a CSV dataset",
		Long: `Compile component declarations, materialize each component's query
shape against a CSV dataset, and persist the results in the cache
database. A later session over the same database starts warm: the stale
phase of every fetch is served immediately from disk.

Example:
  insight materialize --db cache.db --data psms.csv --dataset comet components.cue`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMaterialize(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to cache database (required)")
	cmd.Flags().StringVar(&opts.Data, "data", "", "path to CSV dataset file (required)")
	cmd.Flags().StringVar(&opts.Dataset, "dataset", "", "dataset name the components reference (required)")
	cmd.Flags().StringVar(&opts.Version, "dataset-version", "", "fixed version token (defaults to a fresh UUIDv7)")
	cmd.Flags().BoolVar(&opts.Watch, "watch", false, "keep running and re-materialize when the CSV file is rewritten")
	_ = cmd.MarkFlagRequired("db")
	_ = cmd.MarkFlagRequired("data")
	_ = cmd.MarkFlagRequired("dataset")

	return cmd
}

func runMaterialize(opts *MaterializeOptions, componentsPath string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	ctx := cmd.Context()

	decls, err := compiler.CompileFile(componentsPath)
	if err != nil {
		return outputCompileError(formatter, err)
	}

	provider := dataset.OpenCSV(opts.Dataset, opts.Data)
	if opts.Version != "" {
		// A caller-fixed token makes repeated runs idempotent.
		if err := provider.Reload(); err != nil {
			return commandError(formatter, ErrCodeDataFailed, err.Error())
		}
		provider.SetVersion(opts.Version)
	}

	store, err := cache.OpenStore(opts.Database)
	if err != nil {
		return commandError(formatter, ErrCodeStoreFailed, err.Error())
	}
	defer store.Close()

	// The production wiring, with synchronous jobs: every fetch
	// completes, and persists, before Drain returns.
	sched := engine.New(selection.NewStore())
	c := cache.New(sched.Clock(), sched.NotifyCompletion,
		cache.WithSynchronousJobs(),
		cache.WithStore(store),
	)
	c.RegisterProvider(provider)
	sched.BindCache(c)

	matched := 0
	for _, decl := range decls {
		if decl.Dataset != opts.Dataset {
			formatter.VerboseLog("skipping %s: references dataset %q", decl.Config.Component, decl.Dataset)
			continue
		}
		if err := sched.Register(engine.Component{Config: decl.Config, Dataset: decl.Dataset}); err != nil {
			return commandError(formatter, ErrCodeCompileFailed, err.Error())
		}
		matched++
	}
	if matched == 0 {
		return commandError(formatter, ErrCodeCompileFailed,
			fmt.Sprintf("no component references dataset %q", opts.Dataset))
	}
	sched.Drain(ctx)

	metas, err := store.List(ctx, nil)
	if err != nil {
		return commandError(formatter, ErrCodeStoreFailed, err.Error())
	}

	summaries := make([]MaterializeSummary, len(metas))
	for i, m := range metas {
		summaries[i] = MaterializeSummary{
			Component:      m.ComponentID,
			SignatureHash:  m.SignatureHash,
			Fingerprint:    m.Fingerprint,
			RowCount:       m.RowCount,
			DatasetVersion: m.DatasetVersion,
		}
	}

	if formatter.Format == "json" {
		return formatter.Success(summaries)
	}

	if formatter.Format == "json" {
		if err := formatter.Success(summaries); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(formatter.Writer, "✓ Materialized %d component(s) into %s\n\n", matched, opts.Database)
		for _, s := range summaries {
			fmt.Fprintf(formatter.Writer, "%s: %d row(s), fingerprint %s\n",
				s.Component, s.RowCount, short(s.Fingerprint))
		}
	}

	if opts.Watch {
		return watchMaterialize(ctx, formatter, provider, sched, opts)
	}
	return nil
}

// watchMaterialize keeps the process alive, re-materializing every
// registered component whenever the CSV file is rewritten. Runs until
// the command context is cancelled.
//
// The reload callback runs on the watcher goroutine; it is the only
// goroutine driving the scheduler here, so Drain is never concurrent.
func watchMaterialize(ctx context.Context, formatter *OutputFormatter, provider *dataset.CSVFile, sched *engine.Scheduler, opts *MaterializeOptions) error {
	stop, err := provider.Watch(ctx, func() {
		sched.Rerender("")
		sched.Drain(ctx)
		formatter.VerboseLog("re-materialized after rewrite, dataset version %s", provider.Version())
	})
	if err != nil {
		return commandError(formatter, ErrCodeDataFailed, err.Error())
	}
	defer stop()

	if formatter.Format != "json" {
		fmt.Fprintf(formatter.Writer, "\nWatching %s for changes (interrupt to stop)\n", opts.Data)
	}
	<-ctx.Done()
	return nil
}

// short abbreviates a hex digest for text output.
func short(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}
