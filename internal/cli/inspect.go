package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/omicsview/insight/internal/cache"
	"github.com/omicsview/insight/internal/frame"
	"github.com/omicsview/insight/internal/query"
)

// InspectOptions holds flags for the inspect command.
type InspectOptions struct {
	*RootOptions
	Database string
	Where    []string
}

// InspectRow is the JSON form of one cache entry listing.
type InspectRow struct {
	Component      string `json:"component"`
	SignatureHash  string `json:"signature_hash"`
	Fingerprint    string `json:"fingerprint"`
	Dataset        string `json:"dataset"`
	DatasetVersion string `json:"dataset_version"`
	RowCount       int64  `json:"row_count"`
	Seq            int64  `json:"seq"`
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InspectOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "List persisted materializations",
		Long: `List the entries of a cache database: which component they belong
to, the query shape they answer, and the dataset version they were
computed against.

Predicates filter the listing and may reference: ` + strings.Join(cache.ListColumns, ", ") + `.

Example:
  insight inspect --db cache.db
  insight inspect --db cache.db --where component_id==psm_table --where seq>3`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to cache database (required)")
	cmd.Flags().StringArrayVar(&opts.Where, "where", nil, "predicate, e.g. component_id==psm_table (repeatable)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runInspect(opts *InspectOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	ctx := cmd.Context()

	preds, err := parsePredicates(opts.Where)
	if err != nil {
		return commandError(formatter, ErrCodeGeneric, err.Error())
	}

	store, err := cache.OpenStore(opts.Database)
	if err != nil {
		return commandError(formatter, ErrCodeStoreFailed, err.Error())
	}
	defer store.Close()

	metas, err := store.List(ctx, preds)
	if err != nil {
		return commandError(formatter, ErrCodeStoreFailed, err.Error())
	}

	rows := make([]InspectRow, len(metas))
	for i, m := range metas {
		rows[i] = InspectRow{
			Component:      m.ComponentID,
			SignatureHash:  m.SignatureHash,
			Fingerprint:    m.Fingerprint,
			Dataset:        m.Dataset,
			DatasetVersion: m.DatasetVersion,
			RowCount:       m.RowCount,
			Seq:            m.Seq,
		}
	}

	if formatter.Format == "json" {
		return formatter.Success(rows)
	}

	if len(rows) == 0 {
		fmt.Fprintln(formatter.Writer, "no entries")
		return nil
	}
	fmt.Fprintf(formatter.Writer, "%-20s %-14s %-14s %-12s %-14s %8s %6s\n",
		"COMPONENT", "SIGNATURE", "FINGERPRINT", "DATASET", "VERSION", "ROWS", "SEQ")
	for _, r := range rows {
		fmt.Fprintf(formatter.Writer, "%-20s %-14s %-14s %-12s %-14s %8d %6d\n",
			r.Component, short(r.SignatureHash), short(r.Fingerprint),
			r.Dataset, r.DatasetVersion, r.RowCount, r.Seq)
	}
	return nil
}

// predicate operators, longest first so "<=" is not parsed as "<".
var predicateOps = []string{"==", "!=", "<=", ">=", "<", ">"}

// parsePredicates parses --where expressions of the form
// "column<op>value" into query predicates.
func parsePredicates(exprs []string) ([]query.Predicate, error) {
	var preds []query.Predicate
	for _, expr := range exprs {
		parsed := false
		for _, op := range predicateOps {
			column, rawValue, found := strings.Cut(expr, op)
			if !found || column == "" {
				continue
			}
			parsedOp, err := query.ParseOp(op)
			if err != nil {
				return nil, err
			}
			preds = append(preds, query.Predicate{
				Column: strings.TrimSpace(column),
				Op:     parsedOp,
				Value:  parseValue(strings.TrimSpace(rawValue)),
			})
			parsed = true
			break
		}
		if !parsed {
			return nil, fmt.Errorf("invalid predicate %q: expected column<op>value with op one of %v",
				expr, predicateOps)
		}
	}
	return preds, nil
}

// parseValue types a predicate value: int, then float, then null,
// falling back to string.
func parseValue(s string) frame.Value {
	if s == "null" {
		return frame.Null{}
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return frame.Int(i)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return frame.Float(f)
	}
	return frame.String(s)
}
