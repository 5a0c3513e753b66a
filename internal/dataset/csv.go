package dataset

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/omicsview/insight/internal/frame"
)

// CSVFile is a Provider backed by a CSV file with a header row.
//
// Cells parse as Int, then Float, then Bool ("true"/"false"), falling
// back to String. Empty cells become Null. The file is parsed once and
// served from memory until Reload (or the file watcher) bumps the
// version.
type CSVFile struct {
	mu      sync.Mutex
	name    string
	path    string
	version string
	columns []string
	rows    []frame.Row
	loaded  bool
}

// OpenCSV creates a provider for path. The file is not read until the
// first Rows call.
func OpenCSV(name, path string) *CSVFile {
	return &CSVFile{
		name:    name,
		path:    path,
		version: NewVersionToken(),
	}
}

// Name implements Provider.
func (c *CSVFile) Name() string { return c.name }

// Version implements Provider.
func (c *CSVFile) Version() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.version
}

// Columns implements Provider.
// Returns nil before the first load.
func (c *CSVFile) Columns() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.columns
}

// Rows implements Provider.
func (c *CSVFile) Rows(ctx context.Context) ([]frame.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.loaded {
		if err := c.loadLocked(); err != nil {
			return nil, err
		}
	}

	out := make([]frame.Row, len(c.rows))
	copy(out, c.rows)
	return out, nil
}

// SetVersion overrides the version token. Used where a caller-fixed
// token is needed for reproducible fingerprints.
func (c *CSVFile) SetVersion(v string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.version = v
}

// Reload re-reads the file and bumps the version token.
func (c *CSVFile) Reload() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.loadLocked(); err != nil {
		return err
	}
	c.version = NewVersionToken()
	return nil
}

func (c *CSVFile) loadLocked() error {
	f, err := os.Open(c.path)
	if err != nil {
		return fmt.Errorf("open dataset %s: %w", c.name, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return fmt.Errorf("parse dataset %s: %w", c.name, err)
	}
	if len(records) == 0 {
		return fmt.Errorf("dataset %s: missing header row", c.name)
	}

	header := records[0]
	rows := make([]frame.Row, 0, len(records)-1)
	for _, record := range records[1:] {
		row := make(frame.Row, len(header))
		for i, col := range header {
			if i >= len(record) {
				row[col] = frame.Null{}
				continue
			}
			row[col] = parseCell(record[i])
		}
		rows = append(rows, row)
	}

	c.columns = header
	c.rows = rows
	c.loaded = true
	return nil
}

func parseCell(s string) frame.Value {
	if s == "" {
		return frame.Null{}
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return frame.Int(i)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return frame.Float(f)
	}
	if s == "true" {
		return frame.Bool(true)
	}
	if s == "false" {
		return frame.Bool(false)
	}
	return frame.String(s)
}
