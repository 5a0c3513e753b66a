package cache

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/omicsview/insight/internal/frame"
	"github.com/omicsview/insight/internal/query"
)

//go:embed schema.sql
var schemaSQL string

const currentSchemaVersion = 1

// Store is the SQLite-backed persistent layer of the materialization
// cache. Reopened stores serve the stale phase of the two-phase fetch
// across process restarts.
type Store struct {
	db *sql.DB
}

// Entry is one persisted materialization.
type Entry struct {
	ComponentID    string
	SignatureHash  string
	Fingerprint    string
	Dataset        string
	DatasetVersion string
	Rows           []frame.Row
	Seq            int64
}

// EntryMeta is an Entry without its row payload, for listings.
type EntryMeta struct {
	ComponentID    string
	SignatureHash  string
	Fingerprint    string
	Dataset        string
	DatasetVersion string
	RowCount       int64
	Seq            int64
}

// ListColumns are the metadata columns inspect predicates may reference.
var ListColumns = []string{
	"component_id", "signature_hash", "fingerprint",
	"dataset", "dataset_version", "row_count", "seq",
}

// OpenStore creates or opens a cache database at path.
// Use ":memory:" for an ephemeral store.
//
// The database is configured with WAL mode, NORMAL synchronous mode, a
// 5-second busy timeout, and a single connection (SQLite allows one
// writer; a shared pool just manufactures SQLITE_BUSY).
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open cache store: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect cache store: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply cache schema: %w", err)
	}
	if _, err := db.Exec(`
		INSERT INTO schema_meta (key, value) VALUES ('version', ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, currentSchemaVersion); err != nil {
		db.Close()
		return nil, fmt.Errorf("record schema version: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Put upserts an entry. Last write wins for a (component, signature)
// pair, which matches the cache's last-request-wins job semantics.
func (s *Store) Put(ctx context.Context, e Entry) error {
	rowsJSON, err := frame.MarshalRows(e.Rows)
	if err != nil {
		return fmt.Errorf("put materialization: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO materializations
		(component_id, signature_hash, fingerprint, dataset, dataset_version, row_count, rows_json, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(component_id, signature_hash) DO UPDATE SET
			fingerprint     = excluded.fingerprint,
			dataset         = excluded.dataset,
			dataset_version = excluded.dataset_version,
			row_count       = excluded.row_count,
			rows_json       = excluded.rows_json,
			seq             = excluded.seq
	`,
		e.ComponentID,
		e.SignatureHash,
		e.Fingerprint,
		e.Dataset,
		e.DatasetVersion,
		int64(len(e.Rows)),
		rowsJSON,
		e.Seq,
	)
	if err != nil {
		return fmt.Errorf("put materialization: %w", err)
	}
	return nil
}

// Get reads the entry for (componentID, signatureHash).
// Returns found=false when no entry exists.
func (s *Store) Get(ctx context.Context, componentID, signatureHash string) (Entry, bool, error) {
	var e Entry
	var rowsJSON string

	err := s.db.QueryRowContext(ctx, `
		SELECT component_id, signature_hash, fingerprint, dataset, dataset_version, rows_json, seq
		FROM materializations
		WHERE component_id = ? AND signature_hash = ?
	`, componentID, signatureHash).Scan(
		&e.ComponentID,
		&e.SignatureHash,
		&e.Fingerprint,
		&e.Dataset,
		&e.DatasetVersion,
		&rowsJSON,
		&e.Seq,
	)
	if err == sql.ErrNoRows {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("get materialization: %w", err)
	}

	e.Rows, err = frame.UnmarshalRows(rowsJSON)
	if err != nil {
		return Entry{}, false, fmt.Errorf("get materialization: %w", err)
	}
	return e, true, nil
}

// Prune deletes all entries for a component except keepSignatureHash.
// Called after a successful write so superseded query shapes do not
// accumulate. Returns the number of deleted entries.
func (s *Store) Prune(ctx context.Context, componentID, keepSignatureHash string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM materializations
		WHERE component_id = ? AND signature_hash <> ?
	`, componentID, keepSignatureHash)
	if err != nil {
		return 0, fmt.Errorf("prune materializations: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune materializations: %w", err)
	}
	return n, nil
}

// List returns entry metadata matching the predicates, ordered by
// (seq, component_id) for deterministic output. Predicates reference
// ListColumns and compile to parameterized SQL.
func (s *Store) List(ctx context.Context, preds []query.Predicate) ([]EntryMeta, error) {
	where, params, err := query.CompileWhere(preds, ListColumns)
	if err != nil {
		return nil, fmt.Errorf("list materializations: %w", err)
	}

	q := `
		SELECT component_id, signature_hash, fingerprint, dataset, dataset_version, row_count, seq
		FROM materializations
	`
	if where != "" {
		q += " WHERE " + where
	}
	// Deterministic listing order regardless of insert history.
	q += " ORDER BY seq ASC, component_id ASC"

	rows, err := s.db.QueryContext(ctx, q, params...)
	if err != nil {
		return nil, fmt.Errorf("list materializations: %w", err)
	}
	defer rows.Close()

	var out []EntryMeta
	for rows.Next() {
		var m EntryMeta
		if err := rows.Scan(
			&m.ComponentID,
			&m.SignatureHash,
			&m.Fingerprint,
			&m.Dataset,
			&m.DatasetVersion,
			&m.RowCount,
			&m.Seq,
		); err != nil {
			return nil, fmt.Errorf("list materializations: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list materializations: %w", err)
	}
	return out, nil
}
