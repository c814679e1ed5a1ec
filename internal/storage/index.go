package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"
	"os"

	"github.com/dshills/binlocate/pkg/types"
)

// ErrNotAnIndex is returned when a database exists but carries no index schema
var ErrNotAnIndex = errors.New("database has no index schema, rebuild it")

// Matcher tests file paths of index records
type Matcher interface {
	Match(b []byte) bool
	String() string
}

// AnchoredMatcher is implemented by matchers that only accept paths starting
// with a known literal. The scan is narrowed to those paths in SQL.
type AnchoredMatcher interface {
	Matcher
	AnchoredPrefix() string
	// WholePath reports whether the prefix is the only accepted path
	WholePath() bool
}

// Index is a read-only handle on an existing package-file index
type Index struct {
	db            *sql.DB
	path          string
	schemaVersion string
}

// OpenIndex opens an existing index for querying.
// It never creates a database: a missing, corrupt or unmigrated file
// fails with *types.IndexOpenError.
func OpenIndex(ctx context.Context, path string) (*Index, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, &types.IndexOpenError{Path: path, Err: err}
	}

	db, err := sql.Open(DriverName, path)
	if err != nil {
		return nil, &types.IndexOpenError{Path: path, Err: err}
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, &types.IndexOpenError{Path: path, Err: err}
	}

	version, err := schemaVersion(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, &types.IndexOpenError{Path: path, Err: err}
	}
	if version.Equal(zeroVersion) {
		_ = db.Close()
		return nil, &types.IndexOpenError{Path: path, Err: ErrNotAnIndex}
	}

	return &Index{db: db, path: path, schemaVersion: version.String()}, nil
}

// Path returns the location the index was opened from
func (ix *Index) Path() string {
	return ix.path
}

// SchemaVersion returns the applied schema version
func (ix *Index) SchemaVersion() string {
	return ix.schemaVersion
}

// Status returns statistics about the index
func (ix *Index) Status(ctx context.Context) (*IndexStatus, error) {
	return indexStatus(ctx, ix.db)
}

// Close releases the index
func (ix *Index) Close() error {
	return ix.db.Close()
}

// Query prepares a scan for file entries whose path satisfies m
func (ix *Index) Query(m Matcher) *Query {
	return &Query{index: ix, matcher: m}
}

// Query is a prepared index scan
type Query struct {
	index   *Index
	matcher Matcher
}

// Run starts the scan. Failing to start is reported as *types.IndexQueryError;
// everything after that is reported per record.
func (q *Query) Run(ctx context.Context) (*Results, error) {
	query, args := q.statement()

	rows, err := q.index.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &types.IndexQueryError{Pattern: q.matcher.String(), Err: err}
	}
	return &Results{rows: rows, matcher: q.matcher}, nil
}

// statement builds the scan SQL. Anchored matchers are narrowed to their
// prefix through idx_files_path, so a query without hits reads no file rows.
func (q *Query) statement() (string, []interface{}) {
	const columns = `
		SELECT f.id, p.hash, p.name, p.attr, p.store_path, f.path, f.kind, f.size_bytes
	`
	const joinPackages = " JOIN packages p ON p.id = f.package_id"

	am, ok := q.matcher.(AnchoredMatcher)
	if !ok || am.AnchoredPrefix() == "" {
		return columns + " FROM files f" + joinPackages + " ORDER BY f.id", nil
	}

	prefix := am.AnchoredPrefix()
	query := columns + " FROM files f INDEXED BY idx_files_path" + joinPackages
	if am.WholePath() {
		return query + " WHERE f.path = ? ORDER BY f.id", []interface{}{prefix}
	}
	if upper, ok := prefixUpperBound(prefix); ok {
		return query + " WHERE f.path >= ? AND f.path < ? ORDER BY f.id", []interface{}{prefix, upper}
	}
	return query + " WHERE f.path >= ? ORDER BY f.id", []interface{}{prefix}
}

// prefixUpperBound returns the smallest string greater than every string
// starting with prefix, in byte order. It reports false when no such bound
// exists (prefix is all 0xff bytes).
func prefixUpperBound(prefix string) (string, bool) {
	b := []byte(prefix)
	for i := len(b) - 1; i >= 0; i-- {
		if b[i] < 0xff {
			b[i]++
			return string(b[:i+1]), true
		}
	}
	return "", false
}

// Results streams the records of a running scan
type Results struct {
	rows    *sql.Rows
	matcher Matcher
}

// All yields matching records lazily in scan order. Records that cannot be
// read or are malformed are yielded as *types.RecordError and the scan goes
// on. Stopping the iteration early closes the underlying cursor.
func (r *Results) All() iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		defer func() { _ = r.Close() }()

		for r.rows.Next() {
			rowID, rec, err := scanRecord(r.rows)
			if err != nil {
				if !yield(Record{}, &types.RecordError{Row: rowID, Err: err}) {
					return
				}
				continue
			}

			if !r.matcher.Match(rec.File.Path) {
				continue
			}

			if err := validateRecord(rec); err != nil {
				if !yield(Record{}, &types.RecordError{Row: rowID, Err: err}) {
					return
				}
				continue
			}

			if !yield(rec, nil) {
				return
			}
		}

		if err := r.rows.Err(); err != nil {
			yield(Record{}, &types.RecordError{Err: fmt.Errorf("scan aborted: %w", err)})
		}
	}
}

// Close stops the scan. It is safe to call more than once.
func (r *Results) Close() error {
	return r.rows.Close()
}

func scanRecord(rows *sql.Rows) (int64, Record, error) {
	var (
		rowID                       int64
		hash, name, attr, storePath sql.NullString
		path, kind                  sql.NullString
		sizeBytes                   sql.NullInt64
	)
	if err := rows.Scan(&rowID, &hash, &name, &attr, &storePath, &path, &kind, &sizeBytes); err != nil {
		return rowID, Record{}, err
	}

	pkg := Package{
		Hash:      hash.String,
		Name:      name.String,
		Attr:      attr.String,
		StorePath: storePath.String,
	}
	file := FileEntry{
		Path:      []byte(path.String),
		Kind:      FileKind(kind.String),
		SizeBytes: sizeBytes.Int64,
	}
	return rowID, Record{Package: pkg.Ref(), File: file}, nil
}

func validateRecord(rec Record) error {
	switch {
	case rec.Package.Hash == "":
		return fmt.Errorf("%w: empty hash", ErrInvalidPackage)
	case rec.Package.Attr == "":
		return fmt.Errorf("%w: empty attr", ErrInvalidPackage)
	case rec.Package.StorePath == "":
		return fmt.Errorf("%w: empty store path", ErrInvalidPackage)
	}
	return validateFile(rec.File)
}
