package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")
	// ErrInvalidPackage is returned when a package is missing required fields
	ErrInvalidPackage = errors.New("invalid package")
	// ErrInvalidFile is returned when a file entry is malformed
	ErrInvalidFile = errors.New("invalid file entry")
)

// SQLiteStorage implements the Storage interface using SQLite
type SQLiteStorage struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(1) // SQLite benefits from single writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStorage opens (creating if needed) a writable index and migrates it
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create index directory: %w", err)
		}
	}

	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// Close checkpoints the WAL and closes the database connection
func (s *SQLiteStorage) Close() error {
	_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	return s.db.Close()
}

// BeginTx starts a new transaction
func (s *SQLiteStorage) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqliteTx{tx: tx}, nil
}

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// sqliteTx wraps a SQL transaction
type sqliteTx struct {
	tx *sql.Tx
}

func (t *sqliteTx) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTx) Rollback() error {
	return t.tx.Rollback()
}

// Package operations

func validatePackage(pkg *Package) error {
	switch {
	case pkg.Hash == "":
		return fmt.Errorf("%w: hash is required", ErrInvalidPackage)
	case pkg.Name == "":
		return fmt.Errorf("%w: name is required", ErrInvalidPackage)
	case pkg.Attr == "":
		return fmt.Errorf("%w: attr is required", ErrInvalidPackage)
	case pkg.StorePath == "":
		return fmt.Errorf("%w: store path is required", ErrInvalidPackage)
	}
	return nil
}

func upsertPackage(ctx context.Context, q querier, pkg *Package) error {
	if err := validatePackage(pkg); err != nil {
		return err
	}

	query := `
		INSERT INTO packages (hash, name, attr, store_path, indexed_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(hash) DO UPDATE SET
			name = excluded.name,
			attr = excluded.attr,
			store_path = excluded.store_path,
			indexed_at = excluded.indexed_at,
			updated_at = excluded.updated_at
	`
	now := time.Now()
	if pkg.IndexedAt.IsZero() {
		pkg.IndexedAt = now
	}
	if _, err := q.ExecContext(ctx, query,
		pkg.Hash, pkg.Name, pkg.Attr, pkg.StorePath, pkg.IndexedAt, now, now); err != nil {
		return fmt.Errorf("failed to upsert package: %w", err)
	}

	// LastInsertId is not reliable for the update branch of an upsert
	if err := q.QueryRowContext(ctx, "SELECT id, created_at FROM packages WHERE hash = ?", pkg.Hash).
		Scan(&pkg.ID, &pkg.CreatedAt); err != nil {
		return fmt.Errorf("failed to read package id: %w", err)
	}
	pkg.UpdatedAt = now
	return nil
}

func getPackage(ctx context.Context, q querier, hash string) (*Package, error) {
	query := `
		SELECT id, hash, name, attr, store_path, indexed_at, created_at, updated_at
		FROM packages
		WHERE hash = ?
	`
	pkg, err := scanPackage(q.QueryRowContext(ctx, query, hash))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return pkg, nil
}

// rowScanner is implemented by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPackage(row rowScanner) (*Package, error) {
	var pkg Package
	var indexedAt sql.NullTime
	if err := row.Scan(&pkg.ID, &pkg.Hash, &pkg.Name, &pkg.Attr, &pkg.StorePath,
		&indexedAt, &pkg.CreatedAt, &pkg.UpdatedAt); err != nil {
		return nil, err
	}
	if indexedAt.Valid {
		pkg.IndexedAt = indexedAt.Time
	}
	return &pkg, nil
}

func listPackages(ctx context.Context, q querier) ([]*Package, error) {
	query := `
		SELECT id, hash, name, attr, store_path, indexed_at, created_at, updated_at
		FROM packages
		ORDER BY id
	`
	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var packages []*Package
	for rows.Next() {
		pkg, err := scanPackage(rows)
		if err != nil {
			return nil, err
		}
		packages = append(packages, pkg)
	}
	return packages, rows.Err()
}

func deletePackage(ctx context.Context, q querier, packageID int64) error {
	// Files are removed explicitly so the delete does not depend on foreign_keys
	if _, err := q.ExecContext(ctx, "DELETE FROM files WHERE package_id = ?", packageID); err != nil {
		return fmt.Errorf("failed to delete package files: %w", err)
	}
	if _, err := q.ExecContext(ctx, "DELETE FROM packages WHERE id = ?", packageID); err != nil {
		return fmt.Errorf("failed to delete package: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) UpsertPackage(ctx context.Context, pkg *Package) error {
	return upsertPackage(ctx, s.db, pkg)
}

func (s *SQLiteStorage) GetPackage(ctx context.Context, hash string) (*Package, error) {
	return getPackage(ctx, s.db, hash)
}

func (s *SQLiteStorage) ListPackages(ctx context.Context) ([]*Package, error) {
	return listPackages(ctx, s.db)
}

func (s *SQLiteStorage) DeletePackage(ctx context.Context, packageID int64) error {
	return deletePackage(ctx, s.db, packageID)
}

// File operations

func validateFile(f FileEntry) error {
	if len(f.Path) == 0 || f.Path[0] != '/' {
		return fmt.Errorf("%w: path %q must start with /", ErrInvalidFile, f.Path)
	}
	if !f.Kind.Valid() {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidFile, f.Kind)
	}
	return nil
}

// replaceFiles swaps the complete file listing of a package
func replaceFiles(ctx context.Context, q querier, packageID int64, files []FileEntry) error {
	for _, f := range files {
		if err := validateFile(f); err != nil {
			return err
		}
	}

	if _, err := q.ExecContext(ctx, "DELETE FROM files WHERE package_id = ?", packageID); err != nil {
		return fmt.Errorf("failed to clear files: %w", err)
	}

	query := `INSERT INTO files (package_id, path, kind, size_bytes) VALUES (?, ?, ?, ?)`
	for _, f := range files {
		if _, err := q.ExecContext(ctx, query, packageID, string(f.Path), string(f.Kind), f.SizeBytes); err != nil {
			return fmt.Errorf("failed to insert file %s: %w", f.Path, err)
		}
	}
	return nil
}

func listFiles(ctx context.Context, q querier, packageID int64) ([]FileEntry, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT path, kind, size_bytes FROM files WHERE package_id = ? ORDER BY id", packageID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var files []FileEntry
	for rows.Next() {
		var path, kind string
		var f FileEntry
		if err := rows.Scan(&path, &kind, &f.SizeBytes); err != nil {
			return nil, err
		}
		f.Path = []byte(path)
		f.Kind = FileKind(kind)
		files = append(files, f)
	}
	return files, rows.Err()
}

func (s *SQLiteStorage) ReplaceFiles(ctx context.Context, packageID int64, files []FileEntry) error {
	return replaceFiles(ctx, s.db, packageID, files)
}

func (s *SQLiteStorage) ListFiles(ctx context.Context, packageID int64) ([]FileEntry, error) {
	return listFiles(ctx, s.db, packageID)
}

// Status operations

// indexStatus collects statistics using any querier
func indexStatus(ctx context.Context, q querier) (*IndexStatus, error) {
	status := &IndexStatus{}

	if err := q.QueryRowContext(ctx,
		"SELECT version FROM schema_version ORDER BY applied_at DESC, version DESC LIMIT 1").
		Scan(&status.SchemaVersion); err != nil {
		return nil, fmt.Errorf("failed to read schema version: %w", err)
	}

	if err := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM packages").Scan(&status.PackagesCount); err != nil {
		return nil, err
	}

	if err := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM files").Scan(&status.FilesCount); err != nil {
		return nil, err
	}

	var lastIndexedAt sql.NullTime
	err := q.QueryRowContext(ctx,
		"SELECT indexed_at FROM packages WHERE indexed_at IS NOT NULL ORDER BY indexed_at DESC LIMIT 1").
		Scan(&lastIndexedAt)
	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}
	if lastIndexedAt.Valid {
		status.LastIndexedAt = lastIndexedAt.Time
	}

	// Calculate database size
	var pageCount, pageSize int
	if err := q.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount); err == nil {
		if err := q.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize); err == nil {
			status.IndexSizeMB = float64(pageCount*pageSize) / (1024 * 1024)
		}
	}

	return status, nil
}

func (s *SQLiteStorage) GetStatus(ctx context.Context) (*IndexStatus, error) {
	return indexStatus(ctx, s.db)
}

// Transaction operations

func (t *sqliteTx) UpsertPackage(ctx context.Context, pkg *Package) error {
	return upsertPackage(ctx, t.tx, pkg)
}

func (t *sqliteTx) GetPackage(ctx context.Context, hash string) (*Package, error) {
	return getPackage(ctx, t.tx, hash)
}

func (t *sqliteTx) ListPackages(ctx context.Context) ([]*Package, error) {
	return listPackages(ctx, t.tx)
}

func (t *sqliteTx) DeletePackage(ctx context.Context, packageID int64) error {
	return deletePackage(ctx, t.tx, packageID)
}

func (t *sqliteTx) ReplaceFiles(ctx context.Context, packageID int64, files []FileEntry) error {
	return replaceFiles(ctx, t.tx, packageID, files)
}

func (t *sqliteTx) ListFiles(ctx context.Context, packageID int64) ([]FileEntry, error) {
	return listFiles(ctx, t.tx, packageID)
}

func (t *sqliteTx) GetStatus(ctx context.Context) (*IndexStatus, error) {
	return indexStatus(ctx, t.tx)
}

func (t *sqliteTx) Close() error {
	// Transactions don't close the underlying connection
	return nil
}

func (t *sqliteTx) BeginTx(ctx context.Context) (Tx, error) {
	// SQLite does not support true nested transactions
	return nil, errors.New("nested transactions not supported")
}
