package storage

import (
	"context"
	"time"
)

// Storage defines the interface for building and maintaining the package-file index
type Storage interface {
	// Package operations
	UpsertPackage(ctx context.Context, pkg *Package) error
	GetPackage(ctx context.Context, hash string) (*Package, error)
	ListPackages(ctx context.Context) ([]*Package, error)
	DeletePackage(ctx context.Context, packageID int64) error

	// File operations
	ReplaceFiles(ctx context.Context, packageID int64, files []FileEntry) error
	ListFiles(ctx context.Context, packageID int64) ([]FileEntry, error)

	// Status operations
	GetStatus(ctx context.Context) (*IndexStatus, error)

	// Database operations
	Close() error
	BeginTx(ctx context.Context) (Tx, error)
}

// Tx represents a database transaction
type Tx interface {
	Commit() error
	Rollback() error
	Storage // Embed Storage interface for transaction operations
}

// FileKind classifies an entry of a package file tree
type FileKind string

const (
	KindRegular    FileKind = "regular"
	KindExecutable FileKind = "executable"
	KindSymlink    FileKind = "symlink"
	KindDirectory  FileKind = "directory"
)

// Valid reports whether k is a known file kind
func (k FileKind) Valid() bool {
	switch k {
	case KindRegular, KindExecutable, KindSymlink, KindDirectory:
		return true
	}
	return false
}

// Package represents one store path recorded in the index
type Package struct {
	ID        int64
	Hash      string // Content hash part of the store path
	Name      string // Display name, e.g. "ripgrep-14.1.0"
	Attr      string // Version-free identifier, e.g. "ripgrep"
	StorePath string // Absolute store path
	IndexedAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Ref returns the package reference carried by query records
func (p *Package) Ref() PackageRef {
	return PackageRef{
		Name:      p.Name,
		Attr:      p.Attr,
		Hash:      p.Hash,
		StorePath: p.StorePath,
	}
}

// FileEntry is a single entry of a package file tree
type FileEntry struct {
	Path      []byte // Relative to the package root, always starts with "/"
	Kind      FileKind
	SizeBytes int64
}

// PackageRef identifies the package a query record belongs to
type PackageRef struct {
	Name      string
	Attr      string
	Hash      string
	StorePath string
}

// Record is one raw query result: a package paired with a matching file entry
type Record struct {
	Package PackageRef
	File    FileEntry
}

// IndexStatus contains statistics about the index
type IndexStatus struct {
	SchemaVersion string
	PackagesCount int
	FilesCount    int
	IndexSizeMB   float64
	LastIndexedAt time.Time
}
