package indexer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/binlocate/internal/logging"
	"github.com/dshills/binlocate/internal/storage"
)

// storeEntry matches a top-level store entry: <32 char hash>-<name>
var storeEntry = regexp.MustCompile(`^([0-9a-z]{32})-(.+)$`)

// Indexer builds the package-file index from a store directory
type Indexer struct {
	storage storage.Storage
	lock    *IndexLock
	logger  *slog.Logger
}

// Config contains configuration for a build
type Config struct {
	Workers int      // Packages walked concurrently (default: runtime.NumCPU())
	Exclude []string // Doublestar globs of store entry names to skip
}

// Statistics contains statistics about a build
type Statistics struct {
	PackagesIndexed int
	PackagesSkipped int
	PackagesFailed  int
	PackagesRemoved int
	FilesIndexed    int
	Duration        time.Duration
	ErrorMessages   []string
}

// storePackage is a store entry selected for indexing
type storePackage struct {
	hash string
	name string
	root string
}

// New creates an Indexer writing to store. Builds are serialized through lock;
// a nil lock gives the indexer its own.
func New(store storage.Storage, lock *IndexLock, logger *slog.Logger) *Indexer {
	if lock == nil {
		lock = &IndexLock{}
	}
	return &Indexer{
		storage: store,
		lock:    lock,
		logger:  logging.OrDiscard(logger),
	}
}

// IndexStore indexes every package below storeDir.
//
// Packages are walked concurrently and each one is written in its own
// transaction. A package that fails is counted and reported in the
// statistics without aborting the build. Packages recorded for storeDir that
// are no longer present are removed.
func (idx *Indexer) IndexStore(ctx context.Context, storeDir string, config *Config) (*Statistics, error) {
	if !idx.lock.TryAcquire() {
		return nil, ErrIndexingInProgress
	}
	defer idx.lock.Release()

	if config == nil {
		config = &Config{}
	}
	workers := config.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	startTime := time.Now()
	stats := &Statistics{ErrorMessages: make([]string, 0)}

	packages, skipped, err := discoverPackages(storeDir, config.Exclude)
	if err != nil {
		return nil, fmt.Errorf("failed to list store %s: %w", storeDir, err)
	}
	stats.PackagesSkipped = skipped

	idx.logger.Info("indexing store", "store", storeDir, "packages", len(packages), "workers", workers)

	if err := idx.indexPackages(ctx, packages, workers, stats); err != nil {
		return nil, err
	}

	removed, err := idx.removeStale(ctx, storeDir, packages)
	if err != nil {
		return nil, fmt.Errorf("failed to remove stale packages: %w", err)
	}
	stats.PackagesRemoved = removed

	stats.Duration = time.Since(startTime)
	idx.logger.Info("indexing complete",
		"indexed", stats.PackagesIndexed,
		"skipped", stats.PackagesSkipped,
		"failed", stats.PackagesFailed,
		"removed", stats.PackagesRemoved,
		"files", stats.FilesIndexed,
		"duration", stats.Duration)
	return stats, nil
}

// discoverPackages lists the store entries to index and counts the skipped ones
func discoverPackages(storeDir string, exclude []string) ([]storePackage, int, error) {
	entries, err := os.ReadDir(storeDir)
	if err != nil {
		return nil, 0, err
	}

	var (
		packages []storePackage
		skipped  int
	)
	for _, entry := range entries {
		m := storeEntry.FindStringSubmatch(entry.Name())
		if m == nil || !entry.IsDir() || excluded(entry.Name(), exclude) {
			skipped++
			continue
		}
		packages = append(packages, storePackage{
			hash: m[1],
			name: m[2],
			root: filepath.Join(storeDir, entry.Name()),
		})
	}
	return packages, skipped, nil
}

func excluded(name string, patterns []string) bool {
	for _, pattern := range patterns {
		if ok, err := doublestar.Match(pattern, name); err == nil && ok {
			return true
		}
	}
	return false
}

// indexPackages runs the worker pool over packages
func (idx *Indexer) indexPackages(ctx context.Context, packages []storePackage, workers int, stats *Statistics) error {
	var (
		indexed int32
		failed  int32
		files   int32
		mu      sync.Mutex // Protects stats.ErrorMessages
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, pkg := range packages {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			count, err := idx.indexPackage(gctx, pkg)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				atomic.AddInt32(&failed, 1)
				mu.Lock()
				stats.ErrorMessages = append(stats.ErrorMessages, fmt.Sprintf("%s: %v", pkg.root, err))
				mu.Unlock()
				idx.logger.Warn("failed to index package", "package", pkg.root, "error", err)
				return nil
			}
			atomic.AddInt32(&indexed, 1)
			atomic.AddInt32(&files, int32(count))
			return nil
		})
	}

	err := g.Wait()

	stats.PackagesIndexed = int(indexed)
	stats.PackagesFailed = int(failed)
	stats.FilesIndexed = int(files)

	if err == nil {
		err = ctx.Err()
	}
	return err
}

// indexPackage walks one package and replaces its recorded file tree
func (idx *Indexer) indexPackage(ctx context.Context, sp storePackage) (int, error) {
	entries, err := walkPackage(sp.root)
	if err != nil {
		return 0, err
	}

	tx, err := idx.storage.BeginTx(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	pkg := &storage.Package{
		Hash:      sp.hash,
		Name:      sp.name,
		Attr:      AttrName(sp.name),
		StorePath: sp.root,
		IndexedAt: time.Now(),
	}
	if err := tx.UpsertPackage(ctx, pkg); err != nil {
		return 0, err
	}
	if err := tx.ReplaceFiles(ctx, pkg.ID, entries); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	idx.logger.Debug("indexed package", "package", sp.name, "files", len(entries))
	return len(entries), nil
}

// walkPackage lists every entry below root with paths relative to it.
// Symlinks are recorded, not followed.
func walkPackage(root string) ([]storage.FileEntry, error) {
	var entries []storage.FileEntry

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		entry := storage.FileEntry{
			Path: []byte("/" + filepath.ToSlash(rel)),
			Kind: fileKind(info.Mode()),
		}
		if entry.Kind != storage.KindDirectory {
			entry.SizeBytes = info.Size()
		}
		entries = append(entries, entry)
		return nil
	})

	return entries, err
}

func fileKind(mode fs.FileMode) storage.FileKind {
	switch {
	case mode&fs.ModeSymlink != 0:
		return storage.KindSymlink
	case mode.IsDir():
		return storage.KindDirectory
	case mode&0111 != 0:
		return storage.KindExecutable
	default:
		return storage.KindRegular
	}
}

// removeStale deletes recorded packages of storeDir that were not found
func (idx *Indexer) removeStale(ctx context.Context, storeDir string, found []storePackage) (int, error) {
	present := make(map[string]struct{}, len(found))
	for _, pkg := range found {
		present[pkg.hash] = struct{}{}
	}

	recorded, err := idx.storage.ListPackages(ctx)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, pkg := range recorded {
		if filepath.Dir(pkg.StorePath) != filepath.Clean(storeDir) {
			continue
		}
		if _, ok := present[pkg.Hash]; ok {
			continue
		}
		if err := idx.storage.DeletePackage(ctx, pkg.ID); err != nil && !errors.Is(err, storage.ErrNotFound) {
			return removed, err
		}
		idx.logger.Debug("removed stale package", "package", pkg.Name)
		removed++
	}
	return removed, nil
}

// AttrName strips the version suffix from a package name. The version starts
// at the first dash followed by a digit: "ripgrep-14.1.0" gives "ripgrep" and
// "python3.11-requests-2.31.0" gives "python3.11-requests". Names without a
// version are returned unchanged.
func AttrName(name string) string {
	for i := 0; i+1 < len(name); i++ {
		if name[i] == '-' && i > 0 && name[i+1] >= '0' && name[i+1] <= '9' {
			return name[:i]
		}
	}
	return name
}
