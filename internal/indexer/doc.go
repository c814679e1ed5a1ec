// Package indexer builds the package-file index from a store directory.
//
// # Basic Usage
//
//	store, _ := storage.NewSQLiteStorage(cfg.IndexPath)
//	idx := indexer.New(store, nil, logger)
//
//	stats, err := idx.IndexStore(ctx, "/nix/store", &indexer.Config{
//	    Workers: 8,
//	    Exclude: []string{"*.drv"},
//	})
//
//	fmt.Printf("Indexed %d packages (%d files) in %v\n",
//	    stats.PackagesIndexed, stats.FilesIndexed, stats.Duration)
//
// # Store Layout
//
// Every top-level entry named <hash>-<name>, where the hash is 32 lowercase
// alphanumeric characters, is a package. Other entries, plain files and
// names matching an exclude glob are skipped. Each package tree is walked
// without following symlinks and every entry is recorded relative to the
// package root, so a binary is stored as "/bin/<name>".
//
// The package attribute is the name without its version: "ripgrep-14.1.0"
// is recorded with attribute "ripgrep".
//
// # Concurrency
//
// Packages are walked by an errgroup limited to Config.Workers goroutines.
// Writes go through a single SQLite connection, one transaction per package.
// A package that cannot be read or written is counted in
// Statistics.PackagesFailed and the build continues.
//
// Only one build runs at a time per IndexLock. A second IndexStore call
// returns ErrIndexingInProgress immediately.
//
// # Rebuilds
//
// Rebuilding is idempotent: packages are upserted by hash, their file lists
// replaced, and packages of the same store that disappeared are removed.
package indexer
