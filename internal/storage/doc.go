// Package storage provides the SQLite-backed package-file index.
//
// The index records, for every package of a store, the complete listing of
// its file tree. Searches scan file paths with a matcher and stream back
// (package, file) pairs.
//
// # Database Schema
//
// Tables:
//   - packages: one row per store path (hash, display name, attr, store path)
//   - files: every entry of a package file tree, relative to the package root
//   - schema_version: applied migrations
//
// # Building
//
// SQLiteStorage is the writable side used by the indexer:
//
//	db, err := storage.NewSQLiteStorage("~/.cache/binlocate/index.db")
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	tx, err := db.BeginTx(ctx)
//	if err != nil {
//	    return err
//	}
//	defer tx.Rollback()
//
//	pkg := &storage.Package{Hash: hash, Name: "ripgrep-14.1.0", Attr: "ripgrep", StorePath: path}
//	if err := tx.UpsertPackage(ctx, pkg); err != nil {
//	    return err
//	}
//	if err := tx.ReplaceFiles(ctx, pkg.ID, entries); err != nil {
//	    return err
//	}
//	return tx.Commit()
//
// # Querying
//
// Index is the read-only side. OpenIndex never creates a database, so a
// missing index is reported instead of silently producing an empty one:
//
//	ix, err := storage.OpenIndex(ctx, path)
//	if err != nil {
//	    return err // *types.IndexOpenError
//	}
//	defer ix.Close()
//
//	results, err := ix.Query(regexp.MustCompile(`^/bin/rg$`)).Run(ctx)
//	if err != nil {
//	    return err // *types.IndexQueryError
//	}
//	defer results.Close()
//
//	for rec, err := range results.All() {
//	    if err != nil {
//	        continue // *types.RecordError, the scan goes on
//	    }
//	    fmt.Println(rec.Package.StorePath + string(rec.File.Path))
//	}
//
// Breaking out of the loop stops the scan; the rest of the index is never read.
//
// # Drivers
//
// The default build uses modernc.org/sqlite (pure Go). Build with the
// cgo_sqlite tag to use github.com/mattn/go-sqlite3 instead.
package storage
