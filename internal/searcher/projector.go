package searcher

import (
	"bytes"
	"fmt"
	"html"
	"iter"
	"log/slog"
	"path"

	"github.com/dshills/binlocate/internal/logging"
	"github.com/dshills/binlocate/internal/storage"
	"github.com/dshills/binlocate/pkg/types"
)

// Project turns raw index records into display matches.
//
// Failed records are logged and skipped. Identifiers are per package, so
// only the first binary of each package is emitted; later ones are skipped
// without counting against the limit. Every emitted match has its
// correlation stored in store under the match identifier. At most limit
// matches are produced and no record is pulled from records once the limit
// is reached.
func Project(records iter.Seq2[storage.Record, error], limit int, store *CorrelationStore, logger *slog.Logger) []types.Match {
	matches := []types.Match{}
	if limit <= 0 {
		return matches
	}

	logger = logging.OrDiscard(logger)

	for rec := range take(firstPerPackage(binaries(validRecords(records, logger), logger), logger), limit) {
		id := types.NewMatchID(rec.Package.Hash)
		corr := correlate(rec)
		store.Insert(id, corr)
		matches = append(matches, displayMatch(id, corr))
	}

	return matches
}

// validRecords drops failed records after logging them
func validRecords(records iter.Seq2[storage.Record, error], logger *slog.Logger) iter.Seq[storage.Record] {
	return func(yield func(storage.Record) bool) {
		for rec, err := range records {
			if err != nil {
				logger.Warn("skipping index record", "error", err)
				continue
			}
			if !yield(rec) {
				return
			}
		}
	}
}

// binaries keeps only entries that sit directly in a bin directory
func binaries(records iter.Seq[storage.Record], logger *slog.Logger) iter.Seq[storage.Record] {
	return func(yield func(storage.Record) bool) {
		for rec := range records {
			if !isBinary(rec.File) {
				logger.Debug("skipping non-binary entry",
					"package", rec.Package.Name, "path", string(rec.File.Path))
				continue
			}
			if !yield(rec) {
				return
			}
		}
	}
}

// firstPerPackage drops records of packages already yielded
func firstPerPackage(records iter.Seq[storage.Record], logger *slog.Logger) iter.Seq[storage.Record] {
	return func(yield func(storage.Record) bool) {
		seen := make(map[types.MatchID]struct{})
		for rec := range records {
			id := types.NewMatchID(rec.Package.Hash)
			if _, ok := seen[id]; ok {
				logger.Debug("skipping further binary of package",
					"package", rec.Package.Name, "path", string(rec.File.Path))
				continue
			}
			seen[id] = struct{}{}
			if !yield(rec) {
				return
			}
		}
	}
}

// take stops after n records
func take[T any](seq iter.Seq[T], n int) iter.Seq[T] {
	return func(yield func(T) bool) {
		if n <= 0 {
			return
		}
		count := 0
		for v := range seq {
			if !yield(v) {
				return
			}
			count++
			if count >= n {
				return
			}
		}
	}
}

func isBinary(f storage.FileEntry) bool {
	if f.Kind == storage.KindDirectory {
		return false
	}
	dir, name := path.Split(string(f.Path))
	return name != "" && path.Base(dir) == "bin" && bytes.HasPrefix(f.Path, []byte("/"))
}

func correlate(rec storage.Record) types.Correlation {
	filePath := string(rec.File.Path)
	return types.Correlation{
		PackageName: rec.Package.Name,
		Attr:        rec.Package.Attr,
		BinaryPath:  rec.Package.StorePath + filePath,
		BinaryName:  path.Base(filePath),
	}
}

func displayMatch(id types.MatchID, c types.Correlation) types.Match {
	return types.Match{
		Title: c.Attr,
		Description: fmt.Sprintf("Run `%s` from `%s` package",
			html.EscapeString(c.BinaryPath), html.EscapeString(c.PackageName)),
		UsePango: true,
		ID:       &id,
	}
}
