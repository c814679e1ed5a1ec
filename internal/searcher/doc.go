// Package searcher resolves binary names to the packages that provide them.
//
// A search flows through four parts:
//   - Pattern builder: BuildPattern turns a query into ^/bin/<query>$ (exact
//     mode) or ^/bin/<query> (substring mode), with the query escaped.
//   - Index query: the pattern is run against the package-file index
//     (see package storage), which streams records lazily.
//   - Projector: Project converts records into display matches, skipping
//     failed records and stopping as soon as the result cap is reached.
//   - Correlation store: every emitted match is recorded under its MatchID
//     so the host can later resolve a selected match to the binary to run.
//
// # Basic Usage
//
//	engine := searcher.NewEngine(cfg, searcher.WithLogger(logger))
//
//	for _, m := range engine.Search(ctx, "rg") {
//	    fmt.Println(m.Title, m.Description)
//	}
//
//	// Later, when the user picks a match
//	corr, err := engine.Resolve(*selected.ID)
//
// # Backends
//
// The engine dispatches on Backend. BackendOffline scans the local index;
// BackendOnline is the slot for a remote package catalog and currently
// answers with an informational match.
//
// # Failures
//
// Search never returns an error. When the index cannot be opened, the
// pattern cannot be built or the scan cannot start, the result is a single
// match titled with the failure category whose description tells the user
// what to do.
//
// # Match identifiers
//
// A MatchID is the 64-bit xxhash of the package content hash. The same
// package always gets the same identifier, so repeated searches overwrite
// correlation records instead of piling up new ones. Collisions between
// unrelated packages are possible in theory and are treated as the same
// package.
package searcher
