// Package types provides shared type definitions for binlocate.
//
// This package defines the domain types that cross package boundaries:
// search modes, displayable matches, match identifiers, correlation records
// and the error taxonomy used by the index and the search engine.
//
// # Core Types
//
// Match is what a host displays for a single search result:
//
//	id := types.NewMatchID("0c9dmfqx7w2yg1s6pxjw0n2qy3i1r4k5")
//	match := types.Match{
//	    Title:       "ripgrep",
//	    Description: "Run `/nix/store/...-ripgrep-14.1.0/bin/rg` from `ripgrep-14.1.0` package",
//	    UsePango:    true,
//	    ID:          &id,
//	}
//
// Correlation carries what is needed to act on a match after the search
// returned. It is keyed by the MatchID found on the Match:
//
//	corr := types.Correlation{
//	    PackageName: "ripgrep-14.1.0",
//	    Attr:        "ripgrep",
//	    BinaryPath:  "/nix/store/...-ripgrep-14.1.0/bin/rg",
//	    BinaryName:  "rg",
//	}
//
// # Errors
//
// Setup failures are typed so the search engine can report a category to the
// user instead of failing the call:
//
//   - IndexOpenError: the index is missing, corrupt or unreadable
//   - PatternError: the query could not be compiled into a matcher
//   - IndexQueryError: the index scan could not start
//   - RecordError: a single index record was malformed (skipped)
//
// ErrNotFound is returned by correlation lookups that miss.
package types
