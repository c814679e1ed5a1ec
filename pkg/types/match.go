package types

import (
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// SearchMode selects how a query is anchored against binary paths
type SearchMode string

const (
	SearchModeExact     SearchMode = "exact"     // ^/bin/<query>$
	SearchModeSubstring SearchMode = "substring" // ^/bin/<query>
)

// ModeFor returns the search mode matching an exact-match flag
func ModeFor(exact bool) SearchMode {
	if exact {
		return SearchModeExact
	}
	return SearchModeSubstring
}

// MatchID identifies a package across searches within a session.
//
// It is a 64-bit hash of the package content hash. Two unrelated packages
// whose hashes collide share an identifier; this is an accepted approximation.
type MatchID uint64

// NewMatchID derives the identifier for a package content hash
func NewMatchID(contentHash string) MatchID {
	return MatchID(xxhash.Sum64String(contentHash))
}

// String renders the identifier in decimal. JSON clients should carry it as
// a string to keep all 64 bits.
func (id MatchID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// ParseMatchID parses the decimal form produced by String
func ParseMatchID(s string) (MatchID, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return MatchID(v), nil
}

// Match is a single displayable search result
type Match struct {
	Title       string
	Description string // Empty when absent
	UsePango    bool   // Description contains Pango markup
	Icon        string // Empty when absent
	ID          *MatchID
}

// Correlation holds the data needed to act on a previously returned match
type Correlation struct {
	PackageName string // Package display name, e.g. "ripgrep-14.1.0"
	Attr        string // Version-free package identifier, e.g. "ripgrep"
	BinaryPath  string // Absolute path of the binary
	BinaryName  string // Last path segment of BinaryPath
}
