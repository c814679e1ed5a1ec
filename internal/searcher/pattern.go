package searcher

import (
	"fmt"
	"regexp"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dshills/binlocate/pkg/types"
)

// binPrefix is the directory every searched binary lives in, relative to
// the package root
const binPrefix = "/bin/"

// Pattern matches index file paths against a query
type Pattern struct {
	re     *regexp.Regexp
	prefix string
	mode   types.SearchMode
}

// BuildPattern turns a query into a matcher over binary paths.
//
// Exact mode matches ^/bin/<query>$, substring mode matches ^/bin/<query>.
// The query is escaped, so every character is taken literally.
func BuildPattern(query string, mode types.SearchMode) (*Pattern, error) {
	expr := "^" + regexp.QuoteMeta(binPrefix) + regexp.QuoteMeta(query)
	switch mode {
	case types.SearchModeExact:
		expr += "$"
	case types.SearchModeSubstring:
	default:
		return nil, &types.PatternError{Pattern: expr, Err: fmt.Errorf("unsupported search mode: %q", mode)}
	}

	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, &types.PatternError{Pattern: expr, Err: err}
	}

	return &Pattern{re: re, prefix: binPrefix + query, mode: mode}, nil
}

// Match reports whether path is accepted by the pattern
func (p *Pattern) Match(path []byte) bool {
	return p.re.Match(path)
}

// String returns the regular expression source
func (p *Pattern) String() string {
	return p.re.String()
}

// AnchoredPrefix returns the literal every accepted path starts with
func (p *Pattern) AnchoredPrefix() string {
	return p.prefix
}

// WholePath reports whether only the anchored prefix itself is accepted
func (p *Pattern) WholePath() bool {
	return p.Mode() == types.SearchModeExact
}

// Mode returns the search mode the pattern was built for
func (p *Pattern) Mode() types.SearchMode {
	return p.mode
}

// patternKey identifies a compiled pattern in the cache
type patternKey struct {
	mode  types.SearchMode
	query string
}

// PatternCache keeps recently compiled patterns. Hosts search on every
// keystroke, so the same queries come back often.
type PatternCache struct {
	cache *lru.Cache[patternKey, *Pattern]
	mu    sync.Mutex
}

// NewPatternCache creates a cache holding up to size patterns.
// A size of zero disables caching.
func NewPatternCache(size int) *PatternCache {
	if size <= 0 {
		return &PatternCache{}
	}

	cache, err := lru.New[patternKey, *Pattern](size)
	if err != nil {
		// Only possible with a non-positive size
		panic(fmt.Sprintf("failed to create pattern cache: %v", err))
	}
	return &PatternCache{cache: cache}
}

// Get returns the pattern for query and mode, compiling it on a miss
func (c *PatternCache) Get(query string, mode types.SearchMode) (*Pattern, error) {
	if c == nil || c.cache == nil {
		return BuildPattern(query, mode)
	}

	key := patternKey{mode: mode, query: query}

	c.mu.Lock()
	defer c.mu.Unlock()

	if p, ok := c.cache.Get(key); ok {
		return p, nil
	}

	p, err := BuildPattern(query, mode)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, p)
	return p, nil
}

// Len returns the number of cached patterns
func (c *PatternCache) Len() int {
	if c == nil || c.cache == nil {
		return 0
	}
	return c.cache.Len()
}
