package searcher

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/binlocate/internal/config"
	"github.com/dshills/binlocate/internal/storage"
	"github.com/dshills/binlocate/pkg/types"
)

type seed struct {
	hash  string
	name  string
	attr  string
	files []string
}

// writeIndex builds an index holding the given packages in insertion order
func writeIndex(t *testing.T, seeds ...seed) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "index.db")
	store, err := storage.NewSQLiteStorage(path)
	require.NoError(t, err)

	ctx := context.Background()
	for _, s := range seeds {
		pkg := &storage.Package{
			Hash:      s.hash,
			Name:      s.name,
			Attr:      s.attr,
			StorePath: "/nix/store/" + s.hash + "-" + s.name,
		}
		require.NoError(t, store.UpsertPackage(ctx, pkg))

		files := make([]storage.FileEntry, 0, len(s.files))
		for _, f := range s.files {
			files = append(files, storage.FileEntry{Path: []byte(f), Kind: storage.KindExecutable})
		}
		require.NoError(t, store.ReplaceFiles(ctx, pkg.ID, files))
	}
	require.NoError(t, store.Close())
	return path
}

func fooIndex(t *testing.T) string {
	return writeIndex(t,
		seed{hash: "0a1b2c3d4e5f6a7b8c9d0e1f2a3b4c5d", name: "pkg-foo", attr: "foo", files: []string{"/bin/foo"}},
		seed{hash: "1a1b2c3d4e5f6a7b8c9d0e1f2a3b4c5d", name: "pkg-foobar", attr: "foobar", files: []string{"/bin/foobar"}},
		seed{hash: "2a1b2c3d4e5f6a7b8c9d0e1f2a3b4c5d", name: "pkg-docs", attr: "docs", files: []string{"/share/doc/foo"}},
	)
}

func testConfig(indexPath string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.IndexPath = indexPath
	return cfg
}

func TestEngine_ExactSearch(t *testing.T) {
	cfg := testConfig(fooIndex(t))
	cfg.ExactMatch = true
	engine := NewEngine(cfg)

	matches := engine.Search(context.Background(), "foo")

	require.Len(t, matches, 1)
	assert.Equal(t, "foo", matches[0].Title)
	assert.True(t, matches[0].UsePango)
	require.NotNil(t, matches[0].ID)

	corr, err := engine.Resolve(*matches[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "pkg-foo", corr.PackageName)
	assert.Equal(t, "/nix/store/0a1b2c3d4e5f6a7b8c9d0e1f2a3b4c5d-pkg-foo/bin/foo", corr.BinaryPath)
	assert.Equal(t, "foo", corr.BinaryName)
}

func TestEngine_SubstringSearch(t *testing.T) {
	cfg := testConfig(fooIndex(t))
	cfg.ExactMatch = false
	cfg.MaxEntries = 5
	engine := NewEngine(cfg)

	matches := engine.Search(context.Background(), "foo")

	assert.Equal(t, []string{"foo", "foobar"}, titles(matches))
	assert.Equal(t, 2, engine.Correlations())
}

func TestEngine_CapLimitsResults(t *testing.T) {
	cfg := testConfig(fooIndex(t))
	cfg.ExactMatch = false
	cfg.MaxEntries = 1
	engine := NewEngine(cfg)

	matches := engine.Search(context.Background(), "foo")

	assert.Equal(t, []string{"foo"}, titles(matches))
}

func TestEngine_ZeroCap(t *testing.T) {
	cfg := testConfig(filepath.Join(t.TempDir(), "never-opened.db"))
	cfg.MaxEntries = 0
	opened := false
	engine := NewEngine(cfg, WithIndexOpener(func(ctx context.Context, path string) (*storage.Index, error) {
		opened = true
		return storage.OpenIndex(ctx, path)
	}))

	matches := engine.Search(context.Background(), "foo")

	assert.NotNil(t, matches)
	assert.Empty(t, matches)
	assert.False(t, opened)
}

func TestEngine_NoResults(t *testing.T) {
	engine := NewEngine(testConfig(fooIndex(t)))

	matches := engine.Search(context.Background(), "does-not-exist")

	assert.NotNil(t, matches)
	assert.Empty(t, matches)
}

func TestEngine_MetacharactersAreLiteral(t *testing.T) {
	path := writeIndex(t,
		seed{hash: "3a1b2c3d4e5f6a7b8c9d0e1f2a3b4c5d", name: "pkg-gpp", attr: "gpp", files: []string{"/bin/g++"}},
		seed{hash: "4a1b2c3d4e5f6a7b8c9d0e1f2a3b4c5d", name: "pkg-gggg", attr: "gggg", files: []string{"/bin/gggg"}},
	)
	engine := NewEngine(testConfig(path))

	matches := engine.Search(context.Background(), "g++")

	assert.Equal(t, []string{"gpp"}, titles(matches))
}

func TestEngine_MissingIndex(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.db")
	engine := NewEngine(testConfig(missing))

	matches := engine.Search(context.Background(), "foo")

	require.Len(t, matches, 1)
	assert.Equal(t, CategoryIndexOpen, matches[0].Title)
	assert.Contains(t, matches[0].Description, missing)
	assert.Nil(t, matches[0].ID)
	assert.Zero(t, engine.Correlations())
}

func TestEngine_OnlineBackendUnavailable(t *testing.T) {
	cfg := testConfig(fooIndex(t))
	cfg.Engine = config.EngineOnline
	engine := NewEngine(cfg)

	matches := engine.Search(context.Background(), "foo")

	require.Len(t, matches, 1)
	assert.Equal(t, CategoryUnavailable, matches[0].Title)
	assert.Nil(t, matches[0].ID)
}

func TestEngine_UnknownBackend(t *testing.T) {
	cfg := testConfig(fooIndex(t))
	cfg.Engine = "carrier-pigeon"
	engine := NewEngine(cfg)

	matches := engine.Search(context.Background(), "foo")

	require.Len(t, matches, 1)
	assert.Equal(t, CategoryUnknown, matches[0].Title)
	assert.Contains(t, matches[0].Description, "carrier-pigeon")
}

func TestEngine_RepeatedSearchIsStable(t *testing.T) {
	cfg := testConfig(fooIndex(t))
	cfg.ExactMatch = false
	engine := NewEngine(cfg)
	ctx := context.Background()

	first := engine.Search(ctx, "foo")
	size := engine.Correlations()
	second := engine.Search(ctx, "foo")

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, *first[i].ID, *second[i].ID)
		assert.Equal(t, first[i].Description, second[i].Description)
	}
	assert.Equal(t, size, engine.Correlations())
}

func TestEngine_ResolveUnknown(t *testing.T) {
	engine := NewEngine(testConfig(fooIndex(t)))

	_, err := engine.Resolve(types.NewMatchID("never-returned"))

	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestErrorMatch_Categories(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		title string
	}{
		{"open", &types.IndexOpenError{Path: "/x", Err: errors.New("boom")}, CategoryIndexOpen},
		{"pattern", &types.PatternError{Pattern: "x", Err: errors.New("boom")}, CategoryPattern},
		{"query", &types.IndexQueryError{Pattern: "x", Err: errors.New("boom")}, CategoryIndexQuery},
		{"unavailable", ErrBackendUnavailable, CategoryUnavailable},
		{"other", errors.New("boom"), CategoryUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := errorMatch(tt.err)
			assert.Equal(t, tt.title, m.Title)
			assert.NotEmpty(t, m.Description)
			assert.Nil(t, m.ID)
			assert.False(t, m.UsePango)
		})
	}
}

func TestEngine_SelectionResolvesDescribedBinary(t *testing.T) {
	path := writeIndex(t,
		seed{hash: "5a1b2c3d4e5f6a7b8c9d0e1f2a3b4c5d", name: "pkg-foo", attr: "foo", files: []string{"/bin/foo", "/bin/foo-helper"}},
		seed{hash: "6a1b2c3d4e5f6a7b8c9d0e1f2a3b4c5d", name: "pkg-foobar", attr: "foobar", files: []string{"/bin/foobar"}},
	)
	cfg := testConfig(path)
	cfg.ExactMatch = false
	engine := NewEngine(cfg)

	matches := engine.Search(context.Background(), "foo")

	assert.Equal(t, []string{"foo", "foobar"}, titles(matches))
	for _, m := range matches {
		corr, err := engine.Resolve(*m.ID)
		require.NoError(t, err)
		assert.Contains(t, m.Description, "`"+corr.BinaryPath+"`")
	}

	corr, err := engine.Resolve(*matches[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "foo", corr.BinaryName)
}
