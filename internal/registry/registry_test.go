package registry

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(opts ...Option) *Registry {
	opts = append([]Option{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	return New(opts...)
}

func TestLookup_LongerSuffixWins(t *testing.T) {
	r := newTestRegistry()
	r.Register("/a/b/nb.live", "E1")
	r.Register("/c/d/nb.live", "E2")

	ep, err := r.Lookup("/x/b/nb.live")
	require.NoError(t, err)
	assert.Equal(t, Endpoint("E1"), ep)
}

func TestLookup_FilenameOnlyTieIsAmbiguous(t *testing.T) {
	r := newTestRegistry()
	r.Register("/a/b/nb.live", "E1")
	r.Register("/c/d/nb.live", "E2")

	_, err := r.Lookup("/y/nb.live")
	require.Error(t, err)
	assert.True(t, IsAmbiguous(err))

	var ae *AmbiguousTargetError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, 1, ae.Score)
	assert.Equal(t, []string{"/a/b/nb.live", "/c/d/nb.live"}, ae.Candidates)
}

func TestLookup_NotFound(t *testing.T) {
	t.Run("empty table", func(t *testing.T) {
		_, err := newTestRegistry().Lookup("/home/tj/notebook.sync.ipynb")
		assert.True(t, IsNotFound(err))
	})
	t.Run("no shared tail", func(t *testing.T) {
		r := newTestRegistry()
		r.Register("/home/tj/notebook.sync.ipynb", "http://localhost:1234")

		_, err := r.Lookup("/home/tj/other.sync.ipynb")
		assert.True(t, IsNotFound(err))
		assert.False(t, IsAmbiguous(err))
	})
}

func TestLookup_ExactMatch(t *testing.T) {
	r := newTestRegistry()
	r.Register("hello.sync.ipynb", "http://localhost:1234")

	ep, err := r.Lookup("hello.sync.ipynb")
	require.NoError(t, err)
	assert.Equal(t, Endpoint("http://localhost:1234"), ep)
}

func TestLookup_EditableExtensionIsRewritten(t *testing.T) {
	r := newTestRegistry()
	r.Register("/home/tj/git/notebook.sync.ipynb", "E1")

	ep, err := r.Lookup("/home/tj/git/notebook.sync.py")
	require.NoError(t, err)
	assert.Equal(t, Endpoint("E1"), ep)
}

func TestLookup_CustomExtension(t *testing.T) {
	r := newTestRegistry(WithExtension("synced"))
	r.Register("/work/nb.synced.ipynb", "E1")

	ep, err := r.Lookup("/elsewhere/nb.synced.py")
	require.NoError(t, err)
	assert.Equal(t, Endpoint("E1"), ep)

	_, err = r.Lookup("/work/nb.sync.py")
	assert.True(t, IsNotFound(err))
}

func TestLookup_StemMatch(t *testing.T) {
	r := newTestRegistry()
	r.Register("/home/tj/git/notebook.sync.ipynb", "E1")

	for _, p := range []string{"/home/tj/git/notebook.sync.ipynb", "/home/other/git/notebook.sync.ipynb"} {
		ep, err := r.Lookup(p)
		require.NoError(t, err, p)
		assert.Equal(t, Endpoint("E1"), ep, p)
	}
}

func TestLookup_MoreThanStemMatch(t *testing.T) {
	r := newTestRegistry()
	r.Register("/home/tj/git/notebook.sync.ipynb", "E1")
	r.Register("/home/tj/do_not_pick/notebook.sync.ipynb", "E2")

	ep, err := r.Lookup("/home/other/git/notebook.sync.ipynb")
	require.NoError(t, err)
	assert.Equal(t, Endpoint("E1"), ep)
}

func TestLookup_EquallyMatchingStemErrors(t *testing.T) {
	r := newTestRegistry()
	r.Register("/home/foo/git/notebook.sync.ipynb", "E1")
	r.Register("/home/bar/git/notebook.sync.ipynb", "E2")

	ep, err := r.Lookup("/home/foo/git/notebook.sync.ipynb")
	require.NoError(t, err)
	assert.Equal(t, Endpoint("E1"), ep)

	_, err = r.Lookup("/home/tj/git/notebook.sync.ipynb")
	assert.True(t, IsAmbiguous(err))
}

func TestLookup_ExactOutscoresPartial(t *testing.T) {
	r := newTestRegistry()
	exact := "/srv/projects/alpha/analysis/nb.sync.ipynb"
	r.Register(exact, "exact")
	r.Register("/home/u/alpha/analysis/nb.sync.ipynb", "partial-3")
	r.Register("/tmp/analysis/nb.sync.ipynb", "partial-2")
	r.Register("nb.sync.ipynb", "partial-1")

	ep, err := r.Lookup(exact)
	require.NoError(t, err)
	assert.Equal(t, Endpoint("exact"), ep)
}

func TestLookup_ScoringStopsAtFirstMismatch(t *testing.T) {
	r := newTestRegistry()
	// Shares "a" and "b" with the request but not contiguously from the end.
	r.Register("/a/b/x/nb.ipynb", "E1")
	r.Register("/q/r/y/nb.ipynb", "E2")
	r.Register("/z/other.ipynb", "E3")

	_, err := r.Lookup("/a/b/c/nb.ipynb")
	assert.True(t, IsAmbiguous(err))
}

func TestLookup_NormalizesSeparatorsAndUnicode(t *testing.T) {
	r := newTestRegistry()
	// "café" with a precomposed e-acute.
	r.Register("/data/caf\u00e9/nb.sync.ipynb", "E1")
	r.Register("/data/other/nb.sync.ipynb", "E2")

	ep, err := r.Lookup("C:\\Users\\me\\cafe\u0301\\nb.sync.py")
	require.NoError(t, err)
	assert.Equal(t, Endpoint("E1"), ep)

	ep, err = r.Lookup("/data/./caf\u00e9//nb.sync.ipynb")
	require.NoError(t, err)
	assert.Equal(t, Endpoint("E1"), ep)
}

func TestRegister_Upserts(t *testing.T) {
	r := newTestRegistry()
	r.Register("/a/nb.sync.ipynb", "old")
	r.Register("/a/nb.sync.ipynb", "new")

	ep, err := r.Lookup("/a/nb.sync.ipynb")
	require.NoError(t, err)
	assert.Equal(t, Endpoint("new"), ep)
	assert.Len(t, r.Entries(), 1)
}

func TestUnregisterAndReset(t *testing.T) {
	r := newTestRegistry()
	r.Register("/a/nb.sync.ipynb", "E1")
	r.Register("/b/other.sync.ipynb", "E2")

	assert.True(t, r.Unregister("/a/nb.sync.ipynb"))
	assert.False(t, r.Unregister("/a/nb.sync.ipynb"))
	_, err := r.Lookup("/a/nb.sync.ipynb")
	assert.True(t, IsNotFound(err))

	r.Reset()
	assert.Empty(t, r.Entries())
	_, err = r.Lookup("/b/other.sync.ipynb")
	assert.True(t, IsNotFound(err))
}

func TestEntries_SortedCopy(t *testing.T) {
	r := newTestRegistry()
	r.Register("/z/nb.ipynb", "E1")
	r.Register("/a/nb.ipynb", "E2")

	entries := r.Entries()
	assert.Equal(t, []Entry{{Path: "/a/nb.ipynb", Endpoint: "E2"}, {Path: "/z/nb.ipynb", Endpoint: "E1"}}, entries)

	entries[0].Endpoint = "mutated"
	assert.Equal(t, Endpoint("E2"), r.Entries()[0].Endpoint)
}

func TestComponents(t *testing.T) {
	r := newTestRegistry()
	tests := []struct {
		in   string
		want []string
	}{
		{"/home/tj/nb.sync.ipynb", []string{"/", "home", "tj", "nb.sync.ipynb"}},
		{"rel/nb.sync.py", []string{"rel", "nb.sync.ipynb"}},
		{"nb.ipynb", []string{"nb.ipynb"}},
		{"/", []string{"/"}},
		{"", nil},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, r.components(tt.in))
		})
	}
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	r := newTestRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			r.Register(fmt.Sprintf("/w/%d/nb.sync.ipynb", i), Endpoint(fmt.Sprint(i)))
		}(i)
		go func(i int) {
			defer wg.Done()
			_, _ = r.Lookup(fmt.Sprintf("/w/%d/nb.sync.py", i))
		}(i)
	}
	wg.Wait()

	assert.Len(t, r.Entries(), 50)
	ep, err := r.Lookup("/w/7/nb.sync.py")
	require.NoError(t, err)
	assert.Equal(t, Endpoint("7"), ep)
}

func TestResolve_ReturnsMatchedPath(t *testing.T) {
	r := newTestRegistry()
	r.Register("/srv/nb.sync.ipynb", "E1")

	e, err := r.Resolve("/home/me/nb.sync.py")
	require.NoError(t, err)
	assert.Equal(t, Entry{Path: "/srv/nb.sync.ipynb", Endpoint: "E1"}, e)
}
