package catalog

import (
	"context"
	"errors"
	"math/rand/v2"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"pgregory.net/rapid"

	"github.com/sekai02/photocat/internal/ids"
)

type memSnapshotter struct {
	saved   []Record
	saves   int
	loadErr error
	saveErr error
}

func (m *memSnapshotter) Save(records []Record) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.saved = make([]Record, len(records))
	for i, r := range records {
		m.saved[i] = r.Clone()
	}
	return nil
}

func (m *memSnapshotter) Load() ([]Record, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return m.saved, nil
}

func newTestCatalog(t *testing.T) (*Catalog, *memSnapshotter) {
	t.Helper()
	snap := &memSnapshotter{}
	c, err := Open(context.Background(), snap, zap.NewNop())
	require.NoError(t, err)
	return c, snap
}

func TestCreateAssignsSequentialIDs(t *testing.T) {
	c, snap := newTestCatalog(t)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		rec, err := c.Create(ctx, "photos/x.jpg", []string{"a"}, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, ids.EntryID(i), rec.ID)
	}
	assert.Equal(t, 3, snap.saves)
	assert.Len(t, snap.saved, 3)
}

func TestCreateSortsAndKeepsBlanks(t *testing.T) {
	c, _ := newTestCatalog(t)

	rec, err := c.Create(context.Background(), "p.jpg",
		[]string{" bob", "Alice "},
		[]string{"sketch", "", "Art"},
		[]string{"Zed", "amy"},
	)
	require.NoError(t, err)

	assert.Equal(t, []string{"Alice", "bob"}, rec.Authors)
	assert.Equal(t, []string{"", "Art", "sketch"}, rec.Tags)
	assert.Equal(t, []string{"amy", "Zed"}, rec.Characters)
	assert.Equal(t, "p.jpg", rec.Location)
}

func TestCreatePersistFailure(t *testing.T) {
	c, snap := newTestCatalog(t)
	snap.saveErr = errors.New("disk full")

	_, err := c.Create(context.Background(), "p.jpg", nil, nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, snap.saveErr)
}

func TestUpdateMergesCaseSensitively(t *testing.T) {
	c, _ := newTestCatalog(t)
	ctx := context.Background()

	_, err := c.Create(ctx, "p.jpg", []string{"bob"}, []string{"x"}, []string{"amy"})
	require.NoError(t, err)

	require.NoError(t, c.Update(ctx, 1, Patch{Tags: []string{"X"}}))
	rec, ok := c.Get(1)
	require.True(t, ok)
	assert.Equal(t, []string{"x", "X"}, rec.Tags, "different case is a distinct tag")

	require.NoError(t, c.Update(ctx, 1, Patch{Tags: []string{"x"}}))
	rec, _ = c.Get(1)
	assert.Len(t, rec.Tags, 2, "exact duplicate is not added")

	require.NoError(t, c.Update(ctx, 1, Patch{Authors: []string{" ", "", " Carl "}}))
	rec, _ = c.Get(1)
	assert.Equal(t, []string{"bob", "Carl"}, rec.Authors)
	assert.Equal(t, []string{"amy"}, rec.Characters)
}

func TestUpdateBlankOnlyFieldIsUntouched(t *testing.T) {
	c, _ := newTestCatalog(t)
	ctx := context.Background()

	_, err := c.Create(ctx, "p.jpg", []string{"bob"}, []string{"a"}, nil)
	require.NoError(t, err)

	require.NoError(t, c.Update(ctx, 1, Patch{Authors: []string{"  "}, Tags: nil}))
	rec, _ := c.Get(1)
	assert.Equal(t, []string{"bob"}, rec.Authors)
	assert.Equal(t, []string{"a"}, rec.Tags)
	assert.Equal(t, []string{}, rec.Characters)
}

func TestUpdateUnknownIDIsNoOp(t *testing.T) {
	c, snap := newTestCatalog(t)
	ctx := context.Background()

	_, err := c.Create(ctx, "p.jpg", []string{"bob"}, []string{"a"}, nil)
	require.NoError(t, err)
	before := c.Entries()
	saves := snap.saves

	require.NoError(t, c.Update(ctx, 42, Patch{Tags: []string{"new"}}))

	assert.Equal(t, before, c.Entries())
	assert.Equal(t, saves+1, snap.saves, "collection is still rewritten")
	assert.False(t, c.Exists(42))
}

func TestAuthorSearchIsExactTagSearchIsSubstring(t *testing.T) {
	c, _ := newTestCatalog(t)
	ctx := context.Background()

	_, err := c.Create(ctx, "p.jpg", []string{"ArtStudio"}, []string{"fan-art"}, []string{"Hero"})
	require.NoError(t, err)

	assert.Empty(t, c.SearchByAuthor("art"))
	assert.Len(t, c.SearchByAuthor("artstudio"), 1)
	assert.Len(t, c.SearchByTag("art"), 1)
	assert.Len(t, c.SearchByTag("ART"), 1)
	assert.Len(t, c.SearchByCharacter("er"), 1)
	assert.Empty(t, c.SearchByCharacter("villain"))
	assert.NotNil(t, c.SearchByCharacter("villain"))
}

func TestAllAuthors(t *testing.T) {
	c, _ := newTestCatalog(t)
	ctx := context.Background()

	_, err := c.Create(ctx, "a.jpg", []string{"Bob", "alice"}, nil, nil)
	require.NoError(t, err)
	_, err = c.Create(ctx, "b.jpg", []string{"Alice", "Bob"}, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"alice", "Alice", "Bob"}, c.AllAuthors())
}

func TestTopTagsAndSuggestions(t *testing.T) {
	c, _ := newTestCatalog(t)
	ctx := context.Background()

	_, err := c.Create(ctx, "a.jpg", []string{"bob"}, []string{"sky", "sea"}, nil)
	require.NoError(t, err)
	_, err = c.Create(ctx, "b.jpg", []string{"Bob"}, []string{"sea", "tree", "moon"}, nil)
	require.NoError(t, err)
	_, err = c.Create(ctx, "c.jpg", []string{"ann"}, []string{"sun"}, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"sea", "sky", "moon"}, c.TopTags("BOB", 3))
	assert.Empty(t, c.TopTags("nobody", 3))

	rng := rand.New(rand.NewPCG(1, 2))
	suggestions := c.SuggestAuthors(rng, 3)
	require.Len(t, suggestions, 3)
	for _, s := range suggestions {
		assert.Contains(t, []string{"ann", "bob", "Bob"}, s.Author)
		assert.NotEmpty(t, s.TopTags)
	}

	assert.Len(t, c.SuggestAuthors(rng, 1), 1)
}

func TestReturnedRecordsAreCopies(t *testing.T) {
	c, _ := newTestCatalog(t)
	_, err := c.Create(context.Background(), "p.jpg", []string{"bob"}, nil, nil)
	require.NoError(t, err)

	got := c.Entries()
	got[0].Authors[0] = "mallory"

	rec, _ := c.Get(1)
	assert.Equal(t, []string{"bob"}, rec.Authors)
}

func TestOpenPropagatesLoadError(t *testing.T) {
	_, err := Open(context.Background(), &memSnapshotter{loadErr: errors.New("corrupt")}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load catalog")
}

func TestCanceledContext(t *testing.T) {
	c, snap := newTestCatalog(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Create(ctx, "p.jpg", nil, nil, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, snap.saves)
}

func TestCatalogProperties(t *testing.T) {
	name := rapid.StringMatching(`[a-dA-D]{1,3}`)

	rapid.Check(t, func(t *rapid.T) {
		snap := &memSnapshotter{}
		c := New(snap, nil)
		ctx := context.Background()

		n := rapid.IntRange(1, 12).Draw(t, "n")
		created := make([]Record, 0, n)
		for i := 0; i < n; i++ {
			authors := rapid.SliceOfN(name, 1, 3).Draw(t, "authors")
			rec, err := c.Create(ctx, "p.jpg", authors, nil, nil)
			if err != nil {
				t.Fatal(err)
			}
			if rec.ID != ids.EntryID(i+1) {
				t.Fatalf("record %d got id %d", i+1, rec.ID)
			}
			created = append(created, rec)

			if rapid.Bool().Draw(t, "update") {
				target := ids.EntryID(rapid.IntRange(1, i+2).Draw(t, "target"))
				tags := rapid.SliceOf(name).Draw(t, "tags")
				if err := c.Update(ctx, target, Patch{Tags: tags}); err != nil {
					t.Fatal(err)
				}
			}

			entries := c.Entries()
			if !slices.IsSortedFunc(entries, func(a, b Record) int { return int(a.ID) - int(b.ID) }) {
				t.Fatalf("entries out of id order")
			}
			for _, e := range entries {
				for _, set := range [][]string{e.Authors, e.Tags, e.Characters} {
					if !slices.IsSortedFunc(set, func(a, b string) int {
						return strings.Compare(strings.ToLower(a), strings.ToLower(b))
					}) {
						t.Fatalf("set %v not sorted case-insensitively", set)
					}
				}
			}
		}

		for _, rec := range created {
			for _, a := range rec.Authors {
				found := false
				for _, hit := range c.SearchByAuthor(strings.ToUpper(a)) {
					if hit.ID == rec.ID {
						found = true
					}
				}
				if !found {
					t.Fatalf("record %d not found by author %q", rec.ID, a)
				}
			}
		}
	})
}
