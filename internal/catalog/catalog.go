package catalog

import (
	"cmp"
	"context"
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/sekai02/photocat/internal/ids"
	"github.com/sekai02/photocat/internal/index"
)

// Snapshotter writes and reads the whole collection at once.
type Snapshotter interface {
	Save(records []Record) error
	// Load returns an empty slice when nothing has been saved yet.
	Load() ([]Record, error)
}

// Catalog is the in-memory record table. Every mutation rewrites the full
// snapshot through the Snapshotter before returning.
type Catalog struct {
	mu      sync.RWMutex
	records []Record
	snap    Snapshotter
	logger  *zap.Logger
}

func New(snap Snapshotter, logger *zap.Logger) *Catalog {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Catalog{
		records: []Record{},
		snap:    snap,
		logger:  logger.With(zap.String("component", "catalog")),
	}
}

// Open builds a catalog and loads the persisted collection. Load failures
// other than "nothing saved yet" are returned.
func Open(ctx context.Context, snap Snapshotter, logger *zap.Logger) (*Catalog, error) {
	c := New(snap, logger)
	if err := c.Load(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Catalog) Load(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	records, err := c.snap.Load()
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.records = make([]Record, 0, len(records))
	for _, r := range records {
		c.records = append(c.records, r.Clone())
	}
	sortByID(c.records)

	c.logger.Info("catalog loaded", zap.Int("records", len(c.records)))
	return nil
}

func (c *Catalog) persistLocked() error {
	if err := c.snap.Save(c.records); err != nil {
		c.logger.Error("failed to persist catalog", zap.Error(err))
		return fmt.Errorf("persist catalog: %w", err)
	}
	return nil
}

// Create appends a record with id len+1. Values are stored as given apart
// from ordering; blank entries are kept.
func (c *Catalog) Create(ctx context.Context, location string, authors, tags, characters []string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	rec := Record{
		ID:         ids.EntryID(len(c.records) + 1),
		Location:   location,
		Authors:    index.SortedFold(trimAll(authors)),
		Tags:       index.SortedFold(trimAll(tags)),
		Characters: index.SortedFold(trimAll(characters)),
	}

	c.records = append(c.records, rec)
	sortByID(c.records)

	if err := c.persistLocked(); err != nil {
		return Record{}, err
	}

	c.logger.Debug("record created", zap.Int("id", int(rec.ID)))
	return rec.Clone(), nil
}

// Update merges patch into the record with the given id. An unknown id
// changes nothing, but the collection is still rewritten.
func (c *Catalog) Update(ctx context.Context, id ids.EntryID, patch Patch) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if i := c.indexLocked(id); i >= 0 {
		rec := &c.records[i]
		rec.Authors = merge(rec.Authors, patch.Authors)
		rec.Tags = merge(rec.Tags, patch.Tags)
		rec.Characters = merge(rec.Characters, patch.Characters)
	} else {
		c.logger.Debug("update for unknown id ignored", zap.Int("id", int(id)))
	}

	sortByID(c.records)
	return c.persistLocked()
}

func merge(existing, incoming []string) []string {
	cleaned := nonBlank(incoming)
	if len(cleaned) == 0 {
		return existing
	}
	return index.SortedFold(index.Union(existing, cleaned))
}

func (c *Catalog) indexLocked(id ids.EntryID) int {
	for i := range c.records {
		if c.records[i].ID == id {
			return i
		}
	}
	return -1
}

func (c *Catalog) Get(id ids.EntryID) (Record, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	i := c.indexLocked(id)
	if i < 0 {
		return Record{}, false
	}
	return c.records[i].Clone(), true
}

func (c *Catalog) Exists(id ids.EntryID) bool {
	_, ok := c.Get(id)
	return ok
}

func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records)
}

// Entries returns every record in id order.
func (c *Catalog) Entries() []Record {
	return c.filter(func(Record) bool { return true })
}

// SearchByAuthor matches authors exactly, ignoring case.
func (c *Catalog) SearchByAuthor(name string) []Record {
	return c.filter(func(r Record) bool { return index.EqualFoldAny(r.Authors, name) })
}

// SearchByTag matches any tag containing substr, ignoring case.
func (c *Catalog) SearchByTag(substr string) []Record {
	return c.filter(func(r Record) bool { return index.ContainsFold(r.Tags, substr) })
}

// SearchByCharacter matches any character containing substr, ignoring case.
func (c *Catalog) SearchByCharacter(substr string) []Record {
	return c.filter(func(r Record) bool { return index.ContainsFold(r.Characters, substr) })
}

func (c *Catalog) filter(keep func(Record) bool) []Record {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := []Record{}
	for _, r := range c.records {
		if keep(r) {
			result = append(result, r.Clone())
		}
	}
	return result
}

// AllAuthors lists every distinct author string. Spellings that differ
// only in case are distinct; among them the first seen sorts first.
func (c *Catalog) AllAuthors() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	set := index.NewStringSet()
	for _, r := range c.records {
		for _, a := range r.Authors {
			set.Add(a)
		}
	}
	return index.SortedFold(set.ToSlice())
}

// TopTags returns up to n of the most used tags across the author's records.
func (c *Catalog) TopTags(author string, n int) []string {
	counts := make(map[string]int)
	var order []string
	for _, r := range c.SearchByAuthor(author) {
		for _, t := range r.Tags {
			if counts[t] == 0 {
				order = append(order, t)
			}
			counts[t]++
		}
	}

	slices.SortStableFunc(order, func(a, b string) int {
		return cmp.Compare(counts[b], counts[a])
	})
	if len(order) > n {
		order = order[:n]
	}
	return order
}

// AuthorSuggestion is one entry of the author picker.
type AuthorSuggestion struct {
	Author  string   `json:"author"`
	TopTags []string `json:"top_tags"`
}

// SuggestAuthors picks up to n random authors, each with its three most used tags.
func (c *Catalog) SuggestAuthors(rng *rand.Rand, n int) []AuthorSuggestion {
	authors := c.AllAuthors()
	rng.Shuffle(len(authors), func(i, j int) {
		authors[i], authors[j] = authors[j], authors[i]
	})
	if len(authors) > n {
		authors = authors[:n]
	}

	result := make([]AuthorSuggestion, 0, len(authors))
	for _, a := range authors {
		result = append(result, AuthorSuggestion{Author: a, TopTags: c.TopTags(a, 3)})
	}
	return result
}

func sortByID(records []Record) {
	slices.SortStableFunc(records, func(a, b Record) int {
		return cmp.Compare(a.ID, b.ID)
	})
}

func trimAll(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strings.TrimSpace(v)
	}
	return out
}

func nonBlank(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
