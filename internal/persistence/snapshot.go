package persistence

import (
	"bytes"
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/sekai02/photocat/internal/catalog"
	"github.com/sekai02/photocat/internal/ids"
	"github.com/sekai02/photocat/internal/storage"
)

// RecordsKey is the storage key holding the catalog snapshot.
const RecordsKey = "records"

// recordDoc is the on-disk shape of a record. Files written by the first
// version of the bot carry file_path instead of location.
type recordDoc struct {
	ID         ids.EntryID `json:"id"`
	Location   string      `json:"location"`
	FilePath   string      `json:"file_path,omitempty"`
	Authors    []string    `json:"authors"`
	Tags       []string    `json:"tags"`
	Characters []string    `json:"characters"`
}

func Encode(records []catalog.Record) ([]byte, error) {
	docs := make([]recordDoc, len(records))
	for i, r := range records {
		r = r.Clone()
		docs[i] = recordDoc{
			ID:         r.ID,
			Location:   r.Location,
			Authors:    r.Authors,
			Tags:       r.Tags,
			Characters: r.Characters,
		}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(docs); err != nil {
		return nil, fmt.Errorf("marshal records: %w", err)
	}
	return escapeNonASCII(bytes.TrimSuffix(buf.Bytes(), []byte("\n"))), nil
}

// escapeNonASCII rewrites DEL and every non-ASCII rune as a \uXXXX escape,
// using surrogate pairs above the BMP. Outside string literals the encoder only
// emits ASCII, so the rewrite never touches JSON structure.
func escapeNonASCII(data []byte) []byte {
	out := make([]byte, 0, len(data))
	for len(data) > 0 {
		if data[0] < 0x7f {
			out = append(out, data[0])
			data = data[1:]
			continue
		}
		r, size := utf8.DecodeRune(data)
		data = data[size:]
		if r1, r2 := utf16.EncodeRune(r); r1 != utf8.RuneError {
			out = fmt.Appendf(out, `\u%04x\u%04x`, r1, r2)
		} else {
			out = fmt.Appendf(out, `\u%04x`, r)
		}
	}
	return out
}

func Decode(data []byte) ([]catalog.Record, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return []catalog.Record{}, nil
	}

	var docs []recordDoc
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("unmarshal records: %w", err)
	}

	records := make([]catalog.Record, len(docs))
	for i, d := range docs {
		loc := d.Location
		if loc == "" {
			loc = d.FilePath
		}
		records[i] = catalog.Record{
			ID:         d.ID,
			Location:   loc,
			Authors:    d.Authors,
			Tags:       d.Tags,
			Characters: d.Characters,
		}.Clone()
	}

	slices.SortStableFunc(records, func(a, b catalog.Record) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return records, nil
}

// Snapshotter stores the encoded catalog under one key of a storage.Store.
type Snapshotter struct {
	store storage.Store
	key   string
}

func NewSnapshotter(store storage.Store, key string) *Snapshotter {
	return &Snapshotter{store: store, key: key}
}

func (s *Snapshotter) Save(records []catalog.Record) error {
	data, err := Encode(records)
	if err != nil {
		return err
	}

	if err := s.store.SaveMetadata(s.key, data); err != nil {
		return fmt.Errorf("save %s: %w", s.key, err)
	}
	return nil
}

func (s *Snapshotter) Load() ([]catalog.Record, error) {
	data, err := s.store.LoadMetadata(s.key)
	if errors.Is(err, storage.ErrNotFound) {
		return []catalog.Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", s.key, err)
	}
	return Decode(data)
}
