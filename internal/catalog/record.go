package catalog

import (
	"slices"

	"github.com/sekai02/photocat/internal/ids"
)

// Record is one catalog entry: a photo reference plus its metadata sets.
type Record struct {
	ID         ids.EntryID `json:"id"`
	Location   string      `json:"location"`
	Authors    []string    `json:"authors"`
	Tags       []string    `json:"tags"`
	Characters []string    `json:"characters"`
}

// Clone returns a deep copy; nil sets come back as empty slices.
func (r Record) Clone() Record {
	return Record{
		ID:         r.ID,
		Location:   r.Location,
		Authors:    cloneSet(r.Authors),
		Tags:       cloneSet(r.Tags),
		Characters: cloneSet(r.Characters),
	}
}

func cloneSet(values []string) []string {
	if values == nil {
		return []string{}
	}
	return slices.Clone(values)
}

// Patch carries the values an update merges into a record. Empty fields are left alone.
type Patch struct {
	Authors    []string
	Tags       []string
	Characters []string
}
