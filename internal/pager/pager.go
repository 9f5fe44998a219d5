package pager

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/sekai02/photocat/internal/catalog"
)

var (
	ErrNoResults   = errors.New("no results to page through")
	ErrStaleCursor = errors.New("result list is no longer available")
	ErrBadAction   = errors.New("malformed navigation action")
)

// Scope tells which listing a cursor belongs to. It prefixes callback payloads.
type Scope string

const (
	ScopeDisplay   Scope = ""
	ScopeAuthor    Scope = "author"
	ScopeTag       Scope = "tag"
	ScopeCharacter Scope = "character"
)

type Direction int

const (
	Prev Direction = iota
	Next
)

func (d Direction) String() string {
	if d == Prev {
		return "prev"
	}
	return "next"
}

// Cursor walks a fixed list of results one record at a time.
type Cursor struct {
	Scope   Scope
	Results []catalog.Record
	Index   int
}

// Nav describes which navigation controls apply at the current position.
type Nav struct {
	Scope   Scope `json:"scope"`
	Index   int   `json:"index"`
	Total   int   `json:"total"`
	HasPrev bool  `json:"has_prev"`
	HasNext bool  `json:"has_next"`
}

func New(scope Scope, results []catalog.Record) (*Cursor, error) {
	if len(results) == 0 {
		return nil, ErrNoResults
	}
	return &Cursor{Scope: scope, Results: results}, nil
}

func (c *Cursor) Current() catalog.Record {
	return c.Results[c.Index]
}

// Move steps one position, clamped to the ends of the list.
func (c *Cursor) Move(d Direction) catalog.Record {
	switch d {
	case Prev:
		c.Index = max(0, c.Index-1)
	case Next:
		c.Index = min(len(c.Results)-1, c.Index+1)
	}
	return c.Current()
}

func (c *Cursor) Nav() Nav {
	return Nav{
		Scope:   c.Scope,
		Index:   c.Index,
		Total:   len(c.Results),
		HasPrev: c.Index > 0,
		HasNext: c.Index < len(c.Results)-1,
	}
}

// Actions returns the callback payloads for the controls shown at the
// current position.
func (c *Cursor) Actions() []string {
	nav := c.Nav()
	var out []string
	if nav.HasPrev {
		out = append(out, EncodeAction(c.Scope, Prev, c.Index))
	}
	if nav.HasNext {
		out = append(out, EncodeAction(c.Scope, Next, c.Index))
	}
	return out
}

// Action is a decoded navigation callback such as "tagnext_3".
type Action struct {
	Scope     Scope
	Direction Direction
	From      int
}

func EncodeAction(scope Scope, d Direction, from int) string {
	return fmt.Sprintf("%s%s_%d", scope, d, from)
}

func ParseAction(payload string) (Action, error) {
	head, tail, ok := strings.Cut(payload, "_")
	if !ok {
		return Action{}, fmt.Errorf("%w: %q", ErrBadAction, payload)
	}

	from, err := strconv.Atoi(tail)
	if err != nil {
		return Action{}, fmt.Errorf("%w: %q", ErrBadAction, payload)
	}

	var a Action
	a.From = from
	switch {
	case strings.HasSuffix(head, "prev"):
		a.Direction = Prev
		head = strings.TrimSuffix(head, "prev")
	case strings.HasSuffix(head, "next"):
		a.Direction = Next
		head = strings.TrimSuffix(head, "next")
	default:
		return Action{}, fmt.Errorf("%w: %q", ErrBadAction, payload)
	}

	switch s := Scope(head); s {
	case ScopeDisplay, ScopeAuthor, ScopeTag, ScopeCharacter:
		a.Scope = s
	default:
		return Action{}, fmt.Errorf("%w: unknown scope %q", ErrBadAction, head)
	}
	return a, nil
}

// Apply moves the cursor for a decoded action. A nil cursor or one from a
// different listing yields ErrStaleCursor.
func Apply(c *Cursor, a Action) (catalog.Record, error) {
	if c == nil || c.Scope != a.Scope {
		return catalog.Record{}, ErrStaleCursor
	}
	return c.Move(a.Direction), nil
}
