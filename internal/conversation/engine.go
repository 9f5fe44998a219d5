package conversation

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/sekai02/photocat/internal/catalog"
	"github.com/sekai02/photocat/internal/ids"
	"github.com/sekai02/photocat/internal/pager"
)

// Catalog is the part of the record store the dialogue needs.
type Catalog interface {
	Create(ctx context.Context, location string, authors, tags, characters []string) (catalog.Record, error)
	Update(ctx context.Context, id ids.EntryID, patch catalog.Patch) error
	Get(id ids.EntryID) (catalog.Record, bool)
	Exists(id ids.EntryID) bool
	Entries() []catalog.Record
	SearchByAuthor(name string) []catalog.Record
	SearchByTag(substr string) []catalog.Record
	SearchByCharacter(substr string) []catalog.Record
	SuggestAuthors(rng *rand.Rand, n int) []catalog.AuthorSuggestion
}

const suggestedAuthors = 3

// Engine runs the dialogue. Handle calls are serialised, so the catalog sees
// a single stream of operations.
type Engine struct {
	mu       sync.Mutex
	cat      Catalog
	sessions *Sessions
	rng      *rand.Rand
	logger   *zap.Logger
}

func NewEngine(cat Catalog, sessions *Sessions, rng *rand.Rand, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Engine{
		cat:      cat,
		sessions: sessions,
		rng:      rng,
		logger:   logger.With(zap.String("component", "conversation")),
	}
}

// Start opens a new session and returns its id.
func (e *Engine) Start() ids.SessionID {
	id := ids.NewSessionID()
	e.sessions.Open(id)
	return id
}

// Close ends a session. It waits for any Handle in flight so a closed
// session is never written back.
func (e *Engine) Close(sid ids.SessionID) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.sessions.Get(sid); err != nil {
		return err
	}
	e.sessions.Close(sid)
	return nil
}

func (e *Engine) Handle(ctx context.Context, sid ids.SessionID, in Input) (Reply, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	sess, err := e.sessions.Get(sid)
	if err != nil {
		return Reply{}, err
	}

	next, reply, err := e.step(ctx, sess, in)
	if err != nil {
		return Reply{}, err
	}
	e.sessions.Put(next)
	reply.State = next.State

	if next.State != sess.State {
		e.logger.Debug("state transition",
			zap.String("session", string(sid)),
			zap.Stringer("from", sess.State),
			zap.Stringer("to", next.State))
	}
	return reply, nil
}

// step computes one transition. It only touches the catalog, never the
// session registry.
func (e *Engine) step(ctx context.Context, s Session, in Input) (Session, Reply, error) {
	switch {
	case in.Callback != "":
		return e.navigate(s, in.Callback)
	case in.SelectAuthor != "":
		if s.State == SearchAuthor {
			s.State = Idle
		}
		return e.search(s, pager.ScopeAuthor, in.SelectAuthor)
	case in.Photo != nil:
		return e.onPhoto(s, *in.Photo)
	}

	if cmd, ok := command(in.Text); ok {
		return e.onCommand(ctx, s, cmd)
	}
	return e.onText(ctx, s, in.Text)
}

func command(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", false
	}
	name := strings.Fields(text)[0]
	if at := strings.IndexByte(name, '@'); at >= 0 {
		name = name[:at]
	}
	return name, true
}

func (e *Engine) onCommand(ctx context.Context, s Session, cmd string) (Session, Reply, error) {
	switch cmd {
	case "/start":
		return s, Reply{Prompt: PromptWelcome}, nil
	case "/help":
		return s, Reply{Prompt: PromptHelp}, nil
	case "/cancel":
		return reset(s), Reply{Prompt: PromptCancelled}, nil
	case "/add":
		s = reset(s)
		s.State = AddPhoto
		return s, Reply{Prompt: PromptSendPhoto}, nil
	case "/update":
		s = reset(s)
		s.State = UpdateID
		return s, Reply{Prompt: PromptEnterID}, nil
	case "/search_author":
		s = reset(s)
		suggestions := e.cat.SuggestAuthors(e.rng, suggestedAuthors)
		if len(suggestions) == 0 {
			return s, Reply{Prompt: PromptNoAuthors}, nil
		}
		s.State = SearchAuthor
		return s, Reply{Prompt: PromptChooseAuthor, Suggestions: suggestions}, nil
	case "/search_tag":
		s = reset(s)
		s.State = SearchTag
		return s, Reply{Prompt: PromptEnterTag}, nil
	case "/search_character":
		s = reset(s)
		s.State = SearchCharacter
		return s, Reply{Prompt: PromptEnterCharacter}, nil
	case "/display":
		s = reset(s)
		return e.show(s, pager.ScopeDisplay, "", e.cat.Entries(), PromptEmptyCatalog)
	case "/skip":
		switch s.State {
		case UpdateAuthors, UpdateTags, UpdateCharacters:
			return e.onUpdateField(ctx, s, nil)
		}
	}

	if s.State == Idle {
		return s, Reply{Prompt: PromptUnknownCommand}, nil
	}
	return s, Reply{Prompt: PromptExpectText}, nil
}

func (e *Engine) onPhoto(s Session, p Photo) (Session, Reply, error) {
	switch s.State {
	case AddPhoto:
		s.Draft.Location = p.Location
		s.State = AddAuthors
		return s, Reply{Prompt: PromptEnterAuthors}, nil
	case Idle:
		return s, Reply{Prompt: PromptHelp}, nil
	}
	return s, Reply{Prompt: PromptExpectText}, nil
}

func (e *Engine) onText(ctx context.Context, s Session, text string) (Session, Reply, error) {
	switch s.State {
	case AddPhoto:
		return s, Reply{Prompt: PromptPhotoRequired}, nil
	case AddAuthors:
		s.Draft.Authors = splitList(text)
		s.State = AddTags
		return s, Reply{Prompt: PromptEnterTags}, nil
	case AddTags:
		s.Draft.Tags = splitList(text)
		s.State = AddCharacters
		return s, Reply{Prompt: PromptEnterCharacters}, nil
	case AddCharacters:
		s.Draft.Characters = splitList(text)
		rec, err := e.cat.Create(ctx, s.Draft.Location, s.Draft.Authors, s.Draft.Tags, s.Draft.Characters)
		if err != nil {
			return s, Reply{}, fmt.Errorf("add photo: %w", err)
		}
		return reset(s), Reply{Prompt: PromptPhotoAdded, Record: &rec}, nil
	case UpdateID:
		id, err := ids.ParseEntryID(text)
		if err != nil {
			return s, Reply{Prompt: PromptNumericID}, nil
		}
		if !e.cat.Exists(id) {
			return s, Reply{Prompt: PromptUnknownID, Query: text}, nil
		}
		s.Draft.TargetID = id
		s.State = UpdateAuthors
		return s, Reply{Prompt: PromptEnterNewAuthors}, nil
	case UpdateAuthors, UpdateTags, UpdateCharacters:
		return e.onUpdateField(ctx, s, nonBlank(splitList(text)))
	case SearchAuthor:
		s.State = Idle
		return e.search(s, pager.ScopeAuthor, text)
	case SearchTag:
		s.State = Idle
		return e.search(s, pager.ScopeTag, text)
	case SearchCharacter:
		s.State = Idle
		return e.search(s, pager.ScopeCharacter, text)
	}
	return s, Reply{Prompt: PromptHelp}, nil
}

// onUpdateField stores values for the current update step; nil means skipped.
func (e *Engine) onUpdateField(ctx context.Context, s Session, values []string) (Session, Reply, error) {
	switch s.State {
	case UpdateAuthors:
		s.Draft.Authors = values
		s.State = UpdateTags
		return s, Reply{Prompt: PromptEnterNewTags}, nil
	case UpdateTags:
		s.Draft.Tags = values
		s.State = UpdateCharacters
		return s, Reply{Prompt: PromptEnterNewChars}, nil
	}

	s.Draft.Characters = values
	patch := catalog.Patch{Authors: s.Draft.Authors, Tags: s.Draft.Tags, Characters: s.Draft.Characters}
	if err := e.cat.Update(ctx, s.Draft.TargetID, patch); err != nil {
		return s, Reply{}, fmt.Errorf("update record %d: %w", s.Draft.TargetID, err)
	}

	reply := Reply{Prompt: PromptRecordUpdated}
	if rec, ok := e.cat.Get(s.Draft.TargetID); ok {
		reply.Record = &rec
	}
	return reset(s), reply, nil
}

func (e *Engine) search(s Session, scope pager.Scope, query string) (Session, Reply, error) {
	var results []catalog.Record
	switch scope {
	case pager.ScopeAuthor:
		results = e.cat.SearchByAuthor(query)
	case pager.ScopeTag:
		results = e.cat.SearchByTag(query)
	case pager.ScopeCharacter:
		results = e.cat.SearchByCharacter(query)
	}
	return e.show(s, scope, query, results, PromptNoResults)
}

// show opens a cursor over results and replies with the first record.
// Replies to a search carry its scope in Search.
func (e *Engine) show(s Session, scope pager.Scope, query string, results []catalog.Record, empty Prompt) (Session, Reply, error) {
	cur, err := pager.New(scope, results)
	if errors.Is(err, pager.ErrNoResults) {
		return s, Reply{Prompt: empty, Query: query, Search: scope}, nil
	}
	if err != nil {
		return s, Reply{}, err
	}
	*s.cursor(scope) = cur

	reply := resultReply(cur, query)
	reply.Search = scope
	return s, reply, nil
}

func (e *Engine) navigate(s Session, payload string) (Session, Reply, error) {
	action, err := pager.ParseAction(payload)
	if err != nil {
		return s, Reply{Prompt: PromptBadNavigation}, nil
	}
	cur := *s.cursor(action.Scope)
	if _, err := pager.Apply(cur, action); err != nil {
		return s, Reply{Prompt: PromptListUnavailable}, nil
	}
	return s, resultReply(cur, ""), nil
}

func resultReply(cur *pager.Cursor, query string) Reply {
	rec := cur.Current()
	nav := cur.Nav()
	return Reply{
		Prompt:  PromptResult,
		Query:   query,
		Record:  &rec,
		Nav:     &nav,
		Actions: cur.Actions(),
	}
}

// reset ends the current flow. Result cursors survive so earlier listings
// can still be paged.
func reset(s Session) Session {
	return Session{ID: s.ID, State: Idle, Display: s.Display, Search: s.Search}
}

func splitList(text string) []string {
	parts := strings.Split(text, ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}

func nonBlank(values []string) []string {
	var out []string
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
