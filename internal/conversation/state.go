package conversation

import (
	"github.com/sekai02/photocat/internal/catalog"
	"github.com/sekai02/photocat/internal/ids"
	"github.com/sekai02/photocat/internal/pager"
)

type State int

const (
	Idle State = iota
	AddPhoto
	AddAuthors
	AddTags
	AddCharacters
	UpdateID
	UpdateAuthors
	UpdateTags
	UpdateCharacters
	SearchAuthor
	SearchTag
	SearchCharacter
)

var stateNames = [...]string{
	Idle:             "idle",
	AddPhoto:         "add_photo",
	AddAuthors:       "add_authors",
	AddTags:          "add_tags",
	AddCharacters:    "add_characters",
	UpdateID:         "update_id",
	UpdateAuthors:    "update_authors",
	UpdateTags:       "update_tags",
	UpdateCharacters: "update_characters",
	SearchAuthor:     "search_author",
	SearchTag:        "search_tag",
	SearchCharacter:  "search_character",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Prompt names the message the front end should show. Rendering it is the
// transport's job.
type Prompt string

const (
	PromptWelcome         Prompt = "welcome"
	PromptHelp            Prompt = "help"
	PromptUnknownCommand  Prompt = "unknown_command"
	PromptExpectText      Prompt = "expect_text"
	PromptCancelled       Prompt = "cancelled"
	PromptSendPhoto       Prompt = "send_photo"
	PromptPhotoRequired   Prompt = "photo_required"
	PromptEnterAuthors    Prompt = "enter_authors"
	PromptEnterTags       Prompt = "enter_tags"
	PromptEnterCharacters Prompt = "enter_characters"
	PromptPhotoAdded      Prompt = "photo_added"
	PromptEnterID         Prompt = "enter_id"
	PromptNumericID       Prompt = "numeric_id_required"
	PromptUnknownID       Prompt = "unknown_id"
	PromptEnterNewAuthors Prompt = "enter_new_authors"
	PromptEnterNewTags    Prompt = "enter_new_tags"
	PromptEnterNewChars   Prompt = "enter_new_characters"
	PromptRecordUpdated   Prompt = "record_updated"
	PromptChooseAuthor    Prompt = "choose_author"
	PromptNoAuthors       Prompt = "no_authors"
	PromptEnterTag        Prompt = "enter_tag"
	PromptEnterCharacter  Prompt = "enter_character"
	PromptResult          Prompt = "result"
	PromptNoResults       Prompt = "no_results"
	PromptEmptyCatalog    Prompt = "empty_catalog"
	PromptListUnavailable Prompt = "list_unavailable"
	PromptBadNavigation   Prompt = "bad_navigation"
)

// Photo references stored photo content. The engine never reads it.
type Photo struct {
	Location string `json:"location"`
}

// Input is one user event. Exactly one field is expected to be set.
type Input struct {
	Text         string `json:"text,omitempty"`
	Photo        *Photo `json:"photo,omitempty"`
	SelectAuthor string `json:"select_author,omitempty"`
	Callback     string `json:"callback,omitempty"`
}

type Reply struct {
	Prompt      Prompt                     `json:"prompt"`
	State       State                      `json:"state"`
	Query       string                     `json:"query,omitempty"`
	Search      pager.Scope                `json:"search,omitempty"`
	Record      *catalog.Record            `json:"record,omitempty"`
	Nav         *pager.Nav                 `json:"nav,omitempty"`
	Actions     []string                   `json:"actions,omitempty"`
	Suggestions []catalog.AuthorSuggestion `json:"suggestions,omitempty"`
}

// Draft holds values collected so far in an add or update flow.
type Draft struct {
	Location   string
	TargetID   ids.EntryID
	Authors    []string
	Tags       []string
	Characters []string
}

// Session is the full conversation state of one user. The /display
// listing and the latest search page independently.
type Session struct {
	ID      ids.SessionID
	State   State
	Draft   Draft
	Display *pager.Cursor
	Search  *pager.Cursor
}

// cursor returns the slot holding listings of the given scope.
func (s *Session) cursor(scope pager.Scope) **pager.Cursor {
	if scope == pager.ScopeDisplay {
		return &s.Display
	}
	return &s.Search
}
