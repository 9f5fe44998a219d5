package ids

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// EntryID identifies a catalog record. IDs start at 1 and follow insertion order.
type EntryID int

// SessionID names one conversation with the bot.
type SessionID string

var ErrInvalidID = errors.New("invalid entry id")

// ParseEntryID parses a user-typed record id.
func ParseEntryID(text string) (EntryID, error) {
	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidID, text)
	}
	return EntryID(n), nil
}

func NewSessionID() SessionID {
	return SessionID(uuid.NewString())
}

func ParseSessionID(s string) (SessionID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return "", fmt.Errorf("parse session id: %w", err)
	}
	return SessionID(u.String()), nil
}

func (id EntryID) String() string {
	return strconv.Itoa(int(id))
}
