// Package photocat describes the public surface of the photo catalog
// service.
package photocat

import (
	"context"

	"github.com/sekai02/photocat/internal/catalog"
	"github.com/sekai02/photocat/internal/conversation"
	"github.com/sekai02/photocat/internal/ids"
)

type (
	Record = catalog.Record
	Patch  = catalog.Patch
	Input  = conversation.Input
	Reply  = conversation.Reply
)

type RecordAPI interface {
	CreateRecord(ctx context.Context, location string, authors, tags, characters []string) (Record, error)
	UpdateRecord(ctx context.Context, id uint64, patch Patch) (Record, error)
	GetRecord(ctx context.Context, id uint64) (Record, error)
	ListRecords(ctx context.Context) ([]Record, error)
	Search(ctx context.Context, kind, query string) ([]Record, error)
	Authors(ctx context.Context) ([]string, error)
}

type ConversationAPI interface {
	OpenSession(ctx context.Context) (ids.SessionID, error)
	CloseSession(ctx context.Context, sid ids.SessionID) error
	Input(ctx context.Context, sid ids.SessionID, in Input) (Reply, error)
}

type API interface {
	RecordAPI
	ConversationAPI
}
