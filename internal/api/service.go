package api

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"

	"go.uber.org/zap"

	"github.com/sekai02/photocat/internal/catalog"
	"github.com/sekai02/photocat/internal/conversation"
	"github.com/sekai02/photocat/internal/ids"
	"github.com/sekai02/photocat/internal/metrics"
	"github.com/sekai02/photocat/internal/storage"
)

var (
	ErrRecordNotFound = errors.New("record not found")
	ErrUnknownKind    = errors.New("unknown search kind")
)

// Search kinds accepted by Service.Search.
const (
	KindAuthor    = "author"
	KindTag       = "tag"
	KindCharacter = "character"
)

type Service struct {
	catalog *catalog.Catalog
	engine  *conversation.Engine
	metrics *metrics.Collector
	store   storage.Store
	logger  *zap.Logger
}

// NewService wires the conversation engine on top of cat. collector may be nil.
func NewService(cat *catalog.Catalog, store storage.Store, collector *metrics.Collector, rng *rand.Rand, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		catalog: cat,
		engine:  conversation.NewEngine(cat, conversation.NewSessions(), rng, logger),
		metrics: collector,
		store:   store,
		logger:  logger.With(zap.String("component", "api")),
	}
	if s.metrics != nil {
		s.metrics.SetCatalogSize(cat.Len())
	}
	return s
}

func (s *Service) CreateRecord(ctx context.Context, location string, authors, tags, characters []string) (catalog.Record, error) {
	rec, err := s.catalog.Create(ctx, location, authors, tags, characters)
	if err != nil {
		return catalog.Record{}, fmt.Errorf("create record: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordCreate(s.catalog.Len())
	}
	s.logger.Info("record created", zap.Int("id", int(rec.ID)), zap.String("location", rec.Location))
	return rec, nil
}

// UpdateRecord merges patch into an existing record. Unlike the catalog it
// reports unknown ids.
func (s *Service) UpdateRecord(ctx context.Context, id uint64, patch catalog.Patch) (catalog.Record, error) {
	eid := ids.EntryID(id)
	if !s.catalog.Exists(eid) {
		return catalog.Record{}, fmt.Errorf("record %d: %w", id, ErrRecordNotFound)
	}

	if err := s.catalog.Update(ctx, eid, patch); err != nil {
		return catalog.Record{}, fmt.Errorf("update record %d: %w", id, err)
	}
	if s.metrics != nil {
		s.metrics.RecordUpdate()
	}

	rec, _ := s.catalog.Get(eid)
	return rec, nil
}

func (s *Service) GetRecord(ctx context.Context, id uint64) (catalog.Record, error) {
	rec, ok := s.catalog.Get(ids.EntryID(id))
	if !ok {
		return catalog.Record{}, fmt.Errorf("record %d: %w", id, ErrRecordNotFound)
	}
	return rec, nil
}

func (s *Service) ListRecords(ctx context.Context) ([]catalog.Record, error) {
	return s.catalog.Entries(), nil
}

func (s *Service) Search(ctx context.Context, kind, query string) ([]catalog.Record, error) {
	var results []catalog.Record
	switch kind {
	case KindAuthor:
		results = s.catalog.SearchByAuthor(query)
	case KindTag:
		results = s.catalog.SearchByTag(query)
	case KindCharacter:
		results = s.catalog.SearchByCharacter(query)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}

	if s.metrics != nil {
		s.metrics.RecordSearch(kind, len(results))
	}
	return results, nil
}

func (s *Service) Authors(ctx context.Context) ([]string, error) {
	return s.catalog.AllAuthors(), nil
}

func (s *Service) OpenSession(ctx context.Context) (ids.SessionID, error) {
	sid := s.engine.Start()
	s.logger.Debug("session opened", zap.String("session", string(sid)))
	return sid, nil
}

func (s *Service) CloseSession(ctx context.Context, sid ids.SessionID) error {
	if err := s.engine.Close(sid); err != nil {
		return err
	}
	s.logger.Debug("session closed", zap.String("session", string(sid)))
	return nil
}

func (s *Service) Input(ctx context.Context, sid ids.SessionID, in conversation.Input) (conversation.Reply, error) {
	reply, err := s.engine.Handle(ctx, sid, in)
	if err != nil {
		return conversation.Reply{}, err
	}

	if s.metrics != nil {
		s.metrics.RecordInput(string(reply.Prompt))
		if reply.Prompt == conversation.PromptPhotoAdded {
			s.metrics.RecordCreate(s.catalog.Len())
		}
		if reply.Prompt == conversation.PromptRecordUpdated {
			s.metrics.RecordUpdate()
		}
		if reply.Search != "" {
			results := 0
			if reply.Nav != nil {
				results = reply.Nav.Total
			}
			s.metrics.RecordSearch(string(reply.Search), results)
		}
	}
	return reply, nil
}

func (s *Service) Close() error {
	if s.store == nil {
		return nil
	}
	return s.store.Close()
}

// Metrics returns the collector the service reports to, or nil.
func (s *Service) Metrics() *metrics.Collector {
	return s.metrics
}
