package services

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"

	"github.com/auditportal/auditportal/internal/catalog"
	"github.com/auditportal/auditportal/internal/events"
	"github.com/auditportal/auditportal/internal/logging"
	"github.com/auditportal/auditportal/internal/models"
)

// CatalogSource provides the two catalog feeds. *api.Client implements it.
type CatalogSource interface {
	ListCategories(ctx context.Context) ([]models.CategoryRecord, error)
	ListFiles(ctx context.Context, username string) ([]models.FileRecord, error)
}

// CatalogService loads categories and files and reconciles them.
type CatalogService struct {
	source     CatalogSource
	eventBus   *events.EventBus
	logger     *logging.Logger
	lang       language.Tag
	generation atomic.Uint64
}

// NewCatalogService creates a service reading from source. eventBus and
// logger may be nil.
func NewCatalogService(source CatalogSource, eventBus *events.EventBus, logger *logging.Logger, lang language.Tag) *CatalogService {
	if logger == nil {
		logger = logging.Nop()
	}
	return &CatalogService{
		source:   source,
		eventBus: eventBus,
		logger:   logger.Named("catalog"),
		lang:     lang,
	}
}

// NextGeneration reserves a generation number for a new load.
func (s *CatalogService) NextGeneration() uint64 {
	return s.generation.Add(1)
}

// Load fetches both feeds under a fresh generation.
func (s *CatalogService) Load(ctx context.Context, username string) *Loaded {
	return s.LoadGeneration(ctx, s.NextGeneration(), username)
}

// LoadGeneration fetches both feeds concurrently and waits for both. It
// never fails: a feed that errors contributes what it could read (usually
// nothing) and keeps its error in the Result.
func (s *CatalogService) LoadGeneration(ctx context.Context, generation uint64, username string) *Loaded {
	s.eventBus.PublishCatalog(events.EventCatalogLoading, generation, 0, 0, nil)

	out := &Loaded{Generation: generation}
	var g errgroup.Group
	g.Go(func() error {
		items, err := s.source.ListCategories(ctx)
		out.Categories = Result[models.CategoryRecord]{Items: nonNil(items), Err: err}
		return nil
	})
	g.Go(func() error {
		items, err := s.source.ListFiles(ctx, username)
		out.Files = Result[models.FileRecord]{Items: nonNil(items), Err: err}
		return nil
	})
	_ = g.Wait()

	for _, feed := range []struct {
		name  string
		items int
		err   error
	}{
		{"categories", len(out.Categories.Items), out.Categories.Err},
		{"files", len(out.Files.Items), out.Files.Err},
	} {
		if feed.err != nil {
			s.logger.Warn().Err(feed.err).
				Str("feed", feed.name).
				Uint64("generation", generation).
				Int("items", feed.items).
				Msg("feed degraded")
		}
	}

	out.Snapshot = catalog.Reconcile(
		catalog.NormalizeAll(out.Categories.Items),
		catalog.FromRecords(out.Files.Items),
		catalog.WithLanguage(s.lang),
	)

	s.logger.Debug().
		Uint64("generation", generation).
		Int("categories", len(out.Snapshot.Names)).
		Int("files", len(out.Snapshot.Files)).
		Msg("catalog loaded")
	s.eventBus.PublishCatalog(events.EventCatalogLoaded, generation,
		len(out.Snapshot.Names), len(out.Snapshot.Files), out.Degraded())
	return out
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
