// Package services – CatalogService
//
// CatalogService exposes the read-only service catalog and keyword search
// over it. The search index is rebuilt lazily from the catalog table the
// first time it is needed; catalog rows are reference data seeded once, so
// the index never goes stale while the process runs.
package services

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/service-connect/internal/domain"
	"github.com/tbourn/service-connect/internal/repo"
	"github.com/tbourn/service-connect/internal/search"
)

// maxIndexedServices caps the in-memory search index.
const maxIndexedServices = 5000

// SearchHit is one ranked catalog match.
type SearchHit struct {
	Service domain.Service `json:"service"`
	Score   float64        `json:"score"`
}

// CatalogService lists, fetches and searches catalog entries.
type CatalogService struct {
	DB *gorm.DB

	once  sync.Once
	index search.Index
	byID  map[string]domain.Service
	err   error
}

// NewCatalogService constructs a CatalogService.
func NewCatalogService(db *gorm.DB) *CatalogService {
	return &CatalogService{DB: db}
}

// List returns the catalog filtered by category. An empty category or
// "All" returns every service.
func (s *CatalogService) List(ctx context.Context, category string) ([]domain.Service, error) {
	ctx, span := otel.Tracer("services/CatalogService").Start(ctx, "List",
		trace.WithAttributes(attribute.String("category", category)))
	defer span.End()

	out, err := repo.ListServices(ctx, s.DB, strings.TrimSpace(category))
	if err != nil {
		return nil, storageErr("catalog.list", err)
	}
	return out, nil
}

// Categories returns the distinct categories, sorted.
func (s *CatalogService) Categories(ctx context.Context) ([]string, error) {
	out, err := repo.ListCategories(ctx, s.DB)
	if err != nil {
		return nil, storageErr("catalog.categories", err)
	}
	return out, nil
}

// Get returns the service with id, or a NotFound error.
func (s *CatalogService) Get(ctx context.Context, id uint) (*domain.Service, error) {
	svc, err := repo.GetService(ctx, s.DB, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, notFoundErr("service not found")
	}
	if err != nil {
		return nil, storageErr("catalog.get", err)
	}
	return svc, nil
}

// Search ranks catalog entries against query by token overlap over name,
// category and description. k <= 0 defaults to 5.
func (s *CatalogService) Search(ctx context.Context, query string, k int) ([]SearchHit, error) {
	ctx, span := otel.Tracer("services/CatalogService").Start(ctx, "Search",
		trace.WithAttributes(attribute.String("query", query), attribute.Int("k", k)))
	defer span.End()

	if strings.TrimSpace(query) == "" {
		return nil, validationErr("query is required", nil)
	}
	if k <= 0 {
		k = 5
	}
	s.once.Do(func() { s.err = s.buildIndex(ctx) })
	if s.err != nil {
		return nil, storageErr("catalog.search.index", s.err)
	}

	results := s.index.TopK(query, k)
	hits := make([]SearchHit, 0, len(results))
	for _, r := range results {
		if svc, ok := s.byID[r.ID]; ok {
			hits = append(hits, SearchHit{Service: svc, Score: r.Score})
		}
	}
	span.SetAttributes(attribute.Int("hits", len(hits)))
	return hits, nil
}

func (s *CatalogService) buildIndex(ctx context.Context) error {
	all, err := repo.ListServices(ctx, s.DB, "")
	if err != nil {
		return err
	}
	docs := make([]search.Document, 0, len(all))
	s.byID = make(map[string]domain.Service, len(all))
	for _, svc := range all {
		id := strconv.FormatUint(uint64(svc.ID), 10)
		s.byID[id] = svc
		docs = append(docs, search.Document{
			ID:   id,
			Text: svc.Name + " " + svc.Category + " " + svc.Description,
		})
	}
	s.index = search.NewIndex(docs,
		search.WithStopwords(search.DefaultStopwords),
		search.WithMaxDocs(maxIndexedServices),
	)
	return nil
}

// Seed inserts services into an empty catalog.
func (s *CatalogService) Seed(ctx context.Context, services []domain.Service) (int, error) {
	for _, svc := range services {
		if svc.Price.IsNegative() {
			return 0, validationErr("service price must not be negative", nil)
		}
	}
	n, err := repo.SeedServices(ctx, s.DB, services)
	if err != nil {
		return 0, storageErr("catalog.seed", err)
	}
	return n, nil
}
