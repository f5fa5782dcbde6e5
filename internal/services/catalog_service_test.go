package services

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbourn/service-connect/internal/domain"
	"github.com/tbourn/service-connect/internal/repo"
)

func seededCatalog(t *testing.T) *CatalogService {
	t.Helper()
	s := NewCatalogService(newServiceDB(t))
	n, err := s.Seed(ctxT(), repo.DefaultCatalog())
	require.NoError(t, err)
	require.Equal(t, 10, n)
	return s
}

func TestCatalog_ListAndCategories(t *testing.T) {
	s := seededCatalog(t)

	all, err := s.List(ctxT(), "")
	require.NoError(t, err)
	assert.Len(t, all, 10)

	same, err := s.List(ctxT(), "All")
	require.NoError(t, err)
	assert.Len(t, same, 10)

	home, err := s.List(ctxT(), "home")
	require.NoError(t, err)
	assert.Len(t, home, 4)
	for _, svc := range home {
		assert.Equal(t, "Home", svc.Category)
	}

	cats, err := s.Categories(ctxT())
	require.NoError(t, err)
	assert.Equal(t, []string{"Auto", "Home", "Maintenance", "Tech"}, cats)
}

func TestCatalog_Get(t *testing.T) {
	s := seededCatalog(t)
	svc, err := s.Get(ctxT(), 1)
	require.NoError(t, err)
	assert.Equal(t, "House Cleaning", svc.Name)
	assert.True(t, svc.Price.Equal(decimal.NewFromInt(50)))

	_, err = s.Get(ctxT(), 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCatalog_Search(t *testing.T) {
	s := seededCatalog(t)

	hits, err := s.Search(ctxT(), "fix my LEAKS", 3)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, "Plumbing Repair", hits[0].Service.Name)
	assert.Greater(t, hits[0].Score, 0.0)

	hits, err = s.Search(ctxT(), "cleaning", 0)
	require.NoError(t, err)
	names := make([]string, len(hits))
	for i, h := range hits {
		names[i] = h.Service.Name
	}
	assert.ElementsMatch(t, []string{"House Cleaning", "Carpet Cleaning"}, names)

	hits, err = s.Search(ctxT(), "zzz", 3)
	require.NoError(t, err)
	assert.Empty(t, hits)

	_, err = s.Search(ctxT(), "  ", 3)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCatalog_SeedRejectsNegativePriceAndIsOnce(t *testing.T) {
	s := seededCatalog(t)
	n, err := s.Seed(ctxT(), repo.DefaultCatalog())
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = s.Seed(ctxT(), []domain.Service{{Name: "Bad", Category: "Home", Price: decimal.NewFromInt(-1)}})
	assert.ErrorIs(t, err, ErrValidation)
}
