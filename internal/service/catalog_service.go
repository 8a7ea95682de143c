package service

import (
	"context"

	"inmomarket/internal/cache"
	"inmomarket/internal/models"
	"inmomarket/internal/repository"
)

// CatalogService exposes the shared property type and location registries.
type CatalogService struct {
	store repository.Store
}

func NewCatalogService(store repository.Store) *CatalogService {
	return &CatalogService{store: store}
}

func (s *CatalogService) PropertyTypes(ctx context.Context) ([]models.PropertyType, error) {
	var types []models.PropertyType
	err := cache.Aside(ctx, cache.PropertyTypesKey, &types, cache.CatalogTTL, func() error {
		var err error
		types, err = s.store.Registry().ListPropertyTypes(ctx)
		return storageError(err)
	})
	if err != nil {
		return nil, err
	}
	return nonNil(types), nil
}

func (s *CatalogService) Locations(ctx context.Context) ([]models.Location, error) {
	locs, err := s.store.Registry().ListLocations(ctx)
	if err != nil {
		return nil, storageError(err)
	}
	return nonNil(locs), nil
}
