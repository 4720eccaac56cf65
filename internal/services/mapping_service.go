package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/amawa/backend/internal/cache"
	"github.com/amawa/backend/internal/cycle"
	"github.com/amawa/backend/internal/models"
	"github.com/amawa/backend/internal/repositories"
)

// MappingService serves the plan/package mapping table. The table is cached
// with a TTL and invalidated explicitly on every mutation, so staleness is
// bounded by configuration rather than process lifetime.
type MappingService struct {
	repo  *repositories.PackageRepository
	cache *cache.RedisCache
	ttl   time.Duration
}

// NewMappingService creates a new mapping service
func NewMappingService(db *gorm.DB, redisCache *cache.RedisCache, ttl time.Duration) *MappingService {
	return &MappingService{
		repo:  repositories.NewPackageRepository(db),
		cache: redisCache,
		ttl:   ttl,
	}
}

// List returns all plan/package mappings, served from cache when possible
func (s *MappingService) List(ctx context.Context) ([]models.PlanPackageMapping, error) {
	var mappings []models.PlanPackageMapping
	if err := s.cache.Get(ctx, cache.MappingTableKey, &mappings); err == nil {
		return mappings, nil
	}

	mappings, err := s.repo.ListMappings(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, cache.MappingTableKey, mappings, s.ttl); err != nil {
		log.Warn().Err(err).Msg("Failed to cache mapping table")
	}

	return mappings, nil
}

// Table returns the mappings indexed for cycle resolution
func (s *MappingService) Table(ctx context.Context) (cycle.MappingTable, error) {
	mappings, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return cycle.BuildMappingTable(mappings), nil
}

// Create adds a mapping and invalidates the cached table
func (s *MappingService) Create(ctx context.Context, mapping *models.PlanPackageMapping) error {
	if err := s.repo.CreateMapping(ctx, mapping); err != nil {
		return err
	}
	return s.Invalidate(ctx)
}

// Delete removes a mapping and invalidates the cached table
func (s *MappingService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.DeleteMapping(ctx, id); err != nil {
		return err
	}
	return s.Invalidate(ctx)
}

// Invalidate drops the cached table so the next read refreshes from the
// database
func (s *MappingService) Invalidate(ctx context.Context) error {
	if err := s.cache.Delete(ctx, cache.MappingTableKey); err != nil {
		log.Warn().Err(err).Msg("Failed to invalidate mapping table cache")
		return err
	}
	return nil
}

// ListPackages lists all filter packages
func (s *MappingService) ListPackages(ctx context.Context) ([]models.FilterPackage, error) {
	return s.repo.ListPackages(ctx)
}

// CreatePackage creates a filter package with its items
func (s *MappingService) CreatePackage(ctx context.Context, pkg *models.FilterPackage) error {
	return s.repo.CreatePackage(ctx, pkg)
}
