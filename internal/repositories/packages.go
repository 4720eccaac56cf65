package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/amawa/backend/internal/models"
)

// PackageRepository provides access to filter packages and plan mappings
type PackageRepository struct {
	db *gorm.DB
}

// NewPackageRepository creates a new package repository
func NewPackageRepository(db *gorm.DB) *PackageRepository {
	return &PackageRepository{db: db}
}

// CreatePackage creates a new filter package with its items
func (r *PackageRepository) CreatePackage(ctx context.Context, pkg *models.FilterPackage) error {
	return r.db.WithContext(ctx).Create(pkg).Error
}

// GetPackageByID gets a package with items and filters preloaded
func (r *PackageRepository) GetPackageByID(ctx context.Context, id uuid.UUID) (*models.FilterPackage, error) {
	var pkg models.FilterPackage
	err := r.db.WithContext(ctx).
		Preload("Items.Filter").
		First(&pkg, "id = ?", id).Error
	if err != nil {
		return nil, errors.Wrap(translate(err), "failed to get package")
	}
	return &pkg, nil
}

// ListPackages lists all packages with items preloaded
func (r *PackageRepository) ListPackages(ctx context.Context) ([]models.FilterPackage, error) {
	var pkgs []models.FilterPackage
	err := r.db.WithContext(ctx).
		Preload("Items.Filter").
		Order("name").
		Find(&pkgs).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list packages")
	}
	return pkgs, nil
}

// ListMappings lists all plan/package mappings with packages preloaded
func (r *PackageRepository) ListMappings(ctx context.Context) ([]models.PlanPackageMapping, error) {
	var mappings []models.PlanPackageMapping
	err := r.db.WithContext(ctx).
		Preload("Package.Items.Filter").
		Order("plan_code, maintenance_cycle").
		Find(&mappings).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list mappings")
	}
	return mappings, nil
}

// CreateMapping creates a new plan/package mapping
func (r *PackageRepository) CreateMapping(ctx context.Context, mapping *models.PlanPackageMapping) error {
	err := r.db.WithContext(ctx).Create(mapping).Error
	if err != nil {
		return errors.Wrap(translate(err), "failed to create mapping")
	}
	return nil
}

// DeleteMapping removes a plan/package mapping
func (r *PackageRepository) DeleteMapping(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.PlanPackageMapping{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
