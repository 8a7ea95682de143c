package repository

import (
	"context"

	"inmomarket/internal/models"
	"inmomarket/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RegistryRepository owns the shared PropertyType and Location records.
// Rows are never updated or deleted; unused ones simply accumulate.
type RegistryRepository interface {
	FindOrCreatePropertyType(ctx context.Context, name string) (*models.PropertyType, error)
	FindOrCreateLocation(ctx context.Context, loc models.Location) (*models.Location, error)
	GetLocation(ctx context.Context, id uint) (*models.Location, error)
	ListPropertyTypes(ctx context.Context) ([]models.PropertyType, error)
	ListLocations(ctx context.Context) ([]models.Location, error)
}

type registryRepository struct {
	db *gorm.DB
}

func NewRegistryRepository(db *gorm.DB) RegistryRepository {
	return &registryRepository{db: db}
}

// FindOrCreatePropertyType inserts the name unless it exists, then reads the row back.
// The insert ignores unique conflicts, so concurrent first use of a name yields one row.
func (r *registryRepository) FindOrCreatePropertyType(ctx context.Context, name string) (*models.PropertyType, error) {
	defer observability.TrackQuery("upsert", "property_types")()
	db := r.db.WithContext(ctx)
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&models.PropertyType{Name: name}).Error; err != nil {
		return nil, err
	}
	var pt models.PropertyType
	if err := db.Where("name = ?", name).First(&pt).Error; err != nil {
		return nil, err
	}
	return &pt, nil
}

// FindOrCreateLocation does the same for the exact (department, municipality, neighborhood) tuple.
func (r *registryRepository) FindOrCreateLocation(ctx context.Context, loc models.Location) (*models.Location, error) {
	defer observability.TrackQuery("upsert", "locations")()
	db := r.db.WithContext(ctx)
	candidate := models.Location{
		Department:   loc.Department,
		Municipality: loc.Municipality,
		Neighborhood: loc.Neighborhood,
	}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&candidate).Error; err != nil {
		return nil, err
	}
	var out models.Location
	err := db.Where("department = ? AND municipality = ? AND neighborhood = ?",
		loc.Department, loc.Municipality, loc.Neighborhood).First(&out).Error
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *registryRepository) GetLocation(ctx context.Context, id uint) (*models.Location, error) {
	defer observability.TrackQuery("select", "locations")()
	var loc models.Location
	if err := r.db.WithContext(ctx).First(&loc, id).Error; err != nil {
		return nil, err
	}
	return &loc, nil
}

func (r *registryRepository) ListPropertyTypes(ctx context.Context) ([]models.PropertyType, error) {
	defer observability.TrackQuery("select", "property_types")()
	var out []models.PropertyType
	err := r.db.WithContext(ctx).Order("name ASC").Find(&out).Error
	return out, err
}

func (r *registryRepository) ListLocations(ctx context.Context) ([]models.Location, error) {
	defer observability.TrackQuery("select", "locations")()
	var out []models.Location
	err := r.db.WithContext(ctx).Order("department ASC, municipality ASC, neighborhood ASC").Find(&out).Error
	return out, err
}
