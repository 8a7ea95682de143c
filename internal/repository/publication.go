package repository

import (
	"context"
	"fmt"

	"inmomarket/internal/models"
	"inmomarket/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PublicationRepository defines the interface for listing data operations
type PublicationRepository interface {
	Create(ctx context.Context, pub *models.Publication) error
	Update(ctx context.Context, pub *models.Publication) error
	Exists(ctx context.Context, id uint) (bool, error)
	GetByID(ctx context.Context, id uint) (*models.Publication, error)
	GetByIDs(ctx context.Context, ids []uint) ([]models.Publication, error)
	GetOwnerID(ctx context.Context, id uint) (uint, error)
	// GetForUpdate loads the bare row, locking it for the rest of the transaction where the driver supports it.
	GetForUpdate(ctx context.Context, id uint) (*models.Publication, error)
	NextImagePosition(ctx context.Context, publicationID uint) (int, error)
	AppendImages(ctx context.Context, images []models.PublicationImage) error
	ReplaceAvailability(ctx context.Context, publicationID uint, windows []models.AvailableTime) error
	ListFiltered(ctx context.Context, filter models.PublicationFilter) ([]models.Publication, error)
	ListAll(ctx context.Context) ([]models.Publication, error)
	ListByUser(ctx context.Context, userID uint) ([]models.Publication, error)
	ListRecent(ctx context.Context, limit int) ([]models.Publication, error)
	ListMostPopular(ctx context.Context, limit int) ([]models.Publication, error)
	ListRecentlyFavorited(ctx context.Context, limit int) ([]models.Publication, error)
}

type publicationRepository struct {
	db *gorm.DB
}

// NewPublicationRepository creates a new publication repository
func NewPublicationRepository(db *gorm.DB) PublicationRepository {
	return &publicationRepository{db: db}
}

func withDetails(db *gorm.DB) *gorm.DB {
	return db.
		Preload("PropertyType").
		Preload("Location").
		Preload("Images", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC, id ASC")
		}).
		Preload("AvailableTimes", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		})
}

func activeOnly(db *gorm.DB) *gorm.DB {
	return db.Where("publications.status = ?", models.PublicationStatusActive)
}

// Create inserts the publication together with its images and availability windows.
// User, PropertyType and Location must already exist and are referenced by ID only.
func (r *publicationRepository) Create(ctx context.Context, pub *models.Publication) error {
	defer observability.TrackQuery("insert", "publications")()
	return r.db.WithContext(ctx).Omit("User", "PropertyType", "Location").Create(pub).Error
}

func (r *publicationRepository) Update(ctx context.Context, pub *models.Publication) error {
	defer observability.TrackQuery("update", "publications")()
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(pub).Error
}

func (r *publicationRepository) Exists(ctx context.Context, id uint) (bool, error) {
	defer observability.TrackQuery("select", "publications")()
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Publication{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

func (r *publicationRepository) GetByID(ctx context.Context, id uint) (*models.Publication, error) {
	defer observability.TrackQuery("select", "publications")()
	var pub models.Publication
	if err := withDetails(r.db.WithContext(ctx)).First(&pub, id).Error; err != nil {
		return nil, err
	}
	return &pub, nil
}

// GetByIDs returns the publications in the order of ids. Unknown ids are skipped.
func (r *publicationRepository) GetByIDs(ctx context.Context, ids []uint) ([]models.Publication, error) {
	defer observability.TrackQuery("select", "publications")()
	if len(ids) == 0 {
		return []models.Publication{}, nil
	}
	var pubs []models.Publication
	if err := withDetails(r.db.WithContext(ctx)).Where("id IN ?", ids).Find(&pubs).Error; err != nil {
		return nil, err
	}
	byID := make(map[uint]models.Publication, len(pubs))
	for _, p := range pubs {
		byID[p.ID] = p
	}
	out := make([]models.Publication, 0, len(pubs))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *publicationRepository) GetOwnerID(ctx context.Context, id uint) (uint, error) {
	defer observability.TrackQuery("select", "publications")()
	var pub models.Publication
	if err := r.db.WithContext(ctx).Select("id", "user_id").First(&pub, id).Error; err != nil {
		return 0, err
	}
	return pub.UserID, nil
}

func (r *publicationRepository) GetForUpdate(ctx context.Context, id uint) (*models.Publication, error) {
	defer observability.TrackQuery("select", "publications")()
	db := r.db.WithContext(ctx)
	if isPostgres(db) {
		db = db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var pub models.Publication
	if err := db.First(&pub, id).Error; err != nil {
		return nil, err
	}
	return &pub, nil
}

// NextImagePosition is one past the highest stored position, or 0 for a listing without images.
func (r *publicationRepository) NextImagePosition(ctx context.Context, publicationID uint) (int, error) {
	defer observability.TrackQuery("select", "publication_images")()
	var maxPos int
	err := r.db.WithContext(ctx).Model(&models.PublicationImage{}).
		Where("publication_id = ?", publicationID).
		Select("COALESCE(MAX(position), -1)").
		Scan(&maxPos).Error
	if err != nil {
		return 0, err
	}
	return maxPos + 1, nil
}

func (r *publicationRepository) AppendImages(ctx context.Context, images []models.PublicationImage) error {
	defer observability.TrackQuery("insert", "publication_images")()
	if len(images) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&images).Error
}

// ReplaceAvailability deletes every window of the publication and inserts windows in their place.
func (r *publicationRepository) ReplaceAvailability(ctx context.Context, publicationID uint, windows []models.AvailableTime) error {
	defer observability.TrackQuery("replace", "available_times")()
	db := r.db.WithContext(ctx)
	if err := db.Where("publication_id = ?", publicationID).Delete(&models.AvailableTime{}).Error; err != nil {
		return err
	}
	if len(windows) == 0 {
		return nil
	}
	for i := range windows {
		windows[i].ID = 0
		windows[i].PublicationID = publicationID
	}
	return db.Create(&windows).Error
}

// ListFiltered returns the active publications matching exactly one filter dimension.
// Department and type names compare exactly, the same way the registries store them.
func (r *publicationRepository) ListFiltered(ctx context.Context, filter models.PublicationFilter) ([]models.Publication, error) {
	defer observability.TrackQuery("select", "publications")()
	q := activeOnly(withDetails(r.db.WithContext(ctx)).Model(&models.Publication{})).Select("publications.*")

	switch f := filter.(type) {
	case models.DepartmentFilter:
		q = q.Joins("JOIN locations ON locations.id = publications.location_id").
			Where("locations.department = ?", f.Department)
	case models.PriceRangeFilter:
		q = q.Where("publications.price BETWEEN ? AND ?", f.Min.String(), f.Max.String())
	case models.TypeNameFilter:
		q = q.Joins("JOIN property_types ON property_types.id = publications.property_type_id").
			Where("property_types.name = ?", f.Name)
	case models.SizeRangeFilter:
		q = q.Where("publications.size BETWEEN ? AND ?", f.Min.String(), f.Max.String())
	case models.BedroomsFilter:
		q = q.Where("publications.bedrooms = ?", f.Count)
	case models.FloorsFilter:
		q = q.Where("publications.floors = ?", f.Count)
	case models.ParkingFilter:
		q = q.Where("publications.parking = ?", f.Count)
	case models.FurnishedFilter:
		q = q.Where("publications.furnished = ?", f.Furnished)
	default:
		return nil, fmt.Errorf("unsupported publication filter %T", filter)
	}

	var pubs []models.Publication
	err := q.Order("publications.id ASC").Find(&pubs).Error
	return pubs, err
}

func (r *publicationRepository) ListAll(ctx context.Context) ([]models.Publication, error) {
	defer observability.TrackQuery("select", "publications")()
	var pubs []models.Publication
	err := activeOnly(withDetails(r.db.WithContext(ctx))).Order("publications.id ASC").Find(&pubs).Error
	return pubs, err
}

// ListByUser includes inactive listings; owners see everything they published.
func (r *publicationRepository) ListByUser(ctx context.Context, userID uint) ([]models.Publication, error) {
	defer observability.TrackQuery("select", "publications")()
	var pubs []models.Publication
	err := withDetails(r.db.WithContext(ctx)).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&pubs).Error
	return pubs, err
}

func (r *publicationRepository) ListRecent(ctx context.Context, limit int) ([]models.Publication, error) {
	defer observability.TrackQuery("select", "publications")()
	var pubs []models.Publication
	err := activeOnly(withDetails(r.db.WithContext(ctx))).
		Order("publications.created_at DESC, publications.id DESC").
		Limit(limit).
		Find(&pubs).Error
	return pubs, err
}

// ListMostPopular ranks active publications by favorite count, breaking ties by the latest save.
func (r *publicationRepository) ListMostPopular(ctx context.Context, limit int) ([]models.Publication, error) {
	defer observability.TrackQuery("select", "publications")()
	db := r.db.WithContext(ctx)
	counts := db.Model(&models.Favorite{}).
		Select("publication_id, COUNT(*) AS favorite_count, MAX(saved_at) AS last_saved_at").
		Group("publication_id")

	var pubs []models.Publication
	err := activeOnly(withDetails(db).Model(&models.Publication{})).
		Select("publications.*").
		Joins("JOIN (?) AS fav ON fav.publication_id = publications.id", counts).
		Order("fav.favorite_count DESC, fav.last_saved_at DESC, publications.id DESC").
		Limit(limit).
		Find(&pubs).Error
	return pubs, err
}

// ListRecentlyFavorited maps the newest favorite rows, ordered by publication id, to their
// publications and drops inactive ones. A publication saved by several users appears once per
// row, so the result may repeat entries and may hold fewer than limit.
func (r *publicationRepository) ListRecentlyFavorited(ctx context.Context, limit int) ([]models.Publication, error) {
	defer observability.TrackQuery("select", "favorites")()
	var favs []models.Favorite
	err := r.db.WithContext(ctx).
		Order("publication_id DESC, saved_at DESC").
		Limit(limit).
		Find(&favs).Error
	if err != nil {
		return nil, err
	}

	seen := make(map[uint]struct{}, len(favs))
	ids := make([]uint, 0, len(favs))
	for _, f := range favs {
		if _, dup := seen[f.PublicationID]; !dup {
			seen[f.PublicationID] = struct{}{}
			ids = append(ids, f.PublicationID)
		}
	}
	pubs, err := r.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint]models.Publication, len(pubs))
	for _, p := range pubs {
		byID[p.ID] = p
	}

	out := make([]models.Publication, 0, len(favs))
	for _, f := range favs {
		if p, ok := byID[f.PublicationID]; ok && p.Status == models.PublicationStatusActive {
			out = append(out, p)
		}
	}
	return out, nil
}
