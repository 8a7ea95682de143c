package repository

import (
	"context"
	"time"

	"inmomarket/internal/models"
	"inmomarket/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FavoriteRepository manages the (user, publication) favorite ledger.
type FavoriteRepository interface {
	// Add saves the pair and reports whether a new row was written.
	Add(ctx context.Context, userID, publicationID uint) (bool, error)
	// Remove deletes the pair and reports whether a row existed.
	Remove(ctx context.Context, userID, publicationID uint) (bool, error)
	Exists(ctx context.Context, userID, publicationID uint) (bool, error)
	ListByUser(ctx context.Context, userID uint, page models.PageRequest) ([]models.Favorite, int64, error)
	CountByUser(ctx context.Context, userID uint) (int64, error)
}

type favoriteRepository struct {
	db *gorm.DB
}

func NewFavoriteRepository(db *gorm.DB) FavoriteRepository {
	return &favoriteRepository{db: db}
}

func (r *favoriteRepository) Add(ctx context.Context, userID, publicationID uint) (bool, error) {
	defer observability.TrackQuery("insert", "favorites")()
	fav := models.Favorite{UserID: userID, PublicationID: publicationID, SavedAt: time.Now().UTC()}
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&fav)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *favoriteRepository) Remove(ctx context.Context, userID, publicationID uint) (bool, error) {
	defer observability.TrackQuery("delete", "favorites")()
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND publication_id = ?", userID, publicationID).
		Delete(&models.Favorite{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *favoriteRepository) Exists(ctx context.Context, userID, publicationID uint) (bool, error) {
	defer observability.TrackQuery("select", "favorites")()
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Favorite{}).
		Where("user_id = ? AND publication_id = ?", userID, publicationID).
		Count(&count).Error
	return count > 0, err
}

// ListByUser pages through a user's favorites, newest first, with publications preloaded.
func (r *favoriteRepository) ListByUser(ctx context.Context, userID uint, page models.PageRequest) ([]models.Favorite, int64, error) {
	defer observability.TrackQuery("select", "favorites")()
	db := r.db.WithContext(ctx)

	var total int64
	if err := db.Model(&models.Favorite{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var favs []models.Favorite
	err := db.Where("user_id = ?", userID).
		Preload("Publication", withDetails).
		Order("saved_at DESC, id DESC").
		Offset(page.Offset()).
		Limit(page.Size).
		Find(&favs).Error
	if err != nil {
		return nil, 0, err
	}
	return favs, total, nil
}

func (r *favoriteRepository) CountByUser(ctx context.Context, userID uint) (int64, error) {
	defer observability.TrackQuery("select", "favorites")()
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Favorite{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}
