package models

import "time"

// Favorite records that a user saved a publication. At most one row exists per pair.
type Favorite struct {
	ID            uint         `gorm:"primaryKey" json:"id"`
	UserID        uint         `gorm:"not null;uniqueIndex:idx_favorites_user_publication" json:"user_id"`
	PublicationID uint         `gorm:"not null;uniqueIndex:idx_favorites_user_publication;index" json:"publication_id"`
	Publication   *Publication `gorm:"foreignKey:PublicationID" json:"publication,omitempty"`
	SavedAt       time.Time    `gorm:"not null;index" json:"saved_at"`
}

// FavoriteStats summarizes a user's favorites.
type FavoriteStats struct {
	TotalCount int64 `json:"total_count"`
}
