package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PublicationStatus is the soft lifecycle of a listing. Listings are never hard-deleted.
type PublicationStatus string

const (
	PublicationStatusActive   PublicationStatus = "ACTIVE"
	PublicationStatusInactive PublicationStatus = "INACTIVE"
)

// Valid reports whether s is a known status.
func (s PublicationStatus) Valid() bool {
	return s == PublicationStatusActive || s == PublicationStatusInactive
}

// PropertyType is a shared, deduplicated listing category ("Casa", "Apartamento").
type PropertyType struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"size:100;uniqueIndex;not null" json:"name"`
}

// Location is a shared, deduplicated department/municipality/neighborhood tuple.
type Location struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	Department   string `gorm:"size:100;not null;uniqueIndex:idx_locations_tuple" json:"department"`
	Municipality string `gorm:"size:100;not null;uniqueIndex:idx_locations_tuple" json:"municipality"`
	Neighborhood string `gorm:"size:100;not null;uniqueIndex:idx_locations_tuple" json:"neighborhood"`
}

// Publication is a property listing and the aggregate root for its images and availability.
type Publication struct {
	ID             uint               `gorm:"primaryKey" json:"id"`
	UserID         uint               `gorm:"not null;index" json:"user_id"`
	User           *User              `gorm:"foreignKey:UserID" json:"user,omitempty"`
	PropertyTypeID uint               `gorm:"not null;index" json:"property_type_id"`
	PropertyType   *PropertyType      `gorm:"foreignKey:PropertyTypeID" json:"property_type,omitempty"`
	LocationID     uint               `gorm:"not null;index" json:"location_id"`
	Location       *Location          `gorm:"foreignKey:LocationID" json:"location,omitempty"`
	Address        string             `gorm:"size:255;not null" json:"address"`
	Title          string             `gorm:"size:150;not null" json:"title"`
	Description    string             `gorm:"type:text" json:"description"`
	Longitude      decimal.Decimal    `gorm:"type:numeric(10,7);not null" json:"longitude"`
	Latitude       decimal.Decimal    `gorm:"type:numeric(10,7);not null" json:"latitude"`
	Geohash        string             `gorm:"size:12" json:"geohash"`
	Size           decimal.Decimal    `gorm:"type:numeric(12,2);not null;index" json:"size"`
	Bedrooms       int                `gorm:"not null;index" json:"bedrooms"`
	Floors         int                `gorm:"not null" json:"floors"`
	Parking        int                `gorm:"not null" json:"parking"`
	Furnished      bool               `gorm:"not null" json:"furnished"`
	Price          decimal.Decimal    `gorm:"type:numeric(16,2);not null;index" json:"price"`
	Status         PublicationStatus  `gorm:"type:varchar(16);not null;default:'ACTIVE';index" json:"status"`
	Images         []PublicationImage `gorm:"foreignKey:PublicationID" json:"images"`
	AvailableTimes []AvailableTime    `gorm:"foreignKey:PublicationID" json:"available_times"`
	CreatedAt      time.Time          `gorm:"index" json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

// PublicationImage references an image held by the image store. Position orders images within a listing.
type PublicationImage struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	PublicationID uint      `gorm:"not null;index" json:"publication_id"`
	URL           string    `gorm:"size:500;not null" json:"url"`
	StorageKey    string    `gorm:"size:255;not null" json:"-"`
	Position      int       `gorm:"not null" json:"position"`
	CreatedAt     time.Time `json:"created_at"`
}

// AvailableTime is a weekly visiting window. Times are "HH:MM".
type AvailableTime struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	PublicationID uint      `gorm:"not null;index" json:"publication_id"`
	DayOfWeek     DayOfWeek `gorm:"type:varchar(10);not null" json:"day_of_week"`
	StartTime     string    `gorm:"size:5;not null" json:"start_time"`
	EndTime       string    `gorm:"size:5;not null" json:"end_time"`
}

// DayOfWeek is an upper-case English weekday name.
type DayOfWeek string

const (
	Monday    DayOfWeek = "MONDAY"
	Tuesday   DayOfWeek = "TUESDAY"
	Wednesday DayOfWeek = "WEDNESDAY"
	Thursday  DayOfWeek = "THURSDAY"
	Friday    DayOfWeek = "FRIDAY"
	Saturday  DayOfWeek = "SATURDAY"
	Sunday    DayOfWeek = "SUNDAY"
)

var weekdays = map[DayOfWeek]struct{}{
	Monday: {}, Tuesday: {}, Wednesday: {}, Thursday: {}, Friday: {}, Saturday: {}, Sunday: {},
}

// Valid reports whether d names a weekday.
func (d DayOfWeek) Valid() bool {
	_, ok := weekdays[d]
	return ok
}
