// Package testutil provides shared test doubles and fixtures.
package testutil

import (
	"testing"

	"inmomarket/internal/database"
	"inmomarket/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewTestDB returns a migrated in-memory SQLite database private to the test.
// A single connection keeps every query on the same in-memory database.
func NewTestDB(t testing.TB) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sqlite handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// CreateUser inserts a user with the given email and role.
func CreateUser(t testing.TB, db *gorm.DB, email string, role models.Role) *models.User {
	t.Helper()
	u := &models.User{Email: email, DisplayName: email, Role: role}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

// PublicationOverride mutates a fixture before it is persisted.
type PublicationOverride func(*models.Publication)

// CreatePublication inserts an ACTIVE listing owned by ownerID, creating its
// type and location rows as needed.
func CreatePublication(t testing.TB, db *gorm.DB, ownerID uint, overrides ...PublicationOverride) *models.Publication {
	t.Helper()
	pt := models.PropertyType{Name: "Casa"}
	if err := db.Where(models.PropertyType{Name: pt.Name}).FirstOrCreate(&pt).Error; err != nil {
		t.Fatalf("property type: %v", err)
	}
	loc := models.Location{Department: "Antioquia", Municipality: "Medellín", Neighborhood: "El Poblado"}
	if err := db.Where(loc).FirstOrCreate(&loc).Error; err != nil {
		t.Fatalf("location: %v", err)
	}

	p := &models.Publication{
		UserID:         ownerID,
		PropertyTypeID: pt.ID,
		LocationID:     loc.ID,
		Address:        "Calle 10 # 43-12",
		Title:          "Casa amplia",
		Description:    "Tres habitaciones con patio",
		Longitude:      decimal.RequireFromString("-75.5678"),
		Latitude:       decimal.RequireFromString("6.2088"),
		Size:           decimal.RequireFromString("120.5"),
		Bedrooms:       3,
		Floors:         2,
		Parking:        1,
		Furnished:      false,
		Price:          decimal.RequireFromString("450000000"),
		Status:         models.PublicationStatusActive,
	}
	for _, o := range overrides {
		o(p)
	}
	if err := db.Create(p).Error; err != nil {
		t.Fatalf("create publication: %v", err)
	}
	return p
}
