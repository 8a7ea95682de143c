package database

import "inmomarket/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.PropertyType{},
		&models.Location{},
		&models.Publication{},
		&models.PublicationImage{},
		&models.AvailableTime{},
		&models.Favorite{},
		&models.Report{},
	}
}
