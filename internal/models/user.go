// Package models contains data structures for the marketplace domain.
package models

import "time"

// Role is the coarse authorization level of a user.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// User is a marketplace account. Credentials are managed outside this service.
type User struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	Email             string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	DisplayName       string    `gorm:"size:120;not null" json:"display_name"`
	Password          string    `gorm:"size:255" json:"-"`
	Role              Role      `gorm:"type:varchar(16);not null;default:'USER'" json:"role"`
	PhoneNumber       *string   `gorm:"size:20" json:"phone_number"`
	ProfilePictureURL *string   `gorm:"size:500" json:"profile_picture_url"`
	ProfilePictureKey *string   `gorm:"size:255" json:"-"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// IsAdmin reports whether the user may moderate reports.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// Identity is the caller as established by the auth boundary.
type Identity struct {
	ID    uint
	Email string
	Role  Role
}

func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}
