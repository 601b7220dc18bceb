package models

import (
	"time"

	"gorm.io/gorm"
)

type User struct {
	gorm.Model

	Email       string `gorm:"uniqueIndex;not null"`
	Username    string `gorm:"uniqueIndex;not null"`
	PhoneNumber string `gorm:"uniqueIndex;not null"`
	PhoneRegion string

	PasswordHash string `gorm:"not null" json:"-"`
	Confirmed    bool   `gorm:"default:false"`

	IsAdmin       bool `gorm:"default:false"`
	IsMaintenance bool `gorm:"default:false"`

	Name     string
	LastSeen time.Time

	// Relationships
	RequestedTasks []Task `gorm:"foreignKey:RequestedByID"`
	AssignedTasks  []Task `gorm:"foreignKey:AssignedToID"`
}

// Role names a user's single effective role. Exactly one of the admin and
// maintenance flags describes it; everyone else is a requester.
func (u *User) Role() string {
	switch {
	case u.IsAdmin:
		return "admin"
	case u.IsMaintenance:
		return "maintainer"
	default:
		return "requester"
	}
}
