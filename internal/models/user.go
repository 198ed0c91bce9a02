// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"gorm.io/gorm"
)

// UserRole defines the privilege level of a user account.
type UserRole string

const (
	// UserRoleMember is the default role for registered users.
	UserRoleMember UserRole = "member"
	// UserRoleAdmin grants administrative privileges.
	UserRoleAdmin UserRole = "admin"
)

// User represents an account in the Event Engage application.
// Guest accounts carry a non-nil GuestExpiresAt and are removed lazily
// on the first authenticated access after expiry.
type User struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	Name           string         `gorm:"size:100;not null" json:"name"`
	Email          string         `gorm:"size:254;uniqueIndex;not null" json:"email"`
	Password       string         `gorm:"not null" json:"-"`
	Role           UserRole       `gorm:"type:varchar(20);not null;default:'member'" json:"role"`
	IsGuest        bool           `gorm:"not null;default:false" json:"is_guest"`
	GuestExpiresAt *time.Time     `json:"guest_expires_at,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

// GuestExpired reports whether the user is a guest whose session has lapsed.
func (u *User) GuestExpired(now time.Time) bool {
	return u.IsGuest && u.GuestExpiresAt != nil && u.GuestExpiresAt.Before(now)
}

// UserSummary is the compact representation of a user embedded in event
// responses (organizer and attendees).
type UserSummary struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}
