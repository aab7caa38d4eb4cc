package models

import (
	"time"

	"github.com/google/uuid"
)

// User is an account together with the access snapshot loaded for it.
type User struct {
	ID                uuid.UUID  `json:"id"`
	Name              string     `json:"name"`
	Email             string     `json:"email"`
	Password          string     `json:"-"`
	EmailVerifiedAt   *time.Time `json:"email_verified_at,omitempty"`
	Roles             []string   `json:"roles"`
	DirectPermissions []string   `json:"direct_permissions"`
	// Permissions is the effective set: direct grants plus grants via roles.
	Permissions []string  `json:"permissions"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// UserPublic is User without sensitive fields for API responses.
type UserPublic struct {
	ID              uuid.UUID  `json:"id"`
	Name            string     `json:"name"`
	Email           string     `json:"email"`
	EmailVerifiedAt *time.Time `json:"email_verified_at,omitempty"`
	Roles           []string   `json:"roles"`
	CreatedAt       time.Time  `json:"created_at"`
}

// ToPublic converts User to UserPublic.
func (u *User) ToPublic() UserPublic {
	return UserPublic{
		ID:              u.ID,
		Name:            u.Name,
		Email:           u.Email,
		EmailVerifiedAt: u.EmailVerifiedAt,
		Roles:           u.Roles,
		CreatedAt:       u.CreatedAt,
	}
}

// HasRole reports whether the user holds the named role.
func (u *User) HasRole(name string) bool {
	for _, r := range u.Roles {
		if r == name {
			return true
		}
	}
	return false
}

// HasPermission reports whether name is among the user's effective permissions.
func (u *User) HasPermission(name string) bool {
	for _, p := range u.Permissions {
		if p == name {
			return true
		}
	}
	return false
}

// HasDirectPermission reports whether name was granted to the user directly.
func (u *User) HasDirectPermission(name string) bool {
	for _, p := range u.DirectPermissions {
		if p == name {
			return true
		}
	}
	return false
}
