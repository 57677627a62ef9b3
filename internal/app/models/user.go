package models

import "time"

// User is a read-only projection of a marketplace user. This service
// references users by id only and never owns their lifecycle.
type User struct {
	ID          int64     `json:"id" db:"id"`
	DisplayName string    `json:"displayName" db:"display_name"`
	AvatarURL   *string   `json:"avatarUrl,omitempty" db:"avatar_url"`
	Role        string    `json:"role" db:"role"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
}
