package model

import (
	"time"

	"github.com/google/uuid"
)

// MaxWatchHistory bounds the number of video ids kept per account.
const MaxWatchHistory = 100

// MinPasswordLength is enforced on registration and password change.
const MinPasswordLength = 8

// Account represents a registered user and the channel they own.
type Account struct {
	ID              uuid.UUID   `db:"id" json:"id"`
	Username        string      `db:"username" json:"username"`
	Email           string      `db:"email" json:"email"`
	FullName        string      `db:"full_name" json:"full_name"`
	PasswordHashed  string      `db:"password_hashed" json:"-"` // "-" hides from JSON output
	AvatarURL       *string     `db:"avatar_url" json:"avatar_url"`
	CoverURL        *string     `db:"cover_url" json:"cover_url"`
	WatchHistory    []uuid.UUID `db:"-" json:"-"`
	SubscriberCount int64       `db:"subscriber_count" json:"subscriber_count"`
	SubscribedCount int64       `db:"subscribed_count" json:"subscribed_count"`
	CreatedAt       time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time   `db:"updated_at" json:"updated_at"`
}

// Summary projects the public owner profile attached to content.
func (a *Account) Summary() AccountSummary {
	return AccountSummary{
		ID:        a.ID,
		Username:  a.Username,
		FullName:  a.FullName,
		AvatarURL: a.AvatarURL,
	}
}

// AccountSummary is the owner profile joined onto comments, replies and videos.
type AccountSummary struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Username  string    `db:"username" json:"username"`
	FullName  string    `db:"full_name" json:"full_name"`
	AvatarURL *string   `db:"avatar_url" json:"avatar_url"`
}

// RegisterInput carries the fields needed to create an account.
// AvatarPath and CoverPath are local files handed to the asset host.
type RegisterInput struct {
	Username   string `json:"username" validate:"required,min=3,max=30"`
	Email      string `json:"email" validate:"required,email,max=254"`
	FullName   string `json:"full_name" validate:"required,max=100"`
	Password   string `json:"password" validate:"required,min=8,max=72"`
	AvatarPath string `json:"-"`
	CoverPath  string `json:"-"`
}

// LoginRequest is the request body for POST /auth/login.
// Identifier matches either the username or the email.
type LoginRequest struct {
	Identifier string `json:"identifier" validate:"required"`
	Password   string `json:"password" validate:"required"`
}

// ChangePasswordRequest is the request body for POST /auth/change-password.
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8,max=72"`
}
