package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// UserStore defines persistence operations for users.
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (User, error)
	GetByID(ctx context.Context, id uuid.UUID) (User, error)
	Create(ctx context.Context, user User) (User, error)
}

// User represents a registered account with its password hash.
type User struct {
	ID           uuid.UUID
	Email        string
	Name         *string
	AvatarURL    *string
	PasswordHash []byte
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Profile returns the public view of the user.
func (u User) Profile() Profile {
	return Profile{
		ID:     u.ID,
		Email:  u.Email,
		Name:   u.Name,
		Avatar: u.AvatarURL,
	}
}

// Profile is the read-only identity handed to clients.
type Profile struct {
	ID     uuid.UUID `json:"id"`
	Email  string    `json:"email"`
	Name   *string   `json:"name,omitempty"`
	Avatar *string   `json:"avatar,omitempty"`
}

// RegisterParams contains parameters to register a user.
type RegisterParams struct {
	Email    string
	Password string
	Name     *string
	Avatar   *string
}

// Session is a pair of tokens issued on login or refresh.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}
