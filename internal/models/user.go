package models

import (
	"time"
)

// Account is a sign-up record. PasswordHash never leaves the process.
type Account struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	SalesPosted  int       `json:"sales_posted"`
	Rating       float64   `json:"rating"`
	Bio          string    `json:"bio"`
	Phone        string    `json:"phone"`
	AvatarColor  string    `json:"avatar_color"`
}

type SignUpRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Confirm  string `json:"confirm"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ProfileUpdate struct {
	Name        *string `json:"name,omitempty"`
	Bio         *string `json:"bio,omitempty"`
	Phone       *string `json:"phone,omitempty"`
	AvatarColor *string `json:"avatar_color,omitempty"`
}
