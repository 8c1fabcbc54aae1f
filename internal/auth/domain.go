package auth

import (
	"time"

	"github.com/roz-pos/roz/internal/shared"
)

// LoginRequest carries submitted credentials.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse is returned after a successful sign-in.
type LoginResponse struct {
	Token     string           `json:"token"`
	ExpiresAt time.Time        `json:"expiresAt"`
	User      shared.Principal `json:"user"`
}
