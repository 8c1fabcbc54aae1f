package users

import "time"

// User represents an account allowed to sign in.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Name         string    `json:"name"`
	Role         string    `json:"role"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// CreateUserInput is the payload accepted when an admin adds an account.
type CreateUserInput struct {
	Username string `json:"username" validate:"required,max=64"`
	Name     string `json:"name" validate:"max=128"`
	Password string `json:"password" validate:"required,min=4,max=72"`
	Role     string `json:"role" validate:"required,oneof=admin user"`
}
