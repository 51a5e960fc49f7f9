package domain

import "time"

// User is an account that can authenticate and receive identity tokens.
type User struct {
	ID              string    `json:"id" db:"id"`
	Email           string    `json:"email" db:"email"`
	PasswordHash    string    `json:"-" db:"password_hash"`
	IsAdmin         bool      `json:"is_admin" db:"is_admin"`
	IsTrustedMember bool      `json:"is_trusted_member" db:"is_trusted_member"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}

// RegisterRequest defines the request body for user registration.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// LoginRequest defines the request body for user login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// TokenGenerationRequest defines the request body for the raw token
// endpoint. CustomClaims values arrive loosely typed from JSON and are
// re-typed by the token issuer.
type TokenGenerationRequest struct {
	UserID       string         `json:"user_id" validate:"required,uuid"`
	Email        string         `json:"email" validate:"required,email"`
	CustomClaims map[string]any `json:"custom_claims"`
}

// TokenResponse carries an issued identity token.
type TokenResponse struct {
	Token string `json:"token"`
}
