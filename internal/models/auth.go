package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest holds administrator credentials.
type LoginRequest struct {
	Username  string `json:"username" validate:"required"`
	Password  string `json:"password" validate:"required"`
	IP        string `json:"-"`
	UserAgent string `json:"-"`
}

// LoginResponse carries both the legacy session pair and the bearer token.
type LoginResponse struct {
	Token       string    `json:"token"`
	Username    string    `json:"username"`
	AccessToken string    `json:"access_token"`
	ExpiresIn   int64     `json:"expires_in"`
	IssuedAt    time.Time `json:"issued_at"`
	User        UserInfo  `json:"user"`
}

// SessionCheckRequest is the stored token/username pair to validate.
type SessionCheckRequest struct {
	Token    string `json:"token" validate:"required"`
	Username string `json:"username" validate:"required"`
}

// SessionCheckResponse reports whether the pair is still valid.
type SessionCheckResponse struct {
	Valid bool `json:"valid"`
}

// UserInfo describes the authenticated administrator in responses.
type UserInfo struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// JWTClaims is the bearer token payload.
type JWTClaims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}
