// Package user defines the user domain model for authentication and authorization.
package user

import (
	"errors"
	"net/mail"
	"time"

	"github.com/Strob0t/MonitorForge/internal/domain/tenant"
)

// User represents a registered user within a tenant. The role governs what
// the user may do inside that tenant only.
type User struct {
	ID           string      `json:"id"`
	TenantID     string      `json:"tenant_id"`
	Email        string      `json:"email"`
	Name         string      `json:"name"`
	PasswordHash string      `json:"-"` // never serialized
	Role         tenant.Role `json:"role"`
	Enabled      bool        `json:"enabled"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// CreateRequest is the input for registering a new user.
type CreateRequest struct {
	Email    string      `json:"email"`
	Name     string      `json:"name"`
	Password string      `json:"password"` //nolint:gosec // request field, not a hardcoded secret
	Role     tenant.Role `json:"role"`
}

// Validate checks that the CreateRequest has all required fields.
func (r *CreateRequest) Validate() error {
	if r.Email == "" {
		return errors.New("email is required")
	}
	if _, err := mail.ParseAddress(r.Email); err != nil {
		return errors.New("invalid email format")
	}
	if r.Name == "" {
		return errors.New("name is required")
	}
	if r.Password == "" {
		return errors.New("password is required")
	}
	if len(r.Password) < 8 {
		return errors.New("password must be at least 8 characters")
	}
	if !r.Role.Valid() {
		return errors.New("invalid role: must be owner, admin, member, or viewer")
	}
	return nil
}

// UpdateRequest is the input for updating an existing user.
type UpdateRequest struct {
	Name    string      `json:"name,omitempty"`
	Role    tenant.Role `json:"role,omitempty"`
	Enabled *bool       `json:"enabled,omitempty"`
}

// Validate rejects unknown roles; an empty role means "unchanged".
func (r *UpdateRequest) Validate() error {
	if r.Role != "" && !r.Role.Valid() {
		return errors.New("invalid role: must be owner, admin, member, or viewer")
	}
	return nil
}

// LoginRequest is the input for user authentication.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"` //nolint:gosec // request field, not a hardcoded secret
}

// Validate checks that the LoginRequest has all required fields.
func (r *LoginRequest) Validate() error {
	if r.Email == "" {
		return errors.New("email is required")
	}
	if r.Password == "" {
		return errors.New("password is required")
	}
	return nil
}

// LoginResponse is returned after successful authentication.
type LoginResponse struct {
	AccessToken string `json:"access_token"` //nolint:gosec // response field, not a hardcoded secret
	ExpiresIn   int    `json:"expires_in"`   // seconds until access token expires
	User        User   `json:"user"`
}

// TokenClaims contains the JWT payload fields.
type TokenClaims struct {
	UserID   string      `json:"sub"`
	Email    string      `json:"email"`
	Name     string      `json:"name"`
	Role     tenant.Role `json:"role"`
	TenantID string      `json:"tid"`
	IssuedAt int64       `json:"iat"`
	Expiry   int64       `json:"exp"`
}
