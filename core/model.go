package core

import (
	"strings"
	"time"
)

// Role is the single shared role claim carried by a principal.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// Principal is the authenticated identity of the caller. It is built from a
// matched credential or a verified token and passed explicitly to every
// operation that needs it.
type Principal struct {
	ID    int64
	Email string
	Role  Role
}

// normalizeEmail trims surrounding whitespace. Case is preserved: ownership is
// an exact, case-sensitive comparison.
func normalizeEmail(email string) string {
	return strings.TrimSpace(email)
}

// UserRecord is the stored representation of a user, including the password hash.
type UserRecord struct {
	ID           int64
	Username     string
	PasswordHash string
	Email        string
	Enabled      bool
	Role         Role
	Created      time.Time
	Updated      time.Time
	FirstName    string
	LastName     string
	Country      string
	City         string
	DeliveryInfo string
}

// Principal returns the identity carried by this record.
func (u *UserRecord) Principal() Principal {
	return Principal{ID: u.ID, Email: u.Email, Role: u.Role}
}

// UserDto is the externally visible user representation (no password).
type UserDto struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	Enabled      bool      `json:"enabled"`
	Role         Role      `json:"role"`
	Created      time.Time `json:"created"`
	Updated      time.Time `json:"updated"`
	FirstName    string    `json:"firstName,omitempty"`
	LastName     string    `json:"lastName,omitempty"`
	Country      string    `json:"country,omitempty"`
	City         string    `json:"city,omitempty"`
	DeliveryInfo string    `json:"deliveryInfo,omitempty"`
}

func toUserDto(u *UserRecord) UserDto {
	return UserDto{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		Enabled:      u.Enabled,
		Role:         u.Role,
		Created:      u.Created,
		Updated:      u.Updated,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Country:      u.Country,
		City:         u.City,
		DeliveryInfo: u.DeliveryInfo,
	}
}

// RegisterUserRequest is the body of POST /auth/register.
type RegisterUserRequest struct {
	Username string `json:"username" binding:"required,min=3,max=25"`
	Password string `json:"password" binding:"required,min=8"`
	Email    string `json:"email" binding:"required,email"`
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

// UpdateUserRequest is the body of PUT /user/{id}. Role and enabled flag are
// not part of a self-update.
type UpdateUserRequest struct {
	ID           int64  `json:"id" binding:"required"`
	Username     string `json:"username" binding:"required,min=3,max=25"`
	Password     string `json:"password" binding:"required,min=8"`
	Email        string `json:"email" binding:"required,email"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Country      string `json:"country"`
	City         string `json:"city"`
	DeliveryInfo string `json:"deliveryInfo"`
}
