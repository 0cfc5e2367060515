package domain

import (
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// UserID represents a unique user identifier
type UserID string

// NewUserID creates a new user ID
func NewUserID() UserID {
	return UserID(uuid.New().String())
}

// String returns the string representation
func (u UserID) String() string {
	return string(u)
}

// User represents an account that can authenticate against the dispatcher.
// Roles and Orgs are consulted by self-authorizing commands.
type User struct {
	ID           UserID    `json:"id" bson:"_id"`
	Username     string    `json:"username" bson:"username"`
	Email        string    `json:"email,omitempty" bson:"email,omitempty"`
	DisplayName  string    `json:"display_name,omitempty" bson:"display_name,omitempty"`
	PasswordHash string    `json:"-" bson:"password_hash,omitempty"`
	Roles        []string  `json:"roles,omitempty" bson:"roles,omitempty"`
	Orgs         []string  `json:"orgs,omitempty" bson:"orgs,omitempty"`
	Admin        bool      `json:"admin" bson:"admin"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" bson:"updated_at"`
}

// HasRole reports whether the user carries the named role (case-insensitive).
func (u *User) HasRole(role string) bool {
	return slices.ContainsFunc(u.Roles, func(r string) bool {
		return strings.EqualFold(r, role)
	})
}

// InOrg reports whether the user belongs to the named organization.
func (u *User) InOrg(org string) bool {
	return slices.Contains(u.Orgs, org)
}

// RegisterRequest represents a user registration request
type RegisterRequest struct {
	Username    string   `json:"username" yaml:"username" binding:"required"`
	Email       string   `json:"email,omitempty" yaml:"email"`
	DisplayName string   `json:"display_name,omitempty" yaml:"display_name"`
	Password    string   `json:"password" yaml:"password" binding:"required"`
	Roles       []string `json:"roles,omitempty" yaml:"roles"`
	Orgs        []string `json:"orgs,omitempty" yaml:"orgs"`
	Admin       bool     `json:"admin,omitempty" yaml:"admin"`
}

// LoginRequest represents a login request. Login may be a username or an e-mail address.
type LoginRequest struct {
	Login    string `json:"login" form:"login" mapstructure:"login" binding:"required"`
	Password string `json:"password" form:"password" mapstructure:"password" binding:"required"`
}

// LoginResponse represents a login response
type LoginResponse struct {
	Token       string `json:"token,omitempty"`
	SessionID   string `json:"session_id,omitempty"`
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
}
