// Package auth handles users, password hashing and sessions. Users sign in
// with a username and password; sessions live in Redis and are referenced
// by an HttpOnly cookie. Accounts are created from the command line
// (radio useradd), there is no self-registration.
package auth

import (
	"time"
)

// User is a person allowed to control the radio.
type User struct {
	ID           string     `json:"id"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"-"`
	IsAdmin      bool       `json:"is_admin"`
	CreatedAt    time.Time  `json:"created_at"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
}

// LoginRequest is bound from both the login form and POST /api/login.
type LoginRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

// LoginInput is the validated input for authenticating a user.
type LoginInput struct {
	Username string
	Password string
}

// CreateUserInput describes a new account.
type CreateUserInput struct {
	Username string
	Password string
	IsAdmin  bool
}

// Session is the JSON value stored in Redis under session:<token>.
type Session struct {
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	IsAdmin   bool      `json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
}
