package model

import (
	"errors"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"
)

// User represents an account that can report and manage items.
type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	Name         string     `json:"name"`
	PasswordHash string     `json:"-"`
	Role         string     `json:"role"`
	CreatedAt    time.Time  `json:"created_at"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`
}

// Roles.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// Account field limits.
const (
	MinPasswordLen = 8
	MaxUserNameLen = 100
)

// ValidRole reports whether role is a known role.
func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleUser
}

// RoleAtLeast checks if role meets or exceeds the minimum required role.
func RoleAtLeast(role, minimum string) bool {
	levels := map[string]int{
		RoleAdmin: 2,
		RoleUser:  1,
	}
	have, want := levels[role], levels[minimum]
	if have == 0 || want == 0 {
		return false
	}
	return have >= want
}

// ValidatePassword checks password strength requirements.
func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLen {
		return errors.New("password must be at least 8 characters")
	}
	return nil
}

// ValidateAccount checks the fields of a new account and returns a message
// per offending field.
func ValidateAccount(email, name, password string) map[string]string {
	errs := make(map[string]string)

	email = strings.TrimSpace(email)
	if email == "" {
		errs["email"] = "Email is required"
	} else if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		errs["email"] = "Email is not a valid address"
	}

	name = strings.TrimSpace(name)
	switch {
	case name == "":
		errs["name"] = "Name is required"
	case utf8.RuneCountInString(name) > MaxUserNameLen:
		errs["name"] = "Name cannot exceed 100 characters"
	}

	if err := ValidatePassword(password); err != nil {
		errs["password"] = err.Error()
	}
	return errs
}
