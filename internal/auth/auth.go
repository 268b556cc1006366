// Package auth gates the admin and student entry points.
package auth

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/verte-zerg/stenoarena/internal/model"
)

const (
	// DefaultAdminUsername is used when no admin username is configured.
	DefaultAdminUsername = "admin"
	// DefaultAdminPassword is accepted when no admin password hash is configured.
	DefaultAdminPassword = "admin123"
)

var (
	// ErrInvalidCredentials is returned for a wrong admin username or password.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrMissingStudent is returned when a roll number or name is blank.
	ErrMissingStudent = errors.New("roll number and name are required")
)

// Authenticator checks admin credentials against a bcrypt hash.
type Authenticator struct {
	username string
	hash     []byte
}

// NewAuthenticator builds an Authenticator. Empty values fall back to the
// default admin account.
func NewAuthenticator(username, passwordHash string) (*Authenticator, error) {
	if strings.TrimSpace(username) == "" {
		username = DefaultAdminUsername
	}
	hash := []byte(passwordHash)
	if passwordHash == "" {
		var err error
		hash, err = bcrypt.GenerateFromPassword([]byte(DefaultAdminPassword), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash default password: %w", err)
		}
	} else if _, err := bcrypt.Cost(hash); err != nil {
		return nil, fmt.Errorf("invalid admin password hash: %w", err)
	}
	return &Authenticator{username: strings.TrimSpace(username), hash: hash}, nil
}

// Username returns the configured admin username.
func (a *Authenticator) Username() string {
	return a.username
}

// Login verifies the admin username and password.
func (a *Authenticator) Login(username, password string) error {
	if strings.TrimSpace(username) != a.username {
		return ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(a.hash, []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// HashPassword returns a bcrypt hash suitable for the admin.password-hash setting.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password is empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// Student trims and validates student login fields.
func Student(rollNumber, name string) (model.Student, error) {
	s := model.Student{
		RollNumber: strings.TrimSpace(rollNumber),
		Name:       strings.TrimSpace(name),
	}
	if s.RollNumber == "" || s.Name == "" {
		return model.Student{}, ErrMissingStudent
	}
	return s, nil
}
