package auth

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// bcryptCost matches the salt work factor used for existing accounts.
const bcryptCost = 10

var (
	ErrRequiredFieldMissing = errors.New("register:required_field_missing")
	ErrEmailPattern         = errors.New("register:email_failed_pattern_test")
	ErrPasswordPattern      = errors.New("register:password_failed_pattern_test")
	ErrPasswordRepeat       = errors.New("register:password_repeat_does_not_match")
)

var passwordPattern = regexp.MustCompile(`\w{8}`)

// RegisterInput is the registration form.
type RegisterInput struct {
	Firstname      string `json:"firstname"`
	Lastname       string `json:"lastname"`
	Email          string `json:"email"`
	Password       string `json:"password"`
	PasswordRepeat string `json:"password_repeat"`
	Lang           string `json:"lang"`
	Country        string `json:"country"`
}

// Validate applies the registration rules in order; the first failure wins.
func (in RegisterInput) Validate() error {
	if in.Firstname == "" || in.Lastname == "" || in.Email == "" || in.Password == "" || in.PasswordRepeat == "" {
		return ErrRequiredFieldMissing
	}
	if !strings.Contains(in.Email, "@") {
		return ErrEmailPattern
	}
	if !passwordPattern.MatchString(in.Password) {
		return ErrPasswordPattern
	}
	if in.Password != in.PasswordRepeat {
		return ErrPasswordRepeat
	}
	return nil
}

// HashPassword generates a bcrypt hash of the password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// ComparePassword compares a bcrypt hashed password with its plaintext version.
func ComparePassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}
