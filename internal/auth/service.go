package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/vovakirdan/wirechat-presence/internal/store"
)

var (
	// ErrInvalidCredentials is returned when email/password don't match.
	ErrInvalidCredentials = errors.New("login:email_or_password_is_wrong")
	// ErrUserExists is returned when registering an email that is taken.
	ErrUserExists = errors.New("register:user_exists")
)

// Service issues and verifies session tokens against the user directory.
type Service struct {
	users     store.UserStore
	jwtConfig *JWTConfig
}

// NewService creates a new authentication service.
func NewService(users store.UserStore, jwtConfig *JWTConfig) *Service {
	return &Service{
		users:     users,
		jwtConfig: jwtConfig,
	}
}

// Register validates the form and stores a new user with a hashed password.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*store.User, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	hashedPassword, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user, err := s.users.CreateUser(ctx, &store.User{
		Firstname:    in.Firstname,
		Lastname:     in.Lastname,
		Email:        in.Email,
		PasswordHash: hashedPassword,
		Lang:         in.Lang,
		Country:      in.Country,
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// Login checks the password and returns a token carrying the user's identity.
func (s *Service) Login(ctx context.Context, email, password string) (string, Identity, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", Identity{}, ErrInvalidCredentials
		}
		return "", Identity{}, fmt.Errorf("lookup user: %w", err)
	}

	if errPwd := ComparePassword(user.PasswordHash, password); errPwd != nil {
		return "", Identity{}, ErrInvalidCredentials
	}

	id := IdentityOf(user)
	token, err := GenerateToken(s.jwtConfig, id)
	if err != nil {
		return "", Identity{}, fmt.Errorf("generate token: %w", err)
	}
	return token, id, nil
}

// Verify checks a presented token.
func (s *Service) Verify(token string) (Identity, error) {
	return VerifyToken(s.jwtConfig, token)
}

// IdentityOf projects a directory record onto its public identity.
func IdentityOf(u *store.User) Identity {
	return Identity{
		Firstname: u.Firstname,
		Lastname:  u.Lastname,
		Email:     u.Email,
	}
}
