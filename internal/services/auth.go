package services

import (
	"context"
	"errors"
	"strings"

	"github.com/gramseva/apiserver/internal/store"
	"github.com/gramseva/apiserver/types"
	"golang.org/x/crypto/bcrypt"
)

// IdentityReader defines the persistence operations authentication needs.
type IdentityReader interface {
	GetByID(ctx context.Context, id int) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	UpdatePassword(ctx context.Context, id int, passwordHash string) error
}

// AuthService verifies credentials against active accounts.
type AuthService struct {
	identities IdentityReader
}

func NewAuthService(identities IdentityReader) *AuthService {
	return &AuthService{identities: identities}
}

// Login verifies an email/password pair. Unknown emails and wrong passwords
// both return ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, email, password string) (types.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return types.User{}, validationError("Please provide email and password")
	}

	user, err := s.identities.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, ErrInvalidCredentials
		}
		return types.User{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return types.User{}, ErrInvalidCredentials
	}

	return user, nil
}

// ChangePassword re-verifies the current password before overwriting the
// stored hash. A mismatch mutates nothing.
func (s *AuthService) ChangePassword(ctx context.Context, userID int, currentPassword, newPassword string) error {
	if currentPassword == "" || newPassword == "" {
		return validationError("Please provide current and new passwords")
	}

	user, err := s.identities.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(currentPassword)); err != nil {
		return validationError("Current password is incorrect")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	return s.identities.UpdatePassword(ctx, userID, string(hash))
}
