// internal/auth/service.go
package auth

import (
	"context"
	"regexp"

	"go.uber.org/zap"

	"github.com/uracles/mini-wallet-application/internal/apperr"
	"github.com/uracles/mini-wallet-application/internal/db"
	"github.com/uracles/mini-wallet-application/internal/logging"
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]{3,32}$`)

// UserStore is the slice of persistence the auth service needs; the gorm
// repository satisfies it, tests substitute fakes.
type UserStore interface {
	CreateUser(ctx context.Context, username, passwordHash string) (*db.User, error)
	FindByUsername(ctx context.Context, username string) (*db.User, error)
	FindByID(ctx context.Context, id int64) (*db.User, error)
}

type Service struct {
	users  UserStore
	tokens *TokenManager
}

func NewService(users UserStore, tokens *TokenManager) *Service {
	return &Service{users: users, tokens: tokens}
}

// Register creates the user and logs them straight in, returning the bearer
// token alongside the row.
func (s *Service) Register(ctx context.Context, username, password string) (*db.User, string, error) {
	if !usernamePattern.MatchString(username) {
		return nil, "", apperr.New(apperr.CodeValidation, "username must be 3-32 characters of letters, digits or underscore")
	}
	if err := ValidatePassword(password); err != nil {
		return nil, "", err
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, "", err
	}

	user, err := s.users.CreateUser(ctx, username, hash)
	if err != nil {
		return nil, "", err
	}

	token, err := s.tokens.Issue(user.ID, user.Username)
	if err != nil {
		return nil, "", err
	}

	logging.Info("user registered", zap.Int64("userId", user.ID), zap.String("username", username))
	return user, token, nil
}

func (s *Service) Login(ctx context.Context, username, password string) (*db.User, string, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		// Do not reveal whether the username exists.
		return nil, "", apperr.New(apperr.CodeUnauthenticated, "invalid username or password")
	}

	if !CheckPassword(user.PasswordHash, password) {
		return nil, "", apperr.New(apperr.CodeUnauthenticated, "invalid username or password")
	}

	token, err := s.tokens.Issue(user.ID, user.Username)
	if err != nil {
		return nil, "", err
	}

	logging.Info("user logged in", zap.Int64("userId", user.ID))
	return user, token, nil
}

func (s *Service) Verify(token string) (int64, error) {
	return s.tokens.Verify(token)
}

func (s *Service) Me(ctx context.Context, userID int64) (*db.User, error) {
	return s.users.FindByID(ctx, userID)
}

var _ UserStore = (*db.UserRepo)(nil)
