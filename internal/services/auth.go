package services

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"

	"survey-app-server/internal/models"
	"survey-app-server/internal/store"
)

// AuthService implements registration, login and token refresh.
type AuthService struct {
	store  CredentialStore
	tokens *TokenService
}

// NewAuthService creates a new AuthService.
func NewAuthService(credentials CredentialStore, tokens *TokenService) *AuthService {
	return &AuthService{store: credentials, tokens: tokens}
}

// Register creates a user with a hashed password. It does not log the user in.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (*models.User, error) {
	_, err := s.store.FindUserByEmail(ctx, email)
	if err == nil {
		return nil, newError(ErrConflict, "User with this email already exists", nil)
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	user := &models.User{
		Name:  name,
		Email: email,
	}
	if err := user.SetPassword(password); err != nil {
		return nil, err
	}

	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	log.WithField("component", "auth").Infof("registered user %s", user.ID)
	return user, nil
}

// Login checks the credentials and returns a fresh token pair.
func (s *AuthService) Login(ctx context.Context, email, password string) (*TokenPair, *models.User, error) {
	user, err := s.store.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, newError(ErrUnauthenticated, "Invalid email or password", nil)
		}
		return nil, nil, err
	}

	if !user.CheckPassword(password) {
		return nil, nil, newError(ErrUnauthenticated, "Invalid email or password", nil)
	}

	pair, err := s.tokens.IssueTokenPair(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}
	return pair, user, nil
}

// Refresh rotates a refresh token into a new token pair.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	_, pair, err := s.tokens.RedeemRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, ErrInvalidToken) {
			return nil, newError(ErrUnauthenticated, "Refresh token not found or expired", nil)
		}
		return nil, err
	}
	return pair, nil
}

// Logout revokes the refresh token of userID. Calling it twice is harmless.
func (s *AuthService) Logout(ctx context.Context, userID string) error {
	return s.tokens.RevokeRefreshTokens(ctx, userID)
}

// Profile returns the user bound to an authenticated request.
func (s *AuthService) Profile(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.store.FindUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, newError(ErrNotFound, "User profile not found", nil)
		}
		return nil, err
	}
	return user, nil
}
