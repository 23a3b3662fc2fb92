package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"survey-app-server/internal/config"
	"survey-app-server/internal/models"
	"survey-app-server/internal/store"
	"survey-app-server/internal/utils"
)

// CredentialStore persists users and their single refresh token.
type CredentialStore interface {
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	FindUserByID(ctx context.Context, id string) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error
	UpsertRefreshToken(ctx context.Context, userID, token string, expiresAt time.Time) error
	FindRefreshToken(ctx context.Context, token string, now time.Time) (*models.RefreshToken, error)
	DeleteRefreshToken(ctx context.Context, userID string) error
}

// TokenPair is returned on login and refresh.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// TokenService issues and verifies access tokens and rotates refresh tokens.
type TokenService struct {
	store      CredentialStore
	secret     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewTokenService creates a TokenService from the JWT settings of cfg.
func NewTokenService(credentials CredentialStore, cfg *config.Config) *TokenService {
	return &TokenService{
		store:      credentials,
		secret:     cfg.JWTSecret,
		accessTTL:  time.Duration(cfg.JWTExpirationMinutes) * time.Minute,
		refreshTTL: time.Duration(cfg.RefreshTokenTTLHours) * time.Hour,
		now:        time.Now,
	}
}

// IssueAccessToken signs a short-lived token carrying userID.
func (s *TokenService) IssueAccessToken(userID string) (string, error) {
	return utils.GenerateAccessToken(userID, s.secret, s.accessTTL, s.now())
}

// VerifyAccessToken returns the user id of a valid access token, or
// ErrInvalidToken.
func (s *TokenService) VerifyAccessToken(token string) (string, error) {
	claims, err := utils.ValidateToken(token, s.secret)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims.UserID, nil
}

// IssueRefreshToken generates a new opaque refresh token for userID and
// stores it in place of the user's previous one.
func (s *TokenService) IssueRefreshToken(ctx context.Context, userID string) (string, error) {
	token := uuid.NewString()
	if err := s.store.UpsertRefreshToken(ctx, userID, token, s.now().Add(s.refreshTTL)); err != nil {
		return "", err
	}
	return token, nil
}

// IssueTokenPair issues an access token and a refresh token for userID.
func (s *TokenService) IssueTokenPair(ctx context.Context, userID string) (*TokenPair, error) {
	accessToken, err := s.IssueAccessToken(userID)
	if err != nil {
		return nil, err
	}
	refreshToken, err := s.IssueRefreshToken(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// RedeemRefreshToken exchanges a live refresh token for a new pair belonging
// to the same user. The redeemed value is overwritten and cannot be used again.
func (s *TokenService) RedeemRefreshToken(ctx context.Context, token string) (string, *TokenPair, error) {
	if token == "" {
		return "", nil, ErrInvalidToken
	}

	record, err := s.store.FindRefreshToken(ctx, token, s.now())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", nil, ErrInvalidToken
		}
		return "", nil, err
	}

	pair, err := s.IssueTokenPair(ctx, record.UserID)
	if err != nil {
		return "", nil, err
	}
	return record.UserID, pair, nil
}

// RevokeRefreshTokens drops the refresh token of userID.
func (s *TokenService) RevokeRefreshTokens(ctx context.Context, userID string) error {
	return s.store.DeleteRefreshToken(ctx, userID)
}
