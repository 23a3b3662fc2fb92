package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"survey-app-server/internal/models"
)

// CredentialStore persists users and their refresh tokens.
type CredentialStore struct {
	DB *gorm.DB
}

// NewCredentialStore creates a new CredentialStore.
func NewCredentialStore(db *gorm.DB) *CredentialStore {
	return &CredentialStore{DB: db}
}

// FindUserByEmail looks a user up by exact email match.
func (s *CredentialStore) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.DB.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// FindUserByID looks a user up by id.
func (s *CredentialStore) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.DB.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// CreateUser inserts a new user. The id is assigned by BaseModel.BeforeCreate.
func (s *CredentialStore) CreateUser(ctx context.Context, user *models.User) error {
	if err := s.DB.WithContext(ctx).Create(user).Error; err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// UpsertRefreshToken stores token as the only refresh token of userID,
// overwriting any previous one.
func (s *CredentialStore) UpsertRefreshToken(ctx context.Context, userID, token string, expiresAt time.Time) error {
	record := models.RefreshToken{
		UserID:    userID,
		Token:     token,
		ExpiresAt: expiresAt,
	}
	err := s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"token", "expires_at", "updated_at"}),
	}).Create(&record).Error
	if err != nil {
		return fmt.Errorf("failed to store refresh token: %w", err)
	}
	return nil
}

// FindRefreshToken returns the record holding token if it has not expired at now.
func (s *CredentialStore) FindRefreshToken(ctx context.Context, token string, now time.Time) (*models.RefreshToken, error) {
	var record models.RefreshToken
	err := s.DB.WithContext(ctx).
		Where("token = ? AND expires_at > ?", token, now).
		First(&record).Error
	if err != nil {
		return nil, translate(err)
	}
	return &record, nil
}

// DeleteRefreshToken removes the refresh token of userID, if any.
func (s *CredentialStore) DeleteRefreshToken(ctx context.Context, userID string) error {
	if err := s.DB.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.RefreshToken{}).Error; err != nil {
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	return nil
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
