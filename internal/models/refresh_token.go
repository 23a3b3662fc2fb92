package models

import (
	"time"
)

// RefreshToken is the single live refresh token of a user. Logging in or
// refreshing overwrites the row keyed by UserID.
type RefreshToken struct {
	BaseModel
	UserID    string    `gorm:"size:36;uniqueIndex;not null" json:"userId"`
	Token     string    `gorm:"size:64;index;not null" json:"-"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Expired reports whether the token is no longer redeemable at now.
func (t *RefreshToken) Expired(now time.Time) bool {
	return !t.ExpiresAt.After(now)
}
