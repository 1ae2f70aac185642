package models

import "time"

// RevokedToken records a logged out token until it would have expired anyway
type RevokedToken struct {
	JTI       string    `gorm:"primaryKey;size:36" json:"jti"`
	ExpiresAt time.Time `gorm:"not null;index:idx_revoked_tokens_expires_at" json:"expires_at"`
}

func (RevokedToken) TableName() string {
	return "revoked_tokens"
}
