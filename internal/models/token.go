package models

import "time"

// UserToken is a registry row for an issued access token. A token is only
// accepted while its row exists; logout deletes the row.
type UserToken struct {
	ID        uint      `json:"-" gorm:"primaryKey"`
	TokenUUID string    `json:"token_uuid" gorm:"uniqueIndex;not null;size:36"`
	UserID    uint      `json:"user_id" gorm:"not null;index"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at" gorm:"not null;index"`

	User *User `json:"-" gorm:"constraint:OnDelete:CASCADE"`
}

func (UserToken) TableName() string {
	return "user_tokens"
}

func (t *UserToken) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
