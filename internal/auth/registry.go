package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"taskify/backend/internal/models"

	"gorm.io/gorm"
)

var ErrTokenNotFound = errors.New("token not registered")

// Registry records issued tokens. A token is valid only while its record
// exists.
type Registry interface {
	Record(ctx context.Context, token *models.UserToken) error
	// Lookup returns ErrTokenNotFound when no record exists.
	Lookup(ctx context.Context, tokenUUID string) (*models.UserToken, error)
	// Revoke removes a record. Revoking an unknown token is not an error.
	// Store failures are reported as KindInfrastructure.
	Revoke(ctx context.Context, tokenUUID string) error
	// RevokeAll removes every record of a user and returns the revoked ids.
	RevokeAll(ctx context.Context, userID uint) ([]string, error)
}

// UserFinder loads live users. FindByID returns repositories.ErrUserNotFound
// for missing or soft-deleted users.
type UserFinder interface {
	FindByID(ctx context.Context, id uint) (*models.User, error)
}

type GormRegistry struct {
	db *gorm.DB
}

func NewGormRegistry(db *gorm.DB) *GormRegistry {
	return &GormRegistry{db: db}
}

func (r *GormRegistry) Record(ctx context.Context, token *models.UserToken) error {
	if err := r.db.WithContext(ctx).Create(token).Error; err != nil {
		return fmt.Errorf("record token: %w", err)
	}
	return nil
}

func (r *GormRegistry) Lookup(ctx context.Context, tokenUUID string) (*models.UserToken, error) {
	var token models.UserToken
	err := r.db.WithContext(ctx).Where("token_uuid = ?", tokenUUID).First(&token).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTokenNotFound
		}
		return nil, fmt.Errorf("lookup token: %w", err)
	}
	return &token, nil
}

func (r *GormRegistry) Revoke(ctx context.Context, tokenUUID string) error {
	err := r.db.WithContext(ctx).
		Where("token_uuid = ?", tokenUUID).
		Delete(&models.UserToken{}).Error
	if err != nil {
		return newError(KindInfrastructure, fmt.Errorf("revoke token: %w", err))
	}
	return nil
}

func (r *GormRegistry) RevokeAll(ctx context.Context, userID uint) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.UserToken{}).
			Where("user_id = ?", userID).
			Pluck("token_uuid", &ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		return tx.Where("token_uuid IN ?", ids).Delete(&models.UserToken{}).Error
	})
	if err != nil {
		return nil, newError(KindInfrastructure, fmt.Errorf("revoke user tokens: %w", err))
	}
	return ids, nil
}

// PurgeExpired deletes records whose expiry is before cutoff. A token is
// still valid at its expiry instant.
func (r *GormRegistry) PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("expires_at < ?", cutoff).
		Delete(&models.UserToken{})
	if res.Error != nil {
		return 0, fmt.Errorf("purge expired tokens: %w", res.Error)
	}
	return res.RowsAffected, nil
}
