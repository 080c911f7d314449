package services

import (
	"context"
	"strings"

	"taskify/backend/internal/auth"
	"taskify/backend/internal/models"
	"taskify/backend/internal/repositories"

	"github.com/rs/zerolog"
)

type ProfileUpdate struct {
	FirstName   string `json:"first_name" binding:"required,min=2,max=30"`
	LastName    string `json:"last_name" binding:"required,min=2,max=30"`
	Gender      string `json:"gender" binding:"required,gender"`
	PhoneNumber string `json:"phone_number" binding:"required,number,min=10,max=15"`
}

type UserService interface {
	GetProfile(ctx context.Context, userID uint) (*models.User, error)
	UpdateProfile(ctx context.Context, userID uint, update ProfileUpdate) (*models.User, error)
	DeleteAccount(ctx context.Context, userID uint) error
}

type UserServiceImpl struct {
	users    *repositories.UserRepository
	registry auth.Registry
	log      zerolog.Logger
}

func NewUserService(users *repositories.UserRepository, registry auth.Registry, log zerolog.Logger) *UserServiceImpl {
	return &UserServiceImpl{users: users, registry: registry, log: log}
}

func (s *UserServiceImpl) GetProfile(ctx context.Context, userID uint) (*models.User, error) {
	return s.users.FindByID(ctx, userID)
}

func (s *UserServiceImpl) UpdateProfile(ctx context.Context, userID uint, update ProfileUpdate) (*models.User, error) {
	if !models.IsValidGender(update.Gender) {
		return nil, ErrInvalidGender
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	fields := map[string]interface{}{
		"first_name":   strings.TrimSpace(update.FirstName),
		"last_name":    strings.TrimSpace(update.LastName),
		"gender":       update.Gender,
		"phone_number": update.PhoneNumber,
	}
	if err := s.users.Update(ctx, user, fields); err != nil {
		return nil, err
	}
	return s.users.FindByID(ctx, userID)
}

// DeleteAccount revokes every token of the user, including cached ones, then
// soft-deletes the account and its tasks.
func (s *UserServiceImpl) DeleteAccount(ctx context.Context, userID uint) error {
	if _, err := s.registry.RevokeAll(ctx, userID); err != nil {
		return registryFailure("revoke tokens", err)
	}
	if err := s.users.Delete(ctx, userID); err != nil {
		return err
	}
	s.log.Info().Uint("user_id", userID).Msg("Account deleted")
	return nil
}
