package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"taskify/backend/internal/auth"
	"taskify/backend/internal/models"
	"taskify/backend/internal/repositories"

	"github.com/rs/zerolog"
)

type RegistrationRequest struct {
	FirstName   string `json:"first_name" binding:"required,min=2,max=30"`
	LastName    string `json:"last_name" binding:"required,min=2,max=30"`
	Email       string `json:"email" binding:"required,email,max=255"`
	PhoneNumber string `json:"phone_number" binding:"omitempty,number,min=10,max=15"`
	Password    string `json:"password" binding:"required,min=8,max=72"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// GoogleProfile is the subset of an OAuth user profile needed to sign in.
type GoogleProfile struct {
	ProviderUserID string
	Email          string
	FirstName      string
	LastName       string
}

// Session is a signed-in user and the token that authenticates them.
type Session struct {
	User  *models.User      `json:"user"`
	Token *auth.IssuedToken `json:"token"`
}

type TokenIssuer interface {
	Issue(ctx context.Context, userID uint) (*auth.IssuedToken, error)
}

type AuthService interface {
	Register(ctx context.Context, req RegistrationRequest) (*Session, error)
	Login(ctx context.Context, req LoginRequest) (*Session, error)
	LoginWithGoogle(ctx context.Context, profile GoogleProfile) (*Session, error)
	Logout(ctx context.Context, tokenUUID string) error
	LogoutAll(ctx context.Context, userID uint) (int, error)
}

type AuthServiceImpl struct {
	users         *repositories.UserRepository
	issuer        TokenIssuer
	registry      auth.Registry
	notifications NotificationQueue
	bcryptCost    int
	log           zerolog.Logger
}

func NewAuthService(
	users *repositories.UserRepository,
	issuer TokenIssuer,
	registry auth.Registry,
	notifications NotificationQueue,
	bcryptCost int,
	log zerolog.Logger,
) *AuthServiceImpl {
	if notifications == nil {
		notifications = NoopNotifications()
	}
	return &AuthServiceImpl{
		users:         users,
		issuer:        issuer,
		registry:      registry,
		notifications: notifications,
		bcryptCost:    bcryptCost,
		log:           log,
	}
}

func (s *AuthServiceImpl) Register(ctx context.Context, req RegistrationRequest) (*Session, error) {
	if err := ValidatePassword(req.Password); err != nil {
		return nil, err
	}

	email := models.NormalizeEmail(req.Email)
	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, ErrUserAlreadyExists
	} else if !errors.Is(err, repositories.ErrUserNotFound) {
		return nil, err
	}

	hashed, err := HashPassword(req.Password, s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		Email:       email,
		Password:    hashed,
		FirstName:   strings.TrimSpace(req.FirstName),
		LastName:    strings.TrimSpace(req.LastName),
		PhoneNumber: req.PhoneNumber,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicateEmail) {
			return nil, ErrUserAlreadyExists
		}
		return nil, err
	}

	token, err := s.issuer.Issue(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	if err := s.notifications.EnqueueWelcomeEmail(ctx, user.Email, user.FirstName); err != nil {
		s.log.Warn().Err(err).Str("user_uuid", user.UUID.String()).Msg("Failed to enqueue welcome email")
	}

	s.log.Info().Str("user_uuid", user.UUID.String()).Msg("User registered")
	return &Session{User: user, Token: token}, nil
}

func (s *AuthServiceImpl) Login(ctx context.Context, req LoginRequest) (*Session, error) {
	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.HasPassword() || !VerifyPassword(user.Password, req.Password) {
		return nil, ErrInvalidCredentials
	}

	token, err := s.issuer.Issue(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return &Session{User: user, Token: token}, nil
}

// LoginWithGoogle signs in the account linked to the Google id. An existing
// account with the same email is linked on first use; otherwise a new
// password-less account is created.
func (s *AuthServiceImpl) LoginWithGoogle(ctx context.Context, profile GoogleProfile) (*Session, error) {
	if profile.ProviderUserID == "" || strings.TrimSpace(profile.Email) == "" {
		return nil, ErrIncompleteOAuthProfile
	}

	user, err := s.users.FindByGoogleID(ctx, profile.ProviderUserID)
	switch {
	case err == nil:
	case errors.Is(err, repositories.ErrUserNotFound):
		user, err = s.linkOrCreateGoogleUser(ctx, profile)
		if err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	token, err := s.issuer.Issue(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return &Session{User: user, Token: token}, nil
}

func (s *AuthServiceImpl) linkOrCreateGoogleUser(ctx context.Context, profile GoogleProfile) (*models.User, error) {
	googleID := profile.ProviderUserID

	user, err := s.users.FindByEmail(ctx, profile.Email)
	if err == nil {
		err = s.users.Update(ctx, user, map[string]interface{}{
			"google_id":         googleID,
			"is_email_verified": true,
		})
		if err != nil {
			return nil, err
		}
		user.GoogleID = &googleID
		user.IsEmailVerified = true
		s.log.Info().Str("user_uuid", user.UUID.String()).Msg("Linked Google account")
		return user, nil
	}
	if !errors.Is(err, repositories.ErrUserNotFound) {
		return nil, err
	}

	user = &models.User{
		Email:           profile.Email,
		FirstName:       truncate(profile.FirstName, 30),
		LastName:        truncate(profile.LastName, 30),
		GoogleID:        &googleID,
		IsEmailVerified: true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicateEmail) {
			return nil, ErrUserAlreadyExists
		}
		return nil, err
	}
	if err := s.notifications.EnqueueWelcomeEmail(ctx, user.Email, user.FirstName); err != nil {
		s.log.Warn().Err(err).Str("user_uuid", user.UUID.String()).Msg("Failed to enqueue welcome email")
	}
	s.log.Info().Str("user_uuid", user.UUID.String()).Msg("User registered with Google")
	return user, nil
}

// Logout revokes a single token. Revoking an unknown token succeeds.
func (s *AuthServiceImpl) Logout(ctx context.Context, tokenUUID string) error {
	if err := s.registry.Revoke(ctx, tokenUUID); err != nil {
		return registryFailure("revoke token", err)
	}
	return nil
}

// LogoutAll revokes every token of the user and returns how many were live.
func (s *AuthServiceImpl) LogoutAll(ctx context.Context, userID uint) (int, error) {
	ids, err := s.registry.RevokeAll(ctx, userID)
	if err != nil {
		return 0, registryFailure("revoke tokens", err)
	}
	return len(ids), nil
}

// registryFailure reports a registry error as a retryable auth failure unless
// the registry already classified it.
func registryFailure(op string, err error) error {
	var ae *auth.Error
	if errors.As(err, &ae) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w", op, &auth.Error{Kind: auth.KindInfrastructure, Err: err})
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) > n {
		return string(r[:n])
	}
	return s
}
