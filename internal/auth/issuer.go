package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"taskify/backend/internal/models"

	"github.com/gofrs/uuid"
	"github.com/golang-jwt/jwt/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// IssuedToken is a freshly signed access token and its registry identity.
type IssuedToken struct {
	Token     string    `json:"token"`
	TokenUUID string    `json:"-"`
	UserID    uint      `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
}

type Issuer struct {
	secret   []byte
	issuer   string
	ttl      time.Duration
	registry Registry
	now      func() time.Time
}

func NewIssuer(cfg TokenConfig, registry Registry, opts ...Option) (*Issuer, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.TTL <= 0 {
		return nil, errors.New("auth: token TTL must be positive")
	}
	if registry == nil {
		return nil, errors.New("auth: registry is required")
	}
	o := buildOptions(opts)
	return &Issuer{
		secret:   []byte(cfg.Secret),
		issuer:   cfg.Issuer,
		ttl:      cfg.TTL,
		registry: registry,
		now:      o.now,
	}, nil
}

// Issue signs a new token for userID and records it in the registry. The
// token is not returned unless the record was written.
func (i *Issuer) Issue(ctx context.Context, userID uint) (_ *IssuedToken, err error) {
	ctx, span := tracer.Start(ctx, "auth.Issue",
		trace.WithAttributes(attribute.Int64("user.id", int64(userID))))
	defer func() { endSpan(span, err) }()

	if userID == 0 {
		return nil, errors.New("auth: cannot issue a token without a user id")
	}

	id, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("generate token id: %w", err)
	}
	tokenUUID := id.String()

	now := i.now().UTC()
	expiresAt := now.Add(i.ttl)

	claims := Claims{
		UserID:    userID,
		TokenUUID: tokenUUID,
		Expiry:    expiresAt,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.issuer,
			Subject:   strconv.FormatUint(uint64(userID), 10),
			ID:        tokenUUID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	record := &models.UserToken{
		TokenUUID: tokenUUID,
		UserID:    userID,
		ExpiresAt: expiresAt,
	}
	if err := i.registry.Record(ctx, record); err != nil {
		return nil, newError(KindInfrastructure, err)
	}

	span.SetAttributes(attribute.String("token.id", tokenUUID))
	return &IssuedToken{
		Token:     signed,
		TokenUUID: tokenUUID,
		UserID:    userID,
		ExpiresAt: expiresAt,
	}, nil
}

func (i *Issuer) TTL() time.Duration {
	return i.ttl
}
