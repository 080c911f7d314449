package auth

import (
	"context"
	"time"

	"taskify/backend/internal/models"
)

// Identity is what a successful authentication yields.
type Identity struct {
	UserID    uint
	User      *models.User
	TokenUUID string
	ExpiresAt time.Time
}

type identityKey struct{}

func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(*Identity)
	return id, ok && id != nil
}
