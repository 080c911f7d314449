package middleware

import (
	"context"
	"net/http"

	"taskify/backend/internal/auth"
	"taskify/backend/internal/monitoring"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const identityKey = "identity"

// retryAfterSeconds is sent with 503 responses when the token or user store
// cannot be reached.
const retryAfterSeconds = "5"

type Authenticator interface {
	Authenticate(ctx context.Context, header string) (*auth.Identity, error)
}

var authMessages = map[auth.Kind]string{
	auth.KindMissingToken:   "Authorization header with a Bearer token is required",
	auth.KindInvalidToken:   "Token is invalid or has been revoked",
	auth.KindTokenExpired:   "Token has expired",
	auth.KindUserNotFound:   "User no longer exists",
	auth.KindInfrastructure: "Authentication is temporarily unavailable, please retry",
}

// Authenticate resolves the bearer token into an identity and stores it on
// both the gin context and the request context.
func Authenticate(authenticator Authenticator, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, err := authenticator.Authenticate(c.Request.Context(), c.GetHeader("Authorization"))
		if err != nil {
			kind := auth.KindOf(err)
			monitoring.RecordAuthOutcome(kind.String())
			abortUnauthenticated(c, kind, err, log)
			return
		}
		monitoring.RecordAuthOutcome("ok")

		c.Set(identityKey, identity)
		c.Request = c.Request.WithContext(auth.WithIdentity(c.Request.Context(), identity))
		c.Next()
	}
}

func abortUnauthenticated(c *gin.Context, kind auth.Kind, err error, log zerolog.Logger) {
	message, ok := authMessages[kind]
	if !ok {
		kind = auth.KindInfrastructure
		message = authMessages[kind]
	}

	if kind == auth.KindInfrastructure {
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("Authentication backend failure")
		c.Header("Retry-After", retryAfterSeconds)
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
			"error":   kind.String(),
			"message": message,
		})
		return
	}

	log.Debug().Err(err).Str("kind", kind.String()).Str("path", c.Request.URL.Path).Msg("Authentication rejected")
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error":   kind.String(),
		"message": message,
	})
}

// CurrentIdentity returns the identity set by Authenticate.
func CurrentIdentity(c *gin.Context) (*auth.Identity, bool) {
	v, exists := c.Get(identityKey)
	if !exists {
		return nil, false
	}
	identity, ok := v.(*auth.Identity)
	return identity, ok && identity != nil
}
