package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the signed access token payload. Expiry is serialized as
// expiresAt and is the only expiry the verifier enforces; the registered exp
// claim is carried for other consumers.
type Claims struct {
	UserID    uint      `json:"id"`
	TokenUUID string    `json:"tokenUUID"`
	Expiry    time.Time `json:"expiresAt"`
	jwt.RegisteredClaims
}

func (c *Claims) validateShape(issuer string) error {
	switch {
	case c.UserID == 0:
		return errors.New("token has no user id")
	case c.TokenUUID == "":
		return errors.New("token has no token id")
	case c.Expiry.IsZero():
		return errors.New("token has no expiry")
	case c.Issuer != issuer:
		return errors.New("token issuer mismatch")
	}
	return nil
}

// TokenConfig carries the signing inputs shared by Issuer and Verifier.
type TokenConfig struct {
	Secret string
	Issuer string
	TTL    time.Duration
}

func (c TokenConfig) validate() error {
	if c.Secret == "" {
		return errors.New("auth: signing secret is required")
	}
	if c.Issuer == "" {
		return errors.New("auth: issuer is required")
	}
	return nil
}

type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock replaces time.Now for expiry computation and checks.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
