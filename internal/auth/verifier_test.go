package auth_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"taskify/backend/internal/auth"
	"taskify/backend/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

const (
	testSecret = "test-signing-secret"
	testIssuer = "taskify-test"
)

type VerifierTestSuite struct {
	suite.Suite
	clock    *fakeClock
	registry *memRegistry
	users    *memUsers
	issuer   *auth.Issuer
	verifier *auth.Verifier
	ctx      context.Context
}

func (suite *VerifierTestSuite) SetupTest() {
	suite.ctx = context.Background()
	suite.clock = newFakeClock()
	suite.registry = newMemRegistry()
	suite.users = newMemUsers(
		&models.User{ID: 42, Email: "user42@example.com", FirstName: "Forty", LastName: "Two"},
		&models.User{ID: 7, Email: "user7@example.com"},
	)

	cfg := auth.TokenConfig{Secret: testSecret, Issuer: testIssuer, TTL: time.Hour}

	var err error
	suite.issuer, err = auth.NewIssuer(cfg, suite.registry, auth.WithClock(suite.clock.Now))
	suite.Require().NoError(err)
	suite.verifier, err = auth.NewVerifier(cfg, suite.registry, suite.users, auth.WithClock(suite.clock.Now))
	suite.Require().NoError(err)
}

func (suite *VerifierTestSuite) issue(userID uint) *auth.IssuedToken {
	token, err := suite.issuer.Issue(suite.ctx, userID)
	suite.Require().NoError(err)
	return token
}

func (suite *VerifierTestSuite) authenticate(token string) (*auth.Identity, error) {
	return suite.verifier.Authenticate(suite.ctx, "Bearer "+token)
}

func (suite *VerifierTestSuite) sign(method jwt.SigningMethod, key interface{}, claims auth.Claims) string {
	signed, err := jwt.NewWithClaims(method, claims).SignedString(key)
	suite.Require().NoError(err)
	return signed
}

func (suite *VerifierTestSuite) registeredClaims(userID uint, tokenUUID string, expiry time.Time) auth.Claims {
	suite.registry.put(models.UserToken{TokenUUID: tokenUUID, UserID: userID, ExpiresAt: expiry})
	return auth.Claims{
		UserID:    userID,
		TokenUUID: tokenUUID,
		Expiry:    expiry,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    testIssuer,
			ExpiresAt: jwt.NewNumericDate(expiry),
		},
	}
}

func (suite *VerifierTestSuite) TestIssueThenAuthenticateRoundTrip() {
	issued := suite.issue(42)

	identity, err := suite.authenticate(issued.Token)

	suite.Require().NoError(err)
	assert.Equal(suite.T(), uint(42), identity.UserID)
	assert.Equal(suite.T(), issued.TokenUUID, identity.TokenUUID)
	assert.Equal(suite.T(), "user42@example.com", identity.User.Email)

	_, records := suite.registry.snapshot()
	record, ok := records[issued.TokenUUID]
	suite.Require().True(ok)
	assert.Equal(suite.T(), uint(42), record.UserID)
	assert.True(suite.T(), record.ExpiresAt.Equal(suite.clock.Now().Add(time.Hour)))
	assert.True(suite.T(), issued.ExpiresAt.Equal(record.ExpiresAt))
}

func (suite *VerifierTestSuite) TestIssueGeneratesDistinctTokenIDs() {
	first := suite.issue(42)
	second := suite.issue(42)

	assert.NotEqual(suite.T(), first.TokenUUID, second.TokenUUID)
	assert.NotEqual(suite.T(), first.Token, second.Token)
}

func (suite *VerifierTestSuite) TestTokenLifecycleScenario() {
	start := suite.clock.Now()
	issued := suite.issue(42)

	suite.clock.Set(start.Add(30 * time.Minute))
	identity, err := suite.authenticate(issued.Token)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), uint(42), identity.UserID)

	suite.clock.Set(start.Add(2 * time.Hour))
	_, err = suite.authenticate(issued.Token)
	assert.ErrorIs(suite.T(), err, auth.ErrTokenExpired)
}

func (suite *VerifierTestSuite) TestRevokedTokenIsInvalidBeforeExpiry() {
	start := suite.clock.Now()
	issued := suite.issue(42)

	suite.clock.Set(start.Add(10 * time.Minute))
	suite.Require().NoError(suite.registry.Revoke(suite.ctx, issued.TokenUUID))

	suite.clock.Set(start.Add(20 * time.Minute))
	_, err := suite.authenticate(issued.Token)
	assert.ErrorIs(suite.T(), err, auth.ErrInvalidToken)
}

func (suite *VerifierTestSuite) TestExpiredAndRevokedReportsExpired() {
	start := suite.clock.Now()
	issued := suite.issue(42)
	suite.Require().NoError(suite.registry.Revoke(suite.ctx, issued.TokenUUID))

	suite.clock.Set(start.Add(2 * time.Hour))
	_, err := suite.authenticate(issued.Token)
	assert.ErrorIs(suite.T(), err, auth.ErrTokenExpired)
}

func (suite *VerifierTestSuite) TestTokenIsValidAtItsExpiryInstant() {
	start := suite.clock.Now()
	issued := suite.issue(42)

	suite.clock.Set(start.Add(time.Hour))
	_, err := suite.authenticate(issued.Token)
	suite.Require().NoError(err)

	suite.clock.Set(start.Add(time.Hour + time.Nanosecond))
	_, err = suite.authenticate(issued.Token)
	assert.ErrorIs(suite.T(), err, auth.ErrTokenExpired)
}

func (suite *VerifierTestSuite) TestExplicitExpiryIgnoresFutureRegisteredExp() {
	now := suite.clock.Now()
	claims := suite.registeredClaims(42, "forged-expired", now.Add(-time.Minute))
	claims.RegisteredClaims.ExpiresAt = jwt.NewNumericDate(now.Add(24 * time.Hour))

	token := suite.sign(jwt.SigningMethodHS256, []byte(testSecret), claims)

	_, err := suite.authenticate(token)
	assert.ErrorIs(suite.T(), err, auth.ErrTokenExpired)
}

func (suite *VerifierTestSuite) TestMissingOrMalformedHeader() {
	issued := suite.issue(42)

	headers := map[string]string{
		"empty":              "",
		"whitespace":         "   ",
		"scheme only":        "Bearer",
		"scheme with spaces": "Bearer    ",
		"basic scheme":       "Basic " + issued.Token,
		"no scheme":          issued.Token,
		"extra field":        "Bearer " + issued.Token + " extra",
	}

	for name, header := range headers {
		suite.Run(name, func() {
			_, err := suite.verifier.Authenticate(suite.ctx, header)
			assert.ErrorIs(suite.T(), err, auth.ErrMissingToken)
		})
	}
}

func (suite *VerifierTestSuite) TestSchemeIsCaseInsensitive() {
	issued := suite.issue(42)

	identity, err := suite.verifier.Authenticate(suite.ctx, "bearer "+issued.Token)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), uint(42), identity.UserID)
}

func (suite *VerifierTestSuite) TestInvalidTokens() {
	future := suite.clock.Now().Add(time.Hour)

	wrongIssuer := suite.registeredClaims(42, "wrong-issuer", future)
	wrongIssuer.Issuer = "someone-else"

	noTokenID := suite.registeredClaims(42, "", future)
	noUser := suite.registeredClaims(0, "no-user", future)
	noExpiry := suite.registeredClaims(42, "no-expiry", future)
	noExpiry.Expiry = time.Time{}

	valid := suite.registeredClaims(42, "valid-claims", future)

	tokens := map[string]string{
		"garbage":           "not.a.jwt",
		"random text":       "abc",
		"wrong secret":      suite.sign(jwt.SigningMethodHS256, []byte("other-secret"), valid),
		"hs512":             suite.sign(jwt.SigningMethodHS512, []byte(testSecret), valid),
		"alg none":          suite.sign(jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, valid),
		"wrong issuer":      suite.sign(jwt.SigningMethodHS256, []byte(testSecret), wrongIssuer),
		"missing token id":  suite.sign(jwt.SigningMethodHS256, []byte(testSecret), noTokenID),
		"missing user id":   suite.sign(jwt.SigningMethodHS256, []byte(testSecret), noUser),
		"missing expiresAt": suite.sign(jwt.SigningMethodHS256, []byte(testSecret), noExpiry),
	}

	for name, token := range tokens {
		suite.Run(name, func() {
			_, err := suite.authenticate(token)
			assert.ErrorIs(suite.T(), err, auth.ErrInvalidToken)
			assert.Equal(suite.T(), auth.KindInvalidToken, auth.KindOf(err))
		})
	}
}

func (suite *VerifierTestSuite) TestTamperedPayloadIsInvalid() {
	issued := suite.issue(42)
	other := suite.issue(7)

	parts := strings.Split(issued.Token, ".")
	otherParts := strings.Split(other.Token, ".")
	tampered := parts[0] + "." + otherParts[1] + "." + parts[2]

	_, err := suite.authenticate(tampered)
	assert.ErrorIs(suite.T(), err, auth.ErrInvalidToken)
}

func (suite *VerifierTestSuite) TestRegistryEntryOfAnotherUserIsInvalid() {
	future := suite.clock.Now().Add(time.Hour)
	claims := suite.registeredClaims(42, "shared-id", future)
	suite.registry.put(models.UserToken{TokenUUID: "shared-id", UserID: 7, ExpiresAt: future})

	_, err := suite.authenticate(suite.sign(jwt.SigningMethodHS256, []byte(testSecret), claims))
	assert.ErrorIs(suite.T(), err, auth.ErrInvalidToken)
}

func (suite *VerifierTestSuite) TestDeletedUserIsNotFound() {
	issued := suite.issue(42)
	suite.users.remove(42)

	_, err := suite.authenticate(issued.Token)
	assert.ErrorIs(suite.T(), err, auth.ErrUserNotFound)
}

func (suite *VerifierTestSuite) TestRegistryFailureIsRetryableInfrastructureError() {
	issued := suite.issue(42)
	suite.registry.lookupErr = errors.New("connection refused")

	_, err := suite.authenticate(issued.Token)

	assert.ErrorIs(suite.T(), err, auth.ErrInfrastructure)
	var authErr *auth.Error
	suite.Require().ErrorAs(err, &authErr)
	assert.True(suite.T(), authErr.Retryable())
	assert.ErrorContains(suite.T(), err, "connection refused")
}

func (suite *VerifierTestSuite) TestUserStoreFailureIsInfrastructureError() {
	issued := suite.issue(42)
	suite.users.err = errors.New("db timeout")

	_, err := suite.authenticate(issued.Token)
	assert.ErrorIs(suite.T(), err, auth.ErrInfrastructure)
}

func (suite *VerifierTestSuite) TestExpiryIsCheckedBeforeRegistry() {
	start := suite.clock.Now()
	issued := suite.issue(42)
	suite.registry.lookupErr = errors.New("registry down")

	suite.clock.Set(start.Add(2 * time.Hour))
	_, err := suite.authenticate(issued.Token)
	assert.ErrorIs(suite.T(), err, auth.ErrTokenExpired)
}

func (suite *VerifierTestSuite) TestIssueFailsWhenRegistryWriteFails() {
	suite.registry.recordErr = errors.New("disk full")

	token, err := suite.issuer.Issue(suite.ctx, 42)

	assert.Nil(suite.T(), token)
	assert.ErrorIs(suite.T(), err, auth.ErrInfrastructure)
}

func (suite *VerifierTestSuite) TestConcurrentAuthenticationIsReadOnly() {
	issued := suite.issue(42)
	writesBefore, recordsBefore := suite.registry.snapshot()

	const workers = 8
	identities := make([]*auth.Identity, workers)
	errs := make([]error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			identities[i], errs[i] = suite.authenticate(issued.Token)
		}(i)
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		suite.Require().NoError(errs[i])
		assert.Equal(suite.T(), identities[0], identities[i])
	}

	writesAfter, recordsAfter := suite.registry.snapshot()
	assert.Equal(suite.T(), writesBefore, writesAfter)
	assert.Equal(suite.T(), recordsBefore, recordsAfter)
}

func (suite *VerifierTestSuite) TestIdentityContextRoundTrip() {
	issued := suite.issue(42)
	identity, err := suite.authenticate(issued.Token)
	suite.Require().NoError(err)

	ctx := auth.WithIdentity(suite.ctx, identity)
	got, ok := auth.IdentityFromContext(ctx)

	suite.Require().True(ok)
	assert.Same(suite.T(), identity, got)

	_, ok = auth.IdentityFromContext(context.Background())
	assert.False(suite.T(), ok)
}

func TestVerifierTestSuite(t *testing.T) {
	suite.Run(t, new(VerifierTestSuite))
}

func TestNewVerifierRequiresConfiguration(t *testing.T) {
	registry := newMemRegistry()
	users := newMemUsers()

	_, err := auth.NewVerifier(auth.TokenConfig{Issuer: testIssuer}, registry, users)
	assert.Error(t, err)

	_, err = auth.NewVerifier(auth.TokenConfig{Secret: testSecret, Issuer: testIssuer}, nil, users)
	assert.Error(t, err)

	_, err = auth.NewIssuer(auth.TokenConfig{Secret: testSecret, Issuer: testIssuer}, registry)
	assert.Error(t, err, "zero TTL must be rejected")
}

func TestErrorKinds(t *testing.T) {
	assert.Equal(t, "token_expired", auth.KindTokenExpired.String())
	assert.Equal(t, auth.KindInfrastructure, auth.KindOf(errors.New("plain")))
	assert.Equal(t, auth.KindUnknown, auth.KindOf(nil))
	assert.False(t, errors.Is(auth.ErrTokenExpired, auth.ErrInvalidToken))
	assert.True(t, errors.Is(auth.ErrMissingToken, auth.ErrMissingToken))
	assert.False(t, auth.ErrInvalidToken.Retryable())
}
