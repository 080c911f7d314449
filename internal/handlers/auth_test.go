package handlers_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"taskify/backend/internal/auth"
	"taskify/backend/internal/handlers"
	"taskify/backend/internal/middleware"
	"taskify/backend/internal/models"
	"taskify/backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Register(ctx context.Context, req services.RegistrationRequest) (*services.Session, error) {
	args := m.Called(ctx, req)
	session, _ := args.Get(0).(*services.Session)
	return session, args.Error(1)
}

func (m *MockAuthService) Login(ctx context.Context, req services.LoginRequest) (*services.Session, error) {
	args := m.Called(ctx, req)
	session, _ := args.Get(0).(*services.Session)
	return session, args.Error(1)
}

func (m *MockAuthService) LoginWithGoogle(ctx context.Context, profile services.GoogleProfile) (*services.Session, error) {
	args := m.Called(ctx, profile)
	session, _ := args.Get(0).(*services.Session)
	return session, args.Error(1)
}

func (m *MockAuthService) Logout(ctx context.Context, tokenUUID string) error {
	return m.Called(ctx, tokenUUID).Error(0)
}

func (m *MockAuthService) LogoutAll(ctx context.Context, userID uint) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func setupAuthHandler() (*MockAuthService, *gin.Engine) {
	gin.SetMode(gin.TestMode)
	mockService := &MockAuthService{}
	handler := handlers.NewAuthHandler(mockService, zerolog.Nop())

	user := &models.User{ID: testUserID}
	authn := middleware.Authenticate(fixedIdentity{&auth.Identity{UserID: testUserID, User: user, TokenUUID: "tok"}}, zerolog.Nop())

	router := gin.New()
	router.POST("/auth/logout", authn, handler.Logout)
	router.POST("/auth/logout-all", authn, handler.LogoutAll)
	return mockService, router
}

func TestLogout(t *testing.T) {
	mockService, router := setupAuthHandler()
	mockService.On("Logout", mock.Anything, "tok").Return(nil)

	w := doJSON(router, http.MethodPost, "/auth/logout", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	mockService.AssertExpectations(t)
}

func TestLogout_RegistryUnavailable(t *testing.T) {
	unavailable := fmt.Errorf("revoke token: %w", &auth.Error{
		Kind: auth.KindInfrastructure,
		Err:  errors.New("evict cached tokens: dial tcp: connection refused"),
	})

	t.Run("logout", func(t *testing.T) {
		mockService, router := setupAuthHandler()
		mockService.On("Logout", mock.Anything, "tok").Return(unavailable)

		w := doJSON(router, http.MethodPost, "/auth/logout", nil)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, "5", w.Header().Get("Retry-After"))
		assert.Equal(t, "auth_unavailable", decodeBody(t, w)["error"])
	})

	t.Run("logout all", func(t *testing.T) {
		mockService, router := setupAuthHandler()
		mockService.On("LogoutAll", mock.Anything, testUserID).Return(0, unavailable)

		w := doJSON(router, http.MethodPost, "/auth/logout-all", nil)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, "5", w.Header().Get("Retry-After"))
	})
}
