package handlers

import (
	"net/http"
	"time"

	"taskify/backend/internal/models"
	"taskify/backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

type AuthHandler struct {
	authService services.AuthService
	log         zerolog.Logger
}

func NewAuthHandler(authService services.AuthService, log zerolog.Logger) *AuthHandler {
	RegisterValidators()
	return &AuthHandler{authService: authService, log: log}
}

type TokenResponse struct {
	Token     string       `json:"token"`
	TokenType string       `json:"token_type"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

func sessionResponse(session *services.Session) TokenResponse {
	return TokenResponse{
		Token:     session.Token.Token,
		TokenType: "Bearer",
		ExpiresAt: session.Token.ExpiresAt,
		User:      session.User,
	}
}

func (h *AuthHandler) SignUp(c *gin.Context) {
	var req services.RegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	session, err := h.authService.Register(c.Request.Context(), req)
	if err != nil {
		handleServiceError(c, err, h.log)
		return
	}
	c.JSON(http.StatusCreated, sessionResponse(session))
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req services.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	session, err := h.authService.Login(c.Request.Context(), req)
	if err != nil {
		handleServiceError(c, err, h.log)
		return
	}
	c.JSON(http.StatusOK, sessionResponse(session))
}

// Logout revokes the token the request was authenticated with.
func (h *AuthHandler) Logout(c *gin.Context) {
	identity, ok := mustIdentity(c)
	if !ok {
		return
	}
	if err := h.authService.Logout(c.Request.Context(), identity.TokenUUID); err != nil {
		handleServiceError(c, err, h.log)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Successfully logged out"})
}

func (h *AuthHandler) LogoutAll(c *gin.Context) {
	identity, ok := mustIdentity(c)
	if !ok {
		return
	}
	revoked, err := h.authService.LogoutAll(c.Request.Context(), identity.UserID)
	if err != nil {
		handleServiceError(c, err, h.log)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":        "Logged out of all sessions",
		"revoked_tokens": revoked,
	})
}
