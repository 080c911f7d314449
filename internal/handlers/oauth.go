package handlers

import (
	"net/http"

	"taskify/backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

type OAuthProvider interface {
	Begin(w http.ResponseWriter, r *http.Request) error
	Complete(w http.ResponseWriter, r *http.Request) (services.GoogleProfile, error)
}

type OAuthHandler struct {
	provider    OAuthProvider
	authService services.AuthService
	log         zerolog.Logger
}

func NewOAuthHandler(provider OAuthProvider, authService services.AuthService, log zerolog.Logger) *OAuthHandler {
	return &OAuthHandler{provider: provider, authService: authService, log: log}
}

func (h *OAuthHandler) Begin(c *gin.Context) {
	if err := h.provider.Begin(c.Writer, c.Request); err != nil {
		h.log.Error().Err(err).Msg("Failed to start Google sign-in")
		respondError(c, http.StatusInternalServerError, "oauth_failed", "Could not start Google sign-in")
	}
}

func (h *OAuthHandler) Callback(c *gin.Context) {
	profile, err := h.provider.Complete(c.Writer, c.Request)
	if err != nil {
		h.log.Warn().Err(err).Msg("Google sign-in failed")
		respondError(c, http.StatusUnauthorized, "oauth_failed", "Google sign-in failed")
		return
	}

	session, err := h.authService.LoginWithGoogle(c.Request.Context(), profile)
	if err != nil {
		handleServiceError(c, err, h.log)
		return
	}
	c.JSON(http.StatusOK, sessionResponse(session))
}
