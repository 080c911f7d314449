package handlers

import (
	"errors"
	"net/http"

	"taskify/backend/internal/auth"
	"taskify/backend/internal/middleware"
	"taskify/backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"error":   code,
		"message": message,
	})
}

func respondBindError(c *gin.Context, err error) {
	body := gin.H{
		"error":   "invalid_request",
		"message": "Invalid request format",
	}
	if details := validationDetails(err); details != nil {
		body["message"] = "Validation failed"
		body["details"] = details
	}
	c.JSON(http.StatusBadRequest, body)
}

// handleServiceError maps service and auth errors onto HTTP responses.
// Anything unrecognised is logged and reported as a 500.
func handleServiceError(c *gin.Context, err error, log zerolog.Logger) {
	switch {
	case errors.Is(err, services.ErrTaskNotFound):
		respondError(c, http.StatusNotFound, "task_not_found", "Task not found")
	case errors.Is(err, services.ErrUserNotFound):
		respondError(c, http.StatusNotFound, "user_not_found", "User not found")
	case errors.Is(err, services.ErrUserAlreadyExists):
		respondError(c, http.StatusConflict, "user_already_exists", "An account with this email already exists")
	case errors.Is(err, services.ErrInvalidCredentials):
		respondError(c, http.StatusUnauthorized, "invalid_credentials", "Invalid email or password")
	case errors.Is(err, services.ErrWeakPassword):
		respondError(c, http.StatusBadRequest, "weak_password", err.Error())
	case errors.Is(err, services.ErrInvalidTaskStatus):
		respondError(c, http.StatusBadRequest, "invalid_status", "Status must be PENDING, COMPLETED or CANCELLED")
	case errors.Is(err, services.ErrInvalidStatusTransition):
		respondError(c, http.StatusConflict, "invalid_status_transition", "Completed or cancelled tasks cannot change status")
	case errors.Is(err, services.ErrInvalidGender):
		respondError(c, http.StatusBadRequest, "invalid_gender", err.Error())
	case errors.Is(err, services.ErrIncompleteOAuthProfile):
		respondError(c, http.StatusBadRequest, "oauth_profile_incomplete", err.Error())
	case errors.Is(err, auth.ErrInfrastructure):
		c.Header("Retry-After", "5")
		respondError(c, http.StatusServiceUnavailable, "auth_unavailable", "Authentication is temporarily unavailable, please retry")
	default:
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("Request failed")
		respondError(c, http.StatusInternalServerError, "internal_error", "Failed to process request")
	}
}

// mustIdentity returns the authenticated identity. Routes using it are
// always mounted behind middleware.Authenticate.
func mustIdentity(c *gin.Context) (*auth.Identity, bool) {
	identity, ok := middleware.CurrentIdentity(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "missing_token", "User not authenticated")
		return nil, false
	}
	return identity, true
}
