package handlers

import (
	"net/http"

	"taskify/backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

type UserHandler struct {
	userService services.UserService
	log         zerolog.Logger
}

func NewUserHandler(userService services.UserService, log zerolog.Logger) *UserHandler {
	RegisterValidators()
	return &UserHandler{userService: userService, log: log}
}

func (h *UserHandler) GetProfile(c *gin.Context) {
	identity, ok := mustIdentity(c)
	if !ok {
		return
	}
	user, err := h.userService.GetProfile(c.Request.Context(), identity.UserID)
	if err != nil {
		handleServiceError(c, err, h.log)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) UpdateProfile(c *gin.Context) {
	identity, ok := mustIdentity(c)
	if !ok {
		return
	}

	var req services.ProfileUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	user, err := h.userService.UpdateProfile(c.Request.Context(), identity.UserID, req)
	if err != nil {
		handleServiceError(c, err, h.log)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) DeleteAccount(c *gin.Context) {
	identity, ok := mustIdentity(c)
	if !ok {
		return
	}
	if err := h.userService.DeleteAccount(c.Request.Context(), identity.UserID); err != nil {
		handleServiceError(c, err, h.log)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Account deleted"})
}
