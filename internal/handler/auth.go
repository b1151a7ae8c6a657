package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"dreamshare/internal/models"
	"dreamshare/pkg/logger"
	"dreamshare/pkg/response"
)

const minPasswordLen = 8

func (h *Handlers) handleRegister(c *gin.Context) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, "invalid request body", nil)
		return
	}
	if strings.TrimSpace(req.Username) == "" || strings.TrimSpace(req.Email) == "" {
		response.Fail(c, "username and email are required", nil)
		return
	}
	if len(req.Password) < minPasswordLen {
		response.Fail(c, "password must be at least 8 characters", nil)
		return
	}

	user, err := models.RegisterUser(h.db, req.Username, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, models.ErrUsernameTaken) || errors.Is(err, models.ErrEmailTaken) {
			response.Fail(c, err.Error(), nil)
			return
		}
		logger.Error("registration failed", zap.Error(err))
		response.FailWithStatus(c, http.StatusInternalServerError, "registration failed", nil)
		return
	}

	if err := models.LoginSession(c, user.ID); err != nil {
		response.FailWithStatus(c, http.StatusInternalServerError, "session error", nil)
		return
	}
	response.Created(c, "account created", user)
}

func (h *Handlers) handleLogin(c *gin.Context) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, "invalid request body", nil)
		return
	}

	user, err := models.AuthenticateUser(h.db, req.Username, req.Password)
	if err != nil {
		if errors.Is(err, models.ErrInvalidCredentials) {
			response.FailWithStatus(c, http.StatusUnauthorized, err.Error(), nil)
			return
		}
		response.FailWithStatus(c, http.StatusInternalServerError, "login failed", nil)
		return
	}

	if err := models.LoginSession(c, user.ID); err != nil {
		response.FailWithStatus(c, http.StatusInternalServerError, "session error", nil)
		return
	}
	response.Success(c, "logged in", user)
}

func (h *Handlers) handleLogout(c *gin.Context) {
	if err := models.LogoutSession(c); err != nil {
		response.FailWithStatus(c, http.StatusInternalServerError, "session error", nil)
		return
	}
	response.Success(c, "logged out", nil)
}

func (h *Handlers) handleProfile(c *gin.Context) {
	response.Success(c, "profile", models.CurrentUser(c))
}

func (h *Handlers) handleUpdateProfile(c *gin.Context) {
	var req models.ProfileUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, "invalid request body", nil)
		return
	}

	user := models.CurrentUser(c)
	updated, err := models.UpdateProfile(h.db, user.ID, req)
	if err != nil {
		if errors.Is(err, models.ErrEmailTaken) {
			response.Fail(c, err.Error(), nil)
			return
		}
		response.FailWithStatus(c, http.StatusInternalServerError, "profile update failed", nil)
		return
	}
	response.Success(c, "profile updated", updated)
}

func (h *Handlers) handleSetFavoriteDream(c *gin.Context) {
	var req struct {
		DreamID *uint `json:"dream_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, "invalid request body", nil)
		return
	}

	user := models.CurrentUser(c)
	updated, err := models.SetFavoriteDream(h.db, user.ID, req.DreamID)
	switch {
	case errors.Is(err, models.ErrDreamNotFound):
		response.FailWithStatus(c, http.StatusNotFound, "dream not found", nil)
	case errors.Is(err, models.ErrNotDreamOwner):
		response.FailWithStatus(c, http.StatusForbidden, "only your own dream can be pinned", nil)
	case err != nil:
		response.FailWithStatus(c, http.StatusInternalServerError, "favorite update failed", nil)
	default:
		response.Success(c, "favorite dream updated", updated)
	}
}

func (h *Handlers) handleChangePassword(c *gin.Context) {
	var req struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, "invalid request body", nil)
		return
	}
	if len(req.NewPassword) < minPasswordLen {
		response.Fail(c, "password must be at least 8 characters", nil)
		return
	}

	user := models.CurrentUser(c)
	if err := models.ChangePassword(h.db, user.ID, req.CurrentPassword, req.NewPassword); err != nil {
		if errors.Is(err, models.ErrInvalidCredentials) {
			response.FailWithStatus(c, http.StatusUnauthorized, "current password is incorrect", nil)
			return
		}
		response.FailWithStatus(c, http.StatusInternalServerError, "password change failed", nil)
		return
	}
	response.Success(c, "password changed", nil)
}

func (h *Handlers) handleDeleteAccount(c *gin.Context) {
	var req struct {
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, "invalid request body", nil)
		return
	}

	user := models.CurrentUser(c)
	if !user.CheckPassword(req.Password) {
		response.FailWithStatus(c, http.StatusUnauthorized, "password is incorrect", nil)
		return
	}

	if err := models.DeleteAccount(h.db, user.ID); err != nil {
		logger.Error("account deletion failed", zap.Uint("user", user.ID), zap.Error(err))
		response.FailWithStatus(c, http.StatusInternalServerError, "account deletion failed", nil)
		return
	}
	_ = models.LogoutSession(c)
	response.Success(c, "account deleted", nil)
}
