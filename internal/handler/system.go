package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"dreamshare/internal/models"
	"dreamshare/pkg/logger"
	"dreamshare/pkg/response"
)

var startedAt = time.Now()

func (h *Handlers) handleHealthCheck(c *gin.Context) {
	sqlDB, err := h.db.DB()
	if err == nil {
		err = sqlDB.Ping()
	}
	if err != nil {
		response.FailWithStatus(c, http.StatusServiceUnavailable, "database unreachable", nil)
		return
	}

	response.Success(c, "ok", gin.H{
		"status": "healthy",
		"uptime": time.Since(startedAt).String(),
		"time":   time.Now().UTC(),
	})
}

// handleNotificationSocket upgrades the request and keeps pushing
// events until the client goes away.
func (h *Handlers) handleNotificationSocket(c *gin.Context) {
	user := models.CurrentUser(c)
	if err := h.hub.Serve(c.Writer, c.Request, user.ID); err != nil {
		logger.Warn("websocket upgrade failed", zap.Uint("user", user.ID), zap.Error(err))
	}
}
