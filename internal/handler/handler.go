package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rosterhq/oncall-api/internal/service/audit"
)

// Handler carries the cross-cutting endpoints: health and readiness.
type Handler struct {
	auditor *audit.Service
}

func NewHandler(auditor *audit.Service) *Handler {
	return &Handler{auditor: auditor}
}

// HealthCheck reports liveness plus the last timer-driven dispatch,
// derived from the audit log rather than a dedicated health record.
func (h *Handler) HealthCheck(c *gin.Context) {
	data := gin.H{"status": "healthy"}

	if h.auditor != nil {
		if last, err := h.auditor.LastSystemRun(c.Request.Context()); err == nil && last != nil {
			data["last_cron_run"] = gin.H{
				"ts":     last.TS,
				"action": last.Action,
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data":   data,
	})
}
