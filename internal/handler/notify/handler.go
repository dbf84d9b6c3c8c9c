package notify

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rosterhq/oncall-api/internal/handler"
	"github.com/rosterhq/oncall-api/internal/model"
	"github.com/rosterhq/oncall-api/internal/service/dispatch"
)

type Handler struct {
	dispatchSvc *dispatch.Service
}

func NewHandler(dispatchSvc *dispatch.Service) *Handler {
	return &Handler{dispatchSvc: dispatchSvc}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/notify", h.Notify)
}

type notifyRequest struct {
	EntryID string `json:"entry_id"`
	Mode    string `json:"mode" binding:"omitempty,oneof=email sms both"`
	Force   bool   `json:"force"`
	DryRun  bool   `json:"dry_run"`
}

// Notify runs a manual dispatch. With entry_id it targets a single
// entry directly; without it the day-of-week classification applies,
// which lets an operator replay the timer's decision by hand.
func (h *Handler) Notify(c *gin.Context) {
	var req notifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	result, err := h.dispatchSvc.Dispatch(c.Request.Context(), dispatch.Options{
		EntryID: req.EntryID,
		Mode:    model.NotifyMode(req.Mode),
		Force:   req.Force,
		DryRun:  req.DryRun,
		Auto:    false,
	})
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(result))
}
