package roster

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rosterhq/oncall-api/internal/handler"
	"github.com/rosterhq/oncall-api/internal/middleware"
	"github.com/rosterhq/oncall-api/internal/model"
	"github.com/rosterhq/oncall-api/internal/repository"
	"github.com/rosterhq/oncall-api/internal/service/audit"
)

type Handler struct {
	rosters repository.RosterRepository
	auditor *audit.Service
}

func NewHandler(rosters repository.RosterRepository, auditor *audit.Service) *Handler {
	return &Handler{rosters: rosters, auditor: auditor}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/rosters", h.List)
	r.PUT("/rosters/:dept", h.Update)
}

func (h *Handler) List(c *gin.Context) {
	roster, err := h.rosters.GetRoster(c.Request.Context())
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(roster))
}

type updateRequest struct {
	People []model.Person `json:"people" binding:"required,dive"`
}

func (h *Handler) Update(c *gin.Context) {
	dept := c.Param("dept")

	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	if err := h.rosters.PutDepartment(c.Request.Context(), dept, req.People); err != nil {
		handler.RespondError(c, err)
		return
	}

	payload := map[string]interface{}{
		"department": dept,
		"people":     len(req.People),
		"updated_by": c.GetString(middleware.ContextAdminEmail),
	}
	if err := h.auditor.Append(c.Request.Context(), model.ActorAdmin, model.AuditActionRosterUpdate, payload); err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{
		"department": dept,
		"label":      model.DepartmentLabel(dept),
		"people":     req.People,
	}))
}
