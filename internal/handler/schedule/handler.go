package schedule

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rosterhq/oncall-api/internal/clock"
	"github.com/rosterhq/oncall-api/internal/handler"
	"github.com/rosterhq/oncall-api/internal/middleware"
	"github.com/rosterhq/oncall-api/internal/model"
	"github.com/rosterhq/oncall-api/internal/repository"
	"github.com/rosterhq/oncall-api/internal/service/audit"
	"github.com/rosterhq/oncall-api/internal/service/rotation"
	"github.com/rosterhq/oncall-api/internal/service/schedule"
	apperrors "github.com/rosterhq/oncall-api/pkg/errors"
)

const dateLayout = "2006-01-02"

type Handler struct {
	rotationSvc *rotation.Service
	scheduleSvc *schedule.Service
	rosters     repository.RosterRepository
	auditor     *audit.Service
	clock       clock.Clock
}

func NewHandler(rotationSvc *rotation.Service, scheduleSvc *schedule.Service, rosters repository.RosterRepository, auditor *audit.Service, clk clock.Clock) *Handler {
	return &Handler{
		rotationSvc: rotationSvc,
		scheduleSvc: scheduleSvc,
		rosters:     rosters,
		auditor:     auditor,
		clock:       clk,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/schedule/generate", h.Generate)
	r.PUT("/schedule", h.Save)
	r.GET("/schedule", h.Get)
	r.GET("/schedule/current", h.GetCurrent)
	r.GET("/schedule/history", h.GetHistory)
	r.POST("/schedule/revert", h.Revert)
	r.POST("/schedule/restore/:id", h.Restore)
}

type generateRequest struct {
	StartDate string `json:"start_date" binding:"required"`
	EndDate   string `json:"end_date" binding:"required"`
	SeedIndex int    `json:"seed_index"`
}

// Generate composes the three steps the rotation flow is built from:
// generate a schedule from the roster, save it through the schedule
// store, then audit the generation.
func (h *Handler) Generate(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	loc := h.clock.Location()
	startDate, err := time.ParseInLocation(dateLayout, req.StartDate, loc)
	if err != nil {
		handler.RespondError(c, apperrors.Validation("invalid start_date", err))
		return
	}
	endDate, err := time.ParseInLocation(dateLayout, req.EndDate, loc)
	if err != nil {
		handler.RespondError(c, apperrors.Validation("invalid end_date", err))
		return
	}

	roster, err := h.rosters.GetRoster(c.Request.Context())
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	generated, err := h.rotationSvc.Generate(roster, startDate, endDate, req.SeedIndex, loc)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	saved, err := h.scheduleSvc.Save(c.Request.Context(), generated, adminIdentity(c))
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	payload := map[string]interface{}{
		"start_date": req.StartDate,
		"end_date":   req.EndDate,
		"seed_index": req.SeedIndex,
		"entries":    len(saved.Entries),
	}
	if err := h.auditor.Append(c.Request.Context(), model.ActorAdmin, model.AuditActionScheduleGenerate, payload); err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(saved))
}

type saveRequest struct {
	Timezone string                `json:"timezone"`
	Entries  []model.ScheduleEntry `json:"entries" binding:"required"`
}

func (h *Handler) Save(c *gin.Context) {
	var req saveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	saved, err := h.scheduleSvc.Save(c.Request.Context(), &model.Schedule{
		Timezone: req.Timezone,
		Entries:  req.Entries,
	}, adminIdentity(c))
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(saved))
}

func (h *Handler) Get(c *gin.Context) {
	schedule, err := h.scheduleSvc.Full(c.Request.Context())
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(schedule))
}

func (h *Handler) GetCurrent(c *gin.Context) {
	current, err := h.scheduleSvc.Current(c.Request.Context())
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(current))
}

func (h *Handler) GetHistory(c *gin.Context) {
	snapshots, err := h.scheduleSvc.History(c.Request.Context())
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(snapshots))
}

func (h *Handler) Revert(c *gin.Context) {
	reverted, err := h.scheduleSvc.Revert(c.Request.Context(), adminIdentity(c))
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(reverted))
}

func (h *Handler) Restore(c *gin.Context) {
	restored, err := h.scheduleSvc.RestoreFromHistory(c.Request.Context(), c.Param("id"), adminIdentity(c))
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(restored))
}

func adminIdentity(c *gin.Context) string {
	if email := c.GetString(middleware.ContextAdminEmail); email != "" {
		return email
	}
	return model.ActorAdmin
}
