// Package view serves the public, read-only schedule page that
// notification messages link to. Contact details are stripped; only
// names and windows are exposed.
package view

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	gocache "github.com/patrickmn/go-cache"

	"github.com/rosterhq/oncall-api/internal/clock"
	"github.com/rosterhq/oncall-api/internal/handler"
	"github.com/rosterhq/oncall-api/internal/service/schedule"
	apperrors "github.com/rosterhq/oncall-api/pkg/errors"
)

const cacheKey = "public-schedule"

type Handler struct {
	scheduleSvc *schedule.Service
	clock       clock.Clock
	cache       *gocache.Cache
}

func NewHandler(scheduleSvc *schedule.Service, clk clock.Clock) *Handler {
	return &Handler{
		scheduleSvc: scheduleSvc,
		clock:       clk,
		cache:       gocache.New(time.Minute, 5*time.Minute),
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/view/schedule", h.Schedule)
}

type viewEntry struct {
	Start       string            `json:"start"`
	End         string            `json:"end"`
	Departments map[string]string `json:"departments"`
	Active      bool              `json:"active"`
}

type viewResponse struct {
	Timezone string      `json:"timezone"`
	Entries  []viewEntry `json:"entries"`
}

func (h *Handler) Schedule(c *gin.Context) {
	if cached, ok := h.cache.Get(cacheKey); ok {
		c.JSON(http.StatusOK, handler.NewSuccessResponse(cached))
		return
	}

	full, err := h.scheduleSvc.Full(c.Request.Context())
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			c.JSON(http.StatusOK, handler.NewSuccessResponse(viewResponse{Entries: []viewEntry{}}))
			return
		}
		handler.RespondError(c, err)
		return
	}

	now := h.clock.Now()
	loc := h.clock.Location()

	view := viewResponse{Timezone: full.Timezone, Entries: []viewEntry{}}
	for i := range full.Entries {
		entry := &full.Entries[i]
		if entry.Concluded(now, loc) {
			continue
		}
		departments := make(map[string]string, len(entry.Departments))
		for dept, person := range entry.Departments {
			departments[dept] = person.Name
		}
		view.Entries = append(view.Entries, viewEntry{
			Start:       entry.StartISO,
			End:         entry.EndISO,
			Departments: departments,
			Active:      entry.Contains(now, loc),
		})
	}

	h.cache.Set(cacheKey, view, gocache.DefaultExpiration)
	c.JSON(http.StatusOK, handler.NewSuccessResponse(view))
}
