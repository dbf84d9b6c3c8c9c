package audit

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rosterhq/oncall-api/internal/handler"
	"github.com/rosterhq/oncall-api/internal/service/audit"
)

type Handler struct {
	service *audit.Service
}

func NewHandler(service *audit.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/audit", h.List)
}

func (h *Handler) List(c *gin.Context) {
	records, err := h.service.Read(c.Request.Context(), audit.Filter{
		Actor:        c.Query("actor"),
		ActionPrefix: c.Query("action"),
	})
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(records))
}
