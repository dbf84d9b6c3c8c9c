package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/rosterhq/oncall-api/pkg/errors"
)

type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Status: "success",
		Data:   data,
	}
}

func NewErrorResponse(message string) *Response {
	return &Response{
		Status:  "error",
		Message: message,
	}
}

// StatusFromError maps the application error taxonomy to HTTP status
// codes.
func StatusFromError(err error) int {
	switch apperrors.Code(err) {
	case apperrors.ErrUnauthorized:
		return http.StatusUnauthorized
	case apperrors.ErrNotFound:
		return http.StatusNotFound
	case apperrors.ErrValidation:
		return http.StatusBadRequest
	case apperrors.ErrChannel:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// RespondError writes an error with the mapped status.
func RespondError(c *gin.Context, err error) {
	c.JSON(StatusFromError(err), NewErrorResponse(err.Error()))
}
