package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hcen-uy/exchange-hub/pkg/errors"
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

// Error writes err as a JSON response with the HTTP status matching
// its kind. Unknown errors map to 500 with a generic message so
// internals never leak to clients.
func Error(c *gin.Context, err error) {
	switch errors.KindOf(err) {
	case errors.KindValidation:
		c.JSON(http.StatusBadRequest, NewErrorResponse(err.Error()))
	case errors.KindUnauthorized:
		c.JSON(http.StatusForbidden, NewErrorResponse(err.Error()))
	case errors.KindNotFound:
		c.JSON(http.StatusNotFound, NewErrorResponse(err.Error()))
	case errors.KindState:
		c.JSON(http.StatusConflict, NewErrorResponse(err.Error()))
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, NewErrorResponse("internal error"))
	}
}
