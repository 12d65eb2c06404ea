package utils

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/MazaSebastian/DamafAPP/apperrors"
	"github.com/gin-gonic/gin"
)

type JSONResponse struct {
	Status  bool        `json:"status"`
	Message string      `json:"message"`
	Code    string      `json:"code,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func RespondJSON(c *gin.Context, code int, message string, data interface{}) {
	c.JSON(code, JSONResponse{
		Status:  code >= 200 && code < 300,
		Message: message,
		Data:    data,
	})
}

// RespondError classifies err through the apperrors taxonomy so clients can
// tell a full slot from a stale order state.
func RespondError(c *gin.Context, err error) {
	status := apperrors.HTTPStatus(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		ErrorLogger.WithField("path", c.Request.URL.Path).Errorf("request failed: %v", err)
		message = "internal server error"
	}
	if apperrors.Retryable(err) {
		c.Header("Retry-After", "1")
	}
	c.JSON(status, JSONResponse{
		Status:  false,
		Message: message,
		Code:    apperrors.Code(err),
	})
}

// RespondBadRequest wraps binding errors as invalid input.
func RespondBadRequest(c *gin.Context, err error) {
	RespondError(c, fmt.Errorf("%w: %v", apperrors.ErrInvalidInput, err))
}

// ParseIDParam reads a positive numeric path parameter.
func ParseIDParam(c *gin.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w: invalid %s", apperrors.ErrInvalidInput, name)
	}
	return uint(id), nil
}
