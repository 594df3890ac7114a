package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/HyperBlend/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/HyperBlend/internal/interfaces/http/middleware"
	"github.com/turtacn/HyperBlend/pkg/errors"
)

// ErrorResponse is the body of every failed API call.
type ErrorResponse struct {
	Error     string `json:"error"`
	Details   string `json:"details,omitempty"`
	Code      string `json:"code,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// writeJSON writes data with the given status.
func writeJSON(c *gin.Context, status int, data any) {
	c.JSON(status, data)
}

// writeAppError maps err to a status through its error code. Server-side
// failures without a code are masked.
func writeAppError(c *gin.Context, err error) {
	code := errors.GetCode(err)
	status := errors.HTTPStatusForCode(code)
	resp := ErrorResponse{RequestID: middleware.GetRequestID(c)}

	var appErr *errors.AppError
	if errors.As(err, &appErr) {
		resp.Error = appErr.Message
		resp.Details = appErr.Detail
		resp.Code = string(appErr.Code)
	} else {
		resp.Error = err.Error()
	}

	if status >= http.StatusInternalServerError {
		logging.FromContext(c.Request.Context()).Error("request failed",
			logging.String("code", string(code)), logging.Err(err))
		if code == errors.CodeUnknown || code == errors.ErrCodeInternal {
			resp.Error = "internal server error"
			resp.Details = ""
		}
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, resp)
}

// bindJSON decodes the request body into dst. An empty body leaves dst
// untouched when optional is set.
func bindJSON(c *gin.Context, dst any, optional bool) error {
	if optional && c.Request.ContentLength == 0 {
		return nil
	}
	if err := c.ShouldBindJSON(dst); err != nil {
		return errors.InvalidParam("invalid request body").WithCause(err)
	}
	return nil
}
