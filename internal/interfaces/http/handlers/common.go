// Package handlers implements the gin handlers of the public API.
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/AIComply/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/AIComply/internal/interfaces/http/middleware"
	"github.com/turtacn/AIComply/pkg/errors"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// ErrorResponse is the standard error response body.
type ErrorResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// parsePagination reads limit and offset query parameters. Out-of-range
// values fall back to the defaults.
func parsePagination(c *gin.Context) (limit, offset int) {
	limit = defaultPageSize
	if v, err := strconv.Atoi(c.Query("limit")); err == nil && v > 0 && v <= maxPageSize {
		limit = v
	}
	if v, err := strconv.Atoi(c.Query("offset")); err == nil && v > 0 {
		offset = v
	}
	return limit, offset
}

// bindJSON decodes the request body into dst and writes a 400 on failure.
func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		writeError(c, errors.Wrap(err, errors.ErrCodeBadRequest, "invalid request body"))
		return false
	}
	return true
}

// writeError maps err to its HTTP status. Server-side failures are masked.
func writeError(c *gin.Context, err error) {
	code := errors.GetCode(err)
	status := errors.HTTPStatusForCode(code)
	resp := ErrorResponse{
		Code:      string(code),
		Message:   err.Error(),
		RequestID: middleware.GetRequestID(c),
	}
	if status >= http.StatusInternalServerError {
		if code == errors.CodeUnknown {
			resp.Code = string(errors.ErrCodeInternal)
		}
		resp.Message = errors.DefaultMessageForCode(errors.ErrorCode(resp.Code))
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, resp)
}

func logFailure(logger logging.Logger, c *gin.Context, msg string, err error) {
	if errors.IsServerError(errors.GetCode(err)) || errors.GetCode(err) == errors.CodeUnknown {
		logger.Error(msg, logging.Err(err), logging.String("request_id", middleware.GetRequestID(c)))
	}
}
