package response

import (
	"net/http"

	"sregrade/pkg/errors"
	"sregrade/pkg/utils/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorBody is the error payload returned to agents.
// Only a readable detail string crosses the boundary, never a stack.
type ErrorBody struct {
	Detail string `json:"detail"`
}

// Success sends a 200 response with the payload as the top-level JSON value
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// Error maps err to its status and writes {"detail": message}. Server-side failures are
// logged with their stack; rejected requests are logged as warnings.
func Error(c *gin.Context, err error) {
	e := errors.GetError(err)
	status := e.Code.HTTPStatus()
	fields := []zap.Field{
		zap.Int("code", int(e.Code)),
		zap.Int("status", status),
		zap.String("message", e.Error()),
	}
	if len(e.Details) > 0 {
		fields = append(fields, zap.Any("details", e.Details))
	}
	if status >= http.StatusInternalServerError {
		logger.Error(c.Request.Context(), "request failed", append(fields, zap.String("stack", e.Stack))...)
	} else {
		logger.Warn(c.Request.Context(), "request rejected", fields...)
	}
	c.JSON(status, ErrorBody{Detail: e.Error()})
}

// BadRequest sends a 400 with message
func BadRequest(c *gin.Context, message string) {
	if message == "" {
		message = errors.InvalidParams.Message()
	}
	Error(c, errors.New(errors.InvalidParams).WithMessage(message))
}

// NotFound answers unknown routes.
func NotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, ErrorBody{Detail: "Not Found"})
}

// MethodNotAllowed answers known routes called with the wrong method.
func MethodNotAllowed(c *gin.Context) {
	c.JSON(http.StatusMethodNotAllowed, ErrorBody{Detail: "Method Not Allowed"})
}
