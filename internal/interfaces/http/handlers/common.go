// Package handlers implements the gin handlers behind the HTTP API.
package handlers

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/ProbAL-Intelligence/pkg/errors"
	qtypes "github.com/turtacn/ProbAL-Intelligence/pkg/types/query"
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(c *gin.Context, statusCode int, data interface{}) {
	if data == nil {
		c.Status(statusCode)
		return
	}
	c.JSON(statusCode, data)
}

// writeError maps err onto its HTTP status and writes a structured error
// body.  Errors that carry no AppError are reported as internal.
func writeError(c *gin.Context, err error) {
	var appErr *errors.AppError
	if !stderrors.As(err, &appErr) {
		appErr = errors.Wrap(err, errors.CodeInternal, "internal error")
	}
	_ = c.Error(err)
	writeJSON(c, errors.HTTPStatusForCode(appErr.Code), qtypes.ErrorResponse{
		Code:    appErr.Code.String(),
		Message: appErr.Message,
		Detail:  appErr.Detail,
	})
}

// abortWithError writes the error body and stops the handler chain.
func abortWithError(c *gin.Context, err error) {
	writeError(c, err)
	c.Abort()
}

// notFound is installed as the engine's NoRoute handler.
func notFound(c *gin.Context) {
	writeJSON(c, http.StatusNotFound, qtypes.ErrorResponse{
		Code:    errors.CodeNotFound.String(),
		Message: "route not found",
		Detail:  c.Request.Method + " " + c.Request.URL.Path,
	})
}

// NotFound returns the handler for unmatched routes.
func NotFound() gin.HandlerFunc { return notFound }
