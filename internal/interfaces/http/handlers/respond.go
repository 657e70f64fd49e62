// Package handlers contains the gin HTTP handlers of the licensing API.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/cle/internal/application/dto"
	"github.com/turtacn/cle/pkg/errors"
)

// traceIDFrom pulls the trace ID the tracing middleware stored on the context.
func traceIDFrom(c *gin.Context) string {
	return c.GetString("trace_id")
}

// sendSuccess writes the standard success envelope.
func sendSuccess(c *gin.Context, status int, data interface{}) {
	c.JSON(status, dto.SuccessResponse(data, traceIDFrom(c)))
}

// sendError writes the standard error envelope with the status the error
// carries; unknown errors map to 500.
func sendError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	if cleErr, ok := errors.AsCLEError(err); ok {
		status = cleErr.HTTPStatus()
	}
	c.JSON(status, dto.ErrorResponse(err, traceIDFrom(c)))
}
