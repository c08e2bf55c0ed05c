package middleware

import (
	"errors"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/pharmassist-medsafety/internal/domain"
)

// InternalErrorMessage is the only text a client sees for unexpected
// failures.
const InternalErrorMessage = "An unexpected error occurred while processing your request."

// Recovery converts a panic that escaped a handler into the generic 500
// envelope, logging the stack.
func Recovery(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				if err, ok := r.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(r)
				}
				logger.WithFields(logrus.Fields{
					"correlation_id": GetCorrelationID(c),
					"path":           c.Request.URL.Path,
					"panic":          r,
					"stack":          string(debug.Stack()),
				}).Error("Recovered from panic in HTTP handler")

				if c.Writer.Written() {
					c.Abort()
					return
				}
				Abort(c, http.StatusInternalServerError, domain.CodeInternalServer, InternalErrorMessage)
			}
		}()
		c.Next()
	}
}

// BodyLimit caps request bodies at maxBytes.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBytes <= 0 {
			c.Next()
			return
		}
		if c.Request.ContentLength > maxBytes {
			Abort(c, http.StatusRequestEntityTooLarge, domain.CodeInvalidInput, "Request body too large")
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
