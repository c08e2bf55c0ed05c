package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/pharmassist-medsafety/internal/domain"
	"github.com/pharmassist-medsafety/internal/middleware"
)

// respondError maps an operation error onto the HTTP error envelope. Only
// sentinel-derived messages reach the client.
func (s *Server) respondError(c *gin.Context, err error) {
	var validation *domain.ValidationError
	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, s.envelope(c, domain.CodeValidation, validation.Message, validation.Field))
	case errors.Is(err, domain.ErrUserNotFound):
		c.JSON(http.StatusNotFound, s.envelope(c, domain.CodeUserNotFound, "User not found", ""))
	case errors.Is(err, domain.ErrProductNotFound):
		c.JSON(http.StatusNotFound, s.envelope(c, domain.CodeProductNotFound, "Product not found", ""))
	case errors.Is(err, domain.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, s.envelope(c, domain.CodeUnauthenticated, "User not authenticated", ""))
	case errors.Is(c.Request.Context().Err(), context.DeadlineExceeded):
		c.JSON(http.StatusRequestTimeout, s.envelope(c, domain.CodeTimeout, "Request timeout", ""))
	default:
		s.logger.WithError(err).WithFields(logrus.Fields{
			"correlation_id": middleware.GetCorrelationID(c),
			"path":           c.FullPath(),
		}).Error("Request failed")
		c.JSON(http.StatusInternalServerError, s.envelope(c, domain.CodeInternalServer, middleware.InternalErrorMessage, ""))
	}
}

func (s *Server) envelope(c *gin.Context, code, message, details string) *domain.APIError {
	return domain.NewAPIError(code, message, details, middleware.GetCorrelationID(c))
}
