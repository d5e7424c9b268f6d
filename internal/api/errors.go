package api

import (
	"errors"
	"net/http"

	"github.com/alcyxob/planmarket/internal/logger"
	"github.com/alcyxob/planmarket/internal/service"

	"github.com/gin-gonic/gin"
)

var kindStatus = map[service.ErrorKind]int{
	service.KindAlreadyOwned:     http.StatusBadRequest,
	service.KindInvalidInput:     http.StatusBadRequest,
	service.KindSignatureInvalid: http.StatusBadRequest,
	service.KindMalformedEvent:   http.StatusBadRequest,
	service.KindNotFound:         http.StatusNotFound,
	service.KindInvalidReference: http.StatusNotFound,
	service.KindForbidden:        http.StatusForbidden,
	service.KindUnauthorized:     http.StatusUnauthorized,
	service.KindConflict:         http.StatusConflict,
	service.KindUpstream:         http.StatusBadGateway,
	service.KindStoreUnavailable: http.StatusServiceUnavailable,
}

// StatusFor maps a service error to its HTTP status.
func StatusFor(err error) int {
	if status, ok := kindStatus[service.KindOf(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// respondError writes {error, kind}. Unclassified errors are logged and
// reported without detail.
func respondError(c *gin.Context, log *logger.Logger, err error) {
	status := StatusFor(err)
	var se *service.Error
	if !errors.As(err, &se) {
		log.Error("request failed", "path", c.FullPath(), "request_id", c.GetString(ContextRequestIDKey), "error", err)
		c.AbortWithStatusJSON(status, gin.H{"error": "Internal server error.", "kind": service.KindInternal})
		return
	}
	if status >= http.StatusInternalServerError {
		log.Error("request failed", "path", c.FullPath(), "request_id", c.GetString(ContextRequestIDKey), "kind", se.Kind, "error", err)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": se.Message, "kind": se.Kind})
}
