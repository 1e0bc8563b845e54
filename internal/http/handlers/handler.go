package handlers

import (
	"errors"
	"net/http"

	"todo_webapp/internal/domain"
	"todo_webapp/internal/logger"
	"todo_webapp/internal/service"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	Tasks        *service.TaskService
	Auth         *service.AuthService
	AuditService *service.AuditService
}

func NewHandler(tasks *service.TaskService, auth *service.AuthService, audit *service.AuditService) *Handler {
	return &Handler{
		Tasks:        tasks,
		Auth:         auth,
		AuditService: audit,
	}
}

// getUserID извлекает user_id из контекста Gin
func getUserID(c *gin.Context) (int64, bool) {
	uidVal, ok := c.Get("user_id")
	if !ok {
		return 0, false
	}
	switch v := uidVal.(type) {
	case int64:
		return v, true
	case float64:
		return int64(v), true
	default:
		return 0, false
	}
}

// writeError maps service errors to status codes. Unexpected errors are
// logged and reported without detail.
func writeError(c *gin.Context, err error) {
	var verr *domain.ValidationError
	var aerr *domain.AuthorizationError

	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "fields": verr.Fields})
	case errors.Is(err, domain.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
	case errors.As(err, &aerr):
		c.JSON(http.StatusForbidden, gin.H{"error": "not authorized", "reason": aerr.Reason})
	case errors.Is(err, domain.ErrNotAuthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": "not authorized"})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, domain.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "already exists"})
	default:
		logger.WithContext(c.Request.Context()).Error("request failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
