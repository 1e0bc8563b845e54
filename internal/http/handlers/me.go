package handlers

import (
	"net/http"
	"strconv"

	"todo_webapp/internal/domain"

	"github.com/gin-gonic/gin"
)

func (h *Handler) Me(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}

	user, err := h.Auth.Me(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, userJSON(user))
}

// MyActivity returns the caller's audit trail, newest first.
func (h *Handler) MyActivity(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	if h.AuditService == nil {
		c.JSON(http.StatusOK, gin.H{"items": []*domain.AuditLog{}})
		return
	}

	limit, _ := strconv.Atoi(c.Query("limit"))
	logs, err := h.AuditService.GetUserAuditLogs(c.Request.Context(), userID, c.Query("category"), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	if logs == nil {
		logs = []*domain.AuditLog{}
	}
	c.JSON(http.StatusOK, gin.H{"items": logs})
}
