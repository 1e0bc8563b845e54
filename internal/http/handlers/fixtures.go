package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// CreateSampleTasks seeds demo tasks when the caller has none.
func (h *Handler) CreateSampleTasks(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}

	n, err := h.Tasks.CreateSampleTasks(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"created": n})
}

// ResetSampleTasks removes the caller's tasks and seeds the demo tasks.
func (h *Handler) ResetSampleTasks(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}

	n, err := h.Tasks.ResetSampleTasks(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"created": n})
}
