package rest

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	mw "github.com/aprclub/aprclub/server/middleware"
	"github.com/aprclub/aprclub/server/model"
	"gorm.io/gorm"
)

// NotificationHandler handles in-app notification REST endpoints.
type NotificationHandler struct {
	db *gorm.DB
}

// NewNotificationHandler creates a NotificationHandler.
func NewNotificationHandler(db *gorm.DB) *NotificationHandler {
	return &NotificationHandler{db: db}
}

// List returns the newest notifications for the authenticated user.
// GET /api/notifications
func (h *NotificationHandler) List(c *gin.Context) {
	userID := mw.GetUserID(c)

	var rows []model.Notification
	h.db.Where("to_user_id = ?", userID).
		Order("created_at DESC").
		Limit(50).
		Find(&rows)
	c.JSON(http.StatusOK, gin.H{"notifications": rows})
}

// MarkRead marks one notification as read.
// POST /api/notifications/:id/read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	userID := mw.GetUserID(c)
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	var n model.Notification
	if err := h.db.Where("id = ? AND to_user_id = ?", id, userID).First(&n).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "notification not found"})
		return
	}
	if n.ReadAt == nil {
		now := time.Now()
		h.db.Model(&n).Update("read_at", now)
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
