package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/renewloop/ewaste-repair-api/config"
	"github.com/renewloop/ewaste-repair-api/models"
)

// ListNotifications handles GET /api/v1/notifications - lists the actor's notifications, newest first
func ListNotifications(c *gin.Context) {
	profile, ok := currentProfile(c)
	if !ok {
		return
	}

	db := config.GetDB()
	var notifications []models.Notification
	if err := db.Where("user_id = ?", profile.ID).
		Order("created_at DESC").
		Limit(50).
		Find(&notifications).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to fetch notifications",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    notifications,
	})
}

// MarkNotificationRead handles POST /api/v1/notifications/:id/read
func MarkNotificationRead(c *gin.Context) {
	profile, ok := currentProfile(c)
	if !ok {
		return
	}

	notificationID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_REQUEST",
				"message": "Notification ID must be a number",
			},
		})
		return
	}

	db := config.GetDB()
	result := db.Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", notificationID, profile.ID).
		Update("is_read", true)
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to update notification",
			},
		})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NOT_FOUND",
				"message": "Notification not found",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
	})
}
