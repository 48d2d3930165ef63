package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/renewloop/ewaste-repair-api/services"
)

// NotifyStatusChangeRequest represents the request body for the email notification function
type NotifyStatusChangeRequest struct {
	RequestID string `json:"requestId" binding:"required"`
	NewStatus string `json:"newStatus" binding:"required"`
	UserEmail string `json:"userEmail" binding:"required,email"`
	UserName  string `json:"userName" binding:"required"`
}

// NotifyStatusChange handles POST /api/v1/functions/notify-status-change.
// Email dispatch is stubbed: the mailer logs the message and the endpoint
// returns a fixed success payload, mirroring the original serverless function.
func NotifyStatusChange(c *gin.Context) {
	var req NotifyStatusChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "requestId, newStatus, userEmail and userName are required",
		})
		return
	}

	if err := services.GetMailer().SendStatusChange(services.StatusChangeEmail{
		RequestID: req.RequestID,
		NewStatus: req.NewStatus,
		UserEmail: req.UserEmail,
		UserName:  req.UserName,
	}); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to send notification",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Notification sent",
	})
}
