package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/renewloop/ewaste-repair-api/config"
	"github.com/renewloop/ewaste-repair-api/models"
	"github.com/renewloop/ewaste-repair-api/services"
)

// PostUpdateRequest represents the request body for posting a repair update message
type PostUpdateRequest struct {
	Message string `json:"message" binding:"required"`
}

// PostUpdate handles POST /api/v1/repairs/:id/updates - posts a message on a repair request
func PostUpdate(c *gin.Context) {
	profile, ok := currentProfile(c)
	if !ok {
		return
	}

	repairID, ok := repairIDParam(c)
	if !ok {
		return
	}

	var req PostUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Invalid request data",
				"details": err.Error(),
			},
		})
		return
	}

	update, err := services.GetLifecycleService().PostMessage(repairID, profile, req.Message)
	if err != nil {
		respondLifecycleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    update,
	})
}

// ListUpdates handles GET /api/v1/repairs/:id/updates - lists the repair's update thread
func ListUpdates(c *gin.Context) {
	profile, ok := currentProfile(c)
	if !ok {
		return
	}

	repairID, ok := repairIDParam(c)
	if !ok {
		return
	}

	// Authorization check: requesters view their own threads, technicians
	// view unassigned requests and their own assignments
	db := config.GetDB()
	var repair models.RepairRequest
	if err := db.First(&repair, repairID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NOT_FOUND",
				"message": "Repair request not found",
			},
		})
		return
	}

	canView := false
	if profile.IsTechnician() {
		canView = repair.TechnicianID == nil || *repair.TechnicianID == profile.ID
	} else {
		canView = repair.UserID == profile.ID
	}
	if !canView {
		c.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "FORBIDDEN",
				"message": "You do not have permission to view updates on this repair request",
			},
		})
		return
	}

	updates, err := services.GetLifecycleService().ListUpdates(repairID)
	if err != nil {
		respondLifecycleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    updates,
	})
}
