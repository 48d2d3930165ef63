package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/renewloop/ewaste-repair-api/config"
	"github.com/renewloop/ewaste-repair-api/models"
	"github.com/renewloop/ewaste-repair-api/services"
)

// CreateRepairRequest represents the request body for creating a repair request
type CreateRepairRequest struct {
	DeviceType       string `json:"device_type" binding:"required"`
	IssueDescription string `json:"issue_description" binding:"required"`
	Address          string `json:"address" binding:"required"`
	Notes            string `json:"notes"`
}

// AdvanceRepairRequest represents the request body for a status change
type AdvanceRepairRequest struct {
	Status string `json:"status" binding:"required"`
}

// EstimateRequest represents the request body for setting a cost estimate
type EstimateRequest struct {
	Amount *float64 `json:"amount" binding:"required"`
}

// CreateRepair handles POST /api/v1/repairs - creates a new repair request (requesters only)
func CreateRepair(c *gin.Context) {
	profile, ok := currentProfile(c)
	if !ok {
		return
	}

	// Only requesters create repair requests
	if profile.IsTechnician() {
		c.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "FORBIDDEN",
				"message": "Only requesters can create repair requests",
			},
		})
		return
	}

	var req CreateRepairRequest
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

	repair, err := services.GetLifecycleService().CreateRequest(profile, services.CreateRequestInput{
		DeviceType:       req.DeviceType,
		IssueDescription: req.IssueDescription,
		Address:          req.Address,
		Notes:            req.Notes,
	})
	if err != nil {
		respondLifecycleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    repair,
	})
}

// ListRepairs handles GET /api/v1/repairs - lists repair requests visible to the actor
// Requesters see their own requests; technicians see unassigned requests plus their assignments
func ListRepairs(c *gin.Context) {
	profile, ok := currentProfile(c)
	if !ok {
		return
	}

	// Parse pagination parameters
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil || limit < 1 || limit > 100 {
		limit = 10
	}

	db := config.GetDB()
	query := db.Model(&models.RepairRequest{})
	if profile.IsTechnician() {
		query = query.Where("technician_id IS NULL OR technician_id = ?", profile.ID)
	} else {
		query = query.Where("user_id = ?", profile.ID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to count repair requests",
			},
		})
		return
	}

	var repairs []models.RepairRequest
	if err := query.
		Preload("User").
		Preload("Technician").
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&repairs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to fetch repair requests",
			},
		})
		return
	}

	totalPages := (total + int64(limit) - 1) / int64(limit)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    repairs,
		"pagination": gin.H{
			"page":       page,
			"limit":      limit,
			"total":      total,
			"totalPages": totalPages,
		},
	})
}

// GetRepair handles GET /api/v1/repairs/:id - gets a single repair request
func GetRepair(c *gin.Context) {
	profile, ok := currentProfile(c)
	if !ok {
		return
	}

	repairID, ok := repairIDParam(c)
	if !ok {
		return
	}

	db := config.GetDB()
	var repair models.RepairRequest
	if err := db.Preload("User").Preload("Technician").Preload("Images").
		First(&repair, repairID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NOT_FOUND",
				"message": "Repair request not found",
			},
		})
		return
	}

	// Authorization check: requesters see their own requests, technicians
	// see unassigned requests and their own assignments
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
				"message": "You do not have permission to access this repair request",
			},
		})
		return
	}

	// Resolve presigned URLs for attached device photos
	if imageService := services.GetImageService(); imageService != nil {
		for i := range repair.Images {
			if url, err := imageService.GetImageURL(repair.Images[i].S3Key); err == nil {
				repair.Images[i].URL = url
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    repair,
	})
}

// ClaimRepair handles POST /api/v1/repairs/:id/claim - technician claims a pending request
func ClaimRepair(c *gin.Context) {
	profile, ok := currentProfile(c)
	if !ok {
		return
	}

	repairID, ok := repairIDParam(c)
	if !ok {
		return
	}

	repair, err := services.GetLifecycleService().Claim(repairID, profile)
	if err != nil {
		respondLifecycleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    repair,
	})
}

// AdvanceRepair handles POST /api/v1/repairs/:id/status - technician advances the lifecycle
func AdvanceRepair(c *gin.Context) {
	profile, ok := currentProfile(c)
	if !ok {
		return
	}

	repairID, ok := repairIDParam(c)
	if !ok {
		return
	}

	var req AdvanceRepairRequest
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

	repair, err := services.GetLifecycleService().Advance(repairID, profile, req.Status)
	if err != nil {
		respondLifecycleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    repair,
	})
}

// CancelRepair handles POST /api/v1/repairs/:id/cancel
func CancelRepair(c *gin.Context) {
	profile, ok := currentProfile(c)
	if !ok {
		return
	}

	repairID, ok := repairIDParam(c)
	if !ok {
		return
	}

	repair, err := services.GetLifecycleService().Cancel(repairID, profile)
	if err != nil {
		respondLifecycleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    repair,
	})
}

// SetEstimate handles POST /api/v1/repairs/:id/estimate - technician records a cost estimate
func SetEstimate(c *gin.Context) {
	profile, ok := currentProfile(c)
	if !ok {
		return
	}

	repairID, ok := repairIDParam(c)
	if !ok {
		return
	}

	var req EstimateRequest
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

	repair, err := services.GetLifecycleService().SetCostEstimate(repairID, profile, *req.Amount)
	if err != nil {
		respondLifecycleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    repair,
	})
}
