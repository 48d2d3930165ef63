package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/renewloop/ewaste-repair-api/config"
	"github.com/renewloop/ewaste-repair-api/models"
	"gorm.io/gorm"
)

// DeductPointsRequest represents the request body for the deduct-points function
type DeductPointsRequest struct {
	UserID         uint `json:"user_id" binding:"required"`
	PointsToDeduct int  `json:"points_to_deduct" binding:"required,gt=0"`
}

// DeductPoints handles POST /api/v1/functions/deduct-points.
// The decrement is a single conditional UPDATE (points = points - x WHERE
// points >= x) so concurrent deductions for the same user cannot race the
// balance below zero. The response shape mirrors the original serverless
// function: the updated profile on success, {"error": ...} on failure.
func DeductPoints(c *gin.Context) {
	var req DeductPointsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "user_id and a positive points_to_deduct are required",
		})
		return
	}

	db := config.GetDB()

	result := db.Model(&models.Profile{}).
		Where("id = ? AND points >= ?", req.UserID, req.PointsToDeduct).
		Update("points", gorm.Expr("points - ?", req.PointsToDeduct))
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to deduct points",
		})
		return
	}

	if result.RowsAffected == 0 {
		// Distinguish a missing profile from an insufficient balance
		var profile models.Profile
		if err := db.First(&profile, req.UserID).Error; err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "User not found",
			})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Not enough points",
		})
		return
	}

	var profile models.Profile
	if err := db.First(&profile, req.UserID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to fetch updated profile",
		})
		return
	}

	c.JSON(http.StatusOK, profile)
}
