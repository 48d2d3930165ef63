package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/renewloop/ewaste-repair-api/config"
	"github.com/renewloop/ewaste-repair-api/models"
	"github.com/renewloop/ewaste-repair-api/services"
	"github.com/renewloop/ewaste-repair-api/utils"
)

// UploadRepairImage handles POST /api/v1/repairs/:id/images - attaches a device photo
// Only the owning requester may attach photos, and only while the request is open.
func UploadRepairImage(c *gin.Context) {
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

	if repair.UserID != profile.ID {
		c.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "FORBIDDEN",
				"message": "You do not have permission to attach photos to this repair request",
			},
		})
		return
	}

	if models.IsTerminalStatus(repair.Status) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_TRANSITION",
				"message": "Photos cannot be attached to closed repair requests",
			},
		})
		return
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_REQUEST",
				"message": "Image file is required",
			},
		})
		return
	}

	s3Key, err := services.GetImageService().UploadImage(fileHeader)
	if err != nil {
		// Validation errors carry their own code; anything else is a storage failure
		if uploadErr, ok := err.(*utils.FileUploadError); ok {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error": gin.H{
					"code":    uploadErr.Code,
					"message": uploadErr.Message,
				},
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "UPLOAD_ERROR",
				"message": "Failed to upload image",
			},
		})
		return
	}

	// Position images after any existing ones
	var count int64
	db.Model(&models.RepairImage{}).Where("repair_id = ?", repair.ID).Count(&count)

	image := models.RepairImage{
		RepairID: repair.ID,
		S3Key:    s3Key,
		Position: int(count),
	}
	if err := db.Create(&image).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to save image record",
			},
		})
		return
	}

	if url, err := services.GetImageService().GetImageURL(s3Key); err == nil {
		image.URL = url
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    image,
	})
}

// ListRepairImages handles GET /api/v1/repairs/:id/images - lists attached device photos
func ListRepairImages(c *gin.Context) {
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
				"message": "You do not have permission to view photos on this repair request",
			},
		})
		return
	}

	var images []models.RepairImage
	if err := db.Where("repair_id = ?", repair.ID).
		Order("position ASC").
		Find(&images).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to fetch images",
			},
		})
		return
	}

	imageService := services.GetImageService()
	for i := range images {
		if url, err := imageService.GetImageURL(images[i].S3Key); err == nil {
			images[i].URL = url
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    images,
	})
}
