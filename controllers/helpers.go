package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/renewloop/ewaste-repair-api/config"
	"github.com/renewloop/ewaste-repair-api/middleware"
	"github.com/renewloop/ewaste-repair-api/models"
	"github.com/renewloop/ewaste-repair-api/services"
)

// currentProfile resolves the acting profile from the validated JWT. On
// failure it writes the error response and returns false.
func currentProfile(c *gin.Context) (*models.Profile, bool) {
	auth0ID, err := middleware.GetUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "UNAUTHORIZED",
				"message": "Could not extract user information",
			},
		})
		return nil, false
	}

	db := config.GetDB()
	var profile models.Profile
	if err := db.Where("auth0_id = ?", auth0ID).First(&profile).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "PROFILE_NOT_FOUND",
				"message": "Profile not found. Please create a profile first.",
			},
		})
		return nil, false
	}

	return &profile, true
}

// repairIDParam parses the :id URL parameter
func repairIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_REQUEST",
				"message": "Repair request ID must be a number",
			},
		})
		return 0, false
	}
	return uint(id), true
}

// lifecycleStatus maps a lifecycle error code onto an HTTP status
var lifecycleStatus = map[string]int{
	services.CodeValidation:        http.StatusBadRequest,
	services.CodeConflict:          http.StatusConflict,
	services.CodeInvalidTransition: http.StatusUnprocessableEntity,
	services.CodeAuthorization:     http.StatusForbidden,
	services.CodeNotFound:          http.StatusNotFound,
	services.CodeStore:             http.StatusInternalServerError,
}

// respondLifecycleError writes the error envelope for a lifecycle service
// failure. Store errors never leak backend payloads.
func respondLifecycleError(c *gin.Context, err error) {
	var lcErr *services.LifecycleError
	if !errors.As(err, &lcErr) {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "Something went wrong",
			},
		})
		return
	}

	status, ok := lifecycleStatus[lcErr.Code]
	if !ok {
		status = http.StatusInternalServerError
	}
	c.JSON(status, gin.H{
		"success": false,
		"error": gin.H{
			"code":    lcErr.Code,
			"message": lcErr.Message,
		},
	})
}
