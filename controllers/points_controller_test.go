package controllers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/renewloop/ewaste-repair-api/config"
	"github.com/renewloop/ewaste-repair-api/models"
	"github.com/stretchr/testify/assert"
)

func TestDeductPoints(t *testing.T) {
	db := setupTestDB(t)
	config.SetDB(db)

	profile := createProfile(t, db, "auth0|player", "Player", "player@example.com", "requester")
	db.Model(profile).Update("points", 150)

	router := setupTestRouter()
	router.POST("/functions/deduct-points", mockAuthMiddleware("auth0|player", "requester", "token"), DeductPoints)

	t.Run("Successful deduction returns the updated profile", func(t *testing.T) {
		w := postJSON(router, "/functions/deduct-points", DeductPointsRequest{
			UserID:         profile.ID,
			PointsToDeduct: 100,
		})

		assert.Equal(t, http.StatusOK, w.Code, "Response body: %s", w.Body.String())

		// The response is the bare profile, no envelope
		var updated models.Profile
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
		assert.Equal(t, 50, updated.Points)
	})

	t.Run("Insufficient balance leaves points untouched", func(t *testing.T) {
		w := postJSON(router, "/functions/deduct-points", DeductPointsRequest{
			UserID:         profile.ID,
			PointsToDeduct: 100,
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)

		var response map[string]interface{}
		json.Unmarshal(w.Body.Bytes(), &response)
		assert.Equal(t, "Not enough points", response["error"])

		var persisted models.Profile
		db.First(&persisted, profile.ID)
		assert.Equal(t, 50, persisted.Points)
	})

	t.Run("Exact balance can be spent", func(t *testing.T) {
		w := postJSON(router, "/functions/deduct-points", DeductPointsRequest{
			UserID:         profile.ID,
			PointsToDeduct: 50,
		})

		assert.Equal(t, http.StatusOK, w.Code)

		var updated models.Profile
		json.Unmarshal(w.Body.Bytes(), &updated)
		assert.Equal(t, 0, updated.Points)
	})

	t.Run("Unknown user", func(t *testing.T) {
		w := postJSON(router, "/functions/deduct-points", DeductPointsRequest{
			UserID:         99999,
			PointsToDeduct: 10,
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)

		var response map[string]interface{}
		json.Unmarshal(w.Body.Bytes(), &response)
		assert.Equal(t, "User not found", response["error"])
	})

	t.Run("Non-positive amount rejected", func(t *testing.T) {
		w := postJSON(router, "/functions/deduct-points", map[string]interface{}{
			"user_id":          profile.ID,
			"points_to_deduct": -5,
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
