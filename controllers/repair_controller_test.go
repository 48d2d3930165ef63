package controllers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/renewloop/ewaste-repair-api/config"
	"github.com/renewloop/ewaste-repair-api/models"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func createRepairRow(t *testing.T, db *gorm.DB, owner *models.Profile, status string, techID *uint) *models.RepairRequest {
	repair := &models.RepairRequest{
		DeviceType:       "Laptop",
		IssueDescription: "Won't boot",
		Address:          "123 Main St",
		Status:           status,
		UserID:           owner.ID,
		TechnicianID:     techID,
	}
	if err := db.Create(repair).Error; err != nil {
		t.Fatalf("Failed to create test repair: %v", err)
	}
	return repair
}

func postJSON(router *gin.Engine, path string, payload interface{}) *httptest.ResponseRecorder {
	var body *bytes.Buffer
	if payload != nil {
		raw, _ := json.Marshal(payload)
		body = bytes.NewBuffer(raw)
	} else {
		body = bytes.NewBuffer(nil)
	}
	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCreateRepair(t *testing.T) {
	db := setupTestDB(t)
	config.SetDB(db)
	setupLifecycle(db)

	createProfile(t, db, "auth0|req", "Rita", "rita@example.com", "requester")
	createProfile(t, db, "auth0|tech", "Tom", "tom@example.com", "technician")

	t.Run("Requester creates a pending request", func(t *testing.T) {
		router := setupTestRouter()
		router.POST("/repairs", mockAuthMiddleware("auth0|req", "requester", "token"), CreateRepair)

		w := postJSON(router, "/repairs", CreateRepairRequest{
			DeviceType:       "Laptop",
			IssueDescription: "Screen is cracked",
			Address:          "42 Elm St",
			Notes:            "Handle with care",
		})

		assert.Equal(t, http.StatusCreated, w.Code, "Response body: %s", w.Body.String())

		var response map[string]interface{}
		json.Unmarshal(w.Body.Bytes(), &response)
		assert.True(t, response["success"].(bool))
		data := response["data"].(map[string]interface{})
		assert.Equal(t, "pending", data["status"])
		assert.Equal(t, "Laptop", data["device_type"])
		assert.Nil(t, data["technician_id"])
	})

	t.Run("Technician cannot create a request", func(t *testing.T) {
		router := setupTestRouter()
		router.POST("/repairs", mockAuthMiddleware("auth0|tech", "technician", "token"), CreateRepair)

		w := postJSON(router, "/repairs", CreateRepairRequest{
			DeviceType:       "Phone",
			IssueDescription: "Battery swollen",
			Address:          "42 Elm St",
		})

		assert.Equal(t, http.StatusForbidden, w.Code)

		var response map[string]interface{}
		json.Unmarshal(w.Body.Bytes(), &response)
		errorData := response["error"].(map[string]interface{})
		assert.Equal(t, "FORBIDDEN", errorData["code"])
	})

	t.Run("Missing required fields rejected", func(t *testing.T) {
		router := setupTestRouter()
		router.POST("/repairs", mockAuthMiddleware("auth0|req", "requester", "token"), CreateRepair)

		w := postJSON(router, "/repairs", map[string]string{"device_type": "Laptop"})

		assert.Equal(t, http.StatusBadRequest, w.Code)

		var response map[string]interface{}
		json.Unmarshal(w.Body.Bytes(), &response)
		errorData := response["error"].(map[string]interface{})
		assert.Equal(t, "VALIDATION_ERROR", errorData["code"])
	})
}

func TestListRepairs_Visibility(t *testing.T) {
	db := setupTestDB(t)
	config.SetDB(db)
	setupLifecycle(db)

	requester := createProfile(t, db, "auth0|req", "Rita", "rita@example.com", "requester")
	other := createProfile(t, db, "auth0|other", "Omar", "omar@example.com", "requester")
	tech := createProfile(t, db, "auth0|tech", "Tom", "tom@example.com", "technician")

	createRepairRow(t, db, requester, models.StatusPending, nil)
	createRepairRow(t, db, other, models.StatusPending, nil)
	createRepairRow(t, db, other, models.StatusAssigned, &tech.ID)

	t.Run("Requester sees only own requests", func(t *testing.T) {
		router := setupTestRouter()
		router.GET("/repairs", mockAuthMiddleware("auth0|req", "requester", "token"), ListRepairs)

		req := httptest.NewRequest(http.MethodGet, "/repairs", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var response map[string]interface{}
		json.Unmarshal(w.Body.Bytes(), &response)
		data := response["data"].([]interface{})
		assert.Len(t, data, 1)
		pagination := response["pagination"].(map[string]interface{})
		assert.Equal(t, float64(1), pagination["total"])
	})

	t.Run("Technician sees unassigned plus own assignments", func(t *testing.T) {
		router := setupTestRouter()
		router.GET("/repairs", mockAuthMiddleware("auth0|tech", "technician", "token"), ListRepairs)

		req := httptest.NewRequest(http.MethodGet, "/repairs", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var response map[string]interface{}
		json.Unmarshal(w.Body.Bytes(), &response)
		data := response["data"].([]interface{})
		assert.Len(t, data, 3)
	})

	t.Run("Pagination caps the page size", func(t *testing.T) {
		router := setupTestRouter()
		router.GET("/repairs", mockAuthMiddleware("auth0|tech", "technician", "token"), ListRepairs)

		req := httptest.NewRequest(http.MethodGet, "/repairs?page=1&limit=2", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		var response map[string]interface{}
		json.Unmarshal(w.Body.Bytes(), &response)
		data := response["data"].([]interface{})
		assert.Len(t, data, 2)
		pagination := response["pagination"].(map[string]interface{})
		assert.Equal(t, float64(3), pagination["total"])
		assert.Equal(t, float64(2), pagination["totalPages"])
	})
}

func TestGetRepair_Authorization(t *testing.T) {
	db := setupTestDB(t)
	config.SetDB(db)
	setupLifecycle(db)

	requester := createProfile(t, db, "auth0|req", "Rita", "rita@example.com", "requester")
	createProfile(t, db, "auth0|other", "Omar", "omar@example.com", "requester")
	tech := createProfile(t, db, "auth0|tech", "Tom", "tom@example.com", "technician")
	createProfile(t, db, "auth0|tech2", "Tina", "tina@example.com", "technician")

	repair := createRepairRow(t, db, requester, models.StatusAssigned, &tech.ID)

	get := func(auth0ID, role string) *httptest.ResponseRecorder {
		router := setupTestRouter()
		router.GET("/repairs/:id", mockAuthMiddleware(auth0ID, role, "token"), GetRepair)
		req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/repairs/%d", repair.ID), nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	t.Run("Owner can view", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, get("auth0|req", "requester").Code)
	})

	t.Run("Assigned technician can view", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, get("auth0|tech", "technician").Code)
	})

	t.Run("Other requester cannot view", func(t *testing.T) {
		w := get("auth0|other", "requester")
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("Other technician cannot view an assigned request", func(t *testing.T) {
		w := get("auth0|tech2", "technician")
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("Invalid ID parameter", func(t *testing.T) {
		router := setupTestRouter()
		router.GET("/repairs/:id", mockAuthMiddleware("auth0|req", "requester", "token"), GetRepair)
		req := httptest.NewRequest(http.MethodGet, "/repairs/abc", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)

		var response map[string]interface{}
		json.Unmarshal(w.Body.Bytes(), &response)
		errorData := response["error"].(map[string]interface{})
		assert.Equal(t, "INVALID_REQUEST", errorData["code"])
	})
}

func TestClaimRepair(t *testing.T) {
	db := setupTestDB(t)
	config.SetDB(db)
	setupLifecycle(db)

	requester := createProfile(t, db, "auth0|req", "Rita", "rita@example.com", "requester")
	createProfile(t, db, "auth0|techa", "Tina", "tina@example.com", "technician")
	createProfile(t, db, "auth0|techb", "Theo", "theo@example.com", "technician")

	repair := createRepairRow(t, db, requester, models.StatusPending, nil)

	claim := func(auth0ID string) *httptest.ResponseRecorder {
		router := setupTestRouter()
		router.POST("/repairs/:id/claim", mockAuthMiddleware(auth0ID, "technician", "token"), ClaimRepair)
		return postJSON(router, fmt.Sprintf("/repairs/%d/claim", repair.ID), nil)
	}

	// First technician wins
	w := claim("auth0|techa")
	assert.Equal(t, http.StatusOK, w.Code, "Response body: %s", w.Body.String())

	var response map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &response)
	data := response["data"].(map[string]interface{})
	assert.Equal(t, "assigned", data["status"])

	// Second claim on the same request conflicts
	w = claim("auth0|techb")
	assert.Equal(t, http.StatusConflict, w.Code)

	json.Unmarshal(w.Body.Bytes(), &response)
	errorData := response["error"].(map[string]interface{})
	assert.Equal(t, "CONFLICT", errorData["code"])

	// The winner's assignment is untouched by the losing attempt
	var persisted models.RepairRequest
	db.First(&persisted, repair.ID)
	assert.Equal(t, models.StatusAssigned, persisted.Status)
}

func TestClaimRepair_RequesterForbidden(t *testing.T) {
	db := setupTestDB(t)
	config.SetDB(db)
	setupLifecycle(db)

	requester := createProfile(t, db, "auth0|req", "Rita", "rita@example.com", "requester")
	repair := createRepairRow(t, db, requester, models.StatusPending, nil)

	router := setupTestRouter()
	router.POST("/repairs/:id/claim", mockAuthMiddleware("auth0|req", "requester", "token"), ClaimRepair)
	w := postJSON(router, fmt.Sprintf("/repairs/%d/claim", repair.ID), nil)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAdvanceRepair(t *testing.T) {
	db := setupTestDB(t)
	config.SetDB(db)
	setupLifecycle(db)

	requester := createProfile(t, db, "auth0|req", "Rita", "rita@example.com", "requester")
	tech := createProfile(t, db, "auth0|tech", "Tom", "tom@example.com", "technician")

	repair := createRepairRow(t, db, requester, models.StatusAssigned, &tech.ID)

	advance := func(auth0ID, role, status string) *httptest.ResponseRecorder {
		router := setupTestRouter()
		router.POST("/repairs/:id/status", mockAuthMiddleware(auth0ID, role, "token"), AdvanceRepair)
		return postJSON(router, fmt.Sprintf("/repairs/%d/status", repair.ID), AdvanceRepairRequest{Status: status})
	}

	t.Run("Assigned technician advances", func(t *testing.T) {
		w := advance("auth0|tech", "technician", models.StatusDiagnosing)
		assert.Equal(t, http.StatusOK, w.Code, "Response body: %s", w.Body.String())

		var response map[string]interface{}
		json.Unmarshal(w.Body.Bytes(), &response)
		data := response["data"].(map[string]interface{})
		assert.Equal(t, "diagnosing", data["status"])
	})

	t.Run("Backward transition rejected", func(t *testing.T) {
		w := advance("auth0|tech", "technician", models.StatusAssigned)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

		var response map[string]interface{}
		json.Unmarshal(w.Body.Bytes(), &response)
		errorData := response["error"].(map[string]interface{})
		assert.Equal(t, "INVALID_TRANSITION", errorData["code"])
	})

	t.Run("Requester cannot advance", func(t *testing.T) {
		w := advance("auth0|req", "requester", models.StatusRepairing)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestCancelRepair(t *testing.T) {
	db := setupTestDB(t)
	config.SetDB(db)
	setupLifecycle(db)

	requester := createProfile(t, db, "auth0|req", "Rita", "rita@example.com", "requester")
	tech := createProfile(t, db, "auth0|tech", "Tom", "tom@example.com", "technician")

	t.Run("Requester cancels own pending request", func(t *testing.T) {
		repair := createRepairRow(t, db, requester, models.StatusPending, nil)

		router := setupTestRouter()
		router.POST("/repairs/:id/cancel", mockAuthMiddleware("auth0|req", "requester", "token"), CancelRepair)
		w := postJSON(router, fmt.Sprintf("/repairs/%d/cancel", repair.ID), nil)

		assert.Equal(t, http.StatusOK, w.Code, "Response body: %s", w.Body.String())

		var response map[string]interface{}
		json.Unmarshal(w.Body.Bytes(), &response)
		data := response["data"].(map[string]interface{})
		assert.Equal(t, "cancelled", data["status"])
	})

	t.Run("Completed request cannot be cancelled", func(t *testing.T) {
		repair := createRepairRow(t, db, requester, models.StatusCompleted, &tech.ID)

		router := setupTestRouter()
		router.POST("/repairs/:id/cancel", mockAuthMiddleware("auth0|tech", "technician", "token"), CancelRepair)
		w := postJSON(router, fmt.Sprintf("/repairs/%d/cancel", repair.ID), nil)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}

func TestSetEstimate(t *testing.T) {
	db := setupTestDB(t)
	config.SetDB(db)
	setupLifecycle(db)

	requester := createProfile(t, db, "auth0|req", "Rita", "rita@example.com", "requester")
	tech := createProfile(t, db, "auth0|tech", "Tom", "tom@example.com", "technician")

	repair := createRepairRow(t, db, requester, models.StatusDiagnosing, &tech.ID)

	estimate := func(auth0ID, role string, payload interface{}) *httptest.ResponseRecorder {
		router := setupTestRouter()
		router.POST("/repairs/:id/estimate", mockAuthMiddleware(auth0ID, role, "token"), SetEstimate)
		return postJSON(router, fmt.Sprintf("/repairs/%d/estimate", repair.ID), payload)
	}

	t.Run("Assigned technician sets the estimate", func(t *testing.T) {
		amount := 49.99
		w := estimate("auth0|tech", "technician", EstimateRequest{Amount: &amount})
		assert.Equal(t, http.StatusOK, w.Code, "Response body: %s", w.Body.String())

		var response map[string]interface{}
		json.Unmarshal(w.Body.Bytes(), &response)
		data := response["data"].(map[string]interface{})
		assert.Equal(t, 49.99, data["estimated_cost"])
	})

	t.Run("Negative amount rejected", func(t *testing.T) {
		amount := -5.0
		w := estimate("auth0|tech", "technician", EstimateRequest{Amount: &amount})
		assert.Equal(t, http.StatusBadRequest, w.Code)

		var response map[string]interface{}
		json.Unmarshal(w.Body.Bytes(), &response)
		errorData := response["error"].(map[string]interface{})
		assert.Equal(t, "VALIDATION_ERROR", errorData["code"])
	})

	t.Run("Missing amount rejected", func(t *testing.T) {
		w := estimate("auth0|tech", "technician", map[string]string{})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Requester cannot set the estimate", func(t *testing.T) {
		amount := 10.0
		w := estimate("auth0|req", "requester", EstimateRequest{Amount: &amount})
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}
