package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newTestContext() *gin.Context {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	return c
}

func TestCustomClaims_HasScope(t *testing.T) {
	tests := []struct {
		name     string
		scope    string
		expected string
		has      bool
	}{
		{"Single matching scope", "read:repairs", "read:repairs", true},
		{"One of many scopes", "read:repairs write:repairs", "write:repairs", true},
		{"Missing scope", "read:repairs", "write:repairs", false},
		{"Empty scope string", "", "read:repairs", false},
		{"Partial match does not count", "read:repairs-all", "read:repairs", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims := CustomClaims{Scope: tt.scope}
			assert.Equal(t, tt.has, claims.HasScope(tt.expected))
		})
	}
}

func TestGetUserID(t *testing.T) {
	t.Run("Returns the stored user ID", func(t *testing.T) {
		c := newTestContext()
		c.Set("user_id", "auth0|12345")

		userID, err := GetUserID(c)
		assert.NoError(t, err)
		assert.Equal(t, "auth0|12345", userID)
	})

	t.Run("Missing user ID", func(t *testing.T) {
		c := newTestContext()

		_, err := GetUserID(c)
		assert.Error(t, err)
		authErr, ok := err.(*AuthError)
		assert.True(t, ok)
		assert.Equal(t, "MISSING_USER_ID", authErr.Code)
	})

	t.Run("Non-string user ID", func(t *testing.T) {
		c := newTestContext()
		c.Set("user_id", 12345)

		_, err := GetUserID(c)
		assert.Error(t, err)
		authErr := err.(*AuthError)
		assert.Equal(t, "INVALID_USER_ID", authErr.Code)
	})
}

func TestGetAccessToken(t *testing.T) {
	t.Run("Returns the stored token", func(t *testing.T) {
		c := newTestContext()
		c.Set("access_token", "raw-token")

		token, err := GetAccessToken(c)
		assert.NoError(t, err)
		assert.Equal(t, "raw-token", token)
	})

	t.Run("Missing token", func(t *testing.T) {
		c := newTestContext()

		_, err := GetAccessToken(c)
		assert.Error(t, err)
		authErr := err.(*AuthError)
		assert.Equal(t, "MISSING_TOKEN", authErr.Code)
	})
}

func TestGetClaims(t *testing.T) {
	t.Run("Returns validated claims", func(t *testing.T) {
		c := newTestContext()
		stored := &validator.ValidatedClaims{
			RegisteredClaims: validator.RegisteredClaims{Subject: "auth0|12345"},
			CustomClaims:     &CustomClaims{Role: "technician"},
		}
		c.Set("validated_claims", stored)

		claims, err := GetClaims(c)
		assert.NoError(t, err)
		assert.Equal(t, "auth0|12345", claims.RegisteredClaims.Subject)

		custom := claims.CustomClaims.(*CustomClaims)
		assert.Equal(t, "technician", custom.Role)
	})

	t.Run("Missing claims", func(t *testing.T) {
		c := newTestContext()

		_, err := GetClaims(c)
		assert.Error(t, err)
		authErr := err.(*AuthError)
		assert.Equal(t, "MISSING_CLAIMS", authErr.Code)
	})

	t.Run("Wrong type in context", func(t *testing.T) {
		c := newTestContext()
		c.Set("validated_claims", "not-claims")

		_, err := GetClaims(c)
		assert.Error(t, err)
		authErr := err.(*AuthError)
		assert.Equal(t, "INVALID_CLAIMS", authErr.Code)
	})
}

func TestRequireScope(t *testing.T) {
	runWithScope := func(scope, required string) *httptest.ResponseRecorder {
		gin.SetMode(gin.TestMode)
		w := httptest.NewRecorder()

		router := gin.New()
		router.GET("/scoped", func(c *gin.Context) {
			c.Set("validated_claims", &validator.ValidatedClaims{
				CustomClaims: &CustomClaims{Scope: scope},
			})
			c.Next()
		}, RequireScope(required), func(c *gin.Context) {
			c.JSON(200, gin.H{"success": true})
		})

		req := httptest.NewRequest("GET", "/scoped", nil)
		router.ServeHTTP(w, req)
		return w
	}

	t.Run("Allows matching scope", func(t *testing.T) {
		w := runWithScope("read:repairs write:repairs", "write:repairs")
		assert.Equal(t, 200, w.Code)
	})

	t.Run("Rejects missing scope", func(t *testing.T) {
		w := runWithScope("read:repairs", "write:repairs")
		assert.Equal(t, 403, w.Code)
		assert.Contains(t, w.Body.String(), "INSUFFICIENT_SCOPE")
	})
}
