package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-that-is-long-enough-for-testing"

func signToken(t *testing.T, secret, sub, role string, exp time.Time) string {
	t.Helper()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestJWTValidator(t *testing.T) {
	v, err := NewJWTValidator(testSecret)
	require.NoError(t, err)
	future := time.Now().Add(time.Hour)

	t.Run("valid", func(t *testing.T) {
		claims, err := v.Validate(signToken(t, testSecret, "parent-1", RoleParent, future))
		require.NoError(t, err)
		assert.Equal(t, "parent-1", claims.Subject)
		assert.Equal(t, RoleParent, claims.Role)
	})

	t.Run("expired", func(t *testing.T) {
		_, err := v.Validate(signToken(t, testSecret, "parent-1", RoleParent, time.Now().Add(-time.Minute)))
		assert.ErrorIs(t, err, ErrTokenExpired)
	})

	t.Run("wrong secret", func(t *testing.T) {
		_, err := v.Validate(signToken(t, "another-secret-that-is-long-enough-too", "parent-1", RoleParent, future))
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("missing role", func(t *testing.T) {
		_, err := v.Validate(signToken(t, testSecret, "parent-1", "", future))
		assert.ErrorIs(t, err, ErrTokenMissingClaim)
	})

	t.Run("missing subject", func(t *testing.T) {
		_, err := v.Validate(signToken(t, testSecret, "", RoleAdmin, future))
		assert.ErrorIs(t, err, ErrTokenMissingClaim)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := v.Validate("not-a-token")
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("empty secret rejected", func(t *testing.T) {
		_, err := NewJWTValidator("")
		assert.Error(t, err)
	})
}

func setupAuthTestRouter(t *testing.T, roles ...string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	v, err := NewJWTValidator(testSecret)
	require.NoError(t, err)

	r := gin.New()
	r.Use(ErrorHandler())
	handlers := []gin.HandlerFunc{AuthMiddleware(v)}
	if len(roles) > 0 {
		handlers = append(handlers, RequireRole(roles...))
	}
	handlers = append(handlers, func(c *gin.Context) {
		userID, role := CurrentUser(c)
		c.JSON(http.StatusOK, gin.H{"userId": userID, "role": role, "admin": IsAdmin(c)})
	})
	r.GET("/protected", handlers...)
	return r
}

func TestAuthMiddleware(t *testing.T) {
	r := setupAuthTestRouter(t)
	future := time.Now().Add(time.Hour)

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantCode   string
	}{
		{"no header", "", http.StatusUnauthorized, "401"},
		{"not bearer", "Basic abc", http.StatusUnauthorized, "401"},
		{"expired", "Bearer " + signToken(t, testSecret, "u", RoleParent, time.Now().Add(-time.Hour)), http.StatusUnauthorized, "401"},
		{"valid", "Bearer " + signToken(t, testSecret, "driver-7", RoleDriver, future), http.StatusOK, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req, _ := http.NewRequest(http.MethodGet, "/protected", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.wantStatus, w.Code)

			var body map[string]any
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, "driver-7", body["userId"])
				assert.Equal(t, RoleDriver, body["role"])
				assert.Equal(t, false, body["admin"])
			} else {
				assert.Equal(t, tt.wantCode, body["code"])
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	r := setupAuthTestRouter(t, RoleAdmin)
	future := time.Now().Add(time.Hour)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, "parent-1", RoleParent, future))
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, "ops-1", RoleAdmin, future))
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"admin":true`)
}
