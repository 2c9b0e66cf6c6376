package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockLimiter struct {
	mock.Mock
}

func (m *mockLimiter) CheckLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, time.Duration, error) {
	args := m.Called(ctx, key, limit, window)
	return args.Bool(0), args.Get(1).(time.Duration), args.Error(2)
}

func rateLimitedRouter(limiter LimitChecker, userID string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(ErrorHandler())
	r.POST("/pay", func(c *gin.Context) {
		if userID != "" {
			c.Set(string(UserIDKey), userID)
		}
		c.Next()
	}, PaymentRateLimiter(limiter, 5, time.Minute), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func TestPaymentRateLimiter(t *testing.T) {
	t.Run("allowed", func(t *testing.T) {
		limiter := &mockLimiter{}
		limiter.On("CheckLimit", mock.Anything, "payments:parent-1", 5, time.Minute).Return(true, time.Duration(0), nil)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodPost, "/pay", nil)
		rateLimitedRouter(limiter, "parent-1").ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "5", w.Header().Get("X-RateLimit-Limit"))
		limiter.AssertExpectations(t)
	})

	t.Run("exceeded", func(t *testing.T) {
		limiter := &mockLimiter{}
		limiter.On("CheckLimit", mock.Anything, "payments:parent-1", 5, time.Minute).Return(false, 42*time.Second, nil)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodPost, "/pay", nil)
		rateLimitedRouter(limiter, "parent-1").ServeHTTP(w, req)

		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Equal(t, "42", w.Header().Get("Retry-After"))
		assert.Contains(t, w.Body.String(), "RATE_LIMIT_EXCEEDED")
	})

	t.Run("anonymous keyed by ip", func(t *testing.T) {
		limiter := &mockLimiter{}
		limiter.On("CheckLimit", mock.Anything, "payments:ip:203.0.113.7", 5, time.Minute).Return(true, time.Duration(0), nil)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodPost, "/pay", nil)
		req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
		rateLimitedRouter(limiter, "").ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		limiter.AssertExpectations(t)
	})

	t.Run("limiter error fails open", func(t *testing.T) {
		limiter := &mockLimiter{}
		limiter.On("CheckLimit", mock.Anything, mock.Anything, 5, time.Minute).Return(false, time.Duration(0), errors.New("redis down"))

		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodPost, "/pay", nil)
		rateLimitedRouter(limiter, "parent-1").ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})
}
