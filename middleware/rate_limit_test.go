package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestRateLimiterBurstThen429(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.POST("/login", RateLimiterMiddleware(RateLimiterConfig{
		RequestsPerSecond: 1,
		Burst:             3,
	}), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	hit := func(ip string) int {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = ip + ":1234"

		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w.Code
	}

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, hit("192.0.2.1"))
	}

	assert.Equal(t, http.StatusTooManyRequests, hit("192.0.2.1"))

	// Another client has its own bucket
	assert.Equal(t, http.StatusOK, hit("192.0.2.2"))
}
