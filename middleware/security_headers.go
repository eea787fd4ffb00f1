package middleware

import "github.com/gin-gonic/gin"

// SecurityHeaders sets the baseline response headers every endpoint gets.
// Responses behind the auth gate carry user data, so caching is disabled
// across the board.
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()

		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Cache-Control", "no-store")

		c.Next()
	}
}
