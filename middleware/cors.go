package middleware

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

const (
	allowedMethods = "GET, OPTIONS"
	allowedHeaders = "Content-Type"
)

// Preflight answers every OPTIONS request with 200, an empty body and open
// CORS headers. Other methods pass through.
func Preflight() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodOptions {
			c.Next()
			return
		}

		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", allowedMethods)
		h.Set("Access-Control-Allow-Headers", allowedHeaders)
		c.AbortWithStatus(http.StatusOK)
	}
}

// AllowAnyOrigin marks a response readable from any origin.
func AllowAnyOrigin() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Next()
	}
}

// RestrictedCORS limits cross-origin access to the given origins.
func RestrictedCORS(origins []string) gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOrigins: origins,
		AllowMethods: []string{http.MethodGet, http.MethodOptions},
		AllowHeaders: []string{allowedHeaders},
		MaxAge:       12 * time.Hour,
	})
}
