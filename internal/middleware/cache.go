package middleware

import (
	"github.com/gin-gonic/gin"
)

// Cache-Control directives used by the API.
const (
	CacheRevalidate = "no-cache"
	CacheNoStore    = "private, no-store"
)

// CacheControl sets the Cache-Control header for responses.
func CacheControl(directive string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", directive)
		c.Next()
	}
}
