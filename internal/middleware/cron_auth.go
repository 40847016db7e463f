package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/verixence/erp-school-sub008/config"
)

// CronAuthMiddleware guards the batch endpoints with the shared CRON_SECRET
// bearer token. When no secret is configured the check is skipped, which
// keeps local development and tests friction free.
func CronAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		secret := config.CronSecret()
		if secret == "" {
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or missing cron token"})
			return
		}
		c.Next()
	}
}
