// -------------------------------------------------------------------------------
// Auth - Bearer Token Middleware
//
// Project: KCloud / Author: Alex Freidah
//
// Static bearer token authentication for the API routes. The comparison is
// constant-time so the token cannot be probed byte by byte. Health and
// metrics endpoints are mounted outside this middleware.
// -------------------------------------------------------------------------------

package auth

import (
	"crypto/subtle"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/nestorara/kcloud-music-api/internal/faults"
)

const bearerPrefix = "Bearer "

// Middleware returns a gin handler enforcing the configured bearer token.
// An empty configured token disables authentication.
func Middleware(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, bearerPrefix) {
			abort(c)
			return
		}

		provided := strings.TrimPrefix(header, bearerPrefix)
		if subtle.ConstantTimeCompare([]byte(provided), []byte(token)) != 1 {
			abort(c)
			return
		}
		c.Next()
	}
}

func abort(c *gin.Context) {
	f := faults.New(faults.AccessDenied, "access denied")
	c.AbortWithStatusJSON(f.Kind.HTTPStatus(), gin.H{
		"message":   f.Message,
		"errorCode": f.Kind.Code(),
	})
}
