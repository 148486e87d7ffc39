package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// UserHeader carries the caller's user id for per-user favorites
const UserHeader = "X-User-ID"

const userKey = "user_id"

// User stores the caller's user id in the context; an absent header means the default user
func User() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(userKey, strings.TrimSpace(c.GetHeader(UserHeader)))
		c.Next()
	}
}

// UserID returns the id stored by User, or "" for the default user
func UserID(c *gin.Context) string {
	return c.GetString(userKey)
}
