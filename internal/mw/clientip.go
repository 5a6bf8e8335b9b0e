package mw

import (
	"github.com/gin-gonic/gin"

	"laundrylink-backend/internal/parse"
)

// ClientIP returns a function that resolves the caller's address. When header
// is set (for example "X-Forwarded-For" behind a trusted proxy) its first entry
// wins; otherwise gin's own resolution is used.
func ClientIP(header string) func(*gin.Context) string {
	return func(c *gin.Context) string {
		if header != "" {
			if ip := parse.IP(c.GetHeader(header)); ip != "" {
				return ip
			}
		}
		return c.ClientIP()
	}
}
