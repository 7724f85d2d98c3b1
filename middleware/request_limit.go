package middleware

import (
	"net/http"

	"gestion-optica-api/utils"

	"github.com/gin-gonic/gin"
)

// DefaultMaxBodyBytes caps request bodies.
const DefaultMaxBodyBytes int64 = 10 << 20

// RequestSizeLimit rejects declared oversize bodies with 413 and caps reads
// on the rest.
func RequestSizeLimit(maxSize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxSize {
			_ = c.Error(utils.NewAppError(http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE",
				"request body exceeds maximum size").
				WithDetails(map[string]any{
					"max_size": maxSize,
					"received": c.Request.ContentLength,
				}))
			c.Abort()
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize)
		}
		c.Next()
	}
}
