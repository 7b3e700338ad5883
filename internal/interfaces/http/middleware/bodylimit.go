package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mutasi/backend/internal/interfaces/http/dto"
)

// BodyLimit returns a middleware that limits request body size. The
// limit must leave room for the multipart overhead on top of the
// maximum attachment size.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge,
				dto.NewErrorResponse(dto.ErrCodeRequestTooLarge,
					"Request body exceeds maximum allowed size"))
			return
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
