package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// SecurityHeaders adds the standard hardening headers to every response.
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-XSS-Protection", "1; mode=block")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Content-Security-Policy", "default-src 'self'")
		h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		c.Next()
	}
}

// BodyLimit rejects bodies larger than maxBytes with 413. Requests without a
// Content-Length are cut off while the body is read.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			AbortPayloadTooLarge(c, maxBytes)
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}

// AbortPayloadTooLarge writes the 413 response.
func AbortPayloadTooLarge(c *gin.Context, maxBytes int64) {
	c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{
		"status":  "error",
		"message": "Request payload too large",
		"errors":  gin.H{"general": []string{PayloadTooLargeMessage(maxBytes)}},
	})
}

// PayloadTooLargeMessage describes the body size limit.
func PayloadTooLargeMessage(maxBytes int64) string {
	const mib = 1 << 20
	size := strconv.FormatInt(maxBytes, 10) + " bytes"
	if maxBytes >= mib && maxBytes%mib == 0 {
		size = strconv.FormatInt(maxBytes/mib, 10) + "MB"
	}
	return "Request body exceeds maximum allowed size of " + size
}

// CORS allows every origin.
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, PATCH, DELETE")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
