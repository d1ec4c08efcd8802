// Package middleware provides the gin middleware chain of the API server.
package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// HeaderRequestID carries the request correlation id.
	HeaderRequestID = "X-Request-ID"
	// HeaderUserID carries the caller identity set by the upstream gateway.
	HeaderUserID = "X-User-ID"

	requestIDKey = "request_id"
	userIDKey    = "user_id"

	// AnonymousUser is recorded when no identity header is present.
	AnonymousUser = "anonymous"

	maxHeaderIDLength = 128
)

// RequestID propagates an incoming X-Request-ID or assigns a new one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(HeaderRequestID))
		if id == "" || len(id) > maxHeaderIDLength {
			id = uuid.New().String()
		}
		c.Set(requestIDKey, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

// Identity records the caller identity forwarded by the gateway in front of
// the API. Authentication itself happens upstream.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := strings.TrimSpace(c.GetHeader(HeaderUserID))
		if user == "" || len(user) > maxHeaderIDLength {
			user = AnonymousUser
		}
		c.Set(userIDKey, user)
		c.Next()
	}
}

// GetRequestID returns the request id assigned by RequestID.
func GetRequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// GetUserID returns the identity recorded by Identity, or AnonymousUser.
func GetUserID(c *gin.Context) string {
	if id := c.GetString(userIDKey); id != "" {
		return id
	}
	return AnonymousUser
}
