package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// Header names injected by the gateway. They are authoritative only when
// traffic arrived through the gateway; internal services must not be
// reachable directly from untrusted networks.
const (
	HeaderUserID    = "X-User-Id"
	HeaderUserName  = "X-User-Name"
	HeaderUserRole  = "X-User-Role"
	HeaderUserEmail = "X-User-Email"
)

const contextKeyCaller = "auth_caller"

// Caller is the verified identity propagated by the gateway, carried in
// the request-scoped context only.
type Caller struct {
	UserID   int64
	Username string
	Role     string
	Email    string
}

// Identity parses the gateway-injected headers into the request context.
// Requests without the headers pass through anonymous; guards downstream
// decide whether that is acceptable.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		rawID := c.GetHeader(HeaderUserID)
		if rawID != "" {
			id, err := strconv.ParseInt(rawID, 10, 64)
			if err == nil {
				c.Set(contextKeyCaller, Caller{
					UserID:   id,
					Username: c.GetHeader(HeaderUserName),
					Role:     c.GetHeader(HeaderUserRole),
					Email:    c.GetHeader(HeaderUserEmail),
				})
			}
		}
		c.Next()
	}
}

// CurrentCaller returns the verified caller, if any.
func CurrentCaller(c *gin.Context) (Caller, bool) {
	v, ok := c.Get(contextKeyCaller)
	if !ok {
		return Caller{}, false
	}
	caller, ok := v.(Caller)
	return caller, ok
}
