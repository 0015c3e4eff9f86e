package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/orbitcommerce/auth-core/internal/pkg/rbac"
	"github.com/orbitcommerce/auth-core/internal/pkg/response"
)

// RequireRole guards a route behind the role hierarchy. Unknown or
// missing roles fail closed with 403.
func RequireRole(required rbac.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := CurrentCaller(c)
		if !ok {
			response.Unauthorized(c, "no verified identity on request")
			return
		}
		if !rbac.HasPermission(caller.Role, required) {
			response.Forbidden(c, "insufficient role")
			return
		}
		c.Next()
	}
}

// CanAccessUser implements the "self or elevated" rule used inline in
// handlers: a caller may touch their own resources, anyone else's
// require at least STAFF.
func CanAccessUser(c *gin.Context, targetUserID int64) bool {
	caller, ok := CurrentCaller(c)
	if !ok {
		return false
	}
	if caller.UserID == targetUserID {
		return true
	}
	return rbac.HasPermission(caller.Role, rbac.RoleStaff)
}
