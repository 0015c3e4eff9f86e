package auth

import (
	"strings"

	"github.com/orbitcommerce/auth-core/internal/modules/identity"
)

type LoginDTO struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type RegisterDTO struct {
	Username string `json:"username" binding:"required,min=3"`
	Email    string `json:"email"    binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type RefreshDTO struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type ResetFinishDTO struct {
	Email       string `json:"email"        binding:"required,email"`
	Key         string `json:"key"          binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=6"`
}

// RequestMeta captures the client attributes of one request, threaded
// explicitly through the lifecycle instead of any ambient state.
type RequestMeta struct {
	IP        string
	UserAgent string
}

// IsMobile sniffs the user agent the same way the session store stores it.
func (m RequestMeta) IsMobile() bool {
	return strings.Contains(strings.ToLower(m.UserAgent), "mobile")
}

// LoginResult is the token pair handed back on login and refresh.
// TTLs are reported in seconds.
type LoginResult struct {
	AccessToken      string        `json:"access_token"`
	RefreshToken     string        `json:"refresh_token"`
	TokenType        string        `json:"token_type"`
	ExpiresIn        int64         `json:"expires_in"`
	RefreshExpiresIn int64         `json:"refresh_expires_in"`
	User             identity.User `json:"user"`
}
