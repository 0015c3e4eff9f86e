package identity

import "time"

// User is the identity record owned by the remote identity service. This
// core only ever reads and writes it over the wire.
type User struct {
	ID            int64      `json:"id"`
	Username      string     `json:"username"`
	Email         string     `json:"email"`
	Role          string     `json:"role"`
	Activated     bool       `json:"activated"`
	ActivationKey string     `json:"activation_key,omitempty"`
	ResetKey      string     `json:"reset_key,omitempty"`
	LastLoginAt   *time.Time `json:"last_login_at,omitempty"`
}

// Registration is the payload for creating a new identity record. The
// password must already be hashed by the caller.
type Registration struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// credentials is the authenticate payload.
type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// lastLoginUpdate carries the remote last-login timestamp update.
type lastLoginUpdate struct {
	LastLoginAt time.Time `json:"last_login_at"`
}

// passwordReset finishes a reset: key plus the already-hashed password.
type passwordReset struct {
	Email       string `json:"email"`
	Key         string `json:"key"`
	NewPassword string `json:"new_password"`
}
