// Package apperrors defines the sentinel errors shared across the auth
// core. Handlers translate them into HTTP responses exactly once, at the
// request boundary; internal layers only wrap and return them.
package apperrors

import "errors"

var (
	// ErrAuthenticationFailure covers any bad-credential outcome. The
	// message never reveals whether the username exists.
	ErrAuthenticationFailure = errors.New("invalid credentials")

	// ErrAccountNotActivated is returned when credentials are valid but
	// the account has not been activated yet.
	ErrAccountNotActivated = errors.New("account not activated")

	ErrTokenNotFound     = errors.New("token does not exist")
	ErrExpiredToken      = errors.New("token is expired")
	ErrTokenRevoked      = errors.New("token has been revoked")
	ErrOwnershipMismatch = errors.New("token does not belong to this user")

	// ErrConflict indicates a duplicate identity (username or email).
	ErrConflict = errors.New("identity already exists")

	// ErrAccountResource covers bad activation/reset keys and blank input
	// during activation and password reset.
	ErrAccountResource = errors.New("invalid account resource")

	ErrBadRequest = errors.New("bad request")

	// ErrRemoteNotFound is the typed miss from an identity-service lookup.
	// During registration it is the success path.
	ErrRemoteNotFound = errors.New("remote resource not found")

	// ErrRemoteDenied maps 401/403 replies from a collaborator.
	ErrRemoteDenied = errors.New("remote call denied")

	// ErrRemoteUnavailable covers transport failures, timeouts and 5xx
	// replies from a collaborator. Reported as 503, never as a client error.
	ErrRemoteUnavailable = errors.New("remote dependency unavailable")
)
