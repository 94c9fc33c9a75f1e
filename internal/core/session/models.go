package session

import "errors"

var (
	ErrMissingCredentials = errors.New("email and password are required")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmptyToken         = errors.New("login response carried no token")
	ErrCorruptStore       = errors.New("stored session could not be read")
)

type Status string

const (
	StatusAnonymous     Status = "anonymous"
	StatusAuthenticated Status = "authenticated"
)

type LoginRequest struct {
	Email    string `json:"email" form:"email" binding:"required"`
	Password string `json:"password" form:"password" binding:"required"`
}

type LoginResponse struct {
	Token string `json:"token"`
}

// State is a point-in-time read of the session.
type State struct {
	Status    Status `json:"status"`
	ExpiresAt *int64 `json:"expires_at,omitempty"`
}
