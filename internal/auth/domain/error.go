package domain

import "errors"

// Credential and account errors. Unknown email and wrong password both
// surface as ErrInvalidCredentials.
var (
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrUserNotFound       = errors.New("user_not_found")
	ErrUserExists         = errors.New("user_exists")
)

// Session errors. The HTTP layer reports all of them as unauthenticated.
var (
	ErrSessionNotFound = errors.New("session_not_found")
	ErrSessionExpired  = errors.New("session_expired")
	ErrSessionRevoked  = errors.New("session_revoked")
	ErrInvalidSession  = errors.New("invalid_session")
	ErrUnauthenticated = errors.New("unauthenticated")
)
