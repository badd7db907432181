package shared

import "fmt"

var (
	ErrTimeout = fmt.Errorf("operation timed out")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication and session errors
	ErrAuthFailed       = fmt.Errorf("authentication failed")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrTokenExpired     = fmt.Errorf("access token expired")
	ErrRefreshFailed    = fmt.Errorf("token refresh failed")
	ErrNoRefreshToken   = fmt.Errorf("no refresh token available")
	ErrSessionNotFound  = fmt.Errorf("session not found")
	ErrSessionInvalid   = fmt.Errorf("session invalid, reauthorization required")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrRateLimited        = fmt.Errorf("rate limited by provider")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrPlaylistNotFound   = fmt.Errorf("playlist not found")

	// Sync errors
	ErrChunkFailed         = fmt.Errorf("mutation chunk failed")
	ErrConflictUnresolved  = fmt.Errorf("destination playlist is not empty and no strategy was chosen")
	ErrUnsupportedStrategy = fmt.Errorf("unsupported sync strategy")

	// Input validation errors
	ErrBadRequest      = fmt.Errorf("bad request")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
