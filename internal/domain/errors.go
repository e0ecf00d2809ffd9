package domain

import "errors"

// Domain errors
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrLocationNotFound   = errors.New("location not found")
	ErrRouteNotFound      = errors.New("route not found")
	ErrClimbNotFound      = errors.New("climb not found")
	ErrFriendshipNotFound = errors.New("friendship not found")
	ErrForbidden          = errors.New("not authorized")
	ErrUnauthenticated    = errors.New("missing viewer identity")
	ErrUnknownAscentType  = errors.New("unknown ascent type")
	ErrInvalidGrade       = errors.New("invalid grade")
	ErrConflict           = errors.New("conflicting state")
	ErrRateLimited        = errors.New("rate limit exceeded")
	ErrInvalidRequest     = errors.New("invalid request")
	ErrInternalError      = errors.New("internal server error")
)

// IsNotFoundError checks if an error is a not-found type error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrLocationNotFound) ||
		errors.Is(err, ErrRouteNotFound) ||
		errors.Is(err, ErrClimbNotFound) ||
		errors.Is(err, ErrFriendshipNotFound)
}
