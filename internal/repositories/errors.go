package repositories

import "errors"

// Sentinel errors surfaced to the HTTP boundary, which maps them 1:1 to
// status codes.
var (
	ErrPartyNotFound       = errors.New("party not found")
	ErrPartyEnded          = errors.New("party ended")
	ErrPartyAlreadyStarted = errors.New("party already started")
	ErrActivePartyExists   = errors.New("user has active party")
	ErrMovieSourceNotFound = errors.New("movie source not found")
	ErrInvalidCode         = errors.New("invalid join code")
	ErrJoinCodeTaken       = errors.New("join code taken")
	ErrNotHost             = errors.New("not host")
	ErrMemberNotFound      = errors.New("member not found")
	ErrMessageNotFound     = errors.New("message not found")
	ErrUserNotFound        = errors.New("user not found")
)
