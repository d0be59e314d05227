package models

import "net/http"

// Error is a domain error that carries the HTTP status it maps to.
type Error struct {
	Code   string
	Status int
	Msg    string
}

func (e *Error) Error() string { return e.Msg }

// StatusCode returns the HTTP status for the error.
func (e *Error) StatusCode() int { return e.Status }

var (
	ErrBanned              = &Error{Code: "banned", Status: http.StatusForbidden, Msg: "user is banned from interacting"}
	ErrDuplicateVote       = &Error{Code: "duplicate_vote", Status: http.StatusBadRequest, Msg: "user has already voted on this poll"}
	ErrPollNotActive       = &Error{Code: "poll_not_active", Status: http.StatusBadRequest, Msg: "poll is not active"}
	ErrNotFound            = &Error{Code: "not_found", Status: http.StatusNotFound, Msg: "not found"}
	ErrFeatureDisabled     = &Error{Code: "feature_disabled", Status: http.StatusForbidden, Msg: "feature is disabled"}
	ErrConstraintViolation = &Error{Code: "constraint_violation", Status: http.StatusConflict, Msg: "constraint violation"}
	ErrStorage             = &Error{Code: "storage_failure", Status: http.StatusInternalServerError, Msg: "storage failure"}
	ErrUnauthenticated     = &Error{Code: "unauthenticated", Status: http.StatusUnauthorized, Msg: "authentication required"}
	ErrInvalidInput        = &Error{Code: "invalid_input", Status: http.StatusBadRequest, Msg: "invalid input"}
	ErrRateLimited         = &Error{Code: "rate_limited", Status: http.StatusTooManyRequests, Msg: "too many messages, slow down"}
)
