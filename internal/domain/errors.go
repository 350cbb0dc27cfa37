package domain

import "errors"

var (
	// ErrInvalidCredential covers malformed, forged or expired bearer tokens.
	ErrInvalidCredential = errors.New("invalid credential")
	// ErrMissingSubject is returned for otherwise valid tokens without a sub claim.
	ErrMissingSubject = errors.New("credential missing subject")
	// ErrStorageFailure wraps read/write failures of the post store.
	ErrStorageFailure = errors.New("storage failure")
	// ErrSendFailure wraps delivery failures on a live channel.
	ErrSendFailure = errors.New("send failure")

	ErrPostNotFound    = errors.New("post not found")
	ErrInvalidSchedule = errors.New("scheduled time must be in the future")
)
