package service

import "errors"

var (
	// ErrNotRecognized covers every authentication failure the caller is
	// allowed to see: wrong code, wrong contact, unknown name, consumed or
	// superseded link. Handlers map it to one neutral message so responses
	// never reveal whether a guest exists.
	ErrNotRecognized = errors.New("credentials not recognized")

	ErrExpired        = errors.New("access link expired")
	ErrAlreadyUsed    = errors.New("access link already used")
	ErrRateLimited    = errors.New("too many attempts")
	ErrNoContact      = errors.New("guest has no contact address on file")
	ErrDeadlinePassed = errors.New("the response deadline has passed")

	// ErrCapacityExceeded rejects RSVPs whose headcount exceeds the
	// invitation's allowance.
	ErrCapacityExceeded = errors.New("party size exceeds invitation allowance")

	ErrMenuRequired = errors.New("menu choice is required for this invitation")

	ErrNegativeCounts        = errors.New("companion counts cannot be negative")
	ErrCompanionNameRequired = errors.New("companion name is required")
)
