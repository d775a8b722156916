package errors

import (
	"errors"
)

// Moderation error kinds surfaced to chat members as alerts or replies.
var (
	ErrNotFound       = errors.New("not found")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrAlreadyPending = errors.New("review already pending")
	ErrNoPrivileges   = errors.New("bot lacks privileges")
)
