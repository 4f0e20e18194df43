package impl

import "errors"

var (
	ErrEmptyPassword   = errors.New("empty password")
	ErrEmptyCredential = errors.New("empty credential(s)")
	ErrEmptyIdentifier = errors.New("empty identifier")
	ErrBadOAuthProfile = errors.New("incomplete oauth profile")
)
