package service

import "errors"

// Sentinel errors for service lifecycle misuse.
var (
	ErrAlreadyStarted = errors.New("service already started")
)
