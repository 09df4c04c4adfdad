package models

import "errors"

var (
	ErrAuth             = errors.New("authentication failed")
	ErrStoreUnavailable = errors.New("post store unavailable")
	ErrPublish          = errors.New("publish failed")
	// ErrCycleBusy is wrapped by errors reporting that a cycle is already running or queued.
	ErrCycleBusy = errors.New("a posting cycle is already running")
)
