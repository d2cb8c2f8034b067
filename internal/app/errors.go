package app

import "errors"

// ErrNotFound and related errors describe lookup and connectivity failures.
var (
	ErrNotFound = errors.New("not found")
	ErrOffline  = errors.New("tracker unreachable")
)
