package clientcli

import "errors"

// Errors for profile operations.
var (
	ErrProfileNotFound = errors.New("profile not found")
	ErrNoProfiles      = errors.New("no profiles configured")
	ErrProfileExists   = errors.New("profile already exists")
)

// Errors for configuration validation.
var (
	ErrTokenRequired  = errors.New("not logged in: token is required (run 'itemgate-cli login')")
	ErrConfigRequired = errors.New("config is required")
)

// Errors for input validation.
var (
	ErrNoIDs     = errors.New("no item ids provided")
	ErrEmptyID   = errors.New("item id is required")
	ErrEmptyPath = errors.New("path is required")
)
