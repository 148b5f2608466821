package service

import "errors"

// Sentinel errors the bot layer translates into user-facing replies
var (
	ErrNoAPIKey       = errors.New("no API key configured")
	ErrInvalidAPIKey  = errors.New("invalid API key")
	ErrNoCategory     = errors.New("no update category configured")
	ErrNoAdminRole    = errors.New("no admin role configured")
	ErrUnknownTicker  = errors.New("ticker not found")
	ErrAlreadyTracked = errors.New("ticker already tracked")
	ErrNotTracked     = errors.New("ticker not tracked")
)
