package model

import "errors"

var (
	// Session related errors
	ErrMissingToken     = errors.New("auth token missing")
	ErrInvalidToken     = errors.New("auth token invalid")
	ErrTokenExpired     = errors.New("auth token expired")
	ErrUnauthorizedRole = errors.New("unauthorized role")

	// Upstream related errors
	ErrTokenNotIssued = errors.New("upstream did not issue a token")

	// Pipeline related errors
	ErrRunNotFound = errors.New("pipeline run not found")

	// CDN related errors
	ErrDeleteUnsupported = errors.New("cdn backend does not support delete")

	// Generic errors
	ErrInvalidInput = errors.New("invalid input")
)
