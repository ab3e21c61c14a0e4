package models

import (
	"errors"
)

var ErrListingNotFound = errors.New("listing not found")
var ErrAccountNotFound = errors.New("account not found")
var ErrSessionNotFound = errors.New("session not found")
var (
	ErrInvalidCredentials = errors.New("models: invalid credentials")
	ErrDuplicateEmail     = errors.New("models: duplicate email")
	ErrInvalidRadius      = errors.New("models: invalid radius")
	ErrInvalidUnit        = errors.New("models: invalid unit")
)
