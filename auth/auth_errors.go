package auth

import "errors"

var (
	EmailRequiredErr    = errors.New("email is required")
	EmailInvalidErr     = errors.New("email is not a valid address")
	PasswordRequiredErr = errors.New("password is required")
)
