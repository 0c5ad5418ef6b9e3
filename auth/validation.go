package auth

import (
	"fmt"
	"net/mail"
	"strings"

	"github.com/jrsteele09/go-admin-client/internal/errors"
)

// ValidateCredentials checks the login form before anything is sent to the backend.
func ValidateCredentials(email, password string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return fmt.Errorf("%w: %w", errors.ErrInvalidRequest, EmailRequiredErr)
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return fmt.Errorf("%w: %w", errors.ErrInvalidRequest, EmailInvalidErr)
	}
	if password == "" {
		return fmt.Errorf("%w: %w", errors.ErrInvalidRequest, PasswordRequiredErr)
	}
	return nil
}
