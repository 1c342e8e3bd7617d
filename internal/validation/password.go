package validation

import (
	"errors"
	"fmt"
)

// MinPasswordLength is the shortest password the portal accepts.
const MinPasswordLength = 8

var (
	ErrPasswordMismatch = errors.New("passwords do not match")
	ErrPasswordTooShort = fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	ErrPasswordTooWeak  = errors.New("password must contain at least 3 of: lowercase, uppercase, digit, symbol")
)

// ValidatePassword checks a new password against its confirmation and the
// strength rule: at least MinPasswordLength characters drawn from at least
// three of the four character classes.
func ValidatePassword(password, confirm string) error {
	if password != confirm {
		return ErrPasswordMismatch
	}
	if len([]rune(password)) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	if PasswordClasses(password) < 3 {
		return ErrPasswordTooWeak
	}
	return nil
}

// PasswordClasses counts the character classes present in password. The
// letter and digit classes are ASCII; every other character, including
// spaces and non-Latin letters, is a symbol.
func PasswordClasses(password string) int {
	var lower, upper, digit, symbol bool
	for _, r := range password {
		switch {
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		default:
			symbol = true
		}
	}
	n := 0
	for _, ok := range []bool{lower, upper, digit, symbol} {
		if ok {
			n++
		}
	}
	return n
}
