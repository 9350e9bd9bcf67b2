// Package inputval validates user input at the store boundary.
package inputval

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dalemusser/waffle/pantry/validate"
)

// Field length limits.
const (
	MaxNameLen        = 200
	MaxDescriptionLen = 4000
	MaxShortFieldLen  = 100
	MaxEmailLen       = 254
)

// Error reports one invalid field. Handlers map it to 400.
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Invalid builds an *Error.
func Invalid(field, format string, args ...any) error {
	return &Error{Field: field, Message: fmt.Sprintf(format, args...)}
}

// IsValidEmail reports whether s is a bare addr-spec (no display name).
// The local part and domain may not start or end with a dot or contain
// consecutive dots.
func IsValidEmail(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" || len(s) > MaxEmailLen || strings.ContainsAny(s, " \t<>") {
		return false
	}
	at := strings.LastIndexByte(s, '@')
	if at <= 0 || at == len(s)-1 {
		return false
	}
	local, domain := s[:at], s[at+1:]
	if !dotAtomOK(local) || !dotAtomOK(domain) {
		return false
	}
	return validate.SimpleEmailValid(s)
}

func dotAtomOK(s string) bool {
	return s != "" &&
		!strings.HasPrefix(s, ".") &&
		!strings.HasSuffix(s, ".") &&
		!strings.Contains(s, "..") &&
		!strings.Contains(s, "@")
}

// Required fails when s is blank.
func Required(field, s string) error {
	if strings.TrimSpace(s) == "" {
		return Invalid(field, "is required")
	}
	return nil
}

// MaxLen fails when s has more than n characters.
func MaxLen(field, s string, n int) error {
	if utf8.RuneCountInString(s) > n {
		return Invalid(field, "must be at most %d characters", n)
	}
	return nil
}

// Email checks a required, syntactically valid email.
func Email(field, s string) error {
	if err := Required(field, s); err != nil {
		return err
	}
	if !IsValidEmail(s) {
		return Invalid(field, "is not a valid email address")
	}
	return nil
}

// First returns the first non-nil error.
func First(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
