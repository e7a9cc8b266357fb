package phone

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidNumber      = errors.New("invalid mobile number")
	ErrMissingCountryCode = errors.New("the mobile number doesn't contain the country code")
	ErrTooLong            = errors.New("mobile number is too long")
	ErrTooShort           = errors.New("mobile number is too short")
)

// Rules controls number normalization. MinLength and MaxLength apply only outside
// international mode; zero disables the bound.
type Rules struct {
	International bool
	MinLength     int
	MaxLength     int
}

// Prepare trims n and, in international mode, prefixes the country code marker.
func (r Rules) Prepare(n string) string {
	n = strings.TrimSpace(n)
	if n == "" {
		return n
	}
	if r.International && !strings.HasPrefix(n, "+") {
		return "+" + n
	}
	return n
}

func (r Rules) Validate(n string) error {
	if !numeric(n) {
		return ErrInvalidNumber
	}
	if r.International {
		if !strings.HasPrefix(n, "+") {
			return ErrMissingCountryCode
		}
		return nil
	}
	if r.MaxLength > 0 && len(n) > r.MaxLength {
		return fmt.Errorf("%w: up to %d characters", ErrTooLong, r.MaxLength)
	}
	if r.MinLength > 0 && len(n) < r.MinLength {
		return fmt.Errorf("%w: at least %d characters", ErrTooShort, r.MinLength)
	}
	return nil
}

func numeric(n string) bool {
	n = strings.TrimPrefix(n, "+")
	if n == "" {
		return false
	}
	for _, c := range n {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
