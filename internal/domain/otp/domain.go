package otp

import (
	"errors"
	"time"
)

const (
	DefaultWindow    = 5 * time.Minute
	DefaultMaxCount  = 5
	DefaultMaxIssued = 3
)

var (
	ErrTooManyAttempts = errors.New("too many verification attempts, please try some other time")
	ErrCodeConsumed    = errors.New("otp code already consumed")
	ErrTooManyCodes    = errors.New("too many codes requested, please try some other time")
)

// Record is an issued code. Its presence means issued; it is removed once verified.
// A record older than the rate-limit window is treated as expired on read.
type Record struct {
	ID        int64
	Phone     string
	Agent     string
	CodeHash  string
	CreatedAt time.Time
}

// Attempt is an append-only ledger row written once per verification call.
type Attempt struct {
	ID     int64
	Phone  string
	Agent  string
	Code   string
	Result bool
	Time   time.Time
}

type RateLimit struct {
	Window time.Duration
	// MaxCount caps failed verifications per window.
	MaxCount int
	// MaxIssued caps outstanding codes issued per window.
	MaxIssued int
}

func (r RateLimit) WithDefaults() RateLimit {
	if r.Window <= 0 {
		r.Window = DefaultWindow
	}
	if r.MaxCount <= 0 {
		r.MaxCount = DefaultMaxCount
	}
	if r.MaxIssued <= 0 {
		r.MaxIssued = DefaultMaxIssued
	}
	return r
}
