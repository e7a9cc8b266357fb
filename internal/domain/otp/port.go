package otp

import (
	"context"
	"time"
)

type CodeRepo interface {
	Create(ctx context.Context, r *Record) error
	// FindMatch returns nil without error when no live record matches.
	FindMatch(ctx context.Context, phone, agent, codeHash string, since time.Time) (*Record, error)
	// Delete returns ErrCodeConsumed when the record is already gone.
	Delete(ctx context.Context, id int64) error
	// CountSince counts codes issued for (phone, agent) after since that were not consumed.
	CountSince(ctx context.Context, phone, agent string, since time.Time) (int, error)
}

type AttemptRepo interface {
	Create(ctx context.Context, a *Attempt) error
	CountSince(ctx context.Context, phone, agent string, result bool, since time.Time) (int, error)
}
