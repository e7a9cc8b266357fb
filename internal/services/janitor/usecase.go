package janitor

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Purger deletes up to limit rows older than t and reports how many went.
type Purger interface {
	PurgeBefore(ctx context.Context, t time.Time, limit int) (int, error)
}

// Usecase removes OTP codes that fell out of the verification window.
// The attempt ledger is append-only and is never touched here.
type Usecase struct {
	Codes Purger
	// CodeTTL is the verification window; older codes can never verify.
	CodeTTL time.Duration
	Now     func() time.Time
}

func (u *Usecase) now() time.Time {
	if u.Now != nil {
		return u.Now()
	}
	return time.Now()
}

// Tick runs one purge pass and returns the number of codes removed.
func (u *Usecase) Tick(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = 500
	}

	ctx, span := otel.Tracer("janitor.uc").Start(ctx, "janitor.tick",
		trace.WithAttributes(attribute.Int("batch.limit", limit)),
	)
	defer span.End()

	codes, err := u.Codes.PurgeBefore(ctx, u.now().UTC().Add(-u.CodeTTL), limit)
	if err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("purge codes: %w", err)
	}
	span.SetAttributes(attribute.Int("purged.codes", codes))
	return codes, nil
}
