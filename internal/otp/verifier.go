package otp

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/NordCoder/Smsgate/internal/domain/otp"
)

const defaultCodeLength = 6

type Config struct {
	RateLimit  otp.RateLimit
	CodeLength int
	Now        func() time.Time
}

func (c Config) withDefaults() Config {
	c.RateLimit = c.RateLimit.WithDefaults()
	if c.CodeLength <= 0 {
		c.CodeLength = defaultCodeLength
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

// Verifier issues and checks one-time codes for a single (phone, agent) pair.
type Verifier struct {
	codes    otp.CodeRepo
	attempts otp.AttemptRepo
	phone    string
	agent    string
	cfg      Config
}

func NewVerifier(codes otp.CodeRepo, attempts otp.AttemptRepo, phone, agent string, cfg Config) *Verifier {
	return &Verifier{
		codes:    codes,
		attempts: attempts,
		phone:    phone,
		agent:    agent,
		cfg:      cfg.withDefaults(),
	}
}

func (v *Verifier) threshold(window time.Duration) time.Time {
	return v.cfg.Now().Add(-window)
}

// Issue stores a fresh code and returns it in clear text for delivery.
func (v *Verifier) Issue(ctx context.Context) (string, error) {
	code, err := generateCode(v.cfg.CodeLength)
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	rec := &otp.Record{
		Phone:     v.phone,
		Agent:     v.agent,
		CodeHash:  HashCode(code),
		CreatedAt: v.cfg.Now().UTC(),
	}
	if err := v.codes.Create(ctx, rec); err != nil {
		return "", fmt.Errorf("store code: %w", err)
	}
	return code, nil
}

// Verify consumes a matching live code. Every call leaves exactly one attempt row.
func (v *Verifier) Verify(ctx context.Context, code string) (bool, error) {
	rec, err := v.codes.FindMatch(ctx, v.phone, v.agent, HashCode(code), v.threshold(v.cfg.RateLimit.Window))
	if err != nil {
		return false, fmt.Errorf("find code: %w", err)
	}

	ok := rec != nil
	if ok {
		switch err := v.codes.Delete(ctx, rec.ID); {
		case errors.Is(err, otp.ErrCodeConsumed):
			ok = false
		case err != nil:
			return false, fmt.Errorf("consume code: %w", err)
		}
	}

	if err := v.attempts.Create(ctx, &otp.Attempt{
		Phone:  v.phone,
		Agent:  v.agent,
		Code:   code,
		Result: ok,
		Time:   v.cfg.Now().UTC(),
	}); err != nil {
		return ok, fmt.Errorf("record attempt: %w", err)
	}
	return ok, nil
}

// LimitVerification fails once the failed attempts inside the window reach the limit.
func (v *Verifier) LimitVerification(ctx context.Context) error {
	n, err := v.attempts.CountSince(ctx, v.phone, v.agent, false, v.threshold(v.cfg.RateLimit.Window))
	if err != nil {
		return fmt.Errorf("count failed attempts: %w", err)
	}
	if n >= v.cfg.RateLimit.MaxCount {
		return otp.ErrTooManyAttempts
	}
	return nil
}

// LimitIssuance fails once the codes issued inside the window reach the limit.
// Like LimitVerification it is the caller's job to run it before Issue.
func (v *Verifier) LimitIssuance(ctx context.Context) error {
	n, err := v.codes.CountSince(ctx, v.phone, v.agent, v.threshold(v.cfg.RateLimit.Window))
	if err != nil {
		return fmt.Errorf("count issued codes: %w", err)
	}
	if n >= v.cfg.RateLimit.MaxIssued {
		return otp.ErrTooManyCodes
	}
	return nil
}

// RecentlyVerified reports a successful verification within interval (5m when zero).
func (v *Verifier) RecentlyVerified(ctx context.Context, interval time.Duration) (bool, error) {
	if interval <= 0 {
		interval = otp.DefaultWindow
	}
	n, err := v.attempts.CountSince(ctx, v.phone, v.agent, true, v.threshold(interval))
	if err != nil {
		return false, fmt.Errorf("count verified attempts: %w", err)
	}
	return n > 0, nil
}

func HashCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

func generateCode(n int) (string, error) {
	buf := make([]byte, n)
	ten := big.NewInt(10)
	for i := range buf {
		d, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", err
		}
		buf[i] = byte('0' + d.Int64())
	}
	return string(buf), nil
}
