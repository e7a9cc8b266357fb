package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/NordCoder/Smsgate/internal/domain/otp"
)

var (
	_ otp.CodeRepo    = (*OtpRepo)(nil)
	_ otp.AttemptRepo = (*OtpAttemptRepo)(nil)
)

type OtpRepo struct{ db *DB }

func NewOtpRepo(db *DB) *OtpRepo { return &OtpRepo{db: db} }

const (
	qOtpInsert = `
INSERT INTO sms_otp (phone_number, agent, code, created_at)
VALUES ($1, $2, $3, $4)
RETURNING id;`

	qOtpMatch = `
SELECT id, phone_number, agent, code, created_at
FROM sms_otp
WHERE phone_number = $1 AND agent = $2 AND code = $3 AND created_at > $4
ORDER BY created_at DESC
LIMIT 1;`

	qOtpDelete = `DELETE FROM sms_otp WHERE id = $1;`

	qOtpCount = `
SELECT COUNT(*)
FROM sms_otp
WHERE phone_number = $1 AND agent = $2 AND created_at > $3;`

	qAttemptInsert = `
INSERT INTO sms_otp_attempts (phone_number, agent, code, result, time)
VALUES ($1, $2, $3, $4, $5)
RETURNING id;`

	qAttemptCount = `
SELECT COUNT(*)
FROM sms_otp_attempts
WHERE phone_number = $1 AND agent = $2 AND result = $3 AND time > $4;`
)

func (r *OtpRepo) Create(ctx context.Context, rec *otp.Record) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	if err := r.db.execQueryer(ctx).QueryRow(ctx, qOtpInsert,
		rec.Phone, rec.Agent, rec.CodeHash, rec.CreatedAt,
	).Scan(&rec.ID); err != nil {
		return fmt.Errorf("insert otp: %w", mapErr(err))
	}
	return nil
}

func (r *OtpRepo) FindMatch(ctx context.Context, phone, agent, codeHash string, since time.Time) (*otp.Record, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var rec otp.Record
	err := r.db.execQueryer(ctx).QueryRow(ctx, qOtpMatch, phone, agent, codeHash, since).
		Scan(&rec.ID, &rec.Phone, &rec.Agent, &rec.CodeHash, &rec.CreatedAt)
	if err != nil {
		if errors.Is(mapErr(err), ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("find otp: %w", err)
	}
	return &rec, nil
}

func (r *OtpRepo) Delete(ctx context.Context, id int64) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	tag, err := r.db.execQueryer(ctx).Exec(ctx, qOtpDelete, id)
	if err != nil {
		return fmt.Errorf("delete otp: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return otp.ErrCodeConsumed
	}
	return nil
}

func (r *OtpRepo) CountSince(ctx context.Context, phone, agent string, since time.Time) (int, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var n int
	if err := r.db.execQueryer(ctx).QueryRow(ctx, qOtpCount, phone, agent, since).Scan(&n); err != nil {
		return 0, fmt.Errorf("count otp: %w", err)
	}
	return n, nil
}

type OtpAttemptRepo struct{ db *DB }

func NewOtpAttemptRepo(db *DB) *OtpAttemptRepo { return &OtpAttemptRepo{db: db} }

func (r *OtpAttemptRepo) Create(ctx context.Context, a *otp.Attempt) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	if err := r.db.execQueryer(ctx).QueryRow(ctx, qAttemptInsert,
		a.Phone, a.Agent, a.Code, a.Result, a.Time,
	).Scan(&a.ID); err != nil {
		return fmt.Errorf("insert otp attempt: %w", mapErr(err))
	}
	return nil
}

func (r *OtpAttemptRepo) CountSince(ctx context.Context, phone, agent string, result bool, since time.Time) (int, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var n int
	if err := r.db.execQueryer(ctx).QueryRow(ctx, qAttemptCount, phone, agent, result, since).Scan(&n); err != nil {
		return 0, fmt.Errorf("count otp attempts: %w", err)
	}
	return n, nil
}

const qOtpPurge = `
DELETE FROM sms_otp
WHERE id IN (SELECT id FROM sms_otp WHERE created_at < $1 ORDER BY id LIMIT $2);`

// PurgeBefore removes up to limit codes issued before t. Such codes can no longer match.
func (r *OtpRepo) PurgeBefore(ctx context.Context, t time.Time, limit int) (int, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	tag, err := r.db.execQueryer(ctx).Exec(ctx, qOtpPurge, t, limit)
	if err != nil {
		return 0, fmt.Errorf("purge otp: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
