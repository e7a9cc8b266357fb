package postgres

import (
	"context"
	"fmt"

	"github.com/NordCoder/Smsgate/internal/domain/delivery"
)

var _ delivery.Repo = (*DeliveryRepo)(nil)

// DeliveryRepo is the append-only sms_send log.
type DeliveryRepo struct{ db *DB }

func NewDeliveryRepo(db *DB) *DeliveryRepo { return &DeliveryRepo{db: db} }

const (
	qDeliveryInsert = `
INSERT INTO sms_send (id, gateway, sender, message, recipients, status, response, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8);`

	qDeliveryRecent = `
SELECT id, gateway, sender, message, recipients, status, response, created_at
FROM sms_send
ORDER BY created_at DESC
LIMIT $1;`
)

func (r *DeliveryRepo) Append(ctx context.Context, e *delivery.Entry) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	if _, err := r.db.execQueryer(ctx).Exec(ctx, qDeliveryInsert,
		e.ID, e.Gateway, e.Sender, e.Message, e.Recipients, string(e.Status), e.Response, e.CreatedAt,
	); err != nil {
		return fmt.Errorf("insert delivery entry: %w", mapErr(err))
	}
	return nil
}

func (r *DeliveryRepo) ListRecent(ctx context.Context, limit int) ([]*delivery.Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.execQueryer(ctx).Query(ctx, qDeliveryRecent, limit)
	if err != nil {
		return nil, fmt.Errorf("query delivery log: %w", err)
	}
	defer rows.Close()

	var out []*delivery.Entry
	for rows.Next() {
		var (
			e      delivery.Entry
			status string
		)
		if err := rows.Scan(&e.ID, &e.Gateway, &e.Sender, &e.Message, &e.Recipients, &status, &e.Response, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan delivery entry: %w", err)
		}
		e.Status = delivery.Status(status)
		out = append(out, &e)
	}
	return out, rows.Err()
}
