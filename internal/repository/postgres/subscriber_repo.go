package postgres

import (
	"context"
	"fmt"

	"github.com/NordCoder/Smsgate/internal/domain/subscriber"
)

var _ subscriber.Repo = (*SubscriberRepo)(nil)

type SubscriberRepo struct{ db *DB }

func NewSubscriberRepo(db *DB) *SubscriberRepo { return &SubscriberRepo{db: db} }

const (
	qSubscribersActive = `
SELECT mobile
FROM sms_subscribes
WHERE status = TRUE
  AND (cardinality($1::bigint[]) = 0 OR group_id = ANY($1::bigint[]))
ORDER BY id;`

	qSubscriberGroups = `
SELECT id, name
FROM sms_subscribes_group
ORDER BY id;`
)

func (r *SubscriberRepo) ListActiveMobiles(ctx context.Context, groupIDs []int64) ([]string, error) {
	if groupIDs == nil {
		groupIDs = []int64{}
	}
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.execQueryer(ctx).Query(ctx, qSubscribersActive, groupIDs)
	if err != nil {
		return nil, fmt.Errorf("query subscribers: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return nil, fmt.Errorf("scan subscriber: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *SubscriberRepo) ListGroups(ctx context.Context) ([]*subscriber.Group, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.execQueryer(ctx).Query(ctx, qSubscriberGroups)
	if err != nil {
		return nil, fmt.Errorf("query subscriber groups: %w", err)
	}
	defer rows.Close()

	var out []*subscriber.Group
	for rows.Next() {
		var g subscriber.Group
		if err := rows.Scan(&g.ID, &g.Name); err != nil {
			return nil, fmt.Errorf("scan subscriber group: %w", err)
		}
		out = append(out, &g)
	}
	return out, rows.Err()
}
