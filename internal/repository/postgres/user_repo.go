package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/NordCoder/Smsgate/internal/domain/user"
	"github.com/jackc/pgx/v5"
)

var (
	_ user.Repo       = (*UserRepo)(nil)
	_ user.MetaReader = (*UserRepo)(nil)
)

type UserRepo struct {
	db *DB
}

func NewUserRepo(db *DB) *UserRepo { return &UserRepo{db: db} }

const (
	qUserByID = `
SELECT id, login, email, display_name, first_name, last_name, roles, registered_at
FROM users
WHERE id = $1;`

	qUserMobiles = `
SELECT DISTINCT ON (u.id) m.meta_value
FROM users u
JOIN user_meta m ON m.user_id = u.id AND m.meta_key = ANY($1::text[])
WHERE m.meta_value <> ''
  AND (cardinality($2::text[]) = 0 OR u.roles && $2::text[])
ORDER BY u.id, array_position($1::text[], m.meta_key);`

	qUserMeta = `
SELECT meta_value
FROM user_meta
WHERE user_id = $1 AND meta_key = $2;`
)

func (r *UserRepo) GetByID(ctx context.Context, id int64) (*user.User, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var u user.User
	if err := scanUser(r.db.execQueryer(ctx).QueryRow(ctx, qUserByID, id), &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) ListMobiles(ctx context.Context, roles []string, metaKeys ...string) ([]string, error) {
	if len(metaKeys) == 0 {
		return nil, nil
	}
	if roles == nil {
		roles = []string{}
	}
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.execQueryer(ctx).Query(ctx, qUserMobiles, metaKeys, roles)
	if err != nil {
		return nil, fmt.Errorf("query user mobiles: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return nil, fmt.Errorf("scan user mobile: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// GetMeta returns "" when the user has no such meta key.
func (r *UserRepo) GetMeta(ctx context.Context, userID int64, key string) (string, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var v string
	if err := r.db.execQueryer(ctx).QueryRow(ctx, qUserMeta, userID, key).Scan(&v); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("get user meta: %w", err)
	}
	return v, nil
}

func scanUser(row pgx.Row, out *user.User) error {
	if err := row.Scan(&out.ID, &out.Login, &out.Email, &out.DisplayName,
		&out.FirstName, &out.LastName, &out.Roles, &out.RegisteredAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("scan user: %w", err)
	}
	return nil
}
