package user

import "context"

type Repo interface {
	GetByID(ctx context.Context, id int64) (*User, error)
	// ListMobiles returns, per user holding any of roles, the first non-empty value
	// among metaKeys in the given order. No roles means every user.
	ListMobiles(ctx context.Context, roles []string, metaKeys ...string) ([]string, error)
}

type MetaReader interface {
	GetMeta(ctx context.Context, userID int64, key string) (string, error)
}
