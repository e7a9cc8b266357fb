package delivery

import "context"

type Repo interface {
	Append(ctx context.Context, e *Entry) error
	ListRecent(ctx context.Context, limit int) ([]*Entry, error)
}
