package subscriber

import "context"

type Repo interface {
	// ListActiveMobiles returns mobiles of active subscribers; no group ids means every group.
	ListActiveMobiles(ctx context.Context, groupIDs []int64) ([]string, error)
	ListGroups(ctx context.Context) ([]*Group, error)
}
