package subscriber

import "time"

// GroupAll selects every active subscriber regardless of group.
const GroupAll = "all"

type Subscriber struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Mobile    string    `json:"mobile"`
	GroupID   int64     `json:"group_id"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

type Group struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
