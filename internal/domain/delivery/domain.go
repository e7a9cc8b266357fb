package delivery

import "time"

type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Entry is one row of the delivery log; a whole recipient batch shares one entry.
type Entry struct {
	ID         string    `json:"id"`
	Gateway    string    `json:"gateway"`
	Sender     string    `json:"sender"`
	Message    string    `json:"message"`
	Recipients []string  `json:"recipients"`
	Status     Status    `json:"status"`
	Response   string    `json:"response"`
	CreatedAt  time.Time `json:"created_at"`
}
