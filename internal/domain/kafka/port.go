package kafka

import (
	"context"
	"time"
)

type MessageSent struct {
	EntryID  string    `json:"entry_id"`
	Gateway  string    `json:"gateway"`
	From     string    `json:"from"`
	To       []string  `json:"to"`
	Status   string    `json:"status"`
	Code     string    `json:"code,omitempty"`
	Response string    `json:"response"`
	SentAt   time.Time `json:"sent_at"`
}

type OrderNote struct {
	OrderID int64     `json:"order_id"`
	Note    string    `json:"note"`
	At      time.Time `json:"at"`
}

type SentEvents interface {
	PublishMessageSent(ctx context.Context, ev MessageSent) error
	PublishOrderNote(ctx context.Context, n OrderNote) error
}
