package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/NordCoder/Smsgate/internal/domain/delivery"
	"github.com/NordCoder/Smsgate/internal/domain/gateway"
	"github.com/NordCoder/Smsgate/internal/domain/kafka"
	"github.com/NordCoder/Smsgate/internal/domain/notification"
	"github.com/NordCoder/Smsgate/internal/domain/outbox"
)

// SentRecorder queues every gateway send outcome for relay to the sent-events topic.
type SentRecorder struct {
	Repo outbox.Repository
}

func (r SentRecorder) Record(ctx context.Context, ev gateway.SentEvent) error {
	msg := kafka.MessageSent{
		EntryID:  ev.EntryID,
		Gateway:  ev.Gateway,
		From:     ev.From,
		To:       ev.To,
		Status:   string(delivery.StatusSuccess),
		Response: ev.Result.Response,
		SentAt:   ev.SentAt,
	}
	if !ev.Result.OK() {
		msg.Status = string(delivery.StatusError)
		msg.Code = string(ev.Result.Err.Code)
		msg.Response = ev.Result.Err.Message
	}
	b, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message-sent: %w", err)
	}
	return r.Repo.Enqueue(ctx, "sent:"+ev.EntryID, outbox.KindMessageSent, b)
}

var _ notification.OrderNotes = OrderNotes{}

// OrderNotes writes order notes through the outbox; the shop consumes them from Kafka.
type OrderNotes struct {
	Repo outbox.Repository
	Now  func() time.Time
}

func (o OrderNotes) AddNote(ctx context.Context, orderID int64, note string) error {
	now := time.Now
	if o.Now != nil {
		now = o.Now
	}
	n := kafka.OrderNote{OrderID: orderID, Note: note, At: now().UTC()}
	b, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal order-note: %w", err)
	}
	key := fmt.Sprintf("note:%d:%d", orderID, n.At.UnixNano())
	return o.Repo.Enqueue(ctx, key, outbox.KindOrderNote, b)
}
