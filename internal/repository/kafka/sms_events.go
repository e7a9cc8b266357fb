package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/NordCoder/Smsgate/internal/domain/kafka"
)

const (
	EventMessageSent = "message_sent"
	EventOrderNote   = "order_note"
)

var _ kafka.SentEvents = (*SentEventsKafka)(nil)

// SentEventsKafka publishes delivery outcomes and order notes to the sent-events topic.
type SentEventsKafka struct {
	p *Producer
}

func NewSentEventsKafka(p *Producer) *SentEventsKafka { return &SentEventsKafka{p: p} }

func (e *SentEventsKafka) PublishMessageSent(ctx context.Context, ev kafka.MessageSent) error {
	to := make([]any, 0, len(ev.To))
	for _, n := range ev.To {
		to = append(to, n)
	}
	s, err := NewEnvelope(EventMessageSent, map[string]any{
		"entry_id": ev.EntryID,
		"gateway":  ev.Gateway,
		"from":     ev.From,
		"to":       to,
		"status":   ev.Status,
		"code":     ev.Code,
		"response": ev.Response,
		"sent_at":  ev.SentAt.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("build message_sent event: %w", err)
	}
	return e.p.PublishProto(ctx, []byte(ev.EntryID), s)
}

func (e *SentEventsKafka) PublishOrderNote(ctx context.Context, n kafka.OrderNote) error {
	s, err := NewEnvelope(EventOrderNote, map[string]any{
		"order_id": float64(n.OrderID),
		"note":     n.Note,
		"at":       n.At.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("build order_note event: %w", err)
	}
	return e.p.PublishProto(ctx, KeyFromInt64(n.OrderID), s)
}
