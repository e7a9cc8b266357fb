package gateway

import (
	"context"
	"sync"

	"github.com/NordCoder/Smsgate/internal/domain/gateway"
)

type (
	SenderFilter     func(from string) string
	RecipientsFilter func(to []string) []string
	MessageFilter    func(body string) string
	SentListener     func(ctx context.Context, ev gateway.SentEvent) error
)

// Hooks holds the named extension points of the send pipeline. Each kind runs in
// registration order.
type Hooks struct {
	mu         sync.RWMutex
	senders    []SenderFilter
	recipients []RecipientsFilter
	messages   []MessageFilter
	listeners  []SentListener
}

func (h *Hooks) AddSenderFilter(f SenderFilter) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.senders = append(h.senders, f)
}

func (h *Hooks) AddRecipientsFilter(f RecipientsFilter) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.recipients = append(h.recipients, f)
}

func (h *Hooks) AddMessageFilter(f MessageFilter) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages, f)
}

func (h *Hooks) OnSent(l SentListener) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.listeners = append(h.listeners, l)
}

func (h *Hooks) apply(m gateway.Message) gateway.Message {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, f := range h.senders {
		m.From = f(m.From)
	}
	for _, f := range h.recipients {
		m.To = f(m.To)
	}
	for _, f := range h.messages {
		m.Body = f(m.Body)
	}
	return m
}

func (h *Hooks) sentListeners() []SentListener {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]SentListener, len(h.listeners))
	copy(out, h.listeners)
	return out
}
