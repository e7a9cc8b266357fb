package gateway

import (
	"context"
	"errors"
	"sync"

	"github.com/NordCoder/Smsgate/internal/domain/delivery"
	"github.com/NordCoder/Smsgate/internal/domain/gateway"
)

type fakeTransport struct {
	mu    sync.Mutex
	reqs  []gateway.Request
	resps []*gateway.Response
	err   error
}

func (f *fakeTransport) Request(_ context.Context, r gateway.Request) (*gateway.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reqs = append(f.reqs, r)
	if f.err != nil {
		return nil, f.err
	}
	if len(f.resps) == 0 {
		return nil, errors.New("no response queued")
	}
	r0 := f.resps[0]
	if len(f.resps) > 1 {
		f.resps = f.resps[1:]
	}
	return r0, nil
}

func respond(code int, body string) *gateway.Response {
	return &gateway.Response{StatusCode: code, Body: []byte(body)}
}

type memDeliveries struct {
	mu      sync.Mutex
	entries []*delivery.Entry
}

func (m *memDeliveries) Append(_ context.Context, e *delivery.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return nil
}

func (m *memDeliveries) ListRecent(_ context.Context, limit int) ([]*delivery.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit > len(m.entries) {
		limit = len(m.entries)
	}
	return m.entries[len(m.entries)-limit:], nil
}
