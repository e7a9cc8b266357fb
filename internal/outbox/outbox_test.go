package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/NordCoder/Smsgate/internal/domain/gateway"
	"github.com/NordCoder/Smsgate/internal/domain/kafka"
	"github.com/NordCoder/Smsgate/internal/domain/outbox"
	"github.com/NordCoder/Smsgate/internal/obs/retry"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memOutbox struct {
	mu   sync.Mutex
	msgs []outbox.Message
	done map[string]bool
}

func (m *memOutbox) Enqueue(_ context.Context, key string, kind outbox.Kind, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range m.msgs {
		if x.IdempotencyKey == key {
			return nil
		}
	}
	m.msgs = append(m.msgs, outbox.Message{IdempotencyKey: key, Kind: kind, Data: data, Status: outbox.StatusCreated})
	return nil
}

func (m *memOutbox) PickBatch(_ context.Context, batch int, _ time.Duration) ([]outbox.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []outbox.Message
	for i := range m.msgs {
		if m.msgs[i].Status == outbox.StatusCreated && len(out) < batch {
			m.msgs[i].Status = outbox.StatusInProgress
			out = append(out, m.msgs[i])
		}
	}
	return out, nil
}

func (m *memOutbox) MarkSuccess(_ context.Context, keys []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.done == nil {
		m.done = map[string]bool{}
	}
	for _, k := range keys {
		m.done[k] = true
	}
	return nil
}

func (m *memOutbox) doneCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.done)
}

type fakePublisher struct {
	mu    sync.Mutex
	sent  []kafka.MessageSent
	notes []kafka.OrderNote
	fails int
}

func (f *fakePublisher) PublishMessageSent(_ context.Context, ev kafka.MessageSent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fails > 0 {
		f.fails--
		return errors.New("broker down")
	}
	f.sent = append(f.sent, ev)
	return nil
}

func (f *fakePublisher) PublishOrderNote(_ context.Context, n kafka.OrderNote) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notes = append(f.notes, n)
	return nil
}

func fastPolicy() retry.Policy {
	p := retry.DefaultPublishPolicy(zap.NewNop())
	p.Backoff = retry.ExpoJitter{Base: time.Millisecond, Max: 2 * time.Millisecond}
	return p
}

func TestSentRecorder_Failure(t *testing.T) {
	repo := &memOutbox{}
	rec := SentRecorder{Repo: repo}

	err := rec.Record(context.Background(), gateway.SentEvent{
		Gateway: "prosms",
		EntryID: "e1",
		To:      []string{"+1"},
		Result:  gateway.Failure(gateway.NewError(gateway.CodeSenderRejected, "sender not active")),
		SentAt:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Len(t, repo.msgs, 1)
	require.Equal(t, "sent:e1", repo.msgs[0].IdempotencyKey)
	require.Equal(t, outbox.KindMessageSent, repo.msgs[0].Kind)

	var got kafka.MessageSent
	require.NoError(t, json.Unmarshal(repo.msgs[0].Data, &got))
	require.Equal(t, "error", got.Status)
	require.Equal(t, "sender_rejected", got.Code)
	require.Equal(t, "sender not active", got.Response)
}

func TestGlobalHandler_RetriesPublish(t *testing.T) {
	pub := &fakePublisher{fails: 2}
	h, err := MakeGlobalOutboxHandler(pub, fastPolicy())(outbox.KindMessageSent)
	require.NoError(t, err)

	data, _ := json.Marshal(kafka.MessageSent{EntryID: "e1", Status: "success"})
	require.NoError(t, h(context.Background(), data))
	require.Len(t, pub.sent, 1)

	_, err = MakeGlobalOutboxHandler(pub, fastPolicy())(outbox.Kind(99))
	require.Error(t, err)
}

func TestRunner_RelaysOrderNotes(t *testing.T) {
	repo := &memOutbox{}
	pub := &fakePublisher{}
	notes := OrderNotes{Repo: repo, Now: func() time.Time { return time.Unix(100, 0) }}
	require.NoError(t, notes.AddNote(context.Background(), 42, "Successfully send SMS notification to +1"))

	r := NewOutboxRunner(zap.NewNop(), repo, MakeGlobalOutboxHandler(pub, fastPolicy()), 1, 10, 5*time.Millisecond, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return repo.doneCount() == 1 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	<-done

	require.Len(t, pub.notes, 1)
	require.Equal(t, int64(42), pub.notes[0].OrderID)
	require.Equal(t, "Successfully send SMS notification to +1", pub.notes[0].Note)
}

func TestGlobalHandler_BadPayloadNotRetried(t *testing.T) {
	pub := &fakePublisher{}
	h, err := MakeGlobalOutboxHandler(pub, fastPolicy())(outbox.KindOrderNote)
	require.NoError(t, err)

	err = h(context.Background(), []byte("{not json"))
	require.Error(t, err)
	require.True(t, retry.IsPermanent(err))
	require.Empty(t, pub.notes)
}

func TestRunnerTick_FailedRowsStayPending(t *testing.T) {
	repo := &memOutbox{}
	pub := &fakePublisher{}
	ctx := context.Background()
	require.NoError(t, repo.Enqueue(ctx, "bad", outbox.Kind(99), []byte("{}")))
	require.NoError(t, OrderNotes{Repo: repo}.AddNote(ctx, 7, "Failed to send SMS notification"))

	r := NewOutboxRunner(nil, repo, MakeGlobalOutboxHandler(pub, fastPolicy()), 0, 0, 0, time.Minute)
	r.tick(ctx)

	require.Equal(t, 1, repo.doneCount())
	require.False(t, repo.done["bad"])
	require.Len(t, pub.notes, 1)
}
