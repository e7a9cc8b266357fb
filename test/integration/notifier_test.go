//go:build integration

package integration

import (
	"slices"
	"testing"
	"time"
)

func TestPostPublished_SubscriberGroupLogged(t *testing.T) {
	cfg := LoadCfg()
	EnsureTopic(t, cfg.KafkaBootstrap, cfg.EventsTopic)
	WaitHealthz(t, cfg.HealthURL, 30*time.Second)

	db := DBOpen(t, cfg.DBDSN)
	defer db.Close()

	key := RandKey()
	gid := SeedSubscribers(t, db, "it-"+key, "+4670"+key[:6], "+4671"+key[:6])

	title := "it-post-" + key
	PublishEvent(t, cfg.KafkaBootstrap, cfg.EventsTopic, "post_published", []byte(key), map[string]any{
		"post": map[string]any{"id": 1, "type": "post", "status": "publish", "title": title},
		"meta": map[string]any{"receiver": "subscriber", "group": itoa(gid), "message_body": "New: %post_title%"},
	})

	row, ok := WaitDelivery(t, db, title, 25*time.Second)
	if !ok {
		t.Fatalf("no delivery entry for %s", title)
	}
	if row.Message != "New: "+title {
		t.Fatalf("bad message: %q", row.Message)
	}
	slices.Sort(row.Recipients)
	if !slices.Equal(row.Recipients, []string{"+4670" + key[:6], "+4671" + key[:6]}) {
		t.Fatalf("bad recipients: %v", row.Recipients)
	}

	ev, ok := WaitSentEvent(t, cfg.KafkaBootstrap, cfg.SentTopic, 25*time.Second, func(m map[string]any) bool {
		return m["kind"] == "message_sent" && slices.Contains(anyStrings(m["to"]), "+4670"+key[:6])
	})
	if !ok {
		t.Fatalf("no message_sent event")
	}
	if ev["status"] != row.Status {
		t.Fatalf("event status %v, log status %s", ev["status"], row.Status)
	}
}

func TestCommentAdded_OrderNoteSuppressed(t *testing.T) {
	cfg := LoadCfg()
	EnsureTopic(t, cfg.KafkaBootstrap, cfg.EventsTopic)

	db := DBOpen(t, cfg.DBDSN)
	defer db.Close()

	key := RandKey()
	PublishEvent(t, cfg.KafkaBootstrap, cfg.EventsTopic, "comment_added", []byte(key), map[string]any{
		"comment": map[string]any{"id": 1, "type": "order_note", "content": "it-note-" + key},
	})
	if _, ok := WaitDelivery(t, db, "it-note-"+key, 6*time.Second); ok {
		t.Fatalf("order_note comment must not be sent")
	}
}

func TestOrderStatusChanged_NoteRelayed(t *testing.T) {
	cfg := LoadCfg()
	EnsureTopic(t, cfg.KafkaBootstrap, cfg.EventsTopic)

	db := DBOpen(t, cfg.DBDSN)
	defer db.Close()

	key := RandKey()
	mobile := "+4672" + key[:6]
	uid := SeedUser(t, db, "it-cust-"+key, []string{"customer"}, map[string]string{"mobile": mobile})

	PublishEvent(t, cfg.KafkaBootstrap, cfg.EventsTopic, "order_status_changed", []byte(key), map[string]any{
		"order": map[string]any{"id": 900, "number": "IT" + key, "status": "processing", "customer_id": uid},
	})

	row, ok := WaitDelivery(t, db, "IT"+key, 25*time.Second)
	if !ok {
		t.Fatalf("no delivery entry for order")
	}
	if !slices.Equal(row.Recipients, []string{mobile}) {
		t.Fatalf("bad recipients: %v", row.Recipients)
	}

	_, ok = WaitSentEvent(t, cfg.KafkaBootstrap, cfg.SentTopic, 25*time.Second, func(m map[string]any) bool {
		return m["kind"] == "order_note" && m["order_id"] == float64(900)
	})
	if !ok {
		t.Fatalf("no order_note event")
	}
}

func anyStrings(v any) []string {
	xs, _ := v.([]any)
	out := make([]string, 0, len(xs))
	for _, x := range xs {
		if s, ok := x.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
