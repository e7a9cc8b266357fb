package kafka

import (
	"context"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

func TestHeaderCarrier_TraceRoundTrip(t *testing.T) {
	tid, err := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	require.NoError(t, err)
	sid, err := trace.SpanIDFromHex("00f067aa0ba902b7")
	require.NoError(t, err)
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: tid, SpanID: sid, TraceFlags: trace.FlagsSampled})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	prop := propagation.TraceContext{}
	var hs []kafka.Header
	prop.Inject(ctx, headerCarrier{&hs})
	require.Len(t, hs, 1)
	require.Equal(t, "traceparent", hs[0].Key)

	got := trace.SpanContextFromContext(prop.Extract(context.Background(), headerCarrier{&hs}))
	require.Equal(t, tid, got.TraceID())
	require.Equal(t, sid, got.SpanID())
	require.True(t, got.IsRemote())
}

func TestHeaderCarrier_SetReplaces(t *testing.T) {
	hs := []kafka.Header{{Key: "a", Value: []byte("1")}}
	c := headerCarrier{&hs}
	c.Set("a", "2")
	c.Set("b", "3")
	require.Equal(t, "2", c.Get("a"))
	require.Equal(t, "3", c.Get("b"))
	require.Equal(t, []string{"a", "b"}, c.Keys())
	require.Empty(t, c.Get("missing"))
}
