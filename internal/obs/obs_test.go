package obs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestHealthz_ReportsEachCheck(t *testing.T) {
	h := MetricsHandler(
		HealthCheck{Name: "db", Check: func(context.Context) error { return nil }},
		HealthCheck{Name: "kafka", Check: func(context.Context) error { return errors.New("no leader") }},
	)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var report map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	require.Equal(t, map[string]string{"db": "ok", "kafka": "no leader"}, report)
}

func TestHealthz_AllOK(t *testing.T) {
	h := MetricsHandler(HealthCheck{Name: "db", Check: func(context.Context) error { return nil }})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestNewLogger_Level(t *testing.T) {
	l, err := NewLogger(LogConfig{Level: "warn", App: "sms-notifier"})
	require.NoError(t, err)
	require.False(t, l.Core().Enabled(zapcore.InfoLevel))
	require.True(t, l.Core().Enabled(zapcore.WarnLevel))

	l, err = NewLogger(LogConfig{Level: "nonsense"})
	require.NoError(t, err)
	require.True(t, l.Core().Enabled(zapcore.InfoLevel))
}

func TestWithTrace(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	base := zap.New(core)

	WithTrace(context.Background(), base).Info("plain")
	require.Len(t, logs.All()[0].Context, 0)

	tid, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	sid, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx := trace.ContextWithSpanContext(context.Background(),
		trace.NewSpanContext(trace.SpanContextConfig{TraceID: tid, SpanID: sid}))
	WithTrace(ctx, base).Info("traced")
	fields := logs.All()[1].ContextMap()
	require.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", fields["trace_id"])
	require.Equal(t, "00f067aa0ba902b7", fields["span_id"])

	require.NotNil(t, WithTrace(ctx, nil))
}
