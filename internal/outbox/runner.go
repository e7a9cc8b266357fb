package outbox

import (
	"context"
	"sync"
	"time"

	"github.com/NordCoder/Smsgate/internal/domain/outbox"
	"github.com/NordCoder/Smsgate/internal/obs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var (
	mRelayed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sms_outbox_relayed_total",
		Help: "Outbox rows relayed, by kind and result.",
	}, []string{"kind", "result"})
	mPickErr = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sms_outbox_pick_errors_total",
		Help: "Failed batch picks and success marks.",
	})
	mBatch = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sms_outbox_batch_size",
		Help:    "Rows picked per tick.",
		Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250},
	})
	mTick = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sms_outbox_tick_duration_seconds",
		Help:    "Duration of one pick-relay-mark cycle.",
		Buckets: prometheus.DefBuckets,
	})
)

var tracer = otel.Tracer("outbox.runner")

// Runner relays pending outbox rows to their kind handler. Rows whose handler
// fails stay pending and are picked again once their in-progress lease expires.
type Runner struct {
	log      *zap.Logger
	repo     outbox.Repository
	dispatch outbox.GlobalHandler

	workers       int
	batchSize     int
	waitTime      time.Duration
	inProgressTTL time.Duration
}

func NewOutboxRunner(
	log *zap.Logger,
	repo outbox.Repository,
	dispatch outbox.GlobalHandler,
	workers int,
	batchSize int,
	waitTime time.Duration,
	inProgressTTL time.Duration,
) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	if workers <= 0 {
		workers = 1
	}
	if batchSize <= 0 {
		batchSize = 50
	}
	if waitTime <= 0 {
		waitTime = time.Second
	}
	return &Runner{
		log:           log.With(zap.String("component", "outbox.runner")),
		repo:          repo,
		dispatch:      dispatch,
		workers:       workers,
		batchSize:     batchSize,
		waitTime:      waitTime,
		inProgressTTL: inProgressTTL,
	}
}

// Start runs the workers and blocks until ctx is done and every worker returned.
func (r *Runner) Start(ctx context.Context) {
	var wg sync.WaitGroup
	for i := range r.workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.worker(ctx, i)
		}()
	}
	wg.Wait()
}

func (r *Runner) worker(ctx context.Context, id int) {
	log := r.log.With(zap.Int("worker", id))
	log.Info("outbox worker started", zap.Duration("wait", r.waitTime))

	ticker := time.NewTicker(r.waitTime)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("outbox worker stop")
			return
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

func (r *Runner) tick(ctx context.Context) {
	start := time.Now()
	defer func() { mTick.Observe(time.Since(start).Seconds()) }()

	ctx, span := tracer.Start(ctx, "outbox.tick", trace.WithAttributes(
		attribute.Int("batch.limit", r.batchSize),
	))
	defer span.End()

	msgs, err := r.repo.PickBatch(ctx, r.batchSize, r.inProgressTTL)
	if err != nil {
		span.RecordError(err)
		mPickErr.Inc()
		obs.WithTrace(ctx, r.log).Error("outbox pick", zap.Error(err))
		return
	}
	mBatch.Observe(float64(len(msgs)))
	if len(msgs) == 0 {
		return
	}

	done := make([]string, 0, len(msgs))
	for _, m := range msgs {
		if r.relay(m) {
			done = append(done, m.IdempotencyKey)
		}
	}
	if len(done) == 0 {
		return
	}
	if err := r.repo.MarkSuccess(ctx, done); err != nil {
		span.RecordError(err)
		mPickErr.Inc()
		obs.WithTrace(ctx, r.log).Error("outbox mark success", zap.Int("rows", len(done)), zap.Error(err))
	}
}

// relay runs one row under the trace context captured when it was enqueued.
func (r *Runner) relay(m outbox.Message) bool {
	parent := otel.GetTextMapPropagator().Extract(context.Background(), propagation.MapCarrier{
		"traceparent": m.Traceparent,
		"tracestate":  m.Tracestate,
		"baggage":     m.Baggage,
	})
	ctx, span := tracer.Start(parent, "outbox.dispatch", trace.WithAttributes(
		attribute.String("outbox.key", m.IdempotencyKey),
		attribute.String("outbox.kind", m.Kind.String()),
	))
	defer span.End()
	log := obs.WithTrace(ctx, r.log).With(zap.Stringer("kind", m.Kind), zap.String("key", m.IdempotencyKey))

	h, err := r.dispatch(m.Kind)
	if err == nil {
		err = h(ctx, m.Data)
	}
	if err != nil {
		span.RecordError(err)
		mRelayed.WithLabelValues(m.Kind.String(), "error").Inc()
		log.Error("outbox relay", zap.Error(err))
		return false
	}
	mRelayed.WithLabelValues(m.Kind.String(), "ok").Inc()
	return true
}
