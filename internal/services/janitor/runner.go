package janitor

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var (
	mPurged = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sms_janitor_purged_total", Help: "Rows purged by table.",
	}, []string{"table"})
	mErr = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sms_janitor_errors_total", Help: "Errors in janitor loop.",
	})
	mLoopDur = promauto.NewHistogram(prometheus.HistogramOpts{
		Name: "sms_janitor_tick_duration_seconds", Help: "Janitor tick duration.",
		Buckets: prometheus.DefBuckets,
	})
)

type Runner struct {
	log   *zap.Logger
	uc    *Usecase
	every time.Duration
	limit int
}

func New(log *zap.Logger, uc *Usecase, every time.Duration, limit int) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	if every <= 0 {
		every = time.Minute
	}
	return &Runner{
		log:   log.With(zap.String("component", "janitor")),
		uc:    uc,
		every: every,
		limit: limit,
	}
}

func (r *Runner) tick(ctx context.Context) {
	start := time.Now()
	codes, err := r.uc.Tick(ctx, r.limit)
	if err != nil {
		mErr.Inc()
		r.log.Warn("tick error", zap.Error(err))
	}
	if codes > 0 {
		mPurged.WithLabelValues("sms_otp").Add(float64(codes))
		r.log.Debug("purged", zap.Int("codes", codes))
	}
	mLoopDur.Observe(time.Since(start).Seconds())
}

func (r *Runner) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.every)
	defer ticker.Stop()

	r.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}
