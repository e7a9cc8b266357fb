package gateway

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/NordCoder/Smsgate/internal/domain/delivery"
	"github.com/NordCoder/Smsgate/internal/domain/gateway"
	"github.com/NordCoder/Smsgate/internal/obs"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// Driver speaks one provider's wire protocol. It sees the message after every filter
// ran and validation passed.
type Driver interface {
	Name() string
	Send(ctx context.Context, m gateway.Message) gateway.SendResult
	Credit(ctx context.Context) (gateway.Credit, error)
}

var (
	mSends = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sms_gateway_send_total",
		Help: "Gateway send attempts by provider and result.",
	}, []string{"gateway", "result"})
	mSendLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sms_gateway_send_seconds",
		Help:    "Provider round trip latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"gateway"})
)

type Options struct {
	// DefaultFrom is used when the message carries no sender.
	DefaultFrom string
	Now         func() time.Time
	NewID       func() string
}

// Gateway wraps a Driver with the shared send pipeline and implements gateway.Client.
type Gateway struct {
	*Hooks

	driver     Driver
	deliveries delivery.Repo
	log        *zap.Logger
	opts       Options
}

func New(d Driver, deliveries delivery.Repo, log *zap.Logger, opts Options) *Gateway {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = func() string {
			id, err := uuid.NewV7()
			if err != nil {
				return uuid.NewString()
			}
			return id.String()
		}
	}
	return &Gateway{
		Hooks:      &Hooks{},
		driver:     d,
		deliveries: deliveries,
		log:        log.With(zap.String("component", "gateway"), zap.String("gateway", d.Name())),
		opts:       opts,
	}
}

func (g *Gateway) Name() string { return g.driver.Name() }

func (g *Gateway) Credit(ctx context.Context) (gateway.Credit, error) {
	return g.driver.Credit(ctx)
}

func (g *Gateway) Send(ctx context.Context, m gateway.Message) gateway.SendResult {
	ctx, span := otel.Tracer("sms-gateway").Start(ctx, "gateway.send")
	defer span.End()
	log := obs.WithTrace(ctx, g.log)

	if m.From == "" {
		m.From = g.opts.DefaultFrom
	}
	m = g.apply(m)
	m.To = compact(m.To)
	span.SetAttributes(
		attribute.String("sms.gateway", g.driver.Name()),
		attribute.Int("sms.recipients", len(m.To)),
	)

	var res gateway.SendResult
	switch {
	case len(m.To) == 0:
		res = gateway.Failure(gateway.NewError(gateway.CodeValidation, "no recipients"))
	case strings.TrimSpace(m.Body) == "":
		res = gateway.Failure(gateway.NewError(gateway.CodeValidation, "empty message"))
	default:
		start := time.Now()
		res = g.driverSend(ctx, m)
		mSendLatency.WithLabelValues(g.driver.Name()).Observe(time.Since(start).Seconds())
	}

	entry := &delivery.Entry{
		ID:         g.opts.NewID(),
		Gateway:    g.driver.Name(),
		Sender:     m.From,
		Message:    m.Body,
		Recipients: m.To,
		Status:     delivery.StatusSuccess,
		Response:   res.Response,
		CreatedAt:  g.opts.Now().UTC(),
	}
	if !res.OK() {
		entry.Status = delivery.StatusError
		entry.Response = res.Err.Message
		span.SetStatus(codes.Error, res.Err.Error())
		mSends.WithLabelValues(g.driver.Name(), "error").Inc()
		log.Warn("sms send failed",
			zap.String("code", string(res.Err.Code)),
			zap.String("error", res.Err.Message),
			zap.Int("recipients", len(m.To)),
		)
	} else {
		mSends.WithLabelValues(g.driver.Name(), "success").Inc()
		log.Info("sms sent", zap.Int("recipients", len(m.To)))
	}

	if g.deliveries != nil {
		if err := g.deliveries.Append(ctx, entry); err != nil {
			log.Error("delivery log append", zap.String("entry_id", entry.ID), zap.Error(err))
		}
	}

	ev := gateway.SentEvent{
		Gateway: entry.Gateway,
		EntryID: entry.ID,
		From:    m.From,
		To:      m.To,
		Body:    m.Body,
		Result:  res,
		SentAt:  entry.CreatedAt,
	}
	for _, l := range g.sentListeners() {
		if err := l(ctx, ev); err != nil {
			log.Warn("post-send listener", zap.String("entry_id", entry.ID), zap.Error(err))
		}
	}
	return res
}

// driverSend turns a driver panic into a provider Failure so it is logged like any
// other failed send.
func (g *Gateway) driverSend(ctx context.Context, m gateway.Message) (res gateway.SendResult) {
	defer func() {
		if p := recover(); p != nil {
			res = gateway.Failure(gateway.NewError(gateway.CodeProvider, fmt.Sprintf("gateway %s panicked: %v", g.driver.Name(), p)))
		}
	}()
	return g.driver.Send(ctx, m)
}

func compact(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
