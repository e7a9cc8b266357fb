package dispatch

import (
	"context"

	"github.com/NordCoder/Smsgate/internal/domain/gateway"
	"github.com/NordCoder/Smsgate/internal/domain/notification"
	"github.com/NordCoder/Smsgate/internal/message"
	"github.com/NordCoder/Smsgate/internal/obs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var mDispatch = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "sms_dispatch_total",
	Help: "Notifications dispatched by kind and result.",
}, []string{"kind", "result"})

// Dispatcher renders a notification template and sends it through the configured
// gateway. It is stateless between calls.
type Dispatcher struct {
	engine *message.Engine
	client gateway.Client
	from   string
	log    *zap.Logger
}

func New(engine *message.Engine, client gateway.Client, from string, log *zap.Logger) *Dispatcher {
	if engine == nil {
		engine = message.NewEngine()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{
		engine: engine,
		client: client,
		from:   from,
		log:    log.With(zap.String("component", "dispatcher")),
	}
}

// Dispatch returns the gateway result unchanged; hook failures are only logged.
func (d *Dispatcher) Dispatch(ctx context.Context, nc *notification.Context, tmpl string, to []string, media ...string) gateway.SendResult {
	ctx, span := otel.Tracer("sms-dispatch").Start(ctx, "dispatch")
	defer span.End()
	span.SetAttributes(
		attribute.String("sms.kind", string(nc.Kind)),
		attribute.Int64("sms.entity_id", nc.EntityID),
	)
	log := obs.WithTrace(ctx, d.log).With(zap.String("kind", string(nc.Kind)), zap.Int64("entity_id", nc.EntityID))

	body := d.engine.Render(tmpl, nc.Variables)
	res := d.client.Send(ctx, gateway.Message{
		From:      d.from,
		To:        to,
		Body:      body,
		MediaURLs: media,
	})

	if res.OK() {
		mDispatch.WithLabelValues(string(nc.Kind), "success").Inc()
		if nc.OnSuccess != nil {
			if err := nc.OnSuccess(ctx, to); err != nil {
				log.Warn("success hook", zap.Error(err))
			}
		}
		return res
	}

	mDispatch.WithLabelValues(string(nc.Kind), "error").Inc()
	if nc.OnFailure != nil {
		if err := nc.OnFailure(ctx, to, res.Err); err != nil {
			log.Warn("failure hook", zap.Error(err))
		}
	}
	return res
}

func (d *Dispatcher) DispatchOne(ctx context.Context, nc *notification.Context, tmpl, to string, media ...string) gateway.SendResult {
	return d.Dispatch(ctx, nc, tmpl, []string{to}, media...)
}
