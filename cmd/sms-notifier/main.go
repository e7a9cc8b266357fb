package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	config "github.com/NordCoder/Smsgate/internal/config/sms-notifier"
	"github.com/NordCoder/Smsgate/internal/dispatch"
	dgateway "github.com/NordCoder/Smsgate/internal/domain/gateway"
	"github.com/NordCoder/Smsgate/internal/gateway"
	"github.com/NordCoder/Smsgate/internal/message"
	"github.com/NordCoder/Smsgate/internal/obs"
	"github.com/NordCoder/Smsgate/internal/obs/retry"
	otpsvc "github.com/NordCoder/Smsgate/internal/otp"
	"github.com/NordCoder/Smsgate/internal/outbox"
	"github.com/NordCoder/Smsgate/internal/recipient"
	"github.com/NordCoder/Smsgate/internal/repository/kafka"
	pg "github.com/NordCoder/Smsgate/internal/repository/postgres"
	httpapi "github.com/NordCoder/Smsgate/internal/services/http-api"
	"github.com/NordCoder/Smsgate/internal/services/janitor"
	notifier "github.com/NordCoder/Smsgate/internal/services/sms-notifier"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type app struct {
	ctrl    *notifier.Controller
	api     *http.Server
	outbox  *outbox.Runner
	janitor *janitor.Runner
}

func buildGateway(ctx context.Context, db *pg.DB, cfg *config.Config, ob *pg.OutboxRepo, l *zap.Logger) (*gateway.Gateway, dgateway.Transport, error) {
	transport := gateway.NewHTTPTransport(cfg.Gateway.AsHTTPConfig())
	driver, err := gateway.NewDriver(cfg.Gateway.AsDriverConfig(), transport)
	if err != nil {
		return nil, nil, err
	}

	gw := gateway.New(driver, pg.NewDeliveryRepo(db), l, gateway.Options{DefaultFrom: cfg.Gateway.From})

	rules := cfg.Mobile.AsRules()
	gw.AddRecipientsFilter(func(to []string) []string {
		out := make([]string, 0, len(to))
		for _, n := range to {
			out = append(out, rules.Prepare(n))
		}
		return out
	})
	gw.OnSent(outbox.SentRecorder{Repo: ob}.Record)

	cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if credit, err := gw.Credit(cctx); err != nil {
		l.Warn("gateway credit unavailable", zap.String("gateway", gw.Name()), zap.Error(err))
	} else {
		l.Info("gateway credit", zap.String("gateway", gw.Name()), zap.String("credit", credit.Value.String()))
	}
	return gw, transport, nil
}

func buildEngine(cfg *config.Config, t dgateway.Transport, l *zap.Logger) *message.Engine {
	engine := message.NewEngine()
	if cfg.Shortener.Enable {
		engine.AddFilter(message.ShortenURLs(&message.BitlyShortener{
			Transport: t,
			Endpoint:  cfg.Shortener.Endpoint,
			Token:     cfg.Shortener.Token,
		}, cfg.Shortener.Timeout, l))
	}
	return engine
}

func wiring(ctx context.Context, db *pg.DB, cfg *config.Config, cons *kafka.Consumer, prod *kafka.Producer, l *zap.Logger) (*app, error) {
	ob := pg.NewOutboxRepo(db)
	users := pg.NewUserRepo(db)
	subs := pg.NewSubscriberRepo(db)

	gw, transport, err := buildGateway(ctx, db, cfg, ob, l)
	if err != nil {
		return nil, err
	}
	d := dispatch.New(buildEngine(cfg, transport, l), gw, cfg.Gateway.From, l)

	mobiles, err := recipient.NewMobileResolver(cfg.Mobile.Handler, users, users)
	if err != nil {
		return nil, err
	}

	uc := &notifier.Handler{
		Resolver:   recipient.New(subs, mobiles, cfg.Notify.AsResolverConfig()),
		Users:      users,
		Dispatcher: d,
		Templates: notifier.Templates{
			Post:          cfg.Notify.Templates.Post,
			PostAuthor:    cfg.Notify.Templates.PostAuthor,
			UserAdmin:     cfg.Notify.Templates.UserAdmin,
			User:          cfg.Notify.Templates.User,
			Comment:       cfg.Notify.Templates.Comment,
			Login:         cfg.Notify.Templates.Login,
			Order:         cfg.Notify.Templates.Order,
			OrderByStatus: cfg.Notify.Templates.OrderByStatus,
		},
		Log: l,
	}
	if cfg.Notify.OrderNotes {
		uc.Notes = outbox.OrderNotes{Repo: ob}
	}

	codes := pg.NewOtpRepo(db)
	attempts := pg.NewOtpAttemptRepo(db)
	gin.SetMode(gin.ReleaseMode)
	api := httpapi.NewServer(
		codes,
		attempts,
		pg.NewTransactor(db, l),
		d,
		httpapi.Opts{
			Logger:   l,
			Rules:    cfg.Mobile.AsRules(),
			Template: cfg.Notify.Templates.OTP,
			Verifier: otpsvc.Config{
				RateLimit:  cfg.OTP.AsRateLimit(),
				CodeLength: cfg.OTP.CodeLength,
			},
			RecentInterval: cfg.OTP.Window,
		},
	).WithReports(&httpapi.Reports{Deliveries: pg.NewDeliveryRepo(db), Groups: subs})

	runner := outbox.NewOutboxRunner(l, ob,
		outbox.MakeGlobalOutboxHandler(kafka.NewSentEventsKafka(prod), retry.DefaultPublishPolicy(l)),
		cfg.Outbox.Workers, cfg.Outbox.BatchSize, cfg.Outbox.WaitTime, cfg.Outbox.InProgressTTL,
	)

	var jr *janitor.Runner
	if cfg.Janitor.Enable {
		jr = janitor.New(l, &janitor.Usecase{
			Codes:   codes,
			CodeTTL: cfg.OTP.AsRateLimit().Window,
		}, cfg.Janitor.Every, cfg.Janitor.BatchLimit)
	}

	return &app{
		ctrl:    &notifier.Controller{Log: l, Sub: cons, UC: uc},
		janitor: jr,
		api: &http.Server{
			Addr:              cfg.Server.HTTPAddr,
			Handler:           api.Handler(),
			ReadTimeout:       cfg.Server.ReadTimeout,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      cfg.Server.WriteTimeout,
		},
		outbox: runner,
	}, nil
}

func main() {
	cfgPath := flag.String("config", "config/sms-notifier.yaml", "path to yaml config")
	flag.Parse()

	// init
	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatal(err)
	}

	// logger
	l, err := obs.NewLogger(cfg.AsLoggerConfig())
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = l.Sync() }()

	l.Info("starting sms-notifier",
		zap.Any("kafka_in", cfg.In),
		zap.String("kafka_out", cfg.Out.Topic),
		zap.String("gateway", cfg.Gateway.Provider),
		zap.String("http_addr", cfg.Server.HTTPAddr),
		zap.String("metrics_addr", cfg.Server.MetricsAddr),
	)

	// otel
	otelCloser, err := obs.SetupOTel(rootCtx, cfg.AsOTELConfig())
	if err != nil {
		l.Warn("otel init", zap.Error(err))
	}
	defer func() { _ = otelCloser.Shutdown(context.Background()) }()

	// db
	db, err := pg.New(rootCtx, cfg.DB)
	if err != nil {
		l.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()
	l.Info("db connected")

	// metrics
	ms := obs.BootstrapMetricsServer(cfg.Server.MetricsAddr, l,
		obs.HealthCheck{Name: "postgres", Check: db.Ping},
	)

	// kafka
	cons := kafka.BootstrapConsumer(rootCtx, cfg.In.AsConsumerConfig(), cfg.In.Partitions, l).WithLogger(l)
	defer func() { _ = cons.Close() }()
	prod := kafka.BootstrapProducer(rootCtx, cfg.Out.Brokers, cfg.Out.Topic, cfg.Out.Partitions, l)
	defer func() { _ = prod.Close() }()
	l.Info("kafka initialized",
		zap.Strings("brokers", cfg.In.Brokers),
		zap.String("group_id", cfg.In.GroupID),
		zap.String("topic_in", cfg.In.Topic),
		zap.String("topic_out", cfg.Out.Topic),
	)

	a, err := wiring(rootCtx, db, cfg, cons, prod, l)
	if err != nil {
		l.Fatal("wiring", zap.Error(err))
	}

	// start
	errCh := make(chan error, 2)
	go func() {
		l.Info("controller starting")
		errCh <- a.ctrl.Run(rootCtx)
	}()
	go func() {
		l.Info("http listening", zap.String("addr", cfg.Server.HTTPAddr))
		if err := a.api.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	if a.janitor != nil {
		go func() { _ = a.janitor.Run(rootCtx) }()
	}
	outboxDone := make(chan struct{})
	go func() {
		defer close(outboxDone)
		a.outbox.Start(rootCtx)
	}()

	// main loop
	select {
	case <-rootCtx.Done():
		l.Info("shutdown signal")
	case runErr := <-errCh:
		if runErr != nil && !errors.Is(runErr, context.Canceled) {
			l.Error("service error", zap.Error(runErr))
		}
		stop()
	}

	// graceful shutdown
	shCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()
	_ = a.api.Shutdown(shCtx)
	select {
	case <-outboxDone:
	case <-shCtx.Done():
		l.Warn("outbox runner did not stop in time")
	}
	_ = ms.Shutdown(shCtx)
	l.Info("bye")
}
