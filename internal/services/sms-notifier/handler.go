package notifier

import (
	"context"
	"fmt"

	"github.com/NordCoder/Smsgate/internal/dispatch"
	"github.com/NordCoder/Smsgate/internal/domain/notification"
	"github.com/NordCoder/Smsgate/internal/domain/user"
	"github.com/NordCoder/Smsgate/internal/obs"
	"github.com/NordCoder/Smsgate/internal/recipient"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var mEvents = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "sms_events_total",
	Help: "Intake events by kind and outcome.",
}, []string{"kind", "outcome"})

type Templates struct {
	Post          string
	PostAuthor    string
	UserAdmin     string
	User          string
	Comment       string
	Login         string
	Order         string
	OrderByStatus map[string]string
}

func (t Templates) order(status string) string {
	if s, ok := t.OrderByStatus[status]; ok && s != "" {
		return s
	}
	return t.Order
}

// Handler turns intake events into SMS sends. Gateway failures are logged and never
// returned: a failed SMS is recorded in the delivery log and is not retried.
type Handler struct {
	Resolver   *recipient.Resolver
	Users      user.Repo
	Dispatcher *dispatch.Dispatcher
	Notes      notification.OrderNotes
	Templates  Templates
	Log        *zap.Logger
}

func (h *Handler) log(ctx context.Context) *zap.Logger {
	l := h.Log
	if l == nil {
		l = zap.NewNop()
	}
	return obs.WithTrace(ctx, l)
}

func (h *Handler) send(ctx context.Context, kind string, nc *notification.Context, tmpl string, to []string, media ...string) {
	if len(to) == 0 {
		mEvents.WithLabelValues(kind, "no_recipients").Inc()
		return
	}
	if tmpl == "" {
		mEvents.WithLabelValues(kind, "no_template").Inc()
		h.log(ctx).Warn("empty template", zap.String("kind", kind))
		return
	}
	res := h.Dispatcher.Dispatch(ctx, nc, tmpl, to, media...)
	if !res.OK() {
		mEvents.WithLabelValues(kind, "failed").Inc()
		h.log(ctx).Warn("sms not sent",
			zap.String("kind", kind),
			zap.Strings("to", to),
			zap.String("code", string(res.Err.Code)),
			zap.String("error", res.Err.Message),
		)
		return
	}
	mEvents.WithLabelValues(kind, "sent").Inc()
}

func (h *Handler) HandlePostPublished(ctx context.Context, ev PostPublished) error {
	if recipient.IsScheduled(&ev.Post) {
		mEvents.WithLabelValues(KindPostPublished, "scheduled").Inc()
		return nil
	}
	to, media, err := h.Resolver.PostPublished(ctx, &ev.Post, ev.Meta)
	if err != nil {
		return fmt.Errorf("resolve post recipients: %w", err)
	}
	tmpl := h.Templates.Post
	if ev.Meta.MessageBody != "" {
		tmpl = ev.Meta.MessageBody
	}
	h.send(ctx, KindPostPublished, notification.ForPost(&ev.Post), tmpl, to, media...)
	return nil
}

func (h *Handler) HandlePostStatusChanged(ctx context.Context, ev PostStatusChanged) error {
	to, err := h.Resolver.AuthorOnPublish(ctx, &ev.Post, ev.OldStatus, ev.NewStatus)
	if err != nil {
		return fmt.Errorf("resolve author: %w", err)
	}
	h.send(ctx, KindPostStatusChanged, notification.ForPost(&ev.Post), h.Templates.PostAuthor, to)
	return nil
}

func (h *Handler) HandleUserRegistered(ctx context.Context, ev UserRegistered) error {
	u, err := h.Users.GetByID(ctx, ev.UserID)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}
	admin, own, err := h.Resolver.NewUser(ctx, u.ID, ev.Mobile)
	if err != nil {
		return fmt.Errorf("resolve user recipients: %w", err)
	}
	h.send(ctx, KindUserRegistered, notification.ForUser(u), h.Templates.UserAdmin, admin)
	h.send(ctx, KindUserRegistered, notification.ForUser(u), h.Templates.User, own)
	return nil
}

func (h *Handler) HandleCommentAdded(ctx context.Context, ev CommentAdded) error {
	h.send(ctx, KindCommentAdded, notification.ForComment(&ev.Comment), h.Templates.Comment, h.Resolver.Comment(&ev.Comment))
	return nil
}

func (h *Handler) HandleUserLoggedIn(ctx context.Context, ev UserLoggedIn) error {
	u, err := h.Users.GetByID(ctx, ev.UserID)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}
	h.send(ctx, KindUserLoggedIn, notification.ForLogin(u), h.Templates.Login, h.Resolver.Login(u))
	return nil
}

func (h *Handler) HandleOrderStatusChanged(ctx context.Context, ev OrderStatusChanged) error {
	to, err := h.Resolver.Order(ctx, &ev.Order)
	if err != nil {
		return fmt.Errorf("resolve order recipient: %w", err)
	}
	h.send(ctx, KindOrderStatusChanged, notification.ForOrder(&ev.Order, h.Notes), h.Templates.order(ev.Order.Status), to)
	return nil
}
