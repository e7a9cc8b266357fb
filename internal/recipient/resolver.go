package recipient

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/NordCoder/Smsgate/internal/domain/notification"
	"github.com/NordCoder/Smsgate/internal/domain/subscriber"
	"github.com/NordCoder/Smsgate/internal/domain/user"
)

const (
	ReceiverSubscriber = "subscriber"
	ReceiverNumbers    = "numbers"
	ReceiverUsers      = "users"

	statusPublish = "publish"
	statusFuture  = "future"
)

// suppressedCommentTypes are comment rows that are really shop bookkeeping.
var suppressedCommentTypes = []string{"order_note", "edd_payment_note"}

// PostMeta is the per-post audience selection made by the editor.
type PostMeta struct {
	Receiver    string   `json:"receiver"`
	Group       string   `json:"group"`
	Numbers     string   `json:"numbers"`
	Roles       []string `json:"roles"`
	MessageBody string   `json:"message_body"`
}

type Config struct {
	AdminMobile     string
	PostTypes       []string
	AuthorPostTypes []string
	LoginRoles      []string
	SendMMS         bool
}

type Resolver struct {
	subs    subscriber.Repo
	mobiles MobileResolver
	cfg     Config
}

func New(subs subscriber.Repo, mobiles MobileResolver, cfg Config) *Resolver {
	return &Resolver{subs: subs, mobiles: mobiles, cfg: cfg}
}

// PostPublished returns nothing for posts that are not published yet or whose type
// is not enabled.
func (r *Resolver) PostPublished(ctx context.Context, p *notification.Post, m PostMeta) (to, media []string, err error) {
	if p.Status != statusPublish || !slices.Contains(r.cfg.PostTypes, p.Type) {
		return nil, nil, nil
	}

	switch m.Receiver {
	case ReceiverSubscriber:
		var groups []int64
		if g := strings.TrimSpace(m.Group); g != "" && g != subscriber.GroupAll {
			id, err := strconv.ParseInt(g, 10, 64)
			if err != nil {
				return nil, nil, fmt.Errorf("subscriber group %q: %w", g, err)
			}
			groups = []int64{id}
		}
		to, err = r.subs.ListActiveMobiles(ctx, groups)
		if err != nil {
			return nil, nil, fmt.Errorf("list subscribers: %w", err)
		}
	case ReceiverNumbers:
		to = SplitNumbers(m.Numbers)
	case ReceiverUsers:
		to, err = r.mobiles.ListMobiles(ctx, m.Roles)
		if err != nil {
			return nil, nil, fmt.Errorf("list user mobiles: %w", err)
		}
	}

	if r.cfg.SendMMS && p.ThumbnailURL != "" {
		media = []string{p.ThumbnailURL}
	}
	return to, media, nil
}

// IsScheduled reports whether p is queued for future publication and must not notify yet.
func IsScheduled(p *notification.Post) bool { return p.Status == statusFuture }

// NewUser resolves the admin copy and the user's own copy of a registration notice.
// The stored mobile wins over the one sent with the registration request.
func (r *Resolver) NewUser(ctx context.Context, userID int64, requestMobile string) (admin, own []string, err error) {
	if r.cfg.AdminMobile != "" {
		admin = []string{r.cfg.AdminMobile}
	}
	stored, err := r.mobiles.MobileByUserID(ctx, userID)
	if err != nil {
		return admin, nil, fmt.Errorf("user mobile: %w", err)
	}
	switch {
	case stored != "":
		own = []string{stored}
	case strings.TrimSpace(requestMobile) != "":
		own = []string{strings.TrimSpace(requestMobile)}
	}
	return admin, own, nil
}

func (r *Resolver) Comment(c *notification.Comment) []string {
	if slices.Contains(suppressedCommentTypes, c.Type) || r.cfg.AdminMobile == "" {
		return nil
	}
	return []string{r.cfg.AdminMobile}
}

// Login checks the allow-list against the user's primary role only.
func (r *Resolver) Login(u *user.User) []string {
	if r.cfg.AdminMobile == "" {
		return nil
	}
	if len(r.cfg.LoginRoles) > 0 && !slices.Contains(r.cfg.LoginRoles, u.PrimaryRole()) {
		return nil
	}
	return []string{r.cfg.AdminMobile}
}

// AuthorOnPublish fires only on the transition into publish. Authors are looked up
// by their "mobile" field regardless of the configured handler.
func (r *Resolver) AuthorOnPublish(ctx context.Context, p *notification.Post, oldStatus, newStatus string) ([]string, error) {
	if newStatus != statusPublish || oldStatus == statusPublish {
		return nil, nil
	}
	if !slices.Contains(r.cfg.AuthorPostTypes, p.Type) {
		return nil, nil
	}
	m, err := r.mobiles.AuthorMobile(ctx, p.AuthorID)
	if err != nil {
		return nil, fmt.Errorf("author mobile: %w", err)
	}
	if m == "" {
		return nil, nil
	}
	return []string{m}, nil
}

// Order prefers the customer's stored mobile, then the order's own copy of the field,
// then the billing phone.
func (r *Resolver) Order(ctx context.Context, o *notification.Order) ([]string, error) {
	if o.CustomerID > 0 {
		m, err := r.mobiles.MobileByUserID(ctx, o.CustomerID)
		if err != nil {
			return nil, fmt.Errorf("customer mobile: %w", err)
		}
		if m != "" {
			return []string{m}, nil
		}
	}
	if m := o.Meta[r.mobiles.FieldName()]; m != "" {
		return []string{m}, nil
	}
	if o.BillingPhone != "" {
		return []string{o.BillingPhone}, nil
	}
	return nil, nil
}

func SplitNumbers(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
