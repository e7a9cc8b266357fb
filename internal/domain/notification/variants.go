package notification

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/NordCoder/Smsgate/internal/domain/gateway"
	"github.com/NordCoder/Smsgate/internal/domain/user"
)

const dateLayout = "2006-01-02 15:04"

type Post struct {
	ID           int64     `json:"id"`
	Type         string    `json:"type"`
	Status       string    `json:"status"`
	Title        string    `json:"title"`
	Content      string    `json:"content"`
	URL          string    `json:"url"`
	ThumbnailURL string    `json:"thumbnail_url"`
	AuthorID     int64     `json:"author_id"`
	AuthorName   string    `json:"author_name"`
	Date         time.Time `json:"date"`
}

type Comment struct {
	ID          int64     `json:"id"`
	Type        string    `json:"type"`
	PostTitle   string    `json:"post_title"`
	AuthorName  string    `json:"author_name"`
	AuthorEmail string    `json:"author_email"`
	AuthorURL   string    `json:"author_url"`
	AuthorIP    string    `json:"author_ip"`
	Content     string    `json:"content"`
	URL         string    `json:"url"`
	Date        time.Time `json:"date"`
}

type OrderItem struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Total    string `json:"total"`
}

type Order struct {
	ID               int64             `json:"id"`
	Number           string            `json:"number"`
	Status           string            `json:"status"`
	StatusName       string            `json:"status_name"`
	CustomerID       int64             `json:"customer_id"`
	BillingFirstName string            `json:"billing_first_name"`
	BillingLastName  string            `json:"billing_last_name"`
	BillingCompany   string            `json:"billing_company"`
	BillingAddress   string            `json:"billing_address"`
	BillingPhone     string            `json:"billing_phone"`
	Total            string            `json:"total"`
	Currency         string            `json:"currency"`
	CurrencySymbol   string            `json:"currency_symbol"`
	EditURL          string            `json:"edit_url"`
	PayURL           string            `json:"pay_url"`
	Items            []OrderItem       `json:"items"`
	Meta             map[string]string `json:"meta"`
}

func (o *Order) FormatItems() string {
	lines := make([]string, 0, len(o.Items))
	for _, it := range o.Items {
		lines = append(lines, fmt.Sprintf("- %s x %d %s%s", it.Name, it.Quantity, o.CurrencySymbol, it.Total))
	}
	return strings.Join(lines, "\n")
}

func static(name, value string) Variable {
	v := value
	return Variable{Name: name, Value: func() string { return v }}
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

func ForPost(p *Post) *Context {
	return &Context{
		Kind:     KindPost,
		EntityID: p.ID,
		Variables: []Variable{
			static("%post_title%", p.Title),
			static("%post_content%", p.Content),
			static("%post_url%", p.URL),
			static("%post_date%", formatDate(p.Date)),
			static("%post_thumbnail%", p.ThumbnailURL),
			static("%post_author%", p.AuthorName),
		},
	}
}

func userVariables(u *user.User) []Variable {
	return []Variable{
		static("%user_login%", u.Login),
		static("%user_email%", u.Email),
		static("%display_name%", u.DisplayName),
		static("%user_firstname%", u.FirstName),
		static("%user_lastname%", u.LastName),
		static("%user_role%", u.PrimaryRole()),
		static("%date_register%", formatDate(u.RegisteredAt)),
	}
}

func ForUser(u *user.User) *Context {
	return &Context{Kind: KindUser, EntityID: u.ID, Variables: userVariables(u)}
}

func ForLogin(u *user.User) *Context {
	return &Context{Kind: KindLogin, EntityID: u.ID, Variables: userVariables(u)}
}

func ForComment(c *Comment) *Context {
	return &Context{
		Kind:     KindComment,
		EntityID: c.ID,
		Variables: []Variable{
			static("%comment_author%", c.AuthorName),
			static("%comment_author_email%", c.AuthorEmail),
			static("%comment_author_url%", c.AuthorURL),
			static("%comment_author_IP%", c.AuthorIP),
			static("%comment_date%", formatDate(c.Date)),
			static("%comment_content%", c.Content),
			static("%comment_url%", c.URL),
			static("%comment_post_title%", c.PostTitle),
		},
	}
}

// ForOrder builds the order context. When notes is set, the outcome of every send is
// recorded on the order.
func ForOrder(o *Order, notes OrderNotes) *Context {
	nc := &Context{
		Kind:     KindOrder,
		EntityID: o.ID,
		Variables: []Variable{
			static("%billing_first_name%", o.BillingFirstName),
			static("%billing_last_name%", o.BillingLastName),
			static("%billing_company%", o.BillingCompany),
			static("%billing_address%", o.BillingAddress),
			static("%order_edit_url%", o.EditURL),
			static("%billing_phone%", o.BillingPhone),
			static("%order_number%", o.Number),
			static("%order_total%", o.Total),
			static("%order_total_currency%", o.Currency),
			static("%order_total_currency_symbol%", o.CurrencySymbol),
			static("%order_pay_url%", o.PayURL),
			static("%order_id%", strconv.FormatInt(o.ID, 10)),
			{Name: "%order_items%", Value: o.FormatItems},
			static("%status%", o.StatusName),
			{Name: "%order_meta_{key-name}%", Param: func(key string) string { return o.Meta[key] }},
		},
	}
	if notes == nil {
		return nc
	}
	nc.OnSuccess = func(ctx context.Context, to []string) error {
		return notes.AddNote(ctx, o.ID,
			fmt.Sprintf("Successfully send SMS notification to %s", strings.Join(to, ",")))
	}
	nc.OnFailure = func(ctx context.Context, to []string, err *gateway.Error) error {
		return notes.AddNote(ctx, o.ID,
			fmt.Sprintf("Failed to send SMS notification to %s. Error: %s", strings.Join(to, ","), err.Message))
	}
	return nc
}

// ForOTP carries a freshly issued code into the message template.
func ForOTP(phone, code string) *Context {
	return &Context{
		Kind: KindOTP,
		Variables: []Variable{
			static("%otp_code%", code),
			static("%mobile_number%", phone),
		},
	}
}
