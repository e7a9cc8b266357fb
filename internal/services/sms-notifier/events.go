package notifier

import (
	"github.com/NordCoder/Smsgate/internal/domain/notification"
	"github.com/NordCoder/Smsgate/internal/recipient"
)

const (
	KindPostPublished      = "post_published"
	KindPostStatusChanged  = "post_status_changed"
	KindUserRegistered     = "user_registered"
	KindCommentAdded       = "comment_added"
	KindUserLoggedIn       = "user_logged_in"
	KindOrderStatusChanged = "order_status_changed"
)

type PostPublished struct {
	Post notification.Post  `json:"post"`
	Meta recipient.PostMeta `json:"meta"`
}

type PostStatusChanged struct {
	Post      notification.Post `json:"post"`
	OldStatus string            `json:"old_status"`
	NewStatus string            `json:"new_status"`
}

// UserRegistered carries the mobile typed into the registration form, if any.
type UserRegistered struct {
	UserID int64  `json:"user_id"`
	Mobile string `json:"mobile"`
}

type CommentAdded struct {
	Comment notification.Comment `json:"comment"`
}

type UserLoggedIn struct {
	UserID int64 `json:"user_id"`
}

type OrderStatusChanged struct {
	Order notification.Order `json:"order"`
}
