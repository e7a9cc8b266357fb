package notifier

import (
	"context"
	"encoding/json"
	"fmt"

	kafkax "github.com/NordCoder/Smsgate/internal/repository/kafka"
	"go.uber.org/zap"
)

type Controller struct {
	Log *zap.Logger
	Sub *kafkax.Consumer
	UC  *Handler
}

func (c *Controller) Run(ctx context.Context) error {
	return c.Sub.Consume(ctx, kafkax.EnvelopeHandler(c.Handle))
}

// Handle routes one decoded event. Unknown kinds are skipped so that producers can
// add events before this service learns them.
func (c *Controller) Handle(ctx context.Context, ev kafkax.Envelope) error {
	switch ev.Kind {
	case KindPostPublished:
		var dto PostPublished
		if err := decode(ev, &dto); err != nil {
			return err
		}
		return c.UC.HandlePostPublished(ctx, dto)
	case KindPostStatusChanged:
		var dto PostStatusChanged
		if err := decode(ev, &dto); err != nil {
			return err
		}
		return c.UC.HandlePostStatusChanged(ctx, dto)
	case KindUserRegistered:
		var dto UserRegistered
		if err := decode(ev, &dto); err != nil {
			return err
		}
		if dto.UserID <= 0 {
			c.Log.Warn("user_registered: invalid user_id", zap.Int64("user_id", dto.UserID))
			return nil
		}
		return c.UC.HandleUserRegistered(ctx, dto)
	case KindCommentAdded:
		var dto CommentAdded
		if err := decode(ev, &dto); err != nil {
			return err
		}
		return c.UC.HandleCommentAdded(ctx, dto)
	case KindUserLoggedIn:
		var dto UserLoggedIn
		if err := decode(ev, &dto); err != nil {
			return err
		}
		if dto.UserID <= 0 {
			c.Log.Warn("user_logged_in: invalid user_id", zap.Int64("user_id", dto.UserID))
			return nil
		}
		return c.UC.HandleUserLoggedIn(ctx, dto)
	case KindOrderStatusChanged:
		var dto OrderStatusChanged
		if err := decode(ev, &dto); err != nil {
			return err
		}
		return c.UC.HandleOrderStatusChanged(ctx, dto)
	default:
		c.Log.Debug("skip unknown event", zap.String("kind", ev.Kind))
		return nil
	}
}

func decode(ev kafkax.Envelope, out any) error {
	if err := json.Unmarshal(ev.JSON, out); err != nil {
		return fmt.Errorf("decode %s: %w", ev.Kind, err)
	}
	return nil
}
