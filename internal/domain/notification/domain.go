package notification

import (
	"context"
	"strings"

	"github.com/NordCoder/Smsgate/internal/domain/gateway"
)

type Kind string

const (
	KindPost    Kind = "post"
	KindUser    Kind = "user"
	KindComment Kind = "comment"
	KindLogin   Kind = "login"
	KindOrder   Kind = "order"
	KindOTP     Kind = "otp"
)

// Variable maps one placeholder to its value source. Exactly one of Value, Param or
// Literal is used: Param for "%prefix_{key}%" placeholders, Value for plain ones,
// Literal when no accessor is set.
type Variable struct {
	Name    string
	Value   func() string
	Param   func(key string) string
	Literal string
}

func (v Variable) Parameterized() bool { return strings.Contains(v.Name, "{") }

func (v Variable) Resolve() string {
	if v.Value != nil {
		return v.Value()
	}
	return v.Literal
}

type SuccessFunc func(ctx context.Context, to []string) error

type FailureFunc func(ctx context.Context, to []string, err *gateway.Error) error

// Context is built per dispatch and dropped once the send completes.
type Context struct {
	Kind      Kind
	EntityID  int64
	Variables []Variable
	OnSuccess SuccessFunc
	OnFailure FailureFunc
}

func (c *Context) Placeholders() []string {
	out := make([]string, 0, len(c.Variables))
	for _, v := range c.Variables {
		out = append(out, v.Name)
	}
	return out
}
