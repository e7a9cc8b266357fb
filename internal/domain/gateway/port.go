package gateway

import (
	"context"
	"net/http"
)

type Client interface {
	Name() string
	Send(ctx context.Context, m Message) SendResult
	Credit(ctx context.Context) (Credit, error)
}

type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Transport performs a single request; a non-nil error means no usable response was received.
type Transport interface {
	Request(ctx context.Context, req Request) (*Response, error)
}
