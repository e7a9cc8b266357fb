package message

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/NordCoder/Smsgate/internal/domain/gateway"
)

// BitlyShortener talks to a Bitly v4 compatible /shorten endpoint.
type BitlyShortener struct {
	Transport gateway.Transport
	Endpoint  string
	Token     string
}

func (b *BitlyShortener) Shorten(ctx context.Context, longURL string) (string, error) {
	body, err := json.Marshal(map[string]string{"long_url": longURL})
	if err != nil {
		return "", err
	}
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	h.Set("Authorization", "Bearer "+b.Token)

	resp, err := b.Transport.Request(ctx, gateway.Request{
		Method: http.MethodPost,
		URL:    strings.TrimRight(b.Endpoint, "/") + "/v4/shorten",
		Header: h,
		Body:   body,
	})
	if err != nil {
		return "", fmt.Errorf("shorten request: %w", err)
	}
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("shorten: http %d", resp.StatusCode)
	}
	var out struct {
		Link string `json:"link"`
	}
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return "", fmt.Errorf("decode shorten response: %w", err)
	}
	return out.Link, nil
}
