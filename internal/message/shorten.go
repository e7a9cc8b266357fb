package message

import (
	"context"
	"regexp"
	"time"

	"go.uber.org/zap"
)

var urlPattern = regexp.MustCompile(`(http|https)://[a-zA-Z0-9\-.]+\.[a-zA-Z]{2,3}(/\S*)?`)

type Shortener interface {
	Shorten(ctx context.Context, longURL string) (string, error)
}

// ShortenURLs returns a filter replacing every URL in the message with its short form.
// URLs the shortener fails on are kept as is.
func ShortenURLs(s Shortener, timeout time.Duration, log *zap.Logger) Filter {
	if log == nil {
		log = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return func(rendered, _ string) string {
		return urlPattern.ReplaceAllStringFunc(rendered, func(u string) string {
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()
			short, err := s.Shorten(ctx, u)
			if err != nil || short == "" {
				log.Warn("shorten url failed", zap.String("url", u), zap.Error(err))
				return u
			}
			return short
		})
	}
}
