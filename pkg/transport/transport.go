// Package transport posts serialized proposals to the Safe Transaction Service.
// HTTP error statuses are a normal result here; only connection-level failures
// are errors. No retries are attempted.
package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/Layr-Labs/safe-proposer-go/pkg/logger"
)

var (
	// ErrTransportFailure wraps connectivity or protocol failures of the HTTP call
	ErrTransportFailure = errors.New("transport failure")
	// ErrMalformedHeader is returned for header strings not shaped "Key: Value"
	ErrMalformedHeader = errors.New("malformed header")
)

// IPoster sends a POST request and returns the raw status and body.
type IPoster interface {
	Post(ctx context.Context, url string, headers []string, body []byte) (int, []byte, error)
}

type TransportConfig struct {
	// Timeout bounds a single request; zero leaves it to the context
	Timeout time.Duration
	// Debug enables resty request/response dumps
	Debug bool
}

// RestyPoster implements IPoster with a resty client.
type RestyPoster struct {
	client *resty.Client
	logger *zap.Logger
}

// NewRestyPoster creates a poster with retries disabled.
func NewRestyPoster(cfg *TransportConfig, l *zap.Logger) *RestyPoster {
	client := resty.New().
		SetDebug(cfg.Debug).
		SetTimeout(cfg.Timeout).
		SetRetryCount(0)
	return NewRestyPosterWithClient(client, l)
}

// NewRestyPosterWithClient wraps an existing client and attaches request logging.
// The client's default User-Agent is suppressed; a User-Agent passed to Post is kept.
func NewRestyPosterWithClient(client *resty.Client, l *zap.Logger) *RestyPoster {
	logger.AttachRestyLogger(client, l)
	client.SetPreRequestHook(stripDefaultUserAgent)
	return &RestyPoster{
		client: client,
		logger: l,
	}
}

// stripDefaultUserAgent blanks the User-Agent resty fills in when the caller set none.
// net/http sends no User-Agent for a present but empty header.
func stripDefaultUserAgent(_ *resty.Client, req *http.Request) error {
	if strings.HasPrefix(req.Header.Get("User-Agent"), "go-resty/") {
		req.Header["User-Agent"] = []string{""}
	}
	return nil
}

// Post sends body to url with exactly the given "Key: Value" headers, in order.
// A nil body sends a request without payload.
func (p *RestyPoster) Post(ctx context.Context, url string, headers []string, body []byte) (int, []byte, error) {
	req := p.client.R().SetContext(ctx)
	for _, h := range headers {
		key, value, ok := strings.Cut(h, ":")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return 0, nil, fmt.Errorf("%w: %q", ErrMalformedHeader, h)
		}
		req.SetHeader(key, strings.TrimSpace(value))
	}
	if body != nil {
		req.SetBody(body)
	}

	resp, err := req.Post(url)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: POST %s: %w", ErrTransportFailure, url, err)
	}

	p.logger.Sugar().Debugw("Received response",
		zap.String("url", url),
		zap.Int("status", resp.StatusCode()),
		zap.Int("bodyLength", len(resp.Body())),
	)
	return resp.StatusCode(), resp.Body(), nil
}
