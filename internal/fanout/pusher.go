package fanout

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/merchantiq/catalogsync/internal/config"
)

// Terminal push failures. These are never retried.
var (
	ErrAuthRejected     = errors.New("provider rejected credentials")
	ErrMalformedPayload = errors.New("provider rejected payload")
	ErrRateLimited      = errors.New("provider rate limited")
)

// PayloadItem is the bounded, provider-safe projection of one product.
type PayloadItem struct {
	ExternalID  string   `json:"external_id"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Price       float64  `json:"price"`
	Vendor      string   `json:"vendor,omitempty"`
	ProductType string   `json:"product_type,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	InStock     bool     `json:"in_stock"`
}

// PushRequest is one catalog push to one provider.
type PushRequest struct {
	TenantID int64         `json:"tenant_id"`
	Shop     string        `json:"shop"`
	Items    []PayloadItem `json:"items"`
}

// Pusher delivers one push to one provider endpoint. Implementations
// return terminal sentinel errors for non-retryable rejections; anything
// else is treated as transient.
type Pusher interface {
	Push(ctx context.Context, req PushRequest) error
}

// PusherFactory builds a Pusher for a provider's live configuration, so
// hot-reloaded credentials take effect on the next run.
type PusherFactory func(cfg config.ProviderConfig) Pusher

type httpPusher struct {
	client   *http.Client
	endpoint string
	apiKey   string
}

// NewHTTPPusherFactory returns the production factory: JSON POST with a
// bearer credential and a per-call timeout from the provider config.
func NewHTTPPusherFactory() PusherFactory {
	return func(cfg config.ProviderConfig) Pusher {
		return &httpPusher{
			client:   &http.Client{Timeout: cfg.Timeout},
			endpoint: cfg.Endpoint,
			apiKey:   cfg.APIKey,
		}
	}
}

func (p *httpPusher) Push(ctx context.Context, req PushRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		// timeouts and connection resets are transient
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: status %d", ErrAuthRejected, resp.StatusCode)
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: status %d", ErrRateLimited, resp.StatusCode)
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("%w: status %d: %s", ErrMalformedPayload, resp.StatusCode, strings.TrimSpace(string(snippet)))
	default:
		return fmt.Errorf("provider returned status %d", resp.StatusCode)
	}
}

// IsTerminal reports whether a push error must not be retried.
func IsTerminal(err error) bool {
	return errors.Is(err, ErrAuthRejected) ||
		errors.Is(err, ErrMalformedPayload) ||
		errors.Is(err, ErrRateLimited)
}
