// Package source implements the external catalog source client.
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/merchantiq/catalogsync/internal/catalog/domain"
	"github.com/merchantiq/catalogsync/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Config config.Config
	Log    *zap.Logger
}

// Client fetches catalog pages over HTTP with a bounded per-call timeout.
type Client struct {
	http       *http.Client
	log        *zap.Logger
	baseURL    string
	apiVersion string
	pageSize   int
}

func New(p Params) domain.Source {
	return &Client{
		http:       &http.Client{Timeout: p.Config.SourceHTTPTimeout},
		log:        p.Log.Named("catalog.source"),
		baseURL:    strings.TrimRight(p.Config.SourceBaseURL, "/"),
		apiVersion: p.Config.SourceAPIVersion,
		pageSize:   p.Config.SourcePageSize,
	}
}

type pageResponse struct {
	Items      []domain.RawItem `json:"items"`
	NextCursor string           `json:"next_cursor"`
}

func (c *Client) FetchPage(ctx context.Context, cred domain.Credential, cursor string) (domain.Page, error) {
	endpoint, err := c.pageURL(cred, cursor)
	if err != nil {
		return domain.Page{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.Page{}, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Access-Token", cred.AccessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.Page{}, fmt.Errorf("%w: %v", domain.ErrFetchTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.Page{}, fmt.Errorf("%w: status %d: %s", domain.ErrFetchTransport, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed pageResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return domain.Page{}, fmt.Errorf("%w: decode: %v", domain.ErrFetchTransport, err)
	}

	return domain.Page{
		Items:      parsed.Items,
		NextCursor: strings.TrimSpace(parsed.NextCursor),
	}, nil
}

func (c *Client) pageURL(cred domain.Credential, cursor string) (string, error) {
	base := c.baseURL
	if base == "" {
		base = "https://" + strings.TrimSpace(cred.ShopDomain)
	}

	u, err := url.Parse(fmt.Sprintf("%s/api/%s/catalog/items", base, c.apiVersion))
	if err != nil {
		return "", err
	}

	query := u.Query()
	query.Set("limit", strconv.Itoa(c.pageSize))
	if cursor != "" {
		query.Set("cursor", cursor)
	}
	u.RawQuery = query.Encode()
	return u.String(), nil
}
