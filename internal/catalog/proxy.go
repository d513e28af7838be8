// Package catalog maintains the per-provider model catalog: the remote proxy
// snapshot, the per-user dynamic lists built from vendor listings, and the
// compiled-in static lists.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/yourusername/byok/internal/provider"
)

// ErrProxyNotConfigured is returned when no proxy URL is set.
var ErrProxyNotConfigured = errors.New("catalog proxy URL not configured")

// ProxyCatalog is the payload served by the catalog proxy.
type ProxyCatalog struct {
	Success     bool                               `json:"success"`
	Models      map[string][]provider.ModelVariant `json:"models"`
	Timestamp   int64                              `json:"timestamp"`
	Cached      bool                               `json:"cached,omitempty"`
	Age         int64                              `json:"age,omitempty"`
	TotalModels int                                `json:"totalModels,omitempty"`
	Error       string                             `json:"error,omitempty"`
}

// ProxyClient reads the remote catalog proxy.
type ProxyClient struct {
	url    string
	client *http.Client
	logger zerolog.Logger
}

// NewProxyClient creates a client for the proxy at rawURL. A nil client gets
// a 15 second timeout.
func NewProxyClient(rawURL string, client *http.Client, logger zerolog.Logger) *ProxyClient {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &ProxyClient{url: rawURL, client: client, logger: logger}
}

// Fetch downloads the catalog. force asks the proxy to bypass its own cache.
func (c *ProxyClient) Fetch(ctx context.Context, force bool) (*ProxyCatalog, error) {
	if c == nil || c.url == "" {
		return nil, ErrProxyNotConfigured
	}

	u, err := url.Parse(c.url)
	if err != nil {
		return nil, fmt.Errorf("invalid proxy URL: %w", err)
	}
	if force {
		q := u.Query()
		q.Set("refresh", "true")
		u.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create proxy request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch catalog: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog proxy returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog response: %w", err)
	}

	var cat ProxyCatalog
	if err := json.Unmarshal(body, &cat); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	if !cat.Success {
		if cat.Error != "" {
			return nil, fmt.Errorf("catalog proxy reported failure: %s", cat.Error)
		}
		return nil, errors.New("catalog proxy reported failure")
	}

	c.logger.Debug().
		Bool("cached", cat.Cached).
		Int64("age", cat.Age).
		Int("total_models", cat.TotalModels).
		Msg("catalog fetched")
	return &cat, nil
}
