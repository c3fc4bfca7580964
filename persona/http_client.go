package persona

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cortexa-labs/ragserve/types"
)

// ClientConfig holds the configuration service endpoint settings.
type ClientConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client fetches tenant identities from the external configuration service
// over HTTP: GET {base}/tenants/{tenantId}/identity.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// NewClient creates a configuration service client.
func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
	}
}

// GetIdentity fetches and validates the tenant's identity. A 404 from the
// service means the tenant never configured a persona.
func (c *Client) GetIdentity(ctx context.Context, tenantID string) (*Identity, error) {
	endpoint := fmt.Sprintf("%s/tenants/%s/identity", c.baseURL, url.PathEscape(tenantID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create identity request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, types.NewError(types.ErrInternalError, "configuration service unreachable").
			WithCause(err).WithTenant(tenantID).WithRetryable(true)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, types.NewError(types.ErrNotFound,
			fmt.Sprintf("tenant %q has no identity configuration", tenantID)).
			WithTenant(tenantID)
	}
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, types.NewError(types.ErrInternalError,
			fmt.Sprintf("configuration service returned %d: %s", resp.StatusCode, body)).
			WithTenant(tenantID).WithRetryable(resp.StatusCode >= 500)
	}

	var identity Identity
	if err := json.NewDecoder(resp.Body).Decode(&identity); err != nil {
		return nil, types.NewError(types.ErrInvalidTenantData, "decode identity response").
			WithCause(err).WithTenant(tenantID)
	}
	if identity.TenantID == "" {
		identity.TenantID = tenantID
	}
	if err := identity.Validate(); err != nil {
		return nil, err
	}
	return &identity, nil
}
