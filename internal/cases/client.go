package cases

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/casesync/casesync-backend/pkg/config"
)

const defaultTimeout = 5 * time.Second

// Client resolves case identifiers against the case-management service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient builds a case-management client from configuration.
func NewClient(cfg config.CasesConfig) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("cases base url is required")
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:    base,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// CaseExists reports whether the case id resolves. A 404 means the case
// does not exist; any other non-2xx response is a dependency error.
func (c *Client) CaseExists(ctx context.Context, caseID string) (bool, error) {
	if strings.TrimSpace(caseID) == "" {
		return false, nil
	}

	endpoint := fmt.Sprintf("%s/api/v1/cases/%s", c.baseURL, url.PathEscape(caseID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, fmt.Errorf("build case lookup request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("case lookup: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return false, nil
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return true, nil
	default:
		return false, fmt.Errorf("case lookup for %q returned status %d", caseID, resp.StatusCode)
	}
}
