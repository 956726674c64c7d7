package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/claude/healthsync/internal/archive"
	"github.com/claude/healthsync/internal/metrics"
	"github.com/claude/healthsync/internal/provider"
	"github.com/claude/healthsync/internal/widget"
)

// HTTPClient implements DataSource by calling the healthsync REST API.
// Used for remote MCP mode where the binary runs locally (stdio) but
// data lives on the device running the sync server (accessed over
// Tailscale).
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

// Compile-time check: HTTPClient satisfies DataSource.
var _ DataSource = (*HTTPClient)(nil)

// NewHTTPClient creates an HTTPClient targeting the given base URL.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *HTTPClient) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("httpclient: create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("httpclient: %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("httpclient: read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("httpclient: %s returned %d: %s", path, resp.StatusCode, body)
	}

	return body, nil
}

func dateParam(name string, t time.Time) url.Values {
	v := url.Values{}
	if !t.IsZero() {
		v.Set(name, t.Format(metrics.DateLayout))
	}
	return v
}

func (c *HTTPClient) DailySnapshot(ctx context.Context, date time.Time) (*metrics.DailySnapshot, error) {
	body, err := c.get(ctx, "/api/v1/daily", dateParam("date", date))
	if err != nil {
		return nil, err
	}

	var snap metrics.DailySnapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		return nil, fmt.Errorf("httpclient: decode daily snapshot: %w", err)
	}
	return &snap, nil
}

func (c *HTTPClient) WeeklyData(ctx context.Context, end time.Time) (*metrics.WeeklyData, error) {
	body, err := c.get(ctx, "/api/v1/weekly", dateParam("end", end))
	if err != nil {
		return nil, err
	}

	var data metrics.WeeklyData
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("httpclient: decode weekly data: %w", err)
	}
	return &data, nil
}

func (c *HTTPClient) ProfileReport(ctx context.Context) (*archive.ProfileReport, error) {
	body, err := c.get(ctx, "/api/v1/archive", nil)
	if err != nil {
		return nil, err
	}

	var report archive.ProfileReport
	if err := json.Unmarshal(body, &report); err != nil {
		return nil, fmt.Errorf("httpclient: decode profile report: %w", err)
	}
	return &report, nil
}

func (c *HTTPClient) WidgetProjection(ctx context.Context, name string) (widget.Projection, error) {
	if name != "hydration" {
		name = "steps"
	}

	body, err := c.get(ctx, "/api/v1/widgets/"+name, nil)
	if err != nil {
		return widget.Projection{}, err
	}

	var proj widget.Projection
	if err := json.Unmarshal(body, &proj); err != nil {
		return widget.Projection{}, fmt.Errorf("httpclient: decode widget projection: %w", err)
	}
	return proj, nil
}

func (c *HTTPClient) Permissions(ctx context.Context) (provider.PermissionState, error) {
	body, err := c.get(ctx, "/api/v1/permissions", nil)
	if err != nil {
		return provider.PermissionState{}, err
	}

	var resp struct {
		Permissions provider.PermissionState `json:"permissions"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return provider.PermissionState{}, fmt.Errorf("httpclient: decode permissions: %w", err)
	}
	return resp.Permissions, nil
}
