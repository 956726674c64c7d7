package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/claude/healthsync/internal/metrics"
)

// BridgeSDK implements SDK against a device-local health bridge
// exposing the platform store over REST. The bridge runs next to the
// platform health service; this process talks to it over HTTP.
type BridgeSDK struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Compile-time check: BridgeSDK satisfies SDK.
var _ SDK = (*BridgeSDK)(nil)

// NewBridgeSDK creates a BridgeSDK targeting the given base URL.
func NewBridgeSDK(baseURL, apiKey string) *BridgeSDK {
	return &BridgeSDK{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *BridgeSDK) do(ctx context.Context, method, path string, params url.Values, body any) ([]byte, error) {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("bridge: marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return nil, fmt.Errorf("bridge: create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("bridge: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("bridge: read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("bridge: %s %s: %w", method, path, ErrPermissionDenied)
	case resp.StatusCode == http.StatusServiceUnavailable:
		return nil, fmt.Errorf("bridge: %s %s: %w", method, path, ErrPlatformUnavailable)
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("bridge: %s %s: status %d: %s", method, path, resp.StatusCode, data)
	}
	return data, nil
}

func (c *BridgeSDK) Initialize(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodPost, "/v1/initialize", nil, nil)
	return err
}

func (c *BridgeSDK) AvailabilityStatus(ctx context.Context) Availability {
	data, err := c.do(ctx, http.MethodGet, "/v1/status", nil, nil)
	if err != nil {
		return StatusUnavailable
	}
	var resp struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return StatusUnavailable
	}
	switch resp.Status {
	case "available":
		return StatusAvailable
	case "update_required":
		return StatusUpdateRequired
	default:
		return StatusUnavailable
	}
}

func (c *BridgeSDK) RequestPermission(ctx context.Context, scopes []Scope) ([]Scope, error) {
	body := struct {
		Scopes []Scope `json:"scopes"`
	}{Scopes: scopes}

	data, err := c.do(ctx, http.MethodPost, "/v1/permissions", nil, body)
	if err != nil {
		return nil, err
	}
	var resp struct {
		Granted []Scope `json:"granted"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("bridge: parse permission response: %w", err)
	}
	return resp.Granted, nil
}

func (c *BridgeSDK) ReadRecords(ctx context.Context, kind metrics.Kind, start, end time.Time) ([]metrics.Record, error) {
	params := url.Values{}
	params.Set("kind", string(kind))
	params.Set("start", start.UTC().Format(time.RFC3339))
	params.Set("end", end.UTC().Format(time.RFC3339))

	data, err := c.do(ctx, http.MethodGet, "/v1/records", params, nil)
	if err != nil {
		return nil, err
	}
	var recs []metrics.Record
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, fmt.Errorf("bridge: parse records: %w", err)
	}
	return recs, nil
}

func (c *BridgeSDK) InsertRecords(ctx context.Context, recs []metrics.Record) error {
	_, err := c.do(ctx, http.MethodPost, "/v1/records", nil, recs)
	return err
}

func (c *BridgeSDK) OpenSettings(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodPost, "/v1/settings/open", nil, nil)
	return err
}
