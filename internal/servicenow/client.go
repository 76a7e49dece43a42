// ABOUTME: Minimal ServiceNow Table API client used by the gateway tools.
// ABOUTME: Supports basic auth or bearer token, resolved once at startup.

package servicenow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/crestline/snowgate/internal/config"
)

// Record is one row returned by the Table API.
type Record map[string]any

// Client talks to a single ServiceNow instance via the Table REST API
// (/api/now/table/<table>). Credentials are fixed at construction.
type Client struct {
	baseURL    string
	username   string
	password   string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a Table API client from the resolved configuration.
func NewClient(cfg config.ServiceNowConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.InstanceURL, "/"),
		username:   cfg.Username,
		password:   cfg.Password,
		token:      cfg.Token,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

// tableResult is the envelope the Table API wraps every response in.
type tableResult struct {
	Result json.RawMessage `json:"result"`
}

// apiError is the error body ServiceNow returns on non-2xx responses.
type apiError struct {
	Error struct {
		Message string `json:"message"`
		Detail  string `json:"detail"`
	} `json:"error"`
}

// ListRecords queries a table. The query uses ServiceNow's encoded query
// syntax (sysparm_query); limit caps the number of returned rows.
func (c *Client) ListRecords(ctx context.Context, table, query string, limit int) ([]Record, error) {
	params := url.Values{}
	if query != "" {
		params.Set("sysparm_query", query)
	}
	if limit > 0 {
		params.Set("sysparm_limit", fmt.Sprintf("%d", limit))
	}
	params.Set("sysparm_display_value", "true")

	raw, err := c.do(ctx, http.MethodGet, "/api/now/table/"+url.PathEscape(table), params, nil)
	if err != nil {
		return nil, err
	}

	var records []Record
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("decoding table result: %w", err)
	}
	return records, nil
}

// GetRecord fetches a single row by sys_id.
func (c *Client) GetRecord(ctx context.Context, table, sysID string) (Record, error) {
	path := "/api/now/table/" + url.PathEscape(table) + "/" + url.PathEscape(sysID)
	params := url.Values{}
	params.Set("sysparm_display_value", "true")

	raw, err := c.do(ctx, http.MethodGet, path, params, nil)
	if err != nil {
		return nil, err
	}

	var record Record
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("decoding record: %w", err)
	}
	return record, nil
}

// CreateRecord inserts a row and returns the created record.
func (c *Client) CreateRecord(ctx context.Context, table string, fields map[string]any) (Record, error) {
	raw, err := c.do(ctx, http.MethodPost, "/api/now/table/"+url.PathEscape(table), nil, fields)
	if err != nil {
		return nil, err
	}

	var record Record
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("decoding created record: %w", err)
	}
	return record, nil
}

// UpdateRecord patches a row by sys_id and returns the updated record.
func (c *Client) UpdateRecord(ctx context.Context, table, sysID string, fields map[string]any) (Record, error) {
	path := "/api/now/table/" + url.PathEscape(table) + "/" + url.PathEscape(sysID)

	raw, err := c.do(ctx, http.MethodPatch, path, nil, fields)
	if err != nil {
		return nil, err
	}

	var record Record
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("decoding updated record: %w", err)
	}
	return record, nil
}

// do performs one API request and unwraps the result envelope.
func (c *Client) do(ctx context.Context, method, path string, params url.Values, body any) (json.RawMessage, error) {
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	} else {
		req.SetBasicAuth(c.username, c.password)
	}

	c.logger.Debug("servicenow request", "method", method, "path", path)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("servicenow request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<22))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr apiError
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error.Message != "" {
			return nil, fmt.Errorf("servicenow API error (status %d): %s", resp.StatusCode, apiErr.Error.Message)
		}
		return nil, fmt.Errorf("servicenow API error: status %d", resp.StatusCode)
	}

	var envelope tableResult
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("decoding response envelope: %w", err)
	}
	return envelope.Result, nil
}
