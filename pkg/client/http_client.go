package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// HTTPClient represents an HTTP connection to the hapd admin API
type HTTPClient struct {
	logger  *slog.Logger
	baseURL string
	apiKey  string
	client  *http.Client
}

var _ ClientInterface = (*HTTPClient)(nil)

// NewHTTP creates a new HTTP client
func NewHTTP(logger *slog.Logger, baseURL string, apiKey string) *HTTPClient {
	if logger == nil {
		logger = slog.Default()
	}
	// Ensure baseURL doesn't have trailing slash
	baseURL = strings.TrimSuffix(baseURL, "/")

	return &HTTPClient{
		logger:  logger,
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// request performs an HTTP request and decodes the JSON response
func (c *HTTPClient) request(method, path string, body any, resp any) error {
	url := c.baseURL + path
	c.logger.Debug("HTTP request", "method", method, "url", url)

	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(context.Background(), method, url, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	httpResp, err := c.client.Do(req)
	if err != nil {
		c.logger.Debug("HTTP request failed", "error", err)
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if httpResp.StatusCode >= 400 {
		c.logger.Debug("HTTP error response", "status", httpResp.StatusCode, "body", string(respBody))
		return fmt.Errorf("HTTP error %d: %s", httpResp.StatusCode, errorDetail(respBody))
	}

	if resp != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, resp); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// errorDetail pulls the message out of a problem+json body.
func errorDetail(body []byte) string {
	var problem struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &problem) == nil && problem.Detail != "" {
		return problem.Detail
	}
	return strings.TrimSpace(string(body))
}

// GetVersion returns the running daemon's version information.
func (c *HTTPClient) GetVersion() (map[string]any, error) {
	var resp map[string]any
	if err := c.request(http.MethodGet, "/api/v1/version", nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// GetStatus returns the daemon's runtime summary.
func (c *HTTPClient) GetStatus() (*Status, error) {
	var resp Status
	if err := c.request(http.MethodGet, "/api/v1/status", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetAccessories returns every accessory
func (c *HTTPClient) GetAccessories() ([]Accessory, error) {
	var resp []Accessory
	if err := c.request(http.MethodGet, "/api/v1/accessories", nil, &resp); err != nil {
		return nil, err
	}
	if resp == nil {
		return []Accessory{}, nil
	}
	return resp, nil
}

// GetAccessory returns one accessory
func (c *HTTPClient) GetAccessory(aid uint64) (*Accessory, error) {
	var resp Accessory
	if err := c.request(http.MethodGet, "/api/v1/accessories/"+strconv.FormatUint(aid, 10), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SetCharacteristic writes a characteristic value
func (c *HTTPClient) SetCharacteristic(aid, iid uint64, value any) error {
	path := fmt.Sprintf("/api/v1/accessories/%d/characteristics/%d", aid, iid)
	return c.request(http.MethodPut, path, map[string]any{"value": value}, nil)
}

// GetPairings returns the paired controllers
func (c *HTTPClient) GetPairings() ([]Pairing, error) {
	var resp []Pairing
	if err := c.request(http.MethodGet, "/api/v1/pairings", nil, &resp); err != nil {
		return nil, err
	}
	if resp == nil {
		return []Pairing{}, nil
	}
	return resp, nil
}

// RemovePairing unpairs a controller
func (c *HTTPClient) RemovePairing(id string) error {
	return c.request(http.MethodDelete, "/api/v1/pairings/"+url.PathEscape(id), nil, nil)
}

// GetLogLevel returns the daemon's current log level
func (c *HTTPClient) GetLogLevel() (string, error) {
	var resp struct {
		Level string `json:"level"`
	}
	if err := c.request(http.MethodGet, "/api/v1/logging/level", nil, &resp); err != nil {
		return "", err
	}
	return resp.Level, nil
}

// SetLogLevel changes the daemon's log level and returns the level applied
func (c *HTTPClient) SetLogLevel(level string) (string, error) {
	var resp struct {
		Level string `json:"level"`
	}
	if err := c.request(http.MethodPut, "/api/v1/logging/level", map[string]string{"level": level}, &resp); err != nil {
		return "", err
	}
	return resp.Level, nil
}
