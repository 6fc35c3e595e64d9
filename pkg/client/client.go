package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// ErrAlreadyRunning matches an APIError for a start rejected because a
// session is active.
var ErrAlreadyRunning = errors.New("already monitoring")

// APIError is a non-200 response from the daemon.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	}
	return "API error: " + e.Message
}

func (e *APIError) Is(target error) bool {
	return target == ErrAlreadyRunning && e.StatusCode == http.StatusConflict
}

// Client provides HTTP client functionality to communicate with the fpsmon daemon
type Client struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// Config holds client configuration
type Config struct {
	BaseURL string
	Timeout time.Duration
	Logger  *slog.Logger // Optional logger for client operations
}

// DefaultConfig returns default client configuration
func DefaultConfig() Config {
	return Config{
		BaseURL: "http://localhost:8080/api",
		Timeout: 10 * time.Second,
	}
}

// New creates a new fpsmon API client
func New(config Config) *Client {
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:8080/api"
	}
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(config.BaseURL, "/"),
		logger:  config.Logger,
		client:  &http.Client{Timeout: config.Timeout},
	}
}

// IsReachable checks if the daemon is running and reachable
func (c *Client) IsReachable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/status", nil)
	if err != nil {
		c.logger.Debug("Failed to create request for reachability check", "error", err)
		return false
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Debug("Daemon unreachable", "error", err)
		return false
	}
	defer func() { _ = resp.Body.Close() }()

	isReachable := resp.StatusCode != http.StatusNotFound
	c.logger.Debug("Daemon reachability check", "reachable", isReachable, "status", resp.StatusCode)
	return isReachable
}

// Start asks the daemon to begin monitoring processName
func (c *Client) Start(ctx context.Context, processName string) error {
	c.logger.Debug("Starting monitoring", "process_name", processName)
	data, err := json.Marshal(StartRequest{ProcessName: processName})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	return c.doRequest(ctx, http.MethodPost, c.baseURL+"/start", data, nil)
}

// Stop asks the daemon to end the current session; succeeds when idle
func (c *Client) Stop(ctx context.Context) error {
	c.logger.Debug("Stopping monitoring")
	return c.doRequest(ctx, http.MethodPost, c.baseURL+"/stop", nil, nil)
}

// Status returns the daemon's session status
func (c *Client) Status(ctx context.Context) (Status, error) {
	var st Status
	if err := c.doRequest(ctx, http.MethodGet, c.baseURL+"/status", nil, &st); err != nil {
		return Status{}, err
	}
	return st, nil
}

// doRequest performs the request and decodes a 200 body into out when non-nil
func (c *Client) doRequest(ctx context.Context, method, url string, body []byte, out any) error {
	var bodyReader *bytes.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	var req *http.Request
	var err error
	if bodyReader != nil {
		req, err = http.NewRequestWithContext(ctx, method, url, bodyReader)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, url, nil)
	}
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Error("HTTP request failed", "error", err, "url", url)
		return fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := c.handleErrorResponse(resp); err != nil {
		return err
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// handleErrorResponse handles HTTP error responses
func (c *Client) handleErrorResponse(resp *http.Response) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}

	var errorResp ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errorResp); err != nil {
		c.logger.Error("Failed to decode error response", "status", resp.StatusCode)
		return &APIError{StatusCode: resp.StatusCode}
	}

	c.logger.Error("API request failed", "error", errorResp.Error, "status", resp.StatusCode)
	return &APIError{StatusCode: resp.StatusCode, Message: errorResp.Error}
}
