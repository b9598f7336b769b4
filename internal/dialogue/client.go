package dialogue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client talks to the VOISS interaction backend.
type Client struct {
	HTTPClient *http.Client
	BaseURL    string
}

// NewClient constructs a Client for the given backend base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		BaseURL:    baseURL,
	}
}

// InitializeRequest starts a remote dialogue session.
type InitializeRequest struct {
	ActivityID string `json:"activity_id"`
	SessionID  string `json:"session_id"`
	UserID     string `json:"user_id"`
	UserName   string `json:"user_name"`
}

// ChatRequest sends one user message into an initialized dialogue session.
type ChatRequest struct {
	ActivityID string `json:"activity_id"`
	SessionID  string `json:"session_id"`
	UserID     string `json:"user_id"`
	Message    string `json:"message"`
}

// Initialize forwards a raw JSON body to the initialize endpoint and returns
// the upstream status code and body unchanged.
func (c *Client) Initialize(ctx context.Context, body []byte) (int, []byte, error) {
	return c.post(ctx, "/api/interactions/initialize", body)
}

// Chat forwards a raw JSON body to the chat endpoint and returns the upstream
// status code and body unchanged.
func (c *Client) Chat(ctx context.Context, body []byte) (int, []byte, error) {
	return c.post(ctx, "/api/interactions/chat", body)
}

// InitializeSession marshals the request and fails on a non-success status,
// carrying the upstream status and body in the error text.
func (c *Client) InitializeSession(ctx context.Context, req InitializeRequest) ([]byte, error) {
	buf, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	status, body, err := c.Initialize(ctx, buf)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("voiss init failed: status=%d body=%s", status, string(body))
	}
	return body, nil
}

// ChatSession marshals the request and fails on a non-success status.
func (c *Client) ChatSession(ctx context.Context, req ChatRequest) ([]byte, error) {
	buf, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	status, body, err := c.Chat(ctx, buf)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("voiss chat failed: status=%d body=%s", status, string(body))
	}
	return body, nil
}

func (c *Client) post(ctx context.Context, path string, body []byte) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("voiss request failed: %w", err)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, b, nil
}
