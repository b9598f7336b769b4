package avatar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client talks to the streaming-avatar REST API.
type Client struct {
	HTTPClient *http.Client
	BaseURL    string
	APIKey     string
}

// NewClient constructs a Client for the given backend base URL.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
		BaseURL:    baseURL,
		APIKey:     apiKey,
	}
}

type tokenResponse struct {
	Data struct {
		Token string `json:"token"`
	} `json:"data"`
}

// CreateToken fetches a short-lived session access token.
func (c *Client) CreateToken(ctx context.Context) (string, error) {
	if c.APIKey == "" {
		return "", fmt.Errorf("heygen api key missing")
	}
	var tr tokenResponse
	if err := c.postJSON(ctx, "/v1/streaming.create_token", c.APIKey, nil, &tr); err != nil {
		return "", err
	}
	if tr.Data.Token == "" {
		return "", fmt.Errorf("heygen: empty token in response")
	}
	return tr.Data.Token, nil
}

// NewSession constructs an inactive session bound to an access token.
func (c *Client) NewSession(token string) *Session {
	return newSession(c, token)
}

// postJSON posts body (nil allowed) to path and decodes the response into out
// when out is non-nil. The auth argument is sent as a bearer token, except for
// the token mint endpoint which uses the account API key header.
func (c *Client) postJSON(ctx context.Context, path, auth string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if path == "/v1/streaming.create_token" {
		req.Header.Set("X-Api-Key", auth)
	} else {
		req.Header.Set("Authorization", "Bearer "+auth)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("heygen error: status=%d body=%s", resp.StatusCode, string(b))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
