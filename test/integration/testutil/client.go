package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"
)

type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Envelope covers both the success and the error bodies the services write.
type Envelope struct {
	Data   json.RawMessage `json:"data"`
	Error  string          `json:"error"`
	Code   string          `json:"code"`
	Reason string          `json:"reason"`
}

func (r *Response) Decode(t *testing.T, target any) {
	t.Helper()
	var env Envelope
	if err := json.Unmarshal(r.Body, &env); err != nil {
		t.Fatalf("failed to unmarshal response: %v. Body: %s", err, r.Body)
	}
	if err := json.Unmarshal(env.Data, target); err != nil {
		t.Fatalf("failed to unmarshal data: %v. Body: %s", err, r.Body)
	}
}

// Reason returns the conflict reason of an error response, or "".
func (r *Response) Reason() string {
	var env Envelope
	if err := json.Unmarshal(r.Body, &env); err != nil {
		return ""
	}
	return env.Reason
}

func (c *Client) GET(t *testing.T, path string) *Response {
	t.Helper()
	return c.Do(t, http.MethodGet, path, nil, nil)
}

func (c *Client) POST(t *testing.T, path string, body any, headers map[string]string) *Response {
	t.Helper()
	return c.Do(t, http.MethodPost, path, body, headers)
}

func (c *Client) PATCH(t *testing.T, path string, body any) *Response {
	t.Helper()
	return c.Do(t, http.MethodPatch, path, body, nil)
}

func (c *Client) PUT(t *testing.T, path string, body any) *Response {
	t.Helper()
	return c.Do(t, http.MethodPut, path, body, nil)
}

// Do uses t.Errorf rather than t.Fatalf so it is safe from worker goroutines.
func (c *Client) Do(t *testing.T, method, path string, body any, headers map[string]string) *Response {
	t.Helper()

	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			t.Errorf("failed to marshal request body: %v", err)
			return &Response{}
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(context.Background(), method, c.BaseURL+path, reqBody)
	if err != nil {
		t.Errorf("failed to create request: %v", err)
		return &Response{}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		t.Errorf("request failed: %v", err)
		return &Response{}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Errorf("failed to read response body: %v", err)
	}
	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: respBody}
}

func (c *Client) WaitForHealthy(t *testing.T, maxWait time.Duration) {
	t.Helper()

	deadline := time.Now().Add(maxWait)
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for time.Now().Before(deadline) {
		resp, err := c.HTTPClient.Get(c.BaseURL + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		<-ticker.C
	}

	t.Fatalf("service did not become healthy within %v", maxWait)
}

func AssertStatusCode(t *testing.T, resp *Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Fatalf("expected status %d, got %d. Body: %s", expected, resp.StatusCode, string(resp.Body))
	}
}
