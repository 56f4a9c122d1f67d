// Package groupware is an HTTP client for the EGroupware REST and CardDAV
// endpoints used by the assistant's tools.
package groupware

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/EGroupware/EGroupware-chatbot-MCP/internal/domain"
)

// HTTPError is returned when the groupware answers with a non-2xx status.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("groupware responded with status %d: %s", e.StatusCode, e.Body)
}

// Client performs requests on behalf of one user.
type Client struct {
	baseURL    string
	username   string
	password   string
	httpClient *http.Client
}

// NewClient creates a client authenticated with creds.
func NewClient(creds domain.Credentials, timeout time.Duration) *Client {
	return &Client{
		baseURL:  strings.TrimSuffix(creds.BaseURL, "/"),
		username: creds.Username,
		password: creds.Password,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// BaseURL returns the normalized groupware base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Probe checks the credentials by listing one address book entry. It
// reports true only for HTTP 200.
func (c *Client) Probe(ctx context.Context) (bool, error) {
	req, err := c.newRequest(ctx, http.MethodGet, c.baseURL+"/addressbook/?limit=1", nil)
	if err != nil {
		return false, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("failed to reach groupware: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode == http.StatusOK, nil
}

// ProbeAnonymous requests the address book without credentials and returns
// the status code. A 401 means an EGroupware install answered.
func ProbeAnonymous(ctx context.Context, baseURL string, timeout time.Duration) (int, error) {
	target := strings.TrimSuffix(baseURL, "/") + "/addressbook/"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return 0, err
	}
	resp, err := (&http.Client{Timeout: timeout}).Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}

func (c *Client) newRequest(ctx context.Context, method, url string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth(c.username, c.password)
	return req, nil
}

// postJSON sends payload and returns the response body. Non-2xx statuses
// become *HTTPError.
func (c *Client) postJSON(ctx context.Context, url string, payload interface{}, headers map[string]string) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}
	return respBody, nil
}
