package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/r3labs/sse/v2"
	"gopkg.in/cenkalti/backoff.v1"

	"github.com/EGroupware/EGroupware-chatbot-MCP/internal/domain"
)

// Client talks to the chat service API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a client for baseURL. token may be empty for the
// unauthenticated endpoints.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// APIError is a non-2xx response carrying the server's detail message.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Detail)
}

func decodeAPIError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	var payload struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || payload.Detail == "" {
		payload.Detail = strings.TrimSpace(string(body))
	}
	return &APIError{StatusCode: resp.StatusCode, Detail: payload.Detail}
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Login exchanges credentials for an access token.
func (c *Client) Login(ctx context.Context, req domain.LoginRequest) (string, error) {
	var resp domain.TokenResponse
	if err := c.do(ctx, http.MethodPost, "/token", req, &resp); err != nil {
		return "", err
	}
	return resp.AccessToken, nil
}

// Logout ends the server-side session.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/logout", nil, nil)
}

// Tools lists the tool definitions offered to the model.
func (c *Client) Tools(ctx context.Context) ([]domain.ToolDefinition, error) {
	var defs []domain.ToolDefinition
	if err := c.do(ctx, http.MethodGet, "/v1/tools", nil, &defs); err != nil {
		return nil, err
	}
	return defs, nil
}

// ChatSSE sends message over the server-sent events endpoint and calls
// onEvent for every event until the end marker. The stream is never
// reconnected since that would resend the message.
func (c *Client) ChatSSE(ctx context.Context, message string, onEvent func(domain.ChatEvent)) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stream := sse.NewClient(c.baseURL + "/chat?" + url.Values{"message": {message}}.Encode())
	stream.Headers["Authorization"] = "Bearer " + c.token
	stream.ReconnectStrategy = &backoff.StopBackOff{}
	stream.ResponseValidator = func(_ *sse.Client, resp *http.Response) error {
		if resp.StatusCode == http.StatusOK {
			return nil
		}
		defer resp.Body.Close()
		return decodeAPIError(resp)
	}

	ended := false
	err := stream.SubscribeRawWithContext(ctx, func(msg *sse.Event) {
		if ended {
			return
		}
		if string(msg.Event) == string(domain.ChatEventEnd) {
			ended = true
			cancel()
			return
		}
		var ev domain.ChatEvent
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			return
		}
		onEvent(ev)
	})
	if ended {
		return nil
	}
	if err == nil {
		return errors.New("stream closed before the end event")
	}
	return err
}

// ChatWS sends message over the WebSocket endpoint and calls onEvent for
// every event until the end marker.
func (c *Client) ChatWS(ctx context.Context, message string, onEvent func(domain.ChatEvent)) error {
	wsURL, err := websocketURL(c.baseURL, c.token)
	if err != nil {
		return err
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		if resp != nil {
			defer resp.Body.Close()
			return decodeAPIError(resp)
		}
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	if err := conn.WriteJSON(domain.ChatRequest{Message: message}); err != nil {
		return fmt.Errorf("write message: %w", err)
	}

	for {
		var ev domain.ChatEvent
		if err := conn.ReadJSON(&ev); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read event: %w", err)
		}
		if ev.Type == domain.ChatEventEnd {
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return nil
		}
		onEvent(ev)
	}
}

func websocketURL(baseURL, token string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid server URL: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	u.RawQuery = url.Values{"token": {token}}.Encode()
	return u.String(), nil
}
