package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"github.com/EGroupware/EGroupware-chatbot-MCP/internal/domain"
)

func writeEvent(t *testing.T, w http.ResponseWriter, ev domain.ChatEvent) {
	data, err := json.Marshal(ev)
	require.NoError(t, err)
	fmt.Fprintf(w, "data: %s\n\n", data)
	w.(http.Flusher).Flush()
}

func TestChatSSE(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat", r.URL.Path)
		assert.Equal(t, "hello world", r.URL.Query().Get("message"))
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		writeEvent(t, w, domain.ChatEvent{Type: domain.ChatEventToken, Content: "Hi "})
		writeEvent(t, w, domain.ChatEvent{Type: domain.ChatEventToolCall, ToolName: "list_events"})
		writeEvent(t, w, domain.ChatEvent{Type: domain.ChatEventToolResult, ToolName: "list_events", Result: "[]"})
		writeEvent(t, w, domain.ChatEvent{Type: domain.ChatEventToken, Content: "there"})
		fmt.Fprint(w, "event: end\ndata: {}\n\n")
		w.(http.Flusher).Flush()
	}))
	defer server.Close()

	var got []domain.ChatEvent
	err := NewClient(server.URL, "tok").ChatSSE(t.Context(), "hello world", func(ev domain.ChatEvent) {
		got = append(got, ev)
	})
	require.NoError(t, err)
	require.Len(t, got, 4)
	assert.Equal(t, domain.ChatEventToolCall, got[1].Type)
	assert.Equal(t, "there", got[3].Content)
}

func TestChatSSEUnauthorized(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"detail":"Could not validate credentials"}`)
	}))
	defer server.Close()

	err := NewClient(server.URL, "bad").ChatSSE(t.Context(), "hi", func(domain.ChatEvent) {})
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "Could not validate credentials", apiErr.Detail)
	assert.Equal(t, 1, calls)
}

func TestChatWS(t *testing.T) {
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ws", r.URL.Path)
		assert.Equal(t, "tok", r.URL.Query().Get("token"))
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		var req domain.ChatRequest
		require.NoError(t, conn.ReadJSON(&req))
		assert.Equal(t, "ping", req.Message)

		_ = conn.WriteJSON(domain.ChatEvent{Type: domain.ChatEventToken, Content: "pong"})
		_ = conn.WriteJSON(domain.ChatEvent{Type: domain.ChatEventEnd})
		_, _, _ = conn.ReadMessage()
	}))
	defer server.Close()

	var got []domain.ChatEvent
	err := NewClient(server.URL, "tok").ChatWS(t.Context(), "ping", func(ev domain.ChatEvent) {
		got = append(got, ev)
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "pong", got[0].Content)
}

func TestLoginDetailError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"detail":"Invalid EGroupware URL or credentials."}`)
	}))
	defer server.Close()

	_, err := NewClient(server.URL, "").Login(t.Context(), domain.LoginRequest{Username: "a"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid EGroupware URL or credentials.")
}

func TestWebsocketURL(t *testing.T) {
	u, err := websocketURL("https://chat.example.com/base/", "a b")
	require.NoError(t, err)
	assert.Equal(t, "wss://chat.example.com/base/ws?token=a+b", u)

	u, err = websocketURL("http://localhost:8000", "t")
	require.NoError(t, err)
	assert.Equal(t, "ws://localhost:8000/ws?token=t", u)
}

func TestTokenStorage(t *testing.T) {
	keyring.MockInit()

	_, err := loadToken("http://localhost:8000")
	assert.Error(t, err)

	require.NoError(t, saveToken("http://localhost:8000", "tok"))
	token, err := loadToken("http://localhost:8000")
	require.NoError(t, err)
	assert.Equal(t, "tok", token)

	require.NoError(t, deleteToken("http://localhost:8000"))
	require.NoError(t, deleteToken("http://localhost:8000"))
	_, err = loadToken("http://localhost:8000")
	assert.Error(t, err)
}
