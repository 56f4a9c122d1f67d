package llm

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/EGroupware/EGroupware-chatbot-MCP/internal/domain"
)

// MockClient replays scripted streams. Each call to
// CreateChatCompletionStream consumes the next script; once the scripts are
// used up it echoes the last user message.
type MockClient struct {
	mu       sync.Mutex
	scripts  [][]*StreamChunk
	errs     []error
	requests []ChatCompletionRequest
}

// NewMockClient creates a mock client with the given stream scripts.
func NewMockClient(scripts ...[]*StreamChunk) *MockClient {
	return &MockClient{scripts: scripts}
}

// FailNext makes the next streaming call return err before any chunk.
func (m *MockClient) FailNext(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs = append(m.errs, err)
}

// Requests returns copies of the requests received so far.
func (m *MockClient) Requests() []ChatCompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ChatCompletionRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

func (m *MockClient) record(req *ChatCompletionRequest) {
	snapshot := *req
	snapshot.Messages = append([]domain.Message(nil), req.Messages...)
	m.requests = append(m.requests, snapshot)
}

// CreateChatCompletion returns a mock response.
func (m *MockClient) CreateChatCompletion(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, error) {
	m.mu.Lock()
	m.record(req)
	m.mu.Unlock()

	return &ChatCompletionResponse{
		ID:      fmt.Sprintf("mock-chatcmpl-%d", time.Now().UnixNano()),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   req.Model,
		Choices: []Choice{{
			Index:        0,
			Message:      &domain.Message{Role: domain.RoleAssistant, Content: echoResponse(req)},
			FinishReason: "stop",
		}},
	}, nil
}

// CreateChatCompletionStream plays the next script through callback.
func (m *MockClient) CreateChatCompletionStream(ctx context.Context, req *ChatCompletionRequest, callback StreamCallback) (*Usage, error) {
	m.mu.Lock()
	m.record(req)
	if len(m.errs) > 0 {
		err := m.errs[0]
		m.errs = m.errs[1:]
		m.mu.Unlock()
		return nil, err
	}
	var script []*StreamChunk
	if len(m.scripts) > 0 {
		script = m.scripts[0]
		m.scripts = m.scripts[1:]
	} else {
		script = TextChunks(echoResponse(req), 10)
	}
	m.mu.Unlock()

	for _, chunk := range script {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		if err := callback(chunk); err != nil {
			return nil, err
		}
	}
	return &Usage{}, nil
}

// TextChunk builds a chunk carrying assistant text.
func TextChunk(text string) *StreamChunk {
	return &StreamChunk{Object: "chat.completion.chunk", Choices: []Choice{{Delta: &Delta{Content: text}}}}
}

// ToolCallChunk builds a chunk carrying one tool call fragment.
func ToolCallChunk(index int, id, name, arguments string) *StreamChunk {
	return &StreamChunk{Object: "chat.completion.chunk", Choices: []Choice{{Delta: &Delta{
		ToolCalls: []ToolCallDelta{{
			Index:    index,
			ID:       id,
			Function: ToolCallFunctionDelta{Name: name, Arguments: arguments},
		}},
	}}}}
}

// TextChunks splits s into text chunks of roughly size bytes.
func TextChunks(s string, size int) []*StreamChunk {
	var chunks []*StreamChunk
	for i := 0; i < len(s); i += size {
		end := i + size
		if end > len(s) {
			end = len(s)
		}
		chunks = append(chunks, TextChunk(s[i:end]))
	}
	return chunks
}

func echoResponse(req *ChatCompletionRequest) string {
	var lastUserMessage string
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == domain.RoleUser {
			lastUserMessage = req.Messages[i].Content
			break
		}
	}
	if lastUserMessage == "" {
		return "[MOCK] This is a mock response from the LLM client."
	}
	return fmt.Sprintf("[MOCK] Received your message: %q. This is a mock response.", truncate(lastUserMessage, 100))
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
