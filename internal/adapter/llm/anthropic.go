package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/EGroupware/EGroupware-chatbot-MCP/internal/domain"
)

const anthropicMaxTokens = 4096

// AnthropicClient adapts the Anthropic Messages API to the chat completion
// chunk stream the chat loop consumes. Content block indexes become tool
// call indexes.
type AnthropicClient struct {
	client anthropic.Client
}

// NewAnthropicClient creates a client for the given key and optional base URL.
func NewAnthropicClient(baseURL, apiKey string, timeout time.Duration) *AnthropicClient {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(&http.Client{Timeout: timeout}),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &AnthropicClient{client: anthropic.NewClient(opts...)}
}

// CreateChatCompletion sends a non-streaming request.
func (c *AnthropicClient) CreateChatCompletion(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, error) {
	params := buildAnthropicParams(req)

	message, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic API error: %w", err)
	}

	out := &domain.Message{Role: domain.RoleAssistant}
	for _, block := range message.Content {
		switch block.Type {
		case "text":
			out.Content += block.Text
		case "tool_use":
			out.ToolCalls = append(out.ToolCalls, domain.ToolCall{
				ID:   block.ID,
				Type: "function",
				Function: domain.ToolCallFunction{
					Name:      block.Name,
					Arguments: string(block.Input),
				},
			})
		}
	}

	return &ChatCompletionResponse{
		ID:      message.ID,
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   string(message.Model),
		Choices: []Choice{{Index: 0, Message: out, FinishReason: string(message.StopReason)}},
		Usage: &Usage{
			PromptTokens:     int(message.Usage.InputTokens),
			CompletionTokens: int(message.Usage.OutputTokens),
			TotalTokens:      int(message.Usage.InputTokens + message.Usage.OutputTokens),
		},
	}, nil
}

// CreateChatCompletionStream streams a response, emitting one chunk per text
// delta, tool_use start and input_json delta.
func (c *AnthropicClient) CreateChatCompletionStream(ctx context.Context, req *ChatCompletionRequest, callback StreamCallback) (*Usage, error) {
	params := buildAnthropicParams(req)
	stream := c.client.Messages.NewStreaming(ctx, params)
	defer stream.Close()

	usage := &Usage{}
	for stream.Next() {
		event := stream.Current()

		var delta *Delta
		switch event.Type {
		case "message_start":
			usage.PromptTokens = int(event.Message.Usage.InputTokens)
		case "content_block_start":
			if event.ContentBlock.Type == "tool_use" {
				delta = &Delta{ToolCalls: []ToolCallDelta{{
					Index:    int(event.Index),
					ID:       event.ContentBlock.ID,
					Type:     "function",
					Function: ToolCallFunctionDelta{Name: event.ContentBlock.Name},
				}}}
			}
		case "content_block_delta":
			switch event.Delta.Type {
			case "text_delta":
				if event.Delta.Text != "" {
					delta = &Delta{Content: event.Delta.Text}
				}
			case "input_json_delta":
				if event.Delta.PartialJSON != "" {
					delta = &Delta{ToolCalls: []ToolCallDelta{{
						Index:    int(event.Index),
						Function: ToolCallFunctionDelta{Arguments: event.Delta.PartialJSON},
					}}}
				}
			}
		case "message_delta":
			if event.Usage.OutputTokens > 0 {
				usage.CompletionTokens = int(event.Usage.OutputTokens)
			}
		}

		if delta == nil {
			continue
		}
		chunk := &StreamChunk{
			Object:  "chat.completion.chunk",
			Model:   req.Model,
			Choices: []Choice{{Index: 0, Delta: delta}},
		}
		if err := callback(chunk); err != nil {
			return usage, err
		}
	}

	if err := stream.Err(); err != nil && err != io.EOF {
		return usage, fmt.Errorf("anthropic stream error: %w", err)
	}
	usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
	return usage, nil
}

func buildAnthropicParams(req *ChatCompletionRequest) anthropic.MessageNewParams {
	system, messages := convertMessages(req.Messages)

	maxTokens := int64(anthropicMaxTokens)
	if req.MaxTokens != nil {
		maxTokens = int64(*req.MaxTokens)
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		Messages:  messages,
		MaxTokens: maxTokens,
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	if len(req.Tools) > 0 {
		tools := convertTools(req.Tools)
		unions := make([]anthropic.ToolUnionParam, len(tools))
		for i := range tools {
			unions[i] = anthropic.ToolUnionParam{OfTool: &tools[i]}
		}
		params.Tools = unions
	}
	return params
}

// convertMessages maps the transcript onto Anthropic messages. Consecutive
// entries that map to the same role are merged into one message, since tool
// results travel as user content blocks.
func convertMessages(transcript []domain.Message) (string, []anthropic.MessageParam) {
	var system string
	var out []anthropic.MessageParam

	appendBlocks := func(role anthropic.MessageParamRole, blocks ...anthropic.ContentBlockParamUnion) {
		if len(blocks) == 0 {
			return
		}
		if n := len(out); n > 0 && out[n-1].Role == role {
			out[n-1].Content = append(out[n-1].Content, blocks...)
			return
		}
		if role == anthropic.MessageParamRoleUser {
			out = append(out, anthropic.NewUserMessage(blocks...))
		} else {
			out = append(out, anthropic.NewAssistantMessage(blocks...))
		}
	}

	for _, msg := range transcript {
		switch msg.Role {
		case domain.RoleSystem:
			if system != "" {
				system += "\n\n"
			}
			system += msg.Content
		case domain.RoleUser:
			appendBlocks(anthropic.MessageParamRoleUser, anthropic.NewTextBlock(msg.Content))
		case domain.RoleAssistant:
			var blocks []anthropic.ContentBlockParamUnion
			if msg.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(msg.Content))
			}
			for _, tc := range msg.ToolCalls {
				blocks = append(blocks, anthropic.NewToolUseBlock(tc.ID, toolInput(tc.Function.Arguments), tc.Function.Name))
			}
			appendBlocks(anthropic.MessageParamRoleAssistant, blocks...)
		case domain.RoleTool:
			appendBlocks(anthropic.MessageParamRoleUser, anthropic.NewToolResultBlock(msg.ToolCallID, msg.Content, false))
		}
	}
	return system, out
}

func toolInput(arguments string) interface{} {
	var input map[string]interface{}
	if err := json.Unmarshal([]byte(arguments), &input); err != nil || input == nil {
		return map[string]interface{}{}
	}
	return input
}

func convertTools(defs []domain.ToolDefinition) []anthropic.ToolParam {
	tools := make([]anthropic.ToolParam, 0, len(defs))
	for _, def := range defs {
		tool := anthropic.ToolParam{
			Name:        def.Function.Name,
			Description: anthropic.String(def.Function.Description),
		}

		schemaJSON, _ := json.Marshal(def.Function.Parameters)
		var inputSchema anthropic.ToolInputSchemaParam
		_ = json.Unmarshal(schemaJSON, &inputSchema)
		tool.InputSchema = inputSchema

		tools = append(tools, tool)
	}
	return tools
}
