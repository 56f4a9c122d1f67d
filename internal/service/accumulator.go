package service

import (
	"github.com/EGroupware/EGroupware-chatbot-MCP/internal/adapter/llm"
	"github.com/EGroupware/EGroupware-chatbot-MCP/internal/domain"
)

// ToolCallAccumulator merges streamed tool-call fragments into complete
// calls. Fragments are keyed by index: a non-empty id or name replaces the
// stored one, argument text is appended. Calls keep the order in which their
// index was first seen.
type ToolCallAccumulator struct {
	calls map[int]*domain.ToolCall
	order []int
}

// NewToolCallAccumulator creates an empty accumulator for one completion.
func NewToolCallAccumulator() *ToolCallAccumulator {
	return &ToolCallAccumulator{calls: make(map[int]*domain.ToolCall)}
}

// Add merges one fragment.
func (a *ToolCallAccumulator) Add(delta llm.ToolCallDelta) {
	call, ok := a.calls[delta.Index]
	if !ok {
		call = &domain.ToolCall{Type: "function"}
		a.calls[delta.Index] = call
		a.order = append(a.order, delta.Index)
	}
	if delta.ID != "" {
		call.ID = delta.ID
	}
	if delta.Function.Name != "" {
		call.Function.Name = delta.Function.Name
	}
	call.Function.Arguments += delta.Function.Arguments
}

// Len returns the number of distinct calls seen.
func (a *ToolCallAccumulator) Len() int {
	return len(a.order)
}

// Calls returns the finalized calls in first-seen order.
func (a *ToolCallAccumulator) Calls() []domain.ToolCall {
	out := make([]domain.ToolCall, 0, len(a.order))
	for _, idx := range a.order {
		out = append(out, *a.calls[idx])
	}
	return out
}
