package domain

import (
	"encoding/json"
	"time"
)

// Turn is one user message and everything the assistant did in response.
type Turn struct {
	TurnID    string          `json:"turn_id"`
	Username  string          `json:"username"`
	Message   string          `json:"message"`
	Status    TurnStatus      `json:"status"`
	StartedAt time.Time       `json:"started_at"`
	EndedAt   *time.Time      `json:"ended_at,omitempty"`
	Error     json.RawMessage `json:"error,omitempty"`
}

// Event represents an audit event recorded during a turn.
type Event struct {
	EventID string          `json:"event_id"`
	TurnID  string          `json:"turn_id"`
	Ts      int64           `json:"ts"` // Unix milliseconds
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ChatEvent is what the chat client receives while a turn runs.
type ChatEvent struct {
	Type     ChatEventType `json:"type"`
	Content  string        `json:"content,omitempty"`
	ToolName string        `json:"tool_name,omitempty"`
	Result   string        `json:"result,omitempty"`
	Message  string        `json:"message,omitempty"`
}
