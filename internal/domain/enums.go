// Package domain defines the core domain models for the chat service.
package domain

// Role tags a transcript entry.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ProviderKind identifies the LLM provider a session talks to. It is
// resolved once at login and carried in the session record.
type ProviderKind string

const (
	ProviderOpenAI    ProviderKind = "openai"
	ProviderGitHub    ProviderKind = "github"
	ProviderIONOS     ProviderKind = "ionos"
	ProviderAnthropic ProviderKind = "anthropic"
)

// ChatEventType is the "type" field of an event sent to the chat client.
type ChatEventType string

const (
	ChatEventToken      ChatEventType = "token"
	ChatEventToolCall   ChatEventType = "tool_call"
	ChatEventToolResult ChatEventType = "tool_result"
	ChatEventError      ChatEventType = "error"
	ChatEventEnd        ChatEventType = "end"
)

// TurnStatus represents the status of a chat turn.
type TurnStatus string

const (
	TurnStatusRunning TurnStatus = "RUNNING"
	TurnStatusDone    TurnStatus = "DONE"
	TurnStatusFailed  TurnStatus = "FAILED"
)

// EventType represents the type of an audit event.
type EventType string

const (
	EventTypeTurnStarted    EventType = "turn_started"
	EventTypeUserInput      EventType = "user_input"
	EventTypeLLMCallStarted EventType = "llm_call_started"
	EventTypeLLMCallDone    EventType = "llm_call_done"
	EventTypeToolCall       EventType = "tool_call"
	EventTypePolicyDecision EventType = "policy_decision"
	EventTypeToolResult     EventType = "tool_result"
	EventTypeTurnDone       EventType = "turn_done"
	EventTypeTurnFailed     EventType = "turn_failed"
)

// ToolCallStatus represents the status of an audited tool call.
type ToolCallStatus string

const (
	ToolCallStatusRunning   ToolCallStatus = "RUNNING"
	ToolCallStatusSucceeded ToolCallStatus = "SUCCEEDED"
	ToolCallStatusFailed    ToolCallStatus = "FAILED"
	ToolCallStatusBlocked   ToolCallStatus = "BLOCKED"
)
