package domain

import "time"

// Credentials are the groupware login of a user. They stay in process memory.
type Credentials struct {
	Username string
	Password string
	BaseURL  string
}

// ProviderConfig is the resolved LLM endpoint for a session.
type ProviderConfig struct {
	Kind    ProviderKind `json:"kind"`
	APIKey  string       `json:"-"`
	BaseURL string       `json:"base_url"`
	Model   string       `json:"model"`
	// IncludeUsage asks the provider to append a usage chunk to streams.
	IncludeUsage bool              `json:"include_usage,omitempty"`
	Headers      map[string]string `json:"-"`
}

// Session is the per-user state held between chat turns.
type Session struct {
	Username    string
	Credentials Credentials
	Provider    ProviderConfig
	Transcript  []Message
	CreatedAt   time.Time
	LastActive  time.Time
}
