package domain

import "encoding/json"

// LoginRequest is the body of POST /token.
type LoginRequest struct {
	Username     string `json:"username"`
	Password     string `json:"password"`
	EGWURL       string `json:"egw_url"`
	AIKey        string `json:"ai_key"`
	IONOSBaseURL string `json:"ionos_base_url,omitempty"`
}

// TokenResponse is returned by a successful login.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// ValidateURLRequest is the body of POST /validate/egroupware-url.
type ValidateURLRequest struct {
	URL string `json:"url"`
}

// ValidateURLResponse reports whether a groupware URL looks reachable.
type ValidateURLResponse struct {
	Valid  bool   `json:"valid"`
	Detail string `json:"detail,omitempty"`
}

// ValidateKeyRequest is the body of POST /validate/ai-key.
type ValidateKeyRequest struct {
	APIKey       string `json:"api_key"`
	IONOSBaseURL string `json:"ionos_base_url,omitempty"`
}

// ValidateKeyResponse reports whether an LLM key works.
type ValidateKeyResponse struct {
	Valid    bool   `json:"valid"`
	Detail   string `json:"detail,omitempty"`
	IsIONOS  bool   `json:"is_ionos"`
	IsGitHub bool   `json:"is_github"`
}

// ChatRequest is one user message sent over the WebSocket chat.
type ChatRequest struct {
	Message string `json:"message"`
}

// ToolExecuteRequest is the body of POST /v1/tools/:tool_name/execute.
type ToolExecuteRequest struct {
	Args json.RawMessage `json:"args"`
}

// ToolExecuteResponse wraps a dispatcher result string.
type ToolExecuteResponse struct {
	Result string `json:"result"`
}
