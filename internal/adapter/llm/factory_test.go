package llm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EGroupware/EGroupware-chatbot-MCP/internal/apperr"
	"github.com/EGroupware/EGroupware-chatbot-MCP/internal/domain"
)

func TestResolveProvider(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		baseURL string
		kind    domain.ProviderKind
		url     string
		model   string
	}{
		{"openai", "sk-abc", "", domain.ProviderOpenAI, OpenAIBaseURL, OpenAIModel},
		{"anthropic", "sk-ant-abc", "", domain.ProviderAnthropic, AnthropicBaseURL, AnthropicModel},
		{"github", "ghp_abc", "", domain.ProviderGitHub, GitHubBaseURL, GitHubModel},
		{"ionos", "eyJhbGciOi", "https://openai.inference.de-txl.ionos.com/v1/", domain.ProviderIONOS, "https://openai.inference.de-txl.ionos.com/v1", IONOSModel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := ResolveProvider(tt.key, tt.baseURL)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, cfg.Kind)
			assert.Equal(t, tt.url, cfg.BaseURL)
			assert.Equal(t, tt.model, cfg.Model)
			assert.Equal(t, tt.key, cfg.APIKey)
		})
	}
}

func TestResolveProviderGitHubIncludesUsage(t *testing.T) {
	cfg, err := ResolveProvider("gho_123", "")
	require.NoError(t, err)
	assert.True(t, cfg.IncludeUsage)
}

func TestResolveProviderIONOSRequiresBaseURL(t *testing.T) {
	_, err := ResolveProvider("ionos-token", "")
	require.Error(t, err)
	assert.Equal(t, apperr.ErrCodeProviderConfig, apperr.CodeOf(err))
	assert.Equal(t, ErrMsgIONOSBaseURL, apperr.MessageOf(err))
}

func TestResolveProviderEmptyKey(t *testing.T) {
	_, err := ResolveProvider("", "")
	assert.Error(t, err)
}

func TestNewClientByKind(t *testing.T) {
	openai, err := NewClient(domain.ProviderConfig{Kind: domain.ProviderIONOS, BaseURL: "http://x"}, time.Second)
	require.NoError(t, err)
	assert.IsType(t, &OpenAIClient{}, openai)

	anthropic, err := NewClient(domain.ProviderConfig{Kind: domain.ProviderAnthropic, APIKey: "sk-ant-x"}, time.Second)
	require.NoError(t, err)
	assert.IsType(t, &AnthropicClient{}, anthropic)

	_, err = NewClient(domain.ProviderConfig{Kind: "nope"}, time.Second)
	assert.Error(t, err)
}

func TestNewFactoryMock(t *testing.T) {
	factory := NewFactory(time.Second, true)
	client, err := factory(domain.ProviderConfig{Kind: domain.ProviderOpenAI})
	require.NoError(t, err)
	assert.IsType(t, &MockClient{}, client)
}
