package llm

import (
	"strings"
	"time"

	"github.com/EGroupware/EGroupware-chatbot-MCP/internal/apperr"
	"github.com/EGroupware/EGroupware-chatbot-MCP/internal/domain"
	"github.com/EGroupware/EGroupware-chatbot-MCP/internal/log"
)

// Provider defaults.
const (
	OpenAIBaseURL    = "https://api.openai.com/v1"
	GitHubBaseURL    = "https://models.github.ai/inference"
	AnthropicBaseURL = "https://api.anthropic.com"

	OpenAIModel    = "gpt-3.5-turbo"
	GitHubModel    = "openai/gpt-4o-mini"
	IONOSModel     = "meta-llama/Llama-3.3-70B-Instruct"
	AnthropicModel = "claude-3-5-haiku-latest"
)

// ErrMsgIONOSBaseURL is returned when an IONOS key comes without a base URL.
const ErrMsgIONOSBaseURL = "IONOS base URL is required for IONOS API keys"

// KindForKey classifies an API key by its prefix.
func KindForKey(apiKey string) domain.ProviderKind {
	switch {
	case strings.HasPrefix(apiKey, "sk-ant-"):
		return domain.ProviderAnthropic
	case strings.HasPrefix(apiKey, "sk-"):
		return domain.ProviderOpenAI
	case strings.HasPrefix(apiKey, "gh"):
		return domain.ProviderGitHub
	default:
		return domain.ProviderIONOS
	}
}

// ResolveProvider turns a key and optional base URL into the provider record
// stored in the session. It makes no network call.
func ResolveProvider(apiKey, baseURL string) (domain.ProviderConfig, error) {
	if apiKey == "" {
		return domain.ProviderConfig{}, apperr.New(apperr.ErrCodeProviderConfig, "API key is required", nil)
	}

	kind := KindForKey(apiKey)
	cfg := domain.ProviderConfig{Kind: kind, APIKey: apiKey}

	switch kind {
	case domain.ProviderAnthropic:
		cfg.BaseURL = AnthropicBaseURL
		cfg.Model = AnthropicModel
	case domain.ProviderOpenAI:
		cfg.BaseURL = OpenAIBaseURL
		cfg.Model = OpenAIModel
	case domain.ProviderGitHub:
		cfg.BaseURL = GitHubBaseURL
		cfg.Model = GitHubModel
		cfg.IncludeUsage = true
	case domain.ProviderIONOS:
		if baseURL == "" {
			return domain.ProviderConfig{}, apperr.New(apperr.ErrCodeProviderConfig, ErrMsgIONOSBaseURL, nil)
		}
		cfg.BaseURL = strings.TrimSuffix(baseURL, "/")
		cfg.Model = IONOSModel
	}
	return cfg, nil
}

// FactoryFunc builds a client for a resolved provider.
type FactoryFunc func(cfg domain.ProviderConfig) (Client, error)

// NewFactory returns the production FactoryFunc. When mock is set every
// provider is served by a MockClient.
func NewFactory(timeout time.Duration, mock bool) FactoryFunc {
	if mock {
		log.Info("LLM_MODE=MOCK detected, using mock LLM client")
		return func(domain.ProviderConfig) (Client, error) {
			return NewMockClient(), nil
		}
	}
	return func(cfg domain.ProviderConfig) (Client, error) {
		return NewClient(cfg, timeout)
	}
}

// NewClient creates the client for cfg.
func NewClient(cfg domain.ProviderConfig, timeout time.Duration) (Client, error) {
	switch cfg.Kind {
	case domain.ProviderAnthropic:
		return NewAnthropicClient(cfg.BaseURL, cfg.APIKey, timeout), nil
	case domain.ProviderOpenAI, domain.ProviderGitHub, domain.ProviderIONOS:
		if cfg.BaseURL == "" {
			return nil, apperr.New(apperr.ErrCodeProviderConfig, "provider base URL is not configured", nil)
		}
		return NewOpenAIClient(cfg.BaseURL, cfg.APIKey, cfg.Headers, timeout), nil
	default:
		return nil, apperr.New(apperr.ErrCodeProviderConfig, "unknown provider kind: "+string(cfg.Kind), nil)
	}
}
