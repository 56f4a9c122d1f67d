// Package service implements the chat assistant: login and validation, the
// streaming chat turn, tool dispatch and session housekeeping.
package service

import (
	"context"
	"time"

	"github.com/EGroupware/EGroupware-chatbot-MCP/internal/adapter/groupware"
	"github.com/EGroupware/EGroupware-chatbot-MCP/internal/adapter/llm"
	"github.com/EGroupware/EGroupware-chatbot-MCP/internal/auth"
	"github.com/EGroupware/EGroupware-chatbot-MCP/internal/config"
	"github.com/EGroupware/EGroupware-chatbot-MCP/internal/domain"
	"github.com/EGroupware/EGroupware-chatbot-MCP/internal/policy"
	"github.com/EGroupware/EGroupware-chatbot-MCP/internal/repository"
	"github.com/EGroupware/EGroupware-chatbot-MCP/internal/tools"
)

// Groupware is one user's view of the groupware server.
type Groupware interface {
	tools.Backend
	Probe(ctx context.Context) (bool, error)
}

// GroupwareFactory opens a groupware connection for a set of credentials.
type GroupwareFactory func(creds domain.Credentials) Groupware

// PolicyEvaluator decides whether a tool call may run.
type PolicyEvaluator interface {
	Evaluate(ctx context.Context, input policy.Input) (decision string, reason string, err error)
}

// Deps are the collaborators of a Service. Zero values fall back to the
// production implementations where one exists.
type Deps struct {
	Sessions  *repository.SessionStore
	Audit     repository.AuditStore
	Registry  *tools.Registry
	Policy    PolicyEvaluator
	Knowledge tools.KnowledgeSource
	Tokens    *auth.Issuer
	LLM       llm.FactoryFunc
	Groupware GroupwareFactory
	Counter   repository.TokenCounter
}

// Service holds the business logic behind the HTTP API.
type Service struct {
	sessions  *repository.SessionStore
	audit     repository.AuditStore
	registry  *tools.Registry
	policy    PolicyEvaluator
	knowledge tools.KnowledgeSource
	tokens    *auth.Issuer
	newLLM    llm.FactoryFunc
	groupware GroupwareFactory
	counter   repository.TokenCounter
	config    *config.Config
	now       func() time.Time
}

// New creates a new service.
func New(cfg *config.Config, deps Deps) *Service {
	s := &Service{
		sessions:  deps.Sessions,
		audit:     deps.Audit,
		registry:  deps.Registry,
		policy:    deps.Policy,
		knowledge: deps.Knowledge,
		tokens:    deps.Tokens,
		newLLM:    deps.LLM,
		groupware: deps.Groupware,
		counter:   deps.Counter,
		config:    cfg,
		now:       time.Now,
	}
	if s.sessions == nil {
		s.sessions = repository.NewSessionStore(cfg.SessionTTL)
	}
	if s.registry == nil {
		s.registry = tools.DefaultRegistry
	}
	if s.newLLM == nil {
		s.newLLM = llm.NewFactory(cfg.LLMTimeout, cfg.MockLLM())
	}
	if s.groupware == nil {
		timeout := cfg.ToolTimeout
		s.groupware = func(creds domain.Credentials) Groupware {
			return groupware.NewClient(creds, timeout)
		}
	}
	if s.counter == nil {
		s.counter = repository.NewTiktokenCounter("cl100k_base")
	}
	return s
}

// Sessions returns the session store.
func (s *Service) Sessions() *repository.SessionStore {
	return s.sessions
}

// ToolDefinitions returns the tools offered to the model.
func (s *Service) ToolDefinitions() []domain.ToolDefinition {
	return s.registry.Definitions()
}

// ToolNames returns the names of the available tools.
func (s *Service) ToolNames() []string {
	return s.registry.Names()
}

var _ Groupware = (*groupware.Client)(nil)
