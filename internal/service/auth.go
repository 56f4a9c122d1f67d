package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/EGroupware/EGroupware-chatbot-MCP/internal/adapter/groupware"
	"github.com/EGroupware/EGroupware-chatbot-MCP/internal/adapter/llm"
	"github.com/EGroupware/EGroupware-chatbot-MCP/internal/apperr"
	"github.com/EGroupware/EGroupware-chatbot-MCP/internal/auth"
	"github.com/EGroupware/EGroupware-chatbot-MCP/internal/domain"
	"github.com/EGroupware/EGroupware-chatbot-MCP/internal/log"
	"github.com/EGroupware/EGroupware-chatbot-MCP/internal/metrics"
)

const errMsgInvalidLogin = "Invalid EGroupware URL or credentials."

// Login checks the groupware credentials, resolves the LLM provider, stores a
// fresh session and returns a bearer token for it.
func (s *Service) Login(ctx context.Context, req domain.LoginRequest) (*domain.TokenResponse, error) {
	if req.Username == "" || req.Password == "" || req.EGWURL == "" || req.AIKey == "" {
		return nil, apperr.New(apperr.ErrCodeInvalidInput, "username, password, egw_url and ai_key are required", nil)
	}
	if s.tokens == nil {
		return nil, apperr.New(apperr.ErrCodeInternal, "token issuer is not configured", nil)
	}

	creds := domain.Credentials{
		Username: req.Username,
		Password: req.Password,
		BaseURL:  strings.TrimSuffix(req.EGWURL, "/"),
	}

	probeCtx := ctx
	if s.config.ProbeTimeout > 0 {
		var cancel context.CancelFunc
		probeCtx, cancel = context.WithTimeout(ctx, s.config.ProbeTimeout)
		defer cancel()
	}
	ok, err := s.groupware(creds).Probe(probeCtx)
	if err != nil {
		log.Warn("groupware login probe failed", zap.String("username", req.Username), zap.Error(err))
	}
	if !ok {
		return nil, apperr.New(apperr.ErrCodeUnauthorized, errMsgInvalidLogin, err)
	}

	provider, err := llm.ResolveProvider(req.AIKey, req.IONOSBaseURL)
	if err != nil {
		return nil, err
	}

	s.sessions.Put(&domain.Session{
		Username:    req.Username,
		Credentials: creds,
		Provider:    provider,
	})
	metrics.ActiveSessions.Set(float64(s.sessions.Len()))

	token, err := s.tokens.Issue(req.Username)
	if err != nil {
		return nil, apperr.New(apperr.ErrCodeInternal, "failed to issue token", err)
	}
	log.Info("user logged in", zap.String("username", req.Username), zap.String("provider", string(provider.Kind)))
	return &domain.TokenResponse{AccessToken: token, TokenType: "bearer"}, nil
}

// Authenticate resolves a bearer token to the user of a live session.
func (s *Service) Authenticate(token string) (string, error) {
	if s.tokens == nil {
		return "", apperr.New(apperr.ErrCodeInternal, "token issuer is not configured", nil)
	}
	username, err := s.tokens.Parse(token)
	if err != nil {
		return "", apperr.New(apperr.ErrCodeUnauthorized, "Could not validate credentials", err)
	}
	if _, _, ok := s.sessions.Lookup(username); !ok {
		return "", apperr.New(apperr.ErrCodeUnauthorized, "Session not found. Please log in again.", auth.ErrInvalidToken)
	}
	return username, nil
}

// Logout drops the user's session.
func (s *Service) Logout(username string) {
	if s.sessions.Delete(username) {
		log.Info("user logged out", zap.String("username", username))
	}
	metrics.ActiveSessions.Set(float64(s.sessions.Len()))
}

// ValidateGroupwareURL checks that url points at a groupware server. An
// unauthenticated request must be answered with 401.
func (s *Service) ValidateGroupwareURL(ctx context.Context, url string) (*domain.ValidateURLResponse, error) {
	if url == "" {
		return nil, apperr.New(apperr.ErrCodeInvalidInput, "URL is required", nil)
	}
	status, err := groupware.ProbeAnonymous(ctx, url, s.probeTimeout())
	if err != nil {
		return &domain.ValidateURLResponse{Valid: false, Detail: fmt.Sprintf("Could not connect to EGroupware: %v", err)}, nil
	}
	if status == http.StatusUnauthorized {
		return &domain.ValidateURLResponse{Valid: true}, nil
	}
	return &domain.ValidateURLResponse{Valid: false, Detail: "Invalid EGroupware URL"}, nil
}

// ValidateAIKey checks an LLM key with a one-token completion.
func (s *Service) ValidateAIKey(ctx context.Context, req domain.ValidateKeyRequest) (*domain.ValidateKeyResponse, error) {
	if req.APIKey == "" {
		return nil, apperr.New(apperr.ErrCodeInvalidInput, "API key is required", nil)
	}

	kind := llm.KindForKey(req.APIKey)
	resp := &domain.ValidateKeyResponse{
		IsIONOS:  kind == domain.ProviderIONOS,
		IsGitHub: kind == domain.ProviderGitHub,
	}

	provider, err := llm.ResolveProvider(req.APIKey, req.IONOSBaseURL)
	if err != nil {
		resp.Detail = apperr.MessageOf(err)
		return resp, nil
	}
	client, err := s.newLLM(provider)
	if err != nil {
		resp.Detail = apperr.MessageOf(err)
		return resp, nil
	}

	pingCtx, cancel := context.WithTimeout(ctx, s.probeTimeout())
	defer cancel()
	maxTokens := 1
	_, err = client.CreateChatCompletion(pingCtx, &llm.ChatCompletionRequest{
		Model:     provider.Model,
		Messages:  []domain.Message{{Role: domain.RoleUser, Content: "Hello"}},
		MaxTokens: &maxTokens,
	})
	if err != nil {
		resp.Detail = fmt.Sprintf("Invalid API key: %v", err)
		return resp, nil
	}
	resp.Valid = true
	return resp, nil
}

func (s *Service) probeTimeout() time.Duration {
	if s.config.ProbeTimeout > 0 {
		return s.config.ProbeTimeout
	}
	return 10 * time.Second
}

// IsUnauthorized reports whether err should be answered with 401.
func IsUnauthorized(err error) bool {
	code := apperr.CodeOf(err)
	return code == apperr.ErrCodeUnauthorized || code == apperr.ErrCodeSessionNotFound || errors.Is(err, auth.ErrInvalidToken)
}
