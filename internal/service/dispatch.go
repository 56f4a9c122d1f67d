package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/EGroupware/EGroupware-chatbot-MCP/internal/apperr"
	"github.com/EGroupware/EGroupware-chatbot-MCP/internal/domain"
	"github.com/EGroupware/EGroupware-chatbot-MCP/internal/log"
	"github.com/EGroupware/EGroupware-chatbot-MCP/internal/metrics"
	"github.com/EGroupware/EGroupware-chatbot-MCP/internal/policy"
	"github.com/EGroupware/EGroupware-chatbot-MCP/internal/tools"
)

// dispatchResult is the outcome of one tool call.
type dispatchResult struct {
	Content string
	Status  domain.ToolCallStatus
	Outcome string
}

func errorContent(message string) string {
	data, _ := json.Marshal(map[string]string{"status": "error", "message": message})
	return string(data)
}

// Dispatch runs one tool call for username and returns the JSON text handed
// back to the model. It never fails: every problem is reported inside the
// returned text.
func (s *Service) Dispatch(ctx context.Context, username string, creds domain.Credentials, name, rawArgs string) string {
	return s.dispatch(ctx, username, creds, name, rawArgs).Content
}

func (s *Service) dispatch(ctx context.Context, username string, creds domain.Credentials, name, rawArgs string) dispatchResult {
	start := time.Now()
	res := s.runTool(ctx, username, creds, name, rawArgs)
	metrics.ObserveToolCall(name, res.Outcome, time.Since(start))
	return res
}

func (s *Service) runTool(ctx context.Context, username string, creds domain.Credentials, name, rawArgs string) dispatchResult {
	tool, ok := s.registry.Lookup(name)
	if !ok {
		return dispatchResult{
			Content: errorContent(fmt.Sprintf("Tool '%s' not found.", name)),
			Status:  domain.ToolCallStatusFailed,
			Outcome: metrics.OutcomeNotFound,
		}
	}

	args, err := tools.ParseArguments(rawArgs)
	if err != nil {
		return dispatchResult{
			Content: errorContent(fmt.Sprintf("Invalid arguments for %s: %v", name, err)),
			Status:  domain.ToolCallStatusFailed,
			Outcome: metrics.OutcomeInvalid,
		}
	}
	if err := tool.Validate(args); err != nil {
		msg := err.Error()
		if !strings.HasPrefix(msg, "Invalid arguments for") {
			msg = fmt.Sprintf("Invalid arguments for %s: %v", name, err)
		}
		return dispatchResult{
			Content: errorContent(msg),
			Status:  domain.ToolCallStatusFailed,
			Outcome: metrics.OutcomeInvalid,
		}
	}
	args = tool.Normalize(args)

	if blocked, reason := s.checkPolicy(ctx, username, name, args); blocked {
		return dispatchResult{
			Content: errorContent(fmt.Sprintf("Tool '%s' is blocked by policy: %s", name, reason)),
			Status:  domain.ToolCallStatusBlocked,
			Outcome: metrics.OutcomeBlocked,
		}
	}

	toolCtx := ctx
	if s.config.ToolTimeout > 0 {
		var cancel context.CancelFunc
		toolCtx, cancel = context.WithTimeout(ctx, s.config.ToolTimeout)
		defer cancel()
	}

	env := tools.Env{Backend: s.groupware(creds), Knowledge: s.knowledge}
	out := tool.Execute(toolCtx, env, args)
	data, err := json.Marshal(out)
	if err != nil {
		log.Error("failed to encode tool result", zap.String("tool", name), zap.Error(err))
		return dispatchResult{
			Content: errorContent(fmt.Sprintf("Failed to encode result of %s: %v", name, err)),
			Status:  domain.ToolCallStatusFailed,
			Outcome: metrics.OutcomeError,
		}
	}

	res := dispatchResult{Content: string(data), Status: domain.ToolCallStatusSucceeded, Outcome: metrics.OutcomeSuccess}
	if m, ok := out.(map[string]interface{}); ok && m["status"] == "error" {
		res.Status = domain.ToolCallStatusFailed
		res.Outcome = metrics.OutcomeError
	}
	return res
}

// checkPolicy reports whether the call is blocked. Evaluation errors allow
// the call and are logged.
func (s *Service) checkPolicy(ctx context.Context, username, name string, args map[string]interface{}) (bool, string) {
	if s.policy == nil {
		return false, ""
	}
	decision, reason, err := s.policy.Evaluate(ctx, policy.Input{ToolName: name, Username: username, Args: args})
	if err != nil {
		log.Warn("policy evaluation failed", zap.String("tool", name), zap.Error(err))
		return false, ""
	}
	if decision == policy.DecisionBlock {
		if reason == "" {
			reason = "no reason given"
		}
		return true, reason
	}
	return false, ""
}

// ExecuteTool runs a tool directly for a logged-in user, outside of a chat
// turn.
func (s *Service) ExecuteTool(ctx context.Context, username, name string, rawArgs json.RawMessage) (string, error) {
	creds, _, ok := s.sessions.Lookup(username)
	if !ok {
		return "", apperr.New(apperr.ErrCodeSessionNotFound, "Session not found. Please log in again.", nil)
	}
	if _, ok := s.registry.Lookup(name); !ok {
		return "", apperr.New(apperr.ErrCodeNotFound, fmt.Sprintf("Tool '%s' not found.", name), nil)
	}
	args := string(rawArgs)
	if strings.TrimSpace(args) == "null" {
		args = ""
	}
	return s.Dispatch(ctx, username, creds, name, args), nil
}
