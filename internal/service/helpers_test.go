package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/EGroupware/EGroupware-chatbot-MCP/internal/adapter/groupware"
	"github.com/EGroupware/EGroupware-chatbot-MCP/internal/adapter/llm"
	"github.com/EGroupware/EGroupware-chatbot-MCP/internal/auth"
	"github.com/EGroupware/EGroupware-chatbot-MCP/internal/config"
	"github.com/EGroupware/EGroupware-chatbot-MCP/internal/domain"
	"github.com/EGroupware/EGroupware-chatbot-MCP/internal/policy"
	"github.com/EGroupware/EGroupware-chatbot-MCP/internal/repository"
	"github.com/EGroupware/EGroupware-chatbot-MCP/internal/testutil"
)

// fakeGroupware records the calls that reach the backend.
type fakeGroupware struct {
	mu       sync.Mutex
	calls    []string
	probeOK  bool
	probeErr error
	err      error
	contacts []groupware.Contact
}

func (f *fakeGroupware) record(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
}

func (f *fakeGroupware) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeGroupware) Probe(ctx context.Context) (bool, error) {
	return f.probeOK, f.probeErr
}

func (f *fakeGroupware) CreateContact(ctx context.Context, in groupware.ContactInput) (map[string]string, error) {
	f.record("create_contact")
	if f.err != nil {
		return nil, f.err
	}
	return groupware.ContactPayload(in), nil
}

func (f *fakeGroupware) ListContacts(ctx context.Context) ([]groupware.Contact, error) {
	f.record("list_contacts")
	return f.contacts, f.err
}

func (f *fakeGroupware) CreateEvent(ctx context.Context, in groupware.EventInput) (map[string]interface{}, error) {
	f.record("create_event")
	if f.err != nil {
		return nil, f.err
	}
	return groupware.EventPayload(in), nil
}

func (f *fakeGroupware) ListEvents(ctx context.Context, startDate, endDate string) ([]groupware.Event, error) {
	f.record("list_events")
	return nil, f.err
}

func (f *fakeGroupware) CreateTask(ctx context.Context, in groupware.TaskInput) (map[string]string, error) {
	f.record("create_task")
	if f.err != nil {
		return nil, f.err
	}
	return groupware.TaskPayload(in), nil
}

func (f *fakeGroupware) SendMail(ctx context.Context, in groupware.MailInput) error {
	f.record("send_mail")
	return f.err
}

type fakeKnowledge struct{ content string }

func (f fakeKnowledge) Content() (string, error) { return f.content, nil }

type testEnv struct {
	svc       *Service
	groupware *fakeGroupware
	llm       *llm.MockClient
	audit     *repository.SQLiteStore
	sessions  *repository.SessionStore
	tokens    *auth.Issuer
}

func newTestEnv(t *testing.T, scripts ...[]*llm.StreamChunk) *testEnv {
	t.Helper()
	ctx := context.Background()

	audit := testutil.NewTestSQLiteStore(t)

	engine, err := policy.NewEngine(ctx, policy.DefaultPolicy)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	tokens, err := auth.NewIssuer("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("NewIssuer failed: %v", err)
	}

	cfg := &config.Config{
		ToolTimeout:         time.Second,
		LLMTimeout:          5 * time.Second,
		ProbeTimeout:        time.Second,
		SessionTTL:          time.Hour,
		TranscriptMaxTokens: 100000,
	}
	env := &testEnv{
		groupware: &fakeGroupware{probeOK: true},
		llm:       llm.NewMockClient(scripts...),
		audit:     audit,
		sessions:  repository.NewSessionStore(cfg.SessionTTL),
		tokens:    tokens,
	}
	env.svc = New(cfg, Deps{
		Sessions:  env.sessions,
		Audit:     audit,
		Policy:    engine,
		Knowledge: fakeKnowledge{content: "# ACME"},
		Tokens:    tokens,
		LLM: func(domain.ProviderConfig) (llm.Client, error) {
			return env.llm, nil
		},
		Groupware: func(domain.Credentials) Groupware {
			return env.groupware
		},
		Counter: repository.ApproxCounter{},
	})
	return env
}

func (e *testEnv) login(t *testing.T, username string) {
	t.Helper()
	e.sessions.Put(&domain.Session{
		Username:    username,
		Credentials: domain.Credentials{Username: username, Password: "pw", BaseURL: "https://egw.example.com"},
		Provider:    domain.ProviderConfig{Kind: domain.ProviderOpenAI, Model: llm.OpenAIModel, APIKey: "sk-test"},
	})
}

// collect runs a chat turn and returns the emitted events.
func (e *testEnv) chat(t *testing.T, username, message string) ([]domain.ChatEvent, error) {
	t.Helper()
	var events []domain.ChatEvent
	err := e.svc.Chat(context.Background(), username, message, func(ev domain.ChatEvent) error {
		events = append(events, ev)
		return nil
	})
	return events, err
}

func eventTypes(events []domain.ChatEvent) []domain.ChatEventType {
	out := make([]domain.ChatEventType, len(events))
	for i, ev := range events {
		out[i] = ev.Type
	}
	return out
}
