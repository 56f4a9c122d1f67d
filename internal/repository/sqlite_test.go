package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/EGroupware/EGroupware-chatbot-MCP/internal/domain"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func createTurn(t *testing.T, store *SQLiteStore, id, username string, startedAt time.Time) {
	t.Helper()
	turn := &domain.Turn{
		TurnID:    id,
		Username:  username,
		Message:   "hello",
		Status:    domain.TurnStatusRunning,
		StartedAt: startedAt,
	}
	if err := store.CreateTurn(context.Background(), turn); err != nil {
		t.Fatalf("CreateTurn failed: %v", err)
	}
}

func TestSQLiteStoreTurnLifecycle(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	createTurn(t, store, "t1", "alice", time.Now())

	got, err := store.GetTurn(ctx, "t1")
	if err != nil {
		t.Fatalf("GetTurn failed: %v", err)
	}
	if got == nil || got.Status != domain.TurnStatusRunning || got.EndedAt != nil {
		t.Fatalf("unexpected turn: %+v", got)
	}

	if err := store.CompleteTurn(ctx, "t1", domain.TurnStatusFailed, []byte(`{"message":"boom"}`)); err != nil {
		t.Fatalf("CompleteTurn failed: %v", err)
	}
	got, err = store.GetTurn(ctx, "t1")
	if err != nil {
		t.Fatalf("GetTurn failed: %v", err)
	}
	if got.Status != domain.TurnStatusFailed || got.EndedAt == nil {
		t.Fatalf("turn not completed: %+v", got)
	}
	if string(got.Error) != `{"message":"boom"}` {
		t.Fatalf("unexpected error payload: %s", got.Error)
	}

	missing, err := store.GetTurn(ctx, "nope")
	if err != nil || missing != nil {
		t.Fatalf("expected nil turn, got %+v, %v", missing, err)
	}
}

func TestSQLiteStoreListTurns(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	base := time.Now()
	createTurn(t, store, "t1", "alice", base)
	createTurn(t, store, "t2", "alice", base.Add(time.Second))
	createTurn(t, store, "t3", "bob", base.Add(2*time.Second))

	turns, err := store.ListTurns(ctx, "alice", 10)
	if err != nil {
		t.Fatalf("ListTurns failed: %v", err)
	}
	if len(turns) != 2 || turns[0].TurnID != "t2" {
		t.Fatalf("unexpected turns: %+v", turns)
	}

	turns, err = store.ListTurns(ctx, "alice", 1)
	if err != nil {
		t.Fatalf("ListTurns failed: %v", err)
	}
	if len(turns) != 1 {
		t.Fatalf("expected limit to apply, got %d", len(turns))
	}
}

func TestSQLiteStoreEvents(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	createTurn(t, store, "t1", "alice", time.Now())

	events := []domain.Event{
		{EventID: "e1", TurnID: "t1", Ts: 100, Type: domain.EventTypeTurnStarted, Payload: json.RawMessage(`{"a":1}`)},
		{EventID: "e2", TurnID: "t1", Ts: 200, Type: domain.EventTypeToolCall},
		{EventID: "e3", TurnID: "t1", Ts: 300, Type: domain.EventTypeTurnDone},
	}
	for i := range events {
		if err := store.CreateEvent(ctx, &events[i]); err != nil {
			t.Fatalf("CreateEvent failed: %v", err)
		}
	}

	all, err := store.GetEvents(ctx, "t1", 0, nil, 0)
	if err != nil {
		t.Fatalf("GetEvents failed: %v", err)
	}
	if len(all) != 3 || all[0].EventID != "e1" || string(all[0].Payload) != `{"a":1}` {
		t.Fatalf("unexpected events: %+v", all)
	}
	if all[1].Payload != nil {
		t.Fatalf("expected empty payload, got %s", all[1].Payload)
	}

	after, err := store.GetEvents(ctx, "t1", 100, []string{string(domain.EventTypeTurnDone)}, 10)
	if err != nil {
		t.Fatalf("GetEvents failed: %v", err)
	}
	if len(after) != 1 || after[0].EventID != "e3" {
		t.Fatalf("unexpected filtered events: %+v", after)
	}
}

func TestSQLiteStoreToolCalls(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	createTurn(t, store, "t1", "alice", time.Now())

	tc := &domain.ToolCallRecord{
		ToolCallID: "call_1",
		TurnID:     "t1",
		ToolName:   "create_task",
		Status:     domain.ToolCallStatusRunning,
		Args:       json.RawMessage(`{"title":"x"}`),
		CreatedAt:  time.Now(),
	}
	if err := store.CreateToolCall(ctx, tc); err != nil {
		t.Fatalf("CreateToolCall failed: %v", err)
	}

	updated, err := store.UpdateToolCallResult(ctx, "call_1", domain.ToolCallStatusSucceeded, `{"status":"success"}`)
	if err != nil || !updated {
		t.Fatalf("UpdateToolCallResult failed: %v (updated=%v)", err, updated)
	}
	updated, err = store.UpdateToolCallResult(ctx, "call_1", domain.ToolCallStatusFailed, "late")
	if err != nil {
		t.Fatalf("UpdateToolCallResult failed: %v", err)
	}
	if updated {
		t.Fatalf("completed tool call must not be overwritten")
	}

	calls, err := store.ListToolCalls(ctx, "t1")
	if err != nil {
		t.Fatalf("ListToolCalls failed: %v", err)
	}
	if len(calls) != 1 {
		t.Fatalf("expected 1 tool call, got %d", len(calls))
	}
	if calls[0].Status != domain.ToolCallStatusSucceeded || calls[0].Result != `{"status":"success"}` || calls[0].CompletedAt == nil {
		t.Fatalf("unexpected tool call: %+v", calls[0])
	}
	if string(calls[0].Args) != `{"title":"x"}` {
		t.Fatalf("unexpected args: %s", calls[0].Args)
	}
}
