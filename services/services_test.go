package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/AgentiviseAI/AgentPlane/store"
)

type fakeStore struct {
	created []store.Conversation
	listed  []store.Conversation
	listErr error
}

func (f *fakeStore) Create(_ context.Context, conv *store.Conversation) error {
	if conv.ID == "" {
		conv.ID = uuid.NewString()
	}
	f.created = append(f.created, *conv)
	return nil
}

func (f *fakeStore) ListByChat(_ context.Context, userID, chatID string) ([]store.Conversation, error) {
	return f.listed, f.listErr
}

type fakeRunner struct {
	result RunResult
	err    error
	calls  int
}

func (f *fakeRunner) Run(_ context.Context, _ uuid.UUID, _ string) (RunResult, error) {
	f.calls++
	return f.result, f.err
}

func testAuth() AuthContext {
	return AuthContext{
		UserID:         uuid.New(),
		OrganizationID: uuid.New(),
		AgentID:        uuid.New(),
	}
}

func TestExecuteRecordsConversation(t *testing.T) {
	st := &fakeStore{}
	runner := &fakeRunner{result: RunResult{
		WorkflowID: uuid.NewString(),
		Response:   "done",
		State:      json.RawMessage(`{"steps":[]}`),
	}}
	svc := NewWorkflowService(st, nil, runner)
	auth := testAuth()

	resp, err := svc.Execute(context.Background(), auth, ExecuteRequest{Prompt: "hello"})
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if resp.Response != "done" {
		t.Errorf("expected runner response, got %q", resp.Response)
	}
	if resp.ChatID == "" {
		t.Error("expected a chat ID to be assigned for a new chat")
	}
	if len(st.created) != 1 {
		t.Fatalf("expected 1 recorded conversation, got %d", len(st.created))
	}
	if st.created[0].UserID != auth.UserID.String() {
		t.Errorf("conversation recorded for wrong user: %s", st.created[0].UserID)
	}
	if st.created[0].AgentID != auth.AgentID.String() {
		t.Errorf("conversation recorded for wrong agent: %s", st.created[0].AgentID)
	}
}

func TestExecuteKeepsExistingChatID(t *testing.T) {
	st := &fakeStore{}
	svc := NewWorkflowService(st, nil, &fakeRunner{})
	chatID := uuid.NewString()

	resp, err := svc.Execute(context.Background(), testAuth(), ExecuteRequest{Prompt: "p", ChatID: chatID})
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if resp.ChatID != chatID {
		t.Errorf("expected chat ID %s, got %s", chatID, resp.ChatID)
	}
}

func TestExecuteRejectsBadRequests(t *testing.T) {
	tests := []struct {
		name string
		req  ExecuteRequest
	}{
		{"empty prompt", ExecuteRequest{}},
		{"malformed chat id", ExecuteRequest{Prompt: "p", ChatID: "not-a-uuid"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := &fakeStore{}
			runner := &fakeRunner{}
			svc := NewWorkflowService(st, nil, runner)

			_, err := svc.Execute(context.Background(), testAuth(), tt.req)
			if !errors.Is(err, ErrInvalidRequest) {
				t.Fatalf("expected ErrInvalidRequest, got %v", err)
			}
			if runner.calls != 0 {
				t.Error("runner should not run for invalid requests")
			}
			if len(st.created) != 0 {
				t.Error("nothing should be recorded for invalid requests")
			}
		})
	}
}

func TestExecutePropagatesAgentNotFound(t *testing.T) {
	svc := NewWorkflowService(&fakeStore{}, nil, &fakeRunner{err: ErrAgentNotFound})

	_, err := svc.Execute(context.Background(), testAuth(), ExecuteRequest{Prompt: "p"})
	if !errors.Is(err, ErrAgentNotFound) {
		t.Fatalf("expected ErrAgentNotFound, got %v", err)
	}
}

func TestHistoryValidatesChatID(t *testing.T) {
	svc := NewWorkflowService(&fakeStore{}, nil, &fakeRunner{})

	_, err := svc.History(context.Background(), uuid.New(), "nope")
	if !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestHistoryReturnsStoredConversations(t *testing.T) {
	listed := []store.Conversation{{ID: "c1", Prompt: "p1"}, {ID: "c2", Prompt: "p2"}}
	svc := NewWorkflowService(&fakeStore{listed: listed}, nil, &fakeRunner{})

	history, err := svc.History(context.Background(), uuid.New(), uuid.NewString())
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if len(history) != 2 {
		t.Errorf("expected 2 conversations, got %d", len(history))
	}
}

func TestEchoRunnerProducesValidState(t *testing.T) {
	agentID := uuid.New()
	result, err := EchoRunner{}.Run(context.Background(), agentID, "ping")
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if result.Response == "" {
		t.Error("expected a response")
	}
	if result.WorkflowID == "" {
		t.Error("expected a workflow ID")
	}
	var state map[string]any
	if err := json.Unmarshal(result.State, &state); err != nil {
		t.Errorf("workflow state not valid JSON: %v", err)
	}

	// Same agent maps to the same workflow across runs.
	again, err := EchoRunner{}.Run(context.Background(), agentID, "ping")
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if again.WorkflowID != result.WorkflowID {
		t.Error("workflow ID should be stable per agent")
	}
}
