// Package services holds the application services behind the HTTP
// handlers. The workflow engine itself is an external collaborator
// reached through the Runner interface; this package owns request
// validation, conversation persistence, and history retrieval.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/AgentiviseAI/AgentPlane/cache"
	"github.com/AgentiviseAI/AgentPlane/store"
)

// ErrInvalidRequest marks requests rejected before execution.
var ErrInvalidRequest = errors.New("invalid request")

// ErrAgentNotFound is returned by runners when the agent has no
// resolvable workflow.
var ErrAgentNotFound = errors.New("agent not found")

// AuthContext identifies who is executing against which agent.
type AuthContext struct {
	UserID         uuid.UUID
	OrganizationID uuid.UUID
	AgentID        uuid.UUID
}

// ExecuteRequest is the execute endpoint payload.
type ExecuteRequest struct {
	Prompt string `json:"prompt"`
	ChatID string `json:"chat_id"`
}

// ExecuteResponse is returned to the caller after a workflow run.
type ExecuteResponse struct {
	Response       string `json:"response"`
	ChatID         string `json:"chat_id"`
	ConversationID string `json:"conversation_id"`
}

// RunResult is what a workflow runner produces for one prompt.
type RunResult struct {
	WorkflowID string
	Response   string
	State      json.RawMessage
}

// Runner executes an agent's workflow for a single prompt.
type Runner interface {
	Run(ctx context.Context, agentID uuid.UUID, prompt string) (RunResult, error)
}

// ConversationWriter is the store subset the workflow service uses.
type ConversationWriter interface {
	Create(ctx context.Context, conv *store.Conversation) error
	ListByChat(ctx context.Context, userID, chatID string) ([]store.Conversation, error)
}

// WorkflowService runs prompts through the workflow runner and records
// the resulting conversation.
type WorkflowService struct {
	store  ConversationWriter
	cache  *cache.ConversationCache
	runner Runner
}

// NewWorkflowService wires the service. The cache may be nil.
func NewWorkflowService(convStore ConversationWriter, convCache *cache.ConversationCache, runner Runner) *WorkflowService {
	return &WorkflowService{store: convStore, cache: convCache, runner: runner}
}

// Execute validates the request, runs the workflow, and persists the
// conversation. A missing chat ID starts a new chat.
func (s *WorkflowService) Execute(ctx context.Context, auth AuthContext, req ExecuteRequest) (*ExecuteResponse, error) {
	if req.Prompt == "" {
		return nil, fmt.Errorf("%w: prompt cannot be empty", ErrInvalidRequest)
	}
	chatID := req.ChatID
	if chatID == "" {
		chatID = uuid.NewString()
	} else if _, err := uuid.Parse(chatID); err != nil {
		return nil, fmt.Errorf("%w: chat_id is not a valid UUID", ErrInvalidRequest)
	}

	result, err := s.runner.Run(ctx, auth.AgentID, req.Prompt)
	if err != nil {
		return nil, fmt.Errorf("running workflow for agent %s: %w", auth.AgentID, err)
	}

	conv := &store.Conversation{
		UserID:        auth.UserID.String(),
		ChatID:        chatID,
		Prompt:        req.Prompt,
		WorkflowState: result.State,
		AgentID:       auth.AgentID.String(),
		WorkflowID:    result.WorkflowID,
	}
	if err := s.store.Create(ctx, conv); err != nil {
		return nil, fmt.Errorf("recording conversation: %w", err)
	}
	s.cache.Invalidate(ctx, conv.UserID, chatID)

	return &ExecuteResponse{
		Response:       result.Response,
		ChatID:         chatID,
		ConversationID: conv.ID,
	}, nil
}

// History returns the user's conversations for a chat, serving from the
// cache when possible.
func (s *WorkflowService) History(ctx context.Context, userID uuid.UUID, chatID string) ([]store.Conversation, error) {
	if _, err := uuid.Parse(chatID); err != nil {
		return nil, fmt.Errorf("%w: chat_id is not a valid UUID", ErrInvalidRequest)
	}

	if history, ok := s.cache.GetHistory(ctx, userID.String(), chatID); ok {
		return history, nil
	}

	history, err := s.store.ListByChat(ctx, userID.String(), chatID)
	if err != nil {
		return nil, fmt.Errorf("loading chat history: %w", err)
	}
	s.cache.SetHistory(ctx, userID.String(), chatID, history)
	return history, nil
}

// EchoRunner is the built-in runner used when no external workflow
// engine is attached. It records a single respond step and answers with
// an acknowledgement of the prompt, which keeps the serving path and
// persistence fully exercisable in environments without an engine.
type EchoRunner struct{}

func (EchoRunner) Run(_ context.Context, agentID uuid.UUID, prompt string) (RunResult, error) {
	state, err := json.Marshal(map[string]any{
		"steps":        []string{"receive_prompt", "generate_response"},
		"completed_at": time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return RunResult{}, fmt.Errorf("encoding workflow state: %w", err)
	}
	return RunResult{
		WorkflowID: uuid.NewSHA1(uuid.NameSpaceOID, agentID[:]).String(),
		Response:   fmt.Sprintf("Agent %s processed: %s", agentID, prompt),
		State:      state,
	}, nil
}
