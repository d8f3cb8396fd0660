// Package store persists AgentPlane conversations. Prompts are
// encrypted at rest; agent and workflow identifiers reference
// ControlTower-owned entities and are stored without foreign keys.
package store

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Crypto is the subset of the crypto service the store needs.
type Crypto interface {
	Encrypt(plaintext []byte) ([]byte, error)
	Decrypt(ciphertext []byte) ([]byte, error)
}

// Conversation is one executed prompt together with the workflow state
// recorded for it.
type Conversation struct {
	ID            string          `db:"id" json:"id"`
	UserID        string          `db:"user_id" json:"user_id"`
	ChatID        string          `db:"chat_id" json:"chat_id"`
	Prompt        string          `db:"prompt" json:"prompt"`
	WorkflowState json.RawMessage `db:"workflow_state" json:"workflow_state"`
	AgentID       string          `db:"agent_id" json:"agent_id"`
	WorkflowID    string          `db:"workflow_id" json:"workflow_id"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
}

// ConversationStore reads and writes conversations through a sqlx
// connection, so the same code path serves both postgres and sqlite.
type ConversationStore struct {
	db     *sqlx.DB
	crypto Crypto
}

// NewConversationStore creates a store over the given connection.
func NewConversationStore(db *sqlx.DB, crypto Crypto) *ConversationStore {
	return &ConversationStore{db: db, crypto: crypto}
}

// Create inserts a conversation, assigning its ID and timestamp.
// The prompt is encrypted before it reaches the database.
func (s *ConversationStore) Create(ctx context.Context, conv *Conversation) error {
	if conv.ID == "" {
		conv.ID = uuid.NewString()
	}
	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = time.Now().UTC()
	}
	if len(conv.WorkflowState) == 0 {
		conv.WorkflowState = json.RawMessage("{}")
	}

	sealed, err := s.sealPrompt(conv.Prompt)
	if err != nil {
		return fmt.Errorf("encrypting prompt: %w", err)
	}

	query := s.db.Rebind(`
		INSERT INTO conversations (id, user_id, chat_id, prompt, workflow_state, agent_id, workflow_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err = s.db.ExecContext(ctx, query,
		conv.ID, conv.UserID, conv.ChatID, sealed, []byte(conv.WorkflowState),
		conv.AgentID, conv.WorkflowID, conv.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting conversation: %w", err)
	}
	return nil
}

// ListByChat returns the user's conversations for one chat,
// oldest first.
func (s *ConversationStore) ListByChat(ctx context.Context, userID, chatID string) ([]Conversation, error) {
	query := s.db.Rebind(`
		SELECT id, user_id, chat_id, prompt, workflow_state, agent_id, workflow_id, created_at
		FROM conversations
		WHERE user_id = ? AND chat_id = ?
		ORDER BY created_at ASC`)

	var rows []Conversation
	if err := s.db.SelectContext(ctx, &rows, query, userID, chatID); err != nil {
		return nil, fmt.Errorf("listing conversations for chat %s: %w", chatID, err)
	}

	for i := range rows {
		prompt, err := s.openPrompt(rows[i].Prompt)
		if err != nil {
			return nil, fmt.Errorf("decrypting prompt for conversation %s: %w", rows[i].ID, err)
		}
		rows[i].Prompt = prompt
	}
	return rows, nil
}

func (s *ConversationStore) sealPrompt(prompt string) (string, error) {
	ciphertext, err := s.crypto.Encrypt([]byte(prompt))
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

func (s *ConversationStore) openPrompt(sealed string) (string, error) {
	ciphertext, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return "", err
	}
	plaintext, err := s.crypto.Decrypt(ciphertext)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}
