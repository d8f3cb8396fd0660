package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/AgentiviseAI/AgentPlane/middleware"
	"github.com/AgentiviseAI/AgentPlane/services"
	"github.com/AgentiviseAI/AgentPlane/utils"
)

// ConversationsHandler serves chat history retrieval.
type ConversationsHandler struct {
	workflows *services.WorkflowService
}

// NewConversationsHandler builds a ConversationsHandler instance.
func NewConversationsHandler(workflows *services.WorkflowService) *ConversationsHandler {
	return &ConversationsHandler{workflows: workflows}
}

// GetHistory returns the caller's conversation turns for a chat, oldest
// first. Users only ever see their own history.
func (h *ConversationsHandler) GetHistory(c *fiber.Ctx) error {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		return c.Status(401).JSON(fiber.Map{"error": "Authentication required"})
	}

	chatID := c.Params("chat_id")
	history, err := h.workflows.History(c.Context(), userID, chatID)
	if err != nil {
		if errors.Is(err, services.ErrInvalidRequest) {
			return c.Status(400).JSON(fiber.Map{"error": err.Error()})
		}
		utils.LogRequestError(c, "history retrieval failed", err)
		return c.Status(500).JSON(fiber.Map{"error": "Failed to load conversation history"})
	}

	return c.JSON(fiber.Map{
		"chat_id":       chatID,
		"conversations": history,
	})
}
