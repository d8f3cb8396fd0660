// Package handlers contains the HTTP handlers for the agent runtime
// endpoints. Handlers translate between Fiber requests and the workflow
// service, and never expose internal error details to callers.
package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/AgentiviseAI/AgentPlane/metrics"
	"github.com/AgentiviseAI/AgentPlane/middleware"
	"github.com/AgentiviseAI/AgentPlane/services"
	"github.com/AgentiviseAI/AgentPlane/utils"
)

// AgentHandler serves the workflow execution endpoint.
type AgentHandler struct {
	workflows *services.WorkflowService
}

// NewAgentHandler builds an AgentHandler instance.
func NewAgentHandler(workflows *services.WorkflowService) *AgentHandler {
	return &AgentHandler{workflows: workflows}
}

// Execute runs the agent's workflow against the submitted prompt and
// records the exchange as a conversation turn.
func (h *AgentHandler) Execute(c *fiber.Ctx) error {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		return c.Status(401).JSON(fiber.Map{"error": "Authentication required"})
	}
	agentID, ok := middleware.AgentIDFromContext(c)
	if !ok {
		return c.Status(400).JSON(fiber.Map{"error": "Agent context required"})
	}
	orgID, _ := middleware.OrganizationIDFromContext(c)

	var req services.ExecuteRequest
	if err := c.BodyParser(&req); err != nil {
		metrics.RecordExecuteError("validation")
		return c.Status(400).JSON(fiber.Map{"error": "Invalid request body"})
	}

	metrics.RecordExecuteRequest(agentID.String())
	start := time.Now()

	resp, err := h.workflows.Execute(c.Context(), services.AuthContext{
		UserID:         userID,
		OrganizationID: orgID,
		AgentID:        agentID,
	}, req)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidRequest):
			metrics.RecordExecuteError("validation")
			return c.Status(400).JSON(fiber.Map{"error": err.Error()})
		case errors.Is(err, services.ErrAgentNotFound):
			metrics.RecordExecuteError("not_found")
			return c.Status(404).JSON(fiber.Map{"error": "Agent not found"})
		default:
			metrics.RecordExecuteError("internal")
			utils.LogRequestError(c, "workflow execution failed", err)
			return c.Status(500).JSON(fiber.Map{"error": "Workflow execution failed"})
		}
	}

	metrics.RecordExecuteSuccess(time.Since(start))
	return c.JSON(resp)
}
