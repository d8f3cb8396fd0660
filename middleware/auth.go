// Package middleware provides the request authentication and
// rate-limiting layers for the AgentPlane API.
package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/AgentiviseAI/AgentPlane/config"
)

// Request headers understood by the auth layer. X-User-ID plus
// X-Service identify trusted internal callers (scheduler, webhook
// ingester) that bypass token validation; everything else presents a
// bearer token.
const (
	HeaderUserID       = "X-User-ID"
	HeaderService      = "X-Service"
	HeaderAgentID      = "X-Agent-ID"
	HeaderOrganization = "X-Organization-ID"
)

// Context keys set in fiber locals by the auth middlewares.
const (
	LocalUserID         = "user_id"
	LocalOrganizationID = "organization_id"
	LocalAgentID        = "agent_id"
)

// defaultDevOrganization is used outside production when the caller
// does not send an organization header.
const defaultDevOrganization = "bb5a9afd-336a-445e-99ce-e81b9d444b76"

// Authenticate resolves the calling user, either from internal service
// headers or from a bearer JWT signed with the configured key, and
// stores the user ID in request locals.
func Authenticate(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		// Internal service calls carry the user directly.
		if userID := c.Get(HeaderUserID); userID != "" && c.Get(HeaderService) != "" {
			parsed, err := uuid.Parse(userID)
			if err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid user ID format in " + HeaderUserID + " header"})
			}
			c.Locals(LocalUserID, parsed)
			return c.Next()
		}

		token := c.Get(fiber.HeaderAuthorization)
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Not authenticated"})
		}
		token = strings.TrimPrefix(token, "Bearer ")

		parsed, err := jwt.Parse(token, func(token *jwt.Token) (interface{}, error) {
			return []byte(cfg.JWTSecret), nil
		}, jwt.WithValidMethods([]string{"HS256"}))
		if err != nil || !parsed.Valid {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
		}

		claims, ok := parsed.Claims.(jwt.MapClaims)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token claims"})
		}

		// 'id' is the primary claim; 'sub' kept for standard tokens.
		userIDClaim, exists := claims["id"]
		if !exists {
			userIDClaim, exists = claims["sub"]
		}
		if !exists {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "User ID not found in token"})
		}
		userIDStr, ok := userIDClaim.(string)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid user ID claim type"})
		}
		userID, err := uuid.Parse(userIDStr)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid user ID format in token"})
		}

		c.Locals(LocalUserID, userID)
		return c.Next()
	}
}

// AgentContext extracts the target agent and organization for an
// execute call. The agent header is mandatory; the organization header
// falls back to the shared dev organization outside production.
func AgentContext(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		agentIDStr := c.Get(HeaderAgentID)
		if agentIDStr == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing required " + HeaderAgentID + " header"})
		}
		agentID, err := uuid.Parse(agentIDStr)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid agent ID format in " + HeaderAgentID + " header"})
		}

		orgIDStr := c.Get(HeaderOrganization)
		if orgIDStr == "" {
			if cfg.IsProd() {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing required " + HeaderOrganization + " header"})
			}
			orgIDStr = defaultDevOrganization
		}
		orgID, err := uuid.Parse(orgIDStr)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid organization ID format in " + HeaderOrganization + " header"})
		}

		c.Locals(LocalAgentID, agentID)
		c.Locals(LocalOrganizationID, orgID)
		return c.Next()
	}
}

// UserIDFromContext returns the authenticated user set by Authenticate.
func UserIDFromContext(c *fiber.Ctx) (uuid.UUID, bool) {
	userID, ok := c.Locals(LocalUserID).(uuid.UUID)
	return userID, ok
}

// AgentIDFromContext returns the agent set by AgentContext.
func AgentIDFromContext(c *fiber.Ctx) (uuid.UUID, bool) {
	agentID, ok := c.Locals(LocalAgentID).(uuid.UUID)
	return agentID, ok
}

// OrganizationIDFromContext returns the organization set by AgentContext.
func OrganizationIDFromContext(c *fiber.Ctx) (uuid.UUID, bool) {
	orgID, ok := c.Locals(LocalOrganizationID).(uuid.UUID)
	return orgID, ok
}
