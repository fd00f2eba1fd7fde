package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// AuthHandler signs agents in.
type AuthHandler struct {
	agents repository.AgentRepository
	tokens *auth.TokenManager
}

// NewAuthHandler constructs handler.
func NewAuthHandler(agents repository.AgentRepository, tokens *auth.TokenManager) *AuthHandler {
	return &AuthHandler{agents: agents, tokens: tokens}
}

// Login POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		return apperrors.NewValidationError("email and password required", nil)
	}

	agent, err := h.agents.GetByEmail(c.UserContext(), email)
	if err != nil {
		return apperrors.NewUnauthorized("invalid credentials")
	}
	if err := auth.ComparePassword(agent.PasswordHash, req.Password); err != nil {
		return apperrors.NewUnauthorized("invalid credentials")
	}

	token, expiresAt, err := h.tokens.GenerateToken(agent.ID, agent.Email, agent.Name)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	return c.JSON(fiber.Map{"success": true, "data": dto.LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		Agent:     dto.AgentInfo{ID: agent.ID, Email: agent.Email, Name: agent.Name},
	}})
}
