package handlers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/service"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// ActionsHandler dispatches `POST /?action=` JSON operations.
type ActionsHandler struct {
	cards       *service.CardService
	settings    *service.SettingsService
	adminDomain string
}

// NewActionsHandler constructs handler.
func NewActionsHandler(cards *service.CardService, settings *service.SettingsService, adminDomain string) *ActionsHandler {
	return &ActionsHandler{cards: cards, settings: settings, adminDomain: adminDomain}
}

// Dispatch routes on the `action` query parameter. All actions require an
// authenticated agent; settings and deletes additionally require the admin
// domain.
func (h *ActionsHandler) Dispatch(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	action := c.Query("action")
	switch action {
	case "create_card":
		return h.createCard(c, principal)
	case "update_card":
		return h.updateCard(c, principal)
	case "schedule_meeting":
		return h.scheduleMeeting(c, principal)
	case "delete_card":
		return h.deleteCard(c, principal)
	case "save_settings":
		return h.saveSettings(c, principal)
	default:
		return apperrors.NewValidationError("Invalid action", map[string]any{"action": action})
	}
}

func (h *ActionsHandler) createCard(c *fiber.Ctx, principal *auth.Principal) error {
	var req dto.CreateCardRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	source, ok := domain.ParseSource(req.Source)
	if !ok {
		source = domain.SourceWeb
	}
	card, _, err := h.cards.CreateCard(c.UserContext(), service.CardCreateInput{
		Title:      req.Title,
		Source:     source,
		CreatedBy:  principal.Email,
		AssignedTo: req.AssignedTo,
		Labels:     req.Labels,
		Metadata:   req.Metadata,
		Content:    req.Content,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": dto.NewCardSummary(card)})
}

func (h *ActionsHandler) updateCard(c *fiber.Ctx, principal *auth.Principal) error {
	var req dto.UpdateCardRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.CardID == "" {
		return apperrors.NewValidationError("card_id required", nil)
	}
	patch := repository.CardPatch{
		Title:      req.Title,
		AssignedTo: req.AssignedTo,
		Labels:     req.Labels,
		Metadata:   req.Metadata,
	}
	if req.Status != nil {
		status := domain.CardStatus(*req.Status)
		patch.Status = &status
	}
	card, err := h.cards.UpdateCard(c.UserContext(), principal.Email, req.CardID, patch)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": dto.NewCardSummary(card)})
}

func (h *ActionsHandler) scheduleMeeting(c *fiber.Ctx, principal *auth.Principal) error {
	var req dto.ScheduleMeetingRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.CardID == "" || strings.TrimSpace(req.Topic) == "" {
		return apperrors.NewValidationError("card_id and topic required", nil)
	}
	when, err := time.Parse(time.RFC3339, req.At)
	if err != nil {
		return apperrors.NewValidationError("at must be RFC3339", map[string]any{"at": req.At})
	}
	msg, err := h.cards.ScheduleMeeting(c.UserContext(), principal.Email, req.CardID, req.Topic, when)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": fiber.Map{
		"card_id":    req.CardID,
		"message_id": msg.ID,
	}})
}

func (h *ActionsHandler) deleteCard(c *fiber.Ctx, principal *auth.Principal) error {
	if !auth.IsAdmin(principal.Email, h.adminDomain) {
		return apperrors.NewForbidden("admin domain required")
	}
	var req dto.DeleteCardRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.CardID == "" {
		return apperrors.NewValidationError("card_id required", nil)
	}
	if err := h.cards.DeleteCard(c.UserContext(), principal.Email, req.CardID); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": fiber.Map{"card_id": req.CardID}})
}

func (h *ActionsHandler) saveSettings(c *fiber.Ctx, principal *auth.Principal) error {
	if !auth.IsAdmin(principal.Email, h.adminDomain) {
		return apperrors.NewForbidden("admin domain required")
	}
	var req dto.SaveSettingsRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ctx := c.UserContext()
	switch {
	case req.Path != "":
		if err := h.settings.Set(ctx, principal.Email, req.Path, req.Value); err != nil {
			return err
		}
	case req.Settings != nil:
		if err := h.settings.Replace(ctx, principal.Email, req.Settings); err != nil {
			return err
		}
	default:
		return apperrors.NewValidationError("path or settings required", nil)
	}
	return c.JSON(fiber.Map{"success": true})
}
