package handlers

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/service"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
	"github.com/spec-kit/helpdesk-service/web/templates"
)

// PagesHandler serves the server-rendered views behind `GET /?page=`.
type PagesHandler struct {
	cards       *service.CardService
	settings    *service.SettingsService
	adminDomain string
	logger      *zap.Logger
}

// NewPagesHandler constructs handler.
func NewPagesHandler(cards *service.CardService, settings *service.SettingsService, adminDomain string, logger *zap.Logger) *PagesHandler {
	return &PagesHandler{cards: cards, settings: settings, adminDomain: adminDomain, logger: logger}
}

type cardsFilterView struct {
	Status     string
	AssignedTo string
	Label      string
}

// Render GET /?page={home|cards|admin|login}. Unknown pages get the 404
// view; handler errors render the error view instead of the JSON error
// envelope.
func (h *PagesHandler) Render(c *fiber.Ctx) error {
	page := c.Query("page", "home")
	switch page {
	case "home":
		return h.renderHome(c)
	case "cards":
		return h.renderCards(c)
	case "admin":
		return h.renderAdmin(c)
	case "login":
		return h.renderView(c, fiber.StatusOK, "login", fiber.Map{"Title": "Login", "Message": ""})
	default:
		return h.renderView(c, fiber.StatusNotFound, "not_found", fiber.Map{"Title": "Not Found", "Page": page})
	}
}

func (h *PagesHandler) renderHome(c *fiber.Ctx) error {
	cards, err := h.cards.ListCards(c.UserContext(), repository.CardFilter{Limit: 10})
	if err != nil {
		return h.renderError(c, err)
	}
	return h.renderView(c, fiber.StatusOK, "home", fiber.Map{"Title": "Home", "Cards": cards})
}

func (h *PagesHandler) renderCards(c *fiber.Ctx) error {
	if _, ok := auth.PrincipalFromContext(c); !ok {
		return h.renderView(c, fiber.StatusUnauthorized, "login",
			fiber.Map{"Title": "Login", "Message": "Sign in to view cards."})
	}
	filter, view := parseCardsQuery(c)
	cards, err := h.cards.ListCards(c.UserContext(), filter)
	if err != nil {
		return h.renderError(c, err)
	}
	return h.renderView(c, fiber.StatusOK, "cards", fiber.Map{
		"Title":  "Cards",
		"Cards":  cards,
		"Filter": view,
	})
}

func (h *PagesHandler) renderAdmin(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return h.renderView(c, fiber.StatusUnauthorized, "login",
			fiber.Map{"Title": "Login", "Message": "Sign in to view the admin page."})
	}
	if !auth.IsAdmin(principal.Email, h.adminDomain) {
		return h.renderError(c, apperrors.NewForbidden("admin domain required"))
	}

	doc, err := h.settings.Document(c.UserContext())
	if err != nil {
		return h.renderError(c, err)
	}
	activities, err := h.cards.RecentActivity(c.UserContext(), 50)
	if err != nil {
		return h.renderError(c, err)
	}
	settingsJSON, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return h.renderError(c, err)
	}
	return h.renderView(c, fiber.StatusOK, "admin", fiber.Map{
		"Title":        "Admin",
		"SettingsJSON": string(settingsJSON),
		"Activities":   activities,
	})
}

func (h *PagesHandler) renderError(c *fiber.Ctx, err error) error {
	domainErr := apperrors.ToDomainError(err)
	if domainErr.HTTPStatus >= 500 {
		h.logger.Error("page render failed", zap.Error(domainErr))
	}
	detail := ""
	if len(domainErr.Details) > 0 {
		if encoded, encodeErr := json.MarshalIndent(domainErr.Details, "", "  "); encodeErr == nil {
			detail = string(encoded)
		}
	}
	return h.renderView(c, domainErr.HTTPStatus, "error", fiber.Map{
		"Title":   "Error",
		"Message": domainErr.Message,
		"Detail":  detail,
	})
}

func (h *PagesHandler) renderView(c *fiber.Ctx, status int, name string, data fiber.Map) error {
	var buf bytes.Buffer
	if err := templates.Render(&buf, name, data); err != nil {
		h.logger.Error("template render failed", zap.String("view", name), zap.Error(err))
		return apperrors.NewInternalError(err)
	}
	c.Status(status).Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.Send(buf.Bytes())
}

func parseCardsQuery(c *fiber.Ctx) (repository.CardFilter, cardsFilterView) {
	filter := repository.CardFilter{Limit: 50}
	view := cardsFilterView{
		Status:     strings.TrimSpace(c.Query("status")),
		AssignedTo: strings.TrimSpace(c.Query("assigned_to")),
		Label:      strings.TrimSpace(c.Query("label")),
	}
	if view.Status != "" {
		status := domain.CardStatus(view.Status)
		filter.Status = &status
	}
	if view.AssignedTo != "" {
		filter.AssignedTo = &view.AssignedTo
	}
	if view.Label != "" {
		filter.Label = &view.Label
	}
	if limitStr := c.Query("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil && limit > 0 {
			filter.Limit = limit
		}
	}
	return filter, view
}
