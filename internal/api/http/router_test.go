package http

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/observability"
)

const adminDomain = "corp.test"

func newTestApp(t *testing.T) (*fiber.App, *auth.TokenManager) {
	t.Helper()
	logger := zap.NewNop()
	tokens := auth.NewTokenManager("test-secret", 60)

	app := fiber.New()
	RegisterMiddlewares(app, logger, observability.NewMetrics(), 0, nil)
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler("helpdesk", "test", nil, nil),
		Pages:          handlers.NewPagesHandler(nil, nil, adminDomain, logger),
		Actions:        handlers.NewActionsHandler(nil, nil, adminDomain),
		Ingest:         handlers.NewIngestHandler(nil, observability.NewMetrics()),
		Auth:           handlers.NewAuthHandler(nil, tokens),
		Attachments:    handlers.NewAttachmentsHandler(nil, nil),
		AuthMiddleware: auth.NewMiddleware(tokens),
	})
	return app, tokens
}

func bearerFor(t *testing.T, tokens *auth.TokenManager, email string) string {
	t.Helper()
	token, _, err := tokens.GenerateToken("agt_1", email, "Test Agent")
	require.NoError(t, err)
	return "Bearer " + token
}

func decodeError(t *testing.T, body io.Reader) (string, string) {
	t.Helper()
	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(body).Decode(&envelope))
	return envelope.Error.Code, envelope.Error.Message
}

func TestUnknownPageRendersNotFoundView(t *testing.T) {
	app, _ := newTestApp(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/?page=bogus", nil))
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "bogus")
}

func TestLoginPageRenders(t *testing.T) {
	app, _ := newTestApp(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/?page=login", nil))
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
}

func TestCardsPageRequiresAuthentication(t *testing.T) {
	app, _ := newTestApp(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/?page=cards", nil))
	require.NoError(t, err)

	// anonymous visitors get the login view instead of the card list
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
}

func TestActionsRequireBearerToken(t *testing.T) {
	app, _ := newTestApp(t)

	req := httptest.NewRequest("POST", "/?action=create_card", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	code, _ := decodeError(t, resp.Body)
	assert.Equal(t, "UNAUTHORIZED", code)
}

func TestUnknownActionIsRejected(t *testing.T) {
	app, tokens := newTestApp(t)

	req := httptest.NewRequest("POST", "/?action=frobnicate", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", bearerFor(t, tokens, "agent@corp.test"))
	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	code, message := decodeError(t, resp.Body)
	assert.Equal(t, "VALIDATION_FAILED", code)
	assert.Equal(t, "Invalid action", message)
}

func TestSaveSettingsRequiresAdminDomain(t *testing.T) {
	app, tokens := newTestApp(t)

	req := httptest.NewRequest("POST", "/?action=save_settings", strings.NewReader(`{"path":"x","value":1}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", bearerFor(t, tokens, "jane@customer.test"))
	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	code, _ := decodeError(t, resp.Body)
	assert.Equal(t, "FORBIDDEN", code)
}

func TestHealthLive(t *testing.T) {
	app, _ := newTestApp(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/health/live", nil))
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "alive", body["status"])
	assert.Equal(t, "helpdesk", body["service"])
}
