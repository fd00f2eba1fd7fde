package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

const principalKey = "auth_principal"

// Principal represents the authenticated caller.
type Principal struct {
	AgentID string
	Email   string
	Name    string
}

// Middleware validates bearer tokens and loads the principal into request
// locals.
type Middleware struct {
	tokens *TokenManager
}

// NewMiddleware constructs middleware.
func NewMiddleware(tokens *TokenManager) *Middleware {
	return &Middleware{tokens: tokens}
}

// Handle enforces authentication for protected routes.
func (m *Middleware) Handle(c *fiber.Ctx) error {
	claims, err := m.claims(c)
	if err != nil {
		return err
	}
	c.Locals(principalKey, &Principal{AgentID: claims.Subject, Email: claims.Email, Name: claims.Name})
	return c.Next()
}

// Attach loads the principal when a valid token is present but lets
// anonymous requests through; pages decide themselves whether to render
// the login view.
func (m *Middleware) Attach(c *fiber.Ctx) error {
	if claims, err := m.claims(c); err == nil {
		c.Locals(principalKey, &Principal{AgentID: claims.Subject, Email: claims.Email, Name: claims.Name})
	}
	return c.Next()
}

func (m *Middleware) claims(c *fiber.Ctx) (*Claims, error) {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return nil, apperrors.NewUnauthorized("missing authorization header")
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return nil, apperrors.NewUnauthorized("invalid authorization header")
	}
	claims, err := m.tokens.ParseToken(parts[1])
	if err != nil {
		return nil, apperrors.NewUnauthorized("invalid token")
	}
	return claims, nil
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}

// IsAdmin reports whether the email belongs to the admin domain. An empty
// admin domain disables the gate entirely.
func IsAdmin(email, adminDomain string) bool {
	if adminDomain == "" {
		return false
	}
	return strings.HasSuffix(strings.ToLower(email), "@"+strings.ToLower(adminDomain))
}
