package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/staffdesk/internal/domain"
	"github.com/spec-kit/staffdesk/internal/repository"
	apperrors "github.com/spec-kit/staffdesk/pkg/util"
)

const principalKey = "auth_principal"

// Gateway validates bearer tokens and loads the authenticated
// credential into the request context. Guards never mutate the
// credential record; login is a separate flow.
type Gateway struct {
	tokens *TokenManager
	creds  repository.CredentialRepository
}

// NewGateway constructs the middleware chain entry point.
func NewGateway(tokens *TokenManager, creds repository.CredentialRepository) *Gateway {
	return &Gateway{tokens: tokens, creds: creds}
}

// Authenticate enforces authentication for protected routes. Expired
// tokens map to a session-expired denial so clients can distinguish
// re-login from tampering.
func (g *Gateway) Authenticate(c *fiber.Ctx) error {
	cred, err := g.resolve(c)
	if err != nil {
		return err
	}
	c.Locals(principalKey, cred)
	return c.Next()
}

// OptionalAuth runs the same verify-and-lookup path but swallows every
// failure: the request proceeds with no credential attached and never
// receives an error response from this guard.
func (g *Gateway) OptionalAuth(c *fiber.Ctx) error {
	if cred, err := g.resolve(c); err == nil {
		c.Locals(principalKey, cred)
	}
	return c.Next()
}

func (g *Gateway) resolve(c *fiber.Ctx) (*domain.Credential, error) {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return nil, apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return nil, apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := g.tokens.Verify(parts[1])
	if err != nil {
		if errors.Is(err, ErrTokenExpired) {
			return nil, apperrors.NewSessionExpired()
		}
		return nil, apperrors.NewUnauthorized("invalid token")
	}

	cred, err := g.creds.GetByID(c.Context(), claims.SubjectID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewUnauthorized("unknown subject")
		}
		return nil, apperrors.MapError(err)
	}
	if cred.Status != domain.CredentialStatusActive {
		return nil, apperrors.NewUnauthorized("account is not active")
	}
	return cred, nil
}

// CredentialFromContext retrieves the authenticated credential.
func CredentialFromContext(c *fiber.Ctx) (*domain.Credential, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	cred, ok := val.(*domain.Credential)
	return cred, ok
}
