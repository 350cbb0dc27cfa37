package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/post-scheduler/internal/domain"
	apperrors "github.com/spec-kit/post-scheduler/pkg/util/errorutil"
)

const principalKey = "auth_principal"

// Principal represents the authenticated caller.
type Principal struct {
	Subject    string
	Credential *domain.Credential
}

// AuthMiddleware validates bearer tokens and stores the principal on the request.
type AuthMiddleware struct {
	verifier Verifier
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(verifier Verifier) *AuthMiddleware {
	return &AuthMiddleware{verifier: verifier}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	token, ok := BearerToken(c.Get(fiber.HeaderAuthorization))
	if !ok {
		return apperrors.NewUnauthorized("No authentication token provided in request.")
	}

	cred, err := m.verifier.Verify(token)
	if err != nil {
		return apperrors.NewUnauthorized("Invalid or expired authentication token.")
	}

	c.Locals(principalKey, &Principal{Subject: cred.Subject, Credential: cred})
	return c.Next()
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, bool) {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
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
