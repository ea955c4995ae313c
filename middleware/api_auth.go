// middleware/api_auth.go
package middleware

import (
	"crypto/subtle"
	"net/http"
	"os"
	"strings"

	"github.com/bloggen/bloggen_backend/models"
	"github.com/labstack/echo/v4"
)

// IdentityContextKey is the echo.Context key under which RequireAPIKey stores
// the asserted caller identity.
const IdentityContextKey = "identity"

// AuthResult is the outcome of parsing a bearer credential.
type AuthResult struct {
	Authenticated bool
	Identity      string
}

// GetAPIKey returns the shared API secret from environment variables
func GetAPIKey() string {
	return os.Getenv("API_KEY")
}

// ParseBearer validates an Authorization header of the form
// "Bearer <secret>" or "Bearer <secret>:<identity>". The secret segment must
// match the configured key; the identity segment is returned verbatim. This
// is a shared-secret gate, not per-user authentication: any caller holding
// the key can assert any identity, and ownership checks downstream trust it.
func ParseBearer(headerValue, secret string) AuthResult {
	if secret == "" {
		return AuthResult{}
	}

	const prefix = "Bearer "
	if !strings.HasPrefix(headerValue, prefix) {
		return AuthResult{}
	}

	token := headerValue[len(prefix):]
	if token == "" || strings.ContainsRune(token, ' ') {
		return AuthResult{}
	}

	key := token
	identity := ""
	if idx := strings.Index(token, ":"); idx >= 0 {
		key = token[:idx]
		identity = token[idx+1:]
	}

	if subtle.ConstantTimeCompare([]byte(key), []byte(secret)) != 1 {
		return AuthResult{}
	}

	return AuthResult{Authenticated: true, Identity: identity}
}

// RequireAPIKey guards mutating content routes. On success the asserted
// identity (possibly empty) is stored in the request context.
func RequireAPIKey() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			result := ParseBearer(c.Request().Header.Get("Authorization"), GetAPIKey())
			if !result.Authenticated {
				return c.JSON(http.StatusUnauthorized, models.Response{
					Status:  http.StatusUnauthorized,
					Message: "Unauthorized",
				})
			}

			c.Set(IdentityContextKey, result.Identity)
			return next(c)
		}
	}
}

// AssertedIdentity returns the identity stored by RequireAPIKey, or "" for a
// secret-only token.
func AssertedIdentity(c echo.Context) string {
	if identity, ok := c.Get(IdentityContextKey).(string); ok {
		return identity
	}
	return ""
}
