package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"dataapi/internal/auth"
)

const (
	// APIKeyHeader carries the static api key for apiKey-mode requests.
	APIKeyHeader = "X-Api-Key"
	// AuthModeHeader overrides the default auth mode for a single request.
	AuthModeHeader = "X-Auth-Mode"
	// CredentialsLocalKey stores the extracted auth.Credentials in context locals.
	CredentialsLocalKey = "auth_credentials"
	// AuthModeLocalKey stores the requested auth mode override, if any.
	AuthModeLocalKey = "auth_mode"
)

// Credentials extracts request credentials and the optional auth-mode
// override into Fiber context locals. Resolution against the configured
// authenticator happens in the handlers, after any body-level override is
// known.
func Credentials() fiber.Handler {
	return func(c *fiber.Ctx) error {
		creds := auth.Credentials{APIKey: c.Get(APIKeyHeader)}

		if h := c.Get(fiber.HeaderAuthorization); h != "" {
			if tok, ok := strings.CutPrefix(h, "Bearer "); ok {
				creds.Bearer = tok
			}
		}

		c.Locals(CredentialsLocalKey, creds)
		c.Locals(AuthModeLocalKey, auth.Mode(c.Get(AuthModeHeader)))

		return c.Next()
	}
}
