package handler

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/gofiber/fiber/v2"

	"dataapi/internal/auth"
)

type tokenRequest struct {
	Subject string `json:"subject"`
}

func (r tokenRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Subject, validation.Required, validation.Length(1, 255)),
	)
}

type tokenResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"`
}

// IssueToken handles POST /auth/token. It mints a userPool bearer token for
// the given subject. The endpoint itself is gated on the api key, so token
// issuance stays with trusted callers.
func IssueToken(authn *auth.Authenticator, jwtSecret string, ttl time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req tokenRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "request body must be a JSON object")
		}
		if err := req.Validate(); err != nil {
			return writeError(c, fiber.StatusBadRequest, "VALIDATION_FAILED", err.Error())
		}

		if _, err := resolveActor(c, authn, auth.ModeAPIKey); err != nil {
			return writeError(c, fiber.StatusUnauthorized, "UNAUTHORIZED", "unauthorized")
		}

		token, err := auth.SignToken(jwtSecret, req.Subject, ttl)
		if err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(tokenResponse{Token: token, ExpiresIn: int(ttl.Seconds())})
	}
}
