package handler

import (
	"encoding/json"
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"dataapi/internal/auth"
	"dataapi/internal/http/middleware"
	"dataapi/internal/query"
	"dataapi/internal/service"
)

// listRequest is the body of a list query. All fields are optional; an
// empty body lists the first page with the default limit.
type listRequest struct {
	Filter    json.RawMessage `json:"filter"`
	Limit     int             `json:"limit"`
	NextToken string          `json:"nextToken"`
	AuthMode  string          `json:"authMode"`
}

func (r listRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Limit, validation.Min(0), validation.Max(service.MaxLimit)),
		validation.Field(&r.AuthMode, validation.In("", string(auth.ModeAPIKey), string(auth.ModeUserPool))),
	)
}

// resolveActor authenticates the request. Mode precedence: explicit override
// from the request body, then the X-Auth-Mode header, then inference from
// the supplied credentials.
func resolveActor(c *fiber.Ctx, authn *auth.Authenticator, override auth.Mode) (auth.Context, error) {
	creds, _ := c.Locals(middleware.CredentialsLocalKey).(auth.Credentials)
	mode := override
	if mode == "" {
		mode, _ = c.Locals(middleware.AuthModeLocalKey).(auth.Mode)
	}
	return authn.Resolve(mode, creds)
}

// ListRecords handles POST /models/:model/list.
func ListRecords(authn *auth.Authenticator, svc service.QueryService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req listRequest
		if len(c.Body()) > 0 {
			if err := json.Unmarshal(c.Body(), &req); err != nil {
				return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "request body must be a JSON object")
			}
		}
		if err := req.Validate(); err != nil {
			return writeError(c, fiber.StatusBadRequest, "VALIDATION_FAILED", err.Error())
		}

		actor, err := resolveActor(c, authn, auth.Mode(req.AuthMode))
		if err != nil {
			return writeError(c, fiber.StatusUnauthorized, "UNAUTHORIZED", "unauthorized")
		}

		res, err := svc.List(c.UserContext(), service.ListInput{
			Model:     c.Params("model"),
			Filter:    req.Filter,
			Limit:     req.Limit,
			NextToken: req.NextToken,
			Actor:     actor,
		})
		if err != nil {
			return mapServiceError(c, err)
		}
		return c.JSON(res)
	}
}

// GetRecord handles GET /models/:model/:id. The selection set arrives as a
// comma-separated list of dot paths in the "select" query parameter.
func GetRecord(authn *auth.Authenticator, svc service.QueryService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}

		actor, err := resolveActor(c, authn, "")
		if err != nil {
			return writeError(c, fiber.StatusUnauthorized, "UNAUTHORIZED", "unauthorized")
		}

		rec, err := svc.Get(c.UserContext(), service.GetInput{
			Model:        c.Params("model"),
			ID:           id,
			SelectionSet: splitSelection(c.Query("select")),
			Actor:        actor,
		})
		if err != nil {
			return mapServiceError(c, err)
		}
		return c.JSON(rec)
	}
}

// CreateRecord handles POST /models/:model.
func CreateRecord(authn *auth.Authenticator, svc service.QueryService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		values, err := decodeValues(c)
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "request body must be a JSON object")
		}

		actor, err := resolveActor(c, authn, "")
		if err != nil {
			return writeError(c, fiber.StatusUnauthorized, "UNAUTHORIZED", "unauthorized")
		}

		rec, err := svc.Create(c.UserContext(), service.MutateInput{
			Model:  c.Params("model"),
			Values: values,
			Actor:  actor,
		})
		if err != nil {
			return mapServiceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(rec)
	}
}

// UpdateRecord handles PATCH /models/:model/:id.
func UpdateRecord(authn *auth.Authenticator, svc service.QueryService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}

		values, err := decodeValues(c)
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "request body must be a JSON object")
		}

		actor, err := resolveActor(c, authn, "")
		if err != nil {
			return writeError(c, fiber.StatusUnauthorized, "UNAUTHORIZED", "unauthorized")
		}

		rec, err := svc.Update(c.UserContext(), service.MutateInput{
			Model:  c.Params("model"),
			ID:     id,
			Values: values,
			Actor:  actor,
		})
		if err != nil {
			return mapServiceError(c, err)
		}
		return c.JSON(rec)
	}
}

// DeleteRecord handles DELETE /models/:model/:id.
func DeleteRecord(authn *auth.Authenticator, svc service.QueryService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}

		actor, err := resolveActor(c, authn, "")
		if err != nil {
			return writeError(c, fiber.StatusUnauthorized, "UNAUTHORIZED", "unauthorized")
		}

		if err := svc.Delete(c.UserContext(), service.DeleteInput{
			Model: c.Params("model"),
			ID:    id,
			Actor: actor,
		}); err != nil {
			return mapServiceError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

func decodeValues(c *fiber.Ctx) (map[string]json.RawMessage, error) {
	values := make(map[string]json.RawMessage)
	if err := json.Unmarshal(c.Body(), &values); err != nil {
		return nil, err
	}
	return values, nil
}

func splitSelection(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// mapServiceError translates service and query errors into the standardized
// error envelope. Client errors carry their cause; internals stay opaque.
func mapServiceError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrUnknownModel):
		return writeError(c, fiber.StatusNotFound, "UNKNOWN_MODEL", "unknown model")
	case errors.Is(err, service.ErrNotFound):
		return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "record not found")
	case errors.Is(err, service.ErrAttachmentNotFound):
		return writeError(c, fiber.StatusNotFound, "ATTACHMENT_NOT_FOUND", "attachment not found")
	case errors.Is(err, service.ErrIDRequired):
		return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "id is required")
	case errors.Is(err, service.ErrInvalidInput):
		return writeError(c, fiber.StatusBadRequest, "INVALID_INPUT", err.Error())
	case errors.Is(err, query.ErrInvalidFilter):
		return writeError(c, fiber.StatusBadRequest, "INVALID_FILTER", err.Error())
	case errors.Is(err, query.ErrInvalidSelection):
		return writeError(c, fiber.StatusBadRequest, "INVALID_SELECTION", err.Error())
	case errors.Is(err, query.ErrBadCursor):
		return writeError(c, fiber.StatusBadRequest, "INVALID_TOKEN", "invalid pagination token")
	case errors.Is(err, auth.ErrUnauthorized):
		return writeError(c, fiber.StatusUnauthorized, "UNAUTHORIZED", "unauthorized")
	default:
		return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}
