package handler

import (
	"context"
	"database/sql"
	"time"

	"github.com/gofiber/fiber/v2"

	"dataapi/internal/auth"
	"dataapi/internal/service"
)

// HealthCheck reports readiness; it checks DB connectivity only.
func HealthCheck(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable")
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy"})
	}
}

// LivenessProbe is a simple liveness endpoint.
func LivenessProbe() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}
}

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
func RegisterRoutes(app *fiber.App, db *sql.DB, authn *auth.Authenticator, qsvc service.QueryService, asvc service.AttachmentService) {
	app.Get("/health", HealthCheck(db))
	app.Get("/healthz", LivenessProbe())

	// Data API: list/get queries and mutations per registered model.
	app.Post("/models/:model/list", ListRecords(authn, qsvc))
	app.Post("/models/:model", CreateRecord(authn, qsvc))
	app.Get("/models/:model/:id", GetRecord(authn, qsvc))
	app.Patch("/models/:model/:id", UpdateRecord(authn, qsvc))
	app.Delete("/models/:model/:id", DeleteRecord(authn, qsvc))

	// Record attachments (object storage backed).
	app.Post("/models/:model/:id/attachment", UploadAttachment(authn, asvc))
	app.Get("/models/:model/:id/attachment", DownloadAttachment(authn, asvc))
	app.Delete("/models/:model/:id/attachment", DeleteAttachment(authn, asvc))
}
