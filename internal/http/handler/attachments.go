package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"dataapi/internal/auth"
	"dataapi/internal/service"
)

// UploadAttachment handles POST /models/:model/:id/attachment
// (multipart/form-data, field name: file).
func UploadAttachment(authn *auth.Authenticator, svc service.AttachmentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}

		fh, err := c.FormFile("file")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
		}
		f, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}
		defer f.Close()

		ct := fh.Header.Get("Content-Type")
		if ct == "" {
			ct = "application/octet-stream"
		}

		actor, err := resolveActor(c, authn, "")
		if err != nil {
			return writeError(c, fiber.StatusUnauthorized, "UNAUTHORIZED", "unauthorized")
		}

		att, err := svc.Upload(c.UserContext(), c.Params("model"), id, f, fh.Filename, ct, fh.Size, actor)
		if err != nil {
			return mapServiceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(att)
	}
}

// DownloadAttachment handles GET /models/:model/:id/attachment. By default
// it returns a presigned URL; with ?direct=true it streams the content.
func DownloadAttachment(authn *auth.Authenticator, svc service.AttachmentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}

		actor, err := resolveActor(c, authn, "")
		if err != nil {
			return writeError(c, fiber.StatusUnauthorized, "UNAUTHORIZED", "unauthorized")
		}

		if c.QueryBool("direct") {
			rc, att, err := svc.Open(c.UserContext(), c.Params("model"), id, actor)
			if err != nil {
				return mapServiceError(c, err)
			}
			c.Set(fiber.HeaderContentType, att.ContentType)
			c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+att.Filename+`"`)
			return c.SendStream(rc, int(att.Size))
		}

		url, err := svc.PresignDownload(c.UserContext(), c.Params("model"), id, actor)
		if err != nil {
			return mapServiceError(c, err)
		}
		return c.JSON(fiber.Map{"url": url})
	}
}

// DeleteAttachment handles DELETE /models/:model/:id/attachment.
func DeleteAttachment(authn *auth.Authenticator, svc service.AttachmentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}

		actor, err := resolveActor(c, authn, "")
		if err != nil {
			return writeError(c, fiber.StatusUnauthorized, "UNAUTHORIZED", "unauthorized")
		}

		if err := svc.Delete(c.UserContext(), c.Params("model"), id, actor); err != nil {
			return mapServiceError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
