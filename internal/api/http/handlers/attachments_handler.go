package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/storage"
)

// AttachmentsHandler streams stored attachment bytes to agents.
type AttachmentsHandler struct {
	attachments repository.AttachmentRepository
	gateway     *storage.Gateway
}

// NewAttachmentsHandler constructs handler.
func NewAttachmentsHandler(attachments repository.AttachmentRepository, gateway *storage.Gateway) *AttachmentsHandler {
	return &AttachmentsHandler{attachments: attachments, gateway: gateway}
}

// Download GET /attachments/:id.
func (h *AttachmentsHandler) Download(c *fiber.Ctx) error {
	attachment, err := h.attachments.GetByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	data, err := h.gateway.Download(c.UserContext(), attachment.StoragePath)
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, attachment.MimeType)
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+attachment.Name+`"`)
	return c.Send(data)
}
