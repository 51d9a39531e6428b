package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/fieldwork-service/internal/api/dto"
	"github.com/spec-kit/fieldwork-service/internal/service"
	apperrors "github.com/spec-kit/fieldwork-service/pkg/util"
)

// ShareHandler serves the public, unauthenticated review surface behind
// shareable links.
type ShareHandler struct {
	links *service.LinkService
}

// NewShareHandler constructs the handler.
func NewShareHandler(links *service.LinkService) *ShareHandler {
	return &ShareHandler{links: links}
}

// View resolves a live token into the review page payload.
func (h *ShareHandler) View(c *fiber.Ctx) error {
	view, err := h.links.FetchByToken(c.Context(), c.Params("token"))
	if err != nil {
		return err
	}
	return c.JSON(dto.LinkViewResponse{
		TicketNumber:       view.TicketNumber,
		TicketName:         view.TicketName,
		AssignmentName:     view.AssignmentName,
		FieldOfficerName:   view.FieldOfficerName,
		Day:                view.Day,
		Summary:            view.Summary,
		Photos:             view.Photos,
		TeamName:           view.TeamName,
		AuthorName:         view.AuthorName,
		FieldOfficerSigned: view.FieldOfficerSigned,
		ExpiresAt:          view.ExpiresAt,
	})
}

// Sign consumes the token and records the field officer signature.
func (h *ShareHandler) Sign(c *fiber.Ctx) error {
	var req dto.SubmitSignatureRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid request body", nil)
	}
	if err := h.links.SubmitSignature(c.Context(), c.Params("token"), req.Signature, req.SignatureType); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"signed": true})
}
