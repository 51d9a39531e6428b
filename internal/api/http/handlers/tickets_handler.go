package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/fieldwork-service/internal/api/dto"
	"github.com/spec-kit/fieldwork-service/internal/auth"
	"github.com/spec-kit/fieldwork-service/internal/domain"
	"github.com/spec-kit/fieldwork-service/internal/service"
	apperrors "github.com/spec-kit/fieldwork-service/pkg/util"
)

// TicketsHandler exposes ticket lifecycle endpoints.
type TicketsHandler struct {
	tickets   *service.TicketService
	approvals *service.ApprovalService
}

// NewTicketsHandler constructs the handler.
func NewTicketsHandler(tickets *service.TicketService, approvals *service.ApprovalService) *TicketsHandler {
	return &TicketsHandler{tickets: tickets, approvals: approvals}
}

// Create registers a new field-work ticket. Admins may create for any
// team or none; a field team member creates for their own crew, which
// starts the ticket in_progress.
func (h *TicketsHandler) Create(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	actor := service.Actor{ID: principal.User.ID, Name: principal.User.Name}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid request body", nil)
	}
	if principal.User.Role == domain.RoleFieldTeam {
		if principal.User.TeamID == nil {
			return apperrors.NewForbidden("field team membership required")
		}
		req.TeamID = principal.User.TeamID
	}
	ticket, err := h.tickets.CreateTicket(c.Context(), actor, service.TicketCreateInput{
		Name:                req.Name,
		Department:          req.Department,
		FieldOfficerName:    req.FieldOfficerName,
		Contact:             req.Contact,
		AssignmentName:      req.AssignmentName,
		Description:         req.Description,
		DateOfCommencement:  req.DateOfCommencement,
		NumberOfWorkingDays: req.NumberOfWorkingDays,
		CompletionDate:      req.CompletionDate,
		TeamID:              req.TeamID,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(toTicketSummary(ticket))
}

// List returns tickets visible to the caller, optionally filtered by
// status (comma separated) and paginated with limit/offset.
func (h *TicketsHandler) List(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	input := service.TicketListInput{
		Limit:  c.QueryInt("limit", 50),
		Offset: c.QueryInt("offset", 0),
	}
	if raw := c.Query("status"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			status := domain.TicketStatus(strings.TrimSpace(part))
			if !domain.ValidTicketStatus(status) {
				return apperrors.NewValidationError("unknown status", map[string]any{"status": status})
			}
			input.Statuses = append(input.Statuses, status)
		}
	}

	tickets, err := h.tickets.ListTickets(c.Context(), principal.User, input)
	if err != nil {
		return err
	}
	out := make([]dto.TicketSummary, 0, len(tickets))
	for i := range tickets {
		out = append(out, toTicketSummary(&tickets[i]))
	}
	return c.JSON(fiber.Map{"tickets": out, "count": len(out)})
}

// Get fetches one ticket with its progress entries and history.
func (h *TicketsHandler) Get(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	ticket, entries, history, err := h.tickets.GetTicket(c.Context(), principal.User, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(toTicketDetail(ticket, entries, history))
}

// Update applies work-metadata edits to an open ticket. Admin only.
func (h *TicketsHandler) Update(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	var req dto.UpdateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid request body", nil)
	}
	ticket, err := h.tickets.UpdateFields(c.Context(), actor, c.Params("id"), service.TicketFieldsUpdate{
		Name:               req.Name,
		Department:         req.Department,
		FieldOfficerName:   req.FieldOfficerName,
		Contact:            req.Contact,
		AssignmentName:     req.AssignmentName,
		Description:        req.Description,
		DateOfCommencement: req.DateOfCommencement,
		CompletionDate:     req.CompletionDate,
	})
	if err != nil {
		return err
	}
	return c.JSON(toTicketSummary(ticket))
}

// AssignTeam assigns or reassigns the ticket's team. Admin only.
func (h *TicketsHandler) AssignTeam(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	var req dto.AssignTeamRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid request body", nil)
	}
	if strings.TrimSpace(req.TeamID) == "" {
		return apperrors.NewValidationError("team_id required", nil)
	}
	ticket, err := h.tickets.AssignTeam(c.Context(), actor, c.Params("id"), req.TeamID)
	if err != nil {
		return err
	}
	return c.JSON(toTicketSummary(ticket))
}

// ChangeStatus is the admin manual override between pending and
// in_progress.
func (h *TicketsHandler) ChangeStatus(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	var req dto.ChangeStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid request body", nil)
	}
	ticket, err := h.tickets.ChangeStatus(c.Context(), actor, c.Params("id"), req.Status)
	if err != nil {
		return err
	}
	return c.JSON(toTicketSummary(ticket))
}

// Readiness reports how close the ticket is to the final signature.
func (h *TicketsHandler) Readiness(c *fiber.Ctx) error {
	readiness, err := h.approvals.CheckReadiness(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(dto.ReadinessResponse{
		Ready:        readiness.Ready,
		MissingDays:  readiness.MissingDays,
		UnsignedDays: readiness.UnsignedDays,
	})
}

// AdminSignature applies the final signature and closes the ticket.
func (h *TicketsHandler) AdminSignature(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	var req dto.AdminSignatureRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid request body", nil)
	}
	ticket, err := h.approvals.SubmitAdminSignature(c.Context(), actor, c.Params("id"), req.Signature, req.SignatureType)
	if err != nil {
		return err
	}
	return c.JSON(toTicketSummary(ticket))
}

func requireActor(c *fiber.Ctx) (service.Actor, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return service.Actor{}, apperrors.NewUnauthorized("authentication required")
	}
	return service.Actor{ID: principal.User.ID, Name: principal.User.Name}, nil
}

func toTicketSummary(t *domain.Ticket) dto.TicketSummary {
	return dto.TicketSummary{
		ID:                  t.ID,
		TicketNumber:        t.TicketNumber,
		Status:              t.Status,
		Name:                t.Name,
		AssignmentName:      t.AssignmentName,
		DateOfCommencement:  t.DateOfCommencement,
		NumberOfWorkingDays: t.NumberOfWorkingDays,
		CompletionDate:      t.CompletionDate,
		AssignedTeamID:      t.AssignedTeamID,
		AssignedTeamName:    t.AssignedTeamName,
		AdminSigned:         t.AdminSigned,
		CreatedAt:           t.CreatedAt,
		UpdatedAt:           t.UpdatedAt,
	}
}

func toTicketDetail(t *domain.Ticket, entries []domain.ProgressEntry, history []domain.TicketHistory) dto.TicketDetailResponse {
	detail := dto.TicketDetailResponse{
		TicketSummary:    toTicketSummary(t),
		Department:       t.Department,
		FieldOfficerName: t.FieldOfficerName,
		Contact:          t.Contact,
		Description:      t.Description,
		AdminSignedAt:    t.AdminSignedAt,
		DailyProgress:    make([]dto.ProgressEntryResponse, 0, len(entries)),
		History:          make([]dto.HistoryResponse, 0, len(history)),
	}
	for i := range entries {
		detail.DailyProgress = append(detail.DailyProgress, toProgressEntryResponse(&entries[i]))
	}
	for i := range history {
		detail.History = append(detail.History, toHistoryResponse(&history[i]))
	}
	return detail
}

func toProgressEntryResponse(e *domain.ProgressEntry) dto.ProgressEntryResponse {
	return dto.ProgressEntryResponse{
		ID:                 e.ID,
		Day:                e.Day,
		Summary:            e.Summary,
		Photos:             e.Photos,
		TeamID:             e.TeamID,
		TeamName:           e.TeamName,
		AuthorName:         e.AuthorName,
		FieldOfficerSigned: e.FieldOfficerSigned,
		SignatureType:      e.FieldOfficerSignatureType,
		SignedAt:           e.FieldOfficerSignedAt,
		ShareableLink:      e.ShareableLink,
		LinkExpiresAt:      e.LinkExpiresAt,
		AddedAt:            e.AddedAt,
	}
}

func toHistoryResponse(h *domain.TicketHistory) dto.HistoryResponse {
	return dto.HistoryResponse{
		ID:          h.ID,
		Action:      h.Action,
		ActorID:     h.ActorID,
		ActorName:   h.ActorName,
		OldValue:    h.OldValue,
		NewValue:    h.NewValue,
		Description: h.Description,
		CreatedAt:   h.CreatedAt,
	}
}
