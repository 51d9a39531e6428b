package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/fieldwork-service/internal/domain"
	"github.com/spec-kit/fieldwork-service/internal/events"
	"github.com/spec-kit/fieldwork-service/internal/repository"
	apperrors "github.com/spec-kit/fieldwork-service/pkg/util"
)

// MaxWorkingDays caps the schedule length of a single ticket.
const MaxWorkingDays = 365

// Actor identifies the authenticated caller for audit purposes.
type Actor struct {
	ID   string
	Name string
}

// TicketService coordinates ticket lifecycle and assignment workflows.
type TicketService struct {
	tickets    repository.TicketRepository
	teams      repository.TeamRepository
	progress   repository.ProgressRepository
	history    repository.HistoryRepository
	dispatcher events.Dispatcher
}

// TicketDependencies bundles repositories for ticket service.
type TicketDependencies struct {
	TicketRepo   repository.TicketRepository
	TeamRepo     repository.TeamRepository
	ProgressRepo repository.ProgressRepository
	HistoryRepo  repository.HistoryRepository
	Dispatcher   events.Dispatcher
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Name                string
	Department          string
	FieldOfficerName    string
	Contact             string
	AssignmentName      string
	Description         string
	DateOfCommencement  time.Time
	NumberOfWorkingDays int
	CompletionDate      *time.Time
	TeamID              *string
}

// TicketFieldsUpdate carries optional work-metadata edits. Nil means the
// field is left unchanged.
type TicketFieldsUpdate struct {
	Name               *string
	Department         *string
	FieldOfficerName   *string
	Contact            *string
	AssignmentName     *string
	Description        *string
	DateOfCommencement *time.Time
	CompletionDate     *time.Time
}

// TicketListInput describes listing parameters before scoping.
type TicketListInput struct {
	Statuses []domain.TicketStatus
	Limit    int
	Offset   int
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:    deps.TicketRepo,
		teams:      deps.TeamRepo,
		progress:   deps.ProgressRepo,
		history:    deps.HistoryRepo,
		dispatcher: deps.Dispatcher,
	}
}

// CreateTicket registers a new field-work ticket. Assigning a team at
// creation starts the ticket in in_progress instead of pending.
func (s *TicketService) CreateTicket(ctx context.Context, actor Actor, input TicketCreateInput) (*domain.Ticket, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, apperrors.NewValidationError("name required", nil)
	}
	if input.NumberOfWorkingDays < 1 || input.NumberOfWorkingDays > MaxWorkingDays {
		return nil, apperrors.NewValidationError("number of working days out of range", map[string]any{
			"min": 1, "max": MaxWorkingDays,
		})
	}

	ticket := &domain.Ticket{
		Status:              domain.TicketStatusPending,
		Name:                strings.TrimSpace(input.Name),
		Department:          strings.TrimSpace(input.Department),
		FieldOfficerName:    strings.TrimSpace(input.FieldOfficerName),
		Contact:             strings.TrimSpace(input.Contact),
		AssignmentName:      strings.TrimSpace(input.AssignmentName),
		Description:         strings.TrimSpace(input.Description),
		DateOfCommencement:  input.DateOfCommencement,
		NumberOfWorkingDays: input.NumberOfWorkingDays,
		CompletionDate:      input.CompletionDate,
		CreatedByID:         actor.ID,
		CreatedByName:       actor.Name,
	}
	if ticket.CompletionDate == nil && !input.DateOfCommencement.IsZero() {
		derived := input.DateOfCommencement.AddDate(0, 0, input.NumberOfWorkingDays-1)
		ticket.CompletionDate = &derived
	}

	if input.TeamID != nil {
		team, err := s.loadActiveTeam(ctx, *input.TeamID)
		if err != nil {
			return nil, err
		}
		ticket.Status = domain.TicketStatusInProgress
		ticket.AssignedTeamID = &team.ID
		ticket.AssignedTeamName = &team.Name
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.appendHistory(ctx, &domain.TicketHistory{
		TicketID:    ticket.ID,
		Action:      domain.ActionTicketCreated,
		ActorID:     &actor.ID,
		ActorName:   actor.Name,
		NewValue:    map[string]any{"status": ticket.Status, "ticket_number": ticket.TicketNumber},
		Description: fmt.Sprintf("ticket %s created", ticket.TicketNumber),
	})
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    eventActor(actor),
		Payload: events.TicketCreatedPayload{
			TicketNumber: ticket.TicketNumber,
			Status:       ticket.Status,
			TeamID:       ticket.AssignedTeamID,
			WorkingDays:  ticket.NumberOfWorkingDays,
		},
	})
	return ticket, nil
}

// GetTicket fetches a ticket with its progress entries and history. Field
// team callers may only read tickets assigned to their team.
func (s *TicketService) GetTicket(ctx context.Context, caller *domain.User, ticketID string) (*domain.Ticket, []domain.ProgressEntry, []domain.TicketHistory, error) {
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, nil, nil, err
	}
	if !canAccessTicket(caller, ticket) {
		return nil, nil, nil, apperrors.NewForbidden("access denied")
	}
	entries, err := s.progress.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, nil, nil, apperrors.MapError(err)
	}
	history, err := s.history.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, nil, nil, apperrors.MapError(err)
	}
	return ticket, entries, history, nil
}

// ListTickets returns tickets visible to the caller: all of them for
// admins, the assigned ones for field teams.
func (s *TicketService) ListTickets(ctx context.Context, caller *domain.User, input TicketListInput) ([]domain.Ticket, error) {
	scope := repository.TicketScope{
		Statuses: input.Statuses,
		Limit:    input.Limit,
		Offset:   input.Offset,
	}
	if caller.Role != domain.RoleAdmin {
		if caller.TeamID == nil {
			return []domain.Ticket{}, nil
		}
		scope.AssignedTeamID = caller.TeamID
	}
	tickets, err := s.tickets.List(ctx, scope)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// UpdateFields applies work-metadata edits to an open ticket.
func (s *TicketService) UpdateFields(ctx context.Context, actor Actor, ticketID string, input TicketFieldsUpdate) (*domain.Ticket, error) {
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.Closed() {
		return nil, apperrors.NewConflict("ticket closed", nil)
	}

	changed := map[string]any{}
	applyString := func(field string, dst *string, src *string) {
		if src == nil {
			return
		}
		next := strings.TrimSpace(*src)
		if next == *dst {
			return
		}
		changed[field] = map[string]any{"old": *dst, "new": next}
		*dst = next
	}
	applyString("name", &ticket.Name, input.Name)
	applyString("department", &ticket.Department, input.Department)
	applyString("field_officer_name", &ticket.FieldOfficerName, input.FieldOfficerName)
	applyString("contact", &ticket.Contact, input.Contact)
	applyString("assignment_name", &ticket.AssignmentName, input.AssignmentName)
	applyString("description", &ticket.Description, input.Description)
	if input.DateOfCommencement != nil {
		changed["date_of_commencement"] = map[string]any{"old": ticket.DateOfCommencement, "new": *input.DateOfCommencement}
		ticket.DateOfCommencement = *input.DateOfCommencement
	}
	if input.CompletionDate != nil {
		ticket.CompletionDate = input.CompletionDate
		changed["completion_date"] = map[string]any{"new": *input.CompletionDate}
	}
	if len(changed) == 0 {
		return ticket, nil
	}

	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.appendHistory(ctx, &domain.TicketHistory{
		TicketID:    ticket.ID,
		Action:      domain.ActionFieldsUpdated,
		ActorID:     &actor.ID,
		ActorName:   actor.Name,
		NewValue:    changed,
		Description: "ticket fields updated",
	})
	return ticket, nil
}

// AssignTeam assigns or reassigns the ticket's team. The first assignment
// of a pending ticket promotes it to in_progress.
func (s *TicketService) AssignTeam(ctx context.Context, actor Actor, ticketID, teamID string) (*domain.Ticket, error) {
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.Closed() {
		return nil, apperrors.NewConflict("ticket closed", nil)
	}
	team, err := s.loadActiveTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}

	oldTeamID := ticket.AssignedTeamID
	oldTeamName := ticket.AssignedTeamName
	ticket.AssignedTeamID = &team.ID
	ticket.AssignedTeamName = &team.Name
	promoted := false
	if ticket.Status == domain.TicketStatusPending {
		ticket.Status = domain.TicketStatusInProgress
		promoted = true
	}

	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	description := fmt.Sprintf("assigned to team %s", team.Name)
	if oldTeamName != nil {
		description = fmt.Sprintf("reassigned from team %s to team %s", *oldTeamName, team.Name)
	}
	if promoted {
		description += "; ticket moved to in_progress"
	}
	s.appendHistory(ctx, &domain.TicketHistory{
		TicketID:    ticket.ID,
		Action:      domain.ActionTeamAssigned,
		ActorID:     &actor.ID,
		ActorName:   actor.Name,
		OldValue:    map[string]any{"team_id": oldTeamID, "team_name": oldTeamName},
		NewValue:    map[string]any{"team_id": team.ID, "team_name": team.Name},
		Description: description,
	})
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketAssigned,
		TicketID: ticket.ID,
		Actor:    eventActor(actor),
		Payload: events.TicketAssignedPayload{
			OldTeamID: oldTeamID,
			NewTeamID: team.ID,
			TeamName:  team.Name,
		},
	})
	return ticket, nil
}

// ChangeStatus is the admin manual override between pending and
// in_progress. It deliberately skips the progress gate, but it cannot
// reach done: the admin-signature path is the only route there, which
// keeps status == done equivalent to admin_signed.
func (s *TicketService) ChangeStatus(ctx context.Context, actor Actor, ticketID string, newStatus domain.TicketStatus) (*domain.Ticket, error) {
	if !domain.ValidTicketStatus(newStatus) {
		return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": newStatus})
	}
	if newStatus == domain.TicketStatusDone {
		return nil, apperrors.NewPreconditionFailed("done is reached through the admin signature", nil)
	}
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.Closed() {
		return nil, apperrors.NewConflict("ticket closed", nil)
	}
	if ticket.Status == newStatus {
		return ticket, nil
	}

	oldStatus := ticket.Status
	ticket.Status = newStatus
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.appendHistory(ctx, &domain.TicketHistory{
		TicketID:    ticket.ID,
		Action:      domain.ActionStatusChanged,
		ActorID:     &actor.ID,
		ActorName:   actor.Name,
		OldValue:    map[string]any{"status": oldStatus},
		NewValue:    map[string]any{"status": newStatus},
		Description: fmt.Sprintf("status changed from %s to %s", oldStatus, newStatus),
	})
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: ticket.ID,
		Actor:    eventActor(actor),
		Payload: events.TicketStatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: newStatus,
		},
	})
	return ticket, nil
}

func (s *TicketService) loadTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

func (s *TicketService) loadActiveTeam(ctx context.Context, teamID string) (*domain.Team, error) {
	team, err := s.teams.GetByID(ctx, teamID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("team", map[string]any{"team_id": teamID})
		}
		return nil, apperrors.MapError(err)
	}
	if !team.IsActive {
		return nil, apperrors.NewConflict("team inactive", map[string]any{"team_id": teamID})
	}
	return team, nil
}

func (s *TicketService) appendHistory(ctx context.Context, entry *domain.TicketHistory) {
	if s.history == nil {
		return
	}
	_ = s.history.Create(ctx, entry)
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	publish(ctx, s.dispatcher, event)
}

func canAccessTicket(caller *domain.User, ticket *domain.Ticket) bool {
	if caller == nil {
		return false
	}
	if caller.Role == domain.RoleAdmin {
		return true
	}
	return caller.TeamID != nil && ticket.AssignedTeamID != nil && *caller.TeamID == *ticket.AssignedTeamID
}

func eventActor(actor Actor) events.Actor {
	id := actor.ID
	return events.Actor{UserID: &id, Name: actor.Name}
}

func publish(ctx context.Context, dispatcher events.Dispatcher, event events.Event) {
	if dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = dispatcher.Publish(ctx, event)
}
