package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/fieldwork-service/internal/domain"
	"github.com/spec-kit/fieldwork-service/internal/events"
	"github.com/spec-kit/fieldwork-service/internal/repository"
	apperrors "github.com/spec-kit/fieldwork-service/pkg/util"
)

// ApprovalService computes the admin gate and applies the final signature
// that closes a ticket.
type ApprovalService struct {
	tickets    repository.TicketRepository
	progress   repository.ProgressRepository
	history    repository.HistoryRepository
	dispatcher events.Dispatcher
	now        func() time.Time
}

// ApprovalDependencies bundles repositories for the approval service.
type ApprovalDependencies struct {
	TicketRepo   repository.TicketRepository
	ProgressRepo repository.ProgressRepository
	HistoryRepo  repository.HistoryRepository
	Dispatcher   events.Dispatcher
}

// Readiness describes how close a ticket is to the final signature.
// MissingDays are working days with no entry from any team; UnsignedDays
// are days that have at least one entry still awaiting its field officer
// signature.
type Readiness struct {
	Ready        bool
	MissingDays  []int
	UnsignedDays []int
}

// NewApprovalService constructs the service.
func NewApprovalService(deps ApprovalDependencies) *ApprovalService {
	return &ApprovalService{
		tickets:    deps.TicketRepo,
		progress:   deps.ProgressRepo,
		history:    deps.HistoryRepo,
		dispatcher: deps.Dispatcher,
		now:        time.Now,
	}
}

// CheckReadiness reports whether every working day has an entry and every
// entry, regardless of team, is signed. Not being ready is a normal state,
// not an error.
func (s *ApprovalService) CheckReadiness(ctx context.Context, ticketID string) (*Readiness, error) {
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	entries, err := s.progress.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return computeReadiness(entries, ticket.NumberOfWorkingDays), nil
}

// SubmitAdminSignature re-validates readiness and closes the ticket: the
// signature is stored, status becomes done, and the team assignment is
// released. This transition is terminal.
func (s *ApprovalService) SubmitAdminSignature(ctx context.Context, admin Actor, ticketID, signature string, sigType domain.SignatureType) (*domain.Ticket, error) {
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.AdminSigned {
		return nil, apperrors.NewConflict("ticket already signed", nil)
	}

	switch sigType {
	case domain.SignatureTypeText:
		signature = SanitizeText(signature)
		if utf8.RuneCountInString(signature) < minSignatureLength {
			return nil, apperrors.NewValidationError("signature too short", map[string]any{
				"min_length": minSignatureLength,
			})
		}
	case domain.SignatureTypeImage:
		if signature == "" {
			return nil, apperrors.NewValidationError("signature payload required", nil)
		}
	default:
		return nil, apperrors.NewValidationError("unsupported signature type", map[string]any{"type": sigType})
	}

	entries, err := s.progress.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	readiness := computeReadiness(entries, ticket.NumberOfWorkingDays)
	if !readiness.Ready {
		return nil, apperrors.NewPreconditionFailed("not all working days are signed", map[string]any{
			"missing_days":  readiness.MissingDays,
			"unsigned_days": readiness.UnsignedDays,
		})
	}

	now := s.now()
	oldStatus := ticket.Status
	releasedTeam := ticket.AssignedTeamName
	ticket.AdminSigned = true
	ticket.AdminSignature = &signature
	ticket.AdminSignatureType = &sigType
	ticket.AdminSignedAt = &now
	ticket.Status = domain.TicketStatusDone
	ticket.AssignedTeamID = nil
	ticket.AssignedTeamName = nil

	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	if s.history != nil {
		_ = s.history.Create(ctx, &domain.TicketHistory{
			TicketID:    ticket.ID,
			Action:      domain.ActionAdminSigned,
			ActorID:     &admin.ID,
			ActorName:   admin.Name,
			OldValue:    map[string]any{"status": oldStatus, "team_name": releasedTeam},
			NewValue:    map[string]any{"status": domain.TicketStatusDone, "signature_type": sigType},
			Description: fmt.Sprintf("ticket %s closed with admin signature", ticket.TicketNumber),
		})
	}
	publish(ctx, s.dispatcher, events.Event{
		Type:     events.EventTicketClosed,
		TicketID: ticket.ID,
		Actor:    eventActor(admin),
		Payload: events.TicketClosedPayload{
			TicketNumber:  ticket.TicketNumber,
			SignatureType: sigType,
			ReleasedTeam:  releasedTeam,
		},
	})
	return ticket, nil
}

func (s *ApprovalService) loadTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

func computeReadiness(entries []domain.ProgressEntry, workingDays int) *Readiness {
	covered := make(map[int]bool, workingDays)
	unsigned := make(map[int]bool)
	for _, e := range entries {
		covered[e.Day] = true
		if !e.FieldOfficerSigned {
			unsigned[e.Day] = true
		}
	}

	readiness := &Readiness{}
	for day := 1; day <= workingDays; day++ {
		if !covered[day] {
			readiness.MissingDays = append(readiness.MissingDays, day)
		}
	}
	for day := range unsigned {
		readiness.UnsignedDays = append(readiness.UnsignedDays, day)
	}
	sort.Ints(readiness.UnsignedDays)

	readiness.Ready = len(entries) > 0 &&
		len(readiness.MissingDays) == 0 &&
		len(readiness.UnsignedDays) == 0
	return readiness
}
