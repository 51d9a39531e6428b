package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/fieldwork-service/internal/domain"
	"github.com/spec-kit/fieldwork-service/internal/events"
	"github.com/spec-kit/fieldwork-service/internal/repository"
	apperrors "github.com/spec-kit/fieldwork-service/pkg/util"
)

// minSummaryLength is the smallest accepted progress summary after
// sanitization.
const minSummaryLength = 10

// ProgressService is the daily-progress ledger: one entry per
// (ticket, day, team), created on first write and updated in place until
// the field officer signs it.
type ProgressService struct {
	tickets    repository.TicketRepository
	progress   repository.ProgressRepository
	history    repository.HistoryRepository
	dispatcher events.Dispatcher
	now        func() time.Time
}

// ProgressDependencies bundles repositories for the ledger.
type ProgressDependencies struct {
	TicketRepo   repository.TicketRepository
	ProgressRepo repository.ProgressRepository
	HistoryRepo  repository.HistoryRepository
	Dispatcher   events.Dispatcher
}

// TeamActor carries the writing team's identity plus the optional human
// author behind the write.
type TeamActor struct {
	TeamID      string
	TeamName    string
	TeamEmail   string
	AuthorID    *string
	AuthorName  *string
	AuthorEmail *string
}

// WriteProgressInput describes one ledger write. Photos distinguishes
// omitted (nil, keep the stored list) from an explicit replacement,
// including an explicit empty list.
type WriteProgressInput struct {
	TicketID   string
	Day        int
	Summary    string
	Photos     *[]string
	ProgressID *string
}

// NewProgressService constructs the ledger.
func NewProgressService(deps ProgressDependencies) *ProgressService {
	return &ProgressService{
		tickets:    deps.TicketRepo,
		progress:   deps.ProgressRepo,
		history:    deps.HistoryRepo,
		dispatcher: deps.Dispatcher,
		now:        time.Now,
	}
}

// WriteProgress upserts the progress entry for (ticket, day, team) and
// returns its id. An explicit progress id wins over day/team resolution;
// only when neither matches is a new entry appended.
func (s *ProgressService) WriteProgress(ctx context.Context, actor TeamActor, input WriteProgressInput) (string, error) {
	ticket, err := s.loadTicket(ctx, input.TicketID)
	if err != nil {
		return "", err
	}
	if ticket.Closed() {
		return "", apperrors.NewConflict("ticket closed", nil)
	}
	if ticket.AssignedTeamID == nil || *ticket.AssignedTeamID != actor.TeamID {
		return "", apperrors.NewForbidden("ticket is not assigned to your team")
	}
	if input.Day < 1 || input.Day > ticket.NumberOfWorkingDays {
		return "", apperrors.NewValidationError("day exceeds working days", map[string]any{
			"day": input.Day, "working_days": ticket.NumberOfWorkingDays,
		})
	}
	summary := SanitizeText(input.Summary)
	if utf8.RuneCountInString(summary) < minSummaryLength {
		return "", apperrors.NewValidationError("summary too short", map[string]any{
			"min_length": minSummaryLength,
		})
	}

	existing, err := s.resolveEntry(ctx, ticket.ID, input, actor.TeamID)
	if err != nil {
		return "", err
	}

	if existing != nil {
		if existing.FieldOfficerSigned {
			return "", apperrors.NewConflict("entry already signed", map[string]any{"day": existing.Day})
		}
		existing.Summary = summary
		if input.Photos != nil {
			existing.Photos = *input.Photos
		}
		existing.AuthorID = actor.AuthorID
		existing.AuthorName = actor.AuthorName
		existing.AuthorEmail = actor.AuthorEmail
		if err := s.progress.UpdateContent(ctx, existing); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return "", apperrors.NewConflict("entry already signed", map[string]any{"day": existing.Day})
			}
			return "", apperrors.MapError(err)
		}
		s.finishWrite(ctx, ticket, actor, existing, true)
		return existing.ID, nil
	}

	entry := &domain.ProgressEntry{
		ID:          uuid.NewString(),
		TicketID:    ticket.ID,
		Day:         input.Day,
		Summary:     summary,
		TeamID:      actor.TeamID,
		TeamName:    actor.TeamName,
		TeamEmail:   actor.TeamEmail,
		AuthorID:    actor.AuthorID,
		AuthorName:  actor.AuthorName,
		AuthorEmail: actor.AuthorEmail,
	}
	if input.Photos != nil {
		entry.Photos = *input.Photos
	}
	if err := s.progress.Create(ctx, entry); err != nil {
		return "", apperrors.MapError(err)
	}
	s.appendHistory(ctx, &domain.TicketHistory{
		TicketID:    ticket.ID,
		Action:      domain.ActionProgressAdded,
		ActorID:     actor.AuthorID,
		ActorName:   actor.TeamName,
		NewValue:    map[string]any{"day": entry.Day, "progress_id": entry.ID},
		Description: fmt.Sprintf("progress recorded for day %d by team %s", entry.Day, actor.TeamName),
	})
	s.finishWrite(ctx, ticket, actor, entry, false)
	return entry.ID, nil
}

// AddPhoto appends an uploaded photo URL to an unsigned entry.
func (s *ProgressService) AddPhoto(ctx context.Context, actor TeamActor, ticketID, progressID, url string) (*domain.ProgressEntry, error) {
	entry, err := s.loadEntry(ctx, ticketID, progressID)
	if err != nil {
		return nil, err
	}
	if entry.TeamID != actor.TeamID {
		return nil, apperrors.NewForbidden("entry belongs to another team")
	}
	if entry.FieldOfficerSigned {
		return nil, apperrors.NewConflict("entry already signed", map[string]any{"day": entry.Day})
	}
	entry.Photos = append(entry.Photos, url)
	if err := s.progress.UpdateContent(ctx, entry); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewConflict("entry already signed", map[string]any{"day": entry.Day})
		}
		return nil, apperrors.MapError(err)
	}
	_ = s.tickets.Touch(ctx, ticketID)
	return entry, nil
}

// NextDay reports the next day the team may write progress for, or false
// when the schedule is complete.
func (s *ProgressService) NextDay(ctx context.Context, ticketID, teamID string) (int, bool, error) {
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return 0, false, err
	}
	entries, err := s.progress.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return 0, false, apperrors.MapError(err)
	}
	mine := entries[:0:0]
	for _, e := range entries {
		if e.TeamID == teamID {
			mine = append(mine, e)
		}
	}
	day, ok := domain.NextWritableDay(mine, ticket.NumberOfWorkingDays, s.now())
	return day, ok, nil
}

func (s *ProgressService) resolveEntry(ctx context.Context, ticketID string, input WriteProgressInput, teamID string) (*domain.ProgressEntry, error) {
	if input.ProgressID != nil {
		entry, err := s.progress.GetByID(ctx, *input.ProgressID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, apperrors.NewNotFound("progress entry", map[string]any{"progress_id": *input.ProgressID})
			}
			return nil, apperrors.MapError(err)
		}
		if entry.TicketID != ticketID {
			return nil, apperrors.NewNotFound("progress entry", map[string]any{"progress_id": *input.ProgressID})
		}
		if entry.TeamID != teamID {
			return nil, apperrors.NewForbidden("entry belongs to another team")
		}
		return entry, nil
	}
	entry, err := s.progress.FindByDayAndTeam(ctx, ticketID, input.Day, teamID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, apperrors.MapError(err)
	}
	return entry, nil
}

func (s *ProgressService) finishWrite(ctx context.Context, ticket *domain.Ticket, actor TeamActor, entry *domain.ProgressEntry, updated bool) {
	_ = s.tickets.Touch(ctx, ticket.ID)
	publish(ctx, s.dispatcher, events.Event{
		Type:     events.EventProgressRecorded,
		TicketID: ticket.ID,
		Actor:    events.Actor{UserID: actor.AuthorID, Name: actor.TeamName},
		Payload: events.ProgressRecordedPayload{
			ProgressID: entry.ID,
			Day:        entry.Day,
			TeamID:     actor.TeamID,
			Updated:    updated,
		},
	})
}

func (s *ProgressService) loadTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

func (s *ProgressService) loadEntry(ctx context.Context, ticketID, progressID string) (*domain.ProgressEntry, error) {
	entry, err := s.progress.GetByID(ctx, progressID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("progress entry", map[string]any{"progress_id": progressID})
		}
		return nil, apperrors.MapError(err)
	}
	if entry.TicketID != ticketID {
		return nil, apperrors.NewNotFound("progress entry", map[string]any{"progress_id": progressID})
	}
	return entry, nil
}

func (s *ProgressService) appendHistory(ctx context.Context, entry *domain.TicketHistory) {
	if s.history == nil {
		return
	}
	_ = s.history.Create(ctx, entry)
}

// SanitizeText trims whitespace and strips control characters from
// free-text input.
func SanitizeText(input string) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			return -1
		}
		return r
	}, input)
	return strings.TrimSpace(cleaned)
}
