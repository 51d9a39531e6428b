package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/fieldwork-service/internal/domain"
	"github.com/spec-kit/fieldwork-service/internal/events"
	"github.com/spec-kit/fieldwork-service/internal/repository"
)

// --- in-memory fakes ---

type fakeTicketRepo struct {
	mu      sync.Mutex
	tickets map[string]domain.Ticket
	seq     int
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{tickets: map[string]domain.Ticket{}}
}

func (f *fakeTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	ticket.ID = uuid.NewString()
	ticket.TicketNumber = fmt.Sprintf("TKT%05d", f.seq)
	ticket.CreatedAt = time.Now()
	ticket.UpdatedAt = ticket.CreatedAt
	f.tickets[ticket.ID] = *ticket
	return nil
}

func (f *fakeTicketRepo) Update(_ context.Context, ticket *domain.Ticket) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.tickets[ticket.ID]; !ok {
		return pgx.ErrNoRows
	}
	ticket.UpdatedAt = time.Now()
	f.tickets[ticket.ID] = *ticket
	return nil
}

func (f *fakeTicketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ticket, ok := f.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := ticket
	return &copied, nil
}

func (f *fakeTicketRepo) List(_ context.Context, scope repository.TicketScope) ([]domain.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []domain.Ticket
	for _, ticket := range f.tickets {
		if scope.AssignedTeamID != nil {
			if ticket.AssignedTeamID == nil || *ticket.AssignedTeamID != *scope.AssignedTeamID {
				continue
			}
		}
		if len(scope.Statuses) > 0 && !containsStatus(scope.Statuses, ticket.Status) {
			continue
		}
		result = append(result, ticket)
	}
	return result, nil
}

func (f *fakeTicketRepo) Touch(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ticket, ok := f.tickets[id]; ok {
		ticket.UpdatedAt = time.Now()
		f.tickets[id] = ticket
	}
	return nil
}

func containsStatus(statuses []domain.TicketStatus, status domain.TicketStatus) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

type fakeProgressRepo struct {
	mu      sync.Mutex
	entries map[string]domain.ProgressEntry
	order   []string
}

func newFakeProgressRepo() *fakeProgressRepo {
	return &fakeProgressRepo{entries: map[string]domain.ProgressEntry{}}
}

func (f *fakeProgressRepo) Create(_ context.Context, entry *domain.ProgressEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.entries {
		if e.TicketID == entry.TicketID && e.Day == entry.Day && e.TeamID == entry.TeamID {
			return fmt.Errorf("duplicate entry for ticket %s day %d", entry.TicketID, entry.Day)
		}
	}
	if entry.AddedAt.IsZero() {
		entry.AddedAt = time.Now()
	}
	entry.UpdatedAt = entry.AddedAt
	f.entries[entry.ID] = *entry
	f.order = append(f.order, entry.ID)
	return nil
}

func (f *fakeProgressRepo) UpdateContent(_ context.Context, entry *domain.ProgressEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.entries[entry.ID]
	if !ok || stored.FieldOfficerSigned {
		return pgx.ErrNoRows
	}
	stored.Summary = entry.Summary
	stored.Photos = entry.Photos
	stored.AuthorID = entry.AuthorID
	stored.AuthorName = entry.AuthorName
	stored.AuthorEmail = entry.AuthorEmail
	stored.UpdatedAt = time.Now()
	f.entries[entry.ID] = stored
	return nil
}

func (f *fakeProgressRepo) GetByID(_ context.Context, id string) (*domain.ProgressEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry, ok := f.entries[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := entry
	return &copied, nil
}

func (f *fakeProgressRepo) FindByDayAndTeam(_ context.Context, ticketID string, day int, teamID string) (*domain.ProgressEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, entry := range f.entries {
		if entry.TicketID == ticketID && entry.Day == day && entry.TeamID == teamID {
			copied := entry
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeProgressRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.ProgressEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []domain.ProgressEntry
	for _, id := range f.order {
		if entry, ok := f.entries[id]; ok && entry.TicketID == ticketID {
			result = append(result, entry)
		}
	}
	return result, nil
}

func (f *fakeProgressRepo) MarkSigned(_ context.Context, id string, signature string, sigType domain.SignatureType, signedAt time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry, ok := f.entries[id]
	if !ok || entry.FieldOfficerSigned {
		return false, nil
	}
	entry.FieldOfficerSigned = true
	entry.FieldOfficerSignature = &signature
	entry.FieldOfficerSignatureType = &sigType
	entry.FieldOfficerSignedAt = &signedAt
	f.entries[id] = entry
	return true, nil
}

func (f *fakeProgressRepo) SetLinkMirror(_ context.Context, id, token string, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry, ok := f.entries[id]
	if !ok {
		return pgx.ErrNoRows
	}
	entry.ShareableLink = &token
	entry.LinkExpiresAt = &expiresAt
	f.entries[id] = entry
	return nil
}

type fakeLinkRepo struct {
	mu         sync.Mutex
	links      map[string]domain.ShareLink
	now        func() time.Time
	insertErrs []error
}

func newFakeLinkRepo() *fakeLinkRepo {
	return &fakeLinkRepo{links: map[string]domain.ShareLink{}, now: time.Now}
}

func (f *fakeLinkRepo) FindLiveOrCreate(_ context.Context, candidate *domain.ShareLink) (*domain.ShareLink, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, link := range f.links {
		if link.TicketID == candidate.TicketID && link.ProgressID == candidate.ProgressID && link.ExpiresAt.After(f.now()) {
			copied := link
			return &copied, false, nil
		}
	}
	if len(f.insertErrs) > 0 {
		err := f.insertErrs[0]
		f.insertErrs = f.insertErrs[1:]
		return nil, false, err
	}
	candidate.CreatedAt = f.now()
	f.links[candidate.Token] = *candidate
	copied := *candidate
	return &copied, true, nil
}

func (f *fakeLinkRepo) GetByToken(_ context.Context, token string) (*domain.ShareLink, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	link, ok := f.links[token]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := link
	return &copied, nil
}

func (f *fakeLinkRepo) Burn(_ context.Context, token string, now time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	link, ok := f.links[token]
	if !ok || !link.ExpiresAt.After(now) {
		return false, nil
	}
	link.ExpiresAt = time.Unix(0, 0)
	f.links[token] = link
	return true, nil
}

type fakeHistoryRepo struct {
	mu      sync.Mutex
	records []domain.TicketHistory
}

func (f *fakeHistoryRepo) Create(_ context.Context, entry *domain.TicketHistory) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry.ID = uuid.NewString()
	entry.CreatedAt = time.Now()
	f.records = append(f.records, *entry)
	return nil
}

func (f *fakeHistoryRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.TicketHistory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []domain.TicketHistory
	for _, record := range f.records {
		if record.TicketID == ticketID {
			result = append(result, record)
		}
	}
	return result, nil
}

func (f *fakeHistoryRepo) byAction(action domain.HistoryAction) []domain.TicketHistory {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []domain.TicketHistory
	for _, record := range f.records {
		if record.Action == action {
			result = append(result, record)
		}
	}
	return result
}

type fakeTeamRepo struct {
	mu    sync.Mutex
	teams map[string]domain.Team
}

func newFakeTeamRepo() *fakeTeamRepo {
	return &fakeTeamRepo{teams: map[string]domain.Team{}}
}

func (f *fakeTeamRepo) Create(_ context.Context, team *domain.Team) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if team.ID == "" {
		team.ID = uuid.NewString()
	}
	team.CreatedAt = time.Now()
	team.UpdatedAt = team.CreatedAt
	f.teams[team.ID] = *team
	return nil
}

func (f *fakeTeamRepo) GetByID(_ context.Context, id string) (*domain.Team, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	team, ok := f.teams[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := team
	return &copied, nil
}

func (f *fakeTeamRepo) List(_ context.Context) ([]domain.Team, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []domain.Team
	for _, team := range f.teams {
		result = append(result, team)
	}
	return result, nil
}

type fakeDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (f *fakeDispatcher) Publish(_ context.Context, event events.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

func (f *fakeDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (f *fakeDispatcher) byType(eventType events.EventType) []events.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []events.Event
	for _, event := range f.events {
		if event.Type == eventType {
			result = append(result, event)
		}
	}
	return result
}

// --- fixtures ---

type fixture struct {
	tickets    *fakeTicketRepo
	progress   *fakeProgressRepo
	links      *fakeLinkRepo
	history    *fakeHistoryRepo
	teams      *fakeTeamRepo
	dispatcher *fakeDispatcher
}

func newFixture() *fixture {
	return &fixture{
		tickets:    newFakeTicketRepo(),
		progress:   newFakeProgressRepo(),
		links:      newFakeLinkRepo(),
		history:    &fakeHistoryRepo{},
		teams:      newFakeTeamRepo(),
		dispatcher: &fakeDispatcher{},
	}
}

func (f *fixture) addTeam(name string) *domain.Team {
	team := &domain.Team{Name: name, Email: name + "@example.com", IsActive: true}
	_ = f.teams.Create(context.Background(), team)
	return team
}

func (f *fixture) addTicket(workingDays int, teamID *string) *domain.Ticket {
	ticket := &domain.Ticket{
		Status:              domain.TicketStatusPending,
		Name:                "culvert repair",
		AssignmentName:      "north district",
		DateOfCommencement:  time.Now(),
		NumberOfWorkingDays: workingDays,
		CreatedByID:         "admin-1",
		CreatedByName:       "Admin",
	}
	if teamID != nil {
		team, _ := f.teams.GetByID(context.Background(), *teamID)
		ticket.Status = domain.TicketStatusInProgress
		ticket.AssignedTeamID = &team.ID
		ticket.AssignedTeamName = &team.Name
	}
	_ = f.tickets.Create(context.Background(), ticket)
	return ticket
}

func (f *fixture) actorFor(team *domain.Team) TeamActor {
	authorID := "user-" + team.ID
	authorName := "Crew Lead"
	return TeamActor{
		TeamID:     team.ID,
		TeamName:   team.Name,
		TeamEmail:  team.Email,
		AuthorID:   &authorID,
		AuthorName: &authorName,
	}
}

func (f *fixture) progressService() *ProgressService {
	return NewProgressService(ProgressDependencies{
		TicketRepo:   f.tickets,
		ProgressRepo: f.progress,
		HistoryRepo:  f.history,
		Dispatcher:   f.dispatcher,
	})
}

func (f *fixture) linkService(ttl time.Duration) *LinkService {
	return NewLinkService(LinkDependencies{
		TicketRepo:   f.tickets,
		ProgressRepo: f.progress,
		LinkRepo:     f.links,
		HistoryRepo:  f.history,
		Dispatcher:   f.dispatcher,
		TTL:          ttl,
	})
}

func (f *fixture) approvalService() *ApprovalService {
	return NewApprovalService(ApprovalDependencies{
		TicketRepo:   f.tickets,
		ProgressRepo: f.progress,
		HistoryRepo:  f.history,
		Dispatcher:   f.dispatcher,
	})
}

func (f *fixture) ticketService() *TicketService {
	return NewTicketService(TicketDependencies{
		TicketRepo:   f.tickets,
		TeamRepo:     f.teams,
		ProgressRepo: f.progress,
		HistoryRepo:  f.history,
		Dispatcher:   f.dispatcher,
	})
}
