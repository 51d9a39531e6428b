package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/fieldwork-service/internal/api/http/handlers"
	"github.com/spec-kit/fieldwork-service/internal/auth"
	"github.com/spec-kit/fieldwork-service/internal/domain"
	"github.com/spec-kit/fieldwork-service/internal/observability"
	"github.com/spec-kit/fieldwork-service/internal/repository"
	"github.com/spec-kit/fieldwork-service/internal/service"
)

type memUserRepo struct{ users map[string]domain.User }

func (m *memUserRepo) Create(_ context.Context, user *domain.User) error {
	m.users[user.ID] = *user
	return nil
}

func (m *memUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	user, ok := m.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := user
	return &copied, nil
}

func (m *memUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, user := range m.users {
		if user.Email == email {
			copied := user
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *memUserRepo) List(_ context.Context) ([]domain.User, error) { return nil, nil }

func (m *memUserRepo) UpdatePassword(_ context.Context, _, _ string) error { return nil }

type memTeamRepo struct{ teams map[string]domain.Team }

func (m *memTeamRepo) Create(_ context.Context, team *domain.Team) error {
	m.teams[team.ID] = *team
	return nil
}

func (m *memTeamRepo) GetByID(_ context.Context, id string) (*domain.Team, error) {
	team, ok := m.teams[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := team
	return &copied, nil
}

func (m *memTeamRepo) List(_ context.Context) ([]domain.Team, error) { return nil, nil }

type memTicketRepo struct {
	tickets map[string]domain.Ticket
	seq     int
}

func (m *memTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	m.seq++
	ticket.ID = uuid.NewString()
	ticket.TicketNumber = fmt.Sprintf("TKT%05d", m.seq)
	ticket.CreatedAt = time.Now()
	ticket.UpdatedAt = ticket.CreatedAt
	m.tickets[ticket.ID] = *ticket
	return nil
}

func (m *memTicketRepo) Update(_ context.Context, ticket *domain.Ticket) error {
	if _, ok := m.tickets[ticket.ID]; !ok {
		return pgx.ErrNoRows
	}
	m.tickets[ticket.ID] = *ticket
	return nil
}

func (m *memTicketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	ticket, ok := m.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := ticket
	return &copied, nil
}

func (m *memTicketRepo) List(_ context.Context, _ repository.TicketScope) ([]domain.Ticket, error) {
	return nil, nil
}

func (m *memTicketRepo) Touch(_ context.Context, _ string) error { return nil }

type routerFixture struct {
	app     *fiber.App
	tokens  *auth.TokenManager
	tickets *memTicketRepo
	teamID  string
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()

	teamID := uuid.NewString()
	otherTeamID := uuid.NewString()
	teams := &memTeamRepo{teams: map[string]domain.Team{
		teamID:      {ID: teamID, Name: "alpha", Email: "alpha@example.com", IsActive: true},
		otherTeamID: {ID: otherTeamID, Name: "bravo", Email: "bravo@example.com", IsActive: true},
	}}
	users := &memUserRepo{users: map[string]domain.User{
		"admin-1": {ID: "admin-1", Name: "Admin", Role: domain.RoleAdmin, IsActive: true},
		"crew-1":  {ID: "crew-1", Name: "Crew Lead", Role: domain.RoleFieldTeam, TeamID: &teamID, IsActive: true},
	}}
	tickets := &memTicketRepo{tickets: map[string]domain.Ticket{}}

	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo: tickets,
		TeamRepo:   teams,
	})
	tokens := auth.NewTokenManager("router-test-secret", 30)

	app := fiber.New()
	RegisterMiddlewares(app, zap.NewNop(), observability.NewMetrics(), 0)
	RegisterRoutes(app, RouteConfig{
		Tickets:        handlers.NewTicketsHandler(ticketService, nil),
		AuthMiddleware: auth.NewAuthMiddleware(tokens, users),
	})

	return &routerFixture{app: app, tokens: tokens, tickets: tickets, teamID: teamID}
}

func (f *routerFixture) bearer(t *testing.T, userID string, role domain.Role, teamID *string) string {
	t.Helper()
	token, _, err := f.tokens.GenerateToken(userID, role, teamID)
	require.NoError(t, err)
	return "Bearer " + token
}

func createTicketRequest(t *testing.T, body map[string]any, authorization string) *http.Request {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/tickets", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	return req
}

func TestCreateTicketRoute_FieldTeamSelfAssigns(t *testing.T) {
	f := newRouterFixture(t)

	resp, err := f.app.Test(createTicketRequest(t, map[string]any{
		"name":                   "culvert repair",
		"date_of_commencement":   time.Now().Format(time.RFC3339),
		"number_of_working_days": 3,
	}, f.bearer(t, "crew-1", domain.RoleFieldTeam, &f.teamID)))
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	var created struct {
		Status         domain.TicketStatus `json:"status"`
		AssignedTeamID *string             `json:"assigned_team_id"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.Equal(t, domain.TicketStatusInProgress, created.Status)
	require.NotNil(t, created.AssignedTeamID)
	assert.Equal(t, f.teamID, *created.AssignedTeamID)
}

func TestCreateTicketRoute_FieldTeamCannotCreateForAnotherTeam(t *testing.T) {
	f := newRouterFixture(t)

	resp, err := f.app.Test(createTicketRequest(t, map[string]any{
		"name":                   "culvert repair",
		"date_of_commencement":   time.Now().Format(time.RFC3339),
		"number_of_working_days": 3,
		"team_id":                uuid.NewString(),
	}, f.bearer(t, "crew-1", domain.RoleFieldTeam, &f.teamID)))
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	var created struct {
		AssignedTeamID *string `json:"assigned_team_id"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	require.NotNil(t, created.AssignedTeamID)
	assert.Equal(t, f.teamID, *created.AssignedTeamID)
}

func TestCreateTicketRoute_AdminCreatesUnassigned(t *testing.T) {
	f := newRouterFixture(t)

	resp, err := f.app.Test(createTicketRequest(t, map[string]any{
		"name":                   "culvert repair",
		"date_of_commencement":   time.Now().Format(time.RFC3339),
		"number_of_working_days": 3,
	}, f.bearer(t, "admin-1", domain.RoleAdmin, nil)))
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	var created struct {
		Status         domain.TicketStatus `json:"status"`
		AssignedTeamID *string             `json:"assigned_team_id"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.Equal(t, domain.TicketStatusPending, created.Status)
	assert.Nil(t, created.AssignedTeamID)
}

func TestCreateTicketRoute_RequiresAuthentication(t *testing.T) {
	f := newRouterFixture(t)

	resp, err := f.app.Test(createTicketRequest(t, map[string]any{
		"name":                   "culvert repair",
		"date_of_commencement":   time.Now().Format(time.RFC3339),
		"number_of_working_days": 3,
	}, ""))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAssignTeamRoute_StaysAdminOnly(t *testing.T) {
	f := newRouterFixture(t)

	payload, err := json.Marshal(map[string]any{"team_id": f.teamID})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/tickets/"+uuid.NewString()+"/assign", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", f.bearer(t, "crew-1", domain.RoleFieldTeam, &f.teamID))

	resp, err := f.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
