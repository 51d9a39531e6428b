package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/fieldwork-service/internal/domain"
	"github.com/spec-kit/fieldwork-service/internal/events"
	apperrors "github.com/spec-kit/fieldwork-service/pkg/util"
)

var admin = Actor{ID: "admin-1", Name: "Admin"}

func signDay(t *testing.T, f *fixture, team *domain.Team, ticketID string, day int) {
	t.Helper()
	id, err := f.progressService().WriteProgress(context.Background(), f.actorFor(team), WriteProgressInput{
		TicketID: ticketID, Day: day, Summary: "a perfectly fine summary",
	})
	require.NoError(t, err)
	applied, err := f.progress.MarkSigned(context.Background(), id, "J. Officer", domain.SignatureTypeText, time.Now())
	require.NoError(t, err)
	require.True(t, applied)
}

func TestCheckReadiness_ReportsGaps(t *testing.T) {
	f := newFixture()
	team := f.addTeam("alpha")
	ticket := f.addTicket(3, &team.ID)
	svc := f.approvalService()

	readiness, err := svc.CheckReadiness(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.False(t, readiness.Ready)
	assert.Equal(t, []int{1, 2, 3}, readiness.MissingDays)

	signDay(t, f, team, ticket.ID, 1)
	_, err = f.progressService().WriteProgress(context.Background(), f.actorFor(team), WriteProgressInput{
		TicketID: ticket.ID, Day: 3, Summary: "a perfectly fine summary",
	})
	require.NoError(t, err)

	readiness, err = svc.CheckReadiness(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.False(t, readiness.Ready)
	assert.Equal(t, []int{2}, readiness.MissingDays)
	assert.Equal(t, []int{3}, readiness.UnsignedDays)
}

func TestSubmitAdminSignature_GateBlocksUntilAllSigned(t *testing.T) {
	f := newFixture()
	team := f.addTeam("alpha")
	ticket := f.addTicket(2, &team.ID)
	svc := f.approvalService()

	signDay(t, f, team, ticket.ID, 1)

	_, err := svc.SubmitAdminSignature(context.Background(), admin, ticket.ID, "Admin", domain.SignatureTypeText)
	require.Error(t, err)
	domainErr := apperrors.ToDomainError(err)
	assert.Equal(t, "PRECONDITION_FAILED", domainErr.Code)
	assert.Equal(t, []int{2}, domainErr.Details["missing_days"])
}

func TestSubmitAdminSignature_ClosesTicket(t *testing.T) {
	f := newFixture()
	team := f.addTeam("alpha")
	ticket := f.addTicket(2, &team.ID)
	svc := f.approvalService()

	signDay(t, f, team, ticket.ID, 1)
	signDay(t, f, team, ticket.ID, 2)

	closed, err := svc.SubmitAdminSignature(context.Background(), admin, ticket.ID, "Admin Signature", domain.SignatureTypeText)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusDone, closed.Status)
	assert.True(t, closed.AdminSigned)
	assert.True(t, closed.Closed())
	assert.Nil(t, closed.AssignedTeamID)
	assert.Nil(t, closed.AssignedTeamName)
	require.NotNil(t, closed.AdminSignedAt)

	assert.Len(t, f.history.byAction(domain.ActionAdminSigned), 1)
	assert.Len(t, f.dispatcher.byType(events.EventTicketClosed), 1)

	// Terminal: a second signature and any further mutation are rejected.
	_, err = svc.SubmitAdminSignature(context.Background(), admin, ticket.ID, "Admin Signature", domain.SignatureTypeText)
	assert.Equal(t, "CONFLICT", errorCode(t, err))
	_, err = f.ticketService().UpdateFields(context.Background(), admin, ticket.ID, TicketFieldsUpdate{Name: strPtr("renamed")})
	assert.Equal(t, "CONFLICT", errorCode(t, err))
}

func TestSubmitAdminSignature_ValidatesSignature(t *testing.T) {
	f := newFixture()
	team := f.addTeam("alpha")
	ticket := f.addTicket(1, &team.ID)
	svc := f.approvalService()
	signDay(t, f, team, ticket.ID, 1)

	_, err := svc.SubmitAdminSignature(context.Background(), admin, ticket.ID, "x", domain.SignatureTypeText)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(t, err))
	// One character even though two bytes.
	_, err = svc.SubmitAdminSignature(context.Background(), admin, ticket.ID, "ы", domain.SignatureTypeText)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(t, err))
	_, err = svc.SubmitAdminSignature(context.Background(), admin, ticket.ID, "", domain.SignatureTypeImage)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(t, err))
	_, err = svc.SubmitAdminSignature(context.Background(), admin, ticket.ID, "Admin", domain.SignatureType("voice"))
	assert.Equal(t, "VALIDATION_FAILED", errorCode(t, err))
}

func TestReadiness_ReassignedTeamsKeepSeparateEntries(t *testing.T) {
	f := newFixture()
	alpha := f.addTeam("alpha")
	bravo := f.addTeam("bravo")
	ticket := f.addTicket(1, &alpha.ID)
	svc := f.approvalService()

	signDay(t, f, alpha, ticket.ID, 1)

	_, err := f.ticketService().AssignTeam(context.Background(), admin, ticket.ID, bravo.ID)
	require.NoError(t, err)

	bravoEntry, err := f.progressService().WriteProgress(context.Background(), f.actorFor(bravo), WriteProgressInput{
		TicketID: ticket.ID, Day: 1, Summary: "a perfectly fine summary",
	})
	require.NoError(t, err)

	// Each team keeps its own day-1 entry.
	entries, err := f.progress.ListByTicket(context.Background(), ticket.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.NotEqual(t, entries[0].TeamID, entries[1].TeamID)
	assert.True(t, entries[0].FieldOfficerSigned)
	assert.False(t, entries[1].FieldOfficerSigned)

	readiness, err := svc.CheckReadiness(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.False(t, readiness.Ready)
	assert.Empty(t, readiness.MissingDays)
	assert.Equal(t, []int{1}, readiness.UnsignedDays)

	applied, err := f.progress.MarkSigned(context.Background(), bravoEntry, "J. Officer", domain.SignatureTypeText, time.Now())
	require.NoError(t, err)
	require.True(t, applied)

	readiness, err = svc.CheckReadiness(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.True(t, readiness.Ready)
}

func TestSubmitAdminSignature_NoEntriesNotReady(t *testing.T) {
	f := newFixture()
	team := f.addTeam("alpha")
	ticket := f.addTicket(1, &team.ID)

	_, err := f.approvalService().SubmitAdminSignature(context.Background(), admin, ticket.ID, "Admin", domain.SignatureTypeText)
	assert.Equal(t, "PRECONDITION_FAILED", errorCode(t, err))
}

func strPtr(s string) *string { return &s }
