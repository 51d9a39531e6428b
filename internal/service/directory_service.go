package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/fieldwork-service/internal/domain"
	"github.com/spec-kit/fieldwork-service/internal/repository"
	apperrors "github.com/spec-kit/fieldwork-service/pkg/util"
)

// DirectoryService manages the team and user directory.
type DirectoryService struct {
	teams repository.TeamRepository
	users repository.UserRepository
}

// NewDirectoryService constructs the service.
func NewDirectoryService(teams repository.TeamRepository, users repository.UserRepository) *DirectoryService {
	return &DirectoryService{teams: teams, users: users}
}

// CreateTeam registers a field crew.
func (s *DirectoryService) CreateTeam(ctx context.Context, name, email string) (*domain.Team, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.NewValidationError("team name required", nil)
	}
	team := &domain.Team{
		Name:     name,
		Email:    strings.ToLower(strings.TrimSpace(email)),
		IsActive: true,
	}
	if err := s.teams.Create(ctx, team); err != nil {
		return nil, apperrors.MapError(err)
	}
	return team, nil
}

// GetTeam fetches a team by id.
func (s *DirectoryService) GetTeam(ctx context.Context, id string) (*domain.Team, error) {
	team, err := s.teams.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("team", map[string]any{"team_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return team, nil
}

// ListTeams returns all teams.
func (s *DirectoryService) ListTeams(ctx context.Context) ([]domain.Team, error) {
	teams, err := s.teams.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return teams, nil
}

// ListUsers returns all operator accounts.
func (s *DirectoryService) ListUsers(ctx context.Context) ([]domain.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return users, nil
}
