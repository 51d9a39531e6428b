package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/fieldwork-service/internal/api/dto"
	"github.com/spec-kit/fieldwork-service/internal/domain"
	"github.com/spec-kit/fieldwork-service/internal/service"
	apperrors "github.com/spec-kit/fieldwork-service/pkg/util"
)

// TeamsHandler exposes the team and user directory.
type TeamsHandler struct {
	directory *service.DirectoryService
}

// NewTeamsHandler constructs the handler.
func NewTeamsHandler(directory *service.DirectoryService) *TeamsHandler {
	return &TeamsHandler{directory: directory}
}

// Create registers a field crew. Admin only.
func (h *TeamsHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateTeamRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid request body", nil)
	}
	team, err := h.directory.CreateTeam(c.Context(), req.Name, req.Email)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(toTeamResponse(team))
}

// List returns all teams.
func (h *TeamsHandler) List(c *fiber.Ctx) error {
	teams, err := h.directory.ListTeams(c.Context())
	if err != nil {
		return err
	}
	out := make([]dto.TeamResponse, 0, len(teams))
	for i := range teams {
		out = append(out, toTeamResponse(&teams[i]))
	}
	return c.JSON(fiber.Map{"teams": out})
}

// Get fetches one team.
func (h *TeamsHandler) Get(c *fiber.Ctx) error {
	team, err := h.directory.GetTeam(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(toTeamResponse(team))
}

// ListUsers returns all operator accounts. Admin only.
func (h *TeamsHandler) ListUsers(c *fiber.Ctx) error {
	users, err := h.directory.ListUsers(c.Context())
	if err != nil {
		return err
	}
	out := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		out = append(out, toUserResponse(&users[i]))
	}
	return c.JSON(fiber.Map{"users": out})
}

func toTeamResponse(team *domain.Team) dto.TeamResponse {
	return dto.TeamResponse{
		ID:        team.ID,
		Name:      team.Name,
		Email:     team.Email,
		IsActive:  team.IsActive,
		CreatedAt: team.CreatedAt,
	}
}
