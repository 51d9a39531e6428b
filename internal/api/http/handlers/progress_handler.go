package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/fieldwork-service/internal/api/dto"
	"github.com/spec-kit/fieldwork-service/internal/auth"
	"github.com/spec-kit/fieldwork-service/internal/service"
	"github.com/spec-kit/fieldwork-service/internal/storage"
	apperrors "github.com/spec-kit/fieldwork-service/pkg/util"
)

// maxPhotoBytes caps a single uploaded photo.
const maxPhotoBytes = 10 << 20

// ProgressHandler exposes the daily-progress ledger for field teams.
type ProgressHandler struct {
	progress  *service.ProgressService
	links     *service.LinkService
	directory *service.DirectoryService
	photos    *storage.PhotoStore
	baseURL   string
}

// NewProgressHandler constructs the handler. The photo store may be nil
// when object storage is not configured.
func NewProgressHandler(progress *service.ProgressService, links *service.LinkService, directory *service.DirectoryService, photos *storage.PhotoStore, baseURL string) *ProgressHandler {
	return &ProgressHandler{
		progress:  progress,
		links:     links,
		directory: directory,
		photos:    photos,
		baseURL:   strings.TrimRight(baseURL, "/"),
	}
}

// Write upserts the progress entry for (ticket, day, team).
func (h *ProgressHandler) Write(c *fiber.Ctx) error {
	actor, err := h.teamActor(c)
	if err != nil {
		return err
	}
	var req dto.WriteProgressRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid request body", nil)
	}
	progressID, err := h.progress.WriteProgress(c.Context(), actor, service.WriteProgressInput{
		TicketID:   c.Params("id"),
		Day:        req.Day,
		Summary:    req.Summary,
		Photos:     req.Photos,
		ProgressID: req.ProgressID,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(dto.WriteProgressResponse{ProgressID: progressID})
}

// NextDay reports the next day the caller's team may write for.
func (h *ProgressHandler) NextDay(c *fiber.Ctx) error {
	actor, err := h.teamActor(c)
	if err != nil {
		return err
	}
	day, ok, err := h.progress.NextDay(c.Context(), c.Params("id"), actor.TeamID)
	if err != nil {
		return err
	}
	return c.JSON(dto.NextDayResponse{Day: day, Complete: !ok})
}

// UploadPhoto stores an uploaded photo and attaches its URL to the entry.
func (h *ProgressHandler) UploadPhoto(c *fiber.Ctx) error {
	actor, err := h.teamActor(c)
	if err != nil {
		return err
	}
	if h.photos == nil {
		return apperrors.NewInternalError(errors.New("photo storage not configured"))
	}

	fileHeader, err := c.FormFile("photo")
	if err != nil {
		return apperrors.NewValidationError("photo file required", nil)
	}
	if fileHeader.Size > maxPhotoBytes {
		return apperrors.NewValidationError("photo too large", map[string]any{"max_bytes": maxPhotoBytes})
	}
	file, err := fileHeader.Open()
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, maxPhotoBytes))
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	ticketID := c.Params("id")
	url, err := h.photos.Upload(c.Context(), ticketID, data, contentType)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	entry, err := h.progress.AddPhoto(c.Context(), actor, ticketID, c.Params("progressId"), url)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(dto.PhotoUploadResponse{URL: url, Photos: entry.Photos})
}

// IssueLink returns the live review link for the entry, minting one when
// none exists.
func (h *ProgressHandler) IssueLink(c *fiber.Ctx) error {
	if _, err := h.teamActor(c); err != nil {
		return err
	}
	link, err := h.links.IssueLink(c.Context(), c.Params("id"), c.Params("progressId"))
	if err != nil {
		return err
	}
	return c.JSON(dto.IssueLinkResponse{
		Token:     link.Token,
		URL:       h.baseURL + "/progress/" + link.Token,
		ExpiresAt: link.ExpiresAt,
	})
}

// teamActor resolves the caller into the writing team identity.
func (h *ProgressHandler) teamActor(c *fiber.Ctx) (service.TeamActor, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return service.TeamActor{}, apperrors.NewUnauthorized("authentication required")
	}
	if principal.User.TeamID == nil {
		return service.TeamActor{}, apperrors.NewForbidden("field team membership required")
	}
	team, err := h.directory.GetTeam(c.Context(), *principal.User.TeamID)
	if err != nil {
		return service.TeamActor{}, err
	}
	user := principal.User
	return service.TeamActor{
		TeamID:      team.ID,
		TeamName:    team.Name,
		TeamEmail:   team.Email,
		AuthorID:    &user.ID,
		AuthorName:  &user.Name,
		AuthorEmail: &user.Email,
	}, nil
}
