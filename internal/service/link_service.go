package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/spec-kit/fieldwork-service/internal/domain"
	"github.com/spec-kit/fieldwork-service/internal/events"
	"github.com/spec-kit/fieldwork-service/internal/repository"
	apperrors "github.com/spec-kit/fieldwork-service/pkg/util"
)

// Token alphabet excludes characters that read ambiguously when a link is
// dictated over the phone (0/O, 1/l/I).
const (
	tokenAlphabet = "abcdefghijkmnpqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	tokenLength   = 20

	// maxTokenAttempts bounds regeneration when a freshly minted token
	// collides with an existing row.
	maxTokenAttempts = 3

	minSignatureLength = 2
)

// isTokenCollision reports whether the insert failed on the token primary
// key so the caller can mint a new token and retry.
func isTokenCollision(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// linkNotFound is returned for unknown and expired tokens alike so callers
// cannot probe which tokens ever existed.
func linkNotFound() error {
	return apperrors.NewDomainError("NOT_FOUND", "invalid or expired link", http.StatusNotFound, nil)
}

// LinkService mints single-use review links and accepts the external field
// officer signatures submitted through them.
type LinkService struct {
	tickets    repository.TicketRepository
	progress   repository.ProgressRepository
	links      repository.ShareLinkRepository
	history    repository.HistoryRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	ttl        time.Duration
	now        func() time.Time
}

// LinkDependencies bundles collaborators for the link service.
type LinkDependencies struct {
	TicketRepo   repository.TicketRepository
	ProgressRepo repository.ProgressRepository
	LinkRepo     repository.ShareLinkRepository
	HistoryRepo  repository.HistoryRepository
	Dispatcher   events.Dispatcher
	Logger       *zap.Logger
	TTL          time.Duration
}

// LinkView is the read model served to an unauthenticated link holder.
type LinkView struct {
	TicketNumber       string
	TicketName         string
	AssignmentName     string
	FieldOfficerName   string
	Day                int
	Summary            string
	Photos             []string
	TeamName           string
	AuthorName         *string
	FieldOfficerSigned bool
	ExpiresAt          time.Time
}

// NewLinkService constructs the service.
func NewLinkService(deps LinkDependencies) *LinkService {
	ttl := deps.TTL
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LinkService{
		tickets:    deps.TicketRepo,
		progress:   deps.ProgressRepo,
		links:      deps.LinkRepo,
		history:    deps.HistoryRepo,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		ttl:        ttl,
		now:        time.Now,
	}
}

// IssueLink returns the live link for the progress entry, minting one when
// none exists. Re-requests while a token is live return it unchanged; the
// lifetime is never extended.
func (s *LinkService) IssueLink(ctx context.Context, ticketID, progressID string) (*domain.ShareLink, error) {
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
	if entry.FieldOfficerSigned {
		return nil, apperrors.NewConflict("entry already signed", map[string]any{"day": entry.Day})
	}

	var (
		link    *domain.ShareLink
		created bool
	)
	for attempt := 0; ; attempt++ {
		token, err := GenerateLinkToken()
		if err != nil {
			return nil, apperrors.NewInternalError(err)
		}
		candidate := &domain.ShareLink{
			Token:      token,
			TicketID:   ticketID,
			ProgressID: progressID,
			ExpiresAt:  s.now().Add(s.ttl),
		}
		link, created, err = s.links.FindLiveOrCreate(ctx, candidate)
		if err == nil {
			break
		}
		if attempt < maxTokenAttempts-1 && isTokenCollision(err) {
			s.logger.Warn("share link token collision, regenerating",
				zap.String("progress_id", progressID))
			continue
		}
		return nil, apperrors.MapError(err)
	}

	if created {
		// Mirror for display only; the link record stays authoritative.
		if err := s.progress.SetLinkMirror(ctx, entry.ID, link.Token, link.ExpiresAt); err != nil {
			s.logger.Warn("failed to mirror link onto progress entry",
				zap.String("progress_id", entry.ID), zap.Error(err))
		}
	}
	publish(ctx, s.dispatcher, events.Event{
		Type:     events.EventLinkIssued,
		TicketID: ticketID,
		Payload: events.LinkIssuedPayload{
			ProgressID: progressID,
			ExpiresAt:  link.ExpiresAt,
			Reissued:   !created,
		},
	})
	return link, nil
}

// FetchByToken resolves a live link into the review view. Unknown and
// expired tokens are indistinguishable to the caller.
func (s *LinkService) FetchByToken(ctx context.Context, token string) (*LinkView, error) {
	link, entry, err := s.resolveLive(ctx, token)
	if err != nil {
		return nil, err
	}
	ticket, err := s.tickets.GetByID(ctx, entry.TicketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return &LinkView{
		TicketNumber:       ticket.TicketNumber,
		TicketName:         ticket.Name,
		AssignmentName:     ticket.AssignmentName,
		FieldOfficerName:   ticket.FieldOfficerName,
		Day:                entry.Day,
		Summary:            entry.Summary,
		Photos:             entry.Photos,
		TeamName:           entry.TeamName,
		AuthorName:         entry.AuthorName,
		FieldOfficerSigned: entry.FieldOfficerSigned,
		ExpiresAt:          link.ExpiresAt,
	}, nil
}

// SubmitSignature consumes the token and applies the field officer
// signature exactly once. The burn happens before the signature write, so
// an interrupted submission leaves the token dead rather than reusable.
func (s *LinkService) SubmitSignature(ctx context.Context, token, signature string, sigType domain.SignatureType) error {
	_, entry, err := s.resolveLive(ctx, token)
	if err != nil {
		return err
	}
	if entry.FieldOfficerSigned {
		return apperrors.NewConflict("already signed", map[string]any{"day": entry.Day})
	}

	switch sigType {
	case domain.SignatureTypeText:
		signature = SanitizeText(signature)
		if utf8.RuneCountInString(signature) < minSignatureLength {
			return apperrors.NewValidationError("signature too short", map[string]any{
				"min_length": minSignatureLength,
			})
		}
	case domain.SignatureTypeImage:
		if signature == "" {
			return apperrors.NewValidationError("signature payload required", nil)
		}
	default:
		return apperrors.NewValidationError("unsupported signature type", map[string]any{"type": sigType})
	}

	now := s.now()
	burned, err := s.links.Burn(ctx, token, now)
	if err != nil {
		return apperrors.MapError(err)
	}
	if !burned {
		// Lost the race to a concurrent submission or to expiry.
		return linkNotFound()
	}

	applied, err := s.progress.MarkSigned(ctx, entry.ID, signature, sigType, now)
	if err != nil {
		return apperrors.MapError(err)
	}
	if !applied {
		return apperrors.NewConflict("already signed", map[string]any{"day": entry.Day})
	}

	_ = s.tickets.Touch(ctx, entry.TicketID)
	if s.history != nil {
		_ = s.history.Create(ctx, &domain.TicketHistory{
			TicketID:    entry.TicketID,
			Action:      domain.ActionProgressSigned,
			ActorName:   "field officer",
			NewValue:    map[string]any{"day": entry.Day, "progress_id": entry.ID, "signature_type": sigType},
			Description: fmt.Sprintf("day %d progress signed by field officer", entry.Day),
		})
	}
	publish(ctx, s.dispatcher, events.Event{
		Type:     events.EventProgressSigned,
		TicketID: entry.TicketID,
		Payload: events.ProgressSignedPayload{
			ProgressID:    entry.ID,
			Day:           entry.Day,
			SignatureType: sigType,
		},
	})
	return nil
}

func (s *LinkService) resolveLive(ctx context.Context, token string) (*domain.ShareLink, *domain.ProgressEntry, error) {
	link, err := s.links.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, linkNotFound()
		}
		return nil, nil, apperrors.MapError(err)
	}
	if !link.Live(s.now()) {
		return nil, nil, linkNotFound()
	}
	entry, err := s.progress.GetByID(ctx, link.ProgressID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, linkNotFound()
		}
		return nil, nil, apperrors.MapError(err)
	}
	return link, entry, nil
}

// GenerateLinkToken produces a random token over the fixed alphabet.
func GenerateLinkToken() (string, error) {
	buf := make([]byte, tokenLength)
	max := big.NewInt(int64(len(tokenAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = tokenAlphabet[n.Int64()]
	}
	return string(buf), nil
}
