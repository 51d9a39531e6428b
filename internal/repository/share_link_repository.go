package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/fieldwork-service/internal/domain"
)

// ShareLinkRepository persists review-link records keyed by token.
// Consumed links are kept with their expiry forced to the epoch so the
// audit trail survives.
type ShareLinkRepository interface {
	// FindLiveOrCreate returns the live link for (ticket, progress) when one
	// exists, otherwise persists the candidate. The second result reports
	// whether the candidate was inserted. The lookup and insert are a single
	// atomic step, so concurrent issuance cannot mint two live tokens.
	FindLiveOrCreate(ctx context.Context, candidate *domain.ShareLink) (*domain.ShareLink, bool, error)
	GetByToken(ctx context.Context, token string) (*domain.ShareLink, error)
	// Burn permanently invalidates a still-live token. It reports whether
	// this call performed the burn; false means the token was already dead
	// or never existed.
	Burn(ctx context.Context, token string, now time.Time) (bool, error)
}

type shareLinkRepository struct {
	pool *pgxpool.Pool
}

// NewShareLinkRepository instantiates repository.
func NewShareLinkRepository(pool *pgxpool.Pool) ShareLinkRepository {
	return &shareLinkRepository{pool: pool}
}

func (r *shareLinkRepository) FindLiveOrCreate(ctx context.Context, candidate *domain.ShareLink) (*domain.ShareLink, bool, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, false, err
	}
	defer tx.Rollback(ctx)

	// Advisory lock serializes issuance per progress entry; held until commit.
	const lockQuery = `SELECT pg_advisory_xact_lock(hashtext($1))`
	if _, err := tx.Exec(ctx, lockQuery, candidate.TicketID+":"+candidate.ProgressID); err != nil {
		return nil, false, err
	}

	const findQuery = `
        SELECT token, ticket_id, progress_id, expires_at, created_at
        FROM share_links
        WHERE ticket_id=$1 AND progress_id=$2 AND expires_at > NOW()
        ORDER BY created_at DESC LIMIT 1`
	var existing domain.ShareLink
	err = tx.QueryRow(ctx, findQuery, candidate.TicketID, candidate.ProgressID).Scan(
		&existing.Token,
		&existing.TicketID,
		&existing.ProgressID,
		&existing.ExpiresAt,
		&existing.CreatedAt,
	)
	if err == nil {
		if err := tx.Commit(ctx); err != nil {
			return nil, false, err
		}
		return &existing, false, nil
	}
	if err != pgx.ErrNoRows {
		return nil, false, err
	}

	const insertQuery = `
        INSERT INTO share_links (token, ticket_id, progress_id, expires_at)
        VALUES ($1,$2,$3,$4)
        RETURNING created_at`
	if err := tx.QueryRow(ctx, insertQuery,
		candidate.Token,
		candidate.TicketID,
		candidate.ProgressID,
		candidate.ExpiresAt,
	).Scan(&candidate.CreatedAt); err != nil {
		return nil, false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, false, err
	}
	return candidate, true, nil
}

func (r *shareLinkRepository) GetByToken(ctx context.Context, token string) (*domain.ShareLink, error) {
	const query = `
        SELECT token, ticket_id, progress_id, expires_at, created_at
        FROM share_links WHERE token=$1`
	var link domain.ShareLink
	if err := r.pool.QueryRow(ctx, query, token).Scan(
		&link.Token,
		&link.TicketID,
		&link.ProgressID,
		&link.ExpiresAt,
		&link.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &link, nil
}

func (r *shareLinkRepository) Burn(ctx context.Context, token string, now time.Time) (bool, error) {
	const query = `
        UPDATE share_links SET expires_at='epoch'::timestamptz
        WHERE token=$1 AND expires_at > $2`
	cmd, err := r.pool.Exec(ctx, query, token, now)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}
