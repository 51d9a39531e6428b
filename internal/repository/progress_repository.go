package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/fieldwork-service/internal/domain"
)

// ProgressRepository persists daily progress entries as first-class rows
// keyed by id, with a uniqueness guarantee on (ticket, day, team).
type ProgressRepository interface {
	Create(ctx context.Context, entry *domain.ProgressEntry) error
	UpdateContent(ctx context.Context, entry *domain.ProgressEntry) error
	GetByID(ctx context.Context, id string) (*domain.ProgressEntry, error)
	FindByDayAndTeam(ctx context.Context, ticketID string, day int, teamID string) (*domain.ProgressEntry, error)
	ListByTicket(ctx context.Context, ticketID string) ([]domain.ProgressEntry, error)
	MarkSigned(ctx context.Context, id string, signature string, sigType domain.SignatureType, signedAt time.Time) (bool, error)
	SetLinkMirror(ctx context.Context, id, token string, expiresAt time.Time) error
}

type progressRepository struct {
	pool *pgxpool.Pool
}

// NewProgressRepository instantiates repository.
func NewProgressRepository(pool *pgxpool.Pool) ProgressRepository {
	return &progressRepository{pool: pool}
}

const progressColumns = `id, ticket_id, day, summary, photos, team_id, team_name, team_email,
               author_id, author_name, author_email, field_officer_signed, field_officer_signature,
               field_officer_signature_type, field_officer_signed_at, shareable_link,
               link_expires_at, added_at, updated_at`

func (r *progressRepository) Create(ctx context.Context, entry *domain.ProgressEntry) error {
	const query = `
        INSERT INTO progress_entries (id, ticket_id, day, summary, photos, team_id, team_name,
            team_email, author_id, author_name, author_email)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
        RETURNING added_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		entry.ID,
		entry.TicketID,
		entry.Day,
		entry.Summary,
		entry.Photos,
		entry.TeamID,
		entry.TeamName,
		entry.TeamEmail,
		entry.AuthorID,
		entry.AuthorName,
		entry.AuthorEmail,
	).Scan(&entry.AddedAt, &entry.UpdatedAt)
}

// UpdateContent rewrites the editable fields of an unsigned entry. Signed
// entries are immutable, enforced here by the signed guard.
func (r *progressRepository) UpdateContent(ctx context.Context, entry *domain.ProgressEntry) error {
	const query = `
        UPDATE progress_entries SET summary=$1, photos=$2, author_id=$3, author_name=$4,
            author_email=$5, updated_at=NOW()
        WHERE id=$6 AND NOT field_officer_signed`
	cmd, err := r.pool.Exec(ctx, query,
		entry.Summary,
		entry.Photos,
		entry.AuthorID,
		entry.AuthorName,
		entry.AuthorEmail,
		entry.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *progressRepository) GetByID(ctx context.Context, id string) (*domain.ProgressEntry, error) {
	query := `SELECT ` + progressColumns + ` FROM progress_entries WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *progressRepository) FindByDayAndTeam(ctx context.Context, ticketID string, day int, teamID string) (*domain.ProgressEntry, error) {
	query := `SELECT ` + progressColumns + ` FROM progress_entries WHERE ticket_id=$1 AND day=$2 AND team_id=$3`
	var entry domain.ProgressEntry
	if err := r.pool.QueryRow(ctx, query, ticketID, day, teamID).Scan(progressFields(&entry)...); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *progressRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.ProgressEntry, error) {
	query := `SELECT ` + progressColumns + ` FROM progress_entries WHERE ticket_id=$1 ORDER BY added_at ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ProgressEntry
	for rows.Next() {
		var entry domain.ProgressEntry
		if err := rows.Scan(progressFields(&entry)...); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}

// MarkSigned applies the field officer signature exactly once. The signed
// guard in the WHERE clause is the atomic conflict check: a second caller
// sees zero rows affected.
func (r *progressRepository) MarkSigned(ctx context.Context, id string, signature string, sigType domain.SignatureType, signedAt time.Time) (bool, error) {
	const query = `
        UPDATE progress_entries SET field_officer_signed=TRUE, field_officer_signature=$1,
            field_officer_signature_type=$2, field_officer_signed_at=$3, updated_at=NOW()
        WHERE id=$4 AND NOT field_officer_signed`
	cmd, err := r.pool.Exec(ctx, query, signature, sigType, signedAt, id)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

// SetLinkMirror copies the live token and expiry onto the entry for display.
// The share_links table remains the authority for validity.
func (r *progressRepository) SetLinkMirror(ctx context.Context, id, token string, expiresAt time.Time) error {
	const query = `
        UPDATE progress_entries SET shareable_link=$1, link_expires_at=$2
        WHERE id=$3`
	_, err := r.pool.Exec(ctx, query, token, expiresAt, id)
	return err
}

func (r *progressRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.ProgressEntry, error) {
	var entry domain.ProgressEntry
	if err := r.pool.QueryRow(ctx, query, arg).Scan(progressFields(&entry)...); err != nil {
		return nil, err
	}
	return &entry, nil
}

func progressFields(e *domain.ProgressEntry) []any {
	return []any{
		&e.ID,
		&e.TicketID,
		&e.Day,
		&e.Summary,
		&e.Photos,
		&e.TeamID,
		&e.TeamName,
		&e.TeamEmail,
		&e.AuthorID,
		&e.AuthorName,
		&e.AuthorEmail,
		&e.FieldOfficerSigned,
		&e.FieldOfficerSignature,
		&e.FieldOfficerSignatureType,
		&e.FieldOfficerSignedAt,
		&e.ShareableLink,
		&e.LinkExpiresAt,
		&e.AddedAt,
		&e.UpdatedAt,
	}
}
