package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/fieldwork-service/internal/domain"
)

// TicketScope is the typed listing filter. Exactly one visibility rule
// applies: admins see everything, field teams see tickets assigned to
// their team. Status narrows either view.
type TicketScope struct {
	AssignedTeamID *string
	Statuses       []domain.TicketStatus
	Limit          int
	Offset         int
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	List(ctx context.Context, scope TicketScope) ([]domain.Ticket, error)
	Touch(ctx context.Context, id string) error
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, ticket_number, status, name, department, field_officer_name, contact,
               assignment_name, description, date_of_commencement, number_of_working_days,
               completion_date, assigned_team_id, assigned_team_name, admin_signed,
               admin_signature, admin_signature_type, admin_signed_at,
               created_by_id, created_by_name, created_at, updated_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (ticket_number, status, name, department, field_officer_name, contact,
            assignment_name, description, date_of_commencement, number_of_working_days,
            completion_date, assigned_team_id, assigned_team_name, created_by_id, created_by_name)
        VALUES ('TKT' || lpad(nextval('ticket_number_seq')::text, 5, '0'),
            $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
        RETURNING id, ticket_number, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		ticket.Status,
		ticket.Name,
		ticket.Department,
		ticket.FieldOfficerName,
		ticket.Contact,
		ticket.AssignmentName,
		ticket.Description,
		ticket.DateOfCommencement,
		ticket.NumberOfWorkingDays,
		ticket.CompletionDate,
		ticket.AssignedTeamID,
		ticket.AssignedTeamName,
		ticket.CreatedByID,
		ticket.CreatedByName,
	).Scan(&ticket.ID, &ticket.TicketNumber, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET status=$1, name=$2, department=$3, field_officer_name=$4, contact=$5,
            assignment_name=$6, description=$7, date_of_commencement=$8, number_of_working_days=$9,
            completion_date=$10, assigned_team_id=$11, assigned_team_name=$12, admin_signed=$13,
            admin_signature=$14, admin_signature_type=$15, admin_signed_at=$16, updated_at=NOW()
        WHERE id=$17`
	cmd, err := r.pool.Exec(ctx, query,
		ticket.Status,
		ticket.Name,
		ticket.Department,
		ticket.FieldOfficerName,
		ticket.Contact,
		ticket.AssignmentName,
		ticket.Description,
		ticket.DateOfCommencement,
		ticket.NumberOfWorkingDays,
		ticket.CompletionDate,
		ticket.AssignedTeamID,
		ticket.AssignedTeamName,
		ticket.AdminSigned,
		ticket.AdminSignature,
		ticket.AdminSignatureType,
		ticket.AdminSignedAt,
		ticket.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	var ticket domain.Ticket
	if err := r.pool.QueryRow(ctx, query, id).Scan(ticketFields(&ticket)...); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) List(ctx context.Context, scope TicketScope) ([]domain.Ticket, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if scope.AssignedTeamID != nil {
		args = append(args, *scope.AssignedTeamID)
		clauses = append(clauses, fmt.Sprintf("assigned_team_id=$%d", len(args)))
	}
	if len(scope.Statuses) > 0 {
		placeholders := make([]string, len(scope.Statuses))
		for i, status := range scope.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}

	limit := scope.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := scope.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY updated_at DESC LIMIT %d OFFSET %d`,
		ticketColumns, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := rows.Scan(ticketFields(&ticket)...); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}

func (r *ticketRepository) Touch(ctx context.Context, id string) error {
	const query = `UPDATE tickets SET updated_at=NOW() WHERE id=$1`
	_, err := r.pool.Exec(ctx, query, id)
	return err
}

func ticketFields(t *domain.Ticket) []any {
	return []any{
		&t.ID,
		&t.TicketNumber,
		&t.Status,
		&t.Name,
		&t.Department,
		&t.FieldOfficerName,
		&t.Contact,
		&t.AssignmentName,
		&t.Description,
		&t.DateOfCommencement,
		&t.NumberOfWorkingDays,
		&t.CompletionDate,
		&t.AssignedTeamID,
		&t.AssignedTeamName,
		&t.AdminSigned,
		&t.AdminSignature,
		&t.AdminSignatureType,
		&t.AdminSignedAt,
		&t.CreatedByID,
		&t.CreatedByName,
		&t.CreatedAt,
		&t.UpdatedAt,
	}
}
