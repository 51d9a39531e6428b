package dto

import (
	"time"

	"github.com/spec-kit/fieldwork-service/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Name                string     `json:"name"`
	Department          string     `json:"department"`
	FieldOfficerName    string     `json:"field_officer_name"`
	Contact             string     `json:"contact"`
	AssignmentName      string     `json:"assignment_name"`
	Description         string     `json:"description"`
	DateOfCommencement  time.Time  `json:"date_of_commencement"`
	NumberOfWorkingDays int        `json:"number_of_working_days"`
	CompletionDate      *time.Time `json:"completion_date,omitempty"`
	TeamID              *string    `json:"team_id,omitempty"`
}

// UpdateTicketRequest carries optional field edits.
type UpdateTicketRequest struct {
	Name               *string    `json:"name,omitempty"`
	Department         *string    `json:"department,omitempty"`
	FieldOfficerName   *string    `json:"field_officer_name,omitempty"`
	Contact            *string    `json:"contact,omitempty"`
	AssignmentName     *string    `json:"assignment_name,omitempty"`
	Description        *string    `json:"description,omitempty"`
	DateOfCommencement *time.Time `json:"date_of_commencement,omitempty"`
	CompletionDate     *time.Time `json:"completion_date,omitempty"`
}

// AssignTeamRequest payload.
type AssignTeamRequest struct {
	TeamID string `json:"team_id"`
}

// ChangeStatusRequest payload.
type ChangeStatusRequest struct {
	Status domain.TicketStatus `json:"status"`
}

// AdminSignatureRequest payload for the final signature.
type AdminSignatureRequest struct {
	Signature     string               `json:"signature"`
	SignatureType domain.SignatureType `json:"signature_type"`
}

// TicketSummary response.
type TicketSummary struct {
	ID                  string              `json:"id"`
	TicketNumber        string              `json:"ticket_number"`
	Status              domain.TicketStatus `json:"status"`
	Name                string              `json:"name"`
	AssignmentName      string              `json:"assignment_name"`
	DateOfCommencement  time.Time           `json:"date_of_commencement"`
	NumberOfWorkingDays int                 `json:"number_of_working_days"`
	CompletionDate      *time.Time          `json:"completion_date,omitempty"`
	AssignedTeamID      *string             `json:"assigned_team_id,omitempty"`
	AssignedTeamName    *string             `json:"assigned_team_name,omitempty"`
	AdminSigned         bool                `json:"admin_signed"`
	CreatedAt           time.Time           `json:"created_at"`
	UpdatedAt           time.Time           `json:"updated_at"`
}

// TicketDetailResponse provides full ticket info.
type TicketDetailResponse struct {
	TicketSummary
	Department       string                  `json:"department"`
	FieldOfficerName string                  `json:"field_officer_name"`
	Contact          string                  `json:"contact"`
	Description      string                  `json:"description"`
	AdminSignedAt    *time.Time              `json:"admin_signed_at,omitempty"`
	DailyProgress    []ProgressEntryResponse `json:"daily_progress"`
	History          []HistoryResponse       `json:"history"`
}

// ReadinessResponse reports the admin gate state.
type ReadinessResponse struct {
	Ready        bool  `json:"ready"`
	MissingDays  []int `json:"missing_days,omitempty"`
	UnsignedDays []int `json:"unsigned_days,omitempty"`
}

// HistoryResponse represents one audit record.
type HistoryResponse struct {
	ID          string               `json:"id"`
	Action      domain.HistoryAction `json:"action"`
	ActorID     *string              `json:"actor_id,omitempty"`
	ActorName   string               `json:"actor_name"`
	OldValue    map[string]any       `json:"old_value,omitempty"`
	NewValue    map[string]any       `json:"new_value,omitempty"`
	Description string               `json:"description"`
	CreatedAt   time.Time            `json:"created_at"`
}
