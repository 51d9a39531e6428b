package dto

import (
	"time"

	"github.com/spec-kit/fieldwork-service/internal/domain"
)

// WriteProgressRequest payload. Photos being absent keeps the stored
// list; an explicit empty array clears it.
type WriteProgressRequest struct {
	Day        int       `json:"day"`
	Summary    string    `json:"summary"`
	Photos     *[]string `json:"photos,omitempty"`
	ProgressID *string   `json:"progress_id,omitempty"`
}

// WriteProgressResponse returns the entry id for chaining uploads or
// link requests.
type WriteProgressResponse struct {
	ProgressID string `json:"progress_id"`
}

// NextDayResponse reports the next writable day for the caller's team.
type NextDayResponse struct {
	Day      int  `json:"day,omitempty"`
	Complete bool `json:"complete"`
}

// ProgressEntryResponse represents one daily entry.
type ProgressEntryResponse struct {
	ID                 string                `json:"id"`
	Day                int                   `json:"day"`
	Summary            string                `json:"summary"`
	Photos             []string              `json:"photos"`
	TeamID             string                `json:"team_id"`
	TeamName           string                `json:"team_name"`
	AuthorName         *string               `json:"author_name,omitempty"`
	FieldOfficerSigned bool                  `json:"field_officer_signed"`
	SignatureType      *domain.SignatureType `json:"signature_type,omitempty"`
	SignedAt           *time.Time            `json:"signed_at,omitempty"`
	ShareableLink      *string               `json:"shareable_link,omitempty"`
	LinkExpiresAt      *time.Time            `json:"link_expires_at,omitempty"`
	AddedAt            time.Time             `json:"added_at"`
}

// IssueLinkResponse returns the shareable review link.
type IssueLinkResponse struct {
	Token     string    `json:"token"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// LinkViewResponse is the public review page payload.
type LinkViewResponse struct {
	TicketNumber       string    `json:"ticket_number"`
	TicketName         string    `json:"ticket_name"`
	AssignmentName     string    `json:"assignment_name"`
	FieldOfficerName   string    `json:"field_officer_name"`
	Day                int       `json:"day"`
	Summary            string    `json:"summary"`
	Photos             []string  `json:"photos"`
	TeamName           string    `json:"team_name"`
	AuthorName         *string   `json:"author_name,omitempty"`
	FieldOfficerSigned bool      `json:"field_officer_signed"`
	ExpiresAt          time.Time `json:"expires_at"`
}

// SubmitSignatureRequest is the unauthenticated signature payload.
type SubmitSignatureRequest struct {
	Signature     string               `json:"signature"`
	SignatureType domain.SignatureType `json:"signature_type"`
}

// PhotoUploadResponse returns the stored photo URL.
type PhotoUploadResponse struct {
	URL    string   `json:"url"`
	Photos []string `json:"photos"`
}
