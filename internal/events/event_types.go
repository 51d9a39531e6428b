package events

import (
	"time"

	"github.com/spec-kit/fieldwork-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketAssigned      EventType = "ticket_assigned"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventProgressRecorded    EventType = "progress_recorded"
	EventLinkIssued          EventType = "link_issued"
	EventProgressSigned      EventType = "progress_signed"
	EventTicketClosed        EventType = "ticket_closed"
)

// Actor encapsulates actor metadata for an event. External signers reach
// the system through a bearer link and have no user id.
type Actor struct {
	UserID *string `json:"user_id,omitempty"`
	Name   string  `json:"name,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	TicketNumber string              `json:"ticket_number"`
	Status       domain.TicketStatus `json:"status"`
	TeamID       *string             `json:"team_id,omitempty"`
	WorkingDays  int                 `json:"working_days"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	OldTeamID *string `json:"old_team_id,omitempty"`
	NewTeamID string  `json:"new_team_id"`
	TeamName  string  `json:"team_name"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
}

// ProgressRecordedPayload payload.
type ProgressRecordedPayload struct {
	ProgressID string `json:"progress_id"`
	Day        int    `json:"day"`
	TeamID     string `json:"team_id"`
	Updated    bool   `json:"updated"`
}

// LinkIssuedPayload payload. The token itself never leaves the core via
// events; only its expiry is broadcast.
type LinkIssuedPayload struct {
	ProgressID string    `json:"progress_id"`
	ExpiresAt  time.Time `json:"expires_at"`
	Reissued   bool      `json:"reissued"`
}

// ProgressSignedPayload payload.
type ProgressSignedPayload struct {
	ProgressID    string               `json:"progress_id"`
	Day           int                  `json:"day"`
	SignatureType domain.SignatureType `json:"signature_type"`
}

// TicketClosedPayload payload.
type TicketClosedPayload struct {
	TicketNumber  string               `json:"ticket_number"`
	SignatureType domain.SignatureType `json:"signature_type"`
	ReleasedTeam  *string              `json:"released_team,omitempty"`
}
