package domain

import "time"

// TicketStatus enumerates lifecycle states for field-work tickets.
type TicketStatus string

const (
	TicketStatusPending    TicketStatus = "pending"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusDone       TicketStatus = "done"
)

// ValidTicketStatus reports whether the tag is one of the known states.
func ValidTicketStatus(s TicketStatus) bool {
	switch s {
	case TicketStatusPending, TicketStatusInProgress, TicketStatusDone:
		return true
	}
	return false
}

// SignatureType distinguishes a typed name from an embedded image payload.
type SignatureType string

const (
	SignatureTypeText  SignatureType = "text"
	SignatureTypeImage SignatureType = "image"
)

// ValidSignatureType reports whether the tag is a supported signature kind.
func ValidSignatureType(s SignatureType) bool {
	return s == SignatureTypeText || s == SignatureTypeImage
}

// Ticket is the aggregate for a unit of field work. A ticket moves
// pending -> in_progress -> done; the only gated path to done is the
// admin final signature once every working day carries a signed entry.
type Ticket struct {
	ID                  string
	TicketNumber        string
	Status              TicketStatus
	Name                string
	Department          string
	FieldOfficerName    string
	Contact             string
	AssignmentName      string
	Description         string
	DateOfCommencement  time.Time
	NumberOfWorkingDays int
	CompletionDate      *time.Time
	AssignedTeamID      *string
	AssignedTeamName    *string
	AdminSigned         bool
	AdminSignature      *string
	AdminSignatureType  *SignatureType
	AdminSignedAt       *time.Time
	CreatedByID         string
	CreatedByName       string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Closed reports whether the ticket has reached its terminal state.
// A closed ticket rejects every further mutation.
func (t *Ticket) Closed() bool {
	return t.Status == TicketStatusDone && t.AdminSigned
}
