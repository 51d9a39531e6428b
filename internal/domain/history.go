package domain

import "time"

// HistoryAction tags what a history entry records.
type HistoryAction string

const (
	ActionTicketCreated  HistoryAction = "ticket_created"
	ActionTeamAssigned   HistoryAction = "team_assigned"
	ActionStatusChanged  HistoryAction = "status_changed"
	ActionFieldsUpdated  HistoryAction = "fields_updated"
	ActionProgressAdded  HistoryAction = "progress_added"
	ActionProgressSigned HistoryAction = "progress_signed"
	ActionAdminSigned    HistoryAction = "admin_signed"
)

// TicketHistory is an append-only audit record. Entries are never edited
// or reordered after insertion.
type TicketHistory struct {
	ID          string
	TicketID    string
	Action      HistoryAction
	ActorID     *string
	ActorName   string
	OldValue    map[string]any
	NewValue    map[string]any
	Description string
	CreatedAt   time.Time
}
