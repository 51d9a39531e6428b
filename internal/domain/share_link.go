package domain

import "time"

// ShareLink is a time-limited, single-use capability bound to one progress
// entry. The token itself is the credential; consuming it forces ExpiresAt
// to the epoch so the row survives as an audit record but never validates
// again.
type ShareLink struct {
	Token      string
	TicketID   string
	ProgressID string
	ExpiresAt  time.Time
	CreatedAt  time.Time
}

// Live reports whether the link is still usable at the given instant.
func (l *ShareLink) Live(now time.Time) bool {
	return l.ExpiresAt.After(now)
}
