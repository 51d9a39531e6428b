package domain

import "time"

// ProgressEntry is one team's work summary for a specific working day of a
// ticket. At most one entry exists per (ticket, day, team); a second write
// for the same pair updates the existing row. Once the field officer has
// signed, the entry's content becomes immutable.
type ProgressEntry struct {
	ID                        string
	TicketID                  string
	Day                       int
	Summary                   string
	Photos                    []string
	TeamID                    string
	TeamName                  string
	TeamEmail                 string
	AuthorID                  *string
	AuthorName                *string
	AuthorEmail               *string
	FieldOfficerSigned        bool
	FieldOfficerSignature     *string
	FieldOfficerSignatureType *SignatureType
	FieldOfficerSignedAt      *time.Time
	ShareableLink             *string
	LinkExpiresAt             *time.Time
	AddedAt                   time.Time
	UpdatedAt                 time.Time
}

// NextWritableDay derives the day a team may record progress for next.
// Rules: with no entries the team starts at day 1; an unsigned entry written
// earlier the same calendar day is still being edited, so that day is
// returned again; otherwise work advances to the day after the latest entry.
// The second return value is false once the schedule is exhausted.
func NextWritableDay(entries []ProgressEntry, workingDays int, now time.Time) (int, bool) {
	if workingDays <= 0 {
		return 0, false
	}
	if len(entries) == 0 {
		return 1, true
	}
	latest := entries[0]
	for _, e := range entries[1:] {
		if e.Day > latest.Day {
			latest = e
		}
	}
	if !latest.FieldOfficerSigned && sameCalendarDay(latest.AddedAt, now) {
		return latest.Day, true
	}
	next := latest.Day + 1
	if next > workingDays {
		return 0, false
	}
	return next, true
}

func sameCalendarDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// DistinctDays counts the unique day numbers present across entries.
func DistinctDays(entries []ProgressEntry) int {
	seen := make(map[int]struct{}, len(entries))
	for _, e := range entries {
		seen[e.Day] = struct{}{}
	}
	return len(seen)
}

// AllSigned reports whether every entry carries a field officer signature.
func AllSigned(entries []ProgressEntry) bool {
	for _, e := range entries {
		if !e.FieldOfficerSigned {
			return false
		}
	}
	return true
}
