package domain

import "time"

// Team is a field crew that can be assigned to tickets. Name and email are
// denormalized onto progress entries at write time.
type Team struct {
	ID        string
	Name      string
	Email     string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
