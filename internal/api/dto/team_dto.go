package dto

import "time"

// CreateTeamRequest payload.
type CreateTeamRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// TeamResponse public team fields.
type TeamResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}
