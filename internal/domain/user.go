package domain

import "time"

// Role enumerates caller roles carried in access tokens.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleFieldTeam Role = "field_team"
)

// User is an authenticated operator: an administrator or a field team
// member. Field team members carry the team they belong to.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	TeamID       *string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
