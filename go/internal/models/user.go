package models

import (
	"time"

	"github.com/google/uuid"
)

// Role defines what a user is allowed to do during the event.
type Role string

const (
	RoleDirector Role = "director"
	RoleMentor   Role = "mentor"
	RoleJudge    Role = "judge"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleDirector, RoleMentor, RoleJudge:
		return true
	}
	return false
}

// User represents a participant of the judging event
type User struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Role      Role       `json:"role"`
	GroupID   *uuid.UUID `json:"group_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}
