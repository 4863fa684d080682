package models

import (
	"time"

	"github.com/google/uuid"
)

// Project is a hackathon submission imported from Devpost.
type Project struct {
	ID           uuid.UUID  `json:"id"`
	DevpostID    string     `json:"devpost_id"`
	Name         string     `json:"name"`
	DevpostURL   string     `json:"devpost_url"`
	TeamMembers  []string   `json:"team_members"`
	GroupID      *uuid.UUID `json:"group_id,omitempty"`
	HasPresented bool       `json:"has_presented"`
	CreatedAt    time.Time  `json:"created_at"`
}

// ImportedProject is what the project source returns before persistence.
type ImportedProject struct {
	DevpostID   string   `json:"devpost_id"`
	Name        string   `json:"name"`
	DevpostURL  string   `json:"devpost_url"`
	TeamMembers []string `json:"team_members"`
}

// Score is one judge's evaluation of one project.
type Score struct {
	ID          uuid.UUID          `json:"id"`
	ProjectID   uuid.UUID          `json:"project_id"`
	JudgeID     uuid.UUID          `json:"judge_id"`
	Criteria    map[string]float64 `json:"criteria"`
	SubmittedAt time.Time          `json:"submitted_at"`
}

// JudgingStatus is the event-wide switch gating presentations.
type JudgingStatus struct {
	Active    bool      `json:"active"`
	UpdatedAt time.Time `json:"updated_at"`
}

// OutboxEvent is a domain event waiting to be relayed.
type OutboxEvent struct {
	ID        uuid.UUID  `json:"id"`
	GroupID   *uuid.UUID `json:"group_id,omitempty"`
	EventType string     `json:"event_type"`
	Payload   []byte     `json:"payload"`
	CreatedAt time.Time  `json:"created_at"`
	SentAt    *time.Time `json:"sent_at,omitempty"`
}
