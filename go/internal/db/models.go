package db

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"
)

type UserRole string

const (
	UserRoleDirector UserRole = "director"
	UserRoleMentor   UserRole = "mentor"
	UserRoleJudge    UserRole = "judge"
)

type User struct {
	ID        uuid.UUID
	Name      string
	Email     string
	Role      UserRole
	GroupID   uuid.NullUUID
	CreatedAt time.Time
}

type Group struct {
	ID                  uuid.UUID
	MentorID            uuid.UUID
	JudgeIDs            []uuid.UUID
	ProjectDevpostIDs   []string
	Presentations       pqtype.NullRawMessage
	CurrentlyPresenting sql.NullString
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

type Project struct {
	ID           uuid.UUID
	DevpostID    string
	Name         string
	DevpostURL   string
	TeamMembers  []string
	GroupID      uuid.NullUUID
	Position     int32
	HasPresented bool
	CreatedAt    time.Time
}

type Score struct {
	ID          uuid.UUID
	ProjectID   uuid.UUID
	JudgeID     uuid.UUID
	Criteria    json.RawMessage
	SubmittedAt time.Time
}

type JudgingStatus struct {
	Active    bool
	UpdatedAt time.Time
}

type Outbox struct {
	ID        uuid.UUID
	GroupID   uuid.NullUUID
	EventType string
	Payload   json.RawMessage
	CreatedAt time.Time
	SentAt    sql.NullTime
}
