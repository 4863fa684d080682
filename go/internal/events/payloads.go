package events

import (
	"time"
)

// Event payload types that are shared between the judging apps and the gateway

// Event types written to the outbox and published to JetStream.
const (
	TypePresentationStarted = "PresentationStarted"
	TypePresentationPaused  = "PresentationPaused"
	TypePresentationResumed = "PresentationResumed"
	TypePresentationEnded   = "PresentationEnded"
	TypeGroupsFormed        = "GroupsFormed"
	TypeJudgingStarted      = "JudgingStarted"
	TypeJudgingEnded        = "JudgingEnded"
	TypeScoreSubmitted      = "ScoreSubmitted"
)

// Origin tells observers who ended a presentation.
type Origin string

const (
	OriginMentor Origin = "mentor"
	OriginSystem Origin = "system"
)

// PresentationStartedPayload is the payload for a PresentationStarted event
type PresentationStartedPayload struct {
	GroupID          string    `json:"group_id"`
	ProjectDevpostID string    `json:"project_devpost_id"`
	ProjectName      string    `json:"project_name"`
	StartedAt        time.Time `json:"started_at"`
	DeadlineAt       time.Time `json:"deadline_at"`
	DurationSec      int       `json:"duration_sec"`
}

// PresentationPausedPayload is the payload for a PresentationPaused event
type PresentationPausedPayload struct {
	GroupID          string    `json:"group_id"`
	ProjectDevpostID string    `json:"project_devpost_id"`
	ProjectName      string    `json:"project_name"`
	PausedAt         time.Time `json:"paused_at"`
	RemainingSec     int       `json:"remaining_sec"`
}

// PresentationResumedPayload is the payload for a PresentationResumed event
type PresentationResumedPayload struct {
	GroupID          string    `json:"group_id"`
	ProjectDevpostID string    `json:"project_devpost_id"`
	ProjectName      string    `json:"project_name"`
	ResumedAt        time.Time `json:"resumed_at"`
	DeadlineAt       time.Time `json:"deadline_at"`
	RemainingSec     int       `json:"remaining_sec"`
}

// PresentationEndedPayload is the payload for a PresentationEnded event.
// ActorID is empty when the system completed the slot.
type PresentationEndedPayload struct {
	GroupID          string    `json:"group_id"`
	ProjectDevpostID string    `json:"project_devpost_id"`
	ProjectName      string    `json:"project_name"`
	EndedAt          time.Time `json:"ended_at"`
	Origin           Origin    `json:"origin"`
	ActorID          string    `json:"actor_id,omitempty"`
}

// GroupsFormedPayload is the payload for a GroupsFormed event
type GroupsFormedPayload struct {
	GroupCount   int       `json:"group_count"`
	ProjectCount int       `json:"project_count"`
	FormedAt     time.Time `json:"formed_at"`
}

// JudgingTogglePayload is the payload for JudgingStarted and JudgingEnded events
type JudgingTogglePayload struct {
	Active    bool      `json:"active"`
	ChangedAt time.Time `json:"changed_at"`
	ActorID   string    `json:"actor_id"`
}

// ScoreSubmittedPayload is the payload for a ScoreSubmitted event
type ScoreSubmittedPayload struct {
	GroupID          string    `json:"group_id"`
	ProjectDevpostID string    `json:"project_devpost_id"`
	JudgeID          string    `json:"judge_id"`
	SubmittedAt      time.Time `json:"submitted_at"`
}
