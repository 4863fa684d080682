package presentation

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/mcdev12/hackjudge/go/internal/events"
	"github.com/mcdev12/hackjudge/go/internal/models"
)

// Tx is what the app needs from one store transaction.
type Tx interface {
	GetJudgingStatus(ctx context.Context) (models.JudgingStatus, error)
	GetGroup(ctx context.Context, id uuid.UUID) (*models.Group, error)
	GetGroupForUpdate(ctx context.Context, id uuid.UUID) (*models.Group, error)
	ListPresentingGroups(ctx context.Context) ([]models.Group, error)
	SaveGroupPresentations(ctx context.Context, group *models.Group) error
	GetProjectByDevpostID(ctx context.Context, devpostID string) (*models.Project, error)
	ListGroupProjects(ctx context.Context, groupID uuid.UUID) ([]models.Project, error)
	MarkProjectPresented(ctx context.Context, id uuid.UUID) (bool, error)
	ListScoresByProjects(ctx context.Context, projectIDs []uuid.UUID) ([]models.Score, error)
	ListUsersByIDs(ctx context.Context, ids []uuid.UUID) ([]models.User, error)
	InsertOutboxEvent(ctx context.Context, event models.OutboxEvent) error
}

// Store runs units of work atomically. Conflicting writers to the same
// group are serialized by the store.
type Store interface {
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}

// CompletionScheduler registers a deferred auto-completion.
type CompletionScheduler interface {
	ScheduleAfter(delay time.Duration, job models.CompletionJob)
}

// Metrics observes state machine transitions.
type Metrics interface {
	TransitionApplied(action string)
	TransitionRejected(action, code string)
	AutoCompleted(lateness time.Duration)
	AutoCompleteSkipped(reason string)
}

// Config tunes completion timing.
type Config struct {
	// CompletionSlack pads the scheduling delay past the deadline.
	CompletionSlack time.Duration `yaml:"completion_slack" env:"PRESENTATION_COMPLETION_SLACK" envDefault:"500ms"`
	// DueTolerance is how early a completion check may run and still count.
	DueTolerance time.Duration `yaml:"due_tolerance" env:"PRESENTATION_DUE_TOLERANCE" envDefault:"2s"`
}

func DefaultConfig() Config {
	return Config{
		CompletionSlack: 500 * time.Millisecond,
		DueTolerance:    2 * time.Second,
	}
}

// Transition is the outcome of a successful state change.
type Transition struct {
	GroupID uuid.UUID
	Slot    models.PresentationSlot
	Origin  events.Origin
}

// GroupSchedule is a group's slots with their live countdowns.
type GroupSchedule struct {
	GroupID             uuid.UUID
	Slots               []models.PresentationSlot
	CurrentlyPresenting *string
	ServerTime          time.Time
}
