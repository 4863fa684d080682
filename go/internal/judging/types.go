package judging

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mcdev12/hackjudge/go/internal/models"
)

// Tx is what the judging app needs from one store transaction.
type Tx interface {
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	ListUsersByIDs(ctx context.Context, ids []uuid.UUID) ([]models.User, error)
	ListNonDirectorUsers(ctx context.Context) ([]models.User, error)
	SetUserGroup(ctx context.Context, userID uuid.UUID, groupID *uuid.UUID) error
	ClearAllUserGroups(ctx context.Context) error

	CreateGroup(ctx context.Context, group *models.Group) error
	GetGroup(ctx context.Context, id uuid.UUID) (*models.Group, error)
	ListGroups(ctx context.Context) ([]models.Group, error)
	CountGroups(ctx context.Context) (int, error)
	AttachGroupProjects(ctx context.Context, group *models.Group) error
	DeleteAllGroups(ctx context.Context) error

	CreateProject(ctx context.Context, project *models.Project, position int) error
	GetProjectByDevpostID(ctx context.Context, devpostID string) (*models.Project, error)
	ListGroupProjects(ctx context.Context, groupID uuid.UUID) ([]models.Project, error)
	ListProjects(ctx context.Context) ([]models.Project, error)
	DeleteAllProjects(ctx context.Context) error

	UpsertScore(ctx context.Context, score models.Score) (*models.Score, error)
	ListScoresByJudge(ctx context.Context, judgeID uuid.UUID) ([]models.Score, error)
	ListScores(ctx context.Context) ([]models.Score, error)
	DeleteAllScores(ctx context.Context) error

	GetJudgingStatus(ctx context.Context) (models.JudgingStatus, error)
	SetJudgingActive(ctx context.Context, active bool, now time.Time) (models.JudgingStatus, error)

	InsertOutboxEvent(ctx context.Context, event models.OutboxEvent) error
}

// Store runs units of work atomically.
type Store interface {
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}

// ProjectImporter fetches the current project list from the submission source.
type ProjectImporter interface {
	ImportProjects(ctx context.Context) ([]models.ImportedProject, error)
}

// Metrics observes judging administration.
type Metrics interface {
	GroupsFormed(groups, projects int)
	DistributionFailed(step string)
	ScoreSubmitted()
}

// Criterion is one scored dimension and its share of the total.
type Criterion struct {
	Name   string          `yaml:"name" json:"name"`
	Label  string          `yaml:"label" json:"label"`
	Weight decimal.Decimal `yaml:"weight" json:"weight"`
}

// Config holds the event settings the judging app needs.
type Config struct {
	PresentationMinutes int         `yaml:"presentation_minutes" env:"PRESENTATION_MINUTES" envDefault:"5"`
	MinScore            float64     `yaml:"min_score" env:"MIN_SCORE" envDefault:"1"`
	MaxScore            float64     `yaml:"max_score" env:"MAX_SCORE" envDefault:"5"`
	Criteria            []Criterion `yaml:"criteria"`
}

// DefaultCriteria are the rubric judges score against unless configured otherwise.
func DefaultCriteria() []Criterion {
	return []Criterion{
		{Name: "applicationFeasibility", Label: "Application Feasibility", Weight: decimal.RequireFromString("0.25")},
		{Name: "functionalityQuality", Label: "Functionality & Quality", Weight: decimal.RequireFromString("0.20")},
		{Name: "creativityInnovation", Label: "Creativity & Innovation", Weight: decimal.RequireFromString("0.25")},
		{Name: "technicalComplexity", Label: "Technical Complexity", Weight: decimal.RequireFromString("0.20")},
		{Name: "presentation", Label: "Presentation", Weight: decimal.RequireFromString("0.10")},
	}
}

func DefaultConfig() Config {
	return Config{
		PresentationMinutes: 5,
		MinScore:            1,
		MaxScore:            5,
		Criteria:            DefaultCriteria(),
	}
}

// GroupStatus summarizes one group's progress for the director.
type GroupStatus struct {
	GroupID             uuid.UUID `json:"groupId"`
	MentorName          string    `json:"mentorName"`
	TotalPresentations  int       `json:"totalPresentations"`
	PresentedCount      int       `json:"presentedCount"`
	CurrentlyPresenting string    `json:"currentlyPresenting,omitempty"`
	AllComplete         bool      `json:"allComplete"`
}

// ScoreboardEntry is one project's averaged scores.
type ScoreboardEntry struct {
	ProjectID       uuid.UUID                  `json:"projectId"`
	DevpostID       string                     `json:"devpostId"`
	ProjectName     string                     `json:"projectName"`
	GroupID         *uuid.UUID                 `json:"groupId,omitempty"`
	HasPresented    bool                       `json:"hasPresented"`
	ScoreCount      int                        `json:"scoreCount"`
	CriteriaAverage map[string]decimal.Decimal `json:"criteriaAverage"`
	WeightedTotal   decimal.Decimal            `json:"weightedTotal"`
}

// FormGroupsResult describes a completed distribution.
type FormGroupsResult struct {
	Groups   []models.Group
	Projects int
}
