package judging

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/hackjudge/go/internal/apperr"
	"github.com/mcdev12/hackjudge/go/internal/events"
	"github.com/mcdev12/hackjudge/go/internal/models"
)

// Distribution steps, reported when forming groups fails part way.
const (
	StepLoadMembers = "loading judges and mentors"
	StepTeardown    = "clearing previous groups"
	StepImport      = "importing projects"
	StepSaveGroups  = "saving groups"
)

// App administers the judging event: groups, the judging switch and scores.
type App struct {
	store    Store
	importer ProjectImporter
	clock    clockwork.Clock
	cfg      Config
	metrics  Metrics
}

// NewApp creates a new judging App
func NewApp(store Store, importer ProjectImporter, clock clockwork.Clock, cfg Config, metrics Metrics) *App {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	if len(cfg.Criteria) == 0 {
		cfg.Criteria = DefaultCriteria()
	}
	return &App{
		store:    store,
		importer: importer,
		clock:    clock,
		cfg:      cfg,
		metrics:  metrics,
	}
}

// FormGroups discards every group, project and score, then deals judges and
// freshly imported projects round-robin across the mentors. Preconditions
// are checked before anything is deleted; after that a failing step is
// reported by name and the director runs the whole operation again.
func (a *App) FormGroups(ctx context.Context, actor *models.User) (*FormGroupsResult, error) {
	if err := requireRole(actor, models.RoleDirector); err != nil {
		return nil, err
	}

	var mentors, judges []models.User
	err := a.store.WithinTx(ctx, func(tx Tx) error {
		users, err := tx.ListNonDirectorUsers(ctx)
		if err != nil {
			return err
		}
		for _, u := range users {
			switch u.Role {
			case models.RoleMentor:
				mentors = append(mentors, u)
			case models.RoleJudge:
				judges = append(judges, u)
			}
		}
		return nil
	})
	if err != nil {
		return nil, a.stepFailed(apperr.CodeDistributionFailed, StepLoadMembers, err)
	}
	switch {
	case len(mentors) == 0 && len(judges) == 0:
		return nil, apperr.NoEligibleMembers("There are no judges or mentors in the system. Please have them log in to the app.")
	case len(mentors) == 0:
		return nil, apperr.NoEligibleMembers("There are no mentors registered. Please have them log in to the app.")
	case len(judges) == 0:
		return nil, apperr.NoEligibleMembers("There are no judges registered. Please have them log in to the app.")
	}

	err = a.store.WithinTx(ctx, func(tx Tx) error {
		if err := tx.DeleteAllGroups(ctx); err != nil {
			return err
		}
		if err := tx.ClearAllUserGroups(ctx); err != nil {
			return err
		}
		if err := tx.DeleteAllScores(ctx); err != nil {
			return err
		}
		return tx.DeleteAllProjects(ctx)
	})
	if err != nil {
		return nil, a.stepFailed(apperr.CodeDistributionFailed, StepTeardown, err)
	}

	judgeBuckets := Partition(judges, len(mentors))

	imported, err := a.importer.ImportProjects(ctx)
	if err != nil {
		return nil, a.stepFailed(apperr.CodeImportFailed, StepImport, err)
	}
	imported = uniqueProjects(imported)
	if len(imported) == 0 {
		a.metrics.DistributionFailed(StepImport)
		return nil, &apperr.Error{
			Code:    apperr.CodeImportFailed,
			Message: "No projects available after scraping.",
			Step:    StepImport,
		}
	}

	projectBuckets := Partition(imported, len(mentors))
	now := a.clock.Now()

	groups := make([]models.Group, 0, len(mentors))
	err = a.store.WithinTx(ctx, func(tx Tx) error {
		position := 0
		for m, mentor := range mentors {
			groupID := uuid.New()
			group := &models.Group{
				ID:       groupID,
				MentorID: mentor.ID,
				JudgeIDs: userIDs(judgeBuckets[m]),
			}
			if err := tx.CreateGroup(ctx, group); err != nil {
				return fmt.Errorf("failed to create group for mentor %s: %w", mentor.ID, err)
			}
			if err := tx.SetUserGroup(ctx, mentor.ID, &groupID); err != nil {
				return err
			}
			for _, judge := range judgeBuckets[m] {
				if err := tx.SetUserGroup(ctx, judge.ID, &groupID); err != nil {
					return err
				}
			}

			for _, p := range projectBuckets[m] {
				if err := tx.CreateProject(ctx, &models.Project{
					ID:          uuid.New(),
					DevpostID:   p.DevpostID,
					Name:        p.Name,
					DevpostURL:  p.DevpostURL,
					TeamMembers: p.TeamMembers,
					GroupID:     &groupID,
					CreatedAt:   now,
				}, position); err != nil {
					return fmt.Errorf("failed to insert project %s: %w", p.DevpostID, err)
				}
				position++
				group.ProjectDevpostIDs = append(group.ProjectDevpostIDs, p.DevpostID)
			}
			group.Presentations = BuildPresentations(projectBuckets[m], a.cfg.PresentationMinutes, now)
			if err := tx.AttachGroupProjects(ctx, group); err != nil {
				return fmt.Errorf("failed to attach projects to group %s: %w", groupID, err)
			}
			groups = append(groups, *group)
		}

		return emit(ctx, tx, nil, events.TypeGroupsFormed, events.GroupsFormedPayload{
			GroupCount:   len(groups),
			ProjectCount: len(imported),
			FormedAt:     now,
		}, now)
	})
	if err != nil {
		return nil, a.stepFailed(apperr.CodeDistributionFailed, StepSaveGroups, err)
	}

	a.metrics.GroupsFormed(len(groups), len(imported))
	log.Info().
		Int("groups", len(groups)).
		Int("judges", len(judges)).
		Int("projects", len(imported)).
		Str("director_id", actor.ID.String()).
		Msg("groups formed")
	return &FormGroupsResult{Groups: groups, Projects: len(imported)}, nil
}

// BeginJudging opens the event. Groups must exist first.
func (a *App) BeginJudging(ctx context.Context, actor *models.User) (*models.JudgingStatus, error) {
	if err := requireRole(actor, models.RoleDirector); err != nil {
		return nil, err
	}

	var status models.JudgingStatus
	err := a.store.WithinTx(ctx, func(tx Tx) error {
		count, err := tx.CountGroups(ctx)
		if err != nil {
			return err
		}
		if count == 0 {
			return apperr.InvalidState("Please create the judge groups before starting judging.")
		}
		return a.setJudging(ctx, tx, actor, true, &status)
	})
	if err != nil {
		return nil, wrapInternal("begin judging", err)
	}

	log.Info().Str("director_id", actor.ID.String()).Msg("judging started")
	return &status, nil
}

// EndJudging closes the event. Running presentations are left to finish.
func (a *App) EndJudging(ctx context.Context, actor *models.User) (*models.JudgingStatus, error) {
	if err := requireRole(actor, models.RoleDirector); err != nil {
		return nil, err
	}

	var status models.JudgingStatus
	err := a.store.WithinTx(ctx, func(tx Tx) error {
		return a.setJudging(ctx, tx, actor, false, &status)
	})
	if err != nil {
		return nil, wrapInternal("end judging", err)
	}

	log.Info().Str("director_id", actor.ID.String()).Msg("judging ended")
	return &status, nil
}

// SubmitScore records or replaces the judge's score for a presented project
// of their group.
func (a *App) SubmitScore(ctx context.Context, actor *models.User, devpostID string, criteria map[string]float64) (*models.Score, error) {
	if err := requireRole(actor, models.RoleJudge); err != nil {
		return nil, err
	}
	if actor.GroupID == nil {
		return nil, apperr.NotFound("You have not been assigned any projects.")
	}
	if err := a.validateCriteria(criteria); err != nil {
		return nil, err
	}

	var saved *models.Score
	err := a.store.WithinTx(ctx, func(tx Tx) error {
		project, err := tx.GetProjectByDevpostID(ctx, devpostID)
		if errors.Is(err, apperr.ErrNotFound) {
			return apperr.NotFound("This project does not exist.")
		}
		if err != nil {
			return err
		}
		if project.GroupID == nil || *project.GroupID != *actor.GroupID {
			return apperr.InvalidState(fmt.Sprintf("%s is not assigned to your group.", project.Name))
		}
		if !project.HasPresented {
			return apperr.InvalidState("Cannot score a project that hasn't presented yet. Please wait for the presentation to finish.")
		}

		now := a.clock.Now()
		saved, err = tx.UpsertScore(ctx, models.Score{
			ID:          uuid.New(),
			ProjectID:   project.ID,
			JudgeID:     actor.ID,
			Criteria:    criteria,
			SubmittedAt: now,
		})
		if err != nil {
			return fmt.Errorf("failed to save score: %w", err)
		}

		return emit(ctx, tx, project.GroupID, events.TypeScoreSubmitted, events.ScoreSubmittedPayload{
			GroupID:          project.GroupID.String(),
			ProjectDevpostID: project.DevpostID,
			JudgeID:          actor.ID.String(),
			SubmittedAt:      now,
		}, now)
	})
	if err != nil {
		return nil, wrapInternal("submit score", err)
	}

	a.metrics.ScoreSubmitted()
	log.Info().
		Str("group_id", actor.GroupID.String()).
		Str("project_devpost_id", devpostID).
		Str("judge_id", actor.ID.String()).
		Msg("score submitted")
	return saved, nil
}

// Criteria returns the configured rubric.
func (a *App) Criteria() []Criterion {
	return append([]Criterion(nil), a.cfg.Criteria...)
}

func (a *App) validateCriteria(criteria map[string]float64) error {
	known := make(map[string]bool, len(a.cfg.Criteria))
	var missing []string
	for _, c := range a.cfg.Criteria {
		known[c.Name] = true
		if _, ok := criteria[c.Name]; !ok {
			missing = append(missing, c.Name)
		}
	}
	if len(missing) > 0 {
		return apperr.InvalidArgument(fmt.Sprintf("Missing scores for: %s.", strings.Join(missing, ", ")))
	}
	for name, v := range criteria {
		if !known[name] {
			return apperr.InvalidArgument(fmt.Sprintf("Unknown criterion %q.", name))
		}
		if math.IsNaN(v) || math.IsInf(v, 0) || v < a.cfg.MinScore || v > a.cfg.MaxScore {
			return apperr.InvalidArgument(fmt.Sprintf("Score for %s must be between %g and %g.", name, a.cfg.MinScore, a.cfg.MaxScore))
		}
	}
	return nil
}

func (a *App) setJudging(ctx context.Context, tx Tx, actor *models.User, active bool, out *models.JudgingStatus) error {
	now := a.clock.Now()
	status, err := tx.SetJudgingActive(ctx, active, now)
	if err != nil {
		return fmt.Errorf("failed to set judging status: %w", err)
	}
	*out = status

	eventType := events.TypeJudgingEnded
	if active {
		eventType = events.TypeJudgingStarted
	}
	return emit(ctx, tx, nil, eventType, events.JudgingTogglePayload{
		Active:    active,
		ChangedAt: now,
		ActorID:   actor.ID.String(),
	}, now)
}

func (a *App) stepFailed(code apperr.Code, step string, err error) error {
	a.metrics.DistributionFailed(step)
	log.Error().Err(err).Str("step", step).Msg("forming groups failed")
	return apperr.StepFailed(code, step, err)
}

func emit(ctx context.Context, tx Tx, groupID *uuid.UUID, eventType string, payload any, now time.Time) error {
	event, err := events.NewOutboxEvent(groupID, eventType, payload, now)
	if err != nil {
		return err
	}
	return tx.InsertOutboxEvent(ctx, event)
}

// requireRole checks the caller is signed in with one of roles.
func requireRole(actor *models.User, roles ...models.Role) error {
	if actor == nil {
		return apperr.Unauthenticated()
	}
	names := make([]string, len(roles))
	for i, r := range roles {
		if actor.Role == r {
			return nil
		}
		names[i] = string(r)
	}
	return apperr.WrongRole(strings.Join(names, " or "), string(actor.Role))
}

func wrapInternal(action string, err error) error {
	if _, ok := apperr.As(err); ok {
		return err
	}
	return fmt.Errorf("failed to %s: %w", action, err)
}

func userIDs(users []models.User) []uuid.UUID {
	ids := make([]uuid.UUID, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}
	return ids
}

// uniqueProjects drops repeated Devpost ids, keeping the first occurrence.
func uniqueProjects(projects []models.ImportedProject) []models.ImportedProject {
	seen := make(map[string]bool, len(projects))
	out := projects[:0:0]
	for _, p := range projects {
		if p.DevpostID == "" || seen[p.DevpostID] {
			continue
		}
		seen[p.DevpostID] = true
		out = append(out, p)
	}
	return out
}
