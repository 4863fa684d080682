package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mcdev12/hackjudge/go/internal/apperr"
	"github.com/mcdev12/hackjudge/go/internal/db"
	"github.com/mcdev12/hackjudge/go/internal/models"
	"github.com/mcdev12/hackjudge/go/internal/sqlutil"
)

// Tx exposes the queries of one open transaction in domain terms.
type Tx struct {
	q *db.Queries
}

func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, apperr.ErrNotFound)
	}
	return err
}

// Users

func (t *Tx) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	row, err := t.q.GetUser(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", notFound(err, "user "+id.String()))
	}
	return dbUserToModel(row), nil
}

func (t *Tx) ListUsersByIDs(ctx context.Context, ids []uuid.UUID) ([]models.User, error) {
	rows, err := t.q.ListUsersByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to list users by ids: %w", err)
	}
	return dbUsersToModels(rows), nil
}

func (t *Tx) ListNonDirectorUsers(ctx context.Context) ([]models.User, error) {
	rows, err := t.q.ListNonDirectorUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return dbUsersToModels(rows), nil
}

func (t *Tx) SetUserGroup(ctx context.Context, userID uuid.UUID, groupID *uuid.UUID) error {
	if err := t.q.SetUserGroup(ctx, db.SetUserGroupParams{
		ID:      userID,
		GroupID: sqlutil.ToNullUUID(groupID),
	}); err != nil {
		return fmt.Errorf("failed to set group of user %s: %w", userID, err)
	}
	return nil
}

func (t *Tx) ClearAllUserGroups(ctx context.Context) error {
	if err := t.q.ClearAllUserGroups(ctx); err != nil {
		return fmt.Errorf("failed to clear user groups: %w", err)
	}
	return nil
}

// Groups

func (t *Tx) CreateGroup(ctx context.Context, group *models.Group) error {
	row, err := t.q.CreateGroup(ctx, db.CreateGroupParams{
		ID:       group.ID,
		MentorID: group.MentorID,
		JudgeIDs: group.JudgeIDs,
	})
	if err != nil {
		return fmt.Errorf("failed to create group: %w", err)
	}
	group.CreatedAt = row.CreatedAt
	group.UpdatedAt = row.UpdatedAt
	return nil
}

func (t *Tx) GetGroup(ctx context.Context, id uuid.UUID) (*models.Group, error) {
	row, err := t.q.GetGroup(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", notFound(err, "group "+id.String()))
	}
	return dbGroupToModel(row)
}

func (t *Tx) GetGroupForUpdate(ctx context.Context, id uuid.UUID) (*models.Group, error) {
	row, err := t.q.GetGroupForUpdate(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to lock group: %w", notFound(err, "group "+id.String()))
	}
	return dbGroupToModel(row)
}

func (t *Tx) ListGroups(ctx context.Context) ([]models.Group, error) {
	rows, err := t.q.ListGroups(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	return dbGroupsToModels(rows)
}

func (t *Tx) ListPresentingGroups(ctx context.Context) ([]models.Group, error) {
	rows, err := t.q.ListGroupsPresenting(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list presenting groups: %w", err)
	}
	return dbGroupsToModels(rows)
}

func (t *Tx) CountGroups(ctx context.Context) (int, error) {
	n, err := t.q.CountGroups(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count groups: %w", err)
	}
	return int(n), nil
}

// AttachGroupProjects stores the project set and the initial schedule.
func (t *Tx) AttachGroupProjects(ctx context.Context, group *models.Group) error {
	presentations, err := sqlutil.ToNullJSON(group.Presentations)
	if err != nil {
		return fmt.Errorf("failed to encode presentations: %w", err)
	}
	if err := t.q.AttachGroupProjects(ctx, db.AttachGroupProjectsParams{
		ID:                group.ID,
		ProjectDevpostIDs: group.ProjectDevpostIDs,
		Presentations:     presentations,
	}); err != nil {
		return fmt.Errorf("failed to attach projects to group %s: %w", group.ID, err)
	}
	return nil
}

// SaveGroupPresentations writes back the full slot collection and the
// currently presenting pointer.
func (t *Tx) SaveGroupPresentations(ctx context.Context, group *models.Group) error {
	presentations, err := sqlutil.ToNullJSON(group.Presentations)
	if err != nil {
		return fmt.Errorf("failed to encode presentations: %w", err)
	}
	if err := t.q.UpdateGroupPresentations(ctx, db.UpdateGroupPresentationsParams{
		ID:                  group.ID,
		Presentations:       presentations,
		CurrentlyPresenting: sqlutil.ToSqlString(group.CurrentlyPresenting),
	}); err != nil {
		return fmt.Errorf("failed to update presentations of group %s: %w", group.ID, err)
	}
	return nil
}

func (t *Tx) DeleteAllGroups(ctx context.Context) error {
	if err := t.q.DeleteAllGroups(ctx); err != nil {
		return fmt.Errorf("failed to delete groups: %w", err)
	}
	return nil
}

// Projects

func (t *Tx) CreateProject(ctx context.Context, project *models.Project, position int) error {
	row, err := t.q.CreateProject(ctx, db.CreateProjectParams{
		ID:          project.ID,
		DevpostID:   project.DevpostID,
		Name:        project.Name,
		DevpostURL:  project.DevpostURL,
		TeamMembers: project.TeamMembers,
		GroupID:     sqlutil.ToNullUUID(project.GroupID),
		Position:    int32(position),
	})
	if err != nil {
		return fmt.Errorf("failed to create project %s: %w", project.DevpostID, err)
	}
	project.CreatedAt = row.CreatedAt
	return nil
}

func (t *Tx) GetProjectByDevpostID(ctx context.Context, devpostID string) (*models.Project, error) {
	row, err := t.q.GetProjectByDevpostID(ctx, devpostID)
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", notFound(err, "project "+devpostID))
	}
	return dbProjectToModel(row), nil
}

func (t *Tx) ListGroupProjects(ctx context.Context, groupID uuid.UUID) ([]models.Project, error) {
	rows, err := t.q.ListProjectsByGroup(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects of group %s: %w", groupID, err)
	}
	return dbProjectsToModels(rows), nil
}

func (t *Tx) ListPresentedProjects(ctx context.Context, groupID uuid.UUID) ([]models.Project, error) {
	rows, err := t.q.ListPresentedProjectsByGroup(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list presented projects of group %s: %w", groupID, err)
	}
	return dbProjectsToModels(rows), nil
}

func (t *Tx) ListProjects(ctx context.Context) ([]models.Project, error) {
	rows, err := t.q.ListProjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return dbProjectsToModels(rows), nil
}

// MarkProjectPresented reports whether the flag changed.
func (t *Tx) MarkProjectPresented(ctx context.Context, id uuid.UUID) (bool, error) {
	n, err := t.q.MarkProjectPresented(ctx, id)
	if err != nil {
		return false, fmt.Errorf("failed to mark project %s presented: %w", id, err)
	}
	return n > 0, nil
}

func (t *Tx) DeleteAllProjects(ctx context.Context) error {
	if err := t.q.DeleteAllProjects(ctx); err != nil {
		return fmt.Errorf("failed to delete projects: %w", err)
	}
	return nil
}

// Scores

func (t *Tx) UpsertScore(ctx context.Context, score models.Score) (*models.Score, error) {
	criteria, err := json.Marshal(score.Criteria)
	if err != nil {
		return nil, fmt.Errorf("failed to encode criteria: %w", err)
	}
	row, err := t.q.UpsertScore(ctx, db.UpsertScoreParams{
		ID:          score.ID,
		ProjectID:   score.ProjectID,
		JudgeID:     score.JudgeID,
		Criteria:    criteria,
		SubmittedAt: score.SubmittedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upsert score: %w", err)
	}
	return dbScoreToModel(row)
}

func (t *Tx) ListScoresByProjects(ctx context.Context, projectIDs []uuid.UUID) ([]models.Score, error) {
	if len(projectIDs) == 0 {
		return nil, nil
	}
	rows, err := t.q.ListScoresByProjects(ctx, projectIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to list scores by projects: %w", err)
	}
	return dbScoresToModels(rows)
}

func (t *Tx) ListScoresByJudge(ctx context.Context, judgeID uuid.UUID) ([]models.Score, error) {
	rows, err := t.q.ListScoresByJudge(ctx, judgeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list scores of judge %s: %w", judgeID, err)
	}
	return dbScoresToModels(rows)
}

func (t *Tx) ListScores(ctx context.Context) ([]models.Score, error) {
	rows, err := t.q.ListScores(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list scores: %w", err)
	}
	return dbScoresToModels(rows)
}

func (t *Tx) DeleteAllScores(ctx context.Context) error {
	if err := t.q.DeleteAllScores(ctx); err != nil {
		return fmt.Errorf("failed to delete scores: %w", err)
	}
	return nil
}

// Judging status

// GetJudgingStatus reads the event switch. A missing row means inactive.
func (t *Tx) GetJudgingStatus(ctx context.Context) (models.JudgingStatus, error) {
	row, err := t.q.GetJudgingStatus(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return models.JudgingStatus{}, nil
	}
	if err != nil {
		return models.JudgingStatus{}, fmt.Errorf("failed to get judging status: %w", err)
	}
	return models.JudgingStatus{Active: row.Active, UpdatedAt: row.UpdatedAt}, nil
}

func (t *Tx) SetJudgingActive(ctx context.Context, active bool, _ time.Time) (models.JudgingStatus, error) {
	row, err := t.q.SetJudgingStatus(ctx, active)
	if err != nil {
		return models.JudgingStatus{}, fmt.Errorf("failed to set judging status: %w", err)
	}
	return models.JudgingStatus{Active: row.Active, UpdatedAt: row.UpdatedAt}, nil
}

// Outbox

func (t *Tx) InsertOutboxEvent(ctx context.Context, event models.OutboxEvent) error {
	if err := t.q.InsertOutboxEvent(ctx, db.InsertOutboxEventParams{
		ID:        event.ID,
		GroupID:   sqlutil.ToNullUUID(event.GroupID),
		EventType: event.EventType,
		Payload:   event.Payload,
	}); err != nil {
		return fmt.Errorf("failed to insert %s outbox event: %w", event.EventType, err)
	}
	return nil
}
