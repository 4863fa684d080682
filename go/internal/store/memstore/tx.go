package memstore

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/mcdev12/hackjudge/go/internal/apperr"
	"github.com/mcdev12/hackjudge/go/internal/models"
)

// Tx is one unit of work over a private copy of the store.
type Tx struct {
	st *state
}

// Users

func (t *Tx) GetUser(_ context.Context, id uuid.UUID) (*models.User, error) {
	u, ok := t.st.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, apperr.ErrNotFound)
	}
	c := cloneUser(u)
	return &c, nil
}

func (t *Tx) ListUsersByIDs(_ context.Context, ids []uuid.UUID) ([]models.User, error) {
	var out []models.User
	for _, id := range ids {
		if u, ok := t.st.users[id]; ok {
			out = append(out, cloneUser(u))
		}
	}
	return out, nil
}

func (t *Tx) ListNonDirectorUsers(_ context.Context) ([]models.User, error) {
	var out []models.User
	for _, u := range t.st.users {
		if u.Role != models.RoleDirector {
			out = append(out, cloneUser(u))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (t *Tx) SetUserGroup(_ context.Context, userID uuid.UUID, groupID *uuid.UUID) error {
	u, ok := t.st.users[userID]
	if !ok {
		return fmt.Errorf("user %s: %w", userID, apperr.ErrNotFound)
	}
	u.GroupID = groupID
	t.st.users[userID] = cloneUser(u)
	return nil
}

func (t *Tx) ClearAllUserGroups(_ context.Context) error {
	for id, u := range t.st.users {
		u.GroupID = nil
		t.st.users[id] = u
	}
	return nil
}

// Groups

func (t *Tx) CreateGroup(_ context.Context, group *models.Group) error {
	if _, ok := t.st.groups[group.ID]; ok {
		return fmt.Errorf("group %s already exists", group.ID)
	}
	now := time.Now()
	group.CreatedAt = now
	group.UpdatedAt = now
	c := group.Clone()
	c.Presentations = nil
	c.ProjectDevpostIDs = nil
	t.st.groups[group.ID] = c
	return nil
}

func (t *Tx) GetGroup(_ context.Context, id uuid.UUID) (*models.Group, error) {
	g, ok := t.st.groups[id]
	if !ok {
		return nil, fmt.Errorf("group %s: %w", id, apperr.ErrNotFound)
	}
	return g.Clone(), nil
}

// GetGroupForUpdate needs no row lock: transactions are already serialized.
func (t *Tx) GetGroupForUpdate(ctx context.Context, id uuid.UUID) (*models.Group, error) {
	return t.GetGroup(ctx, id)
}

func (t *Tx) ListGroups(_ context.Context) ([]models.Group, error) {
	out := make([]models.Group, 0, len(t.st.groups))
	for _, g := range sortedGroups(t.st.groups) {
		out = append(out, *g.Clone())
	}
	return out, nil
}

func (t *Tx) ListPresentingGroups(_ context.Context) ([]models.Group, error) {
	var out []models.Group
	for _, g := range sortedGroups(t.st.groups) {
		if g.CurrentlyPresenting != nil {
			out = append(out, *g.Clone())
		}
	}
	return out, nil
}

func (t *Tx) CountGroups(_ context.Context) (int, error) {
	return len(t.st.groups), nil
}

func (t *Tx) AttachGroupProjects(_ context.Context, group *models.Group) error {
	g, ok := t.st.groups[group.ID]
	if !ok {
		return fmt.Errorf("group %s: %w", group.ID, apperr.ErrNotFound)
	}
	src := group.Clone()
	g.ProjectDevpostIDs = src.ProjectDevpostIDs
	g.Presentations = src.Presentations
	g.UpdatedAt = time.Now()
	return nil
}

func (t *Tx) SaveGroupPresentations(_ context.Context, group *models.Group) error {
	g, ok := t.st.groups[group.ID]
	if !ok {
		return fmt.Errorf("group %s: %w", group.ID, apperr.ErrNotFound)
	}
	src := group.Clone()
	g.Presentations = src.Presentations
	g.CurrentlyPresenting = src.CurrentlyPresenting
	g.UpdatedAt = time.Now()
	return nil
}

func (t *Tx) DeleteAllGroups(_ context.Context) error {
	t.st.groups = make(map[uuid.UUID]*models.Group)
	for _, p := range t.st.projects {
		p.GroupID = nil
	}
	return nil
}

// Projects

func (t *Tx) CreateProject(_ context.Context, project *models.Project, position int) error {
	for _, p := range t.st.projects {
		if p.DevpostID == project.DevpostID {
			return fmt.Errorf("project %s already exists", project.DevpostID)
		}
	}
	if project.CreatedAt.IsZero() {
		project.CreatedAt = time.Now()
	}
	t.st.projects[project.ID] = cloneProject(project)
	t.st.positions[project.ID] = position
	return nil
}

func (t *Tx) GetProjectByDevpostID(_ context.Context, devpostID string) (*models.Project, error) {
	for _, p := range t.st.projects {
		if p.DevpostID == devpostID {
			return cloneProject(p), nil
		}
	}
	return nil, fmt.Errorf("project %s: %w", devpostID, apperr.ErrNotFound)
}

func (t *Tx) ListGroupProjects(_ context.Context, groupID uuid.UUID) ([]models.Project, error) {
	return t.filterProjects(func(p *models.Project) bool {
		return p.GroupID != nil && *p.GroupID == groupID
	}), nil
}

func (t *Tx) ListPresentedProjects(_ context.Context, groupID uuid.UUID) ([]models.Project, error) {
	return t.filterProjects(func(p *models.Project) bool {
		return p.GroupID != nil && *p.GroupID == groupID && p.HasPresented
	}), nil
}

func (t *Tx) ListProjects(_ context.Context) ([]models.Project, error) {
	out := t.filterProjects(func(*models.Project) bool { return true })
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (t *Tx) filterProjects(keep func(*models.Project) bool) []models.Project {
	var out []models.Project
	for _, p := range t.st.projects {
		if keep(p) {
			out = append(out, *cloneProject(p))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		pi, pj := t.st.positions[out[i].ID], t.st.positions[out[j].ID]
		if pi != pj {
			return pi < pj
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

func (t *Tx) MarkProjectPresented(_ context.Context, id uuid.UUID) (bool, error) {
	p, ok := t.st.projects[id]
	if !ok {
		return false, fmt.Errorf("project %s: %w", id, apperr.ErrNotFound)
	}
	if p.HasPresented {
		return false, nil
	}
	p.HasPresented = true
	return true, nil
}

func (t *Tx) DeleteAllProjects(_ context.Context) error {
	t.st.projects = make(map[uuid.UUID]*models.Project)
	t.st.positions = make(map[uuid.UUID]int)
	t.st.scores = make(map[uuid.UUID]*models.Score)
	return nil
}

// Scores

// UpsertScore keeps one score per (project, judge); resubmission replaces
// the criteria in place.
func (t *Tx) UpsertScore(_ context.Context, score models.Score) (*models.Score, error) {
	if _, ok := t.st.projects[score.ProjectID]; !ok {
		return nil, fmt.Errorf("project %s: %w", score.ProjectID, apperr.ErrNotFound)
	}
	for _, existing := range t.st.scores {
		if existing.ProjectID == score.ProjectID && existing.JudgeID == score.JudgeID {
			existing.Criteria = cloneScore(&score).Criteria
			existing.SubmittedAt = score.SubmittedAt
			return cloneScore(existing), nil
		}
	}
	t.st.scores[score.ID] = cloneScore(&score)
	return cloneScore(&score), nil
}

func (t *Tx) ListScoresByProjects(_ context.Context, projectIDs []uuid.UUID) ([]models.Score, error) {
	want := make(map[uuid.UUID]bool, len(projectIDs))
	for _, id := range projectIDs {
		want[id] = true
	}
	return t.filterScores(func(s *models.Score) bool { return want[s.ProjectID] }), nil
}

func (t *Tx) ListScoresByJudge(_ context.Context, judgeID uuid.UUID) ([]models.Score, error) {
	return t.filterScores(func(s *models.Score) bool { return s.JudgeID == judgeID }), nil
}

func (t *Tx) ListScores(_ context.Context) ([]models.Score, error) {
	return t.filterScores(func(*models.Score) bool { return true }), nil
}

func (t *Tx) filterScores(keep func(*models.Score) bool) []models.Score {
	var out []models.Score
	for _, s := range t.st.scores {
		if keep(s) {
			out = append(out, *cloneScore(s))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].SubmittedAt.Equal(out[j].SubmittedAt) {
			return out[i].SubmittedAt.Before(out[j].SubmittedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

func (t *Tx) DeleteAllScores(_ context.Context) error {
	t.st.scores = make(map[uuid.UUID]*models.Score)
	return nil
}

// Judging status

func (t *Tx) GetJudgingStatus(_ context.Context) (models.JudgingStatus, error) {
	if !t.st.hasStatus {
		return models.JudgingStatus{}, nil
	}
	return t.st.judging, nil
}

func (t *Tx) SetJudgingActive(_ context.Context, active bool, now time.Time) (models.JudgingStatus, error) {
	t.st.judging = models.JudgingStatus{Active: active, UpdatedAt: now}
	t.st.hasStatus = true
	return t.st.judging, nil
}

// Outbox

func (t *Tx) InsertOutboxEvent(_ context.Context, event models.OutboxEvent) error {
	event.Payload = append([]byte(nil), event.Payload...)
	t.st.outbox = append(t.st.outbox, event)
	return nil
}

func sortedGroups(groups map[uuid.UUID]*models.Group) []*models.Group {
	out := make([]*models.Group, 0, len(groups))
	for _, g := range groups {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}
