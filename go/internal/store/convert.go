package store

import (
	"encoding/json"
	"fmt"

	"github.com/mcdev12/hackjudge/go/internal/db"
	"github.com/mcdev12/hackjudge/go/internal/models"
	"github.com/mcdev12/hackjudge/go/internal/sqlutil"
)

func dbUserToModel(u db.User) *models.User {
	return &models.User{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      models.Role(u.Role),
		GroupID:   sqlutil.FromNullUUID(u.GroupID),
		CreatedAt: u.CreatedAt,
	}
}

func dbUsersToModels(rows []db.User) []models.User {
	users := make([]models.User, len(rows))
	for i, row := range rows {
		users[i] = *dbUserToModel(row)
	}
	return users
}

func dbGroupToModel(g db.Group) (*models.Group, error) {
	slots, err := sqlutil.FromNullJSON[models.PresentationSlot](g.Presentations)
	if err != nil {
		return nil, fmt.Errorf("failed to decode presentations of group %s: %w", g.ID, err)
	}
	return &models.Group{
		ID:                  g.ID,
		MentorID:            g.MentorID,
		JudgeIDs:            g.JudgeIDs,
		ProjectDevpostIDs:   g.ProjectDevpostIDs,
		Presentations:       slots,
		CurrentlyPresenting: sqlutil.FromSqlStringPtr(g.CurrentlyPresenting),
		CreatedAt:           g.CreatedAt,
		UpdatedAt:           g.UpdatedAt,
	}, nil
}

func dbGroupsToModels(rows []db.Group) ([]models.Group, error) {
	groups := make([]models.Group, 0, len(rows))
	for _, row := range rows {
		g, err := dbGroupToModel(row)
		if err != nil {
			return nil, err
		}
		groups = append(groups, *g)
	}
	return groups, nil
}

func dbProjectToModel(p db.Project) *models.Project {
	return &models.Project{
		ID:           p.ID,
		DevpostID:    p.DevpostID,
		Name:         p.Name,
		DevpostURL:   p.DevpostURL,
		TeamMembers:  p.TeamMembers,
		GroupID:      sqlutil.FromNullUUID(p.GroupID),
		HasPresented: p.HasPresented,
		CreatedAt:    p.CreatedAt,
	}
}

func dbProjectsToModels(rows []db.Project) []models.Project {
	projects := make([]models.Project, len(rows))
	for i, row := range rows {
		projects[i] = *dbProjectToModel(row)
	}
	return projects
}

func dbScoreToModel(s db.Score) (*models.Score, error) {
	var criteria map[string]float64
	if err := json.Unmarshal(s.Criteria, &criteria); err != nil {
		return nil, fmt.Errorf("failed to decode criteria of score %s: %w", s.ID, err)
	}
	return &models.Score{
		ID:          s.ID,
		ProjectID:   s.ProjectID,
		JudgeID:     s.JudgeID,
		Criteria:    criteria,
		SubmittedAt: s.SubmittedAt,
	}, nil
}

func dbScoresToModels(rows []db.Score) ([]models.Score, error) {
	scores := make([]models.Score, 0, len(rows))
	for _, row := range rows {
		s, err := dbScoreToModel(row)
		if err != nil {
			return nil, err
		}
		scores = append(scores, *s)
	}
	return scores, nil
}
