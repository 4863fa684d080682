package presentation

import (
	"github.com/google/uuid"

	"github.com/mcdev12/hackjudge/go/internal/apperr"
	"github.com/mcdev12/hackjudge/go/internal/models"
)

// GateReport lists presented projects of a group still waiting on judges.
type GateReport struct {
	HasIncompleteScores bool                       `json:"hasIncompleteScores"`
	IncompleteProjects  []apperr.IncompleteProject `json:"incompleteProjects"`
}

// CheckScores finds, for every presented project, the judges of the group
// that have not scored it. judges must be in group order; projects and
// scores from other groups are ignored.
func CheckScores(judges []models.User, projects []models.Project, scores []models.Score) GateReport {
	type key struct{ project, judge uuid.UUID }
	scored := make(map[key]struct{}, len(scores))
	for _, s := range scores {
		scored[key{s.ProjectID, s.JudgeID}] = struct{}{}
	}

	report := GateReport{IncompleteProjects: []apperr.IncompleteProject{}}
	for _, p := range projects {
		if !p.HasPresented {
			continue
		}
		var missing []string
		for _, j := range judges {
			if _, ok := scored[key{p.ID, j.ID}]; !ok {
				missing = append(missing, j.Name)
			}
		}
		if len(missing) > 0 {
			report.IncompleteProjects = append(report.IncompleteProjects, apperr.IncompleteProject{
				ProjectName:   p.Name,
				MissingJudges: missing,
			})
		}
	}
	report.HasIncompleteScores = len(report.IncompleteProjects) > 0
	return report
}

// orderJudges returns users in the order of ids, skipping unknown ids.
func orderJudges(ids []uuid.UUID, users []models.User) []models.User {
	byID := make(map[uuid.UUID]models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	ordered := make([]models.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := byID[id]; ok {
			ordered = append(ordered, u)
		}
	}
	return ordered
}
