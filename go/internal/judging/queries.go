package judging

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mcdev12/hackjudge/go/internal/apperr"
	"github.com/mcdev12/hackjudge/go/internal/models"
)

var errNoGroupAssigned = apperr.NotFound("You have not been assigned any projects.")

// AllGroupsStatus summarizes presentation progress of every group.
func (a *App) AllGroupsStatus(ctx context.Context, actor *models.User) ([]GroupStatus, error) {
	if err := requireRole(actor, models.RoleDirector); err != nil {
		return nil, err
	}

	var out []GroupStatus
	err := a.store.WithinTx(ctx, func(tx Tx) error {
		groups, err := tx.ListGroups(ctx)
		if err != nil {
			return err
		}
		mentorIDs := make([]uuid.UUID, len(groups))
		for i, g := range groups {
			mentorIDs[i] = g.MentorID
		}
		mentors, err := tx.ListUsersByIDs(ctx, mentorIDs)
		if err != nil {
			return err
		}
		names := make(map[uuid.UUID]string, len(mentors))
		for _, m := range mentors {
			names[m.ID] = m.Name
		}

		out = make([]GroupStatus, 0, len(groups))
		for _, g := range groups {
			out = append(out, summarizeGroup(g, names[g.MentorID]))
		}
		return nil
	})
	if err != nil {
		return nil, wrapInternal("list group status", err)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].MentorName < out[j].MentorName })
	return out, nil
}

func summarizeGroup(g models.Group, mentorName string) GroupStatus {
	s := GroupStatus{
		GroupID:            g.ID,
		MentorName:         mentorName,
		TotalPresentations: len(g.Presentations),
	}
	for _, slot := range g.Presentations {
		switch slot.Status {
		case models.SlotStatusCompleted:
			s.PresentedCount++
		case models.SlotStatusPresenting:
			s.CurrentlyPresenting = slot.ProjectName
		}
	}
	s.AllComplete = s.TotalPresentations > 0 && s.PresentedCount == s.TotalPresentations
	return s
}

// GroupProjects lists the projects of the caller's group.
func (a *App) GroupProjects(ctx context.Context, actor *models.User) ([]models.Project, error) {
	if err := requireRole(actor, models.RoleMentor, models.RoleJudge); err != nil {
		return nil, err
	}
	if actor.GroupID == nil {
		return nil, errNoGroupAssigned
	}

	var projects []models.Project
	err := a.store.WithinTx(ctx, func(tx Tx) error {
		var err error
		projects, err = tx.ListGroupProjects(ctx, *actor.GroupID)
		return err
	})
	if err != nil {
		return nil, wrapInternal("list group projects", err)
	}
	return projects, nil
}

// MyScores lists every score the judge has submitted.
func (a *App) MyScores(ctx context.Context, actor *models.User) ([]models.Score, error) {
	if err := requireRole(actor, models.RoleJudge); err != nil {
		return nil, err
	}

	var scores []models.Score
	err := a.store.WithinTx(ctx, func(tx Tx) error {
		var err error
		scores, err = tx.ListScoresByJudge(ctx, actor.ID)
		return err
	})
	if err != nil {
		return nil, wrapInternal("list scores", err)
	}
	return scores, nil
}

// Scoreboard ranks every project by its weighted average score.
func (a *App) Scoreboard(ctx context.Context, actor *models.User) ([]ScoreboardEntry, error) {
	if err := requireRole(actor, models.RoleDirector); err != nil {
		return nil, err
	}

	var (
		projects []models.Project
		scores   []models.Score
	)
	err := a.store.WithinTx(ctx, func(tx Tx) error {
		var err error
		if projects, err = tx.ListProjects(ctx); err != nil {
			return err
		}
		scores, err = tx.ListScores(ctx)
		return err
	})
	if err != nil {
		return nil, wrapInternal("build scoreboard", err)
	}
	return BuildScoreboard(projects, scores, a.cfg.Criteria), nil
}

// BuildScoreboard averages each criterion over a project's scores and
// weights the averages into a total. Values are rounded to two places;
// the total is computed from unrounded averages.
func BuildScoreboard(projects []models.Project, scores []models.Score, criteria []Criterion) []ScoreboardEntry {
	byProject := make(map[uuid.UUID][]models.Score)
	for _, s := range scores {
		byProject[s.ProjectID] = append(byProject[s.ProjectID], s)
	}

	entries := make([]ScoreboardEntry, 0, len(projects))
	for _, p := range projects {
		own := byProject[p.ID]
		entry := ScoreboardEntry{
			ProjectID:       p.ID,
			DevpostID:       p.DevpostID,
			ProjectName:     p.Name,
			GroupID:         p.GroupID,
			HasPresented:    p.HasPresented,
			ScoreCount:      len(own),
			CriteriaAverage: make(map[string]decimal.Decimal, len(criteria)),
			WeightedTotal:   decimal.Zero,
		}
		total := decimal.Zero
		for _, c := range criteria {
			sum, n := decimal.Zero, 0
			for _, s := range own {
				if v, ok := s.Criteria[c.Name]; ok {
					sum = sum.Add(decimal.NewFromFloat(v))
					n++
				}
			}
			avg := decimal.Zero
			if n > 0 {
				avg = sum.Div(decimal.NewFromInt(int64(n)))
			}
			entry.CriteriaAverage[c.Name] = avg.Round(2)
			total = total.Add(avg.Mul(c.Weight))
		}
		entry.WeightedTotal = total.Round(2)
		entries = append(entries, entry)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if c := entries[i].WeightedTotal.Cmp(entries[j].WeightedTotal); c != 0 {
			return c > 0
		}
		return entries[i].ProjectName < entries[j].ProjectName
	})
	return entries
}

// CurrentlyPresenting returns the name of the project presenting in the
// judge's group, or "" when nobody is.
func (a *App) CurrentlyPresenting(ctx context.Context, actor *models.User) (string, error) {
	if err := requireRole(actor, models.RoleJudge); err != nil {
		return "", err
	}
	if actor.GroupID == nil {
		return "", errNoGroupAssigned
	}

	var name string
	err := a.store.WithinTx(ctx, func(tx Tx) error {
		group, err := tx.GetGroup(ctx, *actor.GroupID)
		if errors.Is(err, apperr.ErrNotFound) {
			return apperr.NotFound("Your group could not be found in the system.")
		}
		if err != nil {
			return err
		}
		if slot := group.PresentingSlot(); slot != nil && !slot.TimerState.IsPaused {
			name = slot.ProjectName
		}
		return nil
	})
	if err != nil {
		return "", wrapInternal("load presenting project", err)
	}
	return name, nil
}

// JudgingStatus returns the event-wide switch.
func (a *App) JudgingStatus(ctx context.Context) (models.JudgingStatus, error) {
	var status models.JudgingStatus
	err := a.store.WithinTx(ctx, func(tx Tx) error {
		var err error
		status, err = tx.GetJudgingStatus(ctx)
		return err
	})
	if err != nil {
		return models.JudgingStatus{}, wrapInternal("load judging status", err)
	}
	return status, nil
}

// ServerTime lets clients correct for clock skew when rendering countdowns.
func (a *App) ServerTime() time.Time {
	return a.clock.Now()
}
