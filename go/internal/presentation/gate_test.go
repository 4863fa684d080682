package presentation_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/mcdev12/hackjudge/go/internal/apperr"
	"github.com/mcdev12/hackjudge/go/internal/models"
	"github.com/mcdev12/hackjudge/go/internal/presentation"
)

func TestCheckScoresListsMissingJudgesInGroupOrder(t *testing.T) {
	j1 := models.User{ID: uuid.New(), Name: "J1"}
	j2 := models.User{ID: uuid.New(), Name: "J2"}
	j3 := models.User{ID: uuid.New(), Name: "J3"}
	p := models.Project{ID: uuid.New(), Name: "P", HasPresented: true}
	q := models.Project{ID: uuid.New(), Name: "Q", HasPresented: false}

	report := presentation.CheckScores(
		[]models.User{j1, j2, j3},
		[]models.Project{p, q},
		[]models.Score{{ProjectID: p.ID, JudgeID: j2.ID}},
	)

	assert.True(t, report.HasIncompleteScores)
	assert.Equal(t, []apperr.IncompleteProject{{ProjectName: "P", MissingJudges: []string{"J1", "J3"}}}, report.IncompleteProjects)
}

func TestCheckScoresIgnoresOtherGroups(t *testing.T) {
	j1 := models.User{ID: uuid.New(), Name: "J1"}
	outsider := uuid.New()
	p := models.Project{ID: uuid.New(), Name: "P", HasPresented: true}

	report := presentation.CheckScores(
		[]models.User{j1},
		[]models.Project{p},
		[]models.Score{
			{ProjectID: p.ID, JudgeID: j1.ID},
			{ProjectID: uuid.New(), JudgeID: outsider},
		},
	)

	assert.False(t, report.HasIncompleteScores)
	assert.Empty(t, report.IncompleteProjects)
}

func TestCheckScoresNothingPresented(t *testing.T) {
	report := presentation.CheckScores(
		[]models.User{{ID: uuid.New(), Name: "J1"}},
		[]models.Project{{ID: uuid.New(), Name: "P"}},
		nil,
	)
	assert.False(t, report.HasIncompleteScores)
	assert.NotNil(t, report.IncompleteProjects)
}
