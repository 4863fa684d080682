package memstore_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/hackjudge/go/internal/apperr"
	"github.com/mcdev12/hackjudge/go/internal/models"
	"github.com/mcdev12/hackjudge/go/internal/store/memstore"
)

func TestWithinTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	mentor := models.User{ID: uuid.New(), Name: "Mia", Role: models.RoleMentor}
	s.AddUser(mentor)

	groupID := uuid.New()
	boom := errors.New("boom")
	err := s.WithinTx(ctx, func(tx *memstore.Tx) error {
		require.NoError(t, tx.CreateGroup(ctx, &models.Group{ID: groupID, MentorID: mentor.ID}))
		require.NoError(t, tx.SetUserGroup(ctx, mentor.ID, &groupID))
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, ok := s.Group(groupID)
	assert.False(t, ok)
	u, _ := s.User(mentor.ID)
	assert.Nil(t, u.GroupID)
}

func TestWithinTxCommitsOnSuccess(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	groupID := uuid.New()

	require.NoError(t, s.WithinTx(ctx, func(tx *memstore.Tx) error {
		return tx.CreateGroup(ctx, &models.Group{ID: groupID, MentorID: uuid.New()})
	}))

	g, ok := s.Group(groupID)
	require.True(t, ok)
	assert.Nil(t, g.Presentations)
}

func TestReturnedGroupsAreCopies(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	groupID := uuid.New()
	require.NoError(t, s.WithinTx(ctx, func(tx *memstore.Tx) error {
		if err := tx.CreateGroup(ctx, &models.Group{ID: groupID, MentorID: uuid.New()}); err != nil {
			return err
		}
		return tx.AttachGroupProjects(ctx, &models.Group{
			ID:                groupID,
			ProjectDevpostIDs: []string{"rover"},
			Presentations:     []models.PresentationSlot{{ProjectDevpostID: "rover", Status: models.SlotStatusUpcoming}},
		})
	}))

	require.NoError(t, s.WithinTx(ctx, func(tx *memstore.Tx) error {
		g, err := tx.GetGroupForUpdate(ctx, groupID)
		require.NoError(t, err)
		g.Presentations[0].Status = models.SlotStatusCompleted
		return nil
	}))

	g, _ := s.Group(groupID)
	assert.Equal(t, models.SlotStatusUpcoming, g.Presentations[0].Status)
}

func TestUpsertScoreKeepsOnePerJudge(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	projectID, judgeID := uuid.New(), uuid.New()
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.WithinTx(ctx, func(tx *memstore.Tx) error {
		if err := tx.CreateProject(ctx, &models.Project{ID: projectID, DevpostID: "rover", Name: "Rover"}, 0); err != nil {
			return err
		}
		if _, err := tx.UpsertScore(ctx, models.Score{ID: uuid.New(), ProjectID: projectID, JudgeID: judgeID,
			Criteria: map[string]float64{"design": 4}, SubmittedAt: now}); err != nil {
			return err
		}
		_, err := tx.UpsertScore(ctx, models.Score{ID: uuid.New(), ProjectID: projectID, JudgeID: judgeID,
			Criteria: map[string]float64{"design": 9}, SubmittedAt: now.Add(time.Minute)})
		return err
	}))

	require.NoError(t, s.WithinTx(ctx, func(tx *memstore.Tx) error {
		scores, err := tx.ListScores(ctx)
		require.NoError(t, err)
		require.Len(t, scores, 1)
		assert.Equal(t, 9.0, scores[0].Criteria["design"])
		return nil
	}))
}

func TestMissingRecordsWrapErrNotFound(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()

	_ = s.WithinTx(ctx, func(tx *memstore.Tx) error {
		_, err := tx.GetGroup(ctx, uuid.New())
		assert.ErrorIs(t, err, apperr.ErrNotFound)
		_, err = tx.GetProjectByDevpostID(ctx, "nope")
		assert.ErrorIs(t, err, apperr.ErrNotFound)
		status, err := tx.GetJudgingStatus(ctx)
		assert.NoError(t, err)
		assert.False(t, status.Active)
		return nil
	})
}
