package orchestrator_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/hackjudge/go/internal/models"
	"github.com/mcdev12/hackjudge/go/internal/orchestrator"
	"github.com/mcdev12/hackjudge/go/internal/presentation"
	"github.com/mcdev12/hackjudge/go/internal/store/memstore"
)

type completionRig struct {
	ctx     context.Context
	store   *memstore.Store
	clock   *clockwork.FakeClock
	sched   *orchestrator.Scheduler
	app     *presentation.App
	mentor  *models.User
	groupID uuid.UUID
}

func newCompletionRig(t *testing.T) *completionRig {
	t.Helper()
	ctx := context.Background()
	s := memstore.New()
	clock := clockwork.NewFakeClock()
	groupID := uuid.New()

	mentor := models.User{ID: uuid.New(), Name: "Mia", Role: models.RoleMentor, GroupID: &groupID}
	s.AddUser(mentor)

	require.NoError(t, s.WithinTx(ctx, func(tx *memstore.Tx) error {
		group := &models.Group{ID: groupID, MentorID: mentor.ID}
		if err := tx.CreateGroup(ctx, group); err != nil {
			return err
		}
		if err := tx.CreateProject(ctx, &models.Project{
			ID: uuid.New(), DevpostID: "rover", Name: "Rover", GroupID: &groupID,
		}, 0); err != nil {
			return err
		}
		group.ProjectDevpostIDs = []string{"rover"}
		group.Presentations = []models.PresentationSlot{{
			ProjectDevpostID: "rover",
			ProjectName:      "Rover",
			ScheduledStart:   clock.Now(),
			DurationMinutes:  5,
			Status:           models.SlotStatusUpcoming,
			TimerState:       models.TimerState{RemainingSeconds: 300},
		}}
		if err := tx.AttachGroupProjects(ctx, group); err != nil {
			return err
		}
		_, err := tx.SetJudgingActive(ctx, true, clock.Now())
		return err
	}))

	sched := orchestrator.NewScheduler(clock, orchestrator.Config{NumWorkers: 2})
	app := presentation.NewApp(presentation.NewRepository(s.WithinTx), sched, clock, presentation.DefaultConfig(), nil)
	startScheduler(t, sched, app)

	return &completionRig{ctx: ctx, store: s, clock: clock, sched: sched, app: app, mentor: &mentor, groupID: groupID}
}

func (r *completionRig) status(t *testing.T) models.SlotStatus {
	t.Helper()
	g, ok := r.store.Group(r.groupID)
	require.True(t, ok)
	return g.Presentations[0].Status
}

func TestStartedPresentationCompletesWhenTimerRunsOut(t *testing.T) {
	r := newCompletionRig(t)

	_, err := r.app.Start(r.ctx, r.mentor, "rover")
	require.NoError(t, err)
	require.Equal(t, 1, r.sched.Pending())

	r.clock.Advance(4 * time.Minute)
	assert.Equal(t, models.SlotStatusPresenting, r.status(t))

	r.clock.Advance(time.Minute + time.Second)
	require.Eventually(t, func() bool {
		return r.status(t) == models.SlotStatusCompleted
	}, time.Second, 5*time.Millisecond)
}

func TestPausedPresentationOutlivesOriginalDeadline(t *testing.T) {
	r := newCompletionRig(t)

	_, err := r.app.Start(r.ctx, r.mentor, "rover")
	require.NoError(t, err)

	r.clock.Advance(2 * time.Minute)
	_, err = r.app.Pause(r.ctx, r.mentor, "rover")
	require.NoError(t, err)

	// The original timer still fires, finds the slot paused and leaves it.
	r.clock.Advance(5 * time.Minute)
	require.Eventually(t, func() bool { return r.sched.Pending() == 0 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, models.SlotStatusPresenting, r.status(t))

	_, err = r.app.Resume(r.ctx, r.mentor, "rover")
	require.NoError(t, err)
	require.Equal(t, 1, r.sched.Pending())

	r.clock.Advance(3*time.Minute + time.Second)
	require.Eventually(t, func() bool {
		return r.status(t) == models.SlotStatusCompleted
	}, time.Second, 5*time.Millisecond)
}

func TestRecoverCompletionsRearmsRunningSlots(t *testing.T) {
	r := newCompletionRig(t)

	_, err := r.app.Start(r.ctx, r.mentor, "rover")
	require.NoError(t, err)

	// A restarted process has a fresh scheduler with nothing armed.
	r.sched.Stop()
	fresh := orchestrator.NewScheduler(r.clock, orchestrator.Config{})
	app := presentation.NewApp(presentation.NewRepository(r.store.WithinTx), fresh, r.clock, presentation.DefaultConfig(), nil)
	startScheduler(t, fresh, app)

	n, err := app.RecoverCompletions(r.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, fresh.Pending())

	r.clock.Advance(5*time.Minute + time.Second)
	require.Eventually(t, func() bool {
		return r.status(t) == models.SlotStatusCompleted
	}, time.Second, 5*time.Millisecond)
}
