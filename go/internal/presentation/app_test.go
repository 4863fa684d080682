package presentation_test

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/hackjudge/go/internal/apperr"
	"github.com/mcdev12/hackjudge/go/internal/events"
	"github.com/mcdev12/hackjudge/go/internal/models"
	"github.com/mcdev12/hackjudge/go/internal/presentation"
	"github.com/mcdev12/hackjudge/go/internal/store/memstore"
)

type scheduled struct {
	delay time.Duration
	job   models.CompletionJob
}

type fakeScheduler struct {
	mu    sync.Mutex
	calls []scheduled
}

func (f *fakeScheduler) ScheduleAfter(delay time.Duration, job models.CompletionJob) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, scheduled{delay: delay, job: job})
}

func (f *fakeScheduler) last(t *testing.T) scheduled {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.calls)
	return f.calls[len(f.calls)-1]
}

func (f *fakeScheduler) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fixture struct {
	ctx     context.Context
	store   *memstore.Store
	clock   *clockwork.FakeClock
	sched   *fakeScheduler
	app     *presentation.App
	mentor  *models.User
	judges  []models.User
	groupID uuid.UUID
}

// newFixture builds one group with judges J1 and J2 and one five-minute slot
// per project name. Judging starts active.
func newFixture(t *testing.T, projectNames ...string) *fixture {
	t.Helper()
	ctx := context.Background()
	s := memstore.New()
	clock := clockwork.NewFakeClockAt(t0)
	groupID := uuid.New()

	mentor := models.User{ID: uuid.New(), Name: "Mia", Role: models.RoleMentor, GroupID: &groupID}
	judges := []models.User{
		{ID: uuid.New(), Name: "J1", Role: models.RoleJudge, GroupID: &groupID},
		{ID: uuid.New(), Name: "J2", Role: models.RoleJudge, GroupID: &groupID},
	}
	s.AddUser(mentor)
	for _, j := range judges {
		s.AddUser(j)
	}

	require.NoError(t, s.WithinTx(ctx, func(tx *memstore.Tx) error {
		group := &models.Group{ID: groupID, MentorID: mentor.ID, JudgeIDs: []uuid.UUID{judges[0].ID, judges[1].ID}}
		if err := tx.CreateGroup(ctx, group); err != nil {
			return err
		}
		for i, name := range projectNames {
			devpostID := strings.ToLower(name)
			if err := tx.CreateProject(ctx, &models.Project{
				ID: uuid.New(), DevpostID: devpostID, Name: name, GroupID: &groupID,
			}, i); err != nil {
				return err
			}
			group.ProjectDevpostIDs = append(group.ProjectDevpostIDs, devpostID)
			group.Presentations = append(group.Presentations, models.PresentationSlot{
				ProjectDevpostID: devpostID,
				ProjectName:      name,
				ScheduledStart:   t0.Add(time.Duration(i*5) * time.Minute),
				DurationMinutes:  5,
				Status:           models.SlotStatusUpcoming,
				TimerState:       models.TimerState{RemainingSeconds: 300},
			})
		}
		if err := tx.AttachGroupProjects(ctx, group); err != nil {
			return err
		}
		_, err := tx.SetJudgingActive(ctx, true, t0)
		return err
	}))

	sched := &fakeScheduler{}
	return &fixture{
		ctx:     ctx,
		store:   s,
		clock:   clock,
		sched:   sched,
		app:     presentation.NewApp(presentation.NewRepository(s.WithinTx), sched, clock, presentation.DefaultConfig(), nil),
		mentor:  &mentor,
		judges:  judges,
		groupID: groupID,
	}
}

func (f *fixture) slot(t *testing.T, devpostID string) models.PresentationSlot {
	t.Helper()
	g, ok := f.store.Group(f.groupID)
	require.True(t, ok)
	i := g.SlotIndex(devpostID)
	require.GreaterOrEqual(t, i, 0)
	return g.Presentations[i]
}

func (f *fixture) score(t *testing.T, judge models.User, devpostID string) {
	t.Helper()
	p, ok := f.store.Project(devpostID)
	require.True(t, ok)
	require.NoError(t, f.store.WithinTx(f.ctx, func(tx *memstore.Tx) error {
		_, err := tx.UpsertScore(f.ctx, models.Score{
			ID: uuid.New(), ProjectID: p.ID, JudgeID: judge.ID,
			Criteria: map[string]float64{"design": 7}, SubmittedAt: f.clock.Now(),
		})
		return err
	}))
}

func (f *fixture) setJudging(t *testing.T, active bool) {
	t.Helper()
	require.NoError(t, f.store.WithinTx(f.ctx, func(tx *memstore.Tx) error {
		_, err := tx.SetJudgingActive(f.ctx, active, f.clock.Now())
		return err
	}))
}

func (f *fixture) eventsOfType(eventType string) []models.OutboxEvent {
	var out []models.OutboxEvent
	for _, ev := range f.store.Outbox() {
		if ev.EventType == eventType {
			out = append(out, ev)
		}
	}
	return out
}

// assertSingleActive checks that at most one slot is presenting and that the
// pointer agrees with the status scan.
func (f *fixture) assertSingleActive(t *testing.T) {
	t.Helper()
	g, ok := f.store.Group(f.groupID)
	require.True(t, ok)

	var presenting, running []string
	for _, s := range g.Presentations {
		if s.Status == models.SlotStatusPresenting {
			presenting = append(presenting, s.ProjectDevpostID)
		}
		if s.IsRunning() {
			running = append(running, s.ProjectDevpostID)
		}
	}
	assert.LessOrEqual(t, len(presenting), 1)
	if len(running) == 1 {
		require.NotNil(t, g.CurrentlyPresenting)
		assert.Equal(t, running[0], *g.CurrentlyPresenting)
	} else {
		assert.Nil(t, g.CurrentlyPresenting)
	}
}

func requireCode(t *testing.T, err error, code apperr.Code) *apperr.Error {
	t.Helper()
	require.Error(t, err)
	e, ok := apperr.As(err)
	require.True(t, ok, "expected business error, got %v", err)
	require.Equal(t, code, e.Code)
	return e
}

func TestTransitionsRequireMentor(t *testing.T) {
	f := newFixture(t, "Rover")

	_, err := f.app.Start(f.ctx, nil, "rover")
	requireCode(t, err, apperr.CodeUnauthenticated)

	_, err = f.app.Start(f.ctx, &f.judges[0], "rover")
	requireCode(t, err, apperr.CodeWrongRole)

	orphan := models.User{ID: uuid.New(), Name: "Otto", Role: models.RoleMentor}
	_, err = f.app.Start(f.ctx, &orphan, "rover")
	requireCode(t, err, apperr.CodeNotFound)
}

func TestTransitionsRequireActiveJudging(t *testing.T) {
	f := newFixture(t, "Rover")
	f.setJudging(t, false)

	_, err := f.app.Start(f.ctx, f.mentor, "rover")
	e := requireCode(t, err, apperr.CodeJudgingNotActive)
	assert.Equal(t, "Please wait until judging begins.", e.Message)
	assert.Equal(t, models.SlotStatusUpcoming, f.slot(t, "rover").Status)
	assert.Equal(t, 0, f.sched.count())
}

func TestStartUnknownProject(t *testing.T) {
	f := newFixture(t, "Rover")

	_, err := f.app.Start(f.ctx, f.mentor, "ghost")
	requireCode(t, err, apperr.CodeNotFound)
}

func TestStartBeginsCountdownAndSchedulesCompletion(t *testing.T) {
	f := newFixture(t, "Rover", "Lander")

	tr, err := f.app.Start(f.ctx, f.mentor, "rover")
	require.NoError(t, err)
	assert.Equal(t, models.SlotStatusPresenting, tr.Slot.Status)

	slot := f.slot(t, "rover")
	assert.Equal(t, models.SlotStatusPresenting, slot.Status)
	assert.False(t, slot.TimerState.IsPaused)
	assert.Equal(t, 300, slot.TimerState.RemainingSeconds)
	require.NotNil(t, slot.TimerState.StartedAt)
	assert.True(t, slot.TimerState.StartedAt.Equal(t0))

	call := f.sched.last(t)
	assert.Equal(t, 300*time.Second+500*time.Millisecond, call.delay)
	assert.Equal(t, models.CompletionJob{GroupID: f.groupID, ProjectDevpostID: "rover", Deadline: t0.Add(5 * time.Minute)}, call.job)

	assert.Len(t, f.eventsOfType(events.TypePresentationStarted), 1)
	f.assertSingleActive(t)
}

func TestStartRejectsNonUpcomingSlot(t *testing.T) {
	f := newFixture(t, "Rover")
	_, err := f.app.Start(f.ctx, f.mentor, "rover")
	require.NoError(t, err)

	_, err = f.app.Start(f.ctx, f.mentor, "rover")
	requireCode(t, err, apperr.CodeInvalidState)

	_, err = f.app.Stop(f.ctx, f.mentor, "rover")
	require.NoError(t, err)
	_, err = f.app.Start(f.ctx, f.mentor, "rover")
	requireCode(t, err, apperr.CodeInvalidState)
}

func TestFiveMinutePresentationAutoCompletes(t *testing.T) {
	f := newFixture(t, "Rover")
	_, err := f.app.Start(f.ctx, f.mentor, "rover")
	require.NoError(t, err)
	job := f.sched.last(t).job

	f.clock.Advance(301 * time.Second)
	require.NoError(t, f.app.AutoComplete(f.ctx, job))

	slot := f.slot(t, "rover")
	assert.Equal(t, models.SlotStatusCompleted, slot.Status)
	assert.Equal(t, 0, slot.TimerState.RemainingSeconds)
	assert.True(t, slot.TimerState.IsPaused)
	assert.Nil(t, slot.TimerState.StartedAt)

	p, _ := f.store.Project("rover")
	assert.True(t, p.HasPresented)

	ended := f.eventsOfType(events.TypePresentationEnded)
	require.Len(t, ended, 1)
	var payload events.PresentationEndedPayload
	require.NoError(t, json.Unmarshal(ended[0].Payload, &payload))
	assert.Equal(t, events.OriginSystem, payload.Origin)
	assert.Empty(t, payload.ActorID)
	f.assertSingleActive(t)
}

func TestAutoCompleteIsIdempotent(t *testing.T) {
	f := newFixture(t, "Rover")
	_, err := f.app.Start(f.ctx, f.mentor, "rover")
	require.NoError(t, err)
	job := f.sched.last(t).job

	f.clock.Advance(301 * time.Second)
	require.NoError(t, f.app.AutoComplete(f.ctx, job))
	before := f.store.Outbox()

	require.NoError(t, f.app.AutoComplete(f.ctx, job))
	assert.Equal(t, before, f.store.Outbox())
	assert.Len(t, f.eventsOfType(events.TypePresentationEnded), 1)
}

func TestAutoCompleteToleratesEarlyFiring(t *testing.T) {
	f := newFixture(t, "Rover")
	_, err := f.app.Start(f.ctx, f.mentor, "rover")
	require.NoError(t, err)
	job := f.sched.last(t).job

	f.clock.Advance(298 * time.Second)
	require.NoError(t, f.app.AutoComplete(f.ctx, job))
	assert.Equal(t, models.SlotStatusCompleted, f.slot(t, "rover").Status)
}

func TestAutoCompleteIgnoresCallbackThatIsNotDue(t *testing.T) {
	f := newFixture(t, "Rover")
	_, err := f.app.Start(f.ctx, f.mentor, "rover")
	require.NoError(t, err)
	job := f.sched.last(t).job

	f.clock.Advance(60 * time.Second)
	require.NoError(t, f.app.AutoComplete(f.ctx, job))
	assert.Equal(t, models.SlotStatusPresenting, f.slot(t, "rover").Status)
}

func TestAutoCompleteIgnoresPausedAndStoppedSlots(t *testing.T) {
	f := newFixture(t, "Rover", "Lander")
	_, err := f.app.Start(f.ctx, f.mentor, "rover")
	require.NoError(t, err)
	job := f.sched.last(t).job

	f.clock.Advance(10 * time.Second)
	_, err = f.app.Pause(f.ctx, f.mentor, "rover")
	require.NoError(t, err)

	f.clock.Advance(10 * time.Minute)
	require.NoError(t, f.app.AutoComplete(f.ctx, job))
	slot := f.slot(t, "rover")
	assert.Equal(t, models.SlotStatusPresenting, slot.Status)
	assert.Equal(t, 290, slot.TimerState.RemainingSeconds)

	_, err = f.app.Stop(f.ctx, f.mentor, "rover")
	require.NoError(t, err)
	require.NoError(t, f.app.AutoComplete(f.ctx, job))
	assert.Len(t, f.eventsOfType(events.TypePresentationEnded), 1)

	require.NoError(t, f.app.AutoComplete(f.ctx, models.CompletionJob{GroupID: uuid.New(), ProjectDevpostID: "rover"}))
}

func TestPauseResumePreservesRemainingTime(t *testing.T) {
	f := newFixture(t, "Rover")
	_, err := f.app.Start(f.ctx, f.mentor, "rover")
	require.NoError(t, err)

	f.clock.Advance(60 * time.Second)
	tr, err := f.app.Pause(f.ctx, f.mentor, "rover")
	require.NoError(t, err)
	assert.Equal(t, 240, tr.Slot.TimerState.RemainingSeconds)

	slot := f.slot(t, "rover")
	assert.True(t, slot.TimerState.IsPaused)
	assert.Nil(t, slot.TimerState.StartedAt)
	f.assertSingleActive(t)

	f.clock.Advance(30 * time.Second)
	schedule, err := f.app.GroupPresentations(f.ctx, f.mentor)
	require.NoError(t, err)
	assert.Equal(t, 240, schedule.Slots[0].TimerState.RemainingSeconds)

	_, err = f.app.Resume(f.ctx, f.mentor, "rover")
	require.NoError(t, err)
	slot = f.slot(t, "rover")
	require.NotNil(t, slot.TimerState.StartedAt)
	assert.True(t, slot.TimerState.StartedAt.Equal(t0.Add(30*time.Second)))
	assert.Equal(t, 240, presentation.RemainingSeconds(slot, f.clock.Now()))

	call := f.sched.last(t)
	assert.Equal(t, 240*time.Second+500*time.Millisecond, call.delay)
	assert.True(t, call.job.Deadline.Equal(f.clock.Now().Add(240*time.Second)))

	f.clock.Advance(10 * time.Second)
	schedule, err = f.app.GroupPresentations(f.ctx, f.mentor)
	require.NoError(t, err)
	assert.Equal(t, 230, schedule.Slots[0].TimerState.RemainingSeconds)
	f.assertSingleActive(t)
}

func TestPauseAndResumePreconditions(t *testing.T) {
	f := newFixture(t, "Rover")

	_, err := f.app.Pause(f.ctx, f.mentor, "rover")
	requireCode(t, err, apperr.CodeInvalidState)
	_, err = f.app.Resume(f.ctx, f.mentor, "rover")
	requireCode(t, err, apperr.CodeInvalidState)

	_, err = f.app.Start(f.ctx, f.mentor, "rover")
	require.NoError(t, err)
	_, err = f.app.Resume(f.ctx, f.mentor, "rover")
	requireCode(t, err, apperr.CodeInvalidState)

	_, err = f.app.Pause(f.ctx, f.mentor, "rover")
	require.NoError(t, err)
	_, err = f.app.Pause(f.ctx, f.mentor, "rover")
	requireCode(t, err, apperr.CodeInvalidState)
}

func TestOnlyOnePresentationPerGroup(t *testing.T) {
	f := newFixture(t, "Rover", "Lander")
	_, err := f.app.Start(f.ctx, f.mentor, "rover")
	require.NoError(t, err)

	_, err = f.app.Start(f.ctx, f.mentor, "lander")
	e := requireCode(t, err, apperr.CodeAnotherPresentationActive)
	assert.Equal(t, "Cannot start presentation for Lander. Rover is currently presenting.", e.Message)

	// a paused presenter still holds the group
	_, err = f.app.Pause(f.ctx, f.mentor, "rover")
	require.NoError(t, err)
	_, err = f.app.Start(f.ctx, f.mentor, "lander")
	requireCode(t, err, apperr.CodeAnotherPresentationActive)
	f.assertSingleActive(t)
}

func TestStopCompletesAndTagsMentor(t *testing.T) {
	f := newFixture(t, "Rover")
	_, err := f.app.Start(f.ctx, f.mentor, "rover")
	require.NoError(t, err)
	_, err = f.app.Pause(f.ctx, f.mentor, "rover")
	require.NoError(t, err)

	tr, err := f.app.Stop(f.ctx, f.mentor, "rover")
	require.NoError(t, err)
	assert.Equal(t, events.OriginMentor, tr.Origin)

	slot := f.slot(t, "rover")
	assert.Equal(t, models.SlotStatusCompleted, slot.Status)
	assert.Equal(t, 0, slot.TimerState.RemainingSeconds)
	assert.True(t, slot.TimerState.IsPaused)
	p, _ := f.store.Project("rover")
	assert.True(t, p.HasPresented)

	ended := f.eventsOfType(events.TypePresentationEnded)
	require.Len(t, ended, 1)
	var payload events.PresentationEndedPayload
	require.NoError(t, json.Unmarshal(ended[0].Payload, &payload))
	assert.Equal(t, events.OriginMentor, payload.Origin)
	assert.Equal(t, f.mentor.ID.String(), payload.ActorID)

	_, err = f.app.Stop(f.ctx, f.mentor, "rover")
	requireCode(t, err, apperr.CodeInvalidState)
	f.assertSingleActive(t)
}

func TestScoringGateBlocksNextPresentation(t *testing.T) {
	f := newFixture(t, "P", "Q")
	_, err := f.app.Start(f.ctx, f.mentor, "p")
	require.NoError(t, err)
	_, err = f.app.Stop(f.ctx, f.mentor, "p")
	require.NoError(t, err)

	f.score(t, f.judges[0], "p")

	report, err := f.app.CheckIncompleteScores(f.ctx, f.mentor)
	require.NoError(t, err)
	assert.True(t, report.HasIncompleteScores)
	assert.Equal(t, []apperr.IncompleteProject{{ProjectName: "P", MissingJudges: []string{"J2"}}}, report.IncompleteProjects)

	_, err = f.app.Start(f.ctx, f.mentor, "q")
	e := requireCode(t, err, apperr.CodeIncompleteScores)
	assert.Equal(t, report.IncompleteProjects, e.IncompleteProjects)
	assert.Equal(t, models.SlotStatusUpcoming, f.slot(t, "q").Status)

	f.score(t, f.judges[1], "p")
	report, err = f.app.CheckIncompleteScores(f.ctx, f.mentor)
	require.NoError(t, err)
	assert.False(t, report.HasIncompleteScores)

	_, err = f.app.Start(f.ctx, f.mentor, "q")
	require.NoError(t, err)
}

func TestConcurrentStartsLeaveOnePresenter(t *testing.T) {
	f := newFixture(t, "A", "B", "C", "D")

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for _, id := range []string{"a", "b", "c", "d"} {
		wg.Add(1)
		go func(devpostID string) {
			defer wg.Done()
			_, err := f.app.Start(f.ctx, f.mentor, devpostID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case apperr.Is(err, apperr.CodeAnotherPresentationActive):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(id)
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, 3, conflicts)
	assert.Equal(t, 1, f.sched.count())
	f.assertSingleActive(t)
}

func TestRecoverCompletionsReschedulesRunningSlots(t *testing.T) {
	f := newFixture(t, "Rover", "Lander")
	_, err := f.app.Start(f.ctx, f.mentor, "rover")
	require.NoError(t, err)
	f.clock.Advance(100 * time.Second)

	restarted := &fakeScheduler{}
	app := presentation.NewApp(presentation.NewRepository(f.store.WithinTx), restarted, f.clock, presentation.DefaultConfig(), nil)

	n, err := app.RecoverCompletions(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	call := restarted.last(t)
	assert.Equal(t, "rover", call.job.ProjectDevpostID)
	assert.Equal(t, 200*time.Second+500*time.Millisecond, call.delay)

	_, err = f.app.Pause(f.ctx, f.mentor, "rover")
	require.NoError(t, err)
	n, err = app.RecoverCompletions(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestScheduleProjectsRunningCountdown(t *testing.T) {
	f := newFixture(t, "Rover", "Lumen")

	_, err := f.app.Start(f.ctx, f.mentor, "rover")
	require.NoError(t, err)
	f.clock.Advance(45 * time.Second)

	sched, err := f.app.Schedule(f.ctx, f.groupID)
	require.NoError(t, err)
	require.NotNil(t, sched.CurrentlyPresenting)
	assert.Equal(t, "rover", *sched.CurrentlyPresenting)
	assert.Equal(t, 255, sched.Slots[0].TimerState.RemainingSeconds)
	assert.Equal(t, 300, sched.Slots[1].TimerState.RemainingSeconds)
	assert.True(t, sched.ServerTime.Equal(t0.Add(45*time.Second)))

	_, err = f.app.Schedule(f.ctx, uuid.New())
	requireCode(t, err, apperr.CodeNotFound)
}
