package presentation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/hackjudge/go/internal/apperr"
	"github.com/mcdev12/hackjudge/go/internal/events"
	"github.com/mcdev12/hackjudge/go/internal/models"
)

const (
	actionStart        = "start"
	actionPause        = "pause"
	actionResume       = "resume"
	actionStop         = "stop"
	actionAutoComplete = "auto_complete"
)

// App is the presentation state machine. Every transition is one atomic
// read-modify-write of a group (and, on completion, its project).
type App struct {
	store     Store
	scheduler CompletionScheduler
	clock     clockwork.Clock
	cfg       Config
	metrics   Metrics
}

// NewApp creates a new presentation App
func NewApp(store Store, scheduler CompletionScheduler, clock clockwork.Clock, cfg Config, metrics Metrics) *App {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &App{
		store:     store,
		scheduler: scheduler,
		clock:     clock,
		cfg:       cfg,
		metrics:   metrics,
	}
}

// Start moves an upcoming slot to presenting and schedules its completion.
func (a *App) Start(ctx context.Context, actor *models.User, devpostID string) (*Transition, error) {
	groupID, err := mentorGroup(actor)
	if err != nil {
		return nil, a.rejected(actionStart, err)
	}

	var (
		result Transition
		job    models.CompletionJob
	)
	err = a.store.WithinTx(ctx, func(tx Tx) error {
		group, idx, err := a.lockSlot(ctx, tx, groupID, devpostID)
		if err != nil {
			return err
		}
		slot := group.Presentations[idx]

		switch slot.Status {
		case models.SlotStatusPresenting:
			return apperr.InvalidState(fmt.Sprintf("Presentation for %s is already in progress.", slot.ProjectName))
		case models.SlotStatusCompleted:
			return apperr.InvalidState(fmt.Sprintf("Presentation for %s has already been completed.", slot.ProjectName))
		}
		if other := conflictingSlot(group, devpostID); other != "" {
			return apperr.AnotherPresentationActive(slot.ProjectName, other)
		}
		if err := a.enforceGate(ctx, tx, group); err != nil {
			return err
		}

		now := a.clock.Now()
		started := now
		slot.Status = models.SlotStatusPresenting
		slot.TimerState = models.TimerState{
			RemainingSeconds: slot.DurationSeconds(),
			IsPaused:         false,
			StartedAt:        &started,
		}
		group.Presentations[idx] = slot
		group.CurrentlyPresenting = &slot.ProjectDevpostID

		if err := tx.SaveGroupPresentations(ctx, group); err != nil {
			return fmt.Errorf("failed to save presentations: %w", err)
		}

		deadline := now.Add(slot.Duration())
		if err := a.emit(ctx, tx, group.ID, events.TypePresentationStarted, events.PresentationStartedPayload{
			GroupID:          group.ID.String(),
			ProjectDevpostID: slot.ProjectDevpostID,
			ProjectName:      slot.ProjectName,
			StartedAt:        now,
			DeadlineAt:       deadline,
			DurationSec:      slot.DurationSeconds(),
		}, now); err != nil {
			return err
		}

		result = Transition{GroupID: group.ID, Slot: slot}
		job = models.CompletionJob{GroupID: group.ID, ProjectDevpostID: slot.ProjectDevpostID, Deadline: deadline}
		return nil
	})
	if err != nil {
		return nil, a.rejected(actionStart, err)
	}

	a.schedule(job)
	a.metrics.TransitionApplied(actionStart)
	log.Info().
		Str("group_id", groupID.String()).
		Str("project_devpost_id", devpostID).
		Str("mentor_id", actor.ID.String()).
		Msg("presentation started")
	return &result, nil
}

// Pause freezes the countdown of the running slot.
func (a *App) Pause(ctx context.Context, actor *models.User, devpostID string) (*Transition, error) {
	groupID, err := mentorGroup(actor)
	if err != nil {
		return nil, a.rejected(actionPause, err)
	}

	var result Transition
	err = a.store.WithinTx(ctx, func(tx Tx) error {
		group, idx, err := a.lockSlot(ctx, tx, groupID, devpostID)
		if err != nil {
			return err
		}
		slot := group.Presentations[idx]
		if !slot.IsRunning() {
			return apperr.InvalidState(fmt.Sprintf("Presentation for %s is not running.", slot.ProjectName))
		}

		now := a.clock.Now()
		remaining := RemainingSeconds(slot, now)
		slot.TimerState = models.TimerState{
			RemainingSeconds: remaining,
			IsPaused:         true,
		}
		group.Presentations[idx] = slot
		clearPointer(group, devpostID)

		if err := tx.SaveGroupPresentations(ctx, group); err != nil {
			return fmt.Errorf("failed to save presentations: %w", err)
		}
		if err := a.emit(ctx, tx, group.ID, events.TypePresentationPaused, events.PresentationPausedPayload{
			GroupID:          group.ID.String(),
			ProjectDevpostID: slot.ProjectDevpostID,
			ProjectName:      slot.ProjectName,
			PausedAt:         now,
			RemainingSec:     remaining,
		}, now); err != nil {
			return err
		}

		result = Transition{GroupID: group.ID, Slot: slot}
		return nil
	})
	if err != nil {
		return nil, a.rejected(actionPause, err)
	}

	a.metrics.TransitionApplied(actionPause)
	log.Info().
		Str("group_id", groupID.String()).
		Str("project_devpost_id", devpostID).
		Int("remaining_sec", result.Slot.TimerState.RemainingSeconds).
		Msg("presentation paused")
	return &result, nil
}

// Resume restarts a paused slot from its frozen remainder and schedules a
// completion for the time that is left.
func (a *App) Resume(ctx context.Context, actor *models.User, devpostID string) (*Transition, error) {
	groupID, err := mentorGroup(actor)
	if err != nil {
		return nil, a.rejected(actionResume, err)
	}

	var (
		result Transition
		job    models.CompletionJob
	)
	err = a.store.WithinTx(ctx, func(tx Tx) error {
		group, idx, err := a.lockSlot(ctx, tx, groupID, devpostID)
		if err != nil {
			return err
		}
		slot := group.Presentations[idx]
		if slot.Status != models.SlotStatusPresenting || !slot.TimerState.IsPaused {
			return apperr.InvalidState(fmt.Sprintf("Presentation for %s is not paused.", slot.ProjectName))
		}
		if other := conflictingSlot(group, devpostID); other != "" {
			return apperr.AnotherPresentationActive(slot.ProjectName, other)
		}
		if err := a.enforceGate(ctx, tx, group); err != nil {
			return err
		}

		now := a.clock.Now()
		remaining := clampSeconds(slot.TimerState.RemainingSeconds, slot.DurationSeconds())
		started := SyntheticStart(slot.DurationSeconds(), remaining, now)
		slot.TimerState = models.TimerState{
			RemainingSeconds: remaining,
			IsPaused:         false,
			StartedAt:        &started,
		}
		group.Presentations[idx] = slot
		group.CurrentlyPresenting = &slot.ProjectDevpostID

		if err := tx.SaveGroupPresentations(ctx, group); err != nil {
			return fmt.Errorf("failed to save presentations: %w", err)
		}

		deadline := now.Add(time.Duration(remaining) * time.Second)
		if err := a.emit(ctx, tx, group.ID, events.TypePresentationResumed, events.PresentationResumedPayload{
			GroupID:          group.ID.String(),
			ProjectDevpostID: slot.ProjectDevpostID,
			ProjectName:      slot.ProjectName,
			ResumedAt:        now,
			DeadlineAt:       deadline,
			RemainingSec:     remaining,
		}, now); err != nil {
			return err
		}

		result = Transition{GroupID: group.ID, Slot: slot}
		job = models.CompletionJob{GroupID: group.ID, ProjectDevpostID: slot.ProjectDevpostID, Deadline: deadline}
		return nil
	})
	if err != nil {
		return nil, a.rejected(actionResume, err)
	}

	a.schedule(job)
	a.metrics.TransitionApplied(actionResume)
	log.Info().
		Str("group_id", groupID.String()).
		Str("project_devpost_id", devpostID).
		Time("deadline", job.Deadline).
		Msg("presentation resumed")
	return &result, nil
}

// Stop ends a presenting slot early on behalf of its mentor.
func (a *App) Stop(ctx context.Context, actor *models.User, devpostID string) (*Transition, error) {
	groupID, err := mentorGroup(actor)
	if err != nil {
		return nil, a.rejected(actionStop, err)
	}

	var result Transition
	err = a.store.WithinTx(ctx, func(tx Tx) error {
		group, idx, err := a.lockSlot(ctx, tx, groupID, devpostID)
		if err != nil {
			return err
		}
		slot := group.Presentations[idx]
		if slot.Status != models.SlotStatusPresenting {
			return apperr.InvalidState(fmt.Sprintf("Presentation for %s is not in progress.", slot.ProjectName))
		}

		result, err = a.complete(ctx, tx, group, idx, events.OriginMentor, actor.ID.String())
		return err
	})
	if err != nil {
		return nil, a.rejected(actionStop, err)
	}

	a.metrics.TransitionApplied(actionStop)
	log.Info().
		Str("group_id", groupID.String()).
		Str("project_devpost_id", devpostID).
		Str("mentor_id", actor.ID.String()).
		Msg("presentation stopped")
	return &result, nil
}

// AutoComplete is the deferred completion handler. It re-reads the slot and
// does nothing unless the slot is still running and due, so stale or
// duplicate deliveries are harmless.
func (a *App) AutoComplete(ctx context.Context, job models.CompletionJob) error {
	var (
		skipped string
		result  Transition
	)
	err := a.store.WithinTx(ctx, func(tx Tx) error {
		group, err := tx.GetGroupForUpdate(ctx, job.GroupID)
		if errors.Is(err, apperr.ErrNotFound) {
			skipped = "group_gone"
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to load group: %w", err)
		}

		idx := group.SlotIndex(job.ProjectDevpostID)
		if idx < 0 {
			skipped = "slot_gone"
			return nil
		}
		slot := group.Presentations[idx]
		switch {
		case slot.Status != models.SlotStatusPresenting:
			skipped = "not_presenting"
			return nil
		case slot.TimerState.IsPaused:
			skipped = "paused"
			return nil
		}

		remaining := time.Duration(RemainingSeconds(slot, a.clock.Now())) * time.Second
		if remaining > a.cfg.DueTolerance {
			skipped = "not_due"
			return nil
		}

		result, err = a.complete(ctx, tx, group, idx, events.OriginSystem, "")
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to auto-complete presentation: %w", err)
	}

	if skipped != "" {
		a.metrics.AutoCompleteSkipped(skipped)
		log.Debug().
			Str("group_id", job.GroupID.String()).
			Str("project_devpost_id", job.ProjectDevpostID).
			Str("reason", skipped).
			Msg("stale completion callback ignored")
		return nil
	}

	a.metrics.AutoCompleted(a.clock.Since(job.Deadline))
	a.metrics.TransitionApplied(actionAutoComplete)
	log.Info().
		Str("group_id", result.GroupID.String()).
		Str("project_devpost_id", job.ProjectDevpostID).
		Msg("presentation auto-completed")
	return nil
}

// RecoverCompletions schedules a completion for every running slot. It runs
// at startup so no deadline is lost across restarts.
func (a *App) RecoverCompletions(ctx context.Context) (int, error) {
	var jobs []models.CompletionJob
	err := a.store.WithinTx(ctx, func(tx Tx) error {
		groups, err := tx.ListPresentingGroups(ctx)
		if err != nil {
			return err
		}
		now := a.clock.Now()
		for _, g := range groups {
			for _, slot := range g.Presentations {
				if !slot.IsRunning() {
					continue
				}
				jobs = append(jobs, models.CompletionJob{
					GroupID:          g.ID,
					ProjectDevpostID: slot.ProjectDevpostID,
					Deadline:         Deadline(slot, now),
				})
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to recover pending completions: %w", err)
	}

	for _, job := range jobs {
		a.schedule(job)
	}
	return len(jobs), nil
}

// GroupPresentations returns the mentor's schedule with live countdowns.
func (a *App) GroupPresentations(ctx context.Context, actor *models.User) (*GroupSchedule, error) {
	groupID, err := mentorGroup(actor)
	if err != nil {
		return nil, err
	}
	return a.Schedule(ctx, groupID)
}

// Schedule returns the projected slots of a group without an access check.
// The gateway uses it to seed freshly connected clients.
func (a *App) Schedule(ctx context.Context, groupID uuid.UUID) (*GroupSchedule, error) {
	var group *models.Group
	err := a.store.WithinTx(ctx, func(tx Tx) error {
		var err error
		group, err = loadGroup(ctx, tx, groupID)
		return err
	})
	if err != nil {
		return nil, err
	}

	now := a.clock.Now()
	return &GroupSchedule{
		GroupID:             group.ID,
		Slots:               ProjectSlots(group.Presentations, now),
		CurrentlyPresenting: group.CurrentlyPresenting,
		ServerTime:          now,
	}, nil
}

// CheckIncompleteScores reports which presented projects of the mentor's
// group still wait on judges.
func (a *App) CheckIncompleteScores(ctx context.Context, actor *models.User) (*GateReport, error) {
	groupID, err := mentorGroup(actor)
	if err != nil {
		return nil, err
	}

	var report GateReport
	err = a.store.WithinTx(ctx, func(tx Tx) error {
		group, err := loadGroup(ctx, tx, groupID)
		if err != nil {
			return err
		}
		report, err = a.gate(ctx, tx, group)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &report, nil
}

// ProjectSlots returns a copy of slots with running countdowns evaluated at now.
func ProjectSlots(slots []models.PresentationSlot, now time.Time) []models.PresentationSlot {
	out := make([]models.PresentationSlot, len(slots))
	for i, s := range slots {
		s.TimerState.RemainingSeconds = RemainingSeconds(s, now)
		out[i] = s
	}
	return out
}

// complete applies the terminal transition shared by Stop and AutoComplete.
func (a *App) complete(ctx context.Context, tx Tx, group *models.Group, idx int, origin events.Origin, actorID string) (Transition, error) {
	now := a.clock.Now()
	slot := group.Presentations[idx]
	slot.Status = models.SlotStatusCompleted
	slot.TimerState = models.TimerState{
		RemainingSeconds: 0,
		IsPaused:         true,
	}
	group.Presentations[idx] = slot
	clearPointer(group, slot.ProjectDevpostID)

	if err := tx.SaveGroupPresentations(ctx, group); err != nil {
		return Transition{}, fmt.Errorf("failed to save presentations: %w", err)
	}

	project, err := tx.GetProjectByDevpostID(ctx, slot.ProjectDevpostID)
	if errors.Is(err, apperr.ErrNotFound) {
		return Transition{}, apperr.NotFound("The project could not be found in the system.")
	}
	if err != nil {
		return Transition{}, fmt.Errorf("failed to load project: %w", err)
	}
	if _, err := tx.MarkProjectPresented(ctx, project.ID); err != nil {
		return Transition{}, err
	}

	if err := a.emit(ctx, tx, group.ID, events.TypePresentationEnded, events.PresentationEndedPayload{
		GroupID:          group.ID.String(),
		ProjectDevpostID: slot.ProjectDevpostID,
		ProjectName:      slot.ProjectName,
		EndedAt:          now,
		Origin:           origin,
		ActorID:          actorID,
	}, now); err != nil {
		return Transition{}, err
	}

	return Transition{GroupID: group.ID, Slot: slot, Origin: origin}, nil
}

// lockSlot checks the event is live, then locks the group and finds the slot.
func (a *App) lockSlot(ctx context.Context, tx Tx, groupID uuid.UUID, devpostID string) (*models.Group, int, error) {
	status, err := tx.GetJudgingStatus(ctx)
	if err != nil {
		return nil, -1, err
	}
	if !status.Active {
		return nil, -1, apperr.JudgingNotActive()
	}

	group, err := tx.GetGroupForUpdate(ctx, groupID)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, -1, apperr.NotFound("Your group could not be found in the system.")
	}
	if err != nil {
		return nil, -1, err
	}

	idx := group.SlotIndex(devpostID)
	if idx < 0 {
		return nil, -1, apperr.NotFound("The project could not be found in the system.")
	}
	return group, idx, nil
}

func (a *App) enforceGate(ctx context.Context, tx Tx, group *models.Group) error {
	report, err := a.gate(ctx, tx, group)
	if err != nil {
		return err
	}
	if report.HasIncompleteScores {
		return apperr.IncompleteScores(report.IncompleteProjects)
	}
	return nil
}

func (a *App) gate(ctx context.Context, tx Tx, group *models.Group) (GateReport, error) {
	projects, err := tx.ListGroupProjects(ctx, group.ID)
	if err != nil {
		return GateReport{}, err
	}

	var presented []uuid.UUID
	for _, p := range projects {
		if p.HasPresented {
			presented = append(presented, p.ID)
		}
	}
	if len(presented) == 0 {
		return GateReport{IncompleteProjects: []apperr.IncompleteProject{}}, nil
	}

	scores, err := tx.ListScoresByProjects(ctx, presented)
	if err != nil {
		return GateReport{}, err
	}
	users, err := tx.ListUsersByIDs(ctx, group.JudgeIDs)
	if err != nil {
		return GateReport{}, err
	}
	return CheckScores(orderJudges(group.JudgeIDs, users), projects, scores), nil
}

func (a *App) emit(ctx context.Context, tx Tx, groupID uuid.UUID, eventType string, payload any, now time.Time) error {
	event, err := events.NewOutboxEvent(&groupID, eventType, payload, now)
	if err != nil {
		return err
	}
	return tx.InsertOutboxEvent(ctx, event)
}

// schedule runs after commit. A lost registration is recovered at restart.
func (a *App) schedule(job models.CompletionJob) {
	if a.scheduler == nil {
		log.Warn().
			Str("group_id", job.GroupID.String()).
			Str("project_devpost_id", job.ProjectDevpostID).
			Msg("no completion scheduler configured")
		return
	}
	delay := CompletionDelay(job.Deadline, a.clock.Now(), a.cfg.CompletionSlack)
	a.scheduler.ScheduleAfter(delay, job)
}

func (a *App) rejected(action string, err error) error {
	if e, ok := apperr.As(err); ok {
		a.metrics.TransitionRejected(action, string(e.Code))
		return err
	}
	a.metrics.TransitionRejected(action, "internal")
	return fmt.Errorf("failed to %s presentation: %w", action, err)
}

func mentorGroup(actor *models.User) (uuid.UUID, error) {
	if actor == nil {
		return uuid.Nil, apperr.Unauthenticated()
	}
	if actor.Role != models.RoleMentor {
		return uuid.Nil, apperr.WrongRole(string(models.RoleMentor), string(actor.Role))
	}
	if actor.GroupID == nil {
		return uuid.Nil, apperr.NotFound("Your group could not be found in the system.")
	}
	return *actor.GroupID, nil
}

func loadGroup(ctx context.Context, tx Tx, groupID uuid.UUID) (*models.Group, error) {
	group, err := tx.GetGroup(ctx, groupID)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.NotFound("Your group could not be found in the system.")
	}
	return group, err
}

// conflictingSlot names another slot that holds the group. The pointer is
// checked first; the status scan also catches a paused presenter, which has
// no pointer.
func conflictingSlot(group *models.Group, devpostID string) string {
	if cp := group.CurrentlyPresenting; cp != nil && *cp != devpostID {
		if i := group.SlotIndex(*cp); i >= 0 {
			return group.Presentations[i].ProjectName
		}
		return *cp
	}
	for _, s := range group.Presentations {
		if s.Status == models.SlotStatusPresenting && s.ProjectDevpostID != devpostID {
			return s.ProjectName
		}
	}
	return ""
}

func clearPointer(group *models.Group, devpostID string) {
	if group.CurrentlyPresenting != nil && *group.CurrentlyPresenting == devpostID {
		group.CurrentlyPresenting = nil
	}
}

type noopMetrics struct{}

func (noopMetrics) TransitionApplied(string)          {}
func (noopMetrics) TransitionRejected(string, string) {}
func (noopMetrics) AutoCompleted(time.Duration)       {}
func (noopMetrics) AutoCompleteSkipped(string)        {}
