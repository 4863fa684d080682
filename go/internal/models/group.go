package models

import (
	"time"

	"github.com/google/uuid"
)

// SlotStatus defines where a presentation slot is in its lifecycle.
type SlotStatus string

const (
	SlotStatusUpcoming   SlotStatus = "upcoming"
	SlotStatusPresenting SlotStatus = "presenting"
	SlotStatusCompleted  SlotStatus = "completed"
)

// TimerState is the stored countdown of a slot. StartedAt is set only while
// the slot is presenting and running.
type TimerState struct {
	RemainingSeconds int        `json:"remainingSeconds"`
	IsPaused         bool       `json:"isPaused"`
	StartedAt        *time.Time `json:"startedAt,omitempty"`
}

// PresentationSlot is one project's presentation window inside a group.
type PresentationSlot struct {
	ProjectDevpostID string     `json:"projectDevpostId"`
	ProjectName      string     `json:"projectName"`
	ScheduledStart   time.Time  `json:"scheduledStart"`
	DurationMinutes  int        `json:"durationMinutes"`
	Status           SlotStatus `json:"status"`
	TimerState       TimerState `json:"timerState"`
}

// DurationSeconds returns the full length of the slot in whole seconds.
func (s PresentationSlot) DurationSeconds() int {
	return s.DurationMinutes * 60
}

// Duration returns the full length of the slot.
func (s PresentationSlot) Duration() time.Duration {
	return time.Duration(s.DurationSeconds()) * time.Second
}

// IsRunning reports whether the slot is presenting and not paused.
func (s PresentationSlot) IsRunning() bool {
	return s.Status == SlotStatusPresenting && !s.TimerState.IsPaused
}

// Group is a mentor with its judges, projects and presentation schedule.
type Group struct {
	ID                  uuid.UUID          `json:"id"`
	MentorID            uuid.UUID          `json:"mentor_id"`
	JudgeIDs            []uuid.UUID        `json:"judge_ids"`
	ProjectDevpostIDs   []string           `json:"project_devpost_ids"`
	Presentations       []PresentationSlot `json:"presentations"`
	CurrentlyPresenting *string            `json:"currently_presenting,omitempty"`
	CreatedAt           time.Time          `json:"created_at"`
	UpdatedAt           time.Time          `json:"updated_at"`
}

// SlotIndex returns the index of the slot for devpostID, or -1.
func (g *Group) SlotIndex(devpostID string) int {
	for i := range g.Presentations {
		if g.Presentations[i].ProjectDevpostID == devpostID {
			return i
		}
	}
	return -1
}

// PresentingSlot returns the slot in presenting status, running or paused.
func (g *Group) PresentingSlot() *PresentationSlot {
	for i := range g.Presentations {
		if g.Presentations[i].Status == SlotStatusPresenting {
			return &g.Presentations[i]
		}
	}
	return nil
}

// Clone returns a deep copy so callers can mutate the schedule freely.
func (g *Group) Clone() *Group {
	c := *g
	c.JudgeIDs = append([]uuid.UUID(nil), g.JudgeIDs...)
	c.ProjectDevpostIDs = append([]string(nil), g.ProjectDevpostIDs...)
	if g.Presentations != nil {
		c.Presentations = make([]PresentationSlot, len(g.Presentations))
		for i, s := range g.Presentations {
			if s.TimerState.StartedAt != nil {
				t := *s.TimerState.StartedAt
				s.TimerState.StartedAt = &t
			}
			c.Presentations[i] = s
		}
	}
	if g.CurrentlyPresenting != nil {
		p := *g.CurrentlyPresenting
		c.CurrentlyPresenting = &p
	}
	return &c
}

// CompletionJob identifies a deferred auto-completion. It carries references
// only so the handler re-reads current state when it fires.
type CompletionJob struct {
	GroupID          uuid.UUID `json:"group_id"`
	ProjectDevpostID string    `json:"project_devpost_id"`
	Deadline         time.Time `json:"deadline"`
}
