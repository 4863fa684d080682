package presentation

import (
	"time"

	"github.com/mcdev12/hackjudge/go/internal/models"
)

// RemainingSeconds projects the countdown of slot at now without touching
// stored state. Running slots derive it from StartedAt with elapsed time
// floored to whole seconds. Everything else reads the frozen value. The
// result is always within [0, duration].
func RemainingSeconds(slot models.PresentationSlot, now time.Time) int {
	total := slot.DurationSeconds()
	remaining := slot.TimerState.RemainingSeconds
	if slot.IsRunning() && slot.TimerState.StartedAt != nil {
		elapsed := now.Sub(*slot.TimerState.StartedAt)
		if elapsed < 0 {
			elapsed = 0
		}
		remaining = total - int(elapsed/time.Second)
	}
	return clampSeconds(remaining, total)
}

// Deadline is the instant a running slot reaches zero.
func Deadline(slot models.PresentationSlot, now time.Time) time.Time {
	return now.Add(time.Duration(RemainingSeconds(slot, now)) * time.Second)
}

// SyntheticStart back-dates a start time so that elapsed-time math from it
// reproduces remaining.
func SyntheticStart(durationSeconds, remaining int, now time.Time) time.Time {
	elapsed := durationSeconds - clampSeconds(remaining, durationSeconds)
	return now.Add(-time.Duration(elapsed) * time.Second)
}

// CompletionDelay is how long to wait before checking a deadline, padded by
// slack so the check reads the slot as due.
func CompletionDelay(deadline, now time.Time, slack time.Duration) time.Duration {
	d := deadline.Sub(now) + slack
	if d < 0 {
		return 0
	}
	return d
}

func clampSeconds(v, upper int) int {
	if v < 0 {
		return 0
	}
	if upper >= 0 && v > upper {
		return upper
	}
	return v
}
