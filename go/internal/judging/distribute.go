package judging

import (
	"time"

	"github.com/mcdev12/hackjudge/go/internal/models"
)

// Partition deals items round-robin into n buckets: item i goes to bucket
// i mod n. Bucket sizes differ by at most one and every item lands exactly
// once. It returns nil when n is not positive.
func Partition[T any](items []T, n int) [][]T {
	if n <= 0 {
		return nil
	}
	buckets := make([][]T, n)
	for i := range buckets {
		buckets[i] = make([]T, 0, len(items)/n+1)
	}
	for i, item := range items {
		buckets[i%n] = append(buckets[i%n], item)
	}
	return buckets
}

// BuildPresentations lays out one upcoming slot per project, in order, spaced
// durationMinutes apart from now. The schedule is advisory.
func BuildPresentations(projects []models.ImportedProject, durationMinutes int, now time.Time) []models.PresentationSlot {
	slots := make([]models.PresentationSlot, len(projects))
	for i, p := range projects {
		slots[i] = models.PresentationSlot{
			ProjectDevpostID: p.DevpostID,
			ProjectName:      p.Name,
			ScheduledStart:   now.Add(time.Duration(i*durationMinutes) * time.Minute),
			DurationMinutes:  durationMinutes,
			Status:           models.SlotStatusUpcoming,
			TimerState: models.TimerState{
				RemainingSeconds: durationMinutes * 60,
				IsPaused:         false,
			},
		}
	}
	return slots
}
