package judging_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/hackjudge/go/internal/judging"
	"github.com/mcdev12/hackjudge/go/internal/models"
)

func TestPartitionRoundRobin(t *testing.T) {
	buckets := judging.Partition([]string{"a", "b", "c", "d", "e", "f", "g"}, 3)

	assert.Equal(t, [][]string{{"a", "d", "g"}, {"b", "e"}, {"c", "f"}}, buckets)
}

func TestPartitionBalanceAndExactlyOnce(t *testing.T) {
	for items := 0; items <= 23; items++ {
		for n := 1; n <= 7; n++ {
			in := make([]int, items)
			for i := range in {
				in[i] = i
			}
			buckets := judging.Partition(in, n)
			require.Len(t, buckets, n)

			seen := make(map[int]int)
			for _, b := range buckets {
				assert.GreaterOrEqual(t, len(b), items/n, "items=%d n=%d", items, n)
				assert.LessOrEqual(t, len(b), (items+n-1)/n, "items=%d n=%d", items, n)
				for _, v := range b {
					seen[v]++
				}
			}
			assert.Len(t, seen, items)
			for v, c := range seen {
				assert.Equal(t, 1, c, "item %d assigned %d times", v, c)
			}
		}
	}
}

func TestPartitionMoreBucketsThanItems(t *testing.T) {
	buckets := judging.Partition([]string{"only"}, 3)

	assert.Equal(t, [][]string{{"only"}, {}, {}}, buckets)
}

func TestPartitionNonPositive(t *testing.T) {
	assert.Nil(t, judging.Partition([]string{"a"}, 0))
}

func TestBuildPresentations(t *testing.T) {
	now := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)
	slots := judging.BuildPresentations([]models.ImportedProject{
		{DevpostID: "rover", Name: "Rover"},
		{DevpostID: "lander", Name: "Lander"},
	}, 5, now)

	require.Len(t, slots, 2)
	for i, s := range slots {
		assert.Equal(t, models.SlotStatusUpcoming, s.Status)
		assert.Equal(t, 300, s.TimerState.RemainingSeconds)
		assert.False(t, s.TimerState.IsPaused)
		assert.Nil(t, s.TimerState.StartedAt)
		assert.Equal(t, now.Add(time.Duration(i)*5*time.Minute), s.ScheduledStart)
	}
	assert.Equal(t, "Lander", slots[1].ProjectName)
}
