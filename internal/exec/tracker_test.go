package exec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/model"
	"main/internal/model/enum"
	"main/pkg/exception"
)

func TestTrackerLifecycle(t *testing.T) {
	tracker := NewTracker()
	require.NoError(t, tracker.Add(Tracked{Order: model.Order{ID: "o1"}}))

	entry, ok := tracker.Get("o1")
	require.True(t, ok)
	assert.Equal(t, enum.TrackStatusPending, entry.Status)

	tracker.Update("o1", func(tr *Tracked) { tr.Status = enum.TrackStatusExecuting })
	entry, _ = tracker.Get("o1")
	assert.Equal(t, enum.TrackStatusExecuting, entry.Status)

	finished, ok := tracker.Finish("o1", enum.TrackStatusCompleted)
	require.True(t, ok)
	assert.Equal(t, enum.TrackStatusCompleted, finished.Status)
	assert.Equal(t, 0, tracker.Len())

	_, ok = tracker.Finish("o1", enum.TrackStatusFailed)
	assert.False(t, ok)
}

func TestTrackerRejectsDuplicates(t *testing.T) {
	tracker := NewTracker()
	require.NoError(t, tracker.Add(Tracked{Order: model.Order{ID: "o1"}}))
	require.ErrorIs(t, tracker.Add(Tracked{Order: model.Order{ID: "o1"}}), exception.ErrOrderDuplicate)
}

func TestTrackOutcome(t *testing.T) {
	testCases := []struct {
		status   enum.OrderStatus
		expected enum.TrackStatus
	}{
		{enum.OrderStatusFilled, enum.TrackStatusCompleted},
		{enum.OrderStatusCanceled, enum.TrackStatusCancelled},
		{enum.OrderStatusRejected, enum.TrackStatusFailed},
		{enum.OrderStatusExpired, enum.TrackStatusFailed},
	}
	for _, tc := range testCases {
		if got := trackOutcome(tc.status); got != tc.expected {
			t.Fatalf("outcome mismatch for %s! should be %s but got %s", tc.status, tc.expected, got)
		}
	}
}
