package booking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cinebook-cli/model"
)

func availableMatrix(t *testing.T, rows, cols int) *model.SeatMatrix {
	t.Helper()
	matrix, err := BuildSeatMatrix(gridRecords(rows, cols))
	require.NoError(t, err)
	return matrix
}

func TestTrackerToggleAndLimit(t *testing.T) {
	matrix := availableMatrix(t, 2, 2)
	tracker := NewSeatSelectionTracker(2)

	changed, err := tracker.Toggle(seatID(1, 1), matrix)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = tracker.Toggle(seatID(1, 2), matrix)
	require.NoError(t, err)
	assert.True(t, changed)

	// third seat bounces off the limit and leaves the set untouched
	changed, err = tracker.Toggle(seatID(2, 1), matrix)
	assert.ErrorIs(t, err, ErrSeatLimitExceeded)
	assert.False(t, changed)
	assert.Equal(t, []string{seatID(1, 1), seatID(1, 2)}, tracker.Selected())

	// freeing a slot makes room again
	changed, err = tracker.Toggle(seatID(1, 1), matrix)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = tracker.Toggle(seatID(2, 1), matrix)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, []string{seatID(1, 2), seatID(2, 1)}, tracker.Selected())
}

func TestTrackerIgnoresUnavailableSeats(t *testing.T) {
	records := gridRecords(1, 3)
	records[1].Status = 1 // sold
	records[2].Status = 2 // blocked
	matrix, err := BuildSeatMatrix(records)
	require.NoError(t, err)

	tracker := NewSeatSelectionTracker(4)

	changed, err := tracker.Toggle(seatID(1, 2), matrix)
	require.NoError(t, err)
	assert.False(t, changed)

	changed, err = tracker.Toggle(seatID(1, 3), matrix)
	require.NoError(t, err)
	assert.False(t, changed)

	changed, err = tracker.Toggle("missing", matrix)
	require.NoError(t, err)
	assert.False(t, changed)

	assert.Zero(t, tracker.Count())
}

func TestTrackerBasePrice(t *testing.T) {
	matrix := availableMatrix(t, 1, 3)
	tracker := NewSeatSelectionTracker(3)

	assert.Zero(t, tracker.BasePrice(25))

	_, err := tracker.Toggle(seatID(1, 1), matrix)
	require.NoError(t, err)
	_, err = tracker.Toggle(seatID(1, 2), matrix)
	require.NoError(t, err)

	assert.InDelta(t, 50.0, tracker.BasePrice(25), 1e-9)
}

func TestTrackerClear(t *testing.T) {
	matrix := availableMatrix(t, 1, 2)
	tracker := NewSeatSelectionTracker(2)

	_, err := tracker.Toggle(seatID(1, 1), matrix)
	require.NoError(t, err)
	require.True(t, tracker.Has(seatID(1, 1)))

	tracker.Clear()
	assert.Zero(t, tracker.Count())
	assert.False(t, tracker.Has(seatID(1, 1)))
	assert.Empty(t, tracker.Selected())
}
