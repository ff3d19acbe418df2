package booking

import "cinebook-cli/model"

// SeatSelectionTracker holds the ordered set of chosen seat ids. Its size
// never exceeds the per-order limit.
type SeatSelectionTracker struct {
	limit   int
	order   []string
	members map[string]struct{}
}

func NewSeatSelectionTracker(limit int) *SeatSelectionTracker {
	if limit < 1 {
		limit = 1
	}
	return &SeatSelectionTracker{
		limit:   limit,
		members: make(map[string]struct{}),
	}
}

// Toggle flips the selection state of a seat. Toggling a seat that is
// missing from the matrix or not Available is a no-op, not an error.
// Adding past the limit returns ErrSeatLimitExceeded and leaves the set
// unchanged.
func (t *SeatSelectionTracker) Toggle(seatID string, matrix *model.SeatMatrix) (bool, error) {
	seat := matrix.Find(seatID)
	if seat == nil || seat.Status != model.SeatAvailable {
		return false, nil
	}

	if _, ok := t.members[seatID]; ok {
		delete(t.members, seatID)
		for i, id := range t.order {
			if id == seatID {
				t.order = append(t.order[:i], t.order[i+1:]...)
				break
			}
		}
		return true, nil
	}

	if len(t.order) >= t.limit {
		return false, ErrSeatLimitExceeded
	}
	t.members[seatID] = struct{}{}
	t.order = append(t.order, seatID)
	return true, nil
}

// Selected returns the chosen seat ids in selection order.
func (t *SeatSelectionTracker) Selected() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

func (t *SeatSelectionTracker) Count() int { return len(t.order) }

func (t *SeatSelectionTracker) Has(seatID string) bool {
	_, ok := t.members[seatID]
	return ok
}

// Clear empties the selection; called whenever the seat matrix is rebuilt.
func (t *SeatSelectionTracker) Clear() {
	t.order = t.order[:0]
	t.members = make(map[string]struct{})
}

// BasePrice is a pure function of the selection size.
func (t *SeatSelectionTracker) BasePrice(pricePerSeat float64) float64 {
	return float64(len(t.order)) * pricePerSeat
}
