package model

// SeatStatus is the normalized occupancy of a single seat.
type SeatStatus int

const (
	SeatAvailable SeatStatus = iota
	SeatSold
	SeatUnavailable
)

func (s SeatStatus) String() string {
	switch s {
	case SeatAvailable:
		return "available"
	case SeatSold:
		return "sold"
	default:
		return "unavailable"
	}
}

// SeatRecord is a raw seat entry as reported by the booking backend.
// Row and Column are 1-based; Status is the backend's raw status code.
type SeatRecord struct {
	Row    int    `json:"row"`
	Column int    `json:"column"`
	Status int    `json:"status"`
	SeatId string `json:"seatId"`
	Label  string `json:"label"`
}

type Seat struct {
	Row    int
	Column int
	Label  string
	Status SeatStatus
	SeatId string
}

// SeatMatrix is the rectangular grid of a hall. Cells without a seat
// record (aisles, gaps) are nil.
type SeatMatrix struct {
	Rows  int
	Cols  int
	Cells [][]*Seat
}

// At returns the seat at the 1-based (row, col) position, or nil for gaps
// and out-of-bounds positions.
func (m *SeatMatrix) At(row, col int) *Seat {
	if m == nil || row < 1 || row > m.Rows || col < 1 || col > m.Cols {
		return nil
	}
	return m.Cells[row-1][col-1]
}

// Find returns the seat with the given id, or nil if the matrix has none.
func (m *SeatMatrix) Find(seatID string) *Seat {
	if m == nil {
		return nil
	}
	for _, row := range m.Cells {
		for _, seat := range row {
			if seat != nil && seat.SeatId == seatID {
				return seat
			}
		}
	}
	return nil
}
