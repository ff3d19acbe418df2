package booking

import "cinebook-cli/model"

// Raw backend status codes. Anything unrecognized maps to Unavailable so
// a new backend code can never render a seat bookable by accident.
const (
	rawSeatAvailable = 0
	rawSeatSold      = 1
	rawSeatBlocked   = 2
	rawSeatBroken    = 3
)

var seatStatusTable = map[int]model.SeatStatus{
	rawSeatAvailable: model.SeatAvailable,
	rawSeatSold:      model.SeatSold,
	rawSeatBlocked:   model.SeatUnavailable,
	rawSeatBroken:    model.SeatUnavailable,
}

func mapSeatStatus(raw int) model.SeatStatus {
	if status, ok := seatStatusTable[raw]; ok {
		return status
	}
	return model.SeatUnavailable
}

// BuildSeatMatrix converts a flat record list into the rectangular hall
// grid. Dimensions are max(row) × max(col) over the records; positions
// without a record stay nil (aisles). The build is deterministic: the
// same records always produce an identical matrix.
func BuildSeatMatrix(records []model.SeatRecord) (*model.SeatMatrix, error) {
	if len(records) == 0 {
		return nil, ErrEmptySeatMap
	}

	maxRow, maxCol := 0, 0
	for _, rec := range records {
		if rec.Row > maxRow {
			maxRow = rec.Row
		}
		if rec.Column > maxCol {
			maxCol = rec.Column
		}
	}
	if maxRow < 1 || maxCol < 1 {
		return nil, ErrEmptySeatMap
	}

	cells := make([][]*model.Seat, maxRow)
	for i := range cells {
		cells[i] = make([]*model.Seat, maxCol)
	}
	for _, rec := range records {
		if rec.Row < 1 || rec.Column < 1 {
			continue
		}
		cells[rec.Row-1][rec.Column-1] = &model.Seat{
			Row:    rec.Row,
			Column: rec.Column,
			Label:  rec.Label,
			Status: mapSeatStatus(rec.Status),
			SeatId: rec.SeatId,
		}
	}

	return &model.SeatMatrix{Rows: maxRow, Cols: maxCol, Cells: cells}, nil
}
