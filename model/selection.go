package model

// SelectionState is the cascading cinema → film → date → session → seats
// selection. A field may only be set when every field to its left is set.
type SelectionState struct {
	CinemaId  string
	FilmId    string
	DateId    string
	SessionId string
	SeatIds   []string
	OrderId   string
}
