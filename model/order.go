package model

import "time"

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderConfirmed OrderStatus = "confirmed"
	OrderPaid      OrderStatus = "paid"
	OrderCancelled OrderStatus = "cancelled"
	OrderExpired   OrderStatus = "expired"
	OrderFailed    OrderStatus = "failed"
)

// Terminal reports whether the status can no longer change.
func (s OrderStatus) Terminal() bool {
	switch s {
	case OrderPaid, OrderCancelled, OrderExpired, OrderFailed:
		return true
	}
	return false
}

type Order struct {
	Id        string      `json:"id"`
	SessionId string      `json:"sessionId"`
	CinemaId  string      `json:"cinemaId"`
	SeatIds   []string    `json:"seatIds"`
	Status    OrderStatus `json:"status"`
	Amount    float64     `json:"amount"`
	ExpiresAt time.Time   `json:"expiresAt"`
}

type PaymentResult struct {
	OrderId    string    `json:"orderId"`
	AmountPaid float64   `json:"amountPaid"`
	PaidAt     time.Time `json:"paidAt"`
}

type TicketCode struct {
	OrderId string `json:"orderId"`
	Code    string `json:"code"`
}
