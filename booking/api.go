package booking

import (
	"context"

	"cinebook-cli/model"
)

// API is the booking backend contract the core consumes. *service.Client
// is the production implementation.
type API interface {
	ListCinemas(ctx context.Context) ([]model.Cinema, error)
	ListFilms(ctx context.Context, cinemaID string) ([]model.Film, error)
	ListDates(ctx context.Context, filmID string) ([]model.ShowDate, error)
	ListSessions(ctx context.Context, dateID string) ([]model.Session, error)
	GetSeatMap(ctx context.Context, sessionID string) ([]model.SeatRecord, error)
	CreateOrder(ctx context.Context, sessionID string, seatIDs []string) (model.Order, error)
	GetOrder(ctx context.Context, orderID string) (model.Order, error)
	CancelOrder(ctx context.Context, orderID string) error
	ListVouchers(ctx context.Context, orderID string) ([]model.Voucher, error)
	QuoteVoucherPrice(ctx context.Context, orderID string, voucherCode string) (model.PriceDelta, error)
	Pay(ctx context.Context, orderID string, amount float64, voucherCodes []string) (model.PaymentResult, error)
	GetTicketCode(ctx context.Context, orderID string) (model.TicketCode, error)
}
