package booking

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"cinebook-cli/model"
	"cinebook-cli/service"
)

// fakeAPI is a scripted backend. Unset hooks return canned fixtures so
// tests only script the calls they care about.
type fakeAPI struct {
	mu    sync.Mutex
	calls []string

	listCinemasFn  func(ctx context.Context) ([]model.Cinema, error)
	listFilmsFn    func(ctx context.Context, cinemaID string) ([]model.Film, error)
	listDatesFn    func(ctx context.Context, filmID string) ([]model.ShowDate, error)
	listSessionsFn func(ctx context.Context, dateID string) ([]model.Session, error)
	getSeatMapFn   func(ctx context.Context, sessionID string) ([]model.SeatRecord, error)
	createOrderFn  func(ctx context.Context, sessionID string, seatIDs []string) (model.Order, error)
	getOrderFn     func(ctx context.Context, orderID string) (model.Order, error)
	cancelOrderFn  func(ctx context.Context, orderID string) error
	listVouchersFn func(ctx context.Context, orderID string) ([]model.Voucher, error)
	quoteFn        func(ctx context.Context, orderID, voucherCode string) (model.PriceDelta, error)
	payFn          func(ctx context.Context, orderID string, amount float64, voucherCodes []string) (model.PaymentResult, error)
	getTicketFn    func(ctx context.Context, orderID string) (model.TicketCode, error)
}

func (f *fakeAPI) record(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
}

func (f *fakeAPI) callCount(call string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == call {
			n++
		}
	}
	return n
}

func (f *fakeAPI) ListCinemas(ctx context.Context) ([]model.Cinema, error) {
	f.record("ListCinemas")
	if f.listCinemasFn != nil {
		return f.listCinemasFn(ctx)
	}
	return []model.Cinema{{Id: "c1", Name: "Downtown", City: "Springfield"}}, nil
}

func (f *fakeAPI) ListFilms(ctx context.Context, cinemaID string) ([]model.Film, error) {
	f.record("ListFilms")
	if f.listFilmsFn != nil {
		return f.listFilmsFn(ctx, cinemaID)
	}
	return []model.Film{{Id: "f1", Title: "The Matrix"}}, nil
}

func (f *fakeAPI) ListDates(ctx context.Context, filmID string) ([]model.ShowDate, error) {
	f.record("ListDates")
	if f.listDatesFn != nil {
		return f.listDatesFn(ctx, filmID)
	}
	return []model.ShowDate{{Id: "d1", Date: "2026-09-01", DayOfWeek: "Tuesday"}}, nil
}

func (f *fakeAPI) ListSessions(ctx context.Context, dateID string) ([]model.Session, error) {
	f.record("ListSessions")
	if f.listSessionsFn != nil {
		return f.listSessionsFn(ctx, dateID)
	}
	return []model.Session{{Id: "sess1", Hall: "IMAX", Price: 30, HasSeatSelection: true}}, nil
}

func (f *fakeAPI) GetSeatMap(ctx context.Context, sessionID string) ([]model.SeatRecord, error) {
	f.record("GetSeatMap")
	if f.getSeatMapFn != nil {
		return f.getSeatMapFn(ctx, sessionID)
	}
	return gridRecords(2, 2), nil
}

func (f *fakeAPI) CreateOrder(ctx context.Context, sessionID string, seatIDs []string) (model.Order, error) {
	f.record("CreateOrder")
	if f.createOrderFn != nil {
		return f.createOrderFn(ctx, sessionID, seatIDs)
	}
	return model.Order{
		Id:        "o1",
		SessionId: sessionID,
		SeatIds:   append([]string(nil), seatIDs...),
		Status:    model.OrderPending,
		ExpiresAt: time.Now().Add(10 * time.Minute),
	}, nil
}

func (f *fakeAPI) GetOrder(ctx context.Context, orderID string) (model.Order, error) {
	f.record("GetOrder")
	if f.getOrderFn != nil {
		return f.getOrderFn(ctx, orderID)
	}
	return model.Order{Id: orderID, Status: model.OrderPending}, nil
}

func (f *fakeAPI) CancelOrder(ctx context.Context, orderID string) error {
	f.record("CancelOrder")
	if f.cancelOrderFn != nil {
		return f.cancelOrderFn(ctx, orderID)
	}
	return nil
}

func (f *fakeAPI) ListVouchers(ctx context.Context, orderID string) ([]model.Voucher, error) {
	f.record("ListVouchers")
	if f.listVouchersFn != nil {
		return f.listVouchersFn(ctx, orderID)
	}
	return nil, nil
}

func (f *fakeAPI) QuoteVoucherPrice(ctx context.Context, orderID, voucherCode string) (model.PriceDelta, error) {
	f.record("QuoteVoucherPrice")
	if f.quoteFn != nil {
		return f.quoteFn(ctx, orderID, voucherCode)
	}
	return model.PriceDelta{VoucherCode: voucherCode}, nil
}

func (f *fakeAPI) Pay(ctx context.Context, orderID string, amount float64, voucherCodes []string) (model.PaymentResult, error) {
	f.record("Pay")
	if f.payFn != nil {
		return f.payFn(ctx, orderID, amount, voucherCodes)
	}
	return model.PaymentResult{OrderId: orderID, AmountPaid: amount, PaidAt: time.Now()}, nil
}

func (f *fakeAPI) GetTicketCode(ctx context.Context, orderID string) (model.TicketCode, error) {
	f.record("GetTicketCode")
	if f.getTicketFn != nil {
		return f.getTicketFn(ctx, orderID)
	}
	return model.TicketCode{OrderId: orderID, Code: "QR-123"}, nil
}

// gridRecords builds a fully available rows × cols hall. Seat ids follow
// the pattern r<row>c<col>.
func gridRecords(rows, cols int) []model.SeatRecord {
	records := make([]model.SeatRecord, 0, rows*cols)
	for r := 1; r <= rows; r++ {
		for c := 1; c <= cols; c++ {
			records = append(records, model.SeatRecord{
				Row:    r,
				Column: c,
				SeatId: seatID(r, c),
			})
		}
	}
	return records
}

func seatID(row, col int) string {
	return "r" + string(rune('0'+row)) + "c" + string(rune('0'+col))
}

func apiError(status int, code string) error {
	return &service.APIError{
		StatusCode: status,
		Status:     http.StatusText(status),
		Code:       code,
	}
}

func transportError() error {
	return &service.RequestError{Endpoint: "test", Err: errors.New("connection reset")}
}

// drainEvents empties a subscription's buffered events. Coordinator
// intents are synchronous, so by the time an intent returns its events
// are already buffered.
func drainEvents(sub *Subscription) []Event {
	var events []Event
	for {
		select {
		case e := <-sub.Events():
			events = append(events, e)
		default:
			return events
		}
	}
}
