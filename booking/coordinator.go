package booking

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"cinebook-cli/auth"
	"cinebook-cli/model"
)

// Phase is the coordinator's position in the booking flow.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseCinemaChosen
	PhaseFilmChosen
	PhaseDateChosen
	PhaseSessionChosen
	PhaseSeatsLoaded
	PhaseSeatsPicked
	PhaseOrderPending
	PhaseOrderPaid
	PhaseCancelled
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseCinemaChosen:
		return "cinema_chosen"
	case PhaseFilmChosen:
		return "film_chosen"
	case PhaseDateChosen:
		return "date_chosen"
	case PhaseSessionChosen:
		return "session_chosen"
	case PhaseSeatsLoaded:
		return "seats_loaded"
	case PhaseSeatsPicked:
		return "seats_picked"
	case PhaseOrderPending:
		return "order_pending"
	case PhaseOrderPaid:
		return "order_paid"
	case PhaseCancelled:
		return "cancelled"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Selection levels, used to reset everything downstream of a reselected
// field.
const (
	levelCinema = iota
	levelFilm
	levelDate
	levelSession
)

// Config carries the externally supplied knobs of a coordinator.
type Config struct {
	MaxSeatsPerOrder int
}

// Coordinator is the cascading cinema → film → date → session → seats
// state machine. All state lives behind one mutex: an intent validates and
// mutates under the lock, releases it for the backend call, and commits
// the result under the lock again, guarded by an epoch stamp so a
// response that arrives after the selection moved on is dropped, never
// applied. Notifications are emitted in transition order.
type Coordinator struct {
	api API
	cfg Config
	log *zap.Logger

	notifier *Notifier
	orders   *OrderLifecycleManager
	vouchers *VoucherNegotiator

	mu      sync.Mutex
	epoch   uint64
	phase   Phase
	sel     model.SelectionState
	session model.Session

	cinemas  []model.Cinema
	films    []model.Film
	dates    []model.ShowDate
	sessions []model.Session

	matrix  *model.SeatMatrix
	tracker *SeatSelectionTracker
	ticket  *model.TicketCode
}

func NewCoordinator(api API, session *auth.Session, cfg Config, log *zap.Logger) *Coordinator {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.MaxSeatsPerOrder < 1 {
		cfg.MaxSeatsPerOrder = 1
	}
	c := &Coordinator{
		api:      api,
		cfg:      cfg,
		log:      log,
		notifier: NewNotifier(log),
		orders:   NewOrderLifecycleManager(api, session, log),
		vouchers: NewVoucherNegotiator(api, log),
		tracker:  NewSeatSelectionTracker(cfg.MaxSeatsPerOrder),
		phase:    PhaseIdle,
	}
	return c
}

// Subscribe registers a notification consumer for the given event kinds
// (zero subscribes to all).
func (c *Coordinator) Subscribe(kinds EventKind) *Subscription {
	return c.notifier.Subscribe(kinds)
}

// Unsubscribe removes a subscription.
func (c *Coordinator) Unsubscribe(sub *Subscription) {
	c.notifier.Unsubscribe(sub)
}

// Start loads the cinema list. The coordinator stays in Idle until the
// operator picks a cinema.
func (c *Coordinator) Start(ctx context.Context) error {
	c.mu.Lock()
	stamp := c.epoch
	c.mu.Unlock()

	cinemas, err := c.api.ListCinemas(ctx)
	if err != nil {
		if c.surfaceErr(stamp, err, true) {
			return fmt.Errorf("load cinemas: %w", err)
		}
		return nil
	}
	c.apply(stamp, func() {
		c.cinemas = cinemas
		c.emitLocked(Event{Kind: EventSelection, Cinemas: cinemas})
	})
	return nil
}

// SelectCinema is valid from any phase. It resets film, date, session,
// seats and order in one transition, then loads the cinema's films.
func (c *Coordinator) SelectCinema(ctx context.Context, cinemaID string) error {
	c.mu.Lock()
	c.resetDownstreamLocked(levelCinema)
	c.sel.CinemaId = cinemaID
	c.phase = PhaseCinemaChosen
	stamp := c.epoch
	c.log.Info("cinema selected", zap.String("cinema_id", cinemaID))
	c.emitLocked(Event{Kind: EventSelection})
	c.mu.Unlock()

	films, err := c.api.ListFilms(ctx, cinemaID)
	if err != nil {
		err = mapBackendErr("load films", err)
		if c.surfaceErr(stamp, err, true) {
			return err
		}
		return nil
	}
	c.apply(stamp, func() {
		c.films = films
		c.emitLocked(Event{Kind: EventSelection, Films: films})
	})
	return nil
}

// SelectFilm narrows the selection one level; it requires a cinema.
func (c *Coordinator) SelectFilm(ctx context.Context, filmID string) error {
	c.mu.Lock()
	if c.sel.CinemaId == "" {
		err := sequenceErr("select film", "cinema")
		c.emitErrLocked(err, false)
		c.mu.Unlock()
		return err
	}
	c.resetDownstreamLocked(levelFilm)
	c.sel.FilmId = filmID
	c.phase = PhaseFilmChosen
	stamp := c.epoch
	c.log.Info("film selected", zap.String("film_id", filmID))
	c.emitLocked(Event{Kind: EventSelection})
	c.mu.Unlock()

	dates, err := c.api.ListDates(ctx, filmID)
	if err != nil {
		err = mapBackendErr("load dates", err)
		if c.surfaceErr(stamp, err, true) {
			return err
		}
		return nil
	}
	c.apply(stamp, func() {
		c.dates = dates
		c.emitLocked(Event{Kind: EventSelection, Dates: dates})
	})
	return nil
}

// SelectDate requires a film; it loads the date's sessions.
func (c *Coordinator) SelectDate(ctx context.Context, dateID string) error {
	c.mu.Lock()
	if c.sel.FilmId == "" {
		err := sequenceErr("select date", "film")
		c.emitErrLocked(err, false)
		c.mu.Unlock()
		return err
	}
	c.resetDownstreamLocked(levelDate)
	c.sel.DateId = dateID
	c.phase = PhaseDateChosen
	stamp := c.epoch
	c.log.Info("date selected", zap.String("date_id", dateID))
	c.emitLocked(Event{Kind: EventSelection})
	c.mu.Unlock()

	sessions, err := c.api.ListSessions(ctx, dateID)
	if err != nil {
		err = mapBackendErr("load sessions", err)
		if c.surfaceErr(stamp, err, true) {
			return err
		}
		return nil
	}
	c.apply(stamp, func() {
		c.sessions = sessions
		c.emitLocked(Event{Kind: EventSelection, Sessions: sessions})
	})
	return nil
}

// SelectSession requires a date; it loads and rebuilds the seat matrix.
func (c *Coordinator) SelectSession(ctx context.Context, sessionID string) error {
	c.mu.Lock()
	if c.sel.DateId == "" {
		err := sequenceErr("select session", "date")
		c.emitErrLocked(err, false)
		c.mu.Unlock()
		return err
	}
	c.resetDownstreamLocked(levelSession)
	c.sel.SessionId = sessionID
	for _, s := range c.sessions {
		if s.Id == sessionID {
			c.session = s
			break
		}
	}
	c.phase = PhaseSessionChosen
	stamp := c.epoch
	c.log.Info("session selected", zap.String("session_id", sessionID))
	c.emitLocked(Event{Kind: EventSelection})
	c.mu.Unlock()

	return c.loadSeatMap(ctx, stamp, sessionID)
}

// RefreshSeatMap rebuilds the seat matrix for the chosen session,
// clearing any picked seats. Used for retry-on-demand and after seat
// conflicts.
func (c *Coordinator) RefreshSeatMap(ctx context.Context) error {
	c.mu.Lock()
	if c.sel.SessionId == "" {
		err := sequenceErr("refresh seat map", "session")
		c.emitErrLocked(err, false)
		c.mu.Unlock()
		return err
	}
	c.resetDownstreamLocked(levelSession)
	sessionID := c.sel.SessionId
	c.phase = PhaseSessionChosen
	stamp := c.epoch
	c.emitLocked(Event{Kind: EventSelection})
	c.mu.Unlock()

	return c.loadSeatMap(ctx, stamp, sessionID)
}

func (c *Coordinator) loadSeatMap(ctx context.Context, stamp uint64, sessionID string) error {
	records, err := c.api.GetSeatMap(ctx, sessionID)
	var matrix *model.SeatMatrix
	if err == nil {
		matrix, err = BuildSeatMatrix(records)
	} else {
		err = mapBackendErr("load seat map", err)
	}
	if err != nil {
		if c.surfaceErr(stamp, err, true) {
			return err
		}
		return nil
	}

	c.apply(stamp, func() {
		c.matrix = matrix
		c.tracker.Clear()
		c.sel.SeatIds = nil
		c.phase = PhaseSeatsLoaded
		c.log.Debug("seat map loaded",
			zap.String("session_id", sessionID),
			zap.Int("rows", matrix.Rows),
			zap.Int("cols", matrix.Cols))
		c.emitLocked(Event{Kind: EventSeatMap, Matrix: matrix})
	})
	return nil
}

// ToggleSeat flips a seat in the current selection. Toggling a seat that
// is not Available is a no-op. Local only: no backend call is made.
func (c *Coordinator) ToggleSeat(seatID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != PhaseSeatsLoaded && c.phase != PhaseSeatsPicked {
		err := sequenceErr("toggle seat", "a loaded seat map")
		c.emitErrLocked(err, false)
		return err
	}

	changed, err := c.tracker.Toggle(seatID, c.matrix)
	if err != nil {
		c.emitErrLocked(err, true)
		return err
	}
	if !changed {
		return nil
	}

	c.sel.SeatIds = c.tracker.Selected()
	if c.tracker.Count() > 0 {
		c.phase = PhaseSeatsPicked
	} else {
		c.phase = PhaseSeatsLoaded
	}
	c.emitLocked(Event{Kind: EventSelection})

	base := c.tracker.BasePrice(c.session.Price)
	quote := model.PriceQuote{BasePrice: base, DiscountedTotal: base}
	c.emitLocked(Event{Kind: EventPrice, Quote: &quote})
	return nil
}

// SubmitOrder creates an order for the picked seats. On a seat conflict
// the seat map is refreshed and the selection above the seats is kept.
func (c *Coordinator) SubmitOrder(ctx context.Context) error {
	c.mu.Lock()
	if c.phase != PhaseSeatsPicked {
		err := sequenceErr("submit order", "picked seats")
		c.emitErrLocked(err, false)
		c.mu.Unlock()
		return err
	}
	stamp := c.epoch
	cinemaID := c.sel.CinemaId
	sessionID := c.sel.SessionId
	seats := c.tracker.Selected()
	base := c.tracker.BasePrice(c.session.Price)
	c.mu.Unlock()

	order, err := c.orders.Create(ctx, cinemaID, sessionID, seats)
	if err != nil {
		switch {
		case errors.Is(err, ErrSeatConflict):
			if c.surfaceErr(stamp, err, true) {
				_ = c.RefreshSeatMap(ctx)
				return err
			}
			return nil
		case errors.Is(err, ErrAuthExpired):
			if c.surfaceErr(stamp, err, false) {
				return err
			}
			return nil
		default:
			if c.surfaceErr(stamp, err, true) {
				return err
			}
			return nil
		}
	}

	if order.Amount > 0 {
		base = order.Amount
	}
	applied := c.apply(stamp, func() {
		c.sel.OrderId = order.Id
		c.phase = PhaseOrderPending
		c.vouchers.Bind(order.Id, base)
		c.emitLocked(Event{Kind: EventOrder, Order: cloneOrder(&order)})
		quote := c.vouchers.Quote()
		c.emitLocked(Event{Kind: EventPrice, Quote: &quote})
	})
	if !applied {
		// the operator moved on while the order was in flight; release
		// the hold instead of leaving a dangling pending order
		_ = c.orders.Cancel(ctx, order.Id)
		return nil
	}

	// voucher availability never blocks the order
	vouchers, verr := c.vouchers.FetchEligible(ctx)
	if verr != nil {
		c.apply(stamp, func() {
			c.emitLocked(Event{Kind: EventError, Err: &ErrorDetail{
				Kind:        KindVoucherUnavailable,
				Detail:      verr.Error(),
				Recoverable: true,
			}})
		})
		return nil
	}
	c.apply(stamp, func() {
		quote := c.vouchers.Quote()
		c.emitLocked(Event{Kind: EventPrice, Quote: &quote, Vouchers: vouchers})
	})
	return nil
}

// ToggleVoucher applies or removes a voucher on the pending order and
// re-quotes the price. A failed quote rolls the toggle back and re-emits
// the prior quote.
func (c *Coordinator) ToggleVoucher(ctx context.Context, code string) error {
	c.mu.Lock()
	if c.phase != PhaseOrderPending {
		err := sequenceErr("toggle voucher", "a pending order")
		c.emitErrLocked(err, false)
		c.mu.Unlock()
		return err
	}
	stamp := c.epoch
	c.mu.Unlock()

	quote, err := c.vouchers.Toggle(ctx, code)
	if err != nil {
		c.apply(stamp, func() {
			c.emitErrLocked(err, true)
			c.emitLocked(Event{Kind: EventPrice, Quote: &quote})
		})
		return err
	}
	c.apply(stamp, func() {
		c.emitLocked(Event{Kind: EventPrice, Quote: &quote})
	})
	return nil
}

// Pay settles the pending order at the current quote. A zero total (full
// voucher coverage) is a valid payment. On success the ticket code is
// fetched and the flow reaches OrderPaid.
func (c *Coordinator) Pay(ctx context.Context) error {
	c.mu.Lock()
	if c.phase != PhaseOrderPending {
		err := sequenceErr("pay", "a pending order")
		c.emitErrLocked(err, false)
		c.mu.Unlock()
		return err
	}
	stamp := c.epoch
	orderID := c.sel.OrderId
	c.mu.Unlock()

	quote := c.vouchers.Quote()
	if _, err := c.orders.Pay(ctx, orderID, quote); err != nil {
		if errors.Is(err, ErrAuthExpired) {
			// payment can no longer proceed on this session
			c.apply(stamp, func() {
				c.phase = PhaseFailed
				c.emitErrLocked(err, false)
			})
			return err
		}
		recoverable := errors.Is(err, ErrInsufficientBalance) || errors.Is(err, ErrTransient)
		c.surfaceErr(stamp, err, recoverable)
		return err
	}

	ticket, terr := c.api.GetTicketCode(ctx, orderID)
	c.apply(stamp, func() {
		c.phase = PhaseOrderPaid
		if terr == nil {
			c.ticket = &ticket
		}
		c.emitLocked(Event{Kind: EventOrder, Order: c.orders.Active(), Ticket: c.ticket})
	})
	if terr != nil {
		c.surfaceErr(stamp, mapBackendErr("fetch ticket code", terr), true)
	}
	return nil
}

// CancelOrder cancels the active order; cancelling an already terminal
// order is a no-op success.
func (c *Coordinator) CancelOrder(ctx context.Context) error {
	c.mu.Lock()
	if c.sel.OrderId == "" {
		c.mu.Unlock()
		return ErrNoActiveOrder
	}
	stamp := c.epoch
	orderID := c.sel.OrderId
	c.mu.Unlock()

	if err := c.orders.Cancel(ctx, orderID); err != nil {
		c.surfaceErr(stamp, err, true)
		return err
	}
	c.apply(stamp, func() {
		c.phase = PhaseCancelled
		c.sel.OrderId = ""
		c.sel.SeatIds = nil
		c.tracker.Clear()
		c.emitLocked(Event{Kind: EventOrder, Order: c.orders.Active()})
	})
	return nil
}

// CheckExpiry drives the advisory local countdown. When the deadline has
// passed and the backend confirms expiry, the order moves to Expired, the
// seat selection is cleared and the seat map reloads so the operator
// restarts from seat picking.
func (c *Coordinator) CheckExpiry(ctx context.Context) error {
	c.mu.Lock()
	if c.phase != PhaseOrderPending {
		c.mu.Unlock()
		return nil
	}
	stamp := c.epoch
	c.mu.Unlock()

	expired, order, err := c.orders.CheckExpiry(ctx)
	if err != nil {
		c.log.Debug("expiry verification failed", zap.Error(err))
		return nil
	}
	if !expired {
		return nil
	}

	if c.apply(stamp, func() {
		c.sel.OrderId = ""
		c.log.Info("order expired", zap.String("order_id", order.Id))
		c.emitLocked(Event{Kind: EventOrder, Order: order})
	}) {
		return c.RefreshSeatMap(ctx)
	}
	return nil
}

// resetDownstreamLocked clears everything below the reselected level in
// one transition and advances the epoch so in-flight responses for the
// old selection are dropped on arrival.
func (c *Coordinator) resetDownstreamLocked(level int) {
	c.epoch++
	if level <= levelCinema {
		c.sel.FilmId = ""
		c.films = nil
	}
	if level <= levelFilm {
		c.sel.DateId = ""
		c.dates = nil
	}
	if level <= levelDate {
		c.sel.SessionId = ""
		c.sessions = nil
		c.session = model.Session{}
	}
	c.sel.SeatIds = nil
	c.matrix = nil
	c.tracker.Clear()
	c.sel.OrderId = ""
	c.ticket = nil
	c.vouchers.Bind("", 0)
}

// apply runs fn under the lock only if the selection has not moved on
// since stamp was taken. It reports whether fn ran.
func (c *Coordinator) apply(stamp uint64, fn func()) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if stamp != c.epoch {
		c.log.Debug("stale response dropped",
			zap.Uint64("stamp", stamp),
			zap.Uint64("epoch", c.epoch))
		return false
	}
	fn()
	return true
}

// surfaceErr emits an error notification unless the response is stale.
// It reports whether the error was surfaced.
func (c *Coordinator) surfaceErr(stamp uint64, err error, recoverable bool) bool {
	return c.apply(stamp, func() {
		c.emitErrLocked(err, recoverable)
	})
}

func (c *Coordinator) emitErrLocked(err error, recoverable bool) {
	c.log.Warn("booking error",
		zap.String("kind", string(KindOf(err))),
		zap.Bool("recoverable", recoverable),
		zap.Error(err))
	c.emitLocked(Event{Kind: EventError, Err: &ErrorDetail{
		Kind:        KindOf(err),
		Detail:      err.Error(),
		Recoverable: recoverable,
	}})
}

func (c *Coordinator) emitLocked(e Event) {
	e.Phase = c.phase
	e.Selection = c.selectionLocked()
	c.notifier.publish(e)
}

func (c *Coordinator) selectionLocked() model.SelectionState {
	sel := c.sel
	sel.SeatIds = append([]string(nil), c.sel.SeatIds...)
	return sel
}

// Snapshot accessors for the UI layer.

func (c *Coordinator) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

func (c *Coordinator) Selection() model.SelectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selectionLocked()
}

func (c *Coordinator) Cinemas() []model.Cinema {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]model.Cinema(nil), c.cinemas...)
}

func (c *Coordinator) Films() []model.Film {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]model.Film(nil), c.films...)
}

func (c *Coordinator) Dates() []model.ShowDate {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]model.ShowDate(nil), c.dates...)
}

func (c *Coordinator) Sessions() []model.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]model.Session(nil), c.sessions...)
}

// ChosenSession returns the session the operator picked, if any.
func (c *Coordinator) ChosenSession() model.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

func (c *Coordinator) Matrix() *model.SeatMatrix {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.matrix
}

// SelectedSeat reports whether a seat is currently picked.
func (c *Coordinator) SelectedSeat(seatID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tracker.Has(seatID)
}

func (c *Coordinator) Quote() model.PriceQuote {
	return c.vouchers.Quote()
}

func (c *Coordinator) Vouchers() []model.Voucher {
	return c.vouchers.Eligible()
}

func (c *Coordinator) AppliedVouchers() []string {
	return c.vouchers.Applied()
}

func (c *Coordinator) Order() *model.Order {
	return c.orders.Active()
}

func (c *Coordinator) Ticket() *model.TicketCode {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ticket == nil {
		return nil
	}
	out := *c.ticket
	return &out
}
