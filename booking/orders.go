package booking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"cinebook-cli/auth"
	"cinebook-cli/model"
	"cinebook-cli/service"
)

// OrderLifecycleManager owns the single active order of an account. At
// most one non-terminal order exists per account+cinema; creating a new
// one cancels the previous one first, synchronously.
type OrderLifecycleManager struct {
	api     API
	session *auth.Session
	log     *zap.Logger
	clock   func() time.Time

	// mu is held across backend calls: order operations must not
	// interleave or the single-active-order invariant breaks.
	mu     sync.Mutex
	active *model.Order
}

func NewOrderLifecycleManager(api API, session *auth.Session, log *zap.Logger) *OrderLifecycleManager {
	if log == nil {
		log = zap.NewNop()
	}
	return &OrderLifecycleManager{
		api:     api,
		session: session,
		log:     log,
		clock:   time.Now,
	}
}

// Active returns a copy of the tracked order, or nil when there is none.
func (o *OrderLifecycleManager) Active() *model.Order {
	o.mu.Lock()
	defer o.mu.Unlock()
	return cloneOrder(o.active)
}

// Create requests a new order for the given seats. An existing
// non-terminal order is cancelled first. Seat conflicts and auth expiry
// are mapped to their sentinels; transient failures get one retry.
func (o *OrderLifecycleManager) Create(ctx context.Context, cinemaID, sessionID string, seatIDs []string) (model.Order, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.session != nil && o.session.Expired() {
		return model.Order{}, fmt.Errorf("create order: %w", ErrAuthExpired)
	}

	if o.active != nil && !o.active.Status.Terminal() {
		o.log.Info("cancelling previous order before create",
			zap.String("order_id", o.active.Id))
		if err := o.cancelLocked(ctx, o.active.Id); err != nil {
			return model.Order{}, fmt.Errorf("cancel previous order: %w", err)
		}
	}

	order, err := o.createOnce(ctx, sessionID, seatIDs)
	if err != nil && errors.Is(err, ErrTransient) {
		o.log.Warn("order creation failed, retrying once", zap.Error(err))
		order, err = o.createOnce(ctx, sessionID, seatIDs)
	}
	if err != nil {
		return model.Order{}, err
	}

	if order.CinemaId == "" {
		order.CinemaId = cinemaID
	}
	if order.Status == "" {
		order.Status = model.OrderPending
	}
	o.active = &order
	o.log.Info("order created",
		zap.String("order_id", order.Id),
		zap.String("session_id", sessionID),
		zap.Int("seats", len(seatIDs)))
	return *cloneOrder(&order), nil
}

func (o *OrderLifecycleManager) createOnce(ctx context.Context, sessionID string, seatIDs []string) (model.Order, error) {
	order, err := o.api.CreateOrder(ctx, sessionID, seatIDs)
	if err != nil {
		return model.Order{}, mapBackendErr("create order", err)
	}
	return order, nil
}

// Poll refreshes an order's status and expiry from the backend.
func (o *OrderLifecycleManager) Poll(ctx context.Context, orderID string) (model.Order, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	order, err := o.api.GetOrder(ctx, orderID)
	if err != nil {
		return model.Order{}, mapBackendErr("poll order", err)
	}
	if o.active != nil && o.active.Id == order.Id {
		o.active = &order
	}
	return *cloneOrder(&order), nil
}

// Cancel cancels an order. Cancelling an already terminal order succeeds
// as a no-op.
func (o *OrderLifecycleManager) Cancel(ctx context.Context, orderID string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.cancelLocked(ctx, orderID)
}

func (o *OrderLifecycleManager) cancelLocked(ctx context.Context, orderID string) error {
	if orderID == "" {
		return ErrNoActiveOrder
	}
	if o.active != nil && o.active.Id == orderID && o.active.Status.Terminal() {
		return nil
	}
	if err := o.api.CancelOrder(ctx, orderID); err != nil && !service.IsNotFound(err) {
		return mapBackendErr("cancel order", err)
	}
	if o.active != nil && o.active.Id == orderID {
		o.active.Status = model.OrderCancelled
	}
	o.log.Info("order cancelled", zap.String("order_id", orderID))
	return nil
}

// Pay settles the order at the quote's discounted total. Zero is a valid
// amount when vouchers cover the full price. On insufficient balance the
// order stays Pending for the operator to retry or cancel.
func (o *OrderLifecycleManager) Pay(ctx context.Context, orderID string, quote model.PriceQuote) (model.PaymentResult, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.session != nil && o.session.Expired() {
		return model.PaymentResult{}, fmt.Errorf("pay order: %w", ErrAuthExpired)
	}

	result, err := o.payOnce(ctx, orderID, quote)
	if err != nil && errors.Is(err, ErrTransient) {
		o.log.Warn("payment failed, retrying once", zap.Error(err))
		result, err = o.payOnce(ctx, orderID, quote)
	}
	if err != nil {
		return model.PaymentResult{}, err
	}

	if o.active != nil && o.active.Id == orderID {
		o.active.Status = model.OrderPaid
	}
	o.log.Info("order paid",
		zap.String("order_id", orderID),
		zap.Float64("amount", quote.DiscountedTotal),
		zap.Strings("vouchers", quote.AppliedVoucherCodes))
	return result, nil
}

func (o *OrderLifecycleManager) payOnce(ctx context.Context, orderID string, quote model.PriceQuote) (model.PaymentResult, error) {
	result, err := o.api.Pay(ctx, orderID, quote.DiscountedTotal, quote.AppliedVoucherCodes)
	if err != nil {
		return model.PaymentResult{}, mapBackendErr("pay order", err)
	}
	return result, nil
}

// CheckExpiry transitions the active order to Expired once its deadline
// has passed. The local countdown is advisory only: expiry is confirmed
// against the backend before being declared, so clock drift cannot expire
// a live order.
func (o *OrderLifecycleManager) CheckExpiry(ctx context.Context) (bool, *model.Order, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.active == nil || o.active.Status.Terminal() {
		return false, cloneOrder(o.active), nil
	}
	if o.active.ExpiresAt.IsZero() || o.clock().Before(o.active.ExpiresAt) {
		return false, cloneOrder(o.active), nil
	}

	order, err := o.api.GetOrder(ctx, o.active.Id)
	if err != nil {
		return false, cloneOrder(o.active), mapBackendErr("verify expiry", err)
	}
	o.active = &order

	if order.Status == model.OrderExpired {
		return true, cloneOrder(o.active), nil
	}
	if !order.Status.Terminal() && !order.ExpiresAt.IsZero() && o.clock().After(order.ExpiresAt) {
		o.active.Status = model.OrderExpired
		return true, cloneOrder(o.active), nil
	}
	return false, cloneOrder(o.active), nil
}

func mapBackendErr(op string, err error) error {
	switch {
	case service.IsSeatConflict(err):
		return fmt.Errorf("%s: %w: %v", op, ErrSeatConflict, err)
	case service.IsAuthExpired(err):
		return fmt.Errorf("%s: %w: %v", op, ErrAuthExpired, err)
	case service.IsInsufficientBalance(err):
		return fmt.Errorf("%s: %w: %v", op, ErrInsufficientBalance, err)
	case service.IsTransient(err):
		return fmt.Errorf("%s: %w: %v", op, ErrTransient, err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

func cloneOrder(order *model.Order) *model.Order {
	if order == nil {
		return nil
	}
	out := *order
	out.SeatIds = append([]string(nil), order.SeatIds...)
	return &out
}
