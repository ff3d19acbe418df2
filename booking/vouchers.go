package booking

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"cinebook-cli/model"
)

// VoucherNegotiator fetches eligible vouchers for an order and recomputes
// the price quote as vouchers are toggled. Every toggle re-quotes the full
// applied set against the backend; a quote is only committed when the
// whole sequence succeeds, so a mid-sequence failure leaves the previous
// quote untouched.
type VoucherNegotiator struct {
	api API
	log *zap.Logger

	// mu serializes voucher toggles; a toggle holds it across its quote
	// sequence so partial discount state is never observable.
	mu       sync.Mutex
	orderID  string
	eligible []model.Voucher
	applied  []string
	quote    model.PriceQuote
}

func NewVoucherNegotiator(api API, log *zap.Logger) *VoucherNegotiator {
	if log == nil {
		log = zap.NewNop()
	}
	return &VoucherNegotiator{api: api, log: log}
}

// Bind points the negotiator at a fresh order, discarding any voucher
// state from a previous one.
func (v *VoucherNegotiator) Bind(orderID string, basePrice float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.orderID = orderID
	v.eligible = nil
	v.applied = nil
	v.quote = model.PriceQuote{BasePrice: basePrice, DiscountedTotal: basePrice}
}

// FetchEligible loads the vouchers usable on the bound order, soonest
// expiring first. A fetch failure yields an empty list and the error so
// the caller can surface a warning; it must never block payment.
func (v *VoucherNegotiator) FetchEligible(ctx context.Context) ([]model.Voucher, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.orderID == "" {
		return nil, ErrNoActiveOrder
	}
	vouchers, err := v.api.ListVouchers(ctx, v.orderID)
	if err != nil {
		v.eligible = nil
		return nil, fmt.Errorf("list vouchers: %w", err)
	}

	usable := vouchers[:0:0]
	for _, voucher := range vouchers {
		if voucher.Usable() {
			usable = append(usable, voucher)
		}
	}
	sort.SliceStable(usable, func(i, j int) bool {
		return usable[i].ExpiresAt.Before(usable[j].ExpiresAt)
	})
	v.eligible = usable
	return v.eligibleLocked(), nil
}

// Eligible returns the last fetched usable vouchers.
func (v *VoucherNegotiator) Eligible() []model.Voucher {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.eligibleLocked()
}

func (v *VoucherNegotiator) eligibleLocked() []model.Voucher {
	out := make([]model.Voucher, len(v.eligible))
	copy(out, v.eligible)
	return out
}

// Applied returns the currently applied voucher codes.
func (v *VoucherNegotiator) Applied() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]string, len(v.applied))
	copy(out, v.applied)
	return out
}

// Quote returns the current price quote.
func (v *VoucherNegotiator) Quote() model.PriceQuote {
	v.mu.Lock()
	defer v.mu.Unlock()
	return clonedQuote(v.quote)
}

// Toggle applies or removes a voucher and re-quotes the whole applied set.
// On any quote failure the toggle is rolled back and the prior quote kept.
func (v *VoucherNegotiator) Toggle(ctx context.Context, code string) (model.PriceQuote, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.orderID == "" {
		return clonedQuote(v.quote), ErrNoActiveOrder
	}
	next := v.toggledCodes(code)
	quote, err := v.quoteCodes(ctx, next)
	if err != nil {
		v.log.Warn("voucher quote failed, rolling back toggle",
			zap.String("order_id", v.orderID),
			zap.String("voucher", code),
			zap.Error(err))
		return clonedQuote(v.quote), fmt.Errorf("%w: %v", ErrVoucherQuoteFailed, err)
	}
	v.applied = next
	v.quote = quote
	return clonedQuote(v.quote), nil
}

// toggledCodes returns the applied set with code flipped, preserving
// application order.
func (v *VoucherNegotiator) toggledCodes(code string) []string {
	next := make([]string, 0, len(v.applied)+1)
	found := false
	for _, existing := range v.applied {
		if existing == code {
			found = true
			continue
		}
		next = append(next, existing)
	}
	if !found {
		next = append(next, code)
	}
	return next
}

// quoteCodes asks the backend for each voucher's discount in sequence and
// folds them into a quote floored at zero.
func (v *VoucherNegotiator) quoteCodes(ctx context.Context, codes []string) (model.PriceQuote, error) {
	total := v.quote.BasePrice
	for _, code := range codes {
		delta, err := v.api.QuoteVoucherPrice(ctx, v.orderID, code)
		if err != nil {
			return model.PriceQuote{}, fmt.Errorf("quote voucher %s: %w", code, err)
		}
		total -= delta.Discount
	}
	if total < 0 {
		total = 0
	}
	applied := make([]string, len(codes))
	copy(applied, codes)
	return model.PriceQuote{
		BasePrice:           v.quote.BasePrice,
		AppliedVoucherCodes: applied,
		DiscountedTotal:     total,
	}, nil
}

func clonedQuote(q model.PriceQuote) model.PriceQuote {
	applied := make([]string, len(q.AppliedVoucherCodes))
	copy(applied, q.AppliedVoucherCodes)
	q.AppliedVoucherCodes = applied
	return q
}
