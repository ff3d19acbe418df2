package model

import "time"

type Voucher struct {
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	ExpiresAt time.Time `json:"expiresAt"`
	Redeemed  bool      `json:"redeemed"`
	Expired   bool      `json:"expired"`
}

// Usable reports whether the voucher can still be applied to an order.
func (v Voucher) Usable() bool {
	return !v.Redeemed && !v.Expired
}

// PriceDelta is the server-computed discount a single voucher contributes.
type PriceDelta struct {
	VoucherCode string  `json:"voucherCode"`
	Discount    float64 `json:"discount"`
}

// PriceQuote is the current computed total after applying zero or more
// vouchers. DiscountedTotal is never negative.
type PriceQuote struct {
	BasePrice           float64
	AppliedVoucherCodes []string
	DiscountedTotal     float64
}
