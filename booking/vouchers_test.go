package booking

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cinebook-cli/model"
)

func TestFetchEligibleFiltersAndSorts(t *testing.T) {
	later := time.Now().Add(48 * time.Hour)
	sooner := time.Now().Add(2 * time.Hour)

	api := &fakeAPI{
		listVouchersFn: func(ctx context.Context, orderID string) ([]model.Voucher, error) {
			return []model.Voucher{
				{Code: "LATE", ExpiresAt: later},
				{Code: "USED", ExpiresAt: sooner, Redeemed: true},
				{Code: "GONE", ExpiresAt: sooner, Expired: true},
				{Code: "SOON", ExpiresAt: sooner},
			}, nil
		},
	}

	v := NewVoucherNegotiator(api, nil)
	v.Bind("o1", 100)

	vouchers, err := v.FetchEligible(context.Background())
	require.NoError(t, err)
	require.Len(t, vouchers, 2)
	assert.Equal(t, "SOON", vouchers[0].Code)
	assert.Equal(t, "LATE", vouchers[1].Code)
}

func TestFetchEligibleWithoutOrder(t *testing.T) {
	v := NewVoucherNegotiator(&fakeAPI{}, nil)
	_, err := v.FetchEligible(context.Background())
	assert.ErrorIs(t, err, ErrNoActiveOrder)
}

func TestToggleAppliesDiscount(t *testing.T) {
	api := &fakeAPI{
		quoteFn: func(ctx context.Context, orderID, code string) (model.PriceDelta, error) {
			return model.PriceDelta{VoucherCode: code, Discount: 30}, nil
		},
	}
	v := NewVoucherNegotiator(api, nil)
	v.Bind("o1", 100)

	quote, err := v.Toggle(context.Background(), "V30")
	require.NoError(t, err)
	assert.Equal(t, []string{"V30"}, quote.AppliedVoucherCodes)
	assert.InDelta(t, 70.0, quote.DiscountedTotal, 1e-9)
	assert.InDelta(t, 100.0, quote.BasePrice, 1e-9)

	// toggling again removes it and restores the base price
	quote, err = v.Toggle(context.Background(), "V30")
	require.NoError(t, err)
	assert.Empty(t, quote.AppliedVoucherCodes)
	assert.InDelta(t, 100.0, quote.DiscountedTotal, 1e-9)
}

func TestToggleFloorsTotalAtZero(t *testing.T) {
	api := &fakeAPI{
		quoteFn: func(ctx context.Context, orderID, code string) (model.PriceDelta, error) {
			return model.PriceDelta{VoucherCode: code, Discount: 60}, nil
		},
	}
	v := NewVoucherNegotiator(api, nil)
	v.Bind("o1", 100)

	_, err := v.Toggle(context.Background(), "A")
	require.NoError(t, err)
	quote, err := v.Toggle(context.Background(), "B")
	require.NoError(t, err)

	// 100 - 60 - 60 clamps to zero, never negative
	assert.Zero(t, quote.DiscountedTotal)
	assert.Equal(t, []string{"A", "B"}, quote.AppliedVoucherCodes)
}

func TestToggleRollsBackOnQuoteFailure(t *testing.T) {
	api := &fakeAPI{
		quoteFn: func(ctx context.Context, orderID, code string) (model.PriceDelta, error) {
			if code == "BROKEN" {
				return model.PriceDelta{}, apiError(500, "")
			}
			return model.PriceDelta{VoucherCode: code, Discount: 25}, nil
		},
	}
	v := NewVoucherNegotiator(api, nil)
	v.Bind("o1", 100)

	good, err := v.Toggle(context.Background(), "GOOD")
	require.NoError(t, err)
	require.InDelta(t, 75.0, good.DiscountedTotal, 1e-9)

	// the failed toggle must not disturb the committed quote
	prior, err := v.Toggle(context.Background(), "BROKEN")
	assert.ErrorIs(t, err, ErrVoucherQuoteFailed)
	assert.Equal(t, good, prior)
	assert.Equal(t, []string{"GOOD"}, v.Applied())
	assert.Equal(t, good, v.Quote())
}

func TestBindResetsVoucherState(t *testing.T) {
	api := &fakeAPI{
		quoteFn: func(ctx context.Context, orderID, code string) (model.PriceDelta, error) {
			return model.PriceDelta{Discount: 10}, nil
		},
	}
	v := NewVoucherNegotiator(api, nil)
	v.Bind("o1", 50)

	_, err := v.Toggle(context.Background(), "X")
	require.NoError(t, err)
	require.NotEmpty(t, v.Applied())

	v.Bind("o2", 80)
	assert.Empty(t, v.Applied())
	quote := v.Quote()
	assert.InDelta(t, 80.0, quote.BasePrice, 1e-9)
	assert.InDelta(t, 80.0, quote.DiscountedTotal, 1e-9)
}
