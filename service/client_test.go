package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"cinebook-cli/auth"
)

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	c := NewClient(server.Client(), WithBaseURL(server.URL))
	c.retryBase = time.Millisecond
	c.retryCap = 5 * time.Millisecond
	return c
}

func TestListCinemasRetriesOnServerError(t *testing.T) {
	attempts := 0
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`[{"id":"c1","name":"Downtown"}]`))
	}))

	cinemas, err := c.ListCinemas(context.Background())
	if err != nil {
		t.Fatalf("ListCinemas() error = %v", err)
	}
	if len(cinemas) != 1 || cinemas[0].Id != "c1" {
		t.Fatalf("ListCinemas() = %+v, want one cinema c1", cinemas)
	}
	if attempts != 3 {
		t.Fatalf("attempts = %d, want 3", attempts)
	}
}

func TestGetOrderDoesNotRetryClientErrors(t *testing.T) {
	attempts := 0
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusNotFound)
	}))

	_, err := c.GetOrder(context.Background(), "missing")
	if err == nil {
		t.Fatal("GetOrder() expected error")
	}
	if !IsNotFound(err) {
		t.Fatalf("IsNotFound(%v) = false, want true", err)
	}
	if attempts != 1 {
		t.Fatalf("attempts = %d, want 1", attempts)
	}
}

func TestCreateOrderSendsIdempotencyKey(t *testing.T) {
	var got map[string]any
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/orders" {
			t.Errorf("request = %s %s, want POST /orders", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		_, _ = w.Write([]byte(`{"id":"o1","status":"pending"}`))
	}))

	order, err := c.CreateOrder(context.Background(), "sess1", []string{"a", "b"})
	if err != nil {
		t.Fatalf("CreateOrder() error = %v", err)
	}
	if order.Id != "o1" {
		t.Fatalf("order id = %q, want o1", order.Id)
	}
	if got["sessionId"] != "sess1" {
		t.Errorf("sessionId = %v, want sess1", got["sessionId"])
	}
	if key, _ := got["requestKey"].(string); key == "" {
		t.Error("requestKey missing from order request")
	}
}

func TestCreateOrderIsNeverRetriedByTransport(t *testing.T) {
	attempts := 0
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusInternalServerError)
	}))

	_, err := c.CreateOrder(context.Background(), "sess1", []string{"a"})
	if err == nil {
		t.Fatal("CreateOrder() expected error")
	}
	if !IsTransient(err) {
		t.Fatalf("IsTransient(%v) = false, want true", err)
	}
	if attempts != 1 {
		t.Fatalf("attempts = %d, want 1; mutations must not auto-retry", attempts)
	}
}

func TestErrorEnvelopeCodeMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(error) bool
	}{
		{"seat conflict by code", http.StatusUnprocessableEntity, `{"error":{"code":"seat_conflict","message":"seat taken"}}`, IsSeatConflict},
		{"seat conflict by status", http.StatusConflict, `{}`, IsSeatConflict},
		{"auth expired by code", http.StatusForbidden, `{"error":{"code":"auth_expired"}}`, IsAuthExpired},
		{"auth expired by status", http.StatusUnauthorized, `{}`, IsAuthExpired},
		{"insufficient balance", http.StatusPaymentRequired, `{"error":{"code":"insufficient_balance"}}`, IsInsufficientBalance},
		{"rate limited is transient", http.StatusTooManyRequests, `{}`, IsTransient},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			// POST path: no transport retry muddying attempt counts
			err := c.CancelOrder(context.Background(), "o1")
			if err == nil {
				t.Fatal("expected error")
			}
			if !tt.check(err) {
				t.Fatalf("predicate rejected %v", err)
			}
		})
	}
}

func TestPayRejectsNegativeAmount(t *testing.T) {
	c := NewClient(nil)
	if _, err := c.Pay(context.Background(), "o1", -1, nil); err == nil {
		t.Fatal("Pay() with negative amount expected error")
	}
}

func TestPaySendsVoucherCodes(t *testing.T) {
	var got payRequest
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/orders/o1/pay" {
			t.Errorf("path = %s, want /orders/o1/pay", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		_, _ = w.Write([]byte(`{"orderId":"o1","amountPaid":0}`))
	}))

	_, err := c.Pay(context.Background(), "o1", 0, []string{"V1", "V2"})
	if err != nil {
		t.Fatalf("Pay() error = %v", err)
	}
	if got.Amount != 0 {
		t.Errorf("amount = %v, want 0", got.Amount)
	}
	if len(got.VoucherCodes) != 2 {
		t.Errorf("voucherCodes = %v, want two codes", got.VoucherCodes)
	}
}

func TestBearerTokenHeader(t *testing.T) {
	session, err := auth.NewSession("acct-1", "opaque-token")
	if err != nil {
		t.Fatal(err)
	}

	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`[]`))
	}))
	t.Cleanup(server.Close)

	c := NewClient(server.Client(), WithBaseURL(server.URL), WithSession(session))
	if _, err := c.ListFilms(context.Background(), "c1"); err != nil {
		t.Fatalf("ListFilms() error = %v", err)
	}
	if gotAuth != "Bearer opaque-token" {
		t.Fatalf("Authorization = %q, want bearer token", gotAuth)
	}
}

func TestEndpointPaths(t *testing.T) {
	var gotPath string
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		// quote and ticket decode into structs; the rest decode into slices.
		if strings.HasSuffix(gotPath, "/quote") || strings.HasSuffix(gotPath, "/ticket") {
			_, _ = w.Write([]byte(`{}`))
			return
		}
		_, _ = w.Write([]byte(`[]`))
	}))
	ctx := context.Background()

	tests := []struct {
		name string
		call func() error
		want string
	}{
		{"films", func() error { _, err := c.ListFilms(ctx, "c 1"); return err }, "/cinemas/c%201/films"},
		{"dates", func() error { _, err := c.ListDates(ctx, "f1"); return err }, "/films/f1/dates"},
		{"sessions", func() error { _, err := c.ListSessions(ctx, "d1"); return err }, "/dates/d1/sessions"},
		{"seats", func() error { _, err := c.GetSeatMap(ctx, "s1"); return err }, "/sessions/s1/seats"},
		{"vouchers", func() error { _, err := c.ListVouchers(ctx, "o1"); return err }, "/orders/o1/vouchers"},
		{"quote", func() error { _, err := c.QuoteVoucherPrice(ctx, "o1", "V1"); return err }, "/orders/o1/vouchers/V1/quote"},
		{"ticket", func() error { _, err := c.GetTicketCode(ctx, "o1"); return err }, "/orders/o1/ticket"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); err != nil {
				t.Fatalf("call error = %v", err)
			}
			if gotPath != tt.want {
				t.Fatalf("path = %q, want %q", gotPath, tt.want)
			}
		})
	}
}

func TestRetryDelayBackoff(t *testing.T) {
	c := NewClient(nil)
	c.retryBase = 200 * time.Millisecond
	c.retryCap = 1200 * time.Millisecond

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 200 * time.Millisecond},
		{2, 400 * time.Millisecond},
		{3, 800 * time.Millisecond},
		{4, 1200 * time.Millisecond},
		{10, 1200 * time.Millisecond},
	}
	for _, tt := range tests {
		if got := c.retryDelay(tt.attempt); got != tt.want {
			t.Errorf("retryDelay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}
