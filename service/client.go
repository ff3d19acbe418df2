package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"cinebook-cli/auth"
	"cinebook-cli/model"
)

const (
	defaultBaseURL     = "https://api.cinebook.example/v1"
	defaultUserAgent   = "cinebook-cli"
	defaultMaxAttempts = 3
	defaultRetryBase   = 200 * time.Millisecond
	defaultRetryCap    = 1200 * time.Millisecond
)

// Backend error codes carried in the error envelope body.
const (
	codeSeatConflict        = "seat_conflict"
	codeAuthExpired         = "auth_expired"
	codeInsufficientBalance = "insufficient_balance"
)

// Client wraps HTTP access to the booking backend.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	userAgent   string
	session     *auth.Session
	maxAttempts int
	retryBase   time.Duration
	retryCap    time.Duration
	log         *zap.Logger
}

// APIError is returned when the backend responds with a non-2xx status.
type APIError struct {
	StatusCode int
	Status     string
	Endpoint   string
	Code       string
	Body       string
}

func (e *APIError) Error() string {
	if e == nil {
		return "booking api error"
	}
	if e.Code != "" {
		return fmt.Sprintf("booking api error: %s (%s): %s", e.Status, e.Code, e.Body)
	}
	return fmt.Sprintf("booking api error: %s: %s", e.Status, e.Body)
}

// RequestError wraps a transport-level failure (connection refused, reset,
// timeout) as opposed to a backend-reported one.
type RequestError struct {
	Endpoint string
	Err      error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("request %s failed: %v", e.Endpoint, e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }

// errorEnvelope is the backend's error body shape.
type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// IsNotFound reports whether the error represents a 404 from the API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// IsSeatConflict reports whether order creation failed because a requested
// seat was already taken.
func IsSeatConflict(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code == codeSeatConflict || apiErr.StatusCode == http.StatusConflict
}

// IsAuthExpired reports whether the backend rejected the account token.
func IsAuthExpired(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code == codeAuthExpired || apiErr.StatusCode == http.StatusUnauthorized
}

// IsInsufficientBalance reports whether a payment was declined for lack of
// funds.
func IsInsufficientBalance(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code == codeInsufficientBalance || apiErr.StatusCode == http.StatusPaymentRequired
}

// IsTransient reports whether the failure is worth a retry: a transport
// error that is not a cancellation, a 429, or a 5xx.
func IsTransient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= http.StatusInternalServerError
	}
	return false
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the backend base URL.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithSession attaches the active account session used for bearer auth.
func WithSession(s *auth.Session) Option {
	return func(c *Client) { c.session = s }
}

// WithLogger attaches a structured logger.
func WithLogger(log *zap.Logger) Option {
	return func(c *Client) { c.log = log }
}

// NewClient creates a new API client. If httpClient is nil, a default
// client is used.
func NewClient(httpClient *http.Client, opts ...Option) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 12 * time.Second}
	}
	c := &Client{
		httpClient:  httpClient,
		baseURL:     defaultBaseURL,
		userAgent:   defaultUserAgent,
		maxAttempts: defaultMaxAttempts,
		retryBase:   defaultRetryBase,
		retryCap:    defaultRetryCap,
		log:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListCinemas returns the cinemas available for booking.
func (c *Client) ListCinemas(ctx context.Context) ([]model.Cinema, error) {
	endpoint := fmt.Sprintf("%s/cinemas", c.baseURL)
	var cinemas []model.Cinema
	if err := c.getJSON(ctx, endpoint, &cinemas); err != nil {
		return nil, err
	}
	if len(cinemas) == 0 {
		return nil, errors.New("no cinemas found")
	}
	return cinemas, nil
}

// ListFilms returns the films currently showing at a cinema.
func (c *Client) ListFilms(ctx context.Context, cinemaID string) ([]model.Film, error) {
	if cinemaID == "" {
		return nil, errors.New("cinema id is required")
	}
	endpoint := fmt.Sprintf("%s/cinemas/%s/films", c.baseURL, url.PathEscape(cinemaID))
	var films []model.Film
	if err := c.getJSON(ctx, endpoint, &films); err != nil {
		return nil, err
	}
	return films, nil
}

// ListDates returns the dates a film can be booked for.
func (c *Client) ListDates(ctx context.Context, filmID string) ([]model.ShowDate, error) {
	if filmID == "" {
		return nil, errors.New("film id is required")
	}
	endpoint := fmt.Sprintf("%s/films/%s/dates", c.baseURL, url.PathEscape(filmID))
	var dates []model.ShowDate
	if err := c.getJSON(ctx, endpoint, &dates); err != nil {
		return nil, err
	}
	return dates, nil
}

// ListSessions returns the bookable showtimes for a date.
func (c *Client) ListSessions(ctx context.Context, dateID string) ([]model.Session, error) {
	if dateID == "" {
		return nil, errors.New("date id is required")
	}
	endpoint := fmt.Sprintf("%s/dates/%s/sessions", c.baseURL, url.PathEscape(dateID))
	var sessions []model.Session
	if err := c.getJSON(ctx, endpoint, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

// GetSeatMap returns the raw seat records for a session.
func (c *Client) GetSeatMap(ctx context.Context, sessionID string) ([]model.SeatRecord, error) {
	if sessionID == "" {
		return nil, errors.New("session id is required")
	}
	endpoint := fmt.Sprintf("%s/sessions/%s/seats", c.baseURL, url.PathEscape(sessionID))
	var records []model.SeatRecord
	if err := c.getJSON(ctx, endpoint, &records); err != nil {
		return nil, err
	}
	return records, nil
}

type createOrderRequest struct {
	SessionId  string   `json:"sessionId"`
	SeatIds    []string `json:"seatIds"`
	RequestKey string   `json:"requestKey"`
}

// CreateOrder requests a new order holding the given seats. The request
// carries a client-generated idempotency key.
func (c *Client) CreateOrder(ctx context.Context, sessionID string, seatIDs []string) (model.Order, error) {
	if sessionID == "" || len(seatIDs) == 0 {
		return model.Order{}, errors.New("session id and seat ids are required")
	}
	endpoint := fmt.Sprintf("%s/orders", c.baseURL)
	body := createOrderRequest{
		SessionId:  sessionID,
		SeatIds:    seatIDs,
		RequestKey: uuid.NewString(),
	}
	var order model.Order
	if err := c.postJSON(ctx, endpoint, body, &order); err != nil {
		return model.Order{}, err
	}
	return order, nil
}

// GetOrder refreshes a single order's status and expiry.
func (c *Client) GetOrder(ctx context.Context, orderID string) (model.Order, error) {
	if orderID == "" {
		return model.Order{}, errors.New("order id is required")
	}
	endpoint := fmt.Sprintf("%s/orders/%s", c.baseURL, url.PathEscape(orderID))
	var order model.Order
	if err := c.getJSON(ctx, endpoint, &order); err != nil {
		return model.Order{}, err
	}
	return order, nil
}

// CancelOrder cancels an order. The backend treats cancelling an already
// terminal order as success.
func (c *Client) CancelOrder(ctx context.Context, orderID string) error {
	if orderID == "" {
		return errors.New("order id is required")
	}
	endpoint := fmt.Sprintf("%s/orders/%s/cancel", c.baseURL, url.PathEscape(orderID))
	return c.postJSON(ctx, endpoint, struct{}{}, nil)
}

// ListVouchers returns the vouchers the account may apply to an order.
func (c *Client) ListVouchers(ctx context.Context, orderID string) ([]model.Voucher, error) {
	if orderID == "" {
		return nil, errors.New("order id is required")
	}
	endpoint := fmt.Sprintf("%s/orders/%s/vouchers", c.baseURL, url.PathEscape(orderID))
	var vouchers []model.Voucher
	if err := c.getJSON(ctx, endpoint, &vouchers); err != nil {
		return nil, err
	}
	return vouchers, nil
}

// QuoteVoucherPrice asks the backend for the discount a single voucher
// contributes to an order.
func (c *Client) QuoteVoucherPrice(ctx context.Context, orderID string, voucherCode string) (model.PriceDelta, error) {
	if orderID == "" || voucherCode == "" {
		return model.PriceDelta{}, errors.New("order id and voucher code are required")
	}
	endpoint := fmt.Sprintf("%s/orders/%s/vouchers/%s/quote", c.baseURL, url.PathEscape(orderID), url.PathEscape(voucherCode))
	var delta model.PriceDelta
	if err := c.getJSON(ctx, endpoint, &delta); err != nil {
		return model.PriceDelta{}, err
	}
	return delta, nil
}

type payRequest struct {
	Amount       float64  `json:"amount"`
	VoucherCodes []string `json:"voucherCodes"`
}

// Pay settles an order. A zero amount is valid when vouchers cover the
// full price.
func (c *Client) Pay(ctx context.Context, orderID string, amount float64, voucherCodes []string) (model.PaymentResult, error) {
	if orderID == "" {
		return model.PaymentResult{}, errors.New("order id is required")
	}
	if amount < 0 {
		return model.PaymentResult{}, errors.New("amount must not be negative")
	}
	endpoint := fmt.Sprintf("%s/orders/%s/pay", c.baseURL, url.PathEscape(orderID))
	var result model.PaymentResult
	if err := c.postJSON(ctx, endpoint, payRequest{Amount: amount, VoucherCodes: voucherCodes}, &result); err != nil {
		return model.PaymentResult{}, err
	}
	return result, nil
}

// GetTicketCode fetches the ticket/QR code of a paid order.
func (c *Client) GetTicketCode(ctx context.Context, orderID string) (model.TicketCode, error) {
	if orderID == "" {
		return model.TicketCode{}, errors.New("order id is required")
	}
	endpoint := fmt.Sprintf("%s/orders/%s/ticket", c.baseURL, url.PathEscape(orderID))
	var ticket model.TicketCode
	if err := c.getJSON(ctx, endpoint, &ticket); err != nil {
		return model.TicketCode{}, err
	}
	return ticket, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	maxAttempts := c.maxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := c.doJSON(ctx, http.MethodGet, endpoint, nil, out)
		if err == nil {
			return nil
		}
		if IsTransient(err) && attempt < maxAttempts {
			c.log.Debug("retrying request",
				zap.String("endpoint", endpoint),
				zap.Int("attempt", attempt),
				zap.Error(err))
			if waitErr := c.waitRetry(ctx, attempt); waitErr != nil {
				return waitErr
			}
			continue
		}
		return err
	}
	return errors.New("request failed after retries")
}

// postJSON performs a single mutating call. Mutations are never retried at
// the transport level; retry decisions belong to the order manager.
func (c *Client) postJSON(ctx context.Context, endpoint string, in any, out any) error {
	return c.doJSON(ctx, http.MethodPost, endpoint, in, out)
}

func (c *Client) doJSON(ctx context.Context, method string, endpoint string, in any, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.session != nil && c.session.Token() != "" {
		req.Header.Set("Authorization", "Bearer "+c.session.Token())
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("request failed: %w", err)
		}
		return &RequestError{Endpoint: endpoint, Err: err}
	}

	if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
		snippet, _ := io.ReadAll(io.LimitReader(res.Body, 8<<10))
		_ = res.Body.Close()

		apiErr := &APIError{
			StatusCode: res.StatusCode,
			Status:     res.Status,
			Endpoint:   endpoint,
			Body:       strings.TrimSpace(string(snippet)),
		}
		var envelope errorEnvelope
		if jsonErr := json.Unmarshal(snippet, &envelope); jsonErr == nil {
			apiErr.Code = envelope.Error.Code
		}
		return apiErr
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, 8<<10))
		_ = res.Body.Close()
		return nil
	}

	dec := json.NewDecoder(res.Body)
	err = dec.Decode(out)
	_ = res.Body.Close()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("decode response from %s: %w", endpoint, err)
	}
	return nil
}

func (c *Client) waitRetry(ctx context.Context, attempt int) error {
	delay := c.retryDelay(attempt)
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *Client) retryDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	base := c.retryBase
	if base <= 0 {
		base = defaultRetryBase
	}
	cap := c.retryCap
	if cap <= 0 {
		cap = defaultRetryCap
	}

	delay := base
	for i := 1; i < attempt; i++ {
		if delay >= cap/2 {
			return cap
		}
		delay *= 2
	}
	if delay > cap {
		return cap
	}
	return delay
}
