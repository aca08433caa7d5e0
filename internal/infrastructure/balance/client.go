package balance

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	domproduct "github.com/paysys/payment-integration/internal/domain/product"
	"github.com/paysys/payment-integration/internal/observability"
)

const componentClient = "balance_client"

// APIError is a non-2xx reply from the balance-management API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("balance api: %s (status %d)", e.Message, e.StatusCode)
}

// IsTransient reports whether err is a balance API failure worth retrying.
// Only 5xx-class replies qualify; client errors are permanent.
func IsTransient(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode >= http.StatusInternalServerError
}

// Client talks to the remote balance-management service that actually holds
// and moves funds. Reserve and Confirm are the two halves of the payment
// saga; Products is the catalog listing backing the read-through cache.
type Client struct {
	baseURL    string
	httpClient *http.Client
	retry      *RetryPolicy
	log        observability.Logger
	reqCounter observability.Counter
	durHist    observability.Histogram
}

// NewClient builds a client for baseURL. The retry policy may be nil, in
// which case every call is attempted exactly once. timeout bounds each HTTP
// attempt; the orchestrator adds no further deadline on top of it.
func NewClient(baseURL string, timeout time.Duration, retry *RetryPolicy, tel observability.Observability) *Client {
	logger := observability.NopLogger()
	metrics := observability.NopMetrics()
	if tel != nil {
		logger = tel.Logger()
		metrics = tel.Metrics()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		retry:      retry,
		log:        logger.With(observability.F("component", componentClient)),
		reqCounter: metrics.Counter(observability.MBalanceRequests),
		durHist:    metrics.Histogram(observability.MBalanceRequestDuration),
	}
}

type reserveRequest struct {
	OrderID string `json:"order_id"`
	Amount  int64  `json:"amount"`
}

type confirmRequest struct {
	OrderID string `json:"order_id"`
}

type productPayload struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       int64  `json:"price"`
	Currency    string `json:"currency"`
	Category    string `json:"category"`
	Stock       int    `json:"stock"`
}

type productsResponse struct {
	Data []productPayload `json:"data"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Reserve holds funds against orderID without finalizing the transfer.
func (c *Client) Reserve(ctx context.Context, orderID string, amount int64) error {
	return c.call(ctx, "reserve", func(ctx context.Context) error {
		return c.post(ctx, "/api/preorder", reserveRequest{OrderID: orderID, Amount: amount}, nil)
	})
}

// Confirm finalizes a previously reserved transfer for orderID.
func (c *Client) Confirm(ctx context.Context, orderID string) error {
	return c.call(ctx, "confirm", func(ctx context.Context) error {
		return c.post(ctx, "/api/complete", confirmRequest{OrderID: orderID}, nil)
	})
}

// Products fetches the remote catalog listing.
func (c *Client) Products(ctx context.Context) ([]domproduct.Product, error) {
	var payload productsResponse
	err := c.call(ctx, "products", func(ctx context.Context) error {
		return c.get(ctx, "/api/products", &payload)
	})
	if err != nil {
		return nil, err
	}

	products := make([]domproduct.Product, 0, len(payload.Data))
	for _, p := range payload.Data {
		products = append(products, domproduct.Product{
			ID:          p.ID,
			Name:        p.Name,
			Description: p.Description,
			Price:       p.Price,
			Currency:    p.Currency,
			Category:    p.Category,
			Stock:       p.Stock,
		})
	}
	return products, nil
}

// call applies the retry policy (when configured) and records per-operation
// external request metrics around fn.
func (c *Client) call(ctx context.Context, op string, fn func(context.Context) error) error {
	start := time.Now()

	var err error
	if c.retry != nil {
		err = c.retry.Do(ctx, op, fn)
	} else {
		err = fn(ctx)
	}

	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	c.reqCounter.Add(1,
		observability.L("target", op),
		observability.L("outcome", outcome),
	)
	c.durHist.Observe(time.Since(start).Seconds(),
		observability.L("target", op),
	)
	return err
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("balance client: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("balance client: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.send(req, out)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("balance client: build request: %w", err)
	}
	return c.send(req, out)
}

func (c *Client) send(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("balance client: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("balance client: read response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return &APIError{StatusCode: resp.StatusCode, Message: errorMessage(raw, resp.StatusCode)}
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("balance client: decode response: %w", err)
		}
	}
	return nil
}

func errorMessage(raw []byte, status int) string {
	var body errorResponse
	if err := json.Unmarshal(raw, &body); err == nil {
		if body.Error != "" {
			return body.Error
		}
		if body.Message != "" {
			return body.Message
		}
	}
	return http.StatusText(status)
}
