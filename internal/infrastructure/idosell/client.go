package idosell

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/storefront/backend/internal/domain/order"
)

// maxResponseSize is the maximum allowed response size from the API (10MB)
const maxResponseSize = 10 * 1024 * 1024

const searchPath = "/orders/orders/search"

// Observer receives client events for instrumentation. All methods must be
// safe for concurrent use.
type Observer interface {
	UpstreamFault(kind string)
	FallbackUsed()
	RecordSkipped(reason string)
}

type nopObserver struct{}

func (nopObserver) UpstreamFault(string) {}
func (nopObserver) FallbackUsed()        {}
func (nopObserver) RecordSkipped(string) {}

// Client fetches order batches from the idoSell admin API
type Client struct {
	config     Config
	httpClient *http.Client
	logger     *zap.Logger
	observer   Observer
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithObserver attaches an instrumentation observer
func WithObserver(o Observer) ClientOption {
	return func(c *Client) {
		if o != nil {
			c.observer = o
		}
	}
}

// NewClient creates a client. The configuration is validated up front so a
// misconfigured deployment fails at startup rather than on the first cycle.
func NewClient(cfg Config, logger *zap.Logger, opts ...ClientOption) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Client{
		config:     cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger.Named("idosell"),
		observer:   nopObserver{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// FetchBatch runs the primary search. When the API rejects it with the
// missing-parameters fault, the narrower fallback search is retried with
// linear backoff. Every other failure is returned unchanged.
func (c *Client) FetchBatch(ctx context.Context) ([]order.Order, error) {
	orders, err := c.search(ctx, searchRequest{
		Params: searchQuery{
			OrderPrepaidStatus: "unpaid",
			OrdersStatuses:     primaryStatuses,
		},
		ResultsPage:  0,
		ResultsLimit: c.config.PageSize,
	})
	if err == nil {
		return orders, nil
	}
	if KindOf(err) != FaultMissingParameters {
		return nil, err
	}

	c.logger.Error("Primary order search rejected", zap.Error(err))
	c.logger.Info("Fetching orders with fallback query",
		zap.Strings("statuses", fallbackStatuses),
		zap.Int("limit", c.config.FallbackPageSize),
	)
	c.observer.FallbackUsed()

	fallback := searchRequest{
		Params:       searchQuery{OrdersStatuses: fallbackStatuses},
		ResultsPage:  0,
		ResultsLimit: c.config.FallbackPageSize,
	}
	return retry(ctx, c.logger, c.config.RetryAttempts, c.config.RetryBaseDelay, func() ([]order.Order, error) {
		return c.search(ctx, fallback)
	})
}

func (c *Client) search(ctx context.Context, req searchRequest) ([]order.Order, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("idosell: failed to encode request: %w", err)
	}

	body, status, err := c.doRequest(ctx, http.MethodPost, searchPath, payload)
	if err != nil {
		return nil, c.fail(&UpstreamError{Kind: FaultUnavailable, Err: err})
	}

	var resp searchResponse
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	decodeErr := dec.Decode(&resp)

	if status >= http.StatusBadRequest || (decodeErr == nil && resp.Errors.present()) {
		ue := &UpstreamError{
			Kind:       ClassifyFault(status, resp.Errors),
			StatusCode: status,
		}
		if resp.Errors != nil {
			ue.FaultCode = resp.Errors.Code()
			ue.FaultString = resp.Errors.FaultString
		}
		if ue.Kind == FaultNoResults {
			c.logger.Info("Order search returned no results")
			return []order.Order{}, nil
		}
		return nil, c.fail(ue)
	}
	if decodeErr != nil {
		return nil, c.fail(&UpstreamError{Kind: FaultInvalidResponse, StatusCode: status, Err: decodeErr})
	}

	var raw []any
	if len(resp.Results) > 0 {
		rdec := json.NewDecoder(bytes.NewReader(resp.Results))
		rdec.UseNumber()
		if err := rdec.Decode(&raw); err != nil {
			raw = nil
		}
	}
	if raw == nil {
		c.logger.Warn("Order search response has unexpected structure", zap.ByteString("body", truncate(body, 512)))
		return []order.Order{}, nil
	}

	return c.normalizeAll(raw), nil
}

func (c *Client) normalizeAll(raw []any) []order.Order {
	orders := make([]order.Order, 0, len(raw))
	for i, rec := range raw {
		res := Normalize(rec)
		if !res.OK() {
			c.logger.Warn("Dropping upstream order record",
				zap.Int("index", i),
				zap.Stringer("reason", res.Skip),
			)
			c.observer.RecordSkipped(res.Skip.String())
			continue
		}
		if res.DroppedProducts > 0 {
			c.logger.Warn("Dropped incomplete product lines",
				zap.String("order_id", res.Order.OrderID),
				zap.Int("dropped", res.DroppedProducts),
			)
		}
		orders = append(orders, res.Order)
	}
	c.logger.Info("Fetched orders", zap.Int("received", len(raw)), zap.Int("accepted", len(orders)))
	return orders
}

func (c *Client) fail(ue *UpstreamError) error {
	c.observer.UpstreamFault(ue.Kind.String())
	return ue
}

func (c *Client) doRequest(ctx context.Context, method, path string, payload []byte) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-API-KEY", c.config.APIKey)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}

	c.logger.Debug("HTTP Response",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)
	return body, resp.StatusCode, nil
}

func truncate(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[:n]
}

var _ order.Source = (*Client)(nil)
