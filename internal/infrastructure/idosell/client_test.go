package idosell

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestLogger() *zap.Logger {
	logger, _ := zap.NewDevelopment()
	return logger
}

type recordingObserver struct {
	mu        sync.Mutex
	faults    []string
	fallbacks int
	skipped   []string
}

func (o *recordingObserver) UpstreamFault(kind string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.faults = append(o.faults, kind)
}

func (o *recordingObserver) FallbackUsed() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.fallbacks++
}

func (o *recordingObserver) RecordSkipped(reason string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.skipped = append(o.skipped, reason)
}

type capturedRequest struct {
	Path   string
	APIKey string
	Body   searchRequest
}

// fakeAPI answers each search with the next scripted response
type fakeAPI struct {
	t         *testing.T
	mu        sync.Mutex
	requests  []capturedRequest
	responses []func(w http.ResponseWriter)
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(r.Body)
	require.NoError(f.t, err)
	var body searchRequest
	require.NoError(f.t, json.Unmarshal(data, &body))

	f.mu.Lock()
	idx := len(f.requests)
	f.requests = append(f.requests, capturedRequest{Path: r.URL.Path, APIKey: r.Header.Get("X-API-KEY"), Body: body})
	f.mu.Unlock()

	if idx >= len(f.responses) {
		idx = len(f.responses) - 1
	}
	f.responses[idx](w)
}

func jsonResponse(status int, body string) func(w http.ResponseWriter) {
	return func(w http.ResponseWriter) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

const missingParamsBody = `{"errors":{"faultCode":1,"faultString":"nie podano żadnych parametrów"}}`

func newTestClient(t *testing.T, api *fakeAPI, obs Observer) *Client {
	t.Helper()
	api.t = t
	server := httptest.NewServer(api)
	t.Cleanup(server.Close)

	c, err := NewClient(Config{
		BaseURL:        server.URL + "/api/admin/v3/",
		APIKey:         "secret-key",
		RetryBaseDelay: time.Millisecond,
	}, newTestLogger(), WithObserver(obs))
	require.NoError(t, err)
	return c
}

func TestNewClient_Validation(t *testing.T) {
	_, err := NewClient(Config{APIKey: "k"}, nil)
	assert.ErrorIs(t, err, ErrConfigMissingBaseURL)

	_, err = NewClient(Config{BaseURL: "https://x"}, nil)
	assert.ErrorIs(t, err, ErrConfigMissingAPIKey)

	c, err := NewClient(Config{BaseURL: "https://x/", APIKey: "k"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "https://x", c.config.BaseURL)
	assert.Equal(t, 100, c.config.PageSize)
	assert.Equal(t, 50, c.config.FallbackPageSize)
	assert.Equal(t, 3, c.config.RetryAttempts)
}

func TestClient_FetchBatch_Primary(t *testing.T) {
	api := &fakeAPI{responses: []func(http.ResponseWriter){
		jsonResponse(http.StatusOK, `{"Results":[
			{"id":"1","orderWorth":100,"orderDetails":{"productsResults":[{"productId":"p","productQuantity":2}]}},
			{"worth":5},
			{"id":"2","worth":"20.50"}
		]}`),
	}}
	obs := &recordingObserver{}
	c := newTestClient(t, api, obs)

	orders, err := c.FetchBatch(context.Background())
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, "1", orders[0].OrderID)
	assert.Equal(t, 100.0, orders[0].OrderWorth)
	assert.Equal(t, 2, orders[0].Products[0].Quantity)
	assert.Equal(t, 20.5, orders[1].OrderWorth)

	require.Len(t, api.requests, 1)
	req := api.requests[0]
	assert.Equal(t, "/api/admin/v3/orders/orders/search", req.Path)
	assert.Equal(t, "secret-key", req.APIKey)
	assert.Equal(t, "unpaid", req.Body.Params.OrderPrepaidStatus)
	assert.Equal(t, []string{"finished", "ready", "payment_waiting", "new"}, req.Body.Params.OrdersStatuses)
	assert.Equal(t, 0, req.Body.ResultsPage)
	assert.Equal(t, 100, req.Body.ResultsLimit)

	assert.Equal(t, []string{"missing_order_id"}, obs.skipped)
	assert.Zero(t, obs.fallbacks)
}

func TestClient_FetchBatch_EmptyAndInvalidStructure(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty results", `{"Results":[]}`},
		{"missing results key", `{"status":"success"}`},
		{"results not an array", `{"Results":{"id":"1"}}`},
		{"no results fault", `{"errors":{"faultCode":2,"faultString":"Brak wyników"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeAPI{responses: []func(http.ResponseWriter){jsonResponse(http.StatusOK, tt.body)}}
			c := newTestClient(t, api, nil)

			orders, err := c.FetchBatch(context.Background())
			require.NoError(t, err)
			assert.NotNil(t, orders)
			assert.Empty(t, orders)
		})
	}
}

func TestClient_FetchBatch_FallbackSucceeds(t *testing.T) {
	api := &fakeAPI{responses: []func(http.ResponseWriter){
		jsonResponse(http.StatusBadRequest, missingParamsBody),
		jsonResponse(http.StatusServiceUnavailable, `oops`),
		jsonResponse(http.StatusOK, `{"Results":[{"id":"3","orderWorth":300}]}`),
	}}
	obs := &recordingObserver{}
	c := newTestClient(t, api, obs)

	orders, err := c.FetchBatch(context.Background())
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "3", orders[0].OrderID)

	require.Len(t, api.requests, 3)
	for _, req := range api.requests[1:] {
		assert.Equal(t, []string{"finished"}, req.Body.Params.OrdersStatuses)
		assert.Empty(t, req.Body.Params.OrderPrepaidStatus)
		assert.Equal(t, 50, req.Body.ResultsLimit)
	}
	assert.Equal(t, 1, obs.fallbacks)
	assert.Equal(t, []string{"missing_parameters", "unavailable"}, obs.faults)
}

func TestClient_FetchBatch_FaultInSuccessfulResponse(t *testing.T) {
	api := &fakeAPI{responses: []func(http.ResponseWriter){
		jsonResponse(http.StatusOK, missingParamsBody),
		jsonResponse(http.StatusOK, `{"Results":[{"id":"9"}],"errors":{"faultCode":0,"faultString":""}}`),
	}}
	c := newTestClient(t, api, nil)

	orders, err := c.FetchBatch(context.Background())
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "9", orders[0].OrderID)
}

func TestClient_FetchBatch_FallbackExhausted(t *testing.T) {
	api := &fakeAPI{responses: []func(http.ResponseWriter){
		jsonResponse(http.StatusBadRequest, missingParamsBody),
		jsonResponse(http.StatusBadGateway, `{}`),
	}}
	c := newTestClient(t, api, nil)

	_, err := c.FetchBatch(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUpstream)
	assert.Equal(t, FaultUnavailable, KindOf(err))
	assert.Len(t, api.requests, 4, "one primary plus three fallback attempts")
}

func TestClient_FetchBatch_OtherErrorsPropagate(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   FaultKind
	}{
		{"unauthorized", http.StatusUnauthorized, `{"errors":{"faultCode":3,"faultString":"bad key"}}`, FaultUnauthorized},
		{"rate limited", http.StatusTooManyRequests, ``, FaultRateLimited},
		{"server error", http.StatusInternalServerError, `<html>`, FaultUnavailable},
		{"unknown client error", http.StatusBadRequest, `{"errors":{"faultString":"something else"}}`, FaultUnknown},
		{"malformed body", http.StatusOK, `{"Results": [`, FaultInvalidResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeAPI{responses: []func(http.ResponseWriter){jsonResponse(tt.status, tt.body)}}
			c := newTestClient(t, api, nil)

			_, err := c.FetchBatch(context.Background())
			require.Error(t, err)
			assert.Equal(t, tt.want, KindOf(err))
			assert.Len(t, api.requests, 1, "no fallback for other faults")
		})
	}
}

func TestClient_FetchBatch_TransportError(t *testing.T) {
	c, err := NewClient(Config{BaseURL: "http://127.0.0.1:1", APIKey: "k"}, newTestLogger())
	require.NoError(t, err)

	_, err = c.FetchBatch(context.Background())
	require.Error(t, err)
	assert.Equal(t, FaultUnavailable, KindOf(err))
}

func TestRetry(t *testing.T) {
	logger := zap.NewNop()

	t.Run("returns first success", func(t *testing.T) {
		var calls int32
		got, err := retry(context.Background(), logger, 3, time.Millisecond, func() (int, error) {
			if atomic.AddInt32(&calls, 1) < 2 {
				return 0, errors.New("transient")
			}
			return 42, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 42, got)
		assert.EqualValues(t, 2, calls)
	})

	t.Run("linear backoff between attempts only", func(t *testing.T) {
		var stamps []time.Time
		_, err := retry(context.Background(), logger, 3, 20*time.Millisecond, func() (int, error) {
			stamps = append(stamps, time.Now())
			return 0, errors.New("always")
		})
		require.EqualError(t, err, "always")
		require.Len(t, stamps, 3)
		assert.GreaterOrEqual(t, stamps[1].Sub(stamps[0]), 20*time.Millisecond)
		assert.GreaterOrEqual(t, stamps[2].Sub(stamps[1]), 40*time.Millisecond)
	})

	t.Run("stops on context cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		var calls int32
		_, err := retry(ctx, logger, 3, time.Hour, func() (int, error) {
			atomic.AddInt32(&calls, 1)
			cancel()
			return 0, errors.New("fail")
		})
		assert.ErrorIs(t, err, context.Canceled)
		assert.EqualValues(t, 1, calls)
	})
}

func TestClassifyFault(t *testing.T) {
	tests := []struct {
		name   string
		status int
		fault  *Fault
		want   FaultKind
	}{
		{"polish missing params", 400, &Fault{FaultString: "Nie podano żadnych parametrów"}, FaultMissingParameters},
		{"english missing params", 200, &Fault{FaultString: "No parameters were given"}, FaultMissingParameters},
		{"no results by code", 200, &Fault{FaultCode: json.RawMessage(`2`)}, FaultNoResults},
		{"no results by text", 404, &Fault{FaultString: "brak wyników"}, FaultNoResults},
		{"forbidden", 403, nil, FaultUnauthorized},
		{"throttled", 429, nil, FaultRateLimited},
		{"gateway", 504, nil, FaultUnavailable},
		{"other", 418, nil, FaultUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyFault(tt.status, tt.fault))
		})
	}
}

func TestUpstreamError(t *testing.T) {
	inner := errors.New("dial tcp: refused")
	err := &UpstreamError{Kind: FaultUnavailable, StatusCode: 503, FaultString: "down", Err: inner}

	assert.Equal(t, "idosell: unavailable (HTTP 503): down: dial tcp: refused", err.Error())
	assert.ErrorIs(t, err, ErrUpstream)
	assert.ErrorIs(t, err, inner)
	assert.Equal(t, FaultUnknown, KindOf(errors.New("plain")))
}

func TestFault_Code(t *testing.T) {
	assert.Equal(t, "", (*Fault)(nil).Code())
	assert.Equal(t, "2", (&Fault{FaultCode: json.RawMessage(`"2"`)}).Code())
	assert.False(t, (&Fault{FaultCode: json.RawMessage(`0`)}).present())
	assert.True(t, (&Fault{FaultCode: json.RawMessage(`7`)}).present())
}
