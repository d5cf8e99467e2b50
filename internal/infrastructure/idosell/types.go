package idosell

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ---------------------------------------------------------------------------
// Wire types
// ---------------------------------------------------------------------------

// searchQuery is the filter set sent under "params"
type searchQuery struct {
	OrderPrepaidStatus string   `json:"orderPrepaidStatus,omitempty"`
	OrdersStatuses     []string `json:"ordersStatuses,omitempty"`
}

type searchRequest struct {
	Params       searchQuery `json:"params"`
	ResultsPage  int         `json:"resultsPage"`
	ResultsLimit int         `json:"resultsLimit"`
}

type searchResponse struct {
	Results json.RawMessage `json:"Results"`
	Errors  *Fault          `json:"errors"`
}

// Fault is the error object the API embeds in responses
type Fault struct {
	FaultCode   json.RawMessage `json:"faultCode"`
	FaultString string          `json:"faultString"`
}

// Code returns the fault code as text, or "" when absent
func (f *Fault) Code() string {
	if f == nil || len(f.FaultCode) == 0 {
		return ""
	}
	return strings.Trim(string(bytes.TrimSpace(f.FaultCode)), `"`)
}

// present reports whether the fault object carries an actual error
func (f *Fault) present() bool {
	if f == nil {
		return false
	}
	code := f.Code()
	return f.FaultString != "" || (code != "" && code != "0" && code != "null")
}

// Order statuses queried by the primary and fallback searches
var (
	primaryStatuses  = []string{"finished", "ready", "payment_waiting", "new"}
	fallbackStatuses = []string{"finished"}
)

// ---------------------------------------------------------------------------
// Fault classification
// ---------------------------------------------------------------------------

// FaultKind is the category of an upstream failure
type FaultKind int

const (
	FaultUnknown FaultKind = iota
	// FaultMissingParameters: the API rejected the search filter as empty
	FaultMissingParameters
	// FaultNoResults: the search matched nothing
	FaultNoResults
	FaultUnauthorized
	FaultRateLimited
	FaultUnavailable
	FaultInvalidResponse
)

func (k FaultKind) String() string {
	switch k {
	case FaultMissingParameters:
		return "missing_parameters"
	case FaultNoResults:
		return "no_results"
	case FaultUnauthorized:
		return "unauthorized"
	case FaultRateLimited:
		return "rate_limited"
	case FaultUnavailable:
		return "unavailable"
	case FaultInvalidResponse:
		return "invalid_response"
	default:
		return "unknown"
	}
}

var (
	missingParameterPhrases = []string{"nie podano żadnych parametrów", "no parameters"}
	noResultPhrases         = []string{"brak wyników", "no results"}
)

// ClassifyFault maps an HTTP status and optional fault body to a FaultKind
func ClassifyFault(status int, fault *Fault) FaultKind {
	if fault != nil {
		msg := strings.ToLower(fault.FaultString)
		for _, p := range missingParameterPhrases {
			if strings.Contains(msg, p) {
				return FaultMissingParameters
			}
		}
		for _, p := range noResultPhrases {
			if strings.Contains(msg, p) {
				return FaultNoResults
			}
		}
		if fault.Code() == "2" && status < http.StatusBadRequest {
			return FaultNoResults
		}
	}

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return FaultUnauthorized
	case status == http.StatusTooManyRequests:
		return FaultRateLimited
	case status >= http.StatusInternalServerError:
		return FaultUnavailable
	default:
		return FaultUnknown
	}
}

// ErrUpstream is matched by every *UpstreamError through errors.Is
var ErrUpstream = errors.New("idosell: upstream request failed")

// UpstreamError describes a failed search call
type UpstreamError struct {
	Kind        FaultKind
	StatusCode  int
	FaultCode   string
	FaultString string
	Err         error
}

func (e *UpstreamError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "idosell: %s", e.Kind)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (HTTP %d)", e.StatusCode)
	}
	if e.FaultString != "" {
		fmt.Fprintf(&b, ": %s", e.FaultString)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Is makes every UpstreamError match ErrUpstream
func (e *UpstreamError) Is(target error) bool {
	return target == ErrUpstream
}

// KindOf returns the fault kind carried by err, or FaultUnknown
func KindOf(err error) FaultKind {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue.Kind
	}
	return FaultUnknown
}
