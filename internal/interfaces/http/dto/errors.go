package dto

// Client-facing messages. Internal error text never reaches a response body.
const (
	MsgFetchOrdersFailed   = "Failed to fetch orders"
	MsgGenerateCSVFailed   = "Failed to generate CSV"
	MsgRefreshFailed       = "Failed to refresh orders"
	MsgOrderNotFound       = "Order not found"
	MsgResourceNotFound    = "Resource not found"
	MsgInvalidQuery        = "Invalid query parameters"
	MsgInternalError       = "Internal server error"
	MsgTooManyRequests     = "Too many requests, please try again later"
	MsgRequestTooLarge     = "Request body exceeds maximum allowed size"
	MsgOrdersRefreshed     = "Orders refreshed"
	MsgAuthRequired        = "Authentication required"
	MsgMalformedAuthHeader = "Invalid authorization header"
	MsgInvalidCredentials  = "Invalid credentials"
)

// ValidationDetail describes one rejected request field
type ValidationDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}
