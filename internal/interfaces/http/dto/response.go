package dto

// Response is the JSON envelope of every API reply. Success replies carry
// Data (and Count for lists); failures carry a fixed human-readable Error.
type Response struct {
	Success bool               `json:"success"`
	Count   *int               `json:"count,omitempty"`
	Data    any                `json:"data,omitempty"`
	Message string             `json:"message,omitempty"`
	Stats   *RefreshStats      `json:"stats,omitempty"`
	Error   string             `json:"error,omitempty"`
	Details []ValidationDetail `json:"details,omitempty"`
}

// RefreshStats reports the outcome of a manual refresh
type RefreshStats struct {
	Total     int `json:"total"`
	Added     int `json:"added"`
	Updated   int `json:"updated"`
	Unchanged int `json:"unchanged"`
}

// NewSuccessResponse creates a success response
func NewSuccessResponse(data any) Response {
	return Response{
		Success: true,
		Data:    data,
	}
}

// NewListResponse creates a success response with an item count
func NewListResponse(data any, count int) Response {
	return Response{
		Success: true,
		Count:   &count,
		Data:    data,
	}
}

// NewRefreshResponse creates the reply for a completed refresh
func NewRefreshResponse(stats RefreshStats) Response {
	return Response{
		Success: true,
		Message: MsgOrdersRefreshed,
		Stats:   &stats,
	}
}

// NewErrorResponse creates an error response
func NewErrorResponse(message string) Response {
	return Response{
		Success: false,
		Error:   message,
	}
}

// NewValidationErrorResponse creates an error response with per-field details
func NewValidationErrorResponse(message string, details []ValidationDetail) Response {
	return Response{
		Success: false,
		Error:   message,
		Details: details,
	}
}
