package dto

// OrderListQuery is bound from the query string of the list and CSV endpoints
type OrderListQuery struct {
	MinWorth  *float64 `form:"minWorth" binding:"omitempty,gte=0"`
	MaxWorth  *float64 `form:"maxWorth" binding:"omitempty,gte=0"`
	ProductID string   `form:"productId" binding:"omitempty,max=64"`
	SortBy    string   `form:"sortBy" binding:"omitempty,oneof=orderID orderWorth date"`
	Order     string   `form:"order" binding:"omitempty,oneof=asc desc"`
}

// CSVQuery selects the output encoding of CSV endpoints
type CSVQuery struct {
	Encoding string `form:"encoding" binding:"omitempty,oneof=utf-8 utf8 UTF-8 windows-1250 cp1250"`
}

// HealthResponse is returned by the health endpoint
type HealthResponse struct {
	Status     string `json:"status"`
	Uptime     string `json:"uptime"`
	GoVersion  string `json:"goVersion"`
	StoreSize  int    `json:"storeSize"`
	Scheduler  any    `json:"scheduler,omitempty"`
	StoreError string `json:"storeError,omitempty"`
}
