package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/storefront/backend/internal/interfaces/http/dto"
)

func TestValidation(t *testing.T) {
	SetupValidator()

	router := gin.New()
	router.GET("/orders", func(c *gin.Context) {
		var q dto.OrderListQuery
		if err := c.ShouldBindQuery(&q); err != nil {
			HandleValidationError(c, err)
			return
		}
		c.Status(http.StatusOK)
	})

	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantField  string
	}{
		{"no params", "", http.StatusOK, ""},
		{"valid bounds", "?minWorth=10&maxWorth=20.5", http.StatusOK, ""},
		{"negative bound", "?minWorth=-1", http.StatusBadRequest, "minWorth"},
		{"bad sort field", "?sortBy=customer", http.StatusBadRequest, "sortBy"},
		{"bad order", "?order=up", http.StatusBadRequest, "order"},
		{"unparsable number", "?maxWorth=abc", http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(router, httptest.NewRequest(http.MethodGet, "/orders"+tt.query, nil))
			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusBadRequest {
				assert.Contains(t, w.Body.String(), `"error":"Invalid query parameters"`)
				if tt.wantField != "" {
					assert.Contains(t, w.Body.String(), `"field":"`+tt.wantField+`"`)
				}
			}
		})
	}
}

func TestValidationDetails_NonValidatorError(t *testing.T) {
	details := ValidationDetails(errors.New("strconv.ParseFloat: invalid syntax"))
	assert.Equal(t, []dto.ValidationDetail{{Message: "Malformed value"}}, details)
}
