package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestContext(method, target string) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, target, nil)
	return c, w
}

func TestBaseHandler(t *testing.T) {
	h := &BaseHandler{}

	t.Run("success", func(t *testing.T) {
		c, w := newTestContext(http.MethodGet, "/")
		h.Success(c, gin.H{"id": "1"})
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"success":true,"data":{"id":"1"}}`, w.Body.String())
	})

	t.Run("success list", func(t *testing.T) {
		c, w := newTestContext(http.MethodGet, "/")
		h.SuccessList(c, []string{"a", "b"}, 2)
		assert.JSONEq(t, `{"success":true,"count":2,"data":["a","b"]}`, w.Body.String())
	})

	t.Run("not found", func(t *testing.T) {
		c, w := newTestContext(http.MethodGet, "/")
		h.NotFound(c, "Order not found")
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.JSONEq(t, `{"success":false,"error":"Order not found"}`, w.Body.String())
	})

	t.Run("internal error hides the cause", func(t *testing.T) {
		c, w := newTestContext(http.MethodGet, "/")
		h.InternalError(c, "Failed to fetch orders", errors.New("open /data/orders.json: permission denied"))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.JSONEq(t, `{"success":false,"error":"Failed to fetch orders"}`, w.Body.String())
		assert.NotContains(t, w.Body.String(), "permission denied")
		require.Len(t, c.Errors, 1)
	})

	t.Run("attachment", func(t *testing.T) {
		c, w := newTestContext(http.MethodGet, "/")
		h.Attachment(c, "orders.csv", "text/csv; charset=utf-8", []byte("a,b\n"))
		assert.Equal(t, "attachment; filename=orders.csv", w.Header().Get("Content-Disposition"))
		assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
		assert.Equal(t, "a,b\n", w.Body.String())
	})
}
