package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

type staticToken string

func (s staticToken) Token() string { return string(s) }

func TestRequireSession_WithToken(t *testing.T) {
	nextCalled := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nextCalled = true
	})

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/view/orders", nil)

	RequireSession(staticToken("T"), "/login", nil)(next).ServeHTTP(w, r)

	assert.True(t, nextCalled)
	assert.Equal(t, http.StatusOK, w.Result().StatusCode)
}

func TestRequireSession_WithoutToken(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("next handler should not be called")
	})

	var denied string
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/view/orders", nil)

	RequireSession(staticToken(""), "/login", func(r *http.Request) {
		denied = r.URL.Path
	})(next).ServeHTTP(w, r)

	res := w.Result()
	defer res.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
	assert.Equal(t, "/login", res.Header.Get("Location"))
	assert.Equal(t, "/view/orders", denied)
}
