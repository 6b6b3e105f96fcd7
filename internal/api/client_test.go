package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSession struct {
	mu       sync.Mutex
	token    string
	expiries int
}

func (s *stubSession) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

func (s *stubSession) HandleExpiry(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expiries++
}

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *stubSession) {
	t.Helper()

	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)

	client := NewClient(ts.URL, nil)
	sess := &stubSession{token: "T"}
	client.BindSession(sess)
	return client, sess
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Fatalf("encode: %v", err)
	}
}

func TestListProducts_OK(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Fatalf("method = %s, want GET", r.Method)
		}
		if r.URL.Path != PathProductList {
			t.Fatalf("path = %s, want %s", r.URL.Path, PathProductList)
		}
		if r.Header.Get(TokenHeader) != "" {
			t.Fatalf("unauthenticated call must not carry a token")
		}
		writeJSON(t, w, http.StatusOK, map[string]any{
			"success": true,
			"products": []map[string]any{
				{"_id": "P1", "name": "Purifier", "price": 4999, "image": []string{"a.png"}},
			},
		})
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	products, err := client.ListProducts(ctx)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "P1", products[0].ID)
	assert.EqualValues(t, 4999, products[0].Price)
}

func TestAuthenticatedCall_SendsTokenHeader(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "T", r.Header.Get(TokenHeader))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))

		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"itemId":"P1"}`, string(body))

		writeJSON(t, w, http.StatusOK, map[string]any{"success": true})
	})

	require.NoError(t, client.AddToCart(context.Background(), "P1"))
}

func TestBusinessError_MessageVerbatim(t *testing.T) {
	client, sess := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, map[string]any{"success": false, "message": "Out of stock"})
	})

	err := client.UpdateCart(context.Background(), "P1", 2)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBusiness))
	assert.Equal(t, "Out of stock", UserMessage(err, "fallback"))
	assert.Equal(t, 0, sess.expiries)
}

func TestAuthExpired_On401(t *testing.T) {
	client, sess := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusUnauthorized, map[string]any{"success": false, "message": "jwt expired"})
	})

	err := client.UpdateCart(context.Background(), "P1", 3)
	require.Error(t, err)
	assert.True(t, IsAuthExpired(err))
	assert.Equal(t, 1, sess.expiries)
}

func TestAuthExpired_OnLiteralMessage(t *testing.T) {
	client, sess := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, map[string]any{"success": false, "message": ExpiredMessage})
	})

	_, err := client.GetCart(context.Background())
	require.Error(t, err)
	assert.True(t, IsAuthExpired(err))
	assert.Equal(t, 1, sess.expiries)
}

func TestUnauthenticated401_IsBusiness(t *testing.T) {
	client, sess := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusUnauthorized, map[string]any{"success": false, "message": "Invalid credentials"})
	})

	_, err := client.Login(context.Background(), Credentials{Identifier: "a@b.c", Password: "x"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBusiness))
	assert.False(t, IsAuthExpired(err))
	assert.Equal(t, 0, sess.expiries)
}

func TestUnknownError_NonJSON(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>bad gateway</html>"))
	})

	_, err := client.ListProducts(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknown))

	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
}

func TestNetworkError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := ts.URL
	ts.Close()

	client := NewClient(addr, nil)
	_, err := client.ListProducts(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNetwork))
	assert.Equal(t, "Network error. Please try again.", UserMessage(err, "fallback"))
}

func TestNotConfigured(t *testing.T) {
	client := NewClient("", nil)
	_, err := client.ListProducts(context.Background())
	assert.True(t, errors.Is(err, ErrUnknown))
}

func TestSubmitForm_IgnoresResponse(t *testing.T) {
	var got url.Values
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Empty(t, r.Header.Get(TokenHeader))
		got = r.URL.Query()
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	client := NewClient("http://backend.invalid", nil)
	client.BindSession(&stubSession{token: "T"})

	err := client.SubmitForm(context.Background(), ts.URL+"/exec?sheet=contact", url.Values{
		"name":  {"Asha"},
		"email": {"asha@example.com"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Asha", got.Get("name"))
	assert.Equal(t, "contact", got.Get("sheet"))
}

func TestSubmitForm_NotConfigured(t *testing.T) {
	client := NewClient("http://backend.invalid", nil)
	err := client.SubmitForm(context.Background(), "", nil)
	assert.Error(t, err)
}
