package orders

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/storefront/internal/api"
	"github.com/mmeshcher/storefront/internal/model"
	"github.com/mmeshcher/storefront/internal/navigation"
	"github.com/mmeshcher/storefront/internal/notify"
	"github.com/mmeshcher/storefront/internal/session"
)

type stubBackend struct {
	orders []model.Order
	err    error
	calls  int
}

func (b *stubBackend) UserOrders(ctx context.Context) ([]model.Order, error) {
	b.calls++
	return b.orders, b.err
}

type tokenSource string

func (t tokenSource) Token() string { return string(t) }

func TestFlatten(t *testing.T) {
	day := time.Date(2025, time.March, 21, 10, 0, 0, 0, time.UTC)
	orders := []model.Order{
		{
			Status:        "Shipped",
			PaymentMethod: "COD",
			Date:          model.Timestamp{Time: day},
			Items: []model.OrderLine{
				{Product: &model.Product{ID: "P1", Name: "Purifier", Price: 4999, Image: []string{"a.png"}}, Quantity: 2},
				{ID: "P2", Quantity: 1},
			},
		},
		{
			Payment: true,
			Items: []model.OrderLine{
				{Product: &model.Product{ID: "P3"}},
			},
		},
	}

	got := Flatten(orders)

	require.Len(t, got, 2)
	assert.Equal(t, model.OrderDisplayItem{
		ProductID:     "P3",
		Name:          "Unknown Item",
		Image:         []string{},
		Quantity:      1,
		Status:        "Unknown",
		Payment:       true,
		PaymentMethod: "Not specified",
		Date:          "N/A",
	}, got[0])
	assert.Equal(t, model.OrderDisplayItem{
		ProductID:     "P1",
		Name:          "Purifier",
		Price:         4999,
		Image:         []string{"a.png"},
		Quantity:      2,
		Status:        "Shipped",
		PaymentMethod: "COD",
		Date:          "Fri Mar 21 2025",
	}, got[1])
}

func TestFlatten_Empty(t *testing.T) {
	assert.Empty(t, Flatten(nil))
}

func TestStatusTone(t *testing.T) {
	tests := []struct {
		status string
		want   Tone
	}{
		{"Delivered", ToneDelivered},
		{"Shipped", ToneInTransit},
		{"Out for Delivery", ToneInTransit},
		{"processing", ToneProcessing},
		{"Order Placed", ToneNeutral},
		{"", ToneNeutral},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusTone(tt.status))
		})
	}
}

func TestLoad_Anonymous(t *testing.T) {
	backend := &stubBackend{}
	nav := navigation.New(nil, nil)
	s := NewStore(backend, tokenSource(""), nav, notify.NewFeed(nil), nil)

	_, err := s.Load(context.Background())

	assert.ErrorIs(t, err, session.ErrUnauthenticated)
	assert.Equal(t, navigation.RouteLogin, nav.Current())
	assert.Zero(t, backend.calls)
}

func TestLoad(t *testing.T) {
	backend := &stubBackend{orders: []model.Order{
		{Status: "Delivered", Items: []model.OrderLine{{Product: &model.Product{ID: "P1", Name: "Purifier"}, Quantity: 1}}},
	}}
	s := NewStore(backend, tokenSource("T"), navigation.New(nil, nil), notify.NewFeed(nil), nil)

	items, err := s.Load(context.Background())

	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "P1", items[0].ProductID)
	assert.Equal(t, items, s.Items())
	assert.False(t, s.Loading())
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantToasts int
	}{
		{name: "business", err: &api.Error{Kind: api.KindBusiness, Message: "nope"}, wantToasts: 1},
		{name: "expired", err: &api.Error{Kind: api.KindAuthExpired, Status: 401}, wantToasts: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			feed := notify.NewFeed(nil)
			s := NewStore(&stubBackend{err: tt.err}, tokenSource("T"), navigation.New(nil, nil), feed, nil)

			_, err := s.Load(context.Background())

			assert.Error(t, err)
			assert.Len(t, feed.Pending(), tt.wantToasts)
		})
	}
}
