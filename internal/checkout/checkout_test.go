package checkout

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/storefront/internal/api"
	"github.com/mmeshcher/storefront/internal/cart"
	"github.com/mmeshcher/storefront/internal/model"
	"github.com/mmeshcher/storefront/internal/navigation"
	"github.com/mmeshcher/storefront/internal/notify"
	"github.com/mmeshcher/storefront/internal/session"
	"github.com/mmeshcher/storefront/internal/validation"
)

type stubBackend struct {
	mu       sync.Mutex
	placed   []api.OrderRequest
	created  []api.OrderRequest
	verified []api.VerifyPaymentRequest

	placeErr  error
	createErr error
	verifyErr error
	order     model.GatewayOrder

	// block, если задан, удерживает PlaceOrder до закрытия канала.
	block       chan struct{}
	// verifyBlock так же удерживает VerifyGatewayPayment.
	verifyBlock chan struct{}
}

func (b *stubBackend) PlaceOrder(ctx context.Context, req api.OrderRequest) error {
	if b.block != nil {
		<-b.block
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.placed = append(b.placed, req)
	return b.placeErr
}

func (b *stubBackend) CreateGatewayOrder(ctx context.Context, req api.OrderRequest) (*model.GatewayOrder, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.created = append(b.created, req)
	if b.createErr != nil {
		return nil, b.createErr
	}
	order := b.order
	return &order, nil
}

func (b *stubBackend) VerifyGatewayPayment(ctx context.Context, req api.VerifyPaymentRequest) error {
	if b.verifyBlock != nil {
		<-b.verifyBlock
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.verified = append(b.verified, req)
	return b.verifyErr
}

type stubCart struct {
	mu    sync.Mutex
	items map[string]int
}

func (c *stubCart) Empty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items) == 0
}

func (c *stubCart) OrderItems() []model.OrderItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.OrderItem, 0, len(c.items))
	for id, q := range c.items {
		out = append(out, model.OrderItem{ProductID: id, Quantity: q})
	}
	return out
}

func (c *stubCart) Total(prices cart.PriceBook, fee model.Amount) model.Amount {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := fee
	for id, q := range c.items {
		if p, ok := prices.Price(id); ok {
			total += p * model.Amount(q)
		}
	}
	return total
}

func (c *stubCart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = map[string]int{}
}

func (c *stubCart) snapshot() map[string]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]int, len(c.items))
	for k, v := range c.items {
		out[k] = v
	}
	return out
}

type priceBook map[string]model.Amount

func (p priceBook) Price(id string) (model.Amount, bool) {
	v, ok := p[id]
	return v, ok
}

type stubSession struct {
	token       string
	loginPrompt []string
}

func (s *stubSession) Token() string { return s.token }

func (s *stubSession) RequireLogin(msg string) error {
	s.loginPrompt = append(s.loginPrompt, msg)
	return session.ErrUnauthenticated
}

type fixture struct {
	ctrl    *Controller
	backend *stubBackend
	gateway *Deferred
	cart    *stubCart
	session *stubSession
	nav     *navigation.Navigator
	feed    *notify.Feed
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		backend: &stubBackend{order: model.GatewayOrder{ID: "order_G1", Amount: 524800, Currency: "INR"}},
		gateway: NewDeferred(),
		cart:    &stubCart{items: map[string]int{"P1": 1}},
		session: &stubSession{token: "T"},
		nav:     navigation.New(nil, nil),
		feed:    notify.NewFeed(nil),
	}
	f.ctrl = NewController(
		f.backend, f.gateway, f.cart, priceBook{"P1": 4999}, f.session, f.nav, f.feed,
		validation.New(), Config{KeyID: "rzp_test", DeliveryFee: 249}, nil,
	)
	return f
}

func (f *fixture) lastToast(t *testing.T) notify.Toast {
	t.Helper()
	toasts := f.feed.Pending()
	require.NotEmpty(t, toasts)
	return toasts[len(toasts)-1]
}

var address = model.Address{
	FirstName:    "Asha",
	LastName:     "Rao",
	Email:        "asha@example.com",
	AddressLine1: "12 MG Road",
	City:         "Bengaluru",
	State:        "Karnataka",
	Pincode:      "560001",
	Country:      "India",
	Phone:        "+91 9876543210",
}

func TestSubmit_COD(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.ctrl.Submit(context.Background(), Request{Address: address, Method: "cod"}))

	require.Len(t, f.backend.placed, 1)
	assert.Equal(t, model.Amount(5248), f.backend.placed[0].Amount)
	assert.Equal(t, []model.OrderItem{{ProductID: "P1", Quantity: 1}}, f.backend.placed[0].Items)
	assert.Empty(t, f.cart.snapshot())
	assert.Equal(t, navigation.RouteOrders, f.nav.Current())
	assert.Equal(t, "Order placed successfully!", f.lastToast(t).Message)
	assert.Equal(t, StateIdle, f.ctrl.State())
}

func TestSubmit_CODFailureKeepsCart(t *testing.T) {
	f := newFixture(t)
	f.backend.placeErr = &api.Error{Kind: api.KindBusiness, Message: "Out of stock"}

	err := f.ctrl.Submit(context.Background(), Request{Address: address, Method: "cod"})

	assert.ErrorIs(t, err, api.ErrBusiness)
	assert.Equal(t, map[string]int{"P1": 1}, f.cart.snapshot())
	assert.Equal(t, "Out of stock", f.lastToast(t).Message)
	assert.Equal(t, StateIdle, f.ctrl.State())

	f.backend.placeErr = nil
	require.NoError(t, f.ctrl.Submit(context.Background(), Request{Address: address, Method: "cod"}))
	assert.Len(t, f.backend.placed, 2)
}

func TestSubmit_Gateway(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.ctrl.Submit(context.Background(), Request{Address: address, Method: "gateway"}))

	require.Len(t, f.backend.created, 1)
	assert.Equal(t, model.Amount(5248), f.backend.created[0].Amount)
	assert.Equal(t, StateAwaitingWidget, f.ctrl.State())

	opts, ok := f.gateway.Pending()
	require.True(t, ok)
	assert.Equal(t, "rzp_test", opts.Key)
	assert.Equal(t, "order_G1", opts.OrderID)
	assert.Equal(t, "INR", opts.Currency)
	assert.Equal(t, model.Amount(524800), opts.Amount)
	assert.Equal(t, "IMPACTPURE Order", opts.Name)

	require.NoError(t, f.gateway.Complete(PaymentResult{OrderID: "order_G1", PaymentID: "pay_1", Signature: "sig"}))

	require.Len(t, f.backend.verified, 1)
	v := f.backend.verified[0]
	assert.Equal(t, "order_G1", v.GatewayOrderID)
	assert.Equal(t, "pay_1", v.GatewayPaymentID)
	assert.Equal(t, "sig", v.GatewaySignature)
	assert.Equal(t, model.Amount(5248), v.Amount)
	assert.Equal(t, address, v.Address)
	assert.Empty(t, f.cart.snapshot())
	assert.Equal(t, navigation.RouteOrders, f.nav.Current())
	assert.Equal(t, "Payment Successful! Order Placed.", f.lastToast(t).Message)
	assert.Equal(t, StateIdle, f.ctrl.State())
}

func TestSubmit_GatewayDismissed(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.ctrl.Submit(context.Background(), Request{Address: address, Method: "razorpay"}))
	require.NoError(t, f.gateway.Dismiss())

	assert.Empty(t, f.backend.verified)
	assert.Equal(t, map[string]int{"P1": 1}, f.cart.snapshot())
	assert.Equal(t, StateIdle, f.ctrl.State())

	require.NoError(t, f.ctrl.Submit(context.Background(), Request{Address: address, Method: "gateway"}))
	assert.Len(t, f.backend.created, 2)
}

func TestSubmit_GatewayVerifyFails(t *testing.T) {
	f := newFixture(t)
	f.backend.verifyErr = &api.Error{Kind: api.KindBusiness, Message: "Signature mismatch"}

	require.NoError(t, f.ctrl.Submit(context.Background(), Request{Address: address, Method: "gateway"}))
	require.NoError(t, f.gateway.Complete(PaymentResult{OrderID: "order_G1", PaymentID: "pay_1", Signature: "bad"}))

	assert.Equal(t, map[string]int{"P1": 1}, f.cart.snapshot())
	assert.Equal(t, "Payment verification failed. Try again.", f.lastToast(t).Message)
	assert.Equal(t, StateIdle, f.ctrl.State())
}

func TestSubmit_GatewayCreateFails(t *testing.T) {
	f := newFixture(t)
	f.backend.createErr = &api.Error{Kind: api.KindNetwork, Err: errors.New("dial")}

	err := f.ctrl.Submit(context.Background(), Request{Address: address, Method: "gateway"})

	assert.ErrorIs(t, err, api.ErrNetwork)
	_, ok := f.gateway.Pending()
	assert.False(t, ok)
	assert.Equal(t, StateIdle, f.ctrl.State())
}

func TestSubmit_RefusedWhileInFlight(t *testing.T) {
	f := newFixture(t)
	f.backend.block = make(chan struct{})

	done := make(chan error, 1)
	go func() {
		done <- f.ctrl.Submit(context.Background(), Request{Address: address, Method: "cod"})
	}()

	require.Eventually(t, func() bool { return f.ctrl.Processing() }, timeout, tick)

	err := f.ctrl.Submit(context.Background(), Request{Address: address, Method: "cod"})
	assert.ErrorIs(t, err, ErrInFlight)

	close(f.backend.block)
	require.NoError(t, <-done)
	assert.Len(t, f.backend.placed, 1)
}

func TestSubmit_RefusedWhileAwaitingWidget(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.ctrl.Submit(context.Background(), Request{Address: address, Method: "gateway"}))
	err := f.ctrl.Submit(context.Background(), Request{Address: address, Method: "cod"})

	assert.ErrorIs(t, err, ErrInFlight)
	assert.Empty(t, f.backend.placed)
}

func TestSubmit_Preconditions(t *testing.T) {
	tests := []struct {
		name    string
		prepare func(f *fixture)
		req     Request
		wantErr error
	}{
		{
			name:    "anonymous",
			prepare: func(f *fixture) { f.session.token = "" },
			req:     Request{Address: address, Method: "cod"},
			wantErr: session.ErrUnauthenticated,
		},
		{
			name:    "empty cart",
			prepare: func(f *fixture) { f.cart.Clear() },
			req:     Request{Address: address, Method: "cod"},
			wantErr: ErrEmptyCart,
		},
		{
			name:    "unknown method",
			req:     Request{Address: address, Method: "cheque"},
			wantErr: ErrInvalidMethod,
		},
		{
			name:    "missing city",
			req:     Request{Address: func() model.Address { a := address; a.City = ""; return a }(), Method: "cod"},
			wantErr: validation.ErrInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			if tt.prepare != nil {
				tt.prepare(f)
			}

			err := f.ctrl.Submit(context.Background(), tt.req)

			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, f.backend.placed)
			assert.Empty(t, f.backend.created)
			assert.Equal(t, StateIdle, f.ctrl.State())
		})
	}
}

func TestDeferred_NoPending(t *testing.T) {
	d := NewDeferred()

	assert.ErrorIs(t, d.Complete(PaymentResult{}), ErrNoPendingPayment)
	assert.ErrorIs(t, d.Dismiss(), ErrNoPendingPayment)
}

func TestSessionEnded_DiscardsPendingWidget(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.ctrl.Submit(context.Background(), Request{Address: address, Method: "gateway"}))
	f.ctrl.SessionEnded()

	assert.Equal(t, StateIdle, f.ctrl.State())
	_, ok := f.gateway.Pending()
	assert.False(t, ok)
	assert.ErrorIs(t, f.gateway.Complete(PaymentResult{OrderID: "order_G1"}), ErrNoPendingPayment)
	assert.Empty(t, f.backend.verified)

	require.NoError(t, f.ctrl.Submit(context.Background(), Request{Address: address, Method: "cod"}))
	assert.Len(t, f.backend.placed, 1)
}

func TestSessionEnded_DuringCOD(t *testing.T) {
	f := newFixture(t)
	f.backend.block = make(chan struct{})

	done := make(chan error, 1)
	go func() {
		done <- f.ctrl.Submit(context.Background(), Request{Address: address, Method: "cod"})
	}()
	require.Eventually(t, f.ctrl.Processing, timeout, tick)

	f.ctrl.SessionEnded()
	close(f.backend.block)

	assert.ErrorIs(t, <-done, session.ErrUnauthenticated)
	assert.Equal(t, map[string]int{"P1": 1}, f.cart.snapshot())
	assert.NotEqual(t, navigation.RouteOrders, f.nav.Current())
	assert.Empty(t, f.feed.Pending())
	assert.Equal(t, StateIdle, f.ctrl.State())
}

func TestSessionEnded_DuringVerify(t *testing.T) {
	f := newFixture(t)
	f.backend.verifyBlock = make(chan struct{})

	require.NoError(t, f.ctrl.Submit(context.Background(), Request{Address: address, Method: "gateway"}))

	done := make(chan error, 1)
	go func() {
		done <- f.gateway.Complete(PaymentResult{OrderID: "order_G1", PaymentID: "pay_1", Signature: "sig"})
	}()
	require.Eventually(t, func() bool { return f.ctrl.State() == StateInFlight }, timeout, tick)

	f.ctrl.SessionEnded()
	close(f.backend.verifyBlock)
	require.NoError(t, <-done)

	assert.Equal(t, map[string]int{"P1": 1}, f.cart.snapshot())
	assert.NotEqual(t, navigation.RouteOrders, f.nav.Current())
	assert.Empty(t, f.feed.Pending())
	assert.Equal(t, StateIdle, f.ctrl.State())
}

func TestDeferred_Discard(t *testing.T) {
	d := NewDeferred()
	called := false
	require.NoError(t, d.Open(context.Background(), WidgetOptions{
		OrderID:   "order_G1",
		Handler:   func(PaymentResult) { called = true },
		OnDismiss: func() { called = true },
	}))

	d.Discard()

	_, ok := d.Pending()
	assert.False(t, ok)
	assert.ErrorIs(t, d.Dismiss(), ErrNoPendingPayment)
	assert.False(t, called)
}
