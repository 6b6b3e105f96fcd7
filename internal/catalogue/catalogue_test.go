package catalogue

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/storefront/internal/api"
	"github.com/mmeshcher/storefront/internal/model"
	"github.com/mmeshcher/storefront/internal/notify"
)

type stubBackend struct {
	products []model.Product
	err      error
	calls    int
}

func (b *stubBackend) ListProducts(ctx context.Context) ([]model.Product, error) {
	b.calls++
	return b.products, b.err
}

func products(n int) []model.Product {
	res := make([]model.Product, 0, n)
	for i := 1; i <= n; i++ {
		res = append(res, model.Product{ID: fmt.Sprintf("P%d", i), Price: model.Amount(i * 100)})
	}
	return res
}

func TestLoad_ReversesAndIndexes(t *testing.T) {
	b := &stubBackend{products: products(10)}
	s := NewStore(b, notify.NewFeed(nil), nil)

	require.NoError(t, s.Load(context.Background()))
	require.True(t, s.Loaded())

	all := s.Products()
	require.Len(t, all, 10)
	assert.Equal(t, "P10", all[0].ID)
	assert.Equal(t, "P1", all[9].ID)

	latest := s.Latest()
	require.Len(t, latest, LatestCount)
	assert.Equal(t, "P10", latest[0].ID)
	assert.Equal(t, "P3", latest[7].ID)

	p, ok := s.FindByID("P4")
	require.True(t, ok)
	assert.EqualValues(t, 400, p.Price)

	_, ok = s.Price("missing")
	assert.False(t, ok)

	assert.Equal(t, "P1", b.products[0].ID, "backend slice must not be mutated")
}

func TestLoad_OnlyOnce(t *testing.T) {
	b := &stubBackend{products: products(2)}
	s := NewStore(b, notify.NewFeed(nil), nil)

	require.NoError(t, s.Load(context.Background()))
	require.NoError(t, s.Load(context.Background()))
	assert.Equal(t, 1, b.calls)
}

func TestLoad_FailureAllowsRetry(t *testing.T) {
	b := &stubBackend{err: &api.Error{Kind: api.KindBusiness, Message: "maintenance"}}
	feed := notify.NewFeed(nil)
	s := NewStore(b, feed, nil)

	require.Error(t, s.Load(context.Background()))
	assert.False(t, s.Loaded())
	toasts := feed.Drain()
	require.Len(t, toasts, 1)
	assert.Equal(t, "maintenance", toasts[0].Message)

	b.err = nil
	b.products = products(3)
	require.NoError(t, s.Load(context.Background()))
	assert.Len(t, s.Products(), 3)
	assert.Len(t, s.Latest(), 3)
}

type blockingBackend struct {
	release chan struct{}
	calls   atomic.Int32
}

func (b *blockingBackend) ListProducts(ctx context.Context) ([]model.Product, error) {
	b.calls.Add(1)
	<-b.release
	return products(4), nil
}

func TestLoad_ConcurrentCallerWaitsForInFlightLoad(t *testing.T) {
	b := &blockingBackend{release: make(chan struct{})}
	s := NewStore(b, notify.NewFeed(nil), nil)

	var wg sync.WaitGroup
	results := make([]bool, 2)
	errs := make([]error, 2)

	wg.Add(1)
	go func() {
		defer wg.Done()
		errs[0] = s.Load(context.Background())
		results[0] = s.Loaded()
	}()

	require.Eventually(t, s.Loading, time.Second, time.Millisecond)

	second := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(second)
		errs[1] = s.Load(context.Background())
		results[1] = s.Loaded()
	}()

	select {
	case <-second:
		t.Fatal("second Load returned before the in-flight load finished")
	case <-time.After(20 * time.Millisecond):
	}

	close(b.release)
	wg.Wait()

	assert.NoError(t, errs[0])
	assert.NoError(t, errs[1])
	assert.Equal(t, []bool{true, true}, results)
	assert.EqualValues(t, 1, b.calls.Load())
	assert.Len(t, s.Products(), 4)
}

func TestLoad_CallerContextCancelled(t *testing.T) {
	b := &blockingBackend{release: make(chan struct{})}
	s := NewStore(b, notify.NewFeed(nil), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Load(ctx) }()

	require.Eventually(t, s.Loading, time.Second, time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	close(b.release)
	assert.Eventually(t, s.Loaded, time.Second, time.Millisecond)
}
