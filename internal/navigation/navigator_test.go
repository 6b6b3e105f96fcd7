package navigation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingOpener struct {
	urls []string
	err  error
}

func (o *recordingOpener) Open(url string) error {
	o.urls = append(o.urls, url)
	return o.err
}

func TestNavigate_PushAndScroll(t *testing.T) {
	n := New(nil, nil)

	var changes []Change
	n.OnChange(func(c Change) { changes = append(changes, c) })

	n.Navigate(RouteCart)
	n.Navigate(RoutePlaceOrder)

	assert.Equal(t, RoutePlaceOrder, n.Current())
	assert.Equal(t, []string{RouteHome, RouteCart, RoutePlaceOrder}, n.History())
	assert.Equal(t, 2, n.ScrollResets())
	require.Len(t, changes, 2)
	assert.Equal(t, Change{From: RouteCart, To: RoutePlaceOrder}, changes[1])
}

func TestNavigate_SamePathReplaces(t *testing.T) {
	n := New(nil, nil)
	n.Navigate(RouteOrders)
	n.Navigate(RouteOrders)

	assert.Equal(t, []string{RouteHome, RouteOrders}, n.History())
	assert.Equal(t, 1, n.ScrollResets())
}

func TestNavigate_ExplicitReplace(t *testing.T) {
	n := New(nil, nil)
	n.Navigate(RouteLogin, Replace())

	assert.Equal(t, []string{RouteLogin}, n.History())
	assert.Equal(t, 1, n.ScrollResets())
}

func TestReturnTo(t *testing.T) {
	n := New(nil, nil)
	assert.Equal(t, RouteHome, n.TakeReturnTo())

	n.SetReturnTo(RouteCart)
	assert.Equal(t, RouteCart, n.TakeReturnTo())
	assert.Equal(t, RouteHome, n.TakeReturnTo())

	n.SetReturnTo(RouteLogin)
	assert.Equal(t, RouteHome, n.TakeReturnTo())
}

func TestOpenExternal(t *testing.T) {
	o := &recordingOpener{}
	n := New(nil, o)

	require.NoError(t, n.OpenExternal("https://maps.example.com"))
	assert.Equal(t, []string{"https://maps.example.com"}, o.urls)
	assert.Equal(t, RouteHome, n.Current())

	o.err = errors.New("blocked")
	assert.Error(t, n.OpenExternal("https://x.example.com"))

	assert.NoError(t, New(nil, nil).OpenExternal("https://x.example.com"))
}

func TestRoutes(t *testing.T) {
	tests := []struct {
		path  string
		known bool
	}{
		{path: "/", known: true},
		{path: "/termsandconditions", known: true},
		{path: "/product/67dd79e5366d9c007a9545a0", known: true},
		{path: "/product/", known: false},
		{path: "/product/a/b", known: false},
		{path: "/admin", known: false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.known, IsKnownRoute(tt.path))
		})
	}

	id, ok := ProductIDFromRoute(ProductRoute("P1"))
	assert.True(t, ok)
	assert.Equal(t, "P1", id)
}

func TestOnChange_RegisteredDuringNavigation(t *testing.T) {
	n := New(nil, nil)

	var outer, inner []string
	n.OnChange(func(c Change) {
		outer = append(outer, c.To)
		if len(outer) == 1 {
			n.OnChange(func(c Change) { inner = append(inner, c.To) })
		}
	})

	n.Navigate(RouteCart)
	n.Navigate(RouteOrders)

	assert.Equal(t, []string{RouteCart, RouteOrders}, outer)
	assert.Equal(t, []string{RouteOrders}, inner)
}
