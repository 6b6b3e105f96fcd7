package handler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mmeshcher/storefront/internal/auth"
	"github.com/mmeshcher/storefront/internal/cart"
	"github.com/mmeshcher/storefront/internal/checkout"
	"github.com/mmeshcher/storefront/internal/model"
	"github.com/mmeshcher/storefront/internal/navigation"
	"github.com/mmeshcher/storefront/internal/orders"
	"github.com/mmeshcher/storefront/internal/storefront"
)

// view содержит общую часть любого представления.
type view struct {
	Route         string `json:"route"`
	Authenticated bool   `json:"authenticated"`
	CartCount     int    `json:"cartCount"`
	ScrollResets  int    `json:"scrollResets"`
}

type homeView struct {
	view
	Latest           []model.Product `json:"latest"`
	Loading          bool            `json:"loading"`
	DefaultProductID string          `json:"defaultProductId"`
}

type productView struct {
	view
	Product  model.Product `json:"product"`
	Price    string        `json:"price"`
	Quantity int           `json:"quantity"`
}

type cartView struct {
	view
	Lines   []cart.Line        `json:"lines"`
	Summary storefront.Summary `json:"summary"`
	Busy    bool               `json:"busy"`
}

type ordersView struct {
	view
	Items []orderItemView `json:"items"`
}

type orderItemView struct {
	model.OrderDisplayItem
	Tone         orders.Tone `json:"tone"`
	DisplayPrice string      `json:"displayPrice"`
}

type placeOrderView struct {
	view
	Summary    storefront.Summary      `json:"summary"`
	State      checkout.State          `json:"state"`
	Processing bool                    `json:"processing"`
	Widget     *checkout.WidgetOptions `json:"widget,omitempty"`
}

type loginView struct {
	view
	Auth auth.Status `json:"auth"`
}

func (h *Handler) base() view {
	return view{
		Route:         h.app.Nav.Current(),
		Authenticated: h.app.Session.Authenticated(),
		CartCount:     h.app.Cart.Count(),
		ScrollResets:  h.app.Nav.ScrollResets(),
	}
}

// enter переходит на маршрут представления.
func (h *Handler) enter(route string) {
	h.app.Nav.Navigate(route)
}

// Home отдаёт главную страницу: последние товары и кнопку «Заказать».
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	h.enter(navigation.RouteHome)
	h.writeJSON(w, http.StatusOK, homeView{
		view:             h.base(),
		Latest:           h.app.Catalogue.Latest(),
		Loading:          h.app.Catalogue.Loading(),
		DefaultProductID: h.app.Config.DefaultProductID,
	})
}

// Product отдаёт страницу товара.
func (h *Handler) Product(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "productID")
	p, ok := h.app.Catalogue.FindByID(id)
	if !ok {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		return
	}

	h.enter(navigation.ProductRoute(id))
	h.writeJSON(w, http.StatusOK, productView{
		view:     h.base(),
		Product:  p,
		Price:    model.FormatAmount(h.app.Config.Currency, p.Price),
		Quantity: h.app.Cart.Quantity(id),
	})
}

// Cart отдаёт корзину с итогами.
func (h *Handler) Cart(w http.ResponseWriter, r *http.Request) {
	h.enter(navigation.RouteCart)
	h.writeJSON(w, http.StatusOK, cartView{
		view:    h.base(),
		Lines:   h.app.Cart.Lines(h.app.Catalogue),
		Summary: h.app.CartSummary(),
		Busy:    h.app.Cart.Busy(),
	})
}

// Orders отдаёт список прошлых заказов, запрашивая его заново.
func (h *Handler) Orders(w http.ResponseWriter, r *http.Request) {
	h.enter(navigation.RouteOrders)

	items, err := h.app.Orders.Load(r.Context())
	if err != nil {
		h.respond(w, err)
		return
	}

	out := make([]orderItemView, 0, len(items))
	for _, it := range items {
		out = append(out, orderItemView{
			OrderDisplayItem: it,
			Tone:             orders.StatusTone(it.Status),
			DisplayPrice:     model.FormatAmount(h.app.Config.Currency, it.Price),
		})
	}
	h.writeJSON(w, http.StatusOK, ordersView{view: h.base(), Items: out})
}

// PlaceOrder отдаёт страницу оформления и открытое окно оплаты, если оно есть.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	h.enter(navigation.RoutePlaceOrder)

	v := placeOrderView{
		view:       h.base(),
		Summary:    h.app.CartSummary(),
		State:      h.app.Checkout.State(),
		Processing: h.app.Checkout.Processing(),
	}
	if d, ok := h.app.Gateway.(*checkout.Deferred); ok {
		if opts, open := d.Pending(); open {
			v.Widget = &opts
		}
	}
	h.writeJSON(w, http.StatusOK, v)
}

// Login отдаёт состояние формы входа и церемонии с кодом.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	h.enter(navigation.RouteLogin)
	h.writeJSON(w, http.StatusOK, loginView{view: h.base(), Auth: h.app.Auth.Status()})
}

// Static отдаёт страницы без состояния: о компании, контакты и правила.
func (h *Handler) Static(w http.ResponseWriter, r *http.Request) {
	route := "/" + strings.TrimPrefix(chi.URLParam(r, "page"), "/")
	if !navigation.IsKnownRoute(route) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		return
	}
	h.enter(route)
	h.writeJSON(w, http.StatusOK, h.base())
}
