package handler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	custommiddleware "github.com/mmeshcher/storefront/internal/middleware"
	"github.com/mmeshcher/storefront/internal/navigation"
)

const viewPrefix = "/view"

// SetupRouter настраивает HTTP-маршруты и middleware сервера витрины.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	requireSession := custommiddleware.RequireSession(h.app.Session, navigation.RouteLogin, h.denied)

	r.Route(viewPrefix, func(r chi.Router) {
		r.Get("/", h.Home)
		r.Get("/product/{productID}", h.Product)
		r.Get("/cart", h.Cart)
		r.Get("/login", h.Login)
		r.Get("/{page}", h.Static)

		r.Group(func(r chi.Router) {
			r.Use(requireSession)

			r.Get("/orders", h.Orders)
			r.Get("/place-order", h.PlaceOrder)
		})
	})

	r.Get("/toasts", h.Toasts)

	r.Route("/actions", func(r chi.Router) {
		r.Post("/cart/add", h.AddToCart)
		r.Post("/cart/update", h.UpdateCart)
		r.Post("/cart/remove", h.RemoveFromCart)

		r.Post("/login", h.SignIn)
		r.Post("/logout", h.SignOut)
		r.Post("/otp/begin", h.BeginCeremony)
		r.Post("/otp/send", h.SendOTP)
		r.Post("/otp/verify", h.VerifyOTP)
		r.Post("/register", h.Register)
		r.Post("/reset-password", h.ResetPassword)

		r.Post("/newsletter", h.Subscribe)
		r.Post("/contact", h.Contact)
		r.Post("/open", h.OpenExternal)

		r.Group(func(r chi.Router) {
			r.Use(requireSession)

			r.Get("/profile", h.Profile)
			r.Post("/checkout", h.Checkout)
			r.Post("/checkout/payment", h.CompletePayment)
			r.Post("/checkout/dismiss", h.DismissPayment)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}

// denied запоминает запрошенный маршрут для возврата после входа и переводит на вход.
func (h *Handler) denied(r *http.Request) {
	route := strings.TrimPrefix(r.URL.Path, viewPrefix)
	if navigation.IsKnownRoute(route) {
		h.app.Nav.SetReturnTo(route)
	} else {
		h.app.Nav.SetReturnTo(h.app.Nav.Current())
	}
	h.app.Nav.Navigate(navigation.RouteLogin)
}
