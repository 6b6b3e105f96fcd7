package handler

import (
	"net/http"

	"github.com/mmeshcher/storefront/internal/auth"
	"github.com/mmeshcher/storefront/internal/checkout"
	"github.com/mmeshcher/storefront/internal/contact"
	"github.com/mmeshcher/storefront/internal/model"
	"github.com/mmeshcher/storefront/internal/session"
)

type cartItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type loginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type otpRequest struct {
	Mode  auth.Mode `json:"mode,omitempty"`
	Phone string    `json:"phone"`
	OTP   string    `json:"otp,omitempty"`
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
}

type resetRequest struct {
	Phone       string `json:"phone"`
	NewPassword string `json:"newPassword"`
}

type checkoutRequest struct {
	Address model.Address `json:"address"`
	Method  string        `json:"method"`
}

type newsletterRequest struct {
	Email string `json:"email"`
}

type externalRequest struct {
	URL string `json:"url"`
}

func (h *Handler) badRequest(w http.ResponseWriter) {
	http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
}

// AddToCart добавляет единицу товара в корзину.
func (h *Handler) AddToCart(w http.ResponseWriter, r *http.Request) {
	var req cartItemRequest
	if err := decode(r, &req); err != nil || req.ProductID == "" {
		h.badRequest(w)
		return
	}
	h.respond(w, h.app.Cart.Add(r.Context(), req.ProductID))
}

// UpdateCart устанавливает количество товара.
func (h *Handler) UpdateCart(w http.ResponseWriter, r *http.Request) {
	var req cartItemRequest
	if err := decode(r, &req); err != nil || req.ProductID == "" {
		h.badRequest(w)
		return
	}
	h.respond(w, h.app.Cart.SetQuantity(r.Context(), req.ProductID, req.Quantity))
}

// RemoveFromCart удаляет товар из корзины.
func (h *Handler) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	var req cartItemRequest
	if err := decode(r, &req); err != nil || req.ProductID == "" {
		h.badRequest(w)
		return
	}
	h.respond(w, h.app.Cart.Remove(r.Context(), req.ProductID))
}

// SignIn выполняет вход по паролю.
func (h *Handler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(r, &req); err != nil {
		h.badRequest(w)
		return
	}
	h.respond(w, h.app.Auth.Login(r.Context(), req.Identifier, req.Password))
}

// SignOut завершает сессию.
func (h *Handler) SignOut(w http.ResponseWriter, r *http.Request) {
	h.app.Session.SignOut(r.Context())
	h.respond(w, nil)
}

// BeginCeremony начинает регистрацию или сброс пароля заново.
func (h *Handler) BeginCeremony(w http.ResponseWriter, r *http.Request) {
	var req otpRequest
	if err := decode(r, &req); err != nil {
		h.badRequest(w)
		return
	}
	switch req.Mode {
	case auth.ModeRegister, auth.ModeReset:
	default:
		h.badRequest(w)
		return
	}
	h.app.Auth.Begin(req.Mode)
	h.respond(w, nil)
}

// SendOTP отправляет одноразовый код.
func (h *Handler) SendOTP(w http.ResponseWriter, r *http.Request) {
	var req otpRequest
	if err := decode(r, &req); err != nil || req.Phone == "" {
		h.badRequest(w)
		return
	}
	h.respond(w, h.app.Auth.SendOTP(r.Context(), req.Phone))
}

// VerifyOTP проверяет одноразовый код.
func (h *Handler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req otpRequest
	if err := decode(r, &req); err != nil || req.Phone == "" || req.OTP == "" {
		h.badRequest(w)
		return
	}
	h.respond(w, h.app.Auth.VerifyOTP(r.Context(), req.Phone, req.OTP))
}

// Register завершает регистрацию.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decode(r, &req); err != nil {
		h.badRequest(w)
		return
	}
	p := session.Profile{Name: req.Name, Email: req.Email, Password: req.Password}
	h.respond(w, h.app.Auth.Register(r.Context(), p, req.Phone))
}

// ResetPassword завершает сброс пароля.
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := decode(r, &req); err != nil {
		h.badRequest(w)
		return
	}
	h.respond(w, h.app.Auth.ResetPassword(r.Context(), req.Phone, req.NewPassword))
}

// Profile возвращает профиль пользователя.
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	user, err := h.app.Session.Profile(r.Context())
	if err != nil {
		h.respond(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, user)
}

// Checkout оформляет заказ.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := decode(r, &req); err != nil {
		h.badRequest(w)
		return
	}
	h.respond(w, h.app.Checkout.Submit(r.Context(), checkout.Request{Address: req.Address, Method: req.Method}))
}

func (h *Handler) deferred(w http.ResponseWriter) (*checkout.Deferred, bool) {
	d, ok := h.app.Gateway.(*checkout.Deferred)
	if !ok {
		http.Error(w, http.StatusText(http.StatusNotImplemented), http.StatusNotImplemented)
	}
	return d, ok
}

// CompletePayment передаёт результат оплаты открытому окну шлюза.
func (h *Handler) CompletePayment(w http.ResponseWriter, r *http.Request) {
	d, ok := h.deferred(w)
	if !ok {
		return
	}
	var res checkout.PaymentResult
	if err := decode(r, &res); err != nil || res.OrderID == "" {
		h.badRequest(w)
		return
	}
	h.respond(w, d.Complete(res))
}

// DismissPayment закрывает окно шлюза без оплаты.
func (h *Handler) DismissPayment(w http.ResponseWriter, r *http.Request) {
	d, ok := h.deferred(w)
	if !ok {
		return
	}
	h.respond(w, d.Dismiss())
}

// Subscribe подписывает адрес на рассылку.
func (h *Handler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req newsletterRequest
	if err := decode(r, &req); err != nil {
		h.badRequest(w)
		return
	}
	h.respond(w, h.app.Contact.Subscribe(r.Context(), req.Email))
}

// Contact отправляет форму обратной связи.
func (h *Handler) Contact(w http.ResponseWriter, r *http.Request) {
	var req contact.Message
	if err := decode(r, &req); err != nil {
		h.badRequest(w)
		return
	}
	h.respond(w, h.app.Contact.SubmitContactForm(r.Context(), req))
}

// OpenExternal открывает внешнюю ссылку.
func (h *Handler) OpenExternal(w http.ResponseWriter, r *http.Request) {
	var req externalRequest
	if err := decode(r, &req); err != nil || req.URL == "" {
		h.badRequest(w)
		return
	}
	h.respond(w, h.app.Nav.OpenExternal(req.URL))
}
