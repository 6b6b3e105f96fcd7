package api

import (
	"context"
	"net/http"

	"github.com/mmeshcher/storefront/internal/model"
)

// Пути API бэкенда.
const (
	PathProductList      = "/api/product/list"
	PathLogin            = "/api/user/login"
	PathRegister         = "/api/user/register"
	PathProfile          = "/api/user/profile"
	PathSendOTP          = "/api/user/send-otp"
	PathVerifyOTP        = "/api/user/verify-otp"
	PathResetPassword    = "/api/user/reset-password"
	PathCartGet          = "/api/cart/get"
	PathCartAdd          = "/api/cart/add"
	PathCartUpdate       = "/api/cart/update"
	PathCartRemove       = "/api/cart/remove"
	PathOrderPlace       = "/api/order/place"
	PathOrderGateway     = "/api/order/razorpay"
	PathOrderVerify      = "/api/order/verifyRazorpay"
	PathUserOrders       = "/api/order/userorders"
	PathNewsletterSignup = "/api/newsletter/subscribe"
)

// Credentials содержит тело запроса входа.
type Credentials struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

// RegisterRequest содержит тело запроса регистрации.
type RegisterRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	PhoneNumber string `json:"phoneNumber"`
}

// OrderRequest содержит тело запроса создания заказа.
type OrderRequest struct {
	Address model.Address     `json:"address"`
	Items   []model.OrderItem `json:"items"`
	Amount  model.Amount      `json:"amount"`
}

// VerifyPaymentRequest содержит тело запроса подтверждения оплаты через шлюз.
type VerifyPaymentRequest struct {
	GatewayOrderID   string            `json:"razorpay_order_id"`
	GatewayPaymentID string            `json:"razorpay_payment_id"`
	GatewaySignature string            `json:"razorpay_signature"`
	Items            []model.OrderItem `json:"items"`
	Amount           model.Amount      `json:"amount"`
	Address          model.Address     `json:"address"`
}

type productsResponse struct {
	Products []model.Product `json:"products"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

type profileResponse struct {
	User model.User `json:"user"`
}

type cartResponse struct {
	CartData map[string]float64 `json:"cartData"`
}

type gatewayOrderResponse struct {
	Order model.GatewayOrder `json:"order"`
}

type ordersResponse struct {
	Orders []model.Order `json:"orders"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type cartItemRequest struct {
	ItemID   string `json:"itemId"`
	Size     string `json:"size,omitempty"`
	Quantity *int   `json:"quantity,omitempty"`
}

// ListProducts возвращает список товаров в порядке сервера.
func (c *Client) ListProducts(ctx context.Context) ([]model.Product, error) {
	var resp productsResponse
	if err := c.Do(ctx, http.MethodGet, PathProductList, false, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Products, nil
}

// Login выполняет вход и возвращает токен сессии.
func (c *Client) Login(ctx context.Context, creds Credentials) (string, error) {
	var resp tokenResponse
	if err := c.Do(ctx, http.MethodPost, PathLogin, false, creds, &resp); err != nil {
		return "", err
	}
	return resp.Token, nil
}

// Register регистрирует пользователя и возвращает токен сессии.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (string, error) {
	var resp tokenResponse
	if err := c.Do(ctx, http.MethodPost, PathRegister, false, req, &resp); err != nil {
		return "", err
	}
	return resp.Token, nil
}

// Profile возвращает профиль текущего пользователя.
func (c *Client) Profile(ctx context.Context) (*model.User, error) {
	var resp profileResponse
	if err := c.Do(ctx, http.MethodGet, PathProfile, true, nil, &resp); err != nil {
		return nil, err
	}
	return &resp.User, nil
}

// SendOTP запрашивает отправку одноразового кода на телефон.
func (c *Client) SendOTP(ctx context.Context, phone string) error {
	return c.Do(ctx, http.MethodPost, PathSendOTP, false, map[string]string{"phoneNumber": phone}, nil)
}

// VerifyOTP проверяет одноразовый код.
func (c *Client) VerifyOTP(ctx context.Context, phone, otp string) error {
	return c.Do(ctx, http.MethodPost, PathVerifyOTP, false, map[string]string{"phoneNumber": phone, "otp": otp}, nil)
}

// ResetPassword устанавливает новый пароль для подтверждённого телефона.
func (c *Client) ResetPassword(ctx context.Context, phone, newPassword string) error {
	return c.Do(ctx, http.MethodPost, PathResetPassword, false,
		map[string]string{"phoneNumber": phone, "newPassword": newPassword}, nil)
}

// GetCart возвращает корзину пользователя как есть, без фильтрации.
func (c *Client) GetCart(ctx context.Context) (map[string]float64, error) {
	var resp cartResponse
	if err := c.Do(ctx, http.MethodPost, PathCartGet, true, struct{}{}, &resp); err != nil {
		return nil, err
	}
	return resp.CartData, nil
}

// AddToCart увеличивает количество товара в корзине на единицу.
func (c *Client) AddToCart(ctx context.Context, itemID string) error {
	return c.Do(ctx, http.MethodPost, PathCartAdd, true, cartItemRequest{ItemID: itemID}, nil)
}

// UpdateCart устанавливает количество товара в корзине.
func (c *Client) UpdateCart(ctx context.Context, itemID string, quantity int) error {
	return c.Do(ctx, http.MethodPost, PathCartUpdate, true, cartItemRequest{ItemID: itemID, Quantity: &quantity}, nil)
}

// RemoveFromCart удаляет товар из корзины.
func (c *Client) RemoveFromCart(ctx context.Context, itemID string) error {
	return c.Do(ctx, http.MethodPost, PathCartRemove, true, cartItemRequest{ItemID: itemID}, nil)
}

// PlaceOrder оформляет заказ с оплатой при получении.
func (c *Client) PlaceOrder(ctx context.Context, req OrderRequest) error {
	return c.Do(ctx, http.MethodPost, PathOrderPlace, true, req, nil)
}

// CreateGatewayOrder создаёт заказ в платёжном шлюзе.
func (c *Client) CreateGatewayOrder(ctx context.Context, req OrderRequest) (*model.GatewayOrder, error) {
	var resp gatewayOrderResponse
	if err := c.Do(ctx, http.MethodPost, PathOrderGateway, true, req, &resp); err != nil {
		return nil, err
	}
	return &resp.Order, nil
}

// VerifyGatewayPayment подтверждает оплату и фиксирует заказ.
func (c *Client) VerifyGatewayPayment(ctx context.Context, req VerifyPaymentRequest) error {
	return c.Do(ctx, http.MethodPost, PathOrderVerify, true, req, nil)
}

// UserOrders возвращает заказы текущего пользователя.
func (c *Client) UserOrders(ctx context.Context) ([]model.Order, error) {
	var resp ordersResponse
	if err := c.Do(ctx, http.MethodPost, PathUserOrders, true, struct{}{}, &resp); err != nil {
		return nil, err
	}
	return resp.Orders, nil
}

// SubscribeNewsletter подписывает адрес на рассылку и возвращает сообщение сервера.
func (c *Client) SubscribeNewsletter(ctx context.Context, email string) (string, error) {
	var resp messageResponse
	if err := c.Do(ctx, http.MethodPost, PathNewsletterSignup, false, map[string]string{"email": email}, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}
