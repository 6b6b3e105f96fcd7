// Package checkout превращает непустую корзину и проверенный адрес ровно в один заказ
// с оплатой при получении или через платёжный шлюз.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/mmeshcher/storefront/internal/api"
	"github.com/mmeshcher/storefront/internal/cart"
	"github.com/mmeshcher/storefront/internal/model"
	"github.com/mmeshcher/storefront/internal/navigation"
	"github.com/mmeshcher/storefront/internal/notify"
	"github.com/mmeshcher/storefront/internal/session"
	"github.com/mmeshcher/storefront/internal/validation"
)

var (
	// ErrInFlight возвращается, пока предыдущее оформление не завершено.
	ErrInFlight = errors.New("checkout already in progress")
	// ErrEmptyCart возвращается при оформлении пустой корзины.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrInvalidMethod возвращается при неизвестном способе оплаты.
	ErrInvalidMethod = errors.New("invalid payment method")
)

// State задаёт этап оформления.
type State string

const (
	StateIdle           State = "idle"
	StateInFlight       State = "inFlight"
	StateAwaitingWidget State = "awaitingWidget"
)

// Backend описывает вызовы бэкенда заказов.
type Backend interface {
	PlaceOrder(ctx context.Context, req api.OrderRequest) error
	CreateGatewayOrder(ctx context.Context, req api.OrderRequest) (*model.GatewayOrder, error)
	VerifyGatewayPayment(ctx context.Context, req api.VerifyPaymentRequest) error
}

// Cart описывает корзину, из которой собирается заказ.
type Cart interface {
	Empty() bool
	OrderItems() []model.OrderItem
	Total(prices cart.PriceBook, deliveryFee model.Amount) model.Amount
	Clear()
}

// Session отдаёт текущий токен.
type Session interface {
	Token() string
	RequireLogin(msg string) error
}

// Navigator выполняет переход к списку заказов.
type Navigator interface {
	Navigate(path string, opts ...navigation.Option)
}

// Request содержит данные формы оформления.
type Request struct {
	Address model.Address
	Method  string
}

// Pending описывает собранный заказ, существующий только на время оформления.
type Pending struct {
	Method model.PaymentMethod `json:"method"`
	Items  []model.OrderItem   `json:"items"`
	Amount model.Amount        `json:"amount"`
}

// Config содержит параметры оформления.
type Config struct {
	KeyID       string
	DeliveryFee model.Amount
}

// Controller оформляет заказы и не допускает повторной отправки.
type Controller struct {
	backend   Backend
	gateway   Gateway
	cart      Cart
	prices    cart.PriceBook
	session   Session
	nav       Navigator
	notifier  notify.Notifier
	validator *validation.Validator
	logger    *zap.Logger
	cfg       Config

	mu      sync.Mutex
	state   State
	attempt uint64
}

// NewController создаёт контроллер оформления.
func NewController(
	backend Backend,
	gateway Gateway,
	c Cart,
	prices cart.PriceBook,
	sess Session,
	nav Navigator,
	notifier notify.Notifier,
	v *validation.Validator,
	cfg Config,
	logger *zap.Logger,
) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		backend:   backend,
		gateway:   gateway,
		cart:      c,
		prices:    prices,
		session:   sess,
		nav:       nav,
		notifier:  notifier,
		validator: v,
		logger:    logger,
		cfg:       cfg,
		state:     StateIdle,
	}
}

// State возвращает текущий этап оформления.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Processing сообщает, идёт ли оформление.
func (c *Controller) Processing() bool {
	return c.State() != StateIdle
}

// Submit проверяет форму, собирает заказ и запускает выбранный способ оплаты.
// Для шлюза возвращает управление после открытия окна; итог придёт в обработчик окна.
func (c *Controller) Submit(ctx context.Context, req Request) error {
	if c.session.Token() == "" {
		return c.session.RequireLogin("Please login to place an order")
	}

	method, err := model.ParsePaymentMethod(req.Method)
	if err != nil {
		c.notifier.Error("Please select a valid payment method.")
		return ErrInvalidMethod
	}
	if err := c.validator.Struct(req.Address); err != nil {
		c.notifier.Error(validation.FirstMessage(err))
		return err
	}

	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return ErrInFlight
	}
	if c.cart.Empty() {
		c.mu.Unlock()
		c.notifier.Error("Your cart is empty")
		return ErrEmptyCart
	}
	c.state = StateInFlight
	c.attempt++
	attempt := c.attempt
	c.mu.Unlock()

	p := Pending{
		Method: method,
		Items:  c.cart.OrderItems(),
		Amount: c.cart.Total(c.prices, c.cfg.DeliveryFee),
	}
	order := api.OrderRequest{Address: req.Address, Items: p.Items, Amount: p.Amount}

	c.logger.Info("checkout started",
		zap.String("method", string(method)),
		zap.Int("items", len(p.Items)),
		zap.Int64("amount", int64(p.Amount)),
	)

	if method == model.PaymentCOD {
		return c.placeCOD(ctx, attempt, order)
	}
	return c.startGateway(ctx, attempt, order)
}

func (c *Controller) placeCOD(ctx context.Context, attempt uint64, order api.OrderRequest) error {
	err := c.backend.PlaceOrder(ctx, order)
	if !c.settle(attempt) {
		return c.abandoned("place order", err)
	}
	if err != nil {
		c.fail("place order", err, "Something went wrong. Please try again.")
		return fmt.Errorf("place order: %w", err)
	}

	c.complete("Order placed successfully!")
	return nil
}

func (c *Controller) startGateway(ctx context.Context, attempt uint64, order api.OrderRequest) error {
	gw, err := c.backend.CreateGatewayOrder(ctx, order)
	if err != nil {
		if !c.settle(attempt) {
			return c.abandoned("create gateway order", err)
		}
		c.fail("create gateway order", err, "Failed to create Razorpay order.")
		return fmt.Errorf("create gateway order: %w", err)
	}

	c.mu.Lock()
	if c.attempt != attempt {
		c.mu.Unlock()
		return c.abandoned("create gateway order", nil)
	}
	c.state = StateAwaitingWidget
	c.mu.Unlock()

	// Обработчики окна срабатывают после возврата из Submit.
	detached := context.WithoutCancel(ctx)
	opts := WidgetOptions{
		Key:         c.cfg.KeyID,
		Amount:      gw.Amount,
		Currency:    gw.Currency,
		Name:        widgetName,
		Description: widgetDescription,
		OrderID:     gw.ID,
		Handler: func(res PaymentResult) {
			c.verify(detached, attempt, order, res)
		},
		OnDismiss: func() {
			if c.settle(attempt) {
				c.logger.Info("payment widget dismissed", zap.String("gateway_order", gw.ID))
				c.notifier.Info("Payment cancelled.")
			}
		},
	}

	if err := c.gateway.Open(ctx, opts); err != nil {
		c.settle(attempt)
		c.logger.Error("open payment widget", zap.Error(err))
		c.notifier.Error("Payment gateway is unavailable. Please try again.")
		return fmt.Errorf("open payment widget: %w", err)
	}
	return nil
}

func (c *Controller) verify(ctx context.Context, attempt uint64, order api.OrderRequest, res PaymentResult) {
	c.mu.Lock()
	if c.state != StateAwaitingWidget || c.attempt != attempt {
		c.mu.Unlock()
		return
	}
	c.state = StateInFlight
	c.mu.Unlock()

	err := c.backend.VerifyGatewayPayment(ctx, api.VerifyPaymentRequest{
		GatewayOrderID:   res.OrderID,
		GatewayPaymentID: res.PaymentID,
		GatewaySignature: res.Signature,
		Items:            order.Items,
		Amount:           order.Amount,
		Address:          order.Address,
	})
	if !c.settle(attempt) {
		_ = c.abandoned("verify payment", err)
		return
	}

	if err != nil {
		switch {
		case api.IsAuthExpired(err):
		case errors.Is(err, api.ErrBusiness):
			c.notifier.Error("Payment verification failed. Try again.")
		default:
			c.notifier.Error("Error verifying payment.")
		}
		c.logger.Warn("verify payment failed", zap.String("gateway_order", res.OrderID), zap.Error(err))
		return
	}

	c.complete("Payment Successful! Order Placed.")
}

func (c *Controller) complete(msg string) {
	c.cart.Clear()
	c.notifier.Success(msg)
	c.nav.Navigate(navigation.RouteOrders)
}

func (c *Controller) fail(op string, err error, fallback string) {
	c.logger.Warn("checkout failed", zap.String("op", op), zap.Error(err))
	if api.IsAuthExpired(err) {
		return
	}
	c.notifier.Error(api.UserMessage(err, fallback))
}

// abandoned завершает попытку, которую отменило окончание сессии: корзина
// и маршрут уже принадлежат другому состоянию, поэтому итог только журналируется.
func (c *Controller) abandoned(op string, err error) error {
	c.logger.Info("checkout abandoned after session end", zap.String("op", op), zap.Error(err))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w", op, session.ErrUnauthenticated)
}

// SessionStarted ничего не делает: оформление начинается только по запросу пользователя.
func (c *Controller) SessionStarted(context.Context) {}

// SessionEnded отменяет текущую попытку оформления и закрывает окно оплаты,
// чтобы его обработчики не сработали в чужой сессии.
func (c *Controller) SessionEnded() {
	c.mu.Lock()
	c.attempt++
	c.state = StateIdle
	c.mu.Unlock()

	if d, ok := c.gateway.(Discarder); ok {
		d.Discard()
	}
}

// settle снимает защиту от повторной отправки, если попытка всё ещё текущая.
func (c *Controller) settle(attempt uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.attempt != attempt || c.state == StateIdle {
		return false
	}
	c.state = StateIdle
	return true
}
