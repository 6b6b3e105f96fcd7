// Package cart хранит корзину пользователя и синхронизирует её с сервером:
// изменения применяются оптимистично и откатываются при ошибке сервера.
package cart

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"go.uber.org/zap"

	"github.com/mmeshcher/storefront/internal/api"
	"github.com/mmeshcher/storefront/internal/model"
	"github.com/mmeshcher/storefront/internal/notify"
	"github.com/mmeshcher/storefront/internal/session"
)

// ErrInvalidQuantity возвращается при отрицательном количестве.
var ErrInvalidQuantity = errors.New("quantity must not be negative")

// Backend описывает вызовы бэкенда корзины.
type Backend interface {
	GetCart(ctx context.Context) (map[string]float64, error)
	AddToCart(ctx context.Context, itemID string) error
	UpdateCart(ctx context.Context, itemID string, quantity int) error
	RemoveFromCart(ctx context.Context, itemID string) error
}

// Session отдаёт токен и переводит анонимного пользователя на вход.
type Session interface {
	Token() string
	RequireLogin(msg string) error
}

// PriceBook разрешает цену товара по идентификатору.
type PriceBook interface {
	Price(id string) (model.Amount, bool)
}

// Line описывает строку корзины для отображения.
type Line struct {
	ProductID string       `json:"productId"`
	Quantity  int          `json:"quantity"`
	Known     bool         `json:"known"`
	Price     model.Amount `json:"price"`
	Total     model.Amount `json:"total"`
}

// Store является единственным источником истины для содержимого корзины.
type Store struct {
	backend  Backend
	session  Session
	notifier notify.Notifier
	logger   *zap.Logger

	mu       sync.Mutex
	items    Quantities
	epoch    uint64
	inflight int
	loading  bool
}

// NewStore создаёт пустую корзину.
func NewStore(backend Backend, sess Session, notifier notify.Notifier, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		backend:  backend,
		session:  sess,
		notifier: notifier,
		logger:   logger,
		items:    newQuantities(),
	}
}

// mutation описывает изменение одной позиции: новое значение, вызов сервера и тексты уведомлений.
type mutation struct {
	op      string
	id      string
	next    func(prev int) int
	call    func(ctx context.Context) error
	success string
	failure string
	anon    string
}

func (s *Store) mutate(ctx context.Context, m mutation) error {
	if s.session.Token() == "" {
		return s.session.RequireLogin(m.anon)
	}

	s.mu.Lock()
	prev := s.items.Get(m.id)
	s.items.Set(m.id, m.next(prev))
	epoch := s.epoch
	s.inflight++
	s.mu.Unlock()

	err := m.call(ctx)

	s.mu.Lock()
	s.inflight--
	rolledBack := false
	if err != nil && !api.IsAuthExpired(err) && s.epoch == epoch {
		s.items.Set(m.id, prev)
		rolledBack = true
	}
	s.mu.Unlock()

	if err != nil {
		if api.IsAuthExpired(err) {
			return fmt.Errorf("cart %s: %w", m.op, err)
		}
		s.logger.Warn("cart mutation failed",
			zap.String("op", m.op),
			zap.String("item", m.id),
			zap.Bool("rolled_back", rolledBack),
			zap.Error(err),
		)
		s.notifier.Error(api.UserMessage(err, m.failure))
		return fmt.Errorf("cart %s: %w", m.op, err)
	}

	s.notifier.Success(m.success)
	return nil
}

// Add увеличивает количество товара на единицу.
func (s *Store) Add(ctx context.Context, productID string) error {
	return s.mutate(ctx, mutation{
		op:      "add",
		id:      productID,
		next:    func(prev int) int { return prev + 1 },
		call:    func(ctx context.Context) error { return s.backend.AddToCart(ctx, productID) },
		success: "Item added to cart successfully!",
		failure: "Failed to add item to cart",
		anon:    "Please login to add items to cart",
	})
}

// SetQuantity устанавливает количество товара; ноль удаляет позицию.
func (s *Store) SetQuantity(ctx context.Context, productID string, quantity int) error {
	if quantity < 0 {
		return ErrInvalidQuantity
	}
	return s.mutate(ctx, mutation{
		op:      "update",
		id:      productID,
		next:    func(int) int { return quantity },
		call:    func(ctx context.Context) error { return s.backend.UpdateCart(ctx, productID, quantity) },
		success: "Cart updated successfully!",
		failure: "Failed to update quantity",
		anon:    "Please login to update your cart",
	})
}

// Remove удаляет позицию из корзины.
func (s *Store) Remove(ctx context.Context, productID string) error {
	return s.mutate(ctx, mutation{
		op:      "remove",
		id:      productID,
		next:    func(int) int { return 0 },
		call:    func(ctx context.Context) error { return s.backend.RemoveFromCart(ctx, productID) },
		success: "Item removed from cart successfully!",
		failure: "Failed to remove item from cart",
		anon:    "Please login to update your cart",
	})
}

// Load заменяет корзину серверным состоянием. При ошибке корзина не меняется.
func (s *Store) Load(ctx context.Context) error {
	if s.session.Token() == "" {
		return session.ErrUnauthenticated
	}

	s.mu.Lock()
	s.loading = true
	s.mu.Unlock()

	data, err := s.backend.GetCart(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false

	if err != nil {
		if !api.IsAuthExpired(err) {
			s.logger.Error("load cart", zap.Error(err))
			s.notifier.Error(api.UserMessage(err, "Failed to load cart"))
		}
		return fmt.Errorf("load cart: %w", err)
	}

	items := newQuantities()
	for id, q := range data {
		items.Set(id, int(math.Round(q)))
	}
	s.items = items
	s.epoch++
	return nil
}

// Clear очищает корзину локально.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = newQuantities()
	s.epoch++
}

// SessionStarted загружает корзину с сервера при появлении токена.
func (s *Store) SessionStarted(ctx context.Context) {
	_ = s.Load(ctx)
}

// SessionEnded очищает корзину при выходе или истечении сессии.
func (s *Store) SessionEnded() {
	s.Clear()
}

// Busy сообщает, есть ли незавершённые запросы корзины.
func (s *Store) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inflight > 0 || s.loading
}

// Items возвращает копию содержимого корзины.
func (s *Store) Items() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items.Snapshot()
}

// Quantity возвращает количество товара в корзине.
func (s *Store) Quantity(productID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items.Get(productID)
}

// Empty сообщает, пуста ли корзина.
func (s *Store) Empty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items.Len() == 0
}

// Count возвращает сумму количеств по всем позициям.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, id := range s.items.Keys() {
		total += s.items.Get(id)
	}
	return total
}

// Subtotal суммирует цену×количество по товарам, найденным в каталоге.
// Неизвестные товары дают ноль.
func (s *Store) Subtotal(prices PriceBook) model.Amount {
	var total model.Amount
	for _, l := range s.Lines(prices) {
		total += l.Total
	}
	return total
}

// Total возвращает сумму корзины вместе со стоимостью доставки.
func (s *Store) Total(prices PriceBook, deliveryFee model.Amount) model.Amount {
	return s.Subtotal(prices) + deliveryFee
}

// Lines возвращает позиции корзины с ценами в порядке идентификаторов.
func (s *Store) Lines(prices PriceBook) []Line {
	s.mu.Lock()
	keys := s.items.Keys()
	snapshot := s.items.Snapshot()
	s.mu.Unlock()

	lines := make([]Line, 0, len(keys))
	for _, id := range keys {
		q := snapshot[id]
		l := Line{ProductID: id, Quantity: q}
		if price, ok := prices.Price(id); ok {
			l.Known = true
			l.Price = price
			l.Total = price * model.Amount(q)
		}
		lines = append(lines, l)
	}
	return lines
}

// OrderItems собирает позиции заказа из корзины.
func (s *Store) OrderItems() []model.OrderItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := s.items.Keys()
	items := make([]model.OrderItem, 0, len(keys))
	for _, id := range keys {
		items = append(items, model.OrderItem{ProductID: id, Quantity: s.items.Get(id)})
	}
	return items
}
