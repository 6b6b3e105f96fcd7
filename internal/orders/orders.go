// Package orders показывает прошлые заказы пользователя плоским списком позиций.
package orders

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/mmeshcher/storefront/internal/api"
	"github.com/mmeshcher/storefront/internal/model"
	"github.com/mmeshcher/storefront/internal/navigation"
	"github.com/mmeshcher/storefront/internal/notify"
	"github.com/mmeshcher/storefront/internal/session"
)

const dateLayout = "Mon Jan 02 2006"

// Tone задаёт группу статуса заказа для оформления.
type Tone string

const (
	ToneDelivered  Tone = "delivered"
	ToneInTransit  Tone = "in-transit"
	ToneProcessing Tone = "processing"
	ToneNeutral    Tone = "neutral"
)

// Backend описывает запрос заказов пользователя.
type Backend interface {
	UserOrders(ctx context.Context) ([]model.Order, error)
}

// Session отдаёт текущий токен.
type Session interface {
	Token() string
}

// Navigator выполняет переход на страницу входа.
type Navigator interface {
	Navigate(path string, opts ...navigation.Option)
}

// Store хранит последний загруженный список позиций заказов.
type Store struct {
	backend  Backend
	session  Session
	nav      Navigator
	notifier notify.Notifier
	logger   *zap.Logger

	mu      sync.Mutex
	items   []model.OrderDisplayItem
	loading bool
}

// NewStore создаёт пустой список заказов.
func NewStore(backend Backend, sess Session, nav Navigator, notifier notify.Notifier, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		backend:  backend,
		session:  sess,
		nav:      nav,
		notifier: notifier,
		logger:   logger,
	}
}

// Load запрашивает заказы заново. Без токена переводит на страницу входа.
func (s *Store) Load(ctx context.Context) ([]model.OrderDisplayItem, error) {
	if s.session.Token() == "" {
		s.nav.Navigate(navigation.RouteLogin)
		return nil, session.ErrUnauthenticated
	}

	s.mu.Lock()
	s.loading = true
	s.mu.Unlock()

	orders, err := s.backend.UserOrders(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false

	if err != nil {
		s.logger.Warn("load orders failed", zap.Error(err))
		if !api.IsAuthExpired(err) {
			s.notifier.Error(api.UserMessage(err, "Failed to load orders."))
		}
		return nil, fmt.Errorf("load orders: %w", err)
	}

	s.items = Flatten(orders)
	return slices.Clone(s.items), nil
}

// Items возвращает последний загруженный список.
func (s *Store) Items() []model.OrderDisplayItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.items)
}

// Loading сообщает, идёт ли загрузка.
func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Flatten раскладывает заказы в позиции, новые первыми.
// Позиции без снимка товара пропускаются.
func Flatten(orders []model.Order) []model.OrderDisplayItem {
	var out []model.OrderDisplayItem
	for _, o := range orders {
		status := o.Status
		if status == "" {
			status = "Unknown"
		}
		method := o.PaymentMethod
		if method == "" {
			method = "Not specified"
		}
		date := "N/A"
		if !o.Date.IsZero() {
			date = o.Date.Format(dateLayout)
		}

		for _, line := range o.Items {
			if line.Product == nil {
				continue
			}
			p := line.Product

			qty := line.Quantity
			if qty <= 0 {
				qty = 1
			}
			id := p.ID
			if id == "" {
				id = "Unknown ID"
			}
			name := p.Name
			if name == "" {
				name = "Unknown Item"
			}
			image := p.Image
			if image == nil {
				image = []string{}
			}

			out = append(out, model.OrderDisplayItem{
				ProductID:     id,
				Name:          name,
				Price:         p.Price,
				Image:         image,
				Quantity:      qty,
				Status:        status,
				Payment:       o.Payment,
				PaymentMethod: method,
				Date:          date,
			})
		}
	}
	slices.Reverse(out)
	return out
}

// StatusTone относит статус заказа к группе для оформления.
func StatusTone(status string) Tone {
	switch strings.ToLower(status) {
	case "delivered":
		return ToneDelivered
	case "shipped", "out for delivery":
		return ToneInTransit
	case "processing":
		return ToneProcessing
	default:
		return ToneNeutral
	}
}
