// Package catalogue загружает и хранит список товаров.
package catalogue

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/mmeshcher/storefront/internal/api"
	"github.com/mmeshcher/storefront/internal/model"
	"github.com/mmeshcher/storefront/internal/notify"
)

// LatestCount задаёт размер подборки новинок.
const LatestCount = 8

// Backend описывает вызов бэкенда для получения каталога.
type Backend interface {
	ListProducts(ctx context.Context) ([]model.Product, error)
}

// Store хранит каталог. После успешной загрузки каталог не меняется.
type Store struct {
	backend  Backend
	notifier notify.Notifier
	logger   *zap.Logger

	group singleflight.Group

	mu       sync.RWMutex
	products []model.Product
	byID     map[string]int
	loaded   bool
	loading  bool
}

// NewStore создаёт пустой каталог.
func NewStore(backend Backend, notifier notify.Notifier, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		backend:  backend,
		notifier: notifier,
		logger:   logger,
		byID:     make(map[string]int),
	}
}

// Load запрашивает список товаров один раз. Новые товары идут первыми.
// Параллельные вызовы ждут уже идущей загрузки и получают её результат.
// После неудачи загрузку можно повторить.
func (s *Store) Load(ctx context.Context) error {
	if s.Loaded() {
		return nil
	}

	ch := s.group.DoChan("products", func() (any, error) {
		return nil, s.load(context.WithoutCancel(ctx))
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Store) load(ctx context.Context) error {
	s.mu.Lock()
	if s.loaded {
		s.mu.Unlock()
		return nil
	}
	s.loading = true
	s.mu.Unlock()

	products, err := s.backend.ListProducts(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false

	if err != nil {
		s.logger.Error("load catalogue", zap.Error(err))
		s.notifier.Error(api.UserMessage(err, "Failed to load products"))
		return fmt.Errorf("load catalogue: %w", err)
	}

	products = slices.Clone(products)
	slices.Reverse(products)

	byID := make(map[string]int, len(products))
	for i, p := range products {
		byID[p.ID] = i
	}

	s.products = products
	s.byID = byID
	s.loaded = true
	s.logger.Info("catalogue loaded", zap.Int("products", len(products)))
	return nil
}

// Loaded сообщает, загружен ли каталог.
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Loading сообщает, идёт ли загрузка.
func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Products возвращает копию всего каталога.
func (s *Store) Products() []model.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.products)
}

// Latest возвращает не более LatestCount новейших товаров.
func (s *Store) Latest() []model.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := min(LatestCount, len(s.products))
	return slices.Clone(s.products[:n])
}

// FindByID ищет товар по идентификатору.
func (s *Store) FindByID(id string) (model.Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.byID[id]
	if !ok {
		return model.Product{}, false
	}
	return s.products[i], true
}

// Price возвращает цену товара, если он есть в каталоге.
func (s *Store) Price(id string) (model.Amount, bool) {
	p, ok := s.FindByID(id)
	if !ok {
		return 0, false
	}
	return p.Price, true
}
