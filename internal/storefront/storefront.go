// Package storefront собирает ядро витрины: клиент API, хранилища, контроллеры
// и связи между ними.
package storefront

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/storefront/internal/api"
	"github.com/mmeshcher/storefront/internal/auth"
	"github.com/mmeshcher/storefront/internal/cart"
	"github.com/mmeshcher/storefront/internal/catalogue"
	"github.com/mmeshcher/storefront/internal/checkout"
	"github.com/mmeshcher/storefront/internal/config"
	"github.com/mmeshcher/storefront/internal/contact"
	"github.com/mmeshcher/storefront/internal/model"
	"github.com/mmeshcher/storefront/internal/navigation"
	"github.com/mmeshcher/storefront/internal/notify"
	"github.com/mmeshcher/storefront/internal/orders"
	"github.com/mmeshcher/storefront/internal/session"
	"github.com/mmeshcher/storefront/internal/storage"
	"github.com/mmeshcher/storefront/internal/validation"
)

// App содержит собранное ядро витрины.
type App struct {
	Config *config.Config
	Logger *zap.Logger

	Client    *api.Client
	Storage   storage.Storage
	Toasts    *notify.Feed
	Nav       *navigation.Navigator
	Session   *session.Store
	Catalogue *catalogue.Store
	Cart      *cart.Store
	Auth      *auth.Controller
	Gateway   checkout.Gateway
	Checkout  *checkout.Controller
	Orders    *orders.Store
	Contact   *contact.Service

	closers []io.Closer
}

type options struct {
	storage    storage.Storage
	gateway    checkout.Gateway
	opener     navigation.Opener
	httpClient *http.Client
	authOpts   []auth.Option
}

// Option настраивает сборку App.
type Option func(*options)

// WithStorage подменяет долговременное хранилище.
func WithStorage(s storage.Storage) Option {
	return func(o *options) { o.storage = s }
}

// WithGateway подменяет платёжный шлюз. По умолчанию используется checkout.Deferred.
func WithGateway(g checkout.Gateway) Option {
	return func(o *options) { o.gateway = g }
}

// WithOpener задаёт способ открытия внешних ссылок.
func WithOpener(op navigation.Opener) Option {
	return func(o *options) { o.opener = op }
}

// WithHTTPClient задаёт HTTP-клиент для обращений к бэкенду.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) { o.httpClient = hc }
}

// WithAuthOptions передаёт параметры контроллеру входа.
func WithAuthOptions(opts ...auth.Option) Option {
	return func(o *options) { o.authOpts = append(o.authOpts, opts...) }
}

// New собирает ядро по конфигурации. Хранилище выбирается так: PostgreSQL, если задан
// DATABASE_URI, иначе файл STORAGE_PATH.
func New(cfg *config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	a := &App{Config: cfg, Logger: logger}

	st, err := a.openStorage(o)
	if err != nil {
		return nil, err
	}
	a.Storage = st

	var clientOpts []api.Option
	if o.httpClient != nil {
		clientOpts = append(clientOpts, api.WithHTTPClient(o.httpClient))
	}
	a.Client = api.NewClient(cfg.BackendURL, logger.Named("api"), clientOpts...)

	a.Toasts = notify.NewFeed(logger.Named("toast"))
	a.Nav = navigation.New(logger.Named("nav"), o.opener)
	v := validation.New()

	a.Session = session.NewStore(a.Client, a.Storage, a.Nav, a.Toasts, logger.Named("session"))
	a.Client.BindSession(a.Session)

	a.Catalogue = catalogue.NewStore(a.Client, a.Toasts, logger.Named("catalogue"))

	a.Cart = cart.NewStore(a.Client, a.Session, a.Toasts, logger.Named("cart"))
	a.Session.AddListener(a.Cart)

	a.Auth = auth.NewController(a.Client, a.Session, a.Nav, a.Toasts, v, logger.Named("auth"), o.authOpts...)

	a.Gateway = o.gateway
	if a.Gateway == nil {
		a.Gateway = checkout.NewDeferred()
	}
	a.Checkout = checkout.NewController(
		a.Client, a.Gateway, a.Cart, a.Catalogue, a.Session, a.Nav, a.Toasts, v,
		checkout.Config{KeyID: cfg.RazorpayKeyID, DeliveryFee: model.Amount(cfg.DeliveryFee)},
		logger.Named("checkout"),
	)
	a.Session.AddListener(a.Checkout)

	a.Orders = orders.NewStore(a.Client, a.Session, a.Nav, a.Toasts, logger.Named("orders"))
	a.Contact = contact.NewService(a.Client, cfg.Sheets, a.Toasts, v, logger.Named("contact"))

	return a, nil
}

func (a *App) openStorage(o *options) (storage.Storage, error) {
	if o.storage != nil {
		return o.storage, nil
	}
	if a.Config.DatabaseURI != "" {
		pg, err := storage.NewPostgres(a.Config.DatabaseURI, a.Config.Origin)
		if err != nil {
			return nil, fmt.Errorf("open postgres storage: %w", err)
		}
		a.closers = append(a.closers, pg)
		return pg, nil
	}
	return storage.NewFile(a.Config.StoragePath, a.Config.Origin), nil
}

// Start восстанавливает сессию из хранилища и загружает каталог.
// Ошибка загрузки каталога не прерывает запуск: пользователь уже уведомлён.
func (a *App) Start(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := a.Session.Hydrate(gctx); err != nil {
			return fmt.Errorf("hydrate session: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		if err := a.Catalogue.Load(gctx); err != nil {
			a.Logger.Warn("catalogue not loaded", zap.Error(err))
		}
		return nil
	})

	return g.Wait()
}

// Summary содержит итоги корзины для отображения.
type Summary struct {
	Count       int          `json:"count"`
	Subtotal    model.Amount `json:"subtotal"`
	DeliveryFee model.Amount `json:"deliveryFee"`
	Total       model.Amount `json:"total"`
	Display     struct {
		Subtotal    string `json:"subtotal"`
		DeliveryFee string `json:"deliveryFee"`
		Total       string `json:"total"`
	} `json:"display"`
}

// CartSummary считает итоги корзины по текущему каталогу.
func (a *App) CartSummary() Summary {
	fee := model.Amount(a.Config.DeliveryFee)

	var s Summary
	s.Count = a.Cart.Count()
	s.Subtotal = a.Cart.Subtotal(a.Catalogue)
	s.DeliveryFee = fee
	s.Total = s.Subtotal + fee
	s.Display.Subtotal = model.FormatAmount(a.Config.Currency, s.Subtotal)
	s.Display.DeliveryFee = model.FormatAmount(a.Config.Currency, fee)
	s.Display.Total = model.FormatAmount(a.Config.Currency, s.Total)
	return s
}

// Close останавливает таймеры и закрывает хранилище.
func (a *App) Close() error {
	a.Auth.Close()

	var errs []error
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
