// Package session владеет токеном сессии: вход, регистрация, выход,
// восстановление из долговременного хранилища и обработка истечения.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/mmeshcher/storefront/internal/api"
	"github.com/mmeshcher/storefront/internal/model"
	"github.com/mmeshcher/storefront/internal/navigation"
	"github.com/mmeshcher/storefront/internal/notify"
	"github.com/mmeshcher/storefront/internal/storage"
)

var (
	// ErrUnauthenticated возвращается, если действие требует токена, а его нет.
	ErrUnauthenticated = errors.New("login required")
	// ErrPhoneNotVerified возвращается при регистрации без подтверждённого телефона.
	ErrPhoneNotVerified = errors.New("phone number not verified")
)

// Backend описывает вызовы бэкенда, нужные хранилищу сессии.
type Backend interface {
	Login(ctx context.Context, creds api.Credentials) (string, error)
	Register(ctx context.Context, req api.RegisterRequest) (string, error)
	Profile(ctx context.Context) (*model.User, error)
}

// Navigator описывает переходы, которые выполняет хранилище сессии.
type Navigator interface {
	Navigate(path string, opts ...navigation.Option)
	Current() string
	SetReturnTo(path string)
	TakeReturnTo() string
}

// Listener получает события начала и завершения сессии.
type Listener interface {
	SessionStarted(ctx context.Context)
	SessionEnded()
}

// Profile содержит данные формы регистрации.
type Profile struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Store хранит единственный активный токен сессии.
type Store struct {
	backend  Backend
	storage  storage.Storage
	nav      Navigator
	notifier notify.Notifier
	logger   *zap.Logger

	mu        sync.Mutex
	token     string
	busy      bool
	listeners []Listener
}

// NewStore создаёт хранилище сессии без активного токена.
func NewStore(backend Backend, st storage.Storage, nav Navigator, notifier notify.Notifier, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		backend:  backend,
		storage:  st,
		nav:      nav,
		notifier: notifier,
		logger:   logger,
	}
}

// AddListener подписывает получателя на события сессии.
func (s *Store) AddListener(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

func (s *Store) snapshotListeners() []Listener {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Listener(nil), s.listeners...)
}

// Token возвращает текущий токен или пустую строку.
func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// Authenticated сообщает, есть ли активный токен.
func (s *Store) Authenticated() bool {
	return s.Token() != ""
}

// Busy сообщает, выполняется ли вход или регистрация.
func (s *Store) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

func (s *Store) setBusy(v bool) {
	s.mu.Lock()
	s.busy = v
	s.mu.Unlock()
}

// Hydrate загружает токен из долговременного хранилища при старте приложения.
func (s *Store) Hydrate(ctx context.Context) error {
	token, ok, err := s.storage.Get(ctx, storage.TokenKey)
	if err != nil {
		return fmt.Errorf("load token: %w", err)
	}
	if !ok || token == "" {
		return nil
	}

	s.mu.Lock()
	if s.token == token {
		s.mu.Unlock()
		return nil
	}
	s.token = token
	s.mu.Unlock()

	s.logger.Info("session restored from storage")
	for _, l := range s.snapshotListeners() {
		l.SessionStarted(ctx)
	}
	return nil
}

// SignIn выполняет вход по идентификатору (email или телефон) и паролю.
// Идентификатор не нормализуется.
func (s *Store) SignIn(ctx context.Context, creds api.Credentials) error {
	s.setBusy(true)
	defer s.setBusy(false)

	token, err := s.backend.Login(ctx, creds)
	if err != nil {
		s.logger.Warn("login failed", zap.Error(err))
		s.notifier.Error(api.UserMessage(err, "Login failed. Please check your credentials."))
		return fmt.Errorf("login: %w", err)
	}
	if token == "" {
		s.notifier.Error("Invalid credentials")
		return fmt.Errorf("login: %w", api.ErrUnknown)
	}

	s.establish(ctx, token)
	s.notifier.Success("Login successful! Welcome back!")
	s.nav.Navigate(s.nav.TakeReturnTo())
	return nil
}

// Register регистрирует пользователя с телефоном, прошедшим проверку кодом,
// и при успехе ведёт себя так же, как SignIn.
func (s *Store) Register(ctx context.Context, p Profile, verifiedPhone string) error {
	if verifiedPhone == "" {
		s.notifier.Error("Please verify your OTP before proceeding.")
		return ErrPhoneNotVerified
	}

	s.setBusy(true)
	defer s.setBusy(false)

	token, err := s.backend.Register(ctx, api.RegisterRequest{
		Name:        p.Name,
		Email:       p.Email,
		Password:    p.Password,
		PhoneNumber: verifiedPhone,
	})
	if err != nil {
		s.logger.Warn("registration failed", zap.Error(err))
		s.notifier.Error(api.UserMessage(err, "Registration failed. Please try again."))
		return fmt.Errorf("register: %w", err)
	}
	if token == "" {
		s.notifier.Error("Registration failed")
		return fmt.Errorf("register: %w", api.ErrUnknown)
	}

	s.establish(ctx, token)
	s.notifier.Success("Registration successful! Welcome!")
	s.nav.Navigate(s.nav.TakeReturnTo())
	return nil
}

func (s *Store) establish(ctx context.Context, token string) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()

	if err := s.storage.Set(ctx, storage.TokenKey, token); err != nil {
		s.logger.Error("persist token", zap.Error(err))
	}

	for _, l := range s.snapshotListeners() {
		l.SessionStarted(ctx)
	}
}

// end очищает токен в памяти и хранилище. Возвращает false, если токена не было.
func (s *Store) end(ctx context.Context) bool {
	s.mu.Lock()
	had := s.token != ""
	s.token = ""
	s.mu.Unlock()

	if err := s.storage.Delete(ctx, storage.TokenKey); err != nil {
		s.logger.Error("remove persisted token", zap.Error(err))
	}

	for _, l := range s.snapshotListeners() {
		l.SessionEnded()
	}
	return had
}

// SignOut очищает токен и корзину и переводит на главную.
func (s *Store) SignOut(ctx context.Context) {
	if s.end(ctx) {
		s.notifier.Success("Successfully logged out!")
	}
	s.nav.Navigate(navigation.RouteHome)
}

// HandleExpiry вызывается клиентом API при истёкшей сессии. Пользователь
// уведомляется один раз, даже если несколько вызовов завершились истечением.
func (s *Store) HandleExpiry(ctx context.Context) {
	s.mu.Lock()
	if s.token == "" {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	if !s.end(ctx) {
		return
	}
	s.logger.Info("session expired, signing out")
	s.notifier.Error("Your session has expired. Please log in again.")
	s.nav.Navigate(navigation.RouteLogin)
}

// RequireLogin уведомляет пользователя, запоминает текущий маршрут для возврата
// и переводит на страницу входа.
func (s *Store) RequireLogin(msg string) error {
	if msg != "" {
		s.notifier.Error(msg)
	}
	if current := s.nav.Current(); current != navigation.RouteLogin {
		s.nav.SetReturnTo(current)
	}
	s.nav.Navigate(navigation.RouteLogin)
	return ErrUnauthenticated
}

// Profile запрашивает профиль пользователя. Результат не кэшируется.
func (s *Store) Profile(ctx context.Context) (*model.User, error) {
	if !s.Authenticated() {
		return nil, s.RequireLogin("")
	}

	user, err := s.backend.Profile(ctx)
	if err != nil {
		if !api.IsAuthExpired(err) {
			s.notifier.Error(api.UserMessage(err, "Failed to load profile"))
		}
		return nil, fmt.Errorf("profile: %w", err)
	}
	return user, nil
}
