// Package navigation координирует переходы между маршрутами клиента:
// история, сброс прокрутки при смене маршрута, возврат после входа и внешние ссылки.
package navigation

import (
	"slices"
	"sync"

	"go.uber.org/zap"
)

// Opener открывает внешний адрес в новом контексте просмотра.
type Opener interface {
	Open(url string) error
}

// Change описывает один переход.
type Change struct {
	From    string
	To      string
	Replace bool
}

type navOptions struct {
	replace bool
}

// Option настраивает переход.
type Option func(*navOptions)

// Replace заменяет текущую запись истории вместо добавления новой.
func Replace() Option {
	return func(o *navOptions) { o.replace = true }
}

// Navigator хранит текущий маршрут и историю переходов.
type Navigator struct {
	mu           sync.Mutex
	logger       *zap.Logger
	opener       Opener
	current      string
	history      []string
	scrollResets int
	returnTo     string
	listeners    []func(Change)
}

// New создаёт навигатор, стоящий на главной странице.
func New(logger *zap.Logger, opener Opener) *Navigator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Navigator{
		logger:  logger,
		opener:  opener,
		current: RouteHome,
		history: []string{RouteHome},
	}
}

// OnChange регистрирует обработчик смены маршрута.
func (n *Navigator) OnChange(fn func(Change)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.listeners = append(n.listeners, fn)
}

// Navigate переходит на путь. Переход на текущий путь заменяет запись истории.
// При смене маршрута прокрутка сбрасывается в начало страницы.
func (n *Navigator) Navigate(path string, opts ...Option) {
	var o navOptions
	for _, opt := range opts {
		opt(&o)
	}

	n.mu.Lock()
	from := n.current
	replace := o.replace || path == from
	if replace {
		n.history[len(n.history)-1] = path
	} else {
		n.history = append(n.history, path)
	}
	n.current = path

	changed := stripQuery(from) != stripQuery(path)
	if changed {
		n.scrollResets++
	}
	listeners := slices.Clone(n.listeners)
	n.mu.Unlock()

	if !IsKnownRoute(stripQuery(path)) {
		n.logger.Warn("navigating to unknown route", zap.String("path", path))
	}
	n.logger.Debug("navigate", zap.String("from", from), zap.String("to", path), zap.Bool("replace", replace))

	c := Change{From: from, To: path, Replace: replace}
	for _, fn := range listeners {
		fn(c)
	}
}

// OpenExternal открывает внешний адрес, не меняя текущий маршрут.
func (n *Navigator) OpenExternal(url string) error {
	if n.opener == nil {
		n.logger.Info("external link", zap.String("url", url))
		return nil
	}
	return n.opener.Open(url)
}

// Current возвращает текущий маршрут.
func (n *Navigator) Current() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current
}

// History возвращает копию истории переходов.
func (n *Navigator) History() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.history...)
}

// ScrollResets возвращает число сбросов прокрутки.
func (n *Navigator) ScrollResets() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.scrollResets
}

// SetReturnTo запоминает маршрут, на который нужно вернуться после входа.
func (n *Navigator) SetReturnTo(path string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.returnTo = path
}

// TakeReturnTo возвращает и сбрасывает маршрут возврата. По умолчанию это главная.
func (n *Navigator) TakeReturnTo() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	path := n.returnTo
	n.returnTo = ""
	if path == "" || path == RouteLogin {
		return RouteHome
	}
	return path
}
