// Package notify реализует ленту всплывающих уведомлений, единственный канал
// обратной связи об асинхронных операциях.
package notify

import (
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Level описывает тип уведомления.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelInfo    Level = "info"
)

// Toast описывает одно уведомление.
type Toast struct {
	Level   Level     `json:"level"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// Notifier принимает уведомления от хранилищ и контроллеров.
type Notifier interface {
	Success(msg string)
	Error(msg string)
	Info(msg string)
}

const defaultCapacity = 50

// Feed накапливает уведомления до их показа и дублирует их в журнал.
type Feed struct {
	mu       sync.Mutex
	logger   *zap.Logger
	toasts   []Toast
	capacity int
	sinks    []func(Toast)
}

// NewFeed создаёт ленту уведомлений.
func NewFeed(logger *zap.Logger) *Feed {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Feed{
		logger:   logger,
		capacity: defaultCapacity,
	}
}

// Subscribe регистрирует получателя, вызываемого для каждого нового уведомления.
func (f *Feed) Subscribe(sink func(Toast)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sinks = append(f.sinks, sink)
}

func (f *Feed) Success(msg string) { f.push(LevelSuccess, msg) }
func (f *Feed) Error(msg string)   { f.push(LevelError, msg) }
func (f *Feed) Info(msg string)    { f.push(LevelInfo, msg) }

func (f *Feed) push(level Level, msg string) {
	t := Toast{Level: level, Message: msg, At: time.Now()}

	f.mu.Lock()
	f.toasts = append(f.toasts, t)
	if len(f.toasts) > f.capacity {
		f.toasts = f.toasts[len(f.toasts)-f.capacity:]
	}
	sinks := slices.Clone(f.sinks)
	f.mu.Unlock()

	f.logger.Info("toast", zap.String("level", string(level)), zap.String("message", msg))

	for _, sink := range sinks {
		sink(t)
	}
}

// Drain возвращает накопленные уведомления и очищает ленту.
func (f *Feed) Drain() []Toast {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.toasts
	f.toasts = nil
	return out
}

// Pending возвращает копию накопленных уведомлений без очистки.
func (f *Feed) Pending() []Toast {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Toast(nil), f.toasts...)
}
