package checkout

import (
	"context"
	"errors"
	"sync"

	"github.com/mmeshcher/storefront/internal/model"
)

// ErrNoPendingPayment возвращается, если окно оплаты не открыто.
var ErrNoPendingPayment = errors.New("no pending payment")

const (
	widgetName        = "IMPACTPURE Order"
	widgetDescription = "Water Purifier Purchase"
)

// PaymentResult содержит данные, которые окно оплаты передаёт обработчику успеха.
type PaymentResult struct {
	OrderID   string `json:"razorpay_order_id"`
	PaymentID string `json:"razorpay_payment_id"`
	Signature string `json:"razorpay_signature"`
}

// WidgetOptions содержит параметры окна оплаты платёжного шлюза.
type WidgetOptions struct {
	Key         string              `json:"key"`
	Amount      model.Amount        `json:"amount"`
	Currency    string              `json:"currency"`
	Name        string              `json:"name"`
	Description string              `json:"description"`
	OrderID     string              `json:"order_id"`
	Handler     func(PaymentResult) `json:"-"`
	OnDismiss   func()              `json:"-"`
}

// Gateway открывает окно оплаты. Handler или OnDismiss вызываются позже, когда
// пользователь завершит или закроет окно.
type Gateway interface {
	Open(ctx context.Context, opts WidgetOptions) error
}

// Discarder реализуется шлюзами, умеющими закрыть окно без вызова его обработчиков.
type Discarder interface {
	Discard()
}

// Deferred служит шлюзом для безоконных клиентов: параметры окна сохраняются до тех пор,
// пока клиент не сообщит результат оплаты или отказ.
type Deferred struct {
	mu      sync.Mutex
	pending *WidgetOptions
}

// NewDeferred создаёт пустой отложенный шлюз.
func NewDeferred() *Deferred {
	return &Deferred{}
}

// Open запоминает параметры окна, заменяя предыдущие.
func (d *Deferred) Open(_ context.Context, opts WidgetOptions) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending = &opts
	return nil
}

// Pending возвращает параметры открытого окна.
func (d *Deferred) Pending() (WidgetOptions, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pending == nil {
		return WidgetOptions{}, false
	}
	return *d.pending, true
}

func (d *Deferred) take() (*WidgetOptions, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pending == nil {
		return nil, ErrNoPendingPayment
	}
	opts := d.pending
	d.pending = nil
	return opts, nil
}

// Complete передаёт результат оплаты обработчику открытого окна.
func (d *Deferred) Complete(res PaymentResult) error {
	opts, err := d.take()
	if err != nil {
		return err
	}
	if opts.Handler != nil {
		opts.Handler(res)
	}
	return nil
}

// Dismiss закрывает окно без оплаты.
func (d *Deferred) Dismiss() error {
	opts, err := d.take()
	if err != nil {
		return err
	}
	if opts.OnDismiss != nil {
		opts.OnDismiss()
	}
	return nil
}

// Discard закрывает окно, не вызывая ни Handler, ни OnDismiss.
func (d *Deferred) Discard() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending = nil
}
