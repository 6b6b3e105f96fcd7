// Package auth проводит церемонии с одноразовым кодом по телефону
// (регистрация и сброс пароля) и вход по паролю.
package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/storefront/internal/api"
	"github.com/mmeshcher/storefront/internal/navigation"
	"github.com/mmeshcher/storefront/internal/notify"
	"github.com/mmeshcher/storefront/internal/session"
	"github.com/mmeshcher/storefront/internal/validation"
)

const (
	defaultCooldown = 30
	defaultTick     = time.Second
)

var (
	// ErrCooldown возвращается при повторной отправке кода до окончания паузы.
	ErrCooldown = errors.New("otp resend cooldown active")
	// ErrOTPNotVerified возвращается при попытке завершить церемонию без подтверждения кода.
	ErrOTPNotVerified = errors.New("otp not verified")
	// ErrInvalidState возвращается, если шаг не допустим в текущем состоянии церемонии.
	ErrInvalidState = errors.New("invalid ceremony state")
)

// Mode задаёт вид церемонии.
type Mode string

const (
	ModeRegister Mode = "register"
	ModeReset    Mode = "reset"
)

// State задаёт шаг церемонии.
type State string

const (
	StateIdle         State = "idle"
	StateOTPRequested State = "otpRequested"
	StateOTPVerified  State = "otpVerified"
	StateDone         State = "done"
)

// Backend описывает вызовы бэкенда для церемоний.
type Backend interface {
	SendOTP(ctx context.Context, phone string) error
	VerifyOTP(ctx context.Context, phone, otp string) error
	ResetPassword(ctx context.Context, phone, newPassword string) error
}

// Session описывает вход и регистрацию в хранилище сессии.
type Session interface {
	SignIn(ctx context.Context, creds api.Credentials) error
	Register(ctx context.Context, p session.Profile, verifiedPhone string) error
}

// Navigator выполняет переход после сброса пароля.
type Navigator interface {
	Navigate(path string, opts ...navigation.Option)
}

// Status содержит снимок состояния церемонии для отображения.
type Status struct {
	Mode        Mode   `json:"mode"`
	State       State  `json:"state"`
	Phone       string `json:"phone"`
	OTPSent     bool   `json:"otpSent"`
	OTPVerified bool   `json:"otpVerified"`
	Cooldown    int    `json:"cooldown"`
	SendingOTP  bool   `json:"sendingOtp"`
	Verifying   bool   `json:"verifying"`
	Submitting  bool   `json:"submitting"`
}

type loginForm struct {
	Identifier string `json:"identifier" validate:"required"`
	Password   string `json:"password" validate:"required"`
}

type phoneForm struct {
	Phone string `json:"phoneNumber" validate:"required,inphone"`
}

type resetForm struct {
	NewPassword string `json:"newPassword" validate:"required"`
}

// Controller проводит одну церемонию за раз и владеет таймером повторной отправки.
type Controller struct {
	backend   Backend
	session   Session
	nav       Navigator
	notifier  notify.Notifier
	validator *validation.Validator
	logger    *zap.Logger

	cooldownSeconds int
	tick            time.Duration

	mu            sync.Mutex
	mode          Mode
	state         State
	phone         string
	verifiedPhone string
	otpSent       bool
	otpVerified   bool
	cooldown      int
	sending       bool
	verifying     bool
	submitting    bool

	stopTimer context.CancelFunc
	timerWG   sync.WaitGroup
}

// Option настраивает Controller.
type Option func(*Controller)

// WithCooldown задаёт длительность паузы в тиках и длительность тика.
func WithCooldown(ticks int, tick time.Duration) Option {
	return func(c *Controller) {
		c.cooldownSeconds = ticks
		c.tick = tick
	}
}

// NewController создаёт контроллер в режиме регистрации.
func NewController(backend Backend, sess Session, nav Navigator, notifier notify.Notifier, v *validation.Validator, logger *zap.Logger, opts ...Option) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Controller{
		backend:         backend,
		session:         sess,
		nav:             nav,
		notifier:        notifier,
		validator:       v,
		logger:          logger,
		cooldownSeconds: defaultCooldown,
		tick:            defaultTick,
		mode:            ModeRegister,
		state:           StateIdle,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Begin начинает новую церемонию, отменяя предыдущую вместе с её таймером.
func (c *Controller) Begin(mode Mode) {
	c.mu.Lock()
	c.stopCooldownLocked()
	c.mode = mode
	c.state = StateIdle
	c.phone = ""
	c.verifiedPhone = ""
	c.otpSent = false
	c.otpVerified = false
	c.mu.Unlock()

	c.timerWG.Wait()
}

// Status возвращает снимок состояния церемонии.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{
		Mode:        c.mode,
		State:       c.state,
		Phone:       c.phone,
		OTPSent:     c.otpSent,
		OTPVerified: c.otpVerified,
		Cooldown:    c.cooldown,
		SendingOTP:  c.sending,
		Verifying:   c.verifying,
		Submitting:  c.submitting,
	}
}

// SendOTP отправляет код на канонический телефон и запускает паузу повторной отправки.
// Номер, не похожий на индийский мобильный, отклоняется без обращения к серверу.
func (c *Controller) SendOTP(ctx context.Context, phone string) error {
	canonical := CanonicalPhone(phone)
	if err := c.validator.Struct(phoneForm{Phone: canonical}); err != nil {
		c.notifier.Error(validation.FirstMessage(err))
		return err
	}

	c.mu.Lock()
	switch {
	case c.cooldown > 0:
		left := c.cooldown
		c.mu.Unlock()
		c.notifier.Error(fmt.Sprintf("Please wait %ds before requesting another OTP", left))
		return ErrCooldown
	case c.otpVerified:
		c.mu.Unlock()
		c.notifier.Error("Phone number is already verified")
		return ErrInvalidState
	case c.sending:
		c.mu.Unlock()
		return ErrInvalidState
	}
	c.sending = true
	c.mu.Unlock()

	err := c.backend.SendOTP(ctx, canonical)

	c.mu.Lock()
	c.sending = false
	if err != nil {
		c.mu.Unlock()
		c.logger.Warn("send otp failed", zap.Error(err))
		c.notifier.Error(api.UserMessage(err, "Failed to send OTP. Please try again."))
		return fmt.Errorf("send otp: %w", err)
	}
	c.phone = canonical
	c.otpSent = true
	c.state = StateOTPRequested
	c.startCooldownLocked()
	c.mu.Unlock()

	c.notifier.Success("OTP sent to your phone successfully!")
	return nil
}

// VerifyOTP проверяет введённый код для телефона.
func (c *Controller) VerifyOTP(ctx context.Context, phone, otp string) error {
	canonical := CanonicalPhone(phone)

	c.mu.Lock()
	if c.state != StateOTPRequested || c.verifying {
		c.mu.Unlock()
		c.notifier.Error("Please request an OTP first.")
		return ErrInvalidState
	}
	c.verifying = true
	c.mu.Unlock()

	err := c.backend.VerifyOTP(ctx, canonical, otp)

	c.mu.Lock()
	c.verifying = false
	if err != nil {
		c.otpVerified = false
		c.verifiedPhone = ""
		c.mu.Unlock()
		c.notifier.Error(api.UserMessage(err, "OTP verification failed. Please try again."))
		return fmt.Errorf("verify otp: %w", err)
	}
	c.otpVerified = true
	c.otpSent = false
	c.verifiedPhone = canonical
	c.phone = canonical
	c.state = StateOTPVerified
	c.mu.Unlock()

	c.notifier.Success("Phone number verified successfully!")
	return nil
}

// checkVerified проверяет, что последний успешно подтверждённый телефон совпадает с переданным.
func (c *Controller) checkVerified(mode Mode, canonical, msg string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.mode != mode {
		return ErrInvalidState
	}
	if c.submitting {
		return ErrInvalidState
	}
	if !c.otpVerified || c.verifiedPhone != canonical {
		c.notifier.Error(msg)
		return ErrOTPNotVerified
	}
	c.submitting = true
	return nil
}

func (c *Controller) finish(success bool) {
	c.mu.Lock()
	c.submitting = false
	if success {
		c.state = StateDone
		c.stopCooldownLocked()
	}
	c.mu.Unlock()

	if success {
		c.timerWG.Wait()
	}
}

// Register завершает церемонию регистрации. Без подтверждённого кода сервер не вызывается.
func (c *Controller) Register(ctx context.Context, p session.Profile, phone string) error {
	canonical := CanonicalPhone(phone)

	if err := c.checkVerified(ModeRegister, canonical, "Please verify your OTP before proceeding."); err != nil {
		return err
	}

	if err := c.validator.Struct(p); err != nil {
		c.finish(false)
		c.notifier.Error(validation.FirstMessage(err))
		return err
	}

	err := c.session.Register(ctx, p, canonical)
	c.finish(err == nil)
	return err
}

// ResetPassword завершает церемонию сброса пароля и возвращает к форме входа.
func (c *Controller) ResetPassword(ctx context.Context, phone, newPassword string) error {
	canonical := CanonicalPhone(phone)

	if err := c.checkVerified(ModeReset, canonical, "Please verify your OTP before resetting your password."); err != nil {
		return err
	}

	if err := c.validator.Struct(resetForm{NewPassword: newPassword}); err != nil {
		c.finish(false)
		c.notifier.Error(validation.FirstMessage(err))
		return err
	}

	err := c.backend.ResetPassword(ctx, canonical, newPassword)
	if err != nil {
		c.finish(false)
		c.notifier.Error(api.UserMessage(err, "Failed to reset password. Please try again."))
		return fmt.Errorf("reset password: %w", err)
	}

	c.finish(true)
	c.notifier.Success("Password reset successfully!")
	c.nav.Navigate(navigation.RouteLogin)
	return nil
}

// Login выполняет вход по паролю. Идентификатор передаётся как есть.
func (c *Controller) Login(ctx context.Context, identifier, password string) error {
	if err := c.validator.Struct(loginForm{Identifier: identifier, Password: password}); err != nil {
		c.notifier.Error(validation.FirstMessage(err))
		return err
	}
	return c.session.SignIn(ctx, api.Credentials{Identifier: identifier, Password: password})
}

// Close останавливает таймер паузы. Вызывается при уходе со страницы входа.
func (c *Controller) Close() {
	c.mu.Lock()
	c.stopCooldownLocked()
	c.mu.Unlock()

	c.timerWG.Wait()
}

func (c *Controller) startCooldownLocked() {
	c.stopCooldownLocked()

	ctx, cancel := context.WithCancel(context.Background())
	c.stopTimer = cancel
	c.cooldown = c.cooldownSeconds

	c.timerWG.Add(1)
	go func() {
		defer c.timerWG.Done()

		ticker := time.NewTicker(c.tick)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.mu.Lock()
				if ctx.Err() != nil {
					c.mu.Unlock()
					return
				}
				c.cooldown--
				expired := c.cooldown <= 0
				if expired {
					c.cooldown = 0
					c.stopTimer = nil
				}
				c.mu.Unlock()

				if expired {
					cancel()
					return
				}
			}
		}
	}()
}

func (c *Controller) stopCooldownLocked() {
	if c.stopTimer != nil {
		c.stopTimer()
		c.stopTimer = nil
	}
	c.cooldown = 0
}
